// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/relabs-tech/imu_logger/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func clientCount(h *statusHub) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func TestStatusEndpoint(t *testing.T) {
	hub := newStatusHub()
	srv := httptest.NewServer(hub.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	payload, err := json.Marshal(telemetry.SessionEvent{Event: "started", File: "data.csv", Limit: 10})
	require.NoError(t, err)
	require.NoError(t, hub.apply("session", payload))

	resp, err = http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	require.NotNil(t, st.Session)
	assert.Equal(t, "data.csv", st.Session.File)
	assert.Nil(t, st.Sample)
}

func TestApplyRejectsBadEvents(t *testing.T) {
	hub := newStatusHub()
	assert.Error(t, hub.apply("gps", []byte("{}")))
	assert.Error(t, hub.apply("sample", []byte("{")))
	_, ok := hub.snapshot()
	assert.False(t, ok)
}

func TestWebsocketFeed(t *testing.T) {
	hub := newStatusHub()
	vol, err := json.Marshal(telemetry.VolumeEvent{Name: "0:", State: "mounted"})
	require.NoError(t, err)
	require.NoError(t, hub.apply("volume", vol))

	srv := httptest.NewServer(hub.routes())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	// A new client first gets the current status.
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "status", ev.Kind)
	var st Status
	require.NoError(t, json.Unmarshal(ev.Data, &st))
	require.NotNil(t, st.Volume)
	assert.Equal(t, "mounted", st.Volume.State)

	require.Eventually(t, func() bool { return clientCount(hub) == 1 }, time.Second, 10*time.Millisecond)

	sample, err := json.Marshal(telemetry.SampleEvent{File: "data.csv", Seq: 7})
	require.NoError(t, err)
	require.NoError(t, hub.apply("sample", sample))

	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "sample", ev.Kind)
	var s telemetry.SampleEvent
	require.NoError(t, json.Unmarshal(ev.Data, &s))
	assert.Equal(t, uint32(7), s.Seq)

	conn.Close()
	require.Eventually(t, func() bool { return clientCount(hub) == 0 }, time.Second, 10*time.Millisecond)
}
