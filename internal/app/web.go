// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"
	"github.com/relabs-tech/imu_logger/internal/config"
	"github.com/relabs-tech/imu_logger/internal/logger"
	"github.com/relabs-tech/imu_logger/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // bench LAN only
	},
}

// Status is the latest event seen on each telemetry topic.
type Status struct {
	Volume  *telemetry.VolumeEvent  `json:"volume,omitempty"`
	Session *telemetry.SessionEvent `json:"session,omitempty"`
	Sample  *telemetry.SampleEvent  `json:"sample,omitempty"`
}

// Event is one message pushed to websocket clients.
type Event struct {
	Kind string          `json:"kind"` // "status", "session", "sample" or "volume"
	Data json.RawMessage `json:"data"`
}

// statusHub keeps the latest status and fans events out to websocket
// clients. Slow clients lose events rather than stall the MQTT callback.
type statusHub struct {
	mu      sync.RWMutex
	status  Status
	have    bool
	clients map[chan Event]struct{}
}

func newStatusHub() *statusHub {
	return &statusHub{clients: make(map[chan Event]struct{})}
}

// apply records an event of kind and forwards it to every client.
func (h *statusHub) apply(kind string, payload []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch kind {
	case "session":
		var ev telemetry.SessionEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return err
		}
		h.status.Session = &ev
	case "sample":
		var ev telemetry.SampleEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return err
		}
		h.status.Sample = &ev
	case "volume":
		var ev telemetry.VolumeEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return err
		}
		h.status.Volume = &ev
	default:
		return fmt.Errorf("unknown event kind %q", kind)
	}
	h.have = true

	ev := Event{Kind: kind, Data: append(json.RawMessage(nil), payload...)}
	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (h *statusHub) snapshot() (Status, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status, h.have
}

func (h *statusHub) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
	}
}

func (h *statusHub) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, ok := h.snapshot()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		logger.For("web").Warn().Err(err).Msg("json encode error")
	}
}

func (h *statusHub) handleWS(w http.ResponseWriter, r *http.Request) {
	log := logger.For("web")
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade error")
		return
	}
	defer conn.Close()

	events, unsubscribe := h.subscribe()
	defer unsubscribe()

	if st, ok := h.snapshot(); ok {
		data, _ := json.Marshal(st)
		if err := conn.WriteJSON(Event{Kind: "status", Data: data}); err != nil {
			return
		}
	}

	// The client never sends anything useful; reading only detects close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug().Err(err).Msg("websocket closed")
				}
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case ev := <-events:
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

func (h *statusHub) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", h.handleStatus)
	mux.HandleFunc("/ws", h.handleWS)
	mux.Handle("/", http.FileServer(http.Dir("web")))
	return mux
}

// RunWeb subscribes to the logger's telemetry topics and serves the latest
// status over HTTP and a websocket feed.
func RunWeb(cfg *config.Config) error {
	log := logger.For("web")
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER must be set for the web server")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID + "-web")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Info().Str("broker", cfg.MQTTBroker).Msg("connected to MQTT")

	hub := newStatusHub()
	topics := telemetry.TopicsFor(cfg.MQTTTopicPrefix)
	filters := map[string]byte{topics.Session: 0, topics.Sample: 0, topics.Volume: 0}
	token := client.SubscribeMultiple(filters, func(_ mqtt.Client, msg mqtt.Message) {
		kind := msg.Topic()[strings.LastIndex(msg.Topic(), "/")+1:]
		if err := hub.apply(kind, msg.Payload()); err != nil {
			log.Warn().Err(err).Str("topic", msg.Topic()).Msg("bad telemetry payload")
		}
	})
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Info().Str("prefix", cfg.MQTTTopicPrefix).Msg("subscribed to telemetry topics")

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Info().Str("addr", addr).Msg("web server listening")
	return http.ListenAndServe(addr, hub.routes())
}
