// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry mirrors logger events to MQTT. Publishing is best
// effort: failures are logged and never reach the caller.
package telemetry

import (
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/relabs-tech/imu_logger/internal/csvlog"
	"github.com/relabs-tech/imu_logger/internal/logger"
	"github.com/relabs-tech/imu_logger/internal/storage"
)

// publishTimeout bounds how long the control loop waits on the broker.
const publishTimeout = 250 * time.Millisecond

// SessionEvent is published when a session starts or ends.
type SessionEvent struct {
	Event  string    `json:"event"` // "started" or "ended"
	Volume string    `json:"volume"`
	File   string    `json:"file"`
	Count  uint32    `json:"count"`
	Limit  uint32    `json:"limit"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// SampleEvent is one persisted row.
type SampleEvent struct {
	File  string  `json:"file"`
	Seq   uint32  `json:"seq"`
	Date  string  `json:"date"`
	Time  string  `json:"time"`
	Ax    int16   `json:"ax"`
	Ay    int16   `json:"ay"`
	Az    int16   `json:"az"`
	Gx    int16   `json:"gx"`
	Gy    int16   `json:"gy"`
	Gz    int16   `json:"gz"`
	TempC float64 `json:"temp_c"`
}

// NewSampleEvent builds the event from the row as it was written.
func NewSampleEvent(file string, rec *csvlog.SampleRecord) SampleEvent {
	row := rec.CSVRow()
	return SampleEvent{
		File:  file,
		Seq:   rec.Seq,
		Date:  row[0],
		Time:  row[1],
		Ax:    rec.Raw.Ax,
		Ay:    rec.Raw.Ay,
		Az:    rec.Raw.Az,
		Gx:    rec.Raw.Gx,
		Gy:    rec.Raw.Gy,
		Gz:    rec.Raw.Gz,
		TempC: rec.Raw.TempC,
	}
}

// VolumeEvent is a volume state transition.
type VolumeEvent struct {
	Name  string `json:"name"`
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

func NewVolumeEvent(v storage.Volume) VolumeEvent {
	return VolumeEvent{Name: v.Name, State: v.State.String(), Error: string(v.LastErr)}
}

// Topics are the three topics under one prefix.
type Topics struct {
	Session string
	Sample  string
	Volume  string
}

func TopicsFor(prefix string) Topics {
	return Topics{
		Session: prefix + "/session",
		Sample:  prefix + "/sample",
		Volume:  prefix + "/volume",
	}
}

// Publisher receives logger events.
type Publisher interface {
	Session(ev SessionEvent)
	Sample(ev SampleEvent)
	Volume(ev VolumeEvent)
	Close()
}

// Nop discards everything; used when no broker is configured.
type Nop struct{}

func (Nop) Session(SessionEvent) {}
func (Nop) Sample(SampleEvent)   {}
func (Nop) Volume(VolumeEvent)   {}
func (Nop) Close()               {}

// MQTT publishes events as JSON.
type MQTT struct {
	client mqtt.Client
	topics Topics
	log    logger.Component
}

// Connect dials broker and returns a publisher on prefix.
func Connect(broker, clientID, prefix string) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	p := NewMQTT(client, prefix)
	p.log.Info().Str("broker", broker).Str("prefix", prefix).Msg("connected to MQTT")
	return p, nil
}

// NewMQTT wraps an already connected client.
func NewMQTT(client mqtt.Client, prefix string) *MQTT {
	return &MQTT{client: client, topics: TopicsFor(prefix), log: logger.For("telemetry")}
}

func (p *MQTT) Session(ev SessionEvent) { p.publish(p.topics.Session, ev) }
func (p *MQTT) Sample(ev SampleEvent)   { p.publish(p.topics.Sample, ev) }
func (p *MQTT) Volume(ev VolumeEvent)   { p.publish(p.topics.Volume, ev) }

func (p *MQTT) Close() {
	p.client.Disconnect(250)
}

func (p *MQTT) publish(topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		p.log.Warn().Err(err).Str("topic", topic).Msg("marshal failed")
		return
	}
	token := p.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		p.log.Warn().Str("topic", topic).Msg("publish timed out")
		return
	}
	if err := token.Error(); err != nil {
		p.log.Warn().Err(err).Str("topic", topic).Msg("publish failed")
	}
}
