// Package emitter publishes per-frame detection summaries to an MQTT broker.
// The emitter is optional: an empty broker URL means detection events stay
// local to the process.
package emitter

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"curbcam/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Event is one frame's detection summary.
type Event struct {
	RunID     string               `json:"run_id"`
	Seq       int64                `json:"seq"`
	Timestamp time.Time            `json:"timestamp"`
	Counts    map[config.Class]int `json:"counts"`
	Tracks    int                  `json:"active_tracks"`
}

// Stats reports publish health for the shutdown summary.
type Stats struct {
	Connected bool
	Published int64
	Errors    int64
}

// MQTTEmitter publishes events as JSON on a single topic. Publishing is
// best-effort: a failed publish is counted and logged, never fatal to the
// pipeline.
type MQTTEmitter struct {
	client mqtt.Client
	topic  string
	log    *zap.Logger

	published atomic.Int64
	errors    atomic.Int64
}

// NewMQTTEmitter connects to the broker and returns a ready emitter.
func NewMQTTEmitter(broker, topic, clientID string, log *zap.Logger) (*MQTTEmitter, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("emitter: connect %s: %w", broker, token.Error())
	}

	log.Info("mqtt emitter connected", zap.String("broker", broker), zap.String("topic", topic))
	return &MQTTEmitter{client: client, topic: topic, log: log}, nil
}

// Publish sends one event without blocking the pipeline on broker latency.
func (e *MQTTEmitter) Publish(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		e.errors.Add(1)
		e.log.Warn("encode detection event", zap.Error(err))
		return
	}

	token := e.client.Publish(e.topic, 0, false, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			e.errors.Add(1)
			e.log.Warn("publish detection event", zap.Error(token.Error()))
			return
		}
		e.published.Add(1)
	}()
}

// Stats snapshots publish counters.
func (e *MQTTEmitter) Stats() Stats {
	return Stats{
		Connected: e.client.IsConnected(),
		Published: e.published.Load(),
		Errors:    e.errors.Load(),
	}
}

// Close disconnects from the broker, allowing in-flight publishes a short
// grace period.
func (e *MQTTEmitter) Close() {
	e.client.Disconnect(250)
}
