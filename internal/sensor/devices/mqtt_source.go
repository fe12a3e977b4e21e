// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package devices

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/accel_readout/internal/imu"
	"github.com/relabs-tech/accel_readout/internal/sensor"
)

// accelPayload is the JSON schema expected on the accel topic. Accuracy is
// optional and defaults to high.
type accelPayload struct {
	X        float32          `json:"x"`
	Y        float32          `json:"y"`
	Z        float32          `json:"z"`
	Accuracy *sensor.Accuracy `json:"accuracy,omitempty"`
}

// mqttSource is a remote accelerometer that publishes its samples over MQTT.
type mqttSource struct {
	client     mqtt.Client
	topic      string
	logger     *zap.SugaredLogger
	capability *sensor.Capability

	mu       sync.Mutex
	latest   imu.Reading
	accuracy sensor.Accuracy
	have     bool
}

// NewMQTTSource subscribes to topic on an already connected client.
func NewMQTTSource(client mqtt.Client, topic string, logger *zap.SugaredLogger) (sensor.Device, error) {
	s := newMQTTSource(client, topic, logger)

	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		s.handle(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return nil, fmt.Errorf("MQTT IMU: subscribe %s: %w", topic, token.Error())
	}
	logger.Infof("MQTT IMU: subscribed to %s", topic)
	return s, nil
}

func newMQTTSource(client mqtt.Client, topic string, logger *zap.SugaredLogger) *mqttSource {
	return &mqttSource{
		client: client,
		topic:  topic,
		logger: logger,
		capability: &sensor.Capability{
			Kind:     sensor.KindAccelerometer,
			Name:     "remote accelerometer (" + topic + ")",
			Vendor:   "mqtt",
			MaxRange: 16 * imu.StandardGravity,
		},
	}
}

func (s *mqttSource) handle(payload []byte) {
	var p accelPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.logger.Warnf("MQTT IMU: %s unmarshal error: %v", s.topic, err)
		return
	}
	accuracy := sensor.AccuracyHigh
	if p.Accuracy != nil {
		accuracy = *p.Accuracy
	}

	s.mu.Lock()
	s.latest = imu.Reading{X: p.X, Y: p.Y, Z: p.Z}
	s.accuracy = accuracy
	s.have = true
	s.mu.Unlock()
}

func (s *mqttSource) Capability() *sensor.Capability { return s.capability }

func (s *mqttSource) Read(context.Context) (imu.Reading, sensor.Accuracy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.have {
		return imu.Reading{}, sensor.AccuracyUnreliable, ErrNoSample
	}
	return s.latest, s.accuracy, nil
}

// Close drops the topic subscription; the client itself is owned by the caller.
func (s *mqttSource) Close() error {
	if s.client == nil {
		return nil
	}
	token := s.client.Unsubscribe(s.topic)
	token.Wait()
	return token.Error()
}
