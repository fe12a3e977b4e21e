package display

import (
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// publishTimeout bounds how long SetText waits for the broker.
const publishTimeout = 2 * time.Second

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes each text update, retained, so late subscribers see the
// current readout.
type MQTT struct {
	client publisher
	topic  string
	logger *zap.SugaredLogger

	mu   sync.Mutex
	text string
}

// NewMQTT returns a surface publishing to topic on a connected client.
func NewMQTT(client mqtt.Client, topic string, logger *zap.SugaredLogger) *MQTT {
	return newMQTT(client, topic, logger)
}

func newMQTT(client publisher, topic string, logger *zap.SugaredLogger) *MQTT {
	logger.Infof("display: publishing readout to %s", topic)
	return &MQTT{client: client, topic: topic, logger: logger}
}

func (m *MQTT) SetText(text string) error {
	m.mu.Lock()
	m.text = text
	m.mu.Unlock()

	token := m.client.Publish(m.topic, 0, true, []byte(text))
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("display: MQTT publish (%s): timed out after %s", m.topic, publishTimeout)
	}
	if token.Error() != nil {
		return fmt.Errorf("display: MQTT publish (%s): %w", m.topic, token.Error())
	}
	return nil
}

func (m *MQTT) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

func (m *MQTT) Close() error { return nil }
