// Package display holds the text surfaces a readout can be rendered on.
package display

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/accel_readout/internal/config"
)

// Surface shows a block of text. SetText replaces whatever was shown before.
type Surface interface {
	SetText(text string) error
	Text() string
	Close() error
}

// Memory is a Surface that only remembers the text.
type Memory struct {
	mu      sync.Mutex
	text    string
	updates int
}

// NewMemory returns an empty Memory surface.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) SetText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	m.updates++
	return nil
}

func (m *Memory) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

// Updates returns how many times SetText was called.
func (m *Memory) Updates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates
}

func (m *Memory) Close() error { return nil }

// Open returns the surface selected by cfg.DisplayBackend. client is only
// used by the mqtt backend.
func Open(cfg *config.Config, client mqtt.Client, logger *zap.SugaredLogger) (Surface, error) {
	switch cfg.DisplayBackend {
	case "console":
		return NewConsole(os.Stdout), nil
	case "oled":
		return NewOLED(cfg.DisplayI2CBus, logger)
	case "web":
		return NewWeb(":"+strconv.Itoa(cfg.WebServerPort), logger)
	case "mqtt":
		if client == nil {
			return nil, fmt.Errorf("display: no MQTT client")
		}
		return NewMQTT(client, cfg.TopicDisplay, logger), nil
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown display backend %q", cfg.DisplayBackend)
	}
}
