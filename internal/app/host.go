package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Visibility is a message from whatever owns the view's visibility.
type Visibility int

const (
	Invisible Visibility = iota
	Visible
)

func (v Visibility) String() string {
	if v == Visible {
		return "visible"
	}
	return "invisible"
}

// ParseVisibility accepts "visible"/"invisible" (also "resume"/"pause",
// "on"/"off"), case-insensitively.
func ParseVisibility(s string) (Visibility, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "visible", "resume", "on":
		return Visible, nil
	case "invisible", "pause", "off":
		return Invisible, nil
	default:
		return Invisible, fmt.Errorf("unknown visibility %q", s)
	}
}

// Lifecycle is what a Host drives.
type Lifecycle interface {
	Initialize() error
	OnBecomeVisible()
	OnBecomeInvisible()
}

// Host delivers visibility messages to a Lifecycle.
type Host struct {
	target Lifecycle
	logger *zap.SugaredLogger
}

// NewHost returns a Host driving target.
func NewHost(target Lifecycle, logger *zap.SugaredLogger) *Host {
	return &Host{target: target, logger: logger}
}

// Run initializes the target once and then maps every message to a
// visibility transition until ctx is done or events is closed. The target is
// left invisible on return.
func (h *Host) Run(ctx context.Context, events <-chan Visibility) error {
	if err := h.target.Initialize(); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer h.target.OnBecomeInvisible()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("host: shutting down")
			return nil
		case v, ok := <-events:
			if !ok {
				h.logger.Info("host: visibility source closed")
				return nil
			}
			h.logger.Debugf("host: %s", v)
			switch v {
			case Visible:
				h.target.OnBecomeVisible()
			case Invisible:
				h.target.OnBecomeInvisible()
			}
		}
	}
}

// SignalVisibility turns SIGUSR1 into Visible and SIGUSR2 into Invisible.
// The channel closes when ctx is done.
func SignalVisibility(ctx context.Context) <-chan Visibility {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGUSR1, syscall.SIGUSR2)

	out := make(chan Visibility)
	go func() {
		defer close(out)
		defer signal.Stop(sigCh)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigCh:
				v := Invisible
				if sig == syscall.SIGUSR1 {
					v = Visible
				}
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// MQTTVisibility subscribes to topic and forwards "visible"/"invisible"
// payloads. Unknown payloads are logged and dropped.
func MQTTVisibility(ctx context.Context, client mqtt.Client, topic string, logger *zap.SugaredLogger) (<-chan Visibility, error) {
	out := make(chan Visibility, 1)
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		forwardVisibility(ctx, out, msg.Payload(), logger)
	})
	token.Wait()
	if token.Error() != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	logger.Infof("host: visibility from MQTT topic %s", topic)

	go func() {
		<-ctx.Done()
		client.Unsubscribe(topic).Wait()
	}()
	return out, nil
}

func forwardVisibility(ctx context.Context, out chan<- Visibility, payload []byte, logger *zap.SugaredLogger) {
	v, err := ParseVisibility(string(payload))
	if err != nil {
		logger.Warnf("host: %v", err)
		return
	}
	select {
	case out <- v:
	case <-ctx.Done():
	}
}

// withInitial emits first, then everything from src.
func withInitial(ctx context.Context, first Visibility, src <-chan Visibility) <-chan Visibility {
	out := make(chan Visibility)
	go func() {
		defer close(out)
		select {
		case out <- first:
		case <-ctx.Done():
			return
		}
		for {
			select {
			case v, ok := <-src:
				if !ok {
					return
				}
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
