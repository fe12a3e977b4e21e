package devices

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/accel_readout/internal/config"
	"github.com/relabs-tech/accel_readout/internal/sensor"
)

// Open returns the accelerometer selected by cfg.SensorBackend. The "none"
// backend returns a nil device: the host has no accelerometer.
// client is only used by the mqtt backend.
func Open(cfg *config.Config, client mqtt.Client, logger *zap.SugaredLogger) (sensor.Device, error) {
	switch cfg.SensorBackend {
	case "mpu9250":
		return NewIMUSource(cfg, logger)
	case "serial":
		return NewSerialSource(cfg, logger)
	case "mqtt":
		if client == nil {
			return nil, fmt.Errorf("MQTT IMU: no MQTT client")
		}
		return NewMQTTSource(client, cfg.TopicAccel, logger)
	case "mock":
		return NewMockSource(), nil
	case "none":
		logger.Info("sensor: no accelerometer backend configured")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown sensor backend %q", cfg.SensorBackend)
	}
}
