// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// Sensor
	SensorBackend string // "mpu9250", "serial", "mqtt", "mock" or "none"
	SensorRate    string // "normal", "ui", "game" or "fastest"

	// IMU Hardware (mpu9250 backend)
	IMUSPIDevice string
	IMUCSPin     string
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	IMUSelfTest   bool

	// Serial accelerometer (serial backend)
	SerialPort     string
	SerialBaudRate int

	// MQTT
	MQTTBroker   string
	MQTTClientID string

	// Topics
	TopicAccel      string
	TopicVisibility string
	TopicDisplay    string

	// Display
	DisplayBackend string // "console", "oled", "web", "mqtt" or "memory"
	DisplayI2CBus  string // i2creg bus name, "" for the first bus
	WebServerPort  int

	// Lifecycle
	VisibilitySource string // "signal" or "mqtt"
	StartVisible     bool
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal/Get.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a configuration that runs without hardware: mock sensor,
// console display, visibility driven by signals.
func Default() *Config {
	return &Config{
		SensorBackend:    "mock",
		SensorRate:       "normal",
		IMUSPIDevice:     "/dev/spidev0.0",
		IMUCSPin:         "8",
		SerialBaudRate:   115200,
		MQTTBroker:       "tcp://localhost:1883",
		MQTTClientID:     "accel-readout",
		TopicAccel:       "readout/accel",
		TopicVisibility:  "readout/visibility",
		TopicDisplay:     "readout/display",
		DisplayBackend:   "console",
		WebServerPort:    8080,
		VisibilitySource: "signal",
		StartVisible:     true,
	}
}

// Load reads the configuration file and returns a Config struct.
// Keys missing from the file keep their Default() value.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines from r. Empty lines and lines starting with '#'
// are skipped.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Sensor
	case "SENSOR_BACKEND":
		c.SensorBackend = value
	case "SENSOR_RATE":
		c.SensorRate = value

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)
	case "IMU_SELF_TEST":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_SELF_TEST %q: %w", value, err)
		}
		c.IMUSelfTest = v

	// Serial
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_BAUD_RATE %q: %w", value, err)
		}
		c.SerialBaudRate = rate

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value

	// Topics
	case "TOPIC_ACCEL":
		c.TopicAccel = value
	case "TOPIC_VISIBILITY":
		c.TopicVisibility = value
	case "TOPIC_DISPLAY":
		c.TopicDisplay = value

	// Display
	case "DISPLAY_BACKEND":
		c.DisplayBackend = value
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Lifecycle
	case "VISIBILITY_SOURCE":
		c.VisibilitySource = value
	case "START_VISIBLE":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid START_VISIBLE %q: %w", value, err)
		}
		c.StartVisible = v

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that the fields required by the selected backends are set.
func (c *Config) validate() error {
	switch c.SensorBackend {
	case "mock", "none":
	case "mpu9250":
		if c.IMUSPIDevice == "" {
			return fmt.Errorf("IMU_SPI_DEVICE is required for SENSOR_BACKEND=mpu9250")
		}
		if c.IMUCSPin == "" {
			return fmt.Errorf("IMU_CS_PIN is required for SENSOR_BACKEND=mpu9250")
		}
	case "serial":
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required for SENSOR_BACKEND=serial")
		}
		if c.SerialBaudRate <= 0 {
			return fmt.Errorf("SERIAL_BAUD_RATE must be positive, got %d", c.SerialBaudRate)
		}
	case "mqtt":
		if c.TopicAccel == "" {
			return fmt.Errorf("TOPIC_ACCEL is required for SENSOR_BACKEND=mqtt")
		}
	default:
		return fmt.Errorf("unknown SENSOR_BACKEND %q", c.SensorBackend)
	}

	switch c.SensorRate {
	case "normal", "ui", "game", "fastest":
	default:
		return fmt.Errorf("SENSOR_RATE must be normal, ui, game or fastest, got %q", c.SensorRate)
	}

	switch c.DisplayBackend {
	case "console", "oled", "memory":
	case "web":
		if c.WebServerPort <= 0 || c.WebServerPort > 65535 {
			return fmt.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", c.WebServerPort)
		}
	case "mqtt":
		if c.TopicDisplay == "" {
			return fmt.Errorf("TOPIC_DISPLAY is required for DISPLAY_BACKEND=mqtt")
		}
	default:
		return fmt.Errorf("unknown DISPLAY_BACKEND %q", c.DisplayBackend)
	}

	switch c.VisibilitySource {
	case "signal":
	case "mqtt":
		if c.TopicVisibility == "" {
			return fmt.Errorf("TOPIC_VISIBILITY is required for VISIBILITY_SOURCE=mqtt")
		}
	default:
		return fmt.Errorf("unknown VISIBILITY_SOURCE %q", c.VisibilitySource)
	}

	if c.UsesMQTT() && c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	return nil
}

// UsesMQTT reports whether any selected backend needs the MQTT broker.
func (c *Config) UsesMQTT() bool {
	return c.SensorBackend == "mqtt" || c.DisplayBackend == "mqtt" || c.VisibilitySource == "mqtt"
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
