package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestParse(t *testing.T) {
	t.Run("defaults when empty", func(t *testing.T) {
		cfg, err := Parse(strings.NewReader("# nothing here\n\n"))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cfg, test.ShouldResemble, Default())
	})

	t.Run("reads every key", func(t *testing.T) {
		in := `
SENSOR_BACKEND=mpu9250
SENSOR_RATE = game
IMU_SPI_DEVICE=/dev/spidev6.0
IMU_CS_PIN=18
IMU_ACCEL_RANGE=2
IMU_SELF_TEST=true
MQTT_BROKER=tcp://broker:1883
MQTT_CLIENT_ID=readout-1
TOPIC_DISPLAY=readout/text
DISPLAY_BACKEND=mqtt
DISPLAY_I2C_BUS=/dev/i2c-1
VISIBILITY_SOURCE=mqtt
TOPIC_VISIBILITY=readout/vis
START_VISIBLE=false
`
		cfg, err := Parse(strings.NewReader(in))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cfg.SensorBackend, test.ShouldEqual, "mpu9250")
		test.That(t, cfg.SensorRate, test.ShouldEqual, "game")
		test.That(t, cfg.IMUSPIDevice, test.ShouldEqual, "/dev/spidev6.0")
		test.That(t, cfg.IMUCSPin, test.ShouldEqual, "18")
		test.That(t, cfg.IMUAccelRange, test.ShouldEqual, byte(2))
		test.That(t, cfg.IMUSelfTest, test.ShouldBeTrue)
		test.That(t, cfg.MQTTBroker, test.ShouldEqual, "tcp://broker:1883")
		test.That(t, cfg.MQTTClientID, test.ShouldEqual, "readout-1")
		test.That(t, cfg.TopicDisplay, test.ShouldEqual, "readout/text")
		test.That(t, cfg.DisplayBackend, test.ShouldEqual, "mqtt")
		test.That(t, cfg.DisplayI2CBus, test.ShouldEqual, "/dev/i2c-1")
		test.That(t, cfg.VisibilitySource, test.ShouldEqual, "mqtt")
		test.That(t, cfg.TopicVisibility, test.ShouldEqual, "readout/vis")
		test.That(t, cfg.StartVisible, test.ShouldBeFalse)
		test.That(t, cfg.UsesMQTT(), test.ShouldBeTrue)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		for _, in := range []string{
			"NOT_A_PAIR",
			"UNKNOWN_KEY=1",
			"IMU_ACCEL_RANGE=4",
			"IMU_ACCEL_RANGE=x",
			"SENSOR_BACKEND=lidar",
			"SENSOR_RATE=turbo",
			"DISPLAY_BACKEND=hologram",
			"SENSOR_BACKEND=serial",
			"DISPLAY_BACKEND=web\nWEB_SERVER_PORT=0",
			"START_VISIBLE=maybe",
			"VISIBILITY_SOURCE=mqtt\nMQTT_BROKER=",
		} {
			_, err := Parse(strings.NewReader(in))
			test.That(t, err, test.ShouldNotBeNil)
		}
	})
}

func TestLoadAndGlobal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readout_config.txt")
	err := os.WriteFile(path, []byte("SENSOR_BACKEND=none\nDISPLAY_BACKEND=memory\n"), 0o600)
	test.That(t, err, test.ShouldBeNil)

	_, err = Load(filepath.Join(t.TempDir(), "missing.txt"))
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, InitGlobal(path), test.ShouldBeNil)
	cfg := Get()
	test.That(t, cfg, test.ShouldNotBeNil)
	test.That(t, cfg.SensorBackend, test.ShouldEqual, "none")
	test.That(t, cfg.DisplayBackend, test.ShouldEqual, "memory")
}
