// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package devices

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/accel_readout/internal/config"
	"github.com/relabs-tech/accel_readout/internal/imu"
	"github.com/relabs-tech/accel_readout/internal/sensor"
)

type imuSource struct {
	mu         sync.Mutex // serializes SPI transactions
	imu        *mpu9250.MPU9250
	accelRange byte
	capability *sensor.Capability
}

// NewIMUSource initializes an MPU9250 over SPI and exposes its accelerometer.
func NewIMUSource(cfg *config.Config, logger *zap.SugaredLogger) (sensor.Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(cfg.IMUCSPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", cfg.IMUCSPin)
	}

	tr, err := mpu9250.NewSpiTransport(cfg.IMUSPIDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", cfg.IMUSPIDevice, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	if err := dev.SetAccelRange(cfg.IMUAccelRange); err != nil {
		return nil, fmt.Errorf("IMU: set accel range: %w", err)
	}
	fullScale := imu.FullScaleG[cfg.IMUAccelRange]
	logger.Infof("IMU: accelerometer range set to %d (±%.0fg)", cfg.IMUAccelRange, fullScale)

	if cfg.IMUSelfTest {
		testResult, err := dev.SelfTest()
		if err != nil {
			logger.Warnf("IMU: self-test failed: %v", err)
		} else {
			logger.Infof("IMU: self-test passed, accelerometer deviation X: %.2f%%, Y: %.2f%%, Z: %.2f%%",
				testResult.AccelDeviation.X, testResult.AccelDeviation.Y, testResult.AccelDeviation.Z)
		}
		if err := dev.Calibrate(); err != nil {
			logger.Warnf("IMU: calibration failed: %v", err)
		}
	}

	maxRange := fullScale * imu.StandardGravity
	return &imuSource{
		imu:        dev,
		accelRange: cfg.IMUAccelRange,
		capability: &sensor.Capability{
			Kind:       sensor.KindAccelerometer,
			Name:       "MPU9250 accelerometer (" + cfg.IMUSPIDevice + ")",
			Vendor:     "InvenSense",
			Resolution: maxRange / 32768.0,
			MaxRange:   maxRange,
		},
	}, nil
}

func (s *imuSource) Capability() *sensor.Capability { return s.capability }

// Read reads the three accelerometer axes and scales them to m/s².
func (s *imuSource) Read(context.Context) (imu.Reading, sensor.Accuracy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return imu.Reading{}, sensor.AccuracyUnreliable, fmt.Errorf("IMU accel X: %w", err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return imu.Reading{}, sensor.AccuracyUnreliable, fmt.Errorf("IMU accel Y: %w", err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return imu.Reading{}, sensor.AccuracyUnreliable, fmt.Errorf("IMU accel Z: %w", err)
	}

	raw := imu.AccelRaw{Ax: ax, Ay: ay, Az: az}
	return raw.ToReading(s.accelRange), sensor.AccuracyHigh, nil
}

func (s *imuSource) Close() error { return nil }
