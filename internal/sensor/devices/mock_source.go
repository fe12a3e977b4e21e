// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package devices

import (
	"context"
	"math"
	"time"

	"github.com/relabs-tech/accel_readout/internal/imu"
	"github.com/relabs-tech/accel_readout/internal/sensor"
)

type mockSource struct {
	start      time.Time
	now        func() time.Time
	capability *sensor.Capability
}

// NewMockSource creates a mock accelerometer that generates smooth changing
// values around 1 g on Z, as if the device lay flat and wobbled.
func NewMockSource() sensor.Device {
	return newMockSource(time.Now)
}

func newMockSource(now func() time.Time) *mockSource {
	return &mockSource{
		start: now(),
		now:   now,
		capability: &sensor.Capability{
			Kind:       sensor.KindAccelerometer,
			Name:       "mock accelerometer",
			Vendor:     "relabs",
			Resolution: 0.001,
			MaxRange:   2 * imu.StandardGravity,
		},
	}
}

func (m *mockSource) Capability() *sensor.Capability { return m.capability }

func (m *mockSource) Read(context.Context) (imu.Reading, sensor.Accuracy, error) {
	elapsed := m.now().Sub(m.start).Seconds()

	return imu.Reading{
		X: float32(0.5 * math.Sin(elapsed)),
		Y: float32(0.5 * math.Cos(elapsed*0.7)),
		Z: float32(imu.StandardGravity + 0.1*math.Sin(elapsed*3)),
	}, sensor.AccuracyHigh, nil
}

func (m *mockSource) Close() error { return nil }
