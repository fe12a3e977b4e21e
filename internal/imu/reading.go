// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"strconv"
	"strings"
)

// StandardGravity in m/s².
const StandardGravity = 9.80665

// Reading is a single accelerometer sample in m/s² along the device axes.
type Reading struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// AccelRaw is a raw accelerometer sample in sensor counts, as read from the chip.
type AccelRaw struct {
	Ax int16 `json:"ax"`
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`
}

// FullScaleG maps an accelerometer range setting (0-3) to its full scale in g.
var FullScaleG = []float64{2, 4, 8, 16}

// ToReading scales raw counts to m/s² for the given range setting (0=±2g .. 3=±16g).
func (r AccelRaw) ToReading(rangeSetting byte) Reading {
	scale := FullScaleG[rangeSetting] * StandardGravity / 32768.0
	return Reading{
		X: float32(float64(r.Ax) * scale),
		Y: float32(float64(r.Ay) * scale),
		Z: float32(float64(r.Az) * scale),
	}
}

// FormatReading renders a reading as three lines: "X: x\nY: y\nZ: z".
func FormatReading(r Reading) string {
	var b strings.Builder
	b.WriteString("X: ")
	b.WriteString(FormatAxis(r.X))
	b.WriteString("\nY: ")
	b.WriteString(FormatAxis(r.Y))
	b.WriteString("\nZ: ")
	b.WriteString(FormatAxis(r.Z))
	return b.String()
}

// FormatAxis prints the shortest decimal that round-trips v as a float32.
// Integral values keep a trailing ".0".
func FormatAxis(v float32) string {
	s := strconv.FormatFloat(float64(v), 'f', -1, 32)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}
