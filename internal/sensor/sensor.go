// Package sensor is the sensor service: capability lookup, listener
// subscription and event delivery for the devices attached to this host.
package sensor

import (
	"context"
	"time"

	"github.com/relabs-tech/accel_readout/internal/imu"
)

// Kind identifies a type of motion sensor.
type Kind int

const (
	KindAccelerometer Kind = iota + 1
	KindGyroscope
	KindMagnetometer
)

func (k Kind) String() string {
	switch k {
	case KindAccelerometer:
		return "accelerometer"
	case KindGyroscope:
		return "gyroscope"
	case KindMagnetometer:
		return "magnetometer"
	default:
		return "unknown"
	}
}

// Capability is the handle of one physical sensor. Handles are compared by
// pointer: two capabilities are the same sensor only if they are the same value.
type Capability struct {
	Kind       Kind
	Name       string
	Vendor     string
	Resolution float64 // smallest step, in the reading unit
	MaxRange   float64 // absolute full scale, in the reading unit
}

// Accuracy is the confidence a device reports for its readings.
type Accuracy int

const (
	AccuracyUnreliable Accuracy = iota
	AccuracyLow
	AccuracyMedium
	AccuracyHigh
)

func (a Accuracy) String() string {
	switch a {
	case AccuracyLow:
		return "low"
	case AccuracyMedium:
		return "medium"
	case AccuracyHigh:
		return "high"
	default:
		return "unreliable"
	}
}

// Event is one reading delivered to a listener.
type Event struct {
	Capability *Capability
	Reading    imu.Reading
	Accuracy   Accuracy
	Timestamp  time.Time
}

// Listener receives events for the capabilities it subscribed to.
type Listener interface {
	OnReading(ev Event)
	OnAccuracyChanged(c *Capability, accuracy Accuracy)
}

// Service resolves capabilities and manages listener subscriptions.
type Service interface {
	// DefaultSensor returns the default sensor of the kind, or nil when the
	// host has none.
	DefaultSensor(kind Kind) *Capability
	// Subscribe registers l for events from c at roughly the hinted rate.
	Subscribe(l Listener, c *Capability, rate RateHint) bool
	// Unsubscribe removes every subscription of l. No event reaches l after
	// it returns.
	Unsubscribe(l Listener)
}

// Device is the driver side of a sensor: something the Manager can poll.
type Device interface {
	Capability() *Capability
	Read(ctx context.Context) (imu.Reading, Accuracy, error)
	Close() error
}
