// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/relabs-tech/accel_readout/internal/display"
	"github.com/relabs-tech/accel_readout/internal/imu"
	"github.com/relabs-tech/accel_readout/internal/sensor"
)

var (
	ErrNoSensorService = errors.New("sensor service unavailable")
	ErrNoSurface       = errors.New("display surface unavailable")
)

// State of the controller's subscription.
type State int

const (
	StateInactive State = iota
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "inactive"
}

// Controller shows accelerometer readings on a surface while its view is
// visible. It subscribes on OnBecomeVisible and unsubscribes on
// OnBecomeInvisible; readings arriving while inactive are dropped.
type Controller struct {
	svc     sensor.Service
	surface display.Surface
	logger  *zap.SugaredLogger
	rate    sensor.RateHint

	// lifecycleMu serializes Initialize/OnBecomeVisible/OnBecomeInvisible.
	// It is held across Subscribe/Unsubscribe, which may wait for event
	// delivery, so OnReading must never take it.
	lifecycleMu sync.Mutex
	initialized bool

	// mu guards state and accelerometer. OnReading holds it while writing
	// to the surface, so once state is Inactive no further write happens.
	mu            sync.Mutex
	state         State
	accelerometer *sensor.Capability
}

// Option configures a Controller.
type Option func(*Controller)

// WithRate overrides the sampling-rate hint (sensor.RateNormal by default).
func WithRate(rate sensor.RateHint) Option {
	return func(c *Controller) { c.rate = rate }
}

// NewController returns an inactive controller. A missing service or
// surface is a startup fault.
func NewController(svc sensor.Service, surface display.Surface, logger *zap.SugaredLogger, opts ...Option) (*Controller, error) {
	if svc == nil {
		return nil, ErrNoSensorService
	}
	if surface == nil {
		return nil, ErrNoSurface
	}
	c := &Controller{svc: svc, surface: surface, logger: logger, rate: sensor.RateNormal}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Initialize resolves the default accelerometer. A device without one is not
// an error: the controller stays inactive and the surface stays empty.
// Calls after the first do nothing.
func (c *Controller) Initialize() error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.initialized {
		return nil
	}
	c.initialized = true

	accel := c.svc.DefaultSensor(sensor.KindAccelerometer)
	c.mu.Lock()
	c.accelerometer = accel
	c.mu.Unlock()
	if accel == nil {
		c.logger.Info("controller: no accelerometer on this device, display will stay empty")
		return nil
	}
	c.logger.Infof("controller: using %q", accel.Name)
	return nil
}

// OnBecomeVisible subscribes to the accelerometer at the configured rate.
func (c *Controller) OnBecomeVisible() {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.accelerometer == nil || c.State() == StateActive {
		return
	}

	// Active before subscribing so the first event is not dropped.
	c.setState(StateActive)
	if !c.svc.Subscribe(c, c.accelerometer, c.rate) {
		c.setState(StateInactive)
		c.logger.Warnf("controller: subscribe to %q rejected", c.accelerometer.Name)
		return
	}
	c.logger.Debug("controller: active")
}

// OnBecomeInvisible drops the subscription. It is safe to call when nothing
// is subscribed.
func (c *Controller) OnBecomeInvisible() {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	wasActive := c.State() == StateActive
	c.setState(StateInactive)
	c.svc.Unsubscribe(c)
	if wasActive {
		c.logger.Debug("controller: inactive")
	}
}

// OnReading implements sensor.Listener.
func (c *Controller) OnReading(ev sensor.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive || c.accelerometer == nil || ev.Capability != c.accelerometer {
		return
	}
	if err := c.surface.SetText(imu.FormatReading(ev.Reading)); err != nil {
		c.logger.Warnf("controller: display update failed: %v", err)
	}
}

// OnAccuracyChanged implements sensor.Listener. Accuracy is not shown.
func (c *Controller) OnAccuracyChanged(*sensor.Capability, sensor.Accuracy) {}

// State returns whether the controller is subscribed.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
