// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/relabs-tech/accel_readout/internal/config"
	"github.com/relabs-tech/accel_readout/internal/display"
	"github.com/relabs-tech/accel_readout/internal/sensor"
	"github.com/relabs-tech/accel_readout/internal/sensor/devices"
)

// RunReadout wires the configured accelerometer and display to a Controller
// and drives it from the configured visibility source until ctx is done.
func RunReadout(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (err error) {
	var client mqtt.Client
	if cfg.UsesMQTT() {
		client, err = connectMQTT(cfg, logger)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
	}

	dev, err := devices.Open(cfg, client, logger)
	if err != nil {
		return fmt.Errorf("open sensor: %w", err)
	}
	manager := sensor.NewManager(logger)
	if dev != nil {
		manager.Register(dev)
	}
	defer func() { err = multierr.Append(err, manager.Close()) }()

	surface, err := display.Open(cfg, client, logger)
	if err != nil {
		return fmt.Errorf("open display: %w", err)
	}
	defer func() { err = multierr.Append(err, surface.Close()) }()

	rate, err := sensor.ParseRateHint(cfg.SensorRate)
	if err != nil {
		return err
	}
	controller, err := NewController(manager, surface, logger, WithRate(rate))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var events <-chan Visibility
	switch cfg.VisibilitySource {
	case "mqtt":
		events, err = MQTTVisibility(ctx, client, cfg.TopicVisibility, logger)
		if err != nil {
			return err
		}
	default:
		events = SignalVisibility(ctx)
		logger.Info("host: send SIGUSR1 to show the readout, SIGUSR2 to hide it")
	}
	if cfg.StartVisible {
		events = withInitial(ctx, Visible, events)
	}

	return NewHost(controller, logger).Run(ctx, events)
}

func connectMQTT(cfg *config.Config, logger *zap.SugaredLogger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect %s: %w", cfg.MQTTBroker, token.Error())
	}
	logger.Infof("connected to MQTT broker at %s", cfg.MQTTBroker)
	return client, nil
}
