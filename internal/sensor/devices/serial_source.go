// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package devices

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
	"go.uber.org/zap"

	"github.com/relabs-tech/accel_readout/internal/config"
	"github.com/relabs-tech/accel_readout/internal/imu"
	"github.com/relabs-tech/accel_readout/internal/sensor"
)

// ErrNoSample is returned by streaming devices before their first sample.
var ErrNoSample = errors.New("no sample received yet")

// TypeACC is the sentence type of VectorNav acceleration output ($VNACC).
const TypeACC = "ACC"

// ACC is an acceleration sentence: three axes in m/s².
type ACC struct {
	nmea.BaseSentence
	X float64
	Y float64
	Z float64
}

func parseACC(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	p.AssertType(TypeACC)
	return ACC{
		BaseSentence: s,
		X:            p.Float64(0, "x"),
		Y:            p.Float64(1, "y"),
		Z:            p.Float64(2, "z"),
	}, p.Err()
}

// serialSource reads acceleration sentences streamed by an IMU on a serial
// port and keeps the latest one.
type serialSource struct {
	port       io.ReadCloser
	parser     nmea.SentenceParser
	logger     *zap.SugaredLogger
	capability *sensor.Capability
	done       chan struct{}

	mu     sync.Mutex
	latest imu.Reading
	have   bool
}

// NewSerialSource opens the configured serial port and starts reading $VNACC
// sentences from it.
func NewSerialSource(cfg *config.Config, logger *zap.SugaredLogger) (sensor.Device, error) {
	serialOpts := serial.OpenOptions{
		PortName:              cfg.SerialPort,
		BaudRate:              uint(cfg.SerialBaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return nil, fmt.Errorf("serial IMU: open %s: %w", cfg.SerialPort, err)
	}
	logger.Infof("serial IMU: port opened on %s at %d baud", serialOpts.PortName, serialOpts.BaudRate)

	return newSerialSource(port, "serial accelerometer ("+cfg.SerialPort+")", logger), nil
}

func newSerialSource(port io.ReadCloser, name string, logger *zap.SugaredLogger) *serialSource {
	s := &serialSource{
		port: port,
		parser: nmea.SentenceParser{
			CustomParsers: map[string]nmea.ParserFunc{TypeACC: parseACC},
		},
		logger: logger,
		capability: &sensor.Capability{
			Kind:       sensor.KindAccelerometer,
			Name:       name,
			Vendor:     "VectorNav",
			Resolution: 0.001,
			MaxRange:   16 * imu.StandardGravity,
		},
		done: make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *serialSource) readLoop() {
	defer close(s.done)

	reader := bufio.NewReader(s.port)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				s.logger.Warnf("serial IMU: read error: %v", err)
			}
			return
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := s.parser.Parse(line)
		if err != nil {
			// noisy line or partial sentence
			s.logger.Debugf("serial IMU: parse error: %v (line: %q)", err, line)
			continue
		}

		acc, ok := sentence.(ACC)
		if !ok {
			continue
		}
		s.mu.Lock()
		s.latest = imu.Reading{X: float32(acc.X), Y: float32(acc.Y), Z: float32(acc.Z)}
		s.have = true
		s.mu.Unlock()
	}
}

func (s *serialSource) Capability() *sensor.Capability { return s.capability }

func (s *serialSource) Read(context.Context) (imu.Reading, sensor.Accuracy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.have {
		return imu.Reading{}, sensor.AccuracyUnreliable, ErrNoSample
	}
	return s.latest, sensor.AccuracyHigh, nil
}

// Close closes the port and waits for the reader to stop.
func (s *serialSource) Close() error {
	err := s.port.Close()
	<-s.done
	return err
}
