// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"fmt"
	"image"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"
)

const (
	oledWidth  = 128
	oledHeight = 64
	lineHeight = 13 // basicfont.Face7x13
)

// OLED renders text on a 128x64 SSD1306 over I2C, one line per text line.
type OLED struct {
	mu   sync.Mutex
	bus  i2c.BusCloser
	dev  *ssd1306.Dev
	text string
}

// NewOLED opens the I2C bus (empty name picks the first one) and the display
// on it, and blanks the screen.
func NewOLED(busName string, logger *zap.SugaredLogger) (*OLED, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("display: periph host init: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("display: open I2C bus %q: %w", busName, err)
	}

	opts := ssd1306.DefaultOpts
	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("display: initialize SSD1306: %w", err)
	}
	logger.Infof("display: SSD1306 initialized on I2C bus %q", busName)

	o := &OLED{bus: bus, dev: dev}
	if err := o.draw(renderText("")); err != nil {
		logger.Warnf("display: error blanking screen: %v", err)
	}
	return o, nil
}

func (o *OLED) SetText(text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.text = text
	return o.draw(renderText(text))
}

func (o *OLED) Text() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.text
}

// Close turns the panel off and releases the bus.
func (o *OLED) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return multierr.Append(o.dev.Halt(), o.bus.Close())
}

func (o *OLED) draw(img *image1bit.VerticalLSB) error {
	return o.dev.Draw(o.dev.Bounds(), img, image.Point{})
}

// renderText draws each line of text on a blank 1-bit image. Lines that do
// not fit are dropped.
func renderText(text string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, oledWidth, oledHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	if text == "" {
		return img
	}
	for i, line := range strings.Split(text, "\n") {
		y := (i + 1) * lineHeight
		if y > oledHeight {
			break
		}
		drawer.Dot = fixed.P(0, y)
		drawer.DrawString(line)
	}
	return img
}
