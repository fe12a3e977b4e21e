package display

import (
	"io"
	"sync"
)

// ANSI escape codes.
const (
	cursorHome  = "\033[H"
	clearScreen = "\033[2J"
)

// Console writes each text update as a fresh frame on a terminal.
type Console struct {
	mu   sync.Mutex
	w    io.Writer
	text string
}

// NewConsole returns a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) SetText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	_, err := io.WriteString(c.w, cursorHome+clearScreen+text+"\n")
	return err
}

func (c *Console) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

func (c *Console) Close() error { return nil }
