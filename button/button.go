//go:build linux

// Package button reports presses of a local push-button wired to a GPIO
// line, used as a manual door-open trigger.
package button

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Config holds configuration for the push-button.
type Config struct {
	Chip string `yaml:"chip"`
	Pin  *int   `yaml:"pin"` // nil = no button
}

// Button watches one pulled-up input line for falling edges.
type Button struct {
	line    *gpiocdev.Line
	onPress func()
}

// New requests the button line. Returns nil if no pin is configured.
func New(cfg Config, onPress func()) (*Button, error) {
	if cfg.Pin == nil {
		return nil, nil
	}
	if cfg.Chip == "" {
		cfg.Chip = "gpiochip0"
	}

	b := &Button{onPress: onPress}

	var err error
	b.line, err = gpiocdev.RequestLine(cfg.Chip, *cfg.Pin,
		gpiocdev.WithConsumer("doorcloser-button"),
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithDebounce(20*time.Millisecond),
		gpiocdev.WithEventHandler(b.handleEvent))
	if err != nil {
		return nil, fmt.Errorf("request button line %d: %w", *cfg.Pin, err)
	}
	return b, nil
}

func (b *Button) handleEvent(evt gpiocdev.LineEvent) {
	if evt.Type != gpiocdev.LineEventFallingEdge {
		return
	}
	if b.onPress != nil {
		b.onPress()
	}
}

// Release releases the GPIO line.
func (b *Button) Release() error {
	if b.line == nil {
		return nil
	}
	return b.line.Close()
}
