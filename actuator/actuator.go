// Package actuator drives a linear actuator through the two control lines of
// an H-bridge.
package actuator

import (
	"errors"
	"fmt"
	"math"

	"github.com/hjkoskel/govattu"
)

// Default BCM pin numbers. Line A is the bridge's IN2 and line B its IN1.
const (
	DefaultPinA = 26
	DefaultPinB = 25
)

// Drive is the logical command issued to the H-bridge.
type Drive int

const (
	Stop Drive = iota
	Forward
	Reverse
)

func (d Drive) String() string {
	switch d {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return "stop"
	}
}

// Levels returns the levels of line A and line B for the drive.
// Both lines high is never produced.
func (d Drive) Levels() (a, b int) {
	switch d {
	case Forward:
		return 1, 0
	case Reverse:
		return 0, 1
	default:
		return 0, 0
	}
}

// Port is the interface for all H-bridge output implementations.
type Port interface {
	// Set drives both control lines to the levels of d.
	Set(d Drive) error

	// Release stops the actuator and releases any hardware resources.
	Release() error
}

// Config holds configuration for actuator output implementations.
type Config struct {
	Type string `yaml:"type"`  // "cdev", "gpiomem", "vattu", "none"
	Chip string `yaml:"chip"`  // gpiochip for "cdev", defaults to gpiochip0
	PinA *int   `yaml:"pin_a"` // line A (bridge IN2)
	PinB *int   `yaml:"pin_b"` // line B (bridge IN1)
}

// Pins returns the configured pins, falling back to the defaults.
func (c Config) Pins() (a, b int) {
	a, b = DefaultPinA, DefaultPinB
	if c.PinA != nil {
		a = *c.PinA
	}
	if c.PinB != nil {
		b = *c.PinB
	}
	return a, b
}

// New creates a Port based on the provided configuration.
func New(cfg Config) (Port, error) {
	a, b := cfg.Pins()
	if a == b {
		return nil, fmt.Errorf("pin_a and pin_b are both %d", a)
	}
	if a < 0 || b < 0 {
		return nil, fmt.Errorf("negative pin in %d,%d", a, b)
	}

	switch cfg.Type {
	case "cdev", "":
		return NewCDev(cfg.Chip, a, b)
	case "gpiomem":
		return NewGPIOMem(a, b)
	case "vattu":
		if a > math.MaxUint8 || b > math.MaxUint8 {
			return nil, fmt.Errorf("pin out of range for vattu: %d,%d", a, b)
		}
		hw, err := govattu.Open()
		if err != nil {
			return nil, fmt.Errorf("open gpio: %w", err)
		}
		return NewVattu(hw, uint8(a), uint8(b))
	case "none":
		return &Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown actuator type %q", cfg.Type)
	}
}

// last remembers the drive most recently written so backends can skip
// redundant hardware writes.
type last struct {
	drive Drive
	valid bool
}

func (l *last) same(d Drive) bool {
	return l.valid && l.drive == d
}

func (l *last) store(d Drive) {
	l.drive = d
	l.valid = true
}

// releaseErr combines the result of the final Stop write with the result of
// closing the hardware.
func releaseErr(stopErr, closeErr error) error {
	if stopErr != nil {
		stopErr = fmt.Errorf("stop on release: %w", stopErr)
	}
	return errors.Join(stopErr, closeErr)
}
