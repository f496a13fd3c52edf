//go:build !linux

package actuator

import "errors"

var ErrNotSupported = errors.New("gpio backend not supported on this platform")

// CDev is a stub for non-linux platforms.
type CDev struct{}

// NewCDev returns an error on non-linux platforms.
func NewCDev(chip string, pinA, pinB int) (*CDev, error) {
	return nil, ErrNotSupported
}

func (c *CDev) Set(d Drive) error { return ErrNotSupported }
func (c *CDev) Release() error    { return nil }

// GPIOMem is a stub for non-linux platforms.
type GPIOMem struct{}

// NewGPIOMem returns an error on non-linux platforms.
func NewGPIOMem(pinA, pinB int) (*GPIOMem, error) {
	return nil, ErrNotSupported
}

func (g *GPIOMem) Set(d Drive) error { return ErrNotSupported }
func (g *GPIOMem) Release() error    { return nil }
