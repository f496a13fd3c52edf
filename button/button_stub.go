//go:build !linux

package button

import "errors"

var ErrNotSupported = errors.New("button not supported on this platform")

// Config holds configuration for the push-button.
type Config struct {
	Chip string `yaml:"chip"`
	Pin  *int   `yaml:"pin"`
}

// Button is a stub for non-linux platforms.
type Button struct{}

// New returns an error on non-linux platforms.
func New(cfg Config, onPress func()) (*Button, error) {
	if cfg.Pin == nil {
		return nil, nil
	}
	return nil, ErrNotSupported
}

func (b *Button) Release() error { return nil }
