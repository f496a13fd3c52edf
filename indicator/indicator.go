// Package indicator shows the closer's phase and broker link on LEDs or
// neopixels.
package indicator

// Indicator is the interface for status indicator implementations.
type Indicator interface {
	// Initializing shows that the initialization stroke is running.
	Initializing()

	// Ready shows that a close request will be accepted.
	Ready()

	// Closing shows that a closing cycle is in progress.
	Closing()

	// Connected shows that the broker link is up.
	Connected()

	// ConnectionLost shows that the broker link is down.
	ConnectionLost()

	// Shutdown sets the indicator to shutdown state.
	Shutdown()

	// Release releases any hardware resources.
	Release() error
}

// Config holds configuration for indicator implementations.
type Config struct {
	// GPIO LED pins (nil = not configured)
	ReadyPin *uint8 `yaml:"ready_pin"`
	BusyPin  *uint8 `yaml:"busy_pin"`
	FaultPin *uint8 `yaml:"fault_pin"`

	// Neopixel pipe path (empty = not configured)
	NeopixelPipe string `yaml:"neopixel_pipe"`
}

// New creates an Indicator based on the provided configuration.
// Returns a Multi indicator if both GPIO and Neopixel are configured.
func New(cfg Config) (Indicator, error) {
	var indicators []Indicator

	if cfg.ReadyPin != nil || cfg.BusyPin != nil || cfg.FaultPin != nil {
		gpio, err := NewGPIO(cfg.ReadyPin, cfg.BusyPin, cfg.FaultPin)
		if err != nil {
			return nil, err
		}
		indicators = append(indicators, gpio)
	}

	if cfg.NeopixelPipe != "" {
		neo, err := NewNeopixel(cfg.NeopixelPipe)
		if err != nil {
			return nil, err
		}
		indicators = append(indicators, neo)
	}

	return Combine(indicators...), nil
}

// Combine returns a single Indicator driving all of indicators.
func Combine(indicators ...Indicator) Indicator {
	switch len(indicators) {
	case 0:
		return &Noop{}
	case 1:
		return indicators[0]
	default:
		return &Multi{indicators: indicators}
	}
}
