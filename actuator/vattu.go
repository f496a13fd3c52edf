package actuator

import (
	"fmt"

	"github.com/hjkoskel/govattu"
)

// Vattu implements Port using memory-mapped BCM GPIO registers.
type Vattu struct {
	hw   govattu.Vattu
	pinA uint8
	pinB uint8
	last last
}

// NewVattu creates a new register-level H-bridge output.
func NewVattu(hw govattu.Vattu, pinA, pinB uint8) (*Vattu, error) {
	hw.PinMode(pinA, govattu.ALToutput)
	hw.PinMode(pinB, govattu.ALToutput)

	v := &Vattu{
		hw:   hw,
		pinA: pinA,
		pinB: pinB,
	}

	// Start stopped
	if err := v.Set(Stop); err != nil {
		return nil, fmt.Errorf("stop on open: %w", err)
	}
	return v, nil
}

// Set implements Port.Set.
func (v *Vattu) Set(d Drive) error {
	if v.last.same(d) {
		return nil
	}
	a, b := d.Levels()
	// Clear before set so both lines are never high together.
	if a == 0 {
		v.hw.PinClear(v.pinA)
	}
	if b == 0 {
		v.hw.PinClear(v.pinB)
	}
	if a == 1 {
		v.hw.PinSet(v.pinA)
	}
	if b == 1 {
		v.hw.PinSet(v.pinB)
	}
	v.last.store(d)
	return nil
}

// Release implements Port.Release.
func (v *Vattu) Release() error {
	return releaseErr(v.Set(Stop), v.hw.Close())
}
