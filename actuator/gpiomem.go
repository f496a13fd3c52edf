//go:build linux

package actuator

import (
	"fmt"

	"github.com/warthog618/gpio"
)

// GPIOMem implements Port using /dev/gpiomem.
type GPIOMem struct {
	pinA *gpio.Pin
	pinB *gpio.Pin
	last last
}

// NewGPIOMem maps /dev/gpiomem and configures both pins as outputs.
func NewGPIOMem(pinA, pinB int) (*GPIOMem, error) {
	if err := gpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpiomem: %w", err)
	}

	g := &GPIOMem{
		pinA: gpio.NewPin(pinA),
		pinB: gpio.NewPin(pinB),
	}
	g.pinA.Low()
	g.pinB.Low()
	g.pinA.Output()
	g.pinB.Output()
	g.last.store(Stop)
	return g, nil
}

// Set implements Port.Set.
func (g *GPIOMem) Set(d Drive) error {
	if g.last.same(d) {
		return nil
	}
	a, b := d.Levels()
	// Lower first so both lines are never high together.
	if a == 0 {
		g.pinA.Low()
	}
	if b == 0 {
		g.pinB.Low()
	}
	if a == 1 {
		g.pinA.High()
	}
	if b == 1 {
		g.pinB.High()
	}
	g.last.store(d)
	return nil
}

// Release implements Port.Release.
func (g *GPIOMem) Release() error {
	return releaseErr(g.Set(Stop), gpio.Close())
}
