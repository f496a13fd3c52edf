package indicator

import (
	"fmt"

	"github.com/hjkoskel/govattu"
)

// GPIO implements Indicator using discrete GPIO LED pins.
// The ready and busy LEDs follow the phase; the fault LED follows the
// broker link.
type GPIO struct {
	hw       govattu.Vattu
	readyPin *uint8
	busyPin  *uint8
	faultPin *uint8
}

// NewGPIO creates a new GPIO-based indicator.
func NewGPIO(readyPin, busyPin, faultPin *uint8) (*GPIO, error) {
	hw, err := govattu.Open()
	if err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}

	g := &GPIO{
		hw:       hw,
		readyPin: readyPin,
		busyPin:  busyPin,
		faultPin: faultPin,
	}

	// Initialize all pins as outputs, start off
	for _, pin := range []*uint8{readyPin, busyPin, faultPin} {
		if pin != nil {
			hw.PinMode(*pin, govattu.ALToutput)
			hw.PinClear(*pin)
		}
	}

	return g, nil
}

// Initializing implements Indicator.Initializing.
func (g *GPIO) Initializing() {
	g.clear(g.readyPin)
	g.set(g.busyPin)
}

// Ready implements Indicator.Ready.
func (g *GPIO) Ready() {
	g.clear(g.busyPin)
	g.set(g.readyPin)
}

// Closing implements Indicator.Closing.
func (g *GPIO) Closing() {
	g.clear(g.readyPin)
	g.set(g.busyPin)
}

// Connected implements Indicator.Connected.
func (g *GPIO) Connected() {
	g.clear(g.faultPin)
}

// ConnectionLost implements Indicator.ConnectionLost.
func (g *GPIO) ConnectionLost() {
	g.set(g.faultPin)
}

// Shutdown implements Indicator.Shutdown.
func (g *GPIO) Shutdown() {
	g.allOff()
}

// Release implements Indicator.Release.
func (g *GPIO) Release() error {
	g.allOff()
	return g.hw.Close()
}

func (g *GPIO) set(pin *uint8) {
	if pin != nil {
		g.hw.PinSet(*pin)
	}
}

func (g *GPIO) clear(pin *uint8) {
	if pin != nil {
		g.hw.PinClear(*pin)
	}
}

func (g *GPIO) allOff() {
	g.clear(g.readyPin)
	g.clear(g.busyPin)
	g.clear(g.faultPin)
}
