package indicator

import (
	"fmt"
	"io"
	"os"
)

// Neopixel command strings for the external neopixel tool.
const (
	neoConnectionLost = "@2 !150000 001010"
	neoReady          = "@3 !150000 400000"
	neoInitializing   = "@2 !50000 101000"
	neoClosing        = "@1 !50000 8000"
	neoTerminated     = "@0 010101"
)

// Neopixel implements Indicator using an external neopixel tool via named pipe.
// While the broker link is down the ready pattern is replaced by the
// connection-lost pattern.
type Neopixel struct {
	w         io.WriteCloser
	connected bool
	ready     bool
}

// NewNeopixel creates a new Neopixel indicator.
func NewNeopixel(pipePath string) (*Neopixel, error) {
	f, err := os.OpenFile(pipePath, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open neopixel pipe %s: %w", pipePath, err)
	}
	return &Neopixel{w: f}, nil
}

// Initializing implements Indicator.Initializing.
func (n *Neopixel) Initializing() {
	n.ready = false
	n.write(neoInitializing)
}

// Ready implements Indicator.Ready.
func (n *Neopixel) Ready() {
	n.ready = true
	n.write(n.idle())
}

// Closing implements Indicator.Closing.
func (n *Neopixel) Closing() {
	n.ready = false
	n.write(neoClosing)
}

// Connected implements Indicator.Connected.
func (n *Neopixel) Connected() {
	n.connected = true
	if n.ready {
		n.write(n.idle())
	}
}

// ConnectionLost implements Indicator.ConnectionLost.
func (n *Neopixel) ConnectionLost() {
	n.connected = false
	if n.ready {
		n.write(n.idle())
	}
}

// Shutdown implements Indicator.Shutdown.
func (n *Neopixel) Shutdown() {
	n.write(neoTerminated)
}

// Release implements Indicator.Release.
func (n *Neopixel) Release() error {
	if n.w == nil {
		return nil
	}
	return n.w.Close()
}

func (n *Neopixel) idle() string {
	if n.connected {
		return neoReady
	}
	return neoConnectionLost
}

func (n *Neopixel) write(s string) {
	if n.w != nil {
		n.w.Write([]byte(s))
	}
}
