//go:build linux

package actuator

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// CDev implements Port using the GPIO character device.
type CDev struct {
	lines *gpiocdev.Lines
	last  last
}

// NewCDev requests both control lines as outputs, initially low.
func NewCDev(chip string, pinA, pinB int) (*CDev, error) {
	if chip == "" {
		chip = "gpiochip0"
	}

	lines, err := gpiocdev.RequestLines(chip, []int{pinA, pinB},
		gpiocdev.WithConsumer("doorcloser"),
		gpiocdev.AsOutput(0, 0))
	if err != nil {
		return nil, fmt.Errorf("request lines %d,%d on %s: %w", pinA, pinB, chip, err)
	}

	c := &CDev{lines: lines}
	c.last.store(Stop)
	return c, nil
}

// Set implements Port.Set.
func (c *CDev) Set(d Drive) error {
	if c.last.same(d) {
		return nil
	}
	a, b := d.Levels()
	// Both lines are updated in a single ioctl.
	if err := c.lines.SetValues([]int{a, b}); err != nil {
		return fmt.Errorf("set %s: %w", d, err)
	}
	c.last.store(d)
	return nil
}

// Release implements Port.Release.
func (c *CDev) Release() error {
	if c.lines == nil {
		return nil
	}
	return releaseErr(c.Set(Stop), c.lines.Close())
}
