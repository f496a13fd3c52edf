package indicator

import (
	"strings"
	"testing"
)

type bufCloser struct {
	strings.Builder
	closed bool
}

func (b *bufCloser) Close() error {
	b.closed = true
	return nil
}

// counter records the calls it receives.
type counter struct {
	calls []string
}

func (c *counter) Initializing()   { c.calls = append(c.calls, "init") }
func (c *counter) Ready()          { c.calls = append(c.calls, "ready") }
func (c *counter) Closing()        { c.calls = append(c.calls, "closing") }
func (c *counter) Connected()      { c.calls = append(c.calls, "connected") }
func (c *counter) ConnectionLost() { c.calls = append(c.calls, "lost") }
func (c *counter) Shutdown()       { c.calls = append(c.calls, "shutdown") }
func (c *counter) Release() error  { return nil }

func TestNewWithoutConfig(t *testing.T) {
	ind, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := ind.(*Noop); !ok {
		t.Errorf("Expected *Noop, got %T", ind)
	}
}

func TestCombine(t *testing.T) {
	a, b := &counter{}, &counter{}
	if Combine(a) != a {
		t.Error("Combine of one indicator should return it unchanged")
	}

	m := Combine(a, b)
	m.Initializing()
	m.Ready()
	m.Closing()
	for _, c := range []*counter{a, b} {
		if strings.Join(c.calls, ",") != "init,ready,closing" {
			t.Errorf("Unexpected calls %v", c.calls)
		}
	}
}

func TestNeopixelReadyFollowsLink(t *testing.T) {
	buf := &bufCloser{}
	n := &Neopixel{w: buf}

	n.Ready()
	if buf.String() != neoConnectionLost {
		t.Errorf("Ready while disconnected: got %q", buf.String())
	}

	buf.Reset()
	n.Connected()
	if buf.String() != neoReady {
		t.Errorf("Connected while ready: got %q", buf.String())
	}

	buf.Reset()
	n.Closing()
	n.ConnectionLost()
	if buf.String() != neoClosing {
		t.Errorf("Link loss during closing must not repaint: got %q", buf.String())
	}

	n.Release()
	if !buf.closed {
		t.Error("Release did not close the pipe")
	}
}
