package actuator

// Noop implements Port but does nothing.
// Used when no actuator is wired, e.g. for bench runs.
type Noop struct {
	last Drive
}

// Set implements Port.Set.
func (n *Noop) Set(d Drive) error {
	n.last = d
	return nil
}

// Last returns the drive most recently set.
func (n *Noop) Last() Drive {
	return n.last
}

// Release implements Port.Release.
func (n *Noop) Release() error {
	n.last = Stop
	return nil
}
