package indicator

// Noop implements Indicator but does nothing.
// Used when no indicators are configured.
type Noop struct{}

// Initializing implements Indicator.Initializing.
func (n *Noop) Initializing() {}

// Ready implements Indicator.Ready.
func (n *Noop) Ready() {}

// Closing implements Indicator.Closing.
func (n *Noop) Closing() {}

// Connected implements Indicator.Connected.
func (n *Noop) Connected() {}

// ConnectionLost implements Indicator.ConnectionLost.
func (n *Noop) ConnectionLost() {}

// Shutdown implements Indicator.Shutdown.
func (n *Noop) Shutdown() {}

// Release implements Indicator.Release.
func (n *Noop) Release() error {
	return nil
}
