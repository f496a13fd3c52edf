package indicator

// Multi combines multiple Indicator implementations.
type Multi struct {
	indicators []Indicator
}

func (m *Multi) each(f func(Indicator)) {
	for _, ind := range m.indicators {
		f(ind)
	}
}

// Initializing implements Indicator.Initializing.
func (m *Multi) Initializing() { m.each(Indicator.Initializing) }

// Ready implements Indicator.Ready.
func (m *Multi) Ready() { m.each(Indicator.Ready) }

// Closing implements Indicator.Closing.
func (m *Multi) Closing() { m.each(Indicator.Closing) }

// Connected implements Indicator.Connected.
func (m *Multi) Connected() { m.each(Indicator.Connected) }

// ConnectionLost implements Indicator.ConnectionLost.
func (m *Multi) ConnectionLost() { m.each(Indicator.ConnectionLost) }

// Shutdown implements Indicator.Shutdown.
func (m *Multi) Shutdown() { m.each(Indicator.Shutdown) }

// Release implements Indicator.Release.
func (m *Multi) Release() error {
	var lastErr error
	for _, ind := range m.indicators {
		if err := ind.Release(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
