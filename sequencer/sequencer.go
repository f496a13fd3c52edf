// Package sequencer converts elapsed time into H-bridge drive commands for
// the initialization stroke and the two-phase closing cycle.
//
// The sequencer is open loop: it has no position feedback and relies on
// stroke durations calibrated to the actuator. It is not safe for concurrent
// use; the owner calls Tick and RequestClose from a single goroutine.
package sequencer

import (
	"log"
	"time"

	"doorcloser/actuator"
)

// Phase is one discrete state of the sequencer.
type Phase int

const (
	Initializing Phase = iota
	Ready
	ClosingRetract
	ClosingReturn
)

func (p Phase) String() string {
	switch p {
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case ClosingRetract:
		return "closing_retract"
	case ClosingReturn:
		return "closing_return"
	default:
		return "unknown"
	}
}

// Drive returns the command held for the whole body of the phase.
func (p Phase) Drive() actuator.Drive {
	switch p {
	case Initializing, ClosingReturn:
		return actuator.Reverse
	case ClosingRetract:
		return actuator.Forward
	default:
		return actuator.Stop
	}
}

// Stroke durations, calibrated to a 200 mm actuator stroke.
const (
	InitDuration    = 23 * time.Second
	RetractDuration = 20 * time.Second
	ReturnDuration  = 20 * time.Second
)

// Timing holds the duration of each timed phase.
type Timing struct {
	Init    time.Duration
	Retract time.Duration
	Return  time.Duration
}

// DefaultTiming returns the calibrated stroke durations.
func DefaultTiming() Timing {
	return Timing{
		Init:    InitDuration,
		Retract: RetractDuration,
		Return:  ReturnDuration,
	}
}

// Cycle returns the length of a full closing cycle.
func (t Timing) Cycle() time.Duration {
	return t.Retract + t.Return
}

// Handlers holds callback functions for sequencer events.
type Handlers struct {
	OnPhase    func(from, to Phase) // Called after every phase transition
	OnRejected func(current Phase)  // Called when a close request is ignored
}

// Sequencer owns the current phase, the phase clock and the output port.
// Times are offsets on a monotonic clock, e.g. time.Since(start).
type Sequencer struct {
	port     actuator.Port
	timing   Timing
	handlers Handlers

	phase Phase
	clock time.Duration
}

// New creates a sequencer in the Initializing phase. Start must be called
// before the first Tick.
func New(port actuator.Port, timing Timing, handlers Handlers) *Sequencer {
	return &Sequencer{
		port:     port,
		timing:   timing,
		handlers: handlers,
		phase:    Initializing,
	}
}

// Start begins the initialization stroke at now.
func (s *Sequencer) Start(now time.Duration) {
	s.phase = Initializing
	s.clock = now
	log.Printf("Initializing: driving actuator to its end stop (%v)", s.timing.Init)
	s.issue(actuator.Reverse)
}

// Tick evaluates the sequencer at now. It may be called arbitrarily often.
func (s *Sequencer) Tick(now time.Duration) {
	elapsed := now - s.clock

	switch s.phase {
	case Initializing:
		if elapsed >= s.timing.Init {
			s.enter(Ready, now)
			return
		}
	case ClosingRetract:
		if elapsed >= s.timing.Retract {
			s.enter(ClosingReturn, now)
			return
		}
	case ClosingReturn:
		if elapsed >= s.timing.Return {
			s.enter(Ready, now)
			return
		}
	default:
		return
	}
	s.issue(s.phase.Drive())
}

// RequestClose starts the closing cycle at now. It reports whether the
// request was accepted; requests are ignored while initializing or while a
// cycle is already in progress.
func (s *Sequencer) RequestClose(now time.Duration) bool {
	switch s.phase {
	case Ready:
	case Initializing:
		log.Println("Cannot start door closing - actuator not yet initialized")
		s.rejected()
		return false
	default:
		log.Printf("Door closing already in progress (%s), request ignored", s.phase)
		s.rejected()
		return false
	}

	log.Println("Starting closing cycle")
	s.enter(ClosingRetract, now)
	return true
}

// Phase returns the current phase.
func (s *Sequencer) Phase() Phase {
	return s.phase
}

// PhaseClock returns the time the current phase began.
func (s *Sequencer) PhaseClock() time.Duration {
	return s.clock
}

// Closing reports whether a closing cycle is in progress.
func (s *Sequencer) Closing() bool {
	return s.phase == ClosingRetract || s.phase == ClosingReturn
}

// Drive returns the command currently required by the phase.
func (s *Sequencer) Drive() actuator.Drive {
	return s.phase.Drive()
}

// Remaining returns how long the current timed phase has left at now.
// It is zero in Ready.
func (s *Sequencer) Remaining(now time.Duration) time.Duration {
	var d time.Duration
	switch s.phase {
	case Initializing:
		d = s.timing.Init
	case ClosingRetract:
		d = s.timing.Retract
	case ClosingReturn:
		d = s.timing.Return
	default:
		return 0
	}
	if left := d - (now - s.clock); left > 0 {
		return left
	}
	return 0
}

// enter performs a phase boundary: stop, switch phase, reset the clock and
// issue the new phase's command in the same evaluation.
func (s *Sequencer) enter(to Phase, now time.Duration) {
	from := s.phase
	s.issue(actuator.Stop)
	s.phase = to
	s.clock = now

	switch to {
	case Ready:
		if from == Initializing {
			log.Println("Initialization complete - ready to receive door events")
		} else {
			log.Printf("Door closing sequence complete - actuator stopped (cycle %v)", s.timing.Cycle())
		}
	case ClosingRetract:
		log.Printf("Closing: driving %s for %v", to.Drive(), s.timing.Retract)
	case ClosingReturn:
		log.Printf("Closing: driving %s back to neutral for %v", to.Drive(), s.timing.Return)
	}

	if d := to.Drive(); d != actuator.Stop {
		s.issue(d)
	}
	if s.handlers.OnPhase != nil {
		s.handlers.OnPhase(from, to)
	}
}

func (s *Sequencer) issue(d actuator.Drive) {
	if err := s.port.Set(d); err != nil {
		log.Printf("Actuator %s: %v", d, err)
	}
}

func (s *Sequencer) rejected() {
	if s.handlers.OnRejected != nil {
		s.handlers.OnRejected(s.phase)
	}
}
