package strategy

import (
	"fmt"
	"sync"
	"time"

	"gmx-rsi-bot/internal/signal"
)

// StateMachine owns the position state and value and changes them together.
type StateMachine struct {
	mu  sync.Mutex
	pos Position
}

func NewStateMachine() *StateMachine {
	return &StateMachine{pos: Position{State: StateFlat}}
}

func (s *StateMachine) Position() Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// Decide returns the actions the current state calls for under sig.
func (s *StateMachine) Decide(sig signal.Signal, allowFlip bool) []Action {
	s.mu.Lock()
	state := s.pos.State
	s.mu.Unlock()
	return NextActions(state, sig, allowFlip)
}

// NextActions is the transition table. A direct flip between Long and Short
// is ignored unless allowFlip is set, in which case it closes then reopens.
func NextActions(state State, sig signal.Signal, allowFlip bool) []Action {
	switch state {
	case StateFlat:
		switch sig {
		case signal.Long:
			return []Action{ActionOpenLong}
		case signal.Short:
			return []Action{ActionOpenShort}
		}
	case StateLong:
		switch sig {
		case signal.Flat:
			return []Action{ActionCloseLong}
		case signal.Short:
			if allowFlip {
				return []Action{ActionCloseLong, ActionOpenShort}
			}
		}
	case StateShort:
		switch sig {
		case signal.Flat:
			return []Action{ActionCloseShort}
		case signal.Long:
			if allowFlip {
				return []Action{ActionCloseShort, ActionOpenLong}
			}
		}
	}
	return nil
}

// Opened records a confirmed open. It is only valid from Flat.
func (s *StateMachine) Opened(state State, valueUSD float64, at time.Time) error {
	if state != StateLong && state != StateShort {
		return fmt.Errorf("cannot open into state %s", state)
	}
	if valueUSD <= 0 {
		return fmt.Errorf("position value must be > 0, got %f", valueUSD)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos.State != StateFlat {
		return fmt.Errorf("cannot open %s while %s", state, s.pos.State)
	}
	s.pos = Position{State: state, ValueUSD: valueUSD, OpenedAt: at}
	return nil
}

// Closed records a confirmed close and clears the value.
func (s *StateMachine) Closed() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos.State == StateFlat {
		return fmt.Errorf("cannot close while %s", StateFlat)
	}
	s.pos = Position{State: StateFlat}
	return nil
}

// Restore loads a persisted position after checking it is consistent.
func (s *StateMachine) Restore(pos Position) error {
	switch pos.State {
	case StateFlat:
		if pos.ValueUSD != 0 {
			return fmt.Errorf("flat position carries value %f", pos.ValueUSD)
		}
	case StateLong, StateShort:
		if pos.ValueUSD <= 0 {
			return fmt.Errorf("%s position has no value", pos.State)
		}
	default:
		return fmt.Errorf("unknown position state %q", pos.State)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = pos
	return nil
}
