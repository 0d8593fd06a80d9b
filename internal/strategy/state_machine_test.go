package strategy

import (
	"testing"
	"time"

	"gmx-rsi-bot/internal/signal"
)

func TestNextActionsTable(t *testing.T) {
	cases := []struct {
		state State
		sig   signal.Signal
		want  []Action
	}{
		{StateFlat, signal.Long, []Action{ActionOpenLong}},
		{StateFlat, signal.Short, []Action{ActionOpenShort}},
		{StateFlat, signal.Flat, nil},
		{StateLong, signal.Flat, []Action{ActionCloseLong}},
		{StateLong, signal.Long, nil},
		{StateLong, signal.Short, nil},
		{StateShort, signal.Flat, []Action{ActionCloseShort}},
		{StateShort, signal.Short, nil},
		{StateShort, signal.Long, nil},
	}
	for _, tc := range cases {
		got := NextActions(tc.state, tc.sig, false)
		if !sameActions(got, tc.want) {
			t.Fatalf("%s + %s: expected %v, got %v", tc.state, tc.sig, tc.want, got)
		}
	}
}

func TestNextActionsFlipWhenAllowed(t *testing.T) {
	got := NextActions(StateLong, signal.Short, true)
	if !sameActions(got, []Action{ActionCloseLong, ActionOpenShort}) {
		t.Fatalf("unexpected flip actions %v", got)
	}
	got = NextActions(StateShort, signal.Long, true)
	if !sameActions(got, []Action{ActionCloseShort, ActionOpenLong}) {
		t.Fatalf("unexpected flip actions %v", got)
	}
}

func TestStateMachineOpenClose(t *testing.T) {
	sm := NewStateMachine()
	if pos := sm.Position(); pos.State != StateFlat || pos.ValueUSD != 0 {
		t.Fatalf("expected flat start, got %+v", pos)
	}
	now := time.Now()
	if err := sm.Opened(StateLong, 100, now); err != nil {
		t.Fatalf("open: %v", err)
	}
	pos := sm.Position()
	if pos.State != StateLong || pos.ValueUSD != 100 || !pos.OpenedAt.Equal(now) {
		t.Fatalf("unexpected position %+v", pos)
	}
	if err := sm.Opened(StateShort, 50, now); err == nil {
		t.Fatalf("expected error opening while long")
	}
	if err := sm.Closed(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if pos := sm.Position(); pos.State != StateFlat || pos.ValueUSD != 0 {
		t.Fatalf("expected value cleared with state, got %+v", pos)
	}
	if err := sm.Closed(); err == nil {
		t.Fatalf("expected error closing while flat")
	}
}

func TestStateMachineRejectsInvalidOpen(t *testing.T) {
	sm := NewStateMachine()
	if err := sm.Opened(StateFlat, 10, time.Now()); err == nil {
		t.Fatalf("expected error opening into flat")
	}
	if err := sm.Opened(StateLong, 0, time.Now()); err == nil {
		t.Fatalf("expected error opening with zero value")
	}
	if !sm.Position().IsFlat() {
		t.Fatalf("invalid open should not change state")
	}
}

func TestStateMachineRestore(t *testing.T) {
	sm := NewStateMachine()
	if err := sm.Restore(Position{State: StateFlat, ValueUSD: 5}); err == nil {
		t.Fatalf("expected error restoring flat with value")
	}
	if err := sm.Restore(Position{State: StateShort}); err == nil {
		t.Fatalf("expected error restoring short without value")
	}
	if err := sm.Restore(Position{State: "SIDEWAYS"}); err == nil {
		t.Fatalf("expected error restoring unknown state")
	}
	if err := sm.Restore(Position{State: StateShort, ValueUSD: 42}); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := sm.Decide(signal.Flat, false); !sameActions(got, []Action{ActionCloseShort}) {
		t.Fatalf("expected close short after restore, got %v", got)
	}
}

func sameActions(a, b []Action) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
