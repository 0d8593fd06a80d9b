package strategy

import "time"

type State string

type Action string

const (
	StateFlat  State = "FLAT"
	StateLong  State = "LONG"
	StateShort State = "SHORT"
)

const (
	ActionOpenLong   Action = "OPEN_LONG"
	ActionOpenShort  Action = "OPEN_SHORT"
	ActionCloseLong  Action = "CLOSE_LONG"
	ActionCloseShort Action = "CLOSE_SHORT"
)

// Position is the bot's view of its single open position.
type Position struct {
	State    State
	ValueUSD float64
	OpenedAt time.Time
}

func (p Position) IsFlat() bool {
	return p.State == StateFlat
}

// IsLong reports the side an action trades.
func (a Action) IsLong() bool {
	return a == ActionOpenLong || a == ActionCloseLong
}

func (a Action) IsOpen() bool {
	return a == ActionOpenLong || a == ActionOpenShort
}

// Target is the state reached after the action succeeds.
func (a Action) Target() State {
	switch a {
	case ActionOpenLong:
		return StateLong
	case ActionOpenShort:
		return StateShort
	default:
		return StateFlat
	}
}
