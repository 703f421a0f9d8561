package sim

import (
	"fmt"

	"github.com/google/uuid"
)

// Result is who won the game.
type Result uint8

const (
	ResultNone Result = iota
	ResultGuardsWin
	ResultIntrudersWin
)

func (r Result) String() string {
	switch r {
	case ResultGuardsWin:
		return "guards_win"
	case ResultIntrudersWin:
		return "intruders_win"
	case ResultNone:
		return "none"
	default:
		return "unknown"
	}
}

// Outcome is the report handed to external callers once a run has ended.
type Outcome struct {
	RunID            uuid.UUID
	Result           Result
	IntruderWin      bool
	GuardWin         bool
	TimeTakenSeconds float64
	Ticks            int
}

func (o Outcome) String() string {
	return fmt.Sprintf("run %s: %s after %.2fs (%d ticks)",
		o.RunID, o.Result, o.TimeTakenSeconds, o.Ticks)
}
