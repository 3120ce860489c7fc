package tourney

import "time"

// Phase is the lifecycle position of a tourney at a given instant.
type Phase int

const (
	PhaseScheduled Phase = iota
	PhaseRunning
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseScheduled:
		return "scheduled"
	case PhaseRunning:
		return "running"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// PhaseAt derives the lifecycle phase from the tourney bounds. The closed
// flag is an explicit override: a closed tourney is always ended.
func PhaseAt(t *Tourney, now time.Time) Phase {
	if t.Closed || !now.Before(t.EndsAt) {
		return PhaseEnded
	}
	if now.Before(t.StartsAt) {
		return PhaseScheduled
	}
	return PhaseRunning
}
