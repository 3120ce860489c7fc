package tourney

import (
	"errors"
	"fmt"
	"time"
)

// Class is the competition class a tourney is run for. The two classes are
// disjoint tracks: a player holds a separate division per class.
type Class string

const (
	ClassSoldier Class = "Soldier"
	ClassDemo    Class = "Demo"
)

// Division is a skill tier within a class.
type Division string

const (
	DivisionPlatinum Division = "Platinum"
	DivisionGold     Division = "Gold"
	DivisionSilver   Division = "Silver"
	DivisionBronze   Division = "Bronze"
)

// Divisions lists all tiers, strongest first. The order matches the sheet
// tab layout.
var Divisions = []Division{DivisionPlatinum, DivisionGold, DivisionSilver, DivisionBronze}

// ErrNoDivision is returned when a player has no stored division for the
// tourney's class. Signups require one; we never silently default.
var ErrNoDivision = errors.New("player has no division for this class")

// Tourney is one scheduled competitive event. Status is derived from the
// bounds plus the Closed flag, never stored as an enum.
type Tourney struct {
	ID       int64
	Class    Class
	StartsAt time.Time
	EndsAt   time.Time
	Closed   bool

	// Maps holds the map played per division for this tourney.
	Maps map[Division]string
}

// Player maps a Discord identity to per-class division assignments.
// An empty division means the player has not been placed for that class.
type Player struct {
	ID              int64
	DiscordID       string
	Name            string
	SoldierDivision Division
	DemoDivision    Division
}

// SignupStatus tracks roster membership. Withdrawal is a status change,
// never a delete, so time entries keep a valid owner and duplicate-join
// races cannot produce ghost rows.
type SignupStatus string

const (
	SignupActive    SignupStatus = "active"
	SignupWithdrawn SignupStatus = "withdrawn"
)

// Signup is one player's membership in one tourney.
type Signup struct {
	TourneyID int64
	PlayerID  int64
	Division  Division
	Status    SignupStatus
	CreatedAt time.Time
}

// Time is one submitted run. RunTime is the raw duration in seconds.
type Time struct {
	ID        int64
	TourneyID int64
	PlayerID  int64
	RunTime   float64
	Verified  bool
}

// DivisionFor resolves the class-specific division for a player.
func DivisionFor(t *Tourney, p *Player) (Division, error) {
	var div Division
	switch t.Class {
	case ClassSoldier:
		div = p.SoldierDivision
	case ClassDemo:
		div = p.DemoDivision
	default:
		return "", fmt.Errorf("unknown class %q", t.Class)
	}
	if div == "" {
		return "", ErrNoDivision
	}
	return div, nil
}

// MapFor returns the map a division plays in this tourney, or "unknown map"
// when the tourney has no map recorded for it.
func MapFor(t *Tourney, div Division) string {
	if m, ok := t.Maps[div]; ok && m != "" {
		return m
	}
	return "unknown map"
}
