package tourney

import (
	"errors"
	"testing"
	"time"
)

func TestPhaseAt(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 8, 1, 18, 0, 0, 0, time.UTC)
	tny := &Tourney{StartsAt: base, EndsAt: base.Add(7 * 24 * time.Hour)}

	tests := []struct {
		name   string
		now    time.Time
		closed bool
		want   Phase
	}{
		{name: "before start", now: base.Add(-time.Hour), want: PhaseScheduled},
		{name: "at start", now: base, want: PhaseRunning},
		{name: "mid run", now: base.Add(3 * 24 * time.Hour), want: PhaseRunning},
		{name: "at end", now: tny.EndsAt, want: PhaseEnded},
		{name: "after end", now: tny.EndsAt.Add(time.Minute), want: PhaseEnded},
		{name: "closed overrides bounds", now: base.Add(time.Hour), closed: true, want: PhaseEnded},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cp := *tny
			cp.Closed = tt.closed
			if got := PhaseAt(&cp, tt.now); got != tt.want {
				t.Fatalf("PhaseAt = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDivisionFor(t *testing.T) {
	t.Parallel()
	p := &Player{SoldierDivision: DivisionGold}

	div, err := DivisionFor(&Tourney{Class: ClassSoldier}, p)
	if err != nil {
		t.Fatalf("DivisionFor error: %v", err)
	}
	if div != DivisionGold {
		t.Fatalf("division = %s, want %s", div, DivisionGold)
	}

	// Demo division was never assigned; must surface an error, not default.
	if _, err := DivisionFor(&Tourney{Class: ClassDemo}, p); !errors.Is(err, ErrNoDivision) {
		t.Fatalf("expected ErrNoDivision, got %v", err)
	}
}

func TestFormatRunTime(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   float64
		want string
	}{
		{in: 0, want: "0:00.000"},
		{in: 1.5, want: "0:01.500"},
		{in: 59.9995, want: "1:00.000"},
		{in: 123.456, want: "2:03.456"},
		{in: 3723.042, want: "1:02:03.042"},
		{in: -4, want: "0:00.000"},
	}
	for _, tt := range tests {
		if got := FormatRunTime(tt.in); got != tt.want {
			t.Fatalf("FormatRunTime(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestMapFor(t *testing.T) {
	t.Parallel()
	tny := &Tourney{Maps: map[Division]string{DivisionGold: "jump_aurora"}}
	if got := MapFor(tny, DivisionGold); got != "jump_aurora" {
		t.Fatalf("MapFor = %s", got)
	}
	if got := MapFor(tny, DivisionBronze); got != "unknown map" {
		t.Fatalf("MapFor fallback = %s", got)
	}
}
