package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/syuvi-tf/syuvi/internal/tourney"
	"github.com/syuvi-tf/syuvi/pkg/logx"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "syuvi.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedTourney(t *testing.T, s *Store, startsIn, endsIn time.Duration) *tourney.Tourney {
	t.Helper()
	now := time.Now().UTC()
	tny := &tourney.Tourney{
		Class:    tourney.ClassSoldier,
		StartsAt: now.Add(startsIn),
		EndsAt:   now.Add(endsIn),
		Maps:     map[tourney.Division]string{tourney.DivisionGold: "jump_aurora"},
	}
	if err := s.CreateTourney(context.Background(), tny); err != nil {
		t.Fatalf("CreateTourney: %v", err)
	}
	return tny
}

func TestActiveTourney(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	got, err := s.ActiveTourney(ctx)
	if err != nil {
		t.Fatalf("ActiveTourney: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no active tourney, got %+v", got)
	}

	tny := seedTourney(t, s, -time.Hour, 24*time.Hour)
	got, err = s.ActiveTourney(ctx)
	if err != nil {
		t.Fatalf("ActiveTourney: %v", err)
	}
	if got == nil || got.ID != tny.ID {
		t.Fatalf("active tourney = %+v, want id %d", got, tny.ID)
	}
	if got.Maps[tourney.DivisionGold] != "jump_aurora" {
		t.Fatalf("maps not loaded: %+v", got.Maps)
	}

	// Second overlapping tourney corrupts the invariant.
	seedTourney(t, s, time.Hour, 48*time.Hour)
	if _, err := s.ActiveTourney(ctx); !errors.Is(err, ErrDataIntegrity) {
		t.Fatalf("expected ErrDataIntegrity, got %v", err)
	}
}

func TestActiveTourneyIgnoresEnded(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	seedTourney(t, s, -48*time.Hour, -time.Hour)
	closed := seedTourney(t, s, -time.Hour, 24*time.Hour)
	if err := s.CloseTourney(ctx, closed.ID); err != nil {
		t.Fatalf("CloseTourney: %v", err)
	}

	got, err := s.ActiveTourney(ctx)
	if err != nil {
		t.Fatalf("ActiveTourney: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no active tourney, got id %d", got.ID)
	}
}

func TestTimeLayoutStringOrderMatchesTimeOrder(t *testing.T) {
	t.Parallel()
	base := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	// A trimmed-zeros layout makes the whole second sort after the half
	// second ('Z' > '.'); the fixed-width layout must not.
	instants := []time.Time{
		base,
		base.Add(500 * time.Millisecond),
		base.Add(time.Second),
		base.Add(time.Second + time.Nanosecond),
	}
	for i := 1; i < len(instants); i++ {
		prev, cur := instants[i-1].Format(timeLayout), instants[i].Format(timeLayout)
		if !(prev < cur) {
			t.Errorf("%q not < %q, string order diverges from time order", prev, cur)
		}
	}
}

func TestActiveTourneyWholeSecondBoundary(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	// Ends at the top of the current second, so it is a fraction of a second
	// in the past by the time the query compares strings.
	tny := &tourney.Tourney{
		Class:    tourney.ClassSoldier,
		StartsAt: time.Now().UTC().Add(-time.Hour),
		EndsAt:   time.Now().UTC().Truncate(time.Second),
	}
	if err := s.CreateTourney(ctx, tny); err != nil {
		t.Fatalf("CreateTourney: %v", err)
	}

	got, err := s.ActiveTourney(ctx)
	if err != nil {
		t.Fatalf("ActiveTourney: %v", err)
	}
	if got != nil {
		t.Fatalf("tourney ended at a whole second still reported active: %+v", got)
	}
}

func TestSignupUpsertIdempotent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()
	tny := seedTourney(t, s, -time.Hour, 24*time.Hour)

	pid, err := s.UpsertPlayer(ctx, "1001", "kayce")
	if err != nil {
		t.Fatalf("UpsertPlayer: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := s.UpsertSignup(ctx, tny.ID, pid, tourney.DivisionGold); err != nil {
			t.Fatalf("UpsertSignup #%d: %v", i, err)
		}
	}
	list, err := s.Signups(ctx, tny.ID)
	if err != nil {
		t.Fatalf("Signups: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("signups = %d, want 1", len(list))
	}

	// Withdraw keeps the row and repeated withdraws stay no-ops.
	for i := 0; i < 2; i++ {
		if err := s.WithdrawSignup(ctx, tny.ID, pid); err != nil {
			t.Fatalf("WithdrawSignup: %v", err)
		}
	}
	list, err = s.Signups(ctx, tny.ID)
	if err != nil {
		t.Fatalf("Signups: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("signups after withdraw = %d, want 0", len(list))
	}
	su, err := s.Signup(ctx, tny.ID, pid)
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if su == nil || su.Status != tourney.SignupWithdrawn {
		t.Fatalf("signup row = %+v, want withdrawn row", su)
	}

	// Re-adding reactivates the same row.
	if err := s.UpsertSignup(ctx, tny.ID, pid, tourney.DivisionGold); err != nil {
		t.Fatalf("UpsertSignup reactivate: %v", err)
	}
	list, _ = s.Signups(ctx, tny.ID)
	if len(list) != 1 {
		t.Fatalf("signups after reactivate = %d, want 1", len(list))
	}
}

func TestVerifyTimeIdempotent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()
	tny := seedTourney(t, s, -time.Hour, 24*time.Hour)

	pid, _ := s.UpsertPlayer(ctx, "1002", "july")
	if err := s.UpsertSignup(ctx, tny.ID, pid, tourney.DivisionGold); err != nil {
		t.Fatalf("UpsertSignup: %v", err)
	}
	id, err := s.SubmitTime(ctx, tny.ID, pid, 123.456)
	if err != nil {
		t.Fatalf("SubmitTime: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := s.VerifyTime(ctx, id); err != nil {
			t.Fatalf("VerifyTime #%d: %v", i, err)
		}
	}
	entry, err := s.Time(ctx, id)
	if err != nil {
		t.Fatalf("Time: %v", err)
	}
	if entry == nil || !entry.Verified {
		t.Fatalf("time entry = %+v, want verified", entry)
	}

	verified, err := s.VerifiedTimes(ctx, tny.ID)
	if err != nil {
		t.Fatalf("VerifiedTimes: %v", err)
	}
	if len(verified) != 1 || verified[0].TimeID != id {
		t.Fatalf("verified times = %+v", verified)
	}
}

func TestTimeAbsent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	entry, err := s.Time(context.Background(), 999999)
	if err != nil {
		t.Fatalf("Time: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected nil for missing time, got %+v", entry)
	}
}

func TestSetPlayerDivisions(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.UpsertPlayer(ctx, "1003", "rys"); err != nil {
		t.Fatalf("UpsertPlayer: %v", err)
	}
	if err := s.SetPlayerDivisions(ctx, "1003", tourney.DivisionSilver, ""); err != nil {
		t.Fatalf("SetPlayerDivisions: %v", err)
	}
	if err := s.SetPlayerDivisions(ctx, "1003", "", tourney.DivisionBronze); err != nil {
		t.Fatalf("SetPlayerDivisions: %v", err)
	}

	p, err := s.PlayerByDiscordID(ctx, "1003")
	if err != nil {
		t.Fatalf("PlayerByDiscordID: %v", err)
	}
	if p.SoldierDivision != tourney.DivisionSilver || p.DemoDivision != tourney.DivisionBronze {
		t.Fatalf("divisions = %q/%q", p.SoldierDivision, p.DemoDivision)
	}
}
