// Package verify transitions a submitted time from unverified to verified
// and builds the confirmation payload shown to staff.
package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/syuvi-tf/syuvi/internal/tourney"
	"github.com/syuvi-tf/syuvi/pkg/logx"
)

// ErrNotFound is returned when no time entry exists for the given id.
// Callers present it distinctly, not as a generic failure.
var ErrNotFound = errors.New("time entry not found")

// Store is the slice of the time store verification needs.
type Store interface {
	Time(ctx context.Context, id int64) (*tourney.Time, error)
	PlayerByID(ctx context.Context, id int64) (*tourney.Player, error)
	Tourney(ctx context.Context, id int64) (*tourney.Tourney, error)
	VerifyTime(ctx context.Context, id int64) error
}

// Projector pushes the verified aggregate to the external sheet. Best-effort.
type Projector interface {
	UpdateSheetTimes(ctx context.Context, t *tourney.Tourney)
}

// Confirmation is the display payload for a verified time.
type Confirmation struct {
	TimeID          int64
	PlayerDiscordID string
	PlayerName      string
	FormattedTime   string
	Class           tourney.Class
	Division        tourney.Division
	Map             string
}

type Service struct {
	store Store
	proj  Projector
	log   logx.Logger
}

func New(store Store, proj Projector, log logx.Logger) *Service {
	return &Service{store: store, proj: proj, log: log}
}

// Verify marks the time entry verified and returns its confirmation.
//
// Verifying an already-verified entry succeeds and returns the same payload;
// double invocation is possible and must never double-count downstream.
// The sheet push is fire-and-forget: its failure cannot roll back or block
// the result already produced here.
func (s *Service) Verify(ctx context.Context, timeID int64) (*Confirmation, error) {
	entry, err := s.store.Time(ctx, timeID)
	if err != nil {
		return nil, fmt.Errorf("load time %d: %w", timeID, err)
	}
	if entry == nil {
		return nil, ErrNotFound
	}

	player, err := s.store.PlayerByID(ctx, entry.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("load player %d: %w", entry.PlayerID, err)
	}
	tny, err := s.store.Tourney(ctx, entry.TourneyID)
	if err != nil {
		return nil, fmt.Errorf("load tourney %d: %w", entry.TourneyID, err)
	}

	// Division is computed here from (class, stored division), never cached
	// on the entry, so reassignment elsewhere can't leave stale labels.
	div, err := tourney.DivisionFor(tny, player)
	if err != nil {
		return nil, fmt.Errorf("player %s: %w", player.Name, err)
	}

	if err := s.store.VerifyTime(ctx, timeID); err != nil {
		return nil, fmt.Errorf("verify time %d: %w", timeID, err)
	}
	s.log.Info("time verified",
		logx.Int64("time_id", timeID), logx.String("player", player.Name),
		logx.Float64("run_time", entry.RunTime))

	// Push in the background: a rate-limited sheet write must not delay the
	// confirmation, and the caller cancelling after a reply must not abort it.
	if s.proj != nil {
		go s.proj.UpdateSheetTimes(context.WithoutCancel(ctx), tny)
	}

	return &Confirmation{
		TimeID:          timeID,
		PlayerDiscordID: player.DiscordID,
		PlayerName:      player.Name,
		FormattedTime:   tourney.FormatRunTime(entry.RunTime),
		Class:           tny.Class,
		Division:        div,
		Map:             tourney.MapFor(tny, div),
	}, nil
}
