// Package roster turns signup-reaction signals into consistent participant
// records. Duplicate signals are expected (platform redelivery, double
// reactions), so every operation is an idempotent upsert rather than an
// insert-or-fail.
package roster

import (
	"context"
	"fmt"

	"github.com/syuvi-tf/syuvi/internal/tourney"
	"github.com/syuvi-tf/syuvi/pkg/logx"
)

// Store is the slice of the time store the roster needs.
type Store interface {
	PlayerByDiscordID(ctx context.Context, discordID string) (*tourney.Player, error)
	UpsertPlayer(ctx context.Context, discordID, name string) (int64, error)
	Signup(ctx context.Context, tourneyID, playerID int64) (*tourney.Signup, error)
	UpsertSignup(ctx context.Context, tourneyID, playerID int64, div tourney.Division) error
	WithdrawSignup(ctx context.Context, tourneyID, playerID int64) error
}

// Hook runs after a committed roster change. Hooks are best-effort: their
// errors are logged, never propagated to the signal source.
type Hook func(ctx context.Context, t *tourney.Tourney)

type Service struct {
	store Store
	log   logx.Logger
	hooks []Hook
}

func New(store Store, log logx.Logger) *Service {
	return &Service{store: store, log: log}
}

// OnChange registers a post-commit hook (e.g. the sheet projector).
func (s *Service) OnChange(h Hook) {
	s.hooks = append(s.hooks, h)
}

// AddParticipant signs a Discord user up for the tourney.
//
// A missing division for the tourney's class is an error surfaced to the
// caller, never silently defaulted. Re-adding an already-active participant
// is a no-op; a withdrawn row is reactivated.
func (s *Service) AddParticipant(ctx context.Context, t *tourney.Tourney, discordID, name string) error {
	p, err := s.store.PlayerByDiscordID(ctx, discordID)
	if err != nil {
		return fmt.Errorf("look up player %s: %w", discordID, err)
	}
	if p == nil {
		id, err := s.store.UpsertPlayer(ctx, discordID, name)
		if err != nil {
			return fmt.Errorf("create player %s: %w", discordID, err)
		}
		p = &tourney.Player{ID: id, DiscordID: discordID, Name: name}
	}

	div, err := tourney.DivisionFor(t, p)
	if err != nil {
		return err
	}

	su, err := s.store.Signup(ctx, t.ID, p.ID)
	if err != nil {
		return fmt.Errorf("look up signup: %w", err)
	}
	if su != nil && su.Status == tourney.SignupActive {
		s.log.Debug("duplicate signup ignored",
			logx.Int64("tourney_id", t.ID), logx.String("discord_id", discordID))
		return nil
	}

	if err := s.store.UpsertSignup(ctx, t.ID, p.ID, div); err != nil {
		return fmt.Errorf("upsert signup: %w", err)
	}
	s.log.Info("participant signed up",
		logx.Int64("tourney_id", t.ID), logx.String("player", p.Name), logx.String("division", string(div)))
	s.runHooks(ctx, t)
	return nil
}

// RemoveParticipant withdraws a user from the tourney. Absent or already
// withdrawn rows are no-ops; the row itself is never deleted.
func (s *Service) RemoveParticipant(ctx context.Context, t *tourney.Tourney, discordID string) error {
	p, err := s.store.PlayerByDiscordID(ctx, discordID)
	if err != nil {
		return fmt.Errorf("look up player %s: %w", discordID, err)
	}
	if p == nil {
		return nil
	}
	su, err := s.store.Signup(ctx, t.ID, p.ID)
	if err != nil {
		return fmt.Errorf("look up signup: %w", err)
	}
	if su == nil || su.Status == tourney.SignupWithdrawn {
		return nil
	}

	if err := s.store.WithdrawSignup(ctx, t.ID, p.ID); err != nil {
		return fmt.Errorf("withdraw signup: %w", err)
	}
	s.log.Info("participant withdrew",
		logx.Int64("tourney_id", t.ID), logx.String("player", p.Name))
	s.runHooks(ctx, t)
	return nil
}

func (s *Service) runHooks(ctx context.Context, t *tourney.Tourney) {
	for _, h := range s.hooks {
		h(ctx, t)
	}
}
