package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/syuvi-tf/syuvi/internal/tourney"
)

// timeLayout is fixed-width (always 9 fractional digits, always UTC) so the
// lexicographic comparisons in SQL agree with chronological order. RFC3339Nano
// trims trailing zeros, which makes "10:00:00Z" sort after "10:00:00.5Z".
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ActiveTourney returns the tourney whose end instant has not yet passed,
// or nil when there is none. More than one such row is a corruption of the
// at-most-one-active invariant and returns ErrDataIntegrity.
func (s *Store) ActiveTourney(ctx context.Context) (*tourney.Tourney, error) {
	now := time.Now().UTC().Format(timeLayout)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, class, starts_at, ends_at, closed FROM tourneys
		 WHERE closed = 0 AND ends_at > ? ORDER BY starts_at`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var active []*tourney.Tourney
	for rows.Next() {
		t, err := scanTourney(rows)
		if err != nil {
			return nil, err
		}
		active = append(active, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(active) {
	case 0:
		return nil, nil
	case 1:
		if err := s.loadMaps(ctx, active[0]); err != nil {
			return nil, err
		}
		return active[0], nil
	default:
		return nil, fmt.Errorf("%w: %d tourneys active at once", ErrDataIntegrity, len(active))
	}
}

// Tourney fetches one tourney by id.
func (s *Store) Tourney(ctx context.Context, id int64) (*tourney.Tourney, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, class, starts_at, ends_at, closed FROM tourneys WHERE id = ?`, id)
	t, err := scanTourney(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tourney %d: not found", id)
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadMaps(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// CreateTourney inserts a tourney and its per-division maps.
func (s *Store) CreateTourney(ctx context.Context, t *tourney.Tourney) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tourneys(class, starts_at, ends_at, closed) VALUES(?,?,?,?)`,
		string(t.Class), t.StartsAt.UTC().Format(timeLayout), t.EndsAt.UTC().Format(timeLayout), boolInt(t.Closed))
	if err != nil {
		return err
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}
	for div, m := range t.Maps {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO tourney_maps(tourney_id, division, map) VALUES(?,?,?)
			 ON CONFLICT(tourney_id, division) DO UPDATE SET map=excluded.map`,
			t.ID, string(div), m); err != nil {
			return err
		}
	}
	return nil
}

// CloseTourney marks a tourney closed. Closing an already-closed tourney is
// a no-op.
func (s *Store) CloseTourney(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE tourneys SET closed = 1 WHERE id = ?`, id)
	return err
}

// PlayerByID fetches one player by internal id.
func (s *Store) PlayerByID(ctx context.Context, id int64) (*tourney.Player, error) {
	return s.playerBy(ctx, `id = ?`, id)
}

// PlayerByDiscordID fetches one player by Discord identity, or nil when the
// user has never been registered.
func (s *Store) PlayerByDiscordID(ctx context.Context, discordID string) (*tourney.Player, error) {
	p, err := s.playerBy(ctx, `discord_id = ?`, discordID)
	if err != nil && errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (s *Store) playerBy(ctx context.Context, where string, arg any) (*tourney.Player, error) {
	var p tourney.Player
	var soldier, demo string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, discord_id, name, soldier_division, demo_division FROM players WHERE `+where, arg).
		Scan(&p.ID, &p.DiscordID, &p.Name, &soldier, &demo)
	if err != nil {
		return nil, err
	}
	p.SoldierDivision = tourney.Division(soldier)
	p.DemoDivision = tourney.Division(demo)
	return &p, nil
}

// UpsertPlayer creates the player row for a Discord user, or refreshes the
// display name if one exists. Returns the player id.
func (s *Store) UpsertPlayer(ctx context.Context, discordID, name string) (int64, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO players(discord_id, name) VALUES(?,?)
		 ON CONFLICT(discord_id) DO UPDATE SET name=excluded.name`,
		discordID, name)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.db.QueryRowContext(ctx, `SELECT id FROM players WHERE discord_id = ?`, discordID).Scan(&id)
	return id, err
}

// SetPlayerDivisions stores per-class division assignments. Empty strings
// leave the stored value untouched.
func (s *Store) SetPlayerDivisions(ctx context.Context, discordID string, soldier, demo tourney.Division) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE players SET
		   soldier_division = CASE WHEN ? = '' THEN soldier_division ELSE ? END,
		   demo_division    = CASE WHEN ? = '' THEN demo_division ELSE ? END
		 WHERE discord_id = ?`,
		string(soldier), string(soldier), string(demo), string(demo), discordID)
	return err
}

// UpsertSignup records a signup, reactivating a withdrawn row if one exists.
// Safe under concurrent duplicate signals.
func (s *Store) UpsertSignup(ctx context.Context, tourneyID, playerID int64, div tourney.Division) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO signups(tourney_id, player_id, division, status, created_at)
		 VALUES(?,?,?,'active',?)
		 ON CONFLICT(tourney_id, player_id) DO UPDATE SET status='active', division=excluded.division`,
		tourneyID, playerID, string(div), time.Now().UTC().Format(timeLayout))
	return err
}

// WithdrawSignup flips an active signup to withdrawn. The row is kept so
// time entries stay attached and re-joins reactivate instead of reinserting.
func (s *Store) WithdrawSignup(ctx context.Context, tourneyID, playerID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE signups SET status='withdrawn' WHERE tourney_id = ? AND player_id = ?`,
		tourneyID, playerID)
	return err
}

// Signup returns the signup row for (tourney, player), or nil.
func (s *Store) Signup(ctx context.Context, tourneyID, playerID int64) (*tourney.Signup, error) {
	var su tourney.Signup
	var div, status, created string
	err := s.db.QueryRowContext(ctx,
		`SELECT tourney_id, player_id, division, status, created_at FROM signups
		 WHERE tourney_id = ? AND player_id = ?`, tourneyID, playerID).
		Scan(&su.TourneyID, &su.PlayerID, &div, &status, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	su.Division = tourney.Division(div)
	su.Status = tourney.SignupStatus(status)
	su.CreatedAt, _ = time.Parse(timeLayout, created)
	return &su, nil
}

// SignupEntry pairs an active signup with the player's display data.
type SignupEntry struct {
	Player   tourney.Player
	Division tourney.Division
}

// Signups lists active signups for a tourney in signup order.
func (s *Store) Signups(ctx context.Context, tourneyID int64) ([]SignupEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.discord_id, p.name, p.soldier_division, p.demo_division, su.division
		 FROM signups su JOIN players p ON p.id = su.player_id
		 WHERE su.tourney_id = ? AND su.status = 'active'
		 ORDER BY su.created_at`, tourneyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SignupEntry
	for rows.Next() {
		var e SignupEntry
		var soldier, demo, div string
		if err := rows.Scan(&e.Player.ID, &e.Player.DiscordID, &e.Player.Name, &soldier, &demo, &div); err != nil {
			return nil, err
		}
		e.Player.SoldierDivision = tourney.Division(soldier)
		e.Player.DemoDivision = tourney.Division(demo)
		e.Division = tourney.Division(div)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Time returns a submitted time by id, or nil when no such entry exists.
func (s *Store) Time(ctx context.Context, id int64) (*tourney.Time, error) {
	var t tourney.Time
	var verified int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tourney_id, player_id, run_time, verified FROM times WHERE id = ?`, id).
		Scan(&t.ID, &t.TourneyID, &t.PlayerID, &t.RunTime, &verified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.Verified = verified != 0
	return &t, nil
}

// SubmitTime records a raw run. Verification happens separately.
func (s *Store) SubmitTime(ctx context.Context, tourneyID, playerID int64, runTime float64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO times(tourney_id, player_id, run_time, created_at) VALUES(?,?,?,?)`,
		tourneyID, playerID, runTime, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// VerifyTime marks a time verified. Re-verifying is a no-op, never an error.
func (s *Store) VerifyTime(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE times SET verified = 1 WHERE id = ?`, id)
	return err
}

// VerifiedEntry is one verified run joined with its owner, for the sheet
// projection.
type VerifiedEntry struct {
	TimeID   int64
	Player   tourney.Player
	Division tourney.Division
	RunTime  float64
}

// VerifiedTimes lists verified runs for a tourney, fastest first, with the
// signup division joined in.
func (s *Store) VerifiedTimes(ctx context.Context, tourneyID int64) ([]VerifiedEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, p.id, p.discord_id, p.name, su.division, t.run_time
		 FROM times t
		 JOIN players p ON p.id = t.player_id
		 JOIN signups su ON su.tourney_id = t.tourney_id AND su.player_id = t.player_id
		 WHERE t.tourney_id = ? AND t.verified = 1
		 ORDER BY t.run_time`, tourneyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VerifiedEntry
	for rows.Next() {
		var e VerifiedEntry
		var div string
		if err := rows.Scan(&e.TimeID, &e.Player.ID, &e.Player.DiscordID, &e.Player.Name, &div, &e.RunTime); err != nil {
			return nil, err
		}
		e.Division = tourney.Division(div)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) loadMaps(ctx context.Context, t *tourney.Tourney) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT division, map FROM tourney_maps WHERE tourney_id = ?`, t.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	t.Maps = map[tourney.Division]string{}
	for rows.Next() {
		var div, m string
		if err := rows.Scan(&div, &m); err != nil {
			return err
		}
		t.Maps[tourney.Division(div)] = m
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTourney(r rowScanner) (*tourney.Tourney, error) {
	var t tourney.Tourney
	var class, starts, ends string
	var closed int
	if err := r.Scan(&t.ID, &class, &starts, &ends, &closed); err != nil {
		return nil, err
	}
	t.Class = tourney.Class(class)
	t.Closed = closed != 0
	var err error
	if t.StartsAt, err = time.Parse(timeLayout, starts); err != nil {
		return nil, fmt.Errorf("tourney %d: bad starts_at: %w", t.ID, err)
	}
	if t.EndsAt, err = time.Parse(timeLayout, ends); err != nil {
		return nil, fmt.Errorf("tourney %d: bad ends_at: %w", t.ID, err)
	}
	return &t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
