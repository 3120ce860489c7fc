package lifecycle

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	"github.com/syuvi-tf/syuvi/internal/tourney"
	"github.com/syuvi-tf/syuvi/pkg/logx"
)

// Store is the slice of the time store the scheduler needs.
type Store interface {
	ActiveTourney(ctx context.Context) (*tourney.Tourney, error)
	Tourney(ctx context.Context, id int64) (*tourney.Tourney, error)
	CloseTourney(ctx context.Context, id int64) error
}

// Announcer delivers lifecycle announcements and signup-list refreshes.
// Calls are fire-and-forget from the scheduler's point of view.
type Announcer interface {
	AnnounceStart(ctx context.Context, t *tourney.Tourney)
	AnnounceEnd(ctx context.Context, t *tourney.Tourney)
	RefreshSignupList(ctx context.Context, t *tourney.Tourney)
}

// Projector pushes tourney state to the external sheet.
type Projector interface {
	UpdateSheetTimes(ctx context.Context, t *tourney.Tourney)
	UpdateSheetSignups(ctx context.Context, t *tourney.Tourney)
}

// Config controls the periodic refresh cadence.
type Config struct {
	SignupRefreshEvery time.Duration // 0 means 5m
	SheetRefreshEvery  time.Duration // 0 means 15m
}

func (c Config) withDefaults() Config {
	if c.SignupRefreshEvery <= 0 {
		c.SignupRefreshEvery = 5 * time.Minute
	}
	if c.SheetRefreshEvery <= 0 {
		c.SheetRefreshEvery = 15 * time.Minute
	}
	return c
}

// Scheduler owns the armed timer set. One instance per process; Stop cancels
// every handle explicitly rather than leaning on process exit.
type Scheduler struct {
	cfg   Config
	store Store
	ann   Announcer
	proj  Projector
	clock clockwork.Clock
	log   logx.Logger

	mu      sync.Mutex
	timers  map[string]clockwork.Timer
	fired   map[string]bool
	cronIDs map[int64][]cron.EntryID

	c       *cron.Cron
	runCtx  context.Context
	cancel  context.CancelFunc
	started bool
}

func New(cfg Config, store Store, ann Announcer, proj Projector, clock clockwork.Clock, log logx.Logger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		cfg:     cfg.withDefaults(),
		store:   store,
		ann:     ann,
		proj:    proj,
		clock:   clock,
		log:     log,
		timers:  map[string]clockwork.Timer{},
		fired:   map[string]bool{},
		cronIDs: map[int64][]cron.EntryID{},
		c:       cron.New(),
	}
}

// Start re-derives the schedule from the store and arms only the timers that
// apply to the current moment. A start instant already behind us does not
// re-announce; the tourney goes straight into its running behavior.
//
// More than one active tourney is a data-integrity fault: Start fails and
// arms nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.runCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Unlock()

	t, err := s.store.ActiveTourney(ctx)
	if err != nil {
		// Leave the scheduler restartable: a transient store failure at boot
		// must not turn every later Start into a silent no-op.
		s.mu.Lock()
		s.started = false
		cancel := s.cancel
		s.cancel = nil
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return fmt.Errorf("querying active tourney: %w", err)
	}
	s.c.Start()
	if t == nil {
		s.log.Info("no active tourney; nothing to schedule")
		return nil
	}
	s.Track(t)
	return nil
}

// Track arms the timers applicable to the tourney's current phase.
func (s *Scheduler) Track(t *tourney.Tourney) {
	now := s.clock.Now()
	phase := tourney.PhaseAt(t, now)
	s.log.Info("tracking tourney",
		logx.Int64("tourney_id", t.ID), logx.String("class", string(t.Class)),
		logx.String("phase", phase.String()),
		logx.Time("starts_at", t.StartsAt), logx.Time("ends_at", t.EndsAt))

	switch phase {
	case tourney.PhaseScheduled:
		s.armTimer(startKey(t.ID), t.StartsAt, func(ctx context.Context) { s.onStart(ctx, t.ID) })
		s.armSignupRefresh(t.ID)
	case tourney.PhaseRunning:
		s.enterRunning(t, false)
	case tourney.PhaseEnded:
		// Terminal for scheduling purposes; closing still happens via
		// other entry points if the flag is not set yet.
	}
}

// Stop cancels all armed handles and the refresh jobs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	timers := s.timers
	s.timers = map[string]clockwork.Timer{}
	s.cronIDs = map[int64][]cron.EntryID{}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, t := range timers {
		stopAndDrainTimer(t)
	}
	<-s.c.Stop().Done()
}

// ArmedTimers reports the keys of currently armed one-shot timers.
func (s *Scheduler) ArmedTimers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.timers))
	for k := range s.timers {
		keys = append(keys, k)
	}
	return keys
}

func startKey(id int64) string { return fmt.Sprintf("start:%d", id) }
func endKey(id int64) string   { return fmt.Sprintf("end:%d", id) }

// armTimer arms a single-shot deferred action for an absolute instant.
// An instant already in the past fires immediately, still at most once.
func (s *Scheduler) armTimer(key string, at time.Time, action func(ctx context.Context)) {
	s.mu.Lock()
	if s.fired[key] {
		s.mu.Unlock()
		return
	}
	if old, ok := s.timers[key]; ok {
		stopAndDrainTimer(old)
		delete(s.timers, key)
	}
	ctx := s.runCtx
	if ctx == nil {
		ctx = context.Background()
	}

	d := at.Sub(s.clock.Now())
	if d <= 0 {
		s.mu.Unlock()
		s.log.Warn("fire instant already passed; firing now", logx.String("timer", key), logx.Time("at", at))
		go s.fire(ctx, key, action)
		return
	}

	timer := s.clock.NewTimer(d)
	s.timers[key] = timer
	s.mu.Unlock()
	s.log.Info("timer armed", logx.String("timer", key), logx.Time("at", at), logx.Duration("in", d))

	go func() {
		select {
		case <-timer.Chan():
			s.mu.Lock()
			delete(s.timers, key)
			s.mu.Unlock()
			s.fire(ctx, key, action)
		case <-ctx.Done():
			stopAndDrainTimer(timer)
			s.mu.Lock()
			delete(s.timers, key)
			s.mu.Unlock()
		}
	}()
}

// fire runs a timer action exactly once per logical transition. A panic or
// error inside the action is contained: it is logged and the rest of the
// armed set stays armed.
func (s *Scheduler) fire(ctx context.Context, key string, action func(ctx context.Context)) {
	s.mu.Lock()
	if s.fired[key] {
		s.mu.Unlock()
		return
	}
	s.fired[key] = true
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in timer action",
				logx.String("timer", key), logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
		}
	}()
	action(ctx)
}

func (s *Scheduler) onStart(ctx context.Context, id int64) {
	t, err := s.store.Tourney(ctx, id)
	if err != nil {
		s.log.Error("start transition: reload failed", logx.Int64("tourney_id", id), logx.Err(err))
		return
	}
	if tourney.PhaseAt(t, s.clock.Now()) == tourney.PhaseEnded {
		// Should never coexist with a pending start timer, but stay safe
		// if it does.
		s.log.Warn("start fired for ended tourney; skipping", logx.Int64("tourney_id", id))
		return
	}
	s.log.Info("tourney started", logx.Int64("tourney_id", id))
	// Arm the end timer before announcing: the announcement may throw, and a
	// failed announcement must never cost the tourney its end transition.
	s.enterRunning(t, true)
	s.ann.AnnounceStart(ctx, t)
}

func (s *Scheduler) onEnd(ctx context.Context, id int64) {
	t, err := s.store.Tourney(ctx, id)
	if err != nil {
		s.log.Error("end transition: reload failed", logx.Int64("tourney_id", id), logx.Err(err))
		return
	}

	// A still-pending start timer for an ended tourney must die with it.
	s.mu.Lock()
	if timer, ok := s.timers[startKey(id)]; ok {
		stopAndDrainTimer(timer)
		delete(s.timers, startKey(id))
	}
	s.fired[startKey(id)] = true
	s.mu.Unlock()
	s.removeCronJobs(id)

	if err := s.store.CloseTourney(ctx, id); err != nil {
		s.log.Error("end transition: closing tourney failed", logx.Int64("tourney_id", id), logx.Err(err))
	}
	s.log.Info("tourney ended", logx.Int64("tourney_id", id))
	s.ann.AnnounceEnd(ctx, t)
	s.proj.UpdateSheetTimes(ctx, t)
}

// enterRunning arms the running-phase behavior: the end timer plus the
// periodic refresh jobs. Boot-time re-derivation lands here directly, so a
// restart mid-tourney never repeats the start announcement.
func (s *Scheduler) enterRunning(t *tourney.Tourney, fromStart bool) {
	s.armTimer(endKey(t.ID), t.EndsAt, func(ctx context.Context) { s.onEnd(ctx, t.ID) })
	if !fromStart {
		s.armSignupRefresh(t.ID)
	}
	s.armSheetRefresh(t.ID)
}

func (s *Scheduler) armSignupRefresh(id int64) {
	s.armCron(id, s.cfg.SignupRefreshEvery, func(ctx context.Context, t *tourney.Tourney) {
		s.ann.RefreshSignupList(ctx, t)
		s.proj.UpdateSheetSignups(ctx, t)
	})
}

func (s *Scheduler) armSheetRefresh(id int64) {
	s.armCron(id, s.cfg.SheetRefreshEvery, func(ctx context.Context, t *tourney.Tourney) {
		s.proj.UpdateSheetTimes(ctx, t)
	})
}

// armCron registers a self-re-arming refresh job that retires itself once
// the tourney reaches its ended phase.
func (s *Scheduler) armCron(id int64, every time.Duration, job func(ctx context.Context, t *tourney.Tourney)) {
	entry := s.c.Schedule(cron.Every(every), cron.FuncJob(func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("panic in refresh job",
					logx.Int64("tourney_id", id), logx.Any("panic", r),
					logx.String("stack", string(debug.Stack())))
			}
		}()

		s.mu.Lock()
		ctx := s.runCtx
		s.mu.Unlock()
		if ctx == nil || ctx.Err() != nil {
			return
		}

		t, err := s.store.Tourney(ctx, id)
		if err != nil {
			s.log.Error("refresh job: reload failed", logx.Int64("tourney_id", id), logx.Err(err))
			return
		}
		if tourney.PhaseAt(t, s.clock.Now()) == tourney.PhaseEnded {
			s.removeCronJobs(id)
			return
		}
		job(ctx, t)
	}))

	s.mu.Lock()
	s.cronIDs[id] = append(s.cronIDs[id], entry)
	s.mu.Unlock()
}

// removeCronJobs drops every refresh entry registered for the tourney.
func (s *Scheduler) removeCronJobs(id int64) {
	s.mu.Lock()
	ids := s.cronIDs[id]
	delete(s.cronIDs, id)
	s.mu.Unlock()
	for _, entry := range ids {
		s.c.Remove(entry)
	}
}

// stopAndDrainTimer safely stops a timer and drains its channel so the
// firing goroutine cannot leak.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
