// Package scheduler decides when the entity stores and the usage ledger
// re-fetch authoritative state from remote: after an authentication
// transition (with a settling delay), on a fixed interval, and on renewed
// foreground focus. Concurrent triggers are serialized so at most one sync
// cycle runs at a time; a trigger arriving mid-cycle is dropped rather
// than queued.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State of the scheduler's store family.
type State int

const (
	// StateDisabled means no authenticated session; triggers are ignored.
	StateDisabled State = iota
	// StateIdle means authenticated and waiting for the next trigger.
	StateIdle
	// StateSyncing means a sync cycle is in flight.
	StateSyncing
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateIdle:
		return "idle"
	case StateSyncing:
		return "syncing"
	default:
		return "unknown"
	}
}

// Target is one store family member refreshed by a sync cycle.
type Target interface {
	SyncName() string
	Sync(ctx context.Context) error
}

type funcTarget struct {
	name string
	fn   func(ctx context.Context) error
}

func (t funcTarget) SyncName() string               { return t.name }
func (t funcTarget) Sync(ctx context.Context) error { return t.fn(ctx) }

// NewTarget adapts a named fetch function to a Target.
func NewTarget(name string, fn func(ctx context.Context) error) Target {
	return funcTarget{name: name, fn: fn}
}

// Config holds scheduler timing.
type Config struct {
	// Interval is the periodic re-sync cadence while idle and
	// authenticated.
	Interval time.Duration
	// SettleDelay is how long to wait after sign-in before the first
	// sync, letting the session fully establish.
	SettleDelay time.Duration
}

// Scheduler orchestrates sync cycles over its targets.
type Scheduler struct {
	targets []Target
	cfg     Config
	logger  zerolog.Logger

	mu          sync.Mutex
	state       State
	settleTimer *time.Timer

	wg sync.WaitGroup
}

// New creates a Scheduler in the disabled state.
func New(targets []Target, cfg Config, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		targets: targets,
		cfg:     cfg,
		logger:  logger.With().Str("service", "SyncScheduler").Logger(),
	}
}

// State returns the current scheduler state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run drives the periodic trigger until ctx is cancelled. It blocks.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.SetAuthenticated(false)
			s.wg.Wait()
			return
		case <-ticker.C:
			s.trigger(ctx, "interval")
		}
	}
}

// SetAuthenticated records an authentication transition. Signing in arms
// the settle-delay timer for the first sync; signing out disables the
// scheduler and cancels any pending timer. An in-flight cycle is not
// aborted but finishes into the disabled state.
func (s *Scheduler) SetAuthenticated(authed bool) {
	s.mu.Lock()
	if authed {
		if s.state == StateDisabled {
			s.state = StateIdle
			s.settleTimer = time.AfterFunc(s.cfg.SettleDelay, func() {
				s.trigger(context.Background(), "auth")
			})
			s.logger.Info().Dur("settle_delay", s.cfg.SettleDelay).Msg("Signed in; first sync scheduled")
		}
		s.mu.Unlock()
		return
	}

	s.state = StateDisabled
	if s.settleTimer != nil {
		s.settleTimer.Stop()
		s.settleTimer = nil
	}
	s.mu.Unlock()
	s.logger.Info().Msg("Signed out; sync disabled")
}

// NotifyFocus triggers a sync when the application regains foreground
// focus while authenticated.
func (s *Scheduler) NotifyFocus(ctx context.Context) {
	s.trigger(ctx, "focus")
}

// trigger starts a sync cycle if the scheduler is idle. Re-entrant
// triggers while a cycle is in flight are dropped: if the periodic
// interval and a focus event coincide, only one cycle executes.
func (s *Scheduler) trigger(ctx context.Context, reason string) {
	s.mu.Lock()
	if s.state != StateIdle {
		dropped := s.state
		s.mu.Unlock()
		s.logger.Debug().Str("reason", reason).Stringer("state", dropped).Msg("Sync trigger dropped")
		return
	}
	s.state = StateSyncing
	s.mu.Unlock()

	s.runCycle(ctx, reason)
}

// runCycle fans out to every target concurrently and waits for all to
// settle; one target's failure does not cancel the others and never stops
// future cycles.
func (s *Scheduler) runCycle(ctx context.Context, reason string) {
	start := time.Now()
	s.logger.Debug().Str("reason", reason).Msg("Sync cycle started")

	var wg sync.WaitGroup
	for _, target := range s.targets {
		wg.Add(1)
		s.wg.Add(1)
		go func(t Target) {
			defer wg.Done()
			defer s.wg.Done()
			if err := t.Sync(ctx); err != nil {
				s.logger.Error().Err(err).Str("target", t.SyncName()).Msg("Sync target failed")
			}
		}(target)
	}
	wg.Wait()

	s.mu.Lock()
	if s.state == StateSyncing {
		// A sign-out mid-cycle leaves the state disabled; its result is
		// discarded by the stores' own session checks.
		s.state = StateIdle
	}
	s.mu.Unlock()

	s.logger.Info().Str("reason", reason).Dur("duration", time.Since(start)).Msg("Sync cycle complete")
}
