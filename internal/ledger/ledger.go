// Package ledger tracks the per-user, per-month consumption counters that
// back the quota gate. Reads resolve month rollover lazily; increments are
// local-first with a best-effort absolute-value mirror to remote, so a
// failed or repeated remote write is safe.
package ledger

import (
	"context"
	"errors"
	"sync"

	"app/internal/clock"
	"app/internal/model"
	"app/internal/remote"
	"app/internal/session"
	"app/internal/snapshot"

	"github.com/rs/zerolog"
)

const usageSnapshotKey = "stores:monthly_usage"

// Store holds the current month's usage ledger.
type Store struct {
	mu      sync.Mutex
	current model.UsageLedger

	api    remote.UsageAPI
	guard  *session.Guard
	snap   *snapshot.Store
	clk    clock.Clock
	logger zerolog.Logger
}

// NewStore creates a ledger Store, restoring the last persisted ledger.
// The restored ledger may belong to an earlier month; rollover is resolved
// lazily on the next read or increment.
func NewStore(api remote.UsageAPI, guard *session.Guard, snap *snapshot.Store, clk clock.Clock, logger zerolog.Logger) *Store {
	s := &Store{
		api:    api,
		guard:  guard,
		snap:   snap,
		clk:    clk,
		logger: logger.With().Str("service", "UsageLedger").Logger(),
	}
	restored := snap != nil && snap.LoadJSON(usageSnapshotKey, &s.current)
	if !restored {
		s.current = *model.NewUsageLedger("", model.MonthKey(clk.Now()))
	}
	return s
}

// rolloverLocked resets the ledger when the stored month differs from the
// wall-clock month. It reports whether a reset happened. Callers must hold
// the lock.
func (s *Store) rolloverLocked() bool {
	month := model.MonthKey(s.clk.Now())
	if s.current.Month == month {
		return false
	}
	s.current = *model.NewUsageLedger(s.current.UserID, month)
	s.persistLocked()
	return true
}

func (s *Store) persistLocked() {
	if s.snap != nil {
		s.snap.SaveJSON(usageSnapshotKey, &s.current)
	}
}

// Read returns the current month's ledger. A month boundary yields a fresh
// zeroed ledger without contacting remote. Otherwise, when a live session
// exists, the authoritative remote ledger replaces the local reading if
// found; an unreachable remote or missing row leaves the local reading
// unchanged.
func (s *Store) Read(ctx context.Context) model.UsageLedger {
	s.mu.Lock()
	if s.rolloverLocked() {
		current := s.current
		s.mu.Unlock()
		return current
	}
	month := s.current.Month
	s.mu.Unlock()

	sess, err := s.guard.Require()
	if errors.Is(err, session.ErrUnauthenticated) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.current
	}

	remoteLedger, err := s.api.GetMonth(ctx, sess, month)
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err == nil && remoteLedger.Month == s.current.Month:
		// Remote is the source of truth when reachable.
		s.current = *remoteLedger
		s.persistLocked()
	case errors.Is(err, remote.ErrNotFound):
		// No remote row yet for this month; local reading stands.
	case err != nil:
		s.logger.Warn().Err(err).Str("month", month).Msg("Failed to fetch remote usage; using local reading")
	}
	return s.current
}

// Increment raises one dimension's counter. The local write is synchronous
// and rollover-aware; the remote upsert of the new absolute value is best
// effort and never surfaces an error, because usage tracking must not
// block the feature it is metering.
func (s *Store) Increment(ctx context.Context, dim model.Dimension, amount int64) {
	sess, sessErr := s.guard.Require()

	s.mu.Lock()
	s.rolloverLocked()
	if s.current.UserID == "" && sess != nil {
		s.current.UserID = sess.UserID
	}
	value := s.current.Add(dim, amount)
	month := s.current.Month
	s.persistLocked()
	s.mu.Unlock()

	if sessErr != nil {
		return
	}
	if err := s.api.UpsertDimension(ctx, sess, month, dim, value); err != nil {
		s.logger.Warn().Err(err).Str("dimension", string(dim)).Int64("value", value).
			Msg("Failed to mirror usage increment to remote")
	}
}
