package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/clock"
	"app/internal/model"
	"app/internal/remote"
	"app/internal/session"
	"app/internal/snapshot"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const completionsSnapshotKey = "stores:task_completions"

// CompletionStore is the local-first task-completions store. Completions
// are hard records: marking a task incomplete deletes the row rather than
// flipping a flag.
type CompletionStore struct {
	col    *collection[model.TaskCompletion]
	api    remote.CompletionAPI
	guard  *session.Guard
	clk    clock.Clock
	logger zerolog.Logger
}

// NewCompletionStore creates a CompletionStore, restoring its collection
// from the snapshot store.
func NewCompletionStore(api remote.CompletionAPI, guard *session.Guard, snap *snapshot.Store, clk clock.Clock, logger zerolog.Logger) *CompletionStore {
	return &CompletionStore{
		col: newCollection(snap, completionsSnapshotKey,
			func(c model.TaskCompletion) string { return c.ID },
			func(a, b model.TaskCompletion) bool { return a.CompletedAt.Before(b.CompletedAt) }),
		api:    api,
		guard:  guard,
		clk:    clk,
		logger: logger.With().Str("service", "CompletionStore").Logger(),
	}
}

// Completions returns a copy of the local collection.
func (s *CompletionStore) Completions() []model.TaskCompletion { return s.col.all() }

// Count returns the local collection size.
func (s *CompletionStore) Count() int { return s.col.size() }

// LastSyncedAt returns when the collection last replaced itself from
// remote truth.
func (s *CompletionStore) LastSyncedAt() time.Time { return s.col.syncedAt() }

// FindByAddress returns the completion for a (plan, day, task) address.
func (s *CompletionStore) FindByAddress(planID string, dayIndex, taskIndex int) (model.TaskCompletion, bool) {
	return s.col.find(func(c model.TaskCompletion) bool {
		return c.PlanID == planID && c.DayIndex == dayIndex && c.TaskIndex == taskIndex
	})
}

// CompletedCountForPlan counts local completions for one plan.
func (s *CompletionStore) CompletedCountForPlan(planID string) int {
	count := 0
	for _, c := range s.col.all() {
		if c.PlanID == planID {
			count++
		}
	}
	return count
}

// FetchAll replaces the local collection with the remote truth; a silent
// no-op without a live session.
func (s *CompletionStore) FetchAll(ctx context.Context) error {
	sess, err := s.guard.Require()
	if errors.Is(err, session.ErrUnauthenticated) {
		return nil
	}
	completions, err := s.api.List(ctx, sess)
	if err != nil {
		return fmt.Errorf("failed to fetch task completions: %w", err)
	}
	s.col.replace(completions, s.clk.Now())
	s.logger.Debug().Int("count", len(completions)).Msg("Replaced task completions from remote")
	return nil
}

// MarkComplete records a completion for the task address. A second call
// for the same address without an intervening MarkIncomplete returns the
// existing record; the check-before-insert keeps the at-most-one invariant
// best effort. Remote failure rolls the new record back.
func (s *CompletionStore) MarkComplete(ctx context.Context, planID string, dayIndex, taskIndex int) (*model.TaskCompletion, error) {
	if existing, ok := s.FindByAddress(planID, dayIndex, taskIndex); ok {
		return &existing, nil
	}

	sess, sessErr := s.guard.Require()
	completion := model.TaskCompletion{
		ID:          uuid.NewString(),
		PlanID:      planID,
		DayIndex:    dayIndex,
		TaskIndex:   taskIndex,
		CompletedAt: s.clk.Now(),
	}
	if sess != nil {
		completion.UserID = sess.UserID
	}

	cmd := createCommand{
		apply:      func() { s.col.put(completion) },
		compensate: func() { s.col.remove(completion.ID) },
	}
	if sessErr == nil {
		cmd.propagate = func() error { return s.api.Insert(ctx, sess, &completion) }
	}
	if err := cmd.run(); err != nil {
		s.logger.Error().Err(err).Str("plan_id", planID).Int("day", dayIndex).Int("task", taskIndex).
			Msg("Remote insert failed; rolled back local completion")
		return nil, fmt.Errorf("failed to record task completion: %w", err)
	}
	return &completion, nil
}

// MarkIncomplete hard-deletes the completion for the task address. The
// local removal is kept on remote failure.
func (s *CompletionStore) MarkIncomplete(ctx context.Context, planID string, dayIndex, taskIndex int) error {
	existing, ok := s.FindByAddress(planID, dayIndex, taskIndex)
	if !ok {
		return fmt.Errorf("completion for plan %s day %d task %d: %w", planID, dayIndex, taskIndex, ErrNotFound)
	}
	s.col.remove(existing.ID)

	sess, err := s.guard.Require()
	if errors.Is(err, session.ErrUnauthenticated) {
		return nil
	}
	if err := s.api.Delete(ctx, sess, existing.ID); err != nil {
		s.logger.Warn().Err(err).Str("completion_id", existing.ID).Msg("Remote delete failed; local removal kept")
		return fmt.Errorf("failed to delete task completion remotely: %w", err)
	}
	return nil
}
