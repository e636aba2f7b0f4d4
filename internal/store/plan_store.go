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

// ErrNotFound is returned when a mutation targets a record that is not in
// the local collection.
var ErrNotFound = errors.New("record_not_found")

const plansSnapshotKey = "stores:study_plans"

// PlanStore is the local-first study-plans store.
type PlanStore struct {
	col    *collection[model.StudyPlan]
	api    remote.PlanAPI
	guard  *session.Guard
	clk    clock.Clock
	logger zerolog.Logger
}

// NewPlanStore creates a PlanStore, restoring its collection from the
// snapshot store.
func NewPlanStore(api remote.PlanAPI, guard *session.Guard, snap *snapshot.Store, clk clock.Clock, logger zerolog.Logger) *PlanStore {
	return &PlanStore{
		col: newCollection(snap, plansSnapshotKey,
			func(p model.StudyPlan) string { return p.ID },
			func(a, b model.StudyPlan) bool { return a.CreatedAt.After(b.CreatedAt) }),
		api:    api,
		guard:  guard,
		clk:    clk,
		logger: logger.With().Str("service", "PlanStore").Logger(),
	}
}

// Plans returns a copy of the local collection, newest first.
func (s *PlanStore) Plans() []model.StudyPlan { return s.col.all() }

// Get returns the local record by id.
func (s *PlanStore) Get(id string) (model.StudyPlan, bool) { return s.col.get(id) }

// Count returns the local collection size.
func (s *PlanStore) Count() int { return s.col.size() }

// LastSyncedAt returns when the collection last replaced itself from
// remote truth.
func (s *PlanStore) LastSyncedAt() time.Time { return s.col.syncedAt() }

// FetchAll replaces the local collection with the remote truth. Without a
// live session it is a silent no-op and callers keep the last local
// snapshot.
func (s *PlanStore) FetchAll(ctx context.Context) error {
	sess, err := s.guard.Require()
	if errors.Is(err, session.ErrUnauthenticated) {
		return nil
	}
	plans, err := s.api.List(ctx, sess)
	if err != nil {
		return fmt.Errorf("failed to fetch study plans: %w", err)
	}
	s.col.replace(plans, s.clk.Now())
	s.logger.Debug().Int("count", len(plans)).Msg("Replaced study plans from remote")
	return nil
}

// Create assigns identity and creation time, applies the plan locally so
// readers see it before this call returns, then propagates. On remote
// failure the local record is removed and the error returned.
func (s *PlanStore) Create(ctx context.Context, draft *model.StudyPlanDraft) (*model.StudyPlan, error) {
	sess, sessErr := s.guard.Require()

	plan := model.StudyPlan{
		ID:           uuid.NewString(),
		Title:        draft.Title,
		Description:  draft.Description,
		DurationDays: draft.DurationDays,
		Difficulty:   draft.Difficulty,
		Schedule:     draft.Schedule,
		CreatedAt:    s.clk.Now(),
	}
	if sess != nil {
		plan.UserID = sess.UserID
	}
	plan.Progress = model.Progress{
		TotalTasks: plan.TotalScheduledTasks(),
		TotalDays:  len(plan.Schedule),
	}

	cmd := createCommand{
		apply:      func() { s.col.put(plan) },
		compensate: func() { s.col.remove(plan.ID) },
	}
	if sessErr == nil {
		cmd.propagate = func() error { return s.api.Insert(ctx, sess, &plan) }
	}
	if err := cmd.run(); err != nil {
		s.logger.Error().Err(err).Str("plan_id", plan.ID).Msg("Remote insert failed; rolled back local plan")
		return nil, fmt.Errorf("failed to create study plan: %w", err)
	}
	return &plan, nil
}

// Update applies the patch locally and attempts the remote update. The
// local patch is kept on remote failure; the error is still returned and
// the divergence is reconciled by the next FetchAll.
func (s *PlanStore) Update(ctx context.Context, id string, patch func(*model.StudyPlan)) error {
	updated, ok := s.col.mutate(id, patch)
	if !ok {
		return fmt.Errorf("study plan %s: %w", id, ErrNotFound)
	}
	sess, err := s.guard.Require()
	if errors.Is(err, session.ErrUnauthenticated) {
		return nil
	}
	if err := s.api.Update(ctx, sess, &updated); err != nil {
		s.logger.Warn().Err(err).Str("plan_id", id).Msg("Remote update failed; keeping optimistic local state")
		return fmt.Errorf("failed to update study plan remotely: %w", err)
	}
	return nil
}

// Delete removes the plan locally and attempts the remote delete. The
// record is not restored on failure; a successful later FetchAll may
// resurrect it if the remote delete truly failed.
func (s *PlanStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.col.remove(id); !ok {
		return fmt.Errorf("study plan %s: %w", id, ErrNotFound)
	}
	sess, err := s.guard.Require()
	if errors.Is(err, session.ErrUnauthenticated) {
		return nil
	}
	if err := s.api.Delete(ctx, sess, id); err != nil {
		s.logger.Warn().Err(err).Str("plan_id", id).Msg("Remote delete failed; local removal kept")
		return fmt.Errorf("failed to delete study plan remotely: %w", err)
	}
	return nil
}

// AttachFile appends an uploaded file to the plan's attachment list.
func (s *PlanStore) AttachFile(ctx context.Context, planID string, file model.AttachedFile) error {
	return s.Update(ctx, planID, func(p *model.StudyPlan) {
		p.Files = append(p.Files, file)
	})
}
