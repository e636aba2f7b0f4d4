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

const quizResultsSnapshotKey = "stores:quiz_results"

// QuizStore is the local-first quiz-results store. Results are immutable
// once recorded; retakes add further rows for the same quiz.
type QuizStore struct {
	col    *collection[model.QuizResult]
	api    remote.QuizAPI
	guard  *session.Guard
	clk    clock.Clock
	logger zerolog.Logger
}

// NewQuizStore creates a QuizStore, restoring its collection from the
// snapshot store.
func NewQuizStore(api remote.QuizAPI, guard *session.Guard, snap *snapshot.Store, clk clock.Clock, logger zerolog.Logger) *QuizStore {
	return &QuizStore{
		col: newCollection(snap, quizResultsSnapshotKey,
			func(r model.QuizResult) string { return r.ID },
			func(a, b model.QuizResult) bool { return a.CompletedAt.Before(b.CompletedAt) }),
		api:    api,
		guard:  guard,
		clk:    clk,
		logger: logger.With().Str("service", "QuizStore").Logger(),
	}
}

// Results returns a copy of the local collection, oldest first.
func (s *QuizStore) Results() []model.QuizResult { return s.col.all() }

// ResultsForQuiz returns all recorded attempts for one quiz.
func (s *QuizStore) ResultsForQuiz(planID, quizID string) []model.QuizResult {
	results := []model.QuizResult{}
	for _, r := range s.col.all() {
		if r.PlanID == planID && r.QuizID == quizID {
			results = append(results, r)
		}
	}
	return results
}

// Count returns the local collection size.
func (s *QuizStore) Count() int { return s.col.size() }

// LastSyncedAt returns when the collection last replaced itself from
// remote truth.
func (s *QuizStore) LastSyncedAt() time.Time { return s.col.syncedAt() }

// FetchAll replaces the local collection with the remote truth; a silent
// no-op without a live session.
func (s *QuizStore) FetchAll(ctx context.Context) error {
	sess, err := s.guard.Require()
	if errors.Is(err, session.ErrUnauthenticated) {
		return nil
	}
	results, err := s.api.List(ctx, sess)
	if err != nil {
		return fmt.Errorf("failed to fetch quiz results: %w", err)
	}
	s.col.replace(results, s.clk.Now())
	s.logger.Debug().Int("count", len(results)).Msg("Replaced quiz results from remote")
	return nil
}

// Record stores a new quiz attempt. The pass flag is computed against the
// quiz's passing score. Remote failure rolls the local record back.
func (s *QuizStore) Record(ctx context.Context, planID, quizID string, score, passingScore int, selectedAnswers []int) (*model.QuizResult, error) {
	if score < 0 || score > 100 {
		return nil, fmt.Errorf("score %d out of range 0-100", score)
	}

	sess, sessErr := s.guard.Require()
	result := model.QuizResult{
		ID:              uuid.NewString(),
		PlanID:          planID,
		QuizID:          quizID,
		Score:           score,
		SelectedAnswers: selectedAnswers,
		Passed:          score >= passingScore,
		CompletedAt:     s.clk.Now(),
	}
	if sess != nil {
		result.UserID = sess.UserID
	}

	cmd := createCommand{
		apply:      func() { s.col.put(result) },
		compensate: func() { s.col.remove(result.ID) },
	}
	if sessErr == nil {
		cmd.propagate = func() error { return s.api.Insert(ctx, sess, &result) }
	}
	if err := cmd.run(); err != nil {
		s.logger.Error().Err(err).Str("quiz_id", quizID).Msg("Remote insert failed; rolled back local quiz result")
		return nil, fmt.Errorf("failed to record quiz result: %w", err)
	}
	return &result, nil
}
