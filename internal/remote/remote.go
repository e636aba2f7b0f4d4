// Package remote defines the contract with the remote system of record:
// authenticated CRUD over the four collections (study plans, task
// completions, quiz results, monthly usage) with row-level owner
// filtering. The subsystem treats it as an external collaborator and
// tolerates its failure everywhere.
package remote

import (
	"context"
	"errors"

	"app/internal/model"
)

var (
	// ErrRemoteUnavailable covers network and backend failures during
	// propagation. Create rolls back on it; update/delete/increment log
	// and keep local state.
	ErrRemoteUnavailable = errors.New("remote_unavailable")

	// ErrUnauthorized is returned when the backend rejects the session
	// token.
	ErrUnauthorized = errors.New("remote_unauthorized")

	// ErrNotFound is returned by lookups that match no row.
	ErrNotFound = errors.New("remote_not_found")
)

// PlanAPI is the remote study-plans collection.
type PlanAPI interface {
	List(ctx context.Context, sess *model.Session) ([]model.StudyPlan, error)
	Insert(ctx context.Context, sess *model.Session, plan *model.StudyPlan) error
	Update(ctx context.Context, sess *model.Session, plan *model.StudyPlan) error
	Delete(ctx context.Context, sess *model.Session, id string) error
}

// CompletionAPI is the remote task-completions collection.
type CompletionAPI interface {
	List(ctx context.Context, sess *model.Session) ([]model.TaskCompletion, error)
	Insert(ctx context.Context, sess *model.Session, completion *model.TaskCompletion) error
	Delete(ctx context.Context, sess *model.Session, id string) error
}

// QuizAPI is the remote quiz-results collection. Results are immutable, so
// there is no update or delete.
type QuizAPI interface {
	List(ctx context.Context, sess *model.Session) ([]model.QuizResult, error)
	Insert(ctx context.Context, sess *model.Session, result *model.QuizResult) error
}

// UsageAPI is the remote monthly-usage collection, keyed by (owner, month)
// with upsert semantics. UpsertDimension writes the absolute counter value,
// not a delta, so a retried write is safe.
type UsageAPI interface {
	GetMonth(ctx context.Context, sess *model.Session, month string) (*model.UsageLedger, error)
	UpsertDimension(ctx context.Context, sess *model.Session, month string, dim model.Dimension, value int64) error
}

// Backend bundles the four collection clients.
type Backend interface {
	Plans() PlanAPI
	Completions() CompletionAPI
	QuizResults() QuizAPI
	Usage() UsageAPI
}
