package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// PostgresBackend implements Backend directly against the backing Postgres
// database for self-hosted deployments, bypassing the REST layer. Row-level
// ownership is enforced in every statement.
type PostgresBackend struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresBackend creates a Postgres-backed Backend.
func NewPostgresBackend(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresBackend {
	return &PostgresBackend{
		pool:   pool,
		logger: logger.With().Str("service", "PostgresBackend").Logger(),
	}
}

func (b *PostgresBackend) Plans() PlanAPI             { return &pgPlans{b} }
func (b *PostgresBackend) Completions() CompletionAPI { return &pgCompletions{b} }
func (b *PostgresBackend) QuizResults() QuizAPI       { return &pgQuizResults{b} }
func (b *PostgresBackend) Usage() UsageAPI            { return &pgUsage{b} }

// wrapPgErr maps driver errors onto the remote error taxonomy.
func wrapPgErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %v: %w", op, err, ErrRemoteUnavailable)
}

type pgPlans struct{ b *PostgresBackend }

func (r *pgPlans) List(ctx context.Context, sess *model.Session) ([]model.StudyPlan, error) {
	const q = `
		SELECT id, user_id, title, description, duration_days, difficulty, schedule, files, progress, created_at
		FROM study_plans
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.b.pool.Query(ctx, q, sess.UserID)
	if err != nil {
		return nil, wrapPgErr("query study plans", err)
	}
	defer rows.Close()

	plans := []model.StudyPlan{}
	for rows.Next() {
		var p model.StudyPlan
		var schedule, files, progress []byte
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.Description, &p.DurationDays, &p.Difficulty, &schedule, &files, &progress, &p.CreatedAt); err != nil {
			return nil, wrapPgErr("scan study plan", err)
		}
		if len(schedule) > 0 {
			if err := json.Unmarshal(schedule, &p.Schedule); err != nil {
				return nil, fmt.Errorf("failed to decode schedule for plan %s: %w", p.ID, err)
			}
		}
		if len(files) > 0 {
			if err := json.Unmarshal(files, &p.Files); err != nil {
				return nil, fmt.Errorf("failed to decode files for plan %s: %w", p.ID, err)
			}
		}
		if len(progress) > 0 {
			if err := json.Unmarshal(progress, &p.Progress); err != nil {
				return nil, fmt.Errorf("failed to decode progress for plan %s: %w", p.ID, err)
			}
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgErr("iterate study plans", err)
	}
	return plans, nil
}

func (r *pgPlans) Insert(ctx context.Context, sess *model.Session, plan *model.StudyPlan) error {
	schedule, err := json.Marshal(plan.Schedule)
	if err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}
	files, err := json.Marshal(plan.Files)
	if err != nil {
		return fmt.Errorf("failed to encode files: %w", err)
	}
	progress, err := json.Marshal(plan.Progress)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}
	const q = `
		INSERT INTO study_plans (id, user_id, title, description, duration_days, difficulty, schedule, files, progress, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.b.pool.Exec(ctx, q, plan.ID, sess.UserID, plan.Title, plan.Description, plan.DurationDays, plan.Difficulty, schedule, files, progress, plan.CreatedAt)
	return wrapPgErr("insert study plan", err)
}

func (r *pgPlans) Update(ctx context.Context, sess *model.Session, plan *model.StudyPlan) error {
	schedule, err := json.Marshal(plan.Schedule)
	if err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}
	files, err := json.Marshal(plan.Files)
	if err != nil {
		return fmt.Errorf("failed to encode files: %w", err)
	}
	progress, err := json.Marshal(plan.Progress)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}
	const q = `
		UPDATE study_plans
		SET title = $3, description = $4, duration_days = $5, difficulty = $6, schedule = $7, files = $8, progress = $9
		WHERE id = $1 AND user_id = $2
	`
	_, err = r.b.pool.Exec(ctx, q, plan.ID, sess.UserID, plan.Title, plan.Description, plan.DurationDays, plan.Difficulty, schedule, files, progress)
	return wrapPgErr("update study plan", err)
}

func (r *pgPlans) Delete(ctx context.Context, sess *model.Session, id string) error {
	const q = `DELETE FROM study_plans WHERE id = $1 AND user_id = $2`
	_, err := r.b.pool.Exec(ctx, q, id, sess.UserID)
	return wrapPgErr("delete study plan", err)
}

type pgCompletions struct{ b *PostgresBackend }

func (r *pgCompletions) List(ctx context.Context, sess *model.Session) ([]model.TaskCompletion, error) {
	const q = `
		SELECT id, user_id, plan_id, day_index, task_index, completed_at
		FROM task_completions
		WHERE user_id = $1
	`
	rows, err := r.b.pool.Query(ctx, q, sess.UserID)
	if err != nil {
		return nil, wrapPgErr("query task completions", err)
	}
	defer rows.Close()

	completions := []model.TaskCompletion{}
	for rows.Next() {
		var c model.TaskCompletion
		if err := rows.Scan(&c.ID, &c.UserID, &c.PlanID, &c.DayIndex, &c.TaskIndex, &c.CompletedAt); err != nil {
			return nil, wrapPgErr("scan task completion", err)
		}
		completions = append(completions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgErr("iterate task completions", err)
	}
	return completions, nil
}

func (r *pgCompletions) Insert(ctx context.Context, sess *model.Session, completion *model.TaskCompletion) error {
	const q = `
		INSERT INTO task_completions (id, user_id, plan_id, day_index, task_index, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.b.pool.Exec(ctx, q, completion.ID, sess.UserID, completion.PlanID, completion.DayIndex, completion.TaskIndex, completion.CompletedAt)
	return wrapPgErr("insert task completion", err)
}

func (r *pgCompletions) Delete(ctx context.Context, sess *model.Session, id string) error {
	const q = `DELETE FROM task_completions WHERE id = $1 AND user_id = $2`
	_, err := r.b.pool.Exec(ctx, q, id, sess.UserID)
	return wrapPgErr("delete task completion", err)
}

type pgQuizResults struct{ b *PostgresBackend }

func (r *pgQuizResults) List(ctx context.Context, sess *model.Session) ([]model.QuizResult, error) {
	const q = `
		SELECT id, user_id, plan_id, quiz_id, score, selected_answers, passed, completed_at
		FROM quiz_results
		WHERE user_id = $1
	`
	rows, err := r.b.pool.Query(ctx, q, sess.UserID)
	if err != nil {
		return nil, wrapPgErr("query quiz results", err)
	}
	defer rows.Close()

	results := []model.QuizResult{}
	for rows.Next() {
		var res model.QuizResult
		var answers []byte
		if err := rows.Scan(&res.ID, &res.UserID, &res.PlanID, &res.QuizID, &res.Score, &answers, &res.Passed, &res.CompletedAt); err != nil {
			return nil, wrapPgErr("scan quiz result", err)
		}
		if len(answers) > 0 {
			if err := json.Unmarshal(answers, &res.SelectedAnswers); err != nil {
				return nil, fmt.Errorf("failed to decode answers for result %s: %w", res.ID, err)
			}
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgErr("iterate quiz results", err)
	}
	return results, nil
}

func (r *pgQuizResults) Insert(ctx context.Context, sess *model.Session, result *model.QuizResult) error {
	answers, err := json.Marshal(result.SelectedAnswers)
	if err != nil {
		return fmt.Errorf("failed to encode answers: %w", err)
	}
	const q = `
		INSERT INTO quiz_results (id, user_id, plan_id, quiz_id, score, selected_answers, passed, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.b.pool.Exec(ctx, q, result.ID, sess.UserID, result.PlanID, result.QuizID, result.Score, answers, result.Passed, result.CompletedAt)
	return wrapPgErr("insert quiz result", err)
}

type pgUsage struct{ b *PostgresBackend }

// usageColumns whitelists dimension column names for the upsert statement.
var usageColumns = map[model.Dimension]string{
	model.DimPlansCreated:  "plans_created",
	model.DimAIRequests:    "ai_requests",
	model.DimFileUploads:   "file_uploads",
	model.DimGroupsCreated: "study_groups_created",
	model.DimStorageBytes:  "storage_bytes_used",
}

func (r *pgUsage) GetMonth(ctx context.Context, sess *model.Session, month string) (*model.UsageLedger, error) {
	const q = `
		SELECT user_id, month, plans_created, ai_requests, file_uploads, study_groups_created, storage_bytes_used
		FROM monthly_usage
		WHERE user_id = $1 AND month = $2
	`
	var l model.UsageLedger
	err := r.b.pool.QueryRow(ctx, q, sess.UserID, month).
		Scan(&l.UserID, &l.Month, &l.PlansCreated, &l.AIRequests, &l.FileUploads, &l.GroupsCreated, &l.StorageBytesUsed)
	if err != nil {
		return nil, wrapPgErr("get monthly usage", err)
	}
	return &l, nil
}

func (r *pgUsage) UpsertDimension(ctx context.Context, sess *model.Session, month string, dim model.Dimension, value int64) error {
	column, ok := usageColumns[dim]
	if !ok {
		return fmt.Errorf("unknown usage dimension %q", dim)
	}
	q := fmt.Sprintf(`
		INSERT INTO monthly_usage (user_id, month, %s)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, month) DO UPDATE SET %s = EXCLUDED.%s
	`, column, column, column)
	_, err := r.b.pool.Exec(ctx, q, sess.UserID, month, value)
	return wrapPgErr("upsert monthly usage", err)
}
