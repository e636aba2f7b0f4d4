package model

import "time"

// QuizResult records one quiz attempt. Results are immutable once created;
// retakes produce additional rows for the same quiz.
type QuizResult struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	PlanID          string    `db:"plan_id" json:"plan_id"`
	QuizID          string    `db:"quiz_id" json:"quiz_id"`
	Score           int       `db:"score" json:"score"`
	SelectedAnswers []int     `db:"selected_answers" json:"selected_answers"`
	Passed          bool      `db:"passed" json:"passed"`
	CompletedAt     time.Time `db:"completed_at" json:"completed_at"`
}
