package model

import "time"

// TaskCompletion records that a user completed one task of a study plan.
// At most one record should exist per (user, plan, day, task) address; the
// store enforces this with a check before insert, so it is best effort
// under concurrent writers.
type TaskCompletion struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	PlanID      string    `db:"plan_id" json:"plan_id"`
	DayIndex    int       `db:"day_index" json:"day_index"`
	TaskIndex   int       `db:"task_index" json:"task_index"`
	CompletedAt time.Time `db:"completed_at" json:"completed_at"`
}

// Address returns the composite task address within the plan.
func (c *TaskCompletion) Address() (planID string, dayIndex, taskIndex int) {
	return c.PlanID, c.DayIndex, c.TaskIndex
}
