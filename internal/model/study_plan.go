package model

import "time"

// Difficulty is the declared difficulty of a study plan.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// ScheduleTask is a single task inside a schedule day.
type ScheduleTask struct {
	Title       string `db:"title" json:"title"`
	Description string `db:"description" json:"description,omitempty"`
	DurationMin int    `db:"duration_min" json:"duration_min,omitempty"`
}

// ScheduleDay is one day of a study plan schedule with its ordered tasks.
type ScheduleDay struct {
	DayIndex int            `db:"day_index" json:"day_index"`
	Topic    string         `db:"topic" json:"topic,omitempty"`
	Tasks    []ScheduleTask `db:"tasks" json:"tasks"`
}

// AttachedFile is a file uploaded and attached to a study plan.
type AttachedFile struct {
	Name        string `db:"name" json:"name"`
	StoragePath string `db:"storage_path" json:"storage_path"`
	SizeBytes   int64  `db:"size_bytes" json:"size_bytes"`
	ContentType string `db:"content_type" json:"content_type,omitempty"`
}

// Progress is the cached completion counter snapshot of a study plan.
// It is maintained by the task-completion flow; TaskCompletion records
// remain the source of truth and the two can drift until the next sync.
type Progress struct {
	CompletedTasks int `db:"completed_tasks" json:"completed_tasks"`
	TotalTasks     int `db:"total_tasks" json:"total_tasks"`
	CompletedDays  int `db:"completed_days" json:"completed_days"`
	TotalDays      int `db:"total_days" json:"total_days"`
}

// StudyPlan represents a user's study plan.
type StudyPlan struct {
	ID           string         `db:"id" json:"id"`
	UserID       string         `db:"user_id" json:"user_id"`
	Title        string         `db:"title" json:"title"`
	Description  string         `db:"description" json:"description,omitempty"`
	DurationDays int            `db:"duration_days" json:"duration_days"`
	Difficulty   Difficulty     `db:"difficulty" json:"difficulty"`
	Schedule     []ScheduleDay  `db:"schedule" json:"schedule"`
	Files        []AttachedFile `db:"files" json:"files,omitempty"`
	Progress     Progress       `db:"progress" json:"progress"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// TotalScheduledTasks counts the tasks across all schedule days.
func (p *StudyPlan) TotalScheduledTasks() int {
	total := 0
	for _, day := range p.Schedule {
		total += len(day.Tasks)
	}
	return total
}

// StudyPlanDraft is the caller-supplied input for creating a study plan.
// ID, owner, progress totals and timestamps are assigned by the store.
type StudyPlanDraft struct {
	Title        string        `json:"title" validate:"required,max=200"`
	Description  string        `json:"description" validate:"max=2000"`
	DurationDays int           `json:"duration_days" validate:"gt=0"`
	Difficulty   Difficulty    `json:"difficulty" validate:"required,oneof=beginner intermediate advanced"`
	Schedule     []ScheduleDay `json:"schedule" validate:"required,min=1,dive"`
}
