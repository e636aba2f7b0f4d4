package store

import (
	"context"
	"sync"
	"time"

	"app/internal/clock"
	"app/internal/model"
	"app/internal/remote"
	"app/internal/session"

	"github.com/rs/zerolog"
)

// fakeProvider is a session.Provider returning a canned session.
type fakeProvider struct {
	mu   sync.Mutex
	sess *model.Session
}

func (p *fakeProvider) Current() *model.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sess
}

func signedInGuard() *session.Guard {
	provider := &fakeProvider{sess: &model.Session{
		UserID:      "user-1",
		Email:       "user@example.com",
		AccessToken: "token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}}
	return session.NewGuard(provider, zerolog.Nop())
}

func signedOutGuard() *session.Guard {
	return session.NewGuard(&fakeProvider{}, zerolog.Nop())
}

func testClock() *clock.Fixed {
	return &clock.Fixed{T: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
}

// fakePlanAPI implements remote.PlanAPI with per-call failure injection.
type fakePlanAPI struct {
	mu    sync.Mutex
	rows  []model.StudyPlan
	calls map[string]int

	failInsert bool
	failUpdate bool
	failDelete bool
	failList   bool
}

func newFakePlanAPI() *fakePlanAPI {
	return &fakePlanAPI{calls: map[string]int{}}
}

func (f *fakePlanAPI) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakePlanAPI) List(ctx context.Context, sess *model.Session) ([]model.StudyPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["list"]++
	if f.failList {
		return nil, remote.ErrRemoteUnavailable
	}
	return append([]model.StudyPlan{}, f.rows...), nil
}

func (f *fakePlanAPI) Insert(ctx context.Context, sess *model.Session, plan *model.StudyPlan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["insert"]++
	if f.failInsert {
		return remote.ErrRemoteUnavailable
	}
	f.rows = append(f.rows, *plan)
	return nil
}

func (f *fakePlanAPI) Update(ctx context.Context, sess *model.Session, plan *model.StudyPlan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["update"]++
	if f.failUpdate {
		return remote.ErrRemoteUnavailable
	}
	for i := range f.rows {
		if f.rows[i].ID == plan.ID {
			f.rows[i] = *plan
		}
	}
	return nil
}

func (f *fakePlanAPI) Delete(ctx context.Context, sess *model.Session, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["delete"]++
	if f.failDelete {
		return remote.ErrRemoteUnavailable
	}
	kept := f.rows[:0]
	for _, row := range f.rows {
		if row.ID != id {
			kept = append(kept, row)
		}
	}
	f.rows = kept
	return nil
}

// fakeCompletionAPI implements remote.CompletionAPI with failure injection.
type fakeCompletionAPI struct {
	mu   sync.Mutex
	rows []model.TaskCompletion

	failInsert bool
	failDelete bool
	failList   bool

	inserts int
	deletes int
}

func (f *fakeCompletionAPI) List(ctx context.Context, sess *model.Session) ([]model.TaskCompletion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList {
		return nil, remote.ErrRemoteUnavailable
	}
	return append([]model.TaskCompletion{}, f.rows...), nil
}

func (f *fakeCompletionAPI) Insert(ctx context.Context, sess *model.Session, completion *model.TaskCompletion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.failInsert {
		return remote.ErrRemoteUnavailable
	}
	f.rows = append(f.rows, *completion)
	return nil
}

func (f *fakeCompletionAPI) Delete(ctx context.Context, sess *model.Session, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.failDelete {
		return remote.ErrRemoteUnavailable
	}
	kept := f.rows[:0]
	for _, row := range f.rows {
		if row.ID != id {
			kept = append(kept, row)
		}
	}
	f.rows = kept
	return nil
}

// fakeQuizAPI implements remote.QuizAPI with failure injection.
type fakeQuizAPI struct {
	mu   sync.Mutex
	rows []model.QuizResult

	failInsert bool
	failList   bool
}

func (f *fakeQuizAPI) List(ctx context.Context, sess *model.Session) ([]model.QuizResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList {
		return nil, remote.ErrRemoteUnavailable
	}
	return append([]model.QuizResult{}, f.rows...), nil
}

func (f *fakeQuizAPI) Insert(ctx context.Context, sess *model.Session, result *model.QuizResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsert {
		return remote.ErrRemoteUnavailable
	}
	f.rows = append(f.rows, *result)
	return nil
}

func sampleDraft() *model.StudyPlanDraft {
	return &model.StudyPlanDraft{
		Title:        "Learn Go",
		DurationDays: 2,
		Difficulty:   model.DifficultyBeginner,
		Schedule: []model.ScheduleDay{
			{DayIndex: 0, Topic: "Basics", Tasks: []model.ScheduleTask{{Title: "Install"}, {Title: "Tour"}}},
			{DayIndex: 1, Topic: "Practice", Tasks: []model.ScheduleTask{{Title: "Exercises"}}},
		},
	}
}
