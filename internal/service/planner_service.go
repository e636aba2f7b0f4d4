package service

import (
	"context"
	"fmt"

	"app/internal/ledger"
	"app/internal/model"
	"app/internal/quota"
	"app/internal/session"
	"app/internal/storage"
	"app/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Generator produces structured study-plan content from a prompt. The
// provider behind it is opaque to this subsystem and may fail.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*model.StudyPlanDraft, error)
}

// PlannerService defines the quota-gated study-planning operations. Every
// metered mutation runs the quota gate synchronously before touching any
// store, and increments the usage ledger only after the mutation succeeds.
type PlannerService interface {
	CreateStudyPlan(ctx context.Context, draft *model.StudyPlanDraft) (*model.StudyPlan, error)
	GenerateStudyPlan(ctx context.Context, prompt string) (*model.StudyPlan, error)
	DeleteStudyPlan(ctx context.Context, planID string) error
	AttachFile(ctx context.Context, planID, filename string, data []byte) (*model.AttachedFile, error)
	MarkTaskComplete(ctx context.Context, planID string, dayIndex, taskIndex int) error
	MarkTaskIncomplete(ctx context.Context, planID string, dayIndex, taskIndex int) error
	RecordQuizResult(ctx context.Context, planID, quizID string, score, passingScore int, selectedAnswers []int) (*model.QuizResult, error)
	RegisterStudyGroup(ctx context.Context) error
	Usage(ctx context.Context) model.UsageLedger
	Limits(ctx context.Context) (*model.PlanLimits, error)
}

// plannerService is the implementation of PlannerService.
type plannerService struct {
	plans       *store.PlanStore
	completions *store.CompletionStore
	quizzes     *store.QuizStore
	usage       *ledger.Store
	catalog     PlanCatalog
	provider    session.Provider
	uploader    storage.Uploader
	generator   Generator
	validate    *validator.Validate
	logger      zerolog.Logger
}

// NewPlannerService creates a PlannerService with a scoped logger.
// uploader and generator may be nil when the deployment has no object
// storage or AI provider configured; the corresponding operations then
// fail with a plain error.
func NewPlannerService(
	plans *store.PlanStore,
	completions *store.CompletionStore,
	quizzes *store.QuizStore,
	usage *ledger.Store,
	catalog PlanCatalog,
	provider session.Provider,
	uploader storage.Uploader,
	generator Generator,
	logger zerolog.Logger,
) PlannerService {
	return &plannerService{
		plans:       plans,
		completions: completions,
		quizzes:     quizzes,
		usage:       usage,
		catalog:     catalog,
		provider:    provider,
		uploader:    uploader,
		generator:   generator,
		validate:    validator.New(),
		logger:      logger.With().Str("service", "PlannerService").Logger(),
	}
}

// gate runs the quota check for one count dimension against the current
// ledger reading.
func (s *plannerService) gate(ctx context.Context, dim model.Dimension) error {
	limits, err := s.Limits(ctx)
	if err != nil {
		return err
	}
	reading := s.usage.Read(ctx)
	if err := quota.Check(limits, &reading, dim); err != nil {
		s.logger.Info().Str("dimension", string(dim)).Msg("Quota gate denied mutation")
		return err
	}
	return nil
}

// Limits returns the current user's plan limits from the catalog.
func (s *plannerService) Limits(ctx context.Context) (*model.PlanLimits, error) {
	userID := ""
	if sess := s.provider.Current(); sess != nil {
		userID = sess.UserID
	}
	limits, err := s.catalog.LimitsFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve plan limits: %w", err)
	}
	return limits, nil
}

// Usage returns the current month's ledger reading.
func (s *plannerService) Usage(ctx context.Context) model.UsageLedger {
	return s.usage.Read(ctx)
}

// CreateStudyPlan validates the draft, runs the quota gate and creates the
// plan. The ledger is incremented only after the store reports success.
func (s *plannerService) CreateStudyPlan(ctx context.Context, draft *model.StudyPlanDraft) (*model.StudyPlan, error) {
	if err := s.validate.Struct(draft); err != nil {
		return nil, fmt.Errorf("invalid study plan draft: %w", err)
	}
	if err := s.gate(ctx, model.DimPlansCreated); err != nil {
		return nil, err
	}
	plan, err := s.plans.Create(ctx, draft)
	if err != nil {
		return nil, err
	}
	s.usage.Increment(ctx, model.DimPlansCreated, 1)
	return plan, nil
}

// GenerateStudyPlan asks the content generator for a draft and creates a
// plan from it. The AI request is metered separately from plan creation.
func (s *plannerService) GenerateStudyPlan(ctx context.Context, prompt string) (*model.StudyPlan, error) {
	if s.generator == nil {
		return nil, fmt.Errorf("no content generator configured")
	}
	if err := s.gate(ctx, model.DimAIRequests); err != nil {
		return nil, err
	}
	draft, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("content generation failed: %w", err)
	}
	s.usage.Increment(ctx, model.DimAIRequests, 1)
	return s.CreateStudyPlan(ctx, draft)
}

// DeleteStudyPlan removes the plan. Completions and quiz results for the
// plan are not cascaded; they are orphaned and ignored by readers.
func (s *plannerService) DeleteStudyPlan(ctx context.Context, planID string) error {
	return s.plans.Delete(ctx, planID)
}

// AttachFile gates the upload count and storage budget, uploads the bytes
// and attaches the result to the plan. On a failed attach the uploaded
// object is removed again, best effort.
func (s *plannerService) AttachFile(ctx context.Context, planID, filename string, data []byte) (*model.AttachedFile, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("no attachment storage configured")
	}
	if _, ok := s.plans.Get(planID); !ok {
		return nil, fmt.Errorf("study plan %s: %w", planID, store.ErrNotFound)
	}

	limits, err := s.Limits(ctx)
	if err != nil {
		return nil, err
	}
	reading := s.usage.Read(ctx)
	if err := quota.Check(limits, &reading, model.DimFileUploads); err != nil {
		return nil, err
	}
	if err := quota.CheckStorage(limits, &reading, int64(len(data))); err != nil {
		return nil, err
	}

	file, err := s.uploader.Upload(ctx, planID, filename, data)
	if err != nil {
		return nil, err
	}
	if err := s.plans.AttachFile(ctx, planID, *file); err != nil {
		if delErr := s.uploader.Delete(ctx, file.StoragePath); delErr != nil {
			s.logger.Warn().Err(delErr).Str("storage_path", file.StoragePath).Msg("Failed to clean up orphaned attachment")
		}
		return nil, err
	}

	s.usage.Increment(ctx, model.DimFileUploads, 1)
	s.usage.Increment(ctx, model.DimStorageBytes, file.SizeBytes)
	return file, nil
}

// MarkTaskComplete records the completion and refreshes the plan's cached
// progress counters from the local completion records.
func (s *plannerService) MarkTaskComplete(ctx context.Context, planID string, dayIndex, taskIndex int) error {
	if _, err := s.completions.MarkComplete(ctx, planID, dayIndex, taskIndex); err != nil {
		return err
	}
	return s.refreshProgress(ctx, planID)
}

// MarkTaskIncomplete hard-deletes the completion and refreshes the plan's
// cached progress counters.
func (s *plannerService) MarkTaskIncomplete(ctx context.Context, planID string, dayIndex, taskIndex int) error {
	if err := s.completions.MarkIncomplete(ctx, planID, dayIndex, taskIndex); err != nil {
		return err
	}
	return s.refreshProgress(ctx, planID)
}

// refreshProgress recomputes the plan's progress snapshot from the local
// completion records. The snapshot is a cached counter; completions stay
// the source of truth and remote divergence heals on the next sync.
func (s *plannerService) refreshProgress(ctx context.Context, planID string) error {
	plan, ok := s.plans.Get(planID)
	if !ok {
		return fmt.Errorf("study plan %s: %w", planID, store.ErrNotFound)
	}

	completedByDay := make(map[int]int)
	total := 0
	for _, c := range s.completions.Completions() {
		if c.PlanID == planID {
			completedByDay[c.DayIndex]++
			total++
		}
	}
	completedDays := 0
	for _, day := range plan.Schedule {
		if len(day.Tasks) > 0 && completedByDay[day.DayIndex] >= len(day.Tasks) {
			completedDays++
		}
	}

	return s.plans.Update(ctx, planID, func(p *model.StudyPlan) {
		p.Progress.CompletedTasks = total
		p.Progress.CompletedDays = completedDays
	})
}

// RecordQuizResult stores a quiz attempt.
func (s *plannerService) RecordQuizResult(ctx context.Context, planID, quizID string, score, passingScore int, selectedAnswers []int) (*model.QuizResult, error) {
	if _, ok := s.plans.Get(planID); !ok {
		return nil, fmt.Errorf("study plan %s: %w", planID, store.ErrNotFound)
	}
	return s.quizzes.Record(ctx, planID, quizID, score, passingScore, selectedAnswers)
}

// RegisterStudyGroup meters creation of a study group. Group storage
// itself lives outside this subsystem; callers create the group remotely
// after the gate passes.
func (s *plannerService) RegisterStudyGroup(ctx context.Context) error {
	if err := s.gate(ctx, model.DimGroupsCreated); err != nil {
		return err
	}
	s.usage.Increment(ctx, model.DimGroupsCreated, 1)
	return nil
}
