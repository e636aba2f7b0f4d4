package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"app/internal/model"

	"github.com/rs/zerolog"
)

const (
	plansCollection       = "study_plans"
	completionsCollection = "task_completions"
	quizResultsCollection = "quiz_results"
	usageCollection       = "monthly_usage"
)

// RESTBackend talks to a PostgREST-style API (Supabase): row filters are
// query parameters (`user_id=eq.<id>`), upserts use the
// `resolution=merge-duplicates` Prefer header with an on_conflict key.
type RESTBackend struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  zerolog.Logger
}

// NewRESTBackend creates a REST backend client. Timeout semantics are owned
// by the transport; the stores impose none of their own.
func NewRESTBackend(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) *RESTBackend {
	return &RESTBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("service", "RESTBackend").Logger(),
	}
}

func (b *RESTBackend) Plans() PlanAPI            { return &restPlans{b} }
func (b *RESTBackend) Completions() CompletionAPI { return &restCompletions{b} }
func (b *RESTBackend) QuizResults() QuizAPI       { return &restQuizResults{b} }
func (b *RESTBackend) Usage() UsageAPI            { return &restUsage{b} }

// do issues a JSON request and decodes the response into out when non-nil.
func (b *RESTBackend) do(ctx context.Context, sess *model.Session, method, collection string, query url.Values, prefer string, body, out any) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", b.baseURL, collection)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", collection, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", collection, err)
	}
	req.Header.Set("apikey", b.apiKey)
	req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %v: %w", method, collection, err, ErrRemoteUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s rejected: %w", method, collection, ErrUnauthorized)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s %s: status %d: %w", method, collection, resp.StatusCode, ErrRemoteUnavailable)
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: status %d: %s: %w", method, collection, resp.StatusCode, string(msg), ErrRemoteUnavailable)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", collection, err)
		}
	}
	return nil
}

func ownerFilter(sess *model.Session) url.Values {
	q := url.Values{}
	q.Set("user_id", "eq."+sess.UserID)
	return q
}

type restPlans struct{ b *RESTBackend }

func (r *restPlans) List(ctx context.Context, sess *model.Session) ([]model.StudyPlan, error) {
	var plans []model.StudyPlan
	q := ownerFilter(sess)
	q.Set("select", "*")
	q.Set("order", "created_at.desc")
	if err := r.b.do(ctx, sess, http.MethodGet, plansCollection, q, "", nil, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *restPlans) Insert(ctx context.Context, sess *model.Session, plan *model.StudyPlan) error {
	return r.b.do(ctx, sess, http.MethodPost, plansCollection, nil, "return=minimal", plan, nil)
}

func (r *restPlans) Update(ctx context.Context, sess *model.Session, plan *model.StudyPlan) error {
	q := ownerFilter(sess)
	q.Set("id", "eq."+plan.ID)
	return r.b.do(ctx, sess, http.MethodPatch, plansCollection, q, "return=minimal", plan, nil)
}

func (r *restPlans) Delete(ctx context.Context, sess *model.Session, id string) error {
	q := ownerFilter(sess)
	q.Set("id", "eq."+id)
	return r.b.do(ctx, sess, http.MethodDelete, plansCollection, q, "", nil, nil)
}

type restCompletions struct{ b *RESTBackend }

func (r *restCompletions) List(ctx context.Context, sess *model.Session) ([]model.TaskCompletion, error) {
	var completions []model.TaskCompletion
	q := ownerFilter(sess)
	q.Set("select", "*")
	if err := r.b.do(ctx, sess, http.MethodGet, completionsCollection, q, "", nil, &completions); err != nil {
		return nil, err
	}
	return completions, nil
}

func (r *restCompletions) Insert(ctx context.Context, sess *model.Session, completion *model.TaskCompletion) error {
	return r.b.do(ctx, sess, http.MethodPost, completionsCollection, nil, "return=minimal", completion, nil)
}

func (r *restCompletions) Delete(ctx context.Context, sess *model.Session, id string) error {
	q := ownerFilter(sess)
	q.Set("id", "eq."+id)
	return r.b.do(ctx, sess, http.MethodDelete, completionsCollection, q, "", nil, nil)
}

type restQuizResults struct{ b *RESTBackend }

func (r *restQuizResults) List(ctx context.Context, sess *model.Session) ([]model.QuizResult, error) {
	var results []model.QuizResult
	q := ownerFilter(sess)
	q.Set("select", "*")
	if err := r.b.do(ctx, sess, http.MethodGet, quizResultsCollection, q, "", nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *restQuizResults) Insert(ctx context.Context, sess *model.Session, result *model.QuizResult) error {
	return r.b.do(ctx, sess, http.MethodPost, quizResultsCollection, nil, "return=minimal", result, nil)
}

type restUsage struct{ b *RESTBackend }

func (r *restUsage) GetMonth(ctx context.Context, sess *model.Session, month string) (*model.UsageLedger, error) {
	var rows []model.UsageLedger
	q := ownerFilter(sess)
	q.Set("month", "eq."+month)
	q.Set("select", "*")
	if err := r.b.do(ctx, sess, http.MethodGet, usageCollection, q, "", nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("usage for %s: %w", month, ErrNotFound)
	}
	return &rows[0], nil
}

func (r *restUsage) UpsertDimension(ctx context.Context, sess *model.Session, month string, dim model.Dimension, value int64) error {
	q := url.Values{}
	q.Set("on_conflict", "user_id,month")
	row := map[string]any{
		"user_id":    sess.UserID,
		"month":      month,
		string(dim): value,
	}
	return r.b.do(ctx, sess, http.MethodPost, usageCollection, q, "resolution=merge-duplicates,return=minimal", row, nil)
}
