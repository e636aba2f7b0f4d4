package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"app/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession() *model.Session {
	return &model.Session{
		UserID:      "user-1",
		AccessToken: "access-token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

func newTestBackend(handler http.Handler) (*RESTBackend, *httptest.Server) {
	srv := httptest.NewServer(handler)
	b := NewRESTBackend(srv.URL, "anon-key", 5*time.Second, zerolog.Nop())
	return b, srv
}

func TestListSendsAuthAndOwnerFilter(t *testing.T) {
	var gotReq *http.Request
	b, srv := newTestBackend(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"p1","user_id":"user-1","title":"Remote plan"}]`))
	}))
	defer srv.Close()

	plans, err := b.Plans().List(context.Background(), testSession())
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "Remote plan", plans[0].Title)

	require.NotNil(t, gotReq)
	assert.Equal(t, "/rest/v1/study_plans", gotReq.URL.Path)
	assert.Equal(t, "eq.user-1", gotReq.URL.Query().Get("user_id"))
	assert.Equal(t, "anon-key", gotReq.Header.Get("apikey"))
	assert.Equal(t, "Bearer access-token", gotReq.Header.Get("Authorization"))
}

func TestInsertPostsRow(t *testing.T) {
	var gotMethod, gotPath, gotPrefer string
	b, srv := newTestBackend(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotPrefer = r.Header.Get("Prefer")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := b.Plans().Insert(context.Background(), testSession(), &model.StudyPlan{ID: "p1", Title: "New"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/rest/v1/study_plans", gotPath)
	assert.Equal(t, "return=minimal", gotPrefer)
}

func TestUnauthorizedStatusMapsToSentinel(t *testing.T) {
	b, srv := newTestBackend(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := b.Plans().List(context.Background(), testSession())
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestServerErrorMapsToUnavailable(t *testing.T) {
	b, srv := newTestBackend(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := b.Completions().Insert(context.Background(), testSession(), &model.TaskCompletion{ID: "c1"})
	assert.True(t, errors.Is(err, ErrRemoteUnavailable))
}

func TestNetworkFailureMapsToUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on
	b := NewRESTBackend(srv.URL, "anon-key", time.Second, zerolog.Nop())

	_, err := b.QuizResults().List(context.Background(), testSession())
	assert.True(t, errors.Is(err, ErrRemoteUnavailable))
}

func TestGetMonthEmptyResultIsNotFound(t *testing.T) {
	b, srv := newTestBackend(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := b.Usage().GetMonth(context.Background(), testSession(), "2025-06")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetMonthReturnsRow(t *testing.T) {
	b, srv := newTestBackend(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.2025-06", r.URL.Query().Get("month"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"user_id":"user-1","month":"2025-06","ai_requests":4}]`))
	}))
	defer srv.Close()

	ledger, err := b.Usage().GetMonth(context.Background(), testSession(), "2025-06")
	require.NoError(t, err)
	assert.Equal(t, "2025-06", ledger.Month)
	assert.EqualValues(t, 4, ledger.AIRequests)
}

func TestUpsertDimensionUsesMergeDuplicates(t *testing.T) {
	var gotPrefer, gotConflict string
	b, srv := newTestBackend(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrefer = r.Header.Get("Prefer")
		gotConflict = r.URL.Query().Get("on_conflict")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := b.Usage().UpsertDimension(context.Background(), testSession(), "2025-06", model.DimAIRequests, 5)
	require.NoError(t, err)
	assert.Equal(t, "resolution=merge-duplicates,return=minimal", gotPrefer)
	assert.Equal(t, "user_id,month", gotConflict)
}
