package store

import (
	"context"
	"errors"
	"testing"

	"app/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCompletionStore(api *fakeCompletionAPI, signedIn bool) *CompletionStore {
	var guard = signedOutGuard()
	if signedIn {
		guard = signedInGuard()
	}
	return NewCompletionStore(api, guard, nil, testClock(), zerolog.Nop())
}

func TestMarkComplete(t *testing.T) {
	api := &fakeCompletionAPI{}
	s := newTestCompletionStore(api, true)

	c, err := s.MarkComplete(context.Background(), "plan-1", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "user-1", c.UserID)
	assert.Equal(t, 1, s.Count())
	assert.Equal(t, 1, api.inserts)

	got, ok := s.FindByAddress("plan-1", 0, 1)
	require.True(t, ok)
	assert.Equal(t, c.ID, got.ID)
}

func TestMarkCompleteIsIdempotentPerAddress(t *testing.T) {
	api := &fakeCompletionAPI{}
	s := newTestCompletionStore(api, true)

	first, err := s.MarkComplete(context.Background(), "plan-1", 0, 1)
	require.NoError(t, err)
	second, err := s.MarkComplete(context.Background(), "plan-1", 0, 1)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, s.Count())
	assert.Equal(t, 1, api.inserts, "repeat mark must not hit the remote again")
}

func TestMarkCompleteDistinctAddresses(t *testing.T) {
	s := newTestCompletionStore(&fakeCompletionAPI{}, true)

	_, err := s.MarkComplete(context.Background(), "plan-1", 0, 0)
	require.NoError(t, err)
	_, err = s.MarkComplete(context.Background(), "plan-1", 0, 1)
	require.NoError(t, err)
	_, err = s.MarkComplete(context.Background(), "plan-2", 0, 0)
	require.NoError(t, err)

	assert.Equal(t, 3, s.Count())
	assert.Equal(t, 2, s.CompletedCountForPlan("plan-1"))
	assert.Equal(t, 1, s.CompletedCountForPlan("plan-2"))
}

func TestMarkCompleteRollsBackOnRemoteFailure(t *testing.T) {
	api := &fakeCompletionAPI{failInsert: true}
	s := newTestCompletionStore(api, true)

	_, err := s.MarkComplete(context.Background(), "plan-1", 0, 1)
	require.Error(t, err)
	assert.Equal(t, 0, s.Count())

	_, ok := s.FindByAddress("plan-1", 0, 1)
	assert.False(t, ok)
}

func TestMarkCompleteSignedOutIsLocalOnly(t *testing.T) {
	api := &fakeCompletionAPI{failInsert: true}
	s := newTestCompletionStore(api, false)

	c, err := s.MarkComplete(context.Background(), "plan-1", 0, 1)
	require.NoError(t, err)
	assert.Empty(t, c.UserID)
	assert.Equal(t, 0, api.inserts)
}

func TestMarkIncompleteDeletesRecord(t *testing.T) {
	api := &fakeCompletionAPI{}
	s := newTestCompletionStore(api, true)

	_, err := s.MarkComplete(context.Background(), "plan-1", 0, 1)
	require.NoError(t, err)

	require.NoError(t, s.MarkIncomplete(context.Background(), "plan-1", 0, 1))
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, 1, api.deletes)

	// Re-marking after an incomplete creates a fresh record.
	_, err = s.MarkComplete(context.Background(), "plan-1", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count())
}

func TestMarkIncompleteUnknownAddress(t *testing.T) {
	s := newTestCompletionStore(&fakeCompletionAPI{}, true)
	err := s.MarkIncomplete(context.Background(), "plan-1", 3, 3)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMarkIncompleteKeepsRemovalOnRemoteFailure(t *testing.T) {
	api := &fakeCompletionAPI{}
	s := newTestCompletionStore(api, true)

	_, err := s.MarkComplete(context.Background(), "plan-1", 0, 1)
	require.NoError(t, err)

	api.failDelete = true
	require.Error(t, s.MarkIncomplete(context.Background(), "plan-1", 0, 1))

	_, ok := s.FindByAddress("plan-1", 0, 1)
	assert.False(t, ok, "local removal is kept despite the remote failure")
}

func TestCompletionFetchAllReplaces(t *testing.T) {
	api := &fakeCompletionAPI{rows: []model.TaskCompletion{
		{ID: "c1", UserID: "user-1", PlanID: "plan-1", DayIndex: 0, TaskIndex: 0},
	}}
	s := newTestCompletionStore(api, true)

	require.NoError(t, s.FetchAll(context.Background()))
	assert.Equal(t, 1, s.Count())

	_, ok := s.FindByAddress("plan-1", 0, 0)
	assert.True(t, ok)
}
