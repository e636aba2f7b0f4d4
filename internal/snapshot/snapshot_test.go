package snapshot

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "snap.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundtrip(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put("stores:study_plans", []byte(`[{"id":"p1"}]`)))

	got, err := s.Get("stores:study_plans")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[{"id":"p1"}]`), got)
}

func TestPutOverwrites(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put("key", []byte("one")))
	require.NoError(t, s.Put("key", []byte("two")))

	got, err := s.Get("key")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)
}

func TestGetAbsentKey(t *testing.T) {
	s := openTestStore(t)

	got, err := s.Get("never-written")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put("key", []byte("value")))
	require.NoError(t, s.Delete("key"))

	got, err := s.Get("key")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting an absent key is a no-op.
	require.NoError(t, s.Delete("key"))
}

func TestSaveLoadJSON(t *testing.T) {
	s := openTestStore(t)

	type record struct {
		ID    string `json:"id"`
		Count int    `json:"count"`
	}
	s.SaveJSON("records", []record{{ID: "a", Count: 2}, {ID: "b", Count: 5}})

	var got []record
	require.True(t, s.LoadJSON("records", &got))
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, 5, got[1].Count)
}

func TestLoadJSONAbsentSlot(t *testing.T) {
	s := openTestStore(t)

	var got []string
	assert.False(t, s.LoadJSON("missing", &got))
	assert.Nil(t, got)
}

func TestLoadJSONCorruptSlotIsEmptyState(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put("stores:quiz_results", []byte(`{"truncated`)))

	var got []string
	assert.False(t, s.LoadJSON("stores:quiz_results", &got))
	assert.Nil(t, got)
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.db")

	s, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Put("key", []byte("survives")))
	require.NoError(t, s.Close())

	s, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get("key")
	require.NoError(t, err)
	assert.Equal(t, []byte("survives"), got)
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "snap.db")

	s, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put("key", []byte("value")))
}
