package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStateStore {
	t.Helper()
	s, err := NewSQLiteStateStore(filepath.Join(t.TempDir(), "nested", "state.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStateStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	require.NoError(t, s.Save(ctx, "memory.episodic", []byte(`[{"message":"hi"}]`)))

	got, err := s.Load(ctx, "memory.episodic")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"message":"hi"}]`, string(got))
}

func TestSQLiteStateStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	require.NoError(t, s.Save(ctx, "ns", []byte(`1`)))
	require.NoError(t, s.Save(ctx, "ns", []byte(`2`)))

	got, err := s.Load(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, "2", string(got))
}

func TestSQLiteStateStore_LoadMissing(t *testing.T) {
	s := newTestSQLiteStore(t)

	_, err := s.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStateStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := NewSQLiteStateStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "behavior.state", []byte(`{"adjustment":{"tone":"gentle"}}`)))
	require.NoError(t, s.Close())

	s2, err := NewSQLiteStateStore(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Load(ctx, "behavior.state")
	require.NoError(t, err)
	assert.Contains(t, string(got), "gentle")
}

func TestMemoryStateStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStateStore()

	buf := []byte(`"a"`)
	require.NoError(t, s.Save(ctx, "ns", buf))
	buf[1] = 'b'

	got, err := s.Load(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, `"a"`, string(got))

	_, err = s.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
