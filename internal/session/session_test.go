// ABOUTME: Tests for conversation identifier persistence
// ABOUTME: Covers lazy creation, stable reads, corrupted value recovery, and reset

package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/parley/internal/store"
)

func newTestStore(t *testing.T) store.Preferences {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "parley.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetOrCreate_FreshStore(t *testing.T) {
	prefs := newTestStore(t)
	ids := NewIdentifierStore(prefs, nil)
	ctx := context.Background()

	id, err := ids.GetOrCreate(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	// The new identifier must be persisted under the fixed key
	stored, err := prefs.Get(ctx, "conversation_id")
	require.NoError(t, err)
	assert.Equal(t, id.String(), stored)
}

func TestGetOrCreate_ReturnsStoredUUID(t *testing.T) {
	prefs := newTestStore(t)
	ids := NewIdentifierStore(prefs, nil)
	ctx := context.Background()

	want := uuid.New()
	require.NoError(t, prefs.Set(ctx, "conversation_id", want.String()))

	got, err := ids.GetOrCreate(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Storage is not mutated
	stored, err := prefs.Get(ctx, "conversation_id")
	require.NoError(t, err)
	assert.Equal(t, want.String(), stored)
}

func TestGetOrCreate_EmptyStoredValue(t *testing.T) {
	prefs := newTestStore(t)
	ids := NewIdentifierStore(prefs, nil)
	ctx := context.Background()

	require.NoError(t, prefs.Set(ctx, "conversation_id", ""))

	id, err := ids.GetOrCreate(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	stored, err := prefs.Get(ctx, "conversation_id")
	require.NoError(t, err)
	assert.Equal(t, id.String(), stored)
}

func TestGetOrCreate_CorruptedValueIsRegeneratedAndPersisted(t *testing.T) {
	prefs := newTestStore(t)
	ids := NewIdentifierStore(prefs, nil)
	ctx := context.Background()

	require.NoError(t, prefs.Set(ctx, "conversation_id", "not-a-uuid"))

	id, err := ids.GetOrCreate(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	// The regenerated identifier replaces the corrupted value so the
	// store never diverges from what callers were handed.
	stored, err := prefs.Get(ctx, "conversation_id")
	require.NoError(t, err)
	assert.Equal(t, id.String(), stored)
}

func TestGetOrCreate_StableAcrossCalls(t *testing.T) {
	prefs := newTestStore(t)
	ids := NewIdentifierStore(prefs, nil)
	ctx := context.Background()

	first, err := ids.GetOrCreate(ctx)
	require.NoError(t, err)

	second, err := ids.GetOrCreate(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestReset_ChangesStoredIdentifier(t *testing.T) {
	prefs := newTestStore(t)
	ids := NewIdentifierStore(prefs, nil)
	ctx := context.Background()

	before, err := ids.GetOrCreate(ctx)
	require.NoError(t, err)

	after, err := ids.Reset(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)

	stored, err := prefs.Get(ctx, "conversation_id")
	require.NoError(t, err)
	assert.Equal(t, after.String(), stored)
}
