package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A Put landing between the idle select and the delete must win.
func TestDeleteIfIdleKeepsTouchedSession(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := start
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "sessions.db"), WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	ctx := context.Background()

	touched, err := repo.Create(ctx)
	require.NoError(t, err)
	idle, err := repo.Create(ctx)
	require.NoError(t, err)

	now = start.Add(2 * time.Hour)
	cutoff := now.Add(-time.Hour).Unix()

	// Both ids were selected as idle; one of them is updated before the delete.
	touched.UpdatedAt = now
	require.NoError(t, repo.Put(ctx, touched))

	ok, err := repo.deleteIfIdle(ctx, touched.ID, cutoff)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.deleteIfIdle(ctx, idle.ID, cutoff)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.Get(ctx, touched.ID)
	require.NoError(t, err)
	assert.Equal(t, touched.ID, got.ID)
}
