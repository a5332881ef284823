package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/credgate/pkg/schema"
)

func newTestLog(t *testing.T) *LibSQLLog {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	l, err := NewLibSQLLog("file:" + dbPath)
	require.NoError(t, err)
	require.NoError(t, l.Migrate(context.Background()))
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestAppendAndRecent(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()

	require.NoError(t, l.Append(ctx, &Entry{
		Kind:    schema.RequestKindCommand,
		Command: "cat .env",
		Verdict: schema.VerdictDeny,
		Reason:  "protected path pattern",
	}))
	require.NoError(t, l.Append(ctx, &Entry{
		Kind:    schema.RequestKindCommand,
		Command: "ls",
		Verdict: schema.VerdictAllow,
	}))

	entries, err := l.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	for _, e := range entries {
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.CreatedAt.IsZero())
	}
}

func TestRecentOrderAndLimit(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Append(ctx, &Entry{
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Kind:      schema.RequestKindCommand,
			Command:   "cmd",
			Verdict:   schema.VerdictAllow,
		}))
	}

	entries, err := l.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.True(t, entries[0].CreatedAt.After(entries[1].CreatedAt))
	assert.True(t, entries[1].CreatedAt.After(entries[2].CreatedAt))
}

func TestPruneRemovesOldEntries(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()

	require.NoError(t, l.Append(ctx, &Entry{
		CreatedAt: time.Now().UTC().Add(-48 * time.Hour),
		Kind:      schema.RequestKindCommand,
		Command:   "old",
		Verdict:   schema.VerdictAllow,
	}))
	require.NoError(t, l.Append(ctx, &Entry{
		Kind:    schema.RequestKindCommand,
		Command: "new",
		Verdict: schema.VerdictAllow,
	}))

	n, err := l.Prune(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	entries, err := l.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].Command)
}

func TestRecentEmptyLog(t *testing.T) {
	l := newTestLog(t)
	entries, err := l.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
