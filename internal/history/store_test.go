package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := s.Record(ctx, Entry{
			JobID:  fmt.Sprintf("job-%d", i),
			URL:    "https://youtu.be/abc",
			Status: "completed",
		})
		require.NoError(t, err)
	}
	_, err := s.Record(ctx, Entry{
		JobID:     "job-4",
		URL:       "https://youtu.be/def",
		Title:     "Song",
		Status:    "error",
		Message:   "Error: boom",
		FileName:  "Song.mp4",
		SavedPath: "/tmp/Song.mp4",
	})
	require.NoError(t, err)

	entries, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "job-4", entries[0].JobID)
	assert.Equal(t, "Song", entries[0].Title)
	assert.Equal(t, "Error: boom", entries[0].Message)
	assert.Equal(t, "/tmp/Song.mp4", entries[0].SavedPath)
	assert.Equal(t, "job-3", entries[1].JobID)
	assert.Empty(t, entries[1].Title)

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestRecordFillsCreatedAt(t *testing.T) {
	s := openTestStore(t)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	_, err := s.Record(context.Background(), Entry{JobID: "job-1", URL: "u", Status: "completed"})
	require.NoError(t, err)

	entries, err := s.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2026-03-01T12:00:00Z", entries[0].CreatedAt)
}

func TestRecordRequiresJobAndStatus(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Record(context.Background(), Entry{URL: "u", Status: "completed"})
	assert.Error(t, err)
	_, err = s.Record(context.Background(), Entry{JobID: "job-1", URL: "u"})
	assert.Error(t, err)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}
