package database

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newTestDB opens a migrated sqlite store in a temp dir.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(DriverSQLite, filepath.Join(t.TempDir(), "hunt.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// stepClock returns a clock that advances by step on every read.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newStepClock(start time.Time, step time.Duration) *stepClock {
	return &stepClock{now: start, step: step}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

func ptr[T any](v T) *T {
	return &v
}
