package outbox

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "outbox.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEnqueueCollapsesSameKey(t *testing.T) {
	store := openTemp(t)

	require.NoError(t, store.Enqueue(Entry{Key: "record:1"}))
	require.NoError(t, store.Enqueue(Entry{Key: "record:1"}))
	require.NoError(t, store.Enqueue(Entry{Key: "records:all"}))
	require.NoError(t, store.Enqueue(Entry{Key: "record", Prefix: true}))

	size, err := store.Size()
	require.NoError(t, err)
	assert.Equal(t, 3, size)

	batch, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	for _, e := range batch {
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.EnqueuedAt.IsZero())
	}
}

func TestEnqueueRefreshesAgeAndKeepsRetries(t *testing.T) {
	store := openTemp(t)
	require.NoError(t, store.Enqueue(Entry{Key: "record:1", EnqueuedAt: time.Now().Add(-2 * time.Hour)}))

	batch, err := store.GetBatch(1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.NoError(t, store.Retry(batch[0]))
	firstID := batch[0].ID

	require.NoError(t, store.Enqueue(Entry{Key: "record:1"}))

	removed, err := store.Cleanup(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, removed, "a recent failure keeps the entry alive")

	batch, err = store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, firstID, batch[0].ID)
	assert.Equal(t, 1, batch[0].Retries)
	assert.WithinDuration(t, time.Now(), batch[0].EnqueuedAt, time.Minute)
}

func TestRetryAndRemove(t *testing.T) {
	store := openTemp(t)
	require.NoError(t, store.Enqueue(Entry{Key: "record:1"}))

	batch, err := store.GetBatch(1)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	require.NoError(t, store.Retry(batch[0]))
	batch, err = store.GetBatch(1)
	require.NoError(t, err)
	assert.Equal(t, 1, batch[0].Retries)

	require.NoError(t, store.Remove(batch[0]))
	size, err := store.Size()
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestCleanupDropsOldEntries(t *testing.T) {
	store := openTemp(t)
	require.NoError(t, store.Enqueue(Entry{Key: "record:1", EnqueuedAt: time.Now().Add(-2 * time.Hour)}))
	require.NoError(t, store.Enqueue(Entry{Key: "record:2"}))

	removed, err := store.Cleanup(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	batch, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "record:2", batch[0].Key)
}

func TestEntriesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outbox.db")
	store, err := Open(path, "invalidations")
	require.NoError(t, err)
	require.NoError(t, store.Enqueue(Entry{Key: "record:1"}))
	require.NoError(t, store.Close())

	reopened, err := Open(path, "invalidations")
	require.NoError(t, err)
	defer reopened.Close()

	size, err := reopened.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestClosedStoreReportsError(t *testing.T) {
	var store *Store
	_, err := store.Size()
	assert.Error(t, err)
	assert.NoError(t, store.Close())
}
