package boltdb

import (
	"path/filepath"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) Database {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "journal.db"))
	require_.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestBatchRoundTrip(t *testing.T) {
	assert := assert_.New(t)
	db := newTestDatabase(t)

	record := &BatchRecord{
		ID:       "batch-1",
		Started:  time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		Finished: time.Date(2024, 6, 1, 10, 5, 0, 0, time.UTC),
		Items: []ItemRecord{
			{URL: "https://videos.example.com/v/a", ContentID: "testtube:a", UploadStatus: "success"},
			{URL: "https://videos.example.com/v/b", Duplicate: true, UploadStatus: "skipped"},
		},
	}
	assert.NoError(db.WriteBatch(record))

	got, err := db.GetBatch("batch-1")
	assert.NoError(err)
	assert.Equal(record, got)

	missing, err := db.GetBatch("no-such-batch")
	assert.NoError(err)
	assert.Nil(missing)
}

func TestListAndDeleteBatches(t *testing.T) {
	assert := assert_.New(t)
	db := newTestDatabase(t)

	assert.NoError(db.WriteBatch(&BatchRecord{ID: "batch-1"}))
	assert.NoError(db.WriteBatch(&BatchRecord{ID: "batch-2"}))

	batches, err := db.ListBatches()
	assert.NoError(err)
	assert.Len(batches, 2)

	assert.NoError(db.DeleteBatch("batch-1"))
	batches, err = db.ListBatches()
	assert.NoError(err)
	assert.Len(batches, 1)
	assert.Equal("batch-2", batches[0].ID)
}
