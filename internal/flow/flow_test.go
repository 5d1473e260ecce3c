package flow

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"

	social_archiver "github.com/mirrorbeam/social-archiver"
	"github.com/mirrorbeam/social-archiver/internal/boltdb"
	"github.com/mirrorbeam/social-archiver/internal/pipeline"
)

type fakeProcessor struct {
	calls [][]string
}

func (p *fakeProcessor) Process(_ context.Context, urls []string, _ pipeline.Options) []*pipeline.Result {
	p.calls = append(p.calls, urls)
	results := make([]*pipeline.Result, len(urls))
	for i, u := range urls {
		results[i] = &pipeline.Result{
			Index:        i,
			URL:          u,
			ContentID:    social_archiver.ContentID{Platform: "testtube", ID: fmt.Sprintf("id%d", i)},
			Title:        fmt.Sprintf("Video %d", i),
			File:         fmt.Sprintf("/downloads/id%d.mp4", i),
			UploadStatus: pipeline.UploadStatusSuccess,
		}
	}
	return results
}

type fakeLedger struct {
	loads, syncs, saves int
	savedNewCount       int
	syncReturn          int
}

func (l *fakeLedger) Load(_ context.Context) bool { l.loads++; return true }
func (l *fakeLedger) Sync(_ context.Context, _ int64, _ int) int {
	l.syncs++
	return l.syncReturn
}
func (l *fakeLedger) Save(_ context.Context, newIDCount int) bool {
	l.saves++
	l.savedNewCount = newIDCount
	return true
}

func TestFlowSubmitConfirm(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)
	processor := &fakeProcessor{}
	ledger := &fakeLedger{}
	f := New(Config{Processor: processor, Ledger: ledger})

	urls := []string{"https://videos.example.com/v/a", "https://videos.example.com/v/b"}
	id := f.Submit(urls)
	require.NotEmpty(id)

	results, err := f.Confirm(context.Background(), id, pipeline.Options{})
	require.NoError(err)
	assert.Len(results, 2)
	assert.Equal([][]string{urls}, processor.calls)
	assert.Equal(1, ledger.loads)
	assert.Equal(1, ledger.saves)
	assert.Equal(2, ledger.savedNewCount)

	// A batch can only be confirmed once.
	_, err = f.Confirm(context.Background(), id, pipeline.Options{})
	assert.ErrorIs(err, ErrUnknownBatch)
}

func TestFlowDiscard(t *testing.T) {
	assert := assert_.New(t)
	f := New(Config{Processor: &fakeProcessor{}})

	id := f.Submit([]string{"https://videos.example.com/v/a"})
	assert.True(f.Discard(id))
	assert.False(f.Discard(id))

	_, err := f.Confirm(context.Background(), id, pipeline.Options{})
	assert.ErrorIs(err, ErrUnknownBatch)
}

func TestFlowConfirmUnknownBatch(t *testing.T) {
	assert := assert_.New(t)
	f := New(Config{Processor: &fakeProcessor{}})
	_, err := f.Confirm(context.Background(), "never-submitted", pipeline.Options{})
	assert.ErrorIs(err, ErrUnknownBatch)
}

func TestFlowProcessJournals(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)
	journal, err := boltdb.New(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(err)
	defer journal.Close()

	f := New(Config{Processor: &fakeProcessor{}, Journal: journal})
	results := f.Process(context.Background(), []string{"https://videos.example.com/v/a"}, pipeline.Options{})
	require.Len(results, 1)

	batches, err := journal.ListBatches()
	require.NoError(err)
	require.Len(batches, 1)
	assert.Len(batches[0].Items, 1)
	assert.Equal("testtube:id0", batches[0].Items[0].ContentID)
	assert.Equal("success", batches[0].Items[0].UploadStatus)
	assert.False(batches[0].Finished.Before(batches[0].Started))
}

func TestFlowSyncLedger(t *testing.T) {
	assert := assert_.New(t)
	ledger := &fakeLedger{syncReturn: 3}
	f := New(Config{Processor: &fakeProcessor{}, Ledger: ledger})

	found := f.SyncLedger(context.Background(), -100200300, 0)
	assert.Equal(3, found)
	assert.Equal(1, ledger.loads)
	assert.Equal(1, ledger.syncs)
	assert.Equal(1, ledger.saves)
	assert.Equal(3, ledger.savedNewCount)
}
