// Package flow is the service layer above the pipeline: it owns the
// load-process-save lifecycle of a batch, the two-phase submit/confirm flow
// for batches awaiting operator confirmation, and the recording of outcomes
// to the archive index and the batch journal.
package flow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mirrorbeam/social-archiver/internal/archive"
	"github.com/mirrorbeam/social-archiver/internal/batchstore"
	"github.com/mirrorbeam/social-archiver/internal/boltdb"
	"github.com/mirrorbeam/social-archiver/internal/pipeline"
)

var ErrUnknownBatch = errors.New("unknown or expired batch")

// Processor runs one batch of URLs. Implemented by pipeline.Pipeline.
type Processor interface {
	Process(ctx context.Context, urls []string, opts pipeline.Options) []*pipeline.Result
}

// Ledger is the persistence lifecycle of the dedup ledger. Implemented by
// ledger.Ledger.
type Ledger interface {
	Load(ctx context.Context) bool
	Sync(ctx context.Context, entityID int64, topicID int) int
	Save(ctx context.Context, newIDCount int) bool
}

type Config struct {
	Processor Processor
	Ledger    Ledger           // optional; nil disables dedup persistence
	Archive   *archive.Archive // optional
	Journal   boltdb.Database  // optional
	Pending   *batchstore.Store
}

type Flow struct {
	cfg Config
	log *zap.SugaredLogger
}

func New(cfg Config) *Flow {
	if cfg.Pending == nil {
		cfg.Pending = batchstore.New(0, 0)
	}
	return &Flow{cfg: cfg, log: zap.S().Named("flow")}
}

// Submit stores a URL batch for later confirmation and returns its batch ID.
func (f *Flow) Submit(urls []string) string {
	batch := batchstore.PendingBatch{
		ID:      uuid.NewString(),
		URLs:    urls,
		Created: time.Now(),
	}
	f.cfg.Pending.Put(batch)
	f.log.Infow("batch submitted", "batch_id", batch.ID, "urls", len(urls))
	return batch.ID
}

// Confirm runs a previously submitted batch. Returns ErrUnknownBatch when the
// ID was never submitted, already confirmed or discarded, or has expired.
func (f *Flow) Confirm(ctx context.Context, id string, opts pipeline.Options) ([]*pipeline.Result, error) {
	batch, ok := f.cfg.Pending.Remove(id)
	if !ok {
		return nil, ErrUnknownBatch
	}
	return f.ProcessBatch(ctx, id, batch.URLs, opts), nil
}

// Discard drops a pending batch, reporting whether it existed.
func (f *Flow) Discard(id string) bool {
	_, ok := f.cfg.Pending.Remove(id)
	if ok {
		f.log.Infow("batch discarded", "batch_id", id)
	}
	return ok
}

// Process runs a batch of URLs immediately under a fresh batch ID.
func (f *Flow) Process(ctx context.Context, urls []string, opts pipeline.Options) []*pipeline.Result {
	return f.ProcessBatch(ctx, uuid.NewString(), urls, opts)
}

// ProcessBatch is the full batch lifecycle: load the ledger, run the
// pipeline, save the ledger with this session's additions merged in, and
// record the outcome to the archive and journal. Recording failures are
// logged, never propagated; the results are the authoritative outcome.
func (f *Flow) ProcessBatch(ctx context.Context, batchID string, urls []string, opts pipeline.Options) []*pipeline.Result {
	started := time.Now()
	f.log.Infow("processing batch", "batch_id", batchID, "urls", len(urls))

	if f.cfg.Ledger != nil {
		f.cfg.Ledger.Load(ctx)
	}

	results := f.cfg.Processor.Process(ctx, urls, opts)

	if f.cfg.Ledger != nil {
		newCount := 0
		for _, r := range results {
			if r.Success() {
				newCount++
			}
		}
		f.cfg.Ledger.Save(ctx, newCount)
	}

	f.record(batchID, started, results)
	return results
}

// SyncLedger rebuilds the ledger from the destination's message history and
// persists the merged result. Returns the number of newly discovered IDs.
func (f *Flow) SyncLedger(ctx context.Context, entityID int64, topicID int) int {
	if f.cfg.Ledger == nil {
		return 0
	}
	f.cfg.Ledger.Load(ctx)
	found := f.cfg.Ledger.Sync(ctx, entityID, topicID)
	f.cfg.Ledger.Save(ctx, found)
	return found
}

func (f *Flow) record(batchID string, started time.Time, results []*pipeline.Result) {
	if f.cfg.Archive != nil {
		for _, r := range results {
			v := &archive.Video{
				ContentID:    contentIDString(r),
				Platform:     r.ContentID.Platform,
				URL:          r.URL,
				Title:        r.Title,
				File:         r.File,
				UploadStatus: string(r.UploadStatus),
				BatchID:      batchID,
			}
			if r.UploadErr != nil {
				v.UploadError = r.UploadErr.Error()
			}
			if err := f.cfg.Archive.InsertVideo(v); err != nil {
				f.log.Warnw("could not record video in archive", "url", r.URL, "error", err)
			}
		}
	}

	if f.cfg.Journal != nil {
		record := &boltdb.BatchRecord{
			ID:       batchID,
			Started:  started,
			Finished: time.Now(),
			Items:    make([]boltdb.ItemRecord, 0, len(results)),
		}
		for _, r := range results {
			item := boltdb.ItemRecord{
				URL:          r.URL,
				ContentID:    contentIDString(r),
				Duplicate:    r.Duplicate,
				File:         r.File,
				UploadStatus: string(r.UploadStatus),
			}
			if r.Err != nil {
				item.Error = r.Err.Error()
			}
			if r.UploadErr != nil {
				item.UploadError = r.UploadErr.Error()
			}
			record.Items = append(record.Items, item)
		}
		if err := f.cfg.Journal.WriteBatch(record); err != nil {
			f.log.Warnw("could not journal batch", "batch_id", batchID, "error", err)
		}
	}
}

// contentIDString avoids recording the ":" rendering of a zero ContentID for
// items that never matched a platform.
func contentIDString(r *pipeline.Result) string {
	if r.ContentID.ID == "" {
		return ""
	}
	return r.ContentID.String()
}
