// Package pipeline runs the two-stage mirror flow: bounded-parallel downloads
// feeding a shared FIFO queue, drained by a single sequential uploader. Every
// input URL yields exactly one Result; per-item failures are captured in the
// Result and never escape the batch call.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	social_archiver "github.com/mirrorbeam/social-archiver"
	"github.com/mirrorbeam/social-archiver/internal/media"
	"github.com/mirrorbeam/social-archiver/internal/pubsub"
)

var (
	ErrNoDestination = errors.New("no destination configured")
	ErrMissingFile   = errors.New("downloaded file missing")
)

// Deduper is the slice of the ledger the pipeline needs: a pre-download
// membership test and a post-publish record.
type Deduper interface {
	IsDuplicate(rawURL string) bool
	AddID(id string)
}

// Uploader publishes a local file with a caption to a destination. Called
// from a single goroutine, one upload at a time.
type Uploader interface {
	Upload(ctx context.Context, dest social_archiver.Destination, path string, caption string) error
}

type Config struct {
	Registry     *social_archiver.PlatformRegistry
	Downloader   media.Downloader
	Uploader     Uploader
	Ledger       Deduper // optional; nil disables dedup
	Destinations social_archiver.DestinationTable
	DownloadDir  string
	// MaxParallelDownloads bounds in-flight downloads; minimum 1.
	MaxParallelDownloads int
}

// Options adjust a single Process call.
type Options struct {
	// Destination, when non-zero, overrides the per-platform destination
	// table for every item in the batch.
	Destination social_archiver.Destination
}

type Pipeline struct {
	cfg    Config
	sem    *semaphore.Weighted
	events pubsub.Publisher[Event]
	log    *zap.SugaredLogger
}

func New(cfg Config) *Pipeline {
	if cfg.Registry == nil {
		cfg.Registry = &social_archiver.DefaultPlatformRegistry
	}
	if cfg.MaxParallelDownloads < 1 {
		cfg.MaxParallelDownloads = 1
	}
	return &Pipeline{
		cfg:    cfg,
		sem:    semaphore.NewWeighted(int64(cfg.MaxParallelDownloads)),
		events: pubsub.NewPublisher[Event](),
		log:    zap.S().Named("pipeline"),
	}
}

// Subscribe returns a receiver of progress events for batches run through
// this pipeline.
func (p *Pipeline) Subscribe() (pubsub.ReceiverCloser[Event], error) {
	return p.events.Subscribe()
}

// Close shuts down the event publisher. Must not be called while a batch is
// in flight.
func (p *Pipeline) Close() {
	p.events.Close()
}

// Process runs a full batch and returns one Result per input URL, in input
// order. Downloads run in parallel up to the configured bound; each
// completion is pushed to the queue immediately, so uploads start before all
// downloads finish. Closing the queue after the last producer exits is the
// termination sentinel for the upload loop.
func (p *Pipeline) Process(ctx context.Context, urls []string, opts Options) []*Result {
	results := make([]*Result, len(urls))
	// Buffer sized to the batch so a slow upload never blocks a finished
	// download worker.
	queue := pubsub.NewChannel[*Result](len(urls))

	var producers sync.WaitGroup
	for i, rawURL := range urls {
		r := &Result{Index: i, URL: rawURL, UploadStatus: UploadStatusPending}
		results[i] = r
		producers.Add(1)
		go func() {
			defer producers.Done()
			p.download(ctx, r, opts)
			// Events carry a snapshot, not the live Result: the upload
			// stage keeps writing to r after it is enqueued, and
			// subscribers read concurrently with that.
			snapshot := *r
			p.events.Send(DownloadFinished{Result: &snapshot})
			queue.Send(r)
		}()
	}
	go func() {
		producers.Wait()
		queue.Close()
	}()

	for r := range queue.Receive() {
		p.upload(ctx, r)
		snapshot := *r
		p.events.Send(UploadFinished{Result: &snapshot})
	}

	p.events.Send(BatchFinished{Results: results})
	return results
}

// download runs the download stage for one item. Any failure is recorded on
// the Result; duplicates short-circuit before the extraction backend is
// touched.
func (p *Pipeline) download(ctx context.Context, r *Result, opts Options) {
	id, err := p.cfg.Registry.ExtractID(r.URL)
	if err != nil {
		p.failDownload(r, err)
		return
	}
	r.ContentID = id
	platform, err := p.cfg.Registry.Get(id.Platform)
	if err != nil {
		p.failDownload(r, err)
		return
	}

	if p.cfg.Ledger != nil && p.cfg.Ledger.IsDuplicate(r.URL) {
		r.Duplicate = true
		r.UploadStatus = UploadStatusSkipped
		p.log.Infow("skipping duplicate", "url", r.URL, "id", id)
		return
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.failDownload(r, err)
		return
	}
	info, err := p.cfg.Downloader.Download(ctx, r.URL, media.Options{
		Format:    platform.DefaultFormat,
		TargetDir: p.cfg.DownloadDir,
	})
	p.sem.Release(1)
	if err != nil {
		p.failDownload(r, fmt.Errorf("download failed: %w", err))
		return
	}

	r.Title = info.BestTitle()
	r.ContentType = social_archiver.ContentTypeVideo
	if platform.Classify != nil {
		r.ContentType = platform.Classify(r.URL, info)
	}
	if platform.Caption != nil {
		r.Caption = platform.Caption(info).Render()
	}
	r.Dest = p.resolveDest(r, opts)

	file, err := info.ResolveFile(p.cfg.DownloadDir)
	if err != nil {
		p.failDownload(r, err)
		return
	}
	r.File = file
	p.log.Infow("download finished", "url", r.URL, "id", id, "file", file)
}

func (p *Pipeline) failDownload(r *Result, err error) {
	r.Err = err
	r.UploadStatus = UploadStatusSkipped
	p.log.Warnw("download stage failure", "url", r.URL, "error", err)
}

func (p *Pipeline) resolveDest(r *Result, opts Options) social_archiver.Destination {
	if !opts.Destination.IsZero() {
		return opts.Destination
	}
	if dest, ok := p.cfg.Destinations.Resolve(r.ContentID.Platform, r.ContentType); ok {
		return dest
	}
	return social_archiver.Destination{}
}

// upload runs the upload stage for one item. Failures are recorded on the
// Result and never stop the stage.
func (p *Pipeline) upload(ctx context.Context, r *Result) {
	if r.Err != nil || r.Duplicate {
		return
	}
	if r.Dest.IsZero() {
		p.failUpload(r, ErrNoDestination)
		return
	}
	// The file may have disappeared between the stages.
	if _, err := os.Stat(r.File); err != nil {
		p.failUpload(r, fmt.Errorf("%w: %s", ErrMissingFile, r.File))
		return
	}
	if err := p.cfg.Uploader.Upload(ctx, r.Dest, r.File, r.Caption); err != nil {
		p.failUpload(r, err)
		return
	}
	r.UploadStatus = UploadStatusSuccess
	if p.cfg.Ledger != nil {
		p.cfg.Ledger.AddID(r.ContentID.String())
	}
	p.log.Infow("upload finished", "id", r.ContentID, "dest", r.Dest)
}

func (p *Pipeline) failUpload(r *Result, err error) {
	r.UploadStatus = UploadStatusFailed
	r.UploadErr = err
	p.log.Errorw("upload stage failure", "url", r.URL, "error", err)
}
