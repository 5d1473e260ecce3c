package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"

	"github.com/r3labs/diff/v3"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	social_archiver "github.com/mirrorbeam/social-archiver"
	"github.com/mirrorbeam/social-archiver/async"
	"github.com/mirrorbeam/social-archiver/internal/archive"
	"github.com/mirrorbeam/social-archiver/internal/boltdb"
	"github.com/mirrorbeam/social-archiver/internal/export"
	"github.com/mirrorbeam/social-archiver/internal/flow"
	"github.com/mirrorbeam/social-archiver/internal/ledger"
	"github.com/mirrorbeam/social-archiver/internal/media"
	"github.com/mirrorbeam/social-archiver/internal/media/native"
	"github.com/mirrorbeam/social-archiver/internal/media/ytdlp"
	"github.com/mirrorbeam/social-archiver/internal/pipeline"
	"github.com/mirrorbeam/social-archiver/internal/pubsub"
	_ "github.com/mirrorbeam/social-archiver/platforms"
)

func main() {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := config.Build()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := &cli.App{
		Name:  "social-archiver",
		Usage: "mirror social video content into per-destination archives",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "load configuration from `FILE`",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "process",
				Usage:     "download the given URLs and publish them to their destinations",
				ArgsUsage: "URL [URL...]",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max-parallel",
						Usage: "override the configured download concurrency `LIMIT`",
					},
					&cli.Int64Flag{
						Name:  "entity",
						Usage: "publish everything to entity `ID` instead of the destination table",
					},
					&cli.IntFlag{
						Name:  "topic",
						Usage: "publish everything to topic `ID` (requires --entity)",
					},
					&cli.StringFlag{
						Name:  "backend",
						Value: "ytdlp",
						Usage: "extraction backend: ytdlp or native",
					},
				},
				Action: func(c *cli.Context) error { return runProcess(ctx, c) },
			},
			{
				Name:  "sync",
				Usage: "rebuild the dedup ledger from processing history",
				Action: func(c *cli.Context) error { return runSync(ctx, c) },
			},
			{
				Name:  "history",
				Usage: "show recently processed videos",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Value: 20,
						Usage: "show at most `N` videos",
					},
					&cli.StringFlag{
						Name:  "batch",
						Usage: "show only videos from batch `ID`",
					},
				},
				Action: func(c *cli.Context) error { return runHistory(c) },
			},
		},
		HideHelpCommand: true,
	}

	result := async.Run(func() error { return app.Run(os.Args) })

	select {
	case err = <-result:
		if err != nil {
			logger.Fatal(err.Error())
		}
	case <-ctx.Done():
		stop()
		err = <-result
		if err != nil {
			logger.Fatal(err.Error())
		}
	}
}

// services is everything a command needs, built from configuration.
type services struct {
	cfg     *social_archiver.Config
	archive *archive.Archive
	journal boltdb.Database
	ledger  *ledger.Ledger
}

func newServices(c *cli.Context) (*services, error) {
	cfg, err := social_archiver.LoadConfig(c.String("env"))
	if err != nil {
		return nil, err
	}
	if err := cfg.LoadEntities(); err != nil {
		return nil, err
	}

	arch, err := archive.Open(cfg.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	if err := arch.Migrate(); err != nil {
		arch.Close()
		return nil, fmt.Errorf("failed to migrate archive: %w", err)
	}

	journal, err := boltdb.New(cfg.JournalPath)
	if err != nil {
		arch.Close()
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	led := ledger.New(ledger.FileStore{Dir: cfg.LedgerDir}, arch, registryExtract)

	return &services{cfg: cfg, archive: arch, journal: journal, ledger: led}, nil
}

func (s *services) Close() {
	_ = s.journal.Close()
	s.archive.Close()
}

func registryExtract(rawURL string) (string, error) {
	id, err := social_archiver.DefaultPlatformRegistry.ExtractID(rawURL)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func newUploader(cfg *social_archiver.Config) pipeline.Uploader {
	return export.NewUploader(cfg.ExportDir)
}

func newDownloader(name string) (media.Downloader, error) {
	switch name {
	case "ytdlp":
		return ytdlp.New(), nil
	case "native":
		return native.New(), nil
	default:
		return nil, fmt.Errorf("unknown extraction backend %q", name)
	}
}

func runProcess(ctx context.Context, c *cli.Context) error {
	urls := c.Args().Slice()
	if len(urls) == 0 {
		return fmt.Errorf("no URLs given")
	}

	svc, err := newServices(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	downloader, err := newDownloader(c.String("backend"))
	if err != nil {
		return err
	}
	maxParallel := svc.cfg.MaxParallelDownloads
	if c.Int("max-parallel") > 0 {
		maxParallel = c.Int("max-parallel")
	}

	pipe := pipeline.New(pipeline.Config{
		Registry:             &social_archiver.DefaultPlatformRegistry,
		Downloader:           downloader,
		Uploader:             newUploader(svc.cfg),
		Ledger:               svc.ledger,
		Destinations:         svc.cfg.Destinations,
		DownloadDir:          svc.cfg.DownloadDir,
		MaxParallelDownloads: maxParallel,
	})
	defer pipe.Close()

	events, err := pipe.Subscribe()
	if err != nil {
		return err
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		watchEvents(events, len(urls))
	}()

	f := flow.New(flow.Config{
		Processor: pipe,
		Ledger:    svc.ledger,
		Archive:   svc.archive,
		Journal:   svc.journal,
	})

	opts := pipeline.Options{}
	if c.Int64("entity") != 0 {
		opts.Destination = social_archiver.Destination{
			EntityID: c.Int64("entity"),
			TopicID:  c.Int("topic"),
		}
		if opts.Destination.TopicID == 0 {
			opts.Destination.TopicID = social_archiver.DefaultTopicID
		}
	}

	results := f.Process(ctx, urls, opts)
	pipe.Close()
	wg.Wait()

	return report(results)
}

// watchEvents drives the progress bar and debug-logs how each item changed
// between leaving the download stage and leaving the upload stage.
func watchEvents(events pubsub.ReceiverCloser[pipeline.Event], total int) {
	logger := zap.S()
	bar := progressbar.Default(int64(total), "mirroring")
	snapshots := make(map[int]pipeline.Result)
	for event := range events.Receive() {
		switch e := event.(type) {
		case pipeline.DownloadFinished:
			snapshots[e.Result.Index] = *e.Result
		case pipeline.UploadFinished:
			if old, ok := snapshots[e.Result.Index]; ok {
				changes, err := diff.Diff(old, *e.Result)
				if err != nil {
					logger.Errorf("failed to diff item states: %v", err)
				} else {
					for _, change := range changes {
						logger.Debugf("%s: %v: %#v -> %#v", e.Result.URL, change.Path, change.From, change.To)
					}
				}
				delete(snapshots, e.Result.Index)
			}
			_ = bar.Add(1)
		case pipeline.BatchFinished:
			_ = bar.Finish()
			return
		}
	}
}

func report(results []*pipeline.Result) error {
	logger := zap.S()
	success, duplicates, failures := 0, 0, 0
	for _, r := range results {
		switch {
		case r.Success():
			success++
		case r.Duplicate:
			duplicates++
			logger.Infof("duplicate: %s", r.URL)
		case r.Err != nil:
			failures++
			logger.Warnf("failed: %s: %v", r.URL, r.Err)
		default:
			failures++
			logger.Warnf("upload failed: %s: %v", r.URL, r.UploadErr)
		}
	}
	logger.Infof("batch complete: %d mirrored, %d duplicates, %d failures", success, duplicates, failures)
	if failures > 0 {
		return fmt.Errorf("%d of %d items failed", failures, len(results))
	}
	return nil
}

func runSync(ctx context.Context, c *cli.Context) error {
	svc, err := newServices(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	f := flow.New(flow.Config{Ledger: svc.ledger})
	found := f.SyncLedger(ctx, svc.cfg.Ledger.EntityID, 0)
	zap.S().Infof("ledger sync complete: %d new IDs", found)
	return nil
}

func runHistory(c *cli.Context) error {
	svc, err := newServices(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	var videos []archive.Video
	if batchID := c.String("batch"); batchID != "" {
		videos, err = svc.archive.GetVideosByBatchID(batchID)
	} else {
		videos, err = svc.archive.GetRecentVideos(c.Int("limit"))
	}
	if err != nil {
		return err
	}

	if len(videos) == 0 {
		fmt.Println("no videos recorded")
		return nil
	}
	for _, v := range videos {
		fmt.Printf("%s  %-8s  %-32s  %s\n", v.Added.Format("2006-01-02 15:04"), v.UploadStatus, v.ContentID, v.Title)
	}
	return nil
}
