package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"

	social_archiver "github.com/mirrorbeam/social-archiver"
	"github.com/mirrorbeam/social-archiver/internal/media"
)

func testRegistry(t *testing.T) *social_archiver.PlatformRegistry {
	t.Helper()
	r := &social_archiver.PlatformRegistry{}
	r.MustAdd(social_archiver.Platform{
		Name: "testtube",
		Match: func(u *url.URL) (string, error) {
			if u.Hostname() != "videos.example.com" {
				return "", fmt.Errorf("unrecognised host %q", u.Hostname())
			}
			if id, ok := strings.CutPrefix(u.Path, "/v/"); ok && id != "" {
				return id, nil
			}
			return "", fmt.Errorf("unrecognised path %q", u.Path)
		},
		DefaultFormat: "best",
		Caption: func(info *media.Info) social_archiver.Caption {
			return social_archiver.Caption{Title: info.BestTitle(), VideoURL: info.WebpageURL}
		},
		Classify: func(rawURL string, info *media.Info) social_archiver.ContentType {
			if strings.Contains(rawURL, "/v/s-") {
				return social_archiver.ContentTypeShort
			}
			return social_archiver.ContentTypeVideo
		},
	})
	return r
}

func testURL(id string) string {
	return "https://videos.example.com/v/" + id
}

type fakeDownloader struct {
	delay      time.Duration
	failURLs   map[string]error
	noFileURLs map[string]bool

	mu          sync.Mutex
	calls       []string
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (d *fakeDownloader) Download(_ context.Context, rawURL string, opts media.Options) (*media.Info, error) {
	cur := d.inFlight.Add(1)
	defer d.inFlight.Add(-1)
	for {
		seen := d.maxInFlight.Load()
		if cur <= seen || d.maxInFlight.CompareAndSwap(seen, cur) {
			break
		}
	}

	d.mu.Lock()
	d.calls = append(d.calls, rawURL)
	d.mu.Unlock()

	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	if err := d.failURLs[rawURL]; err != nil {
		return nil, err
	}

	id := rawURL[strings.LastIndex(rawURL, "/")+1:]
	info := &media.Info{ID: id, Ext: "mp4", Title: "Video " + id, WebpageURL: rawURL}
	if !d.noFileURLs[rawURL] {
		path := filepath.Join(opts.TargetDir, id+".mp4")
		if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
			return nil, err
		}
		info.Filepath = path
	}
	return info, nil
}

func (d *fakeDownloader) called(rawURL string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.calls {
		if c == rawURL {
			return true
		}
	}
	return false
}

type fakeUploader struct {
	delay    time.Duration
	failPath string

	mu         sync.Mutex
	uploads    []string
	inProgress atomic.Bool
	overlapped atomic.Bool
}

func (u *fakeUploader) Upload(_ context.Context, _ social_archiver.Destination, path string, _ string) error {
	if !u.inProgress.CompareAndSwap(false, true) {
		u.overlapped.Store(true)
	}
	defer u.inProgress.Store(false)
	if u.delay > 0 {
		time.Sleep(u.delay)
	}
	u.mu.Lock()
	u.uploads = append(u.uploads, path)
	u.mu.Unlock()
	if u.failPath != "" && path == u.failPath {
		return fmt.Errorf("upload rejected: %s", path)
	}
	return nil
}

type fakeDeduper struct {
	mu    sync.Mutex
	known map[string]bool
	added []string
}

func (d *fakeDeduper) IsDuplicate(rawURL string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.known[rawURL]
}

func (d *fakeDeduper) AddID(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.added = append(d.added, id)
}

type testEnv struct {
	pipeline   *Pipeline
	downloader *fakeDownloader
	uploader   *fakeUploader
	deduper    *fakeDeduper
}

func newTestEnv(t *testing.T, maxParallel int) *testEnv {
	t.Helper()
	env := &testEnv{
		downloader: &fakeDownloader{},
		uploader:   &fakeUploader{},
		deduper:    &fakeDeduper{known: make(map[string]bool)},
	}
	env.pipeline = New(Config{
		Registry:   testRegistry(t),
		Downloader: env.downloader,
		Uploader:   env.uploader,
		Ledger:     env.deduper,
		Destinations: social_archiver.DestinationTable{
			"testtube": {GroupID: -100123, Topics: map[string]int{"videos": 7, "shorts": 8}},
		},
		DownloadDir:          t.TempDir(),
		MaxParallelDownloads: maxParallel,
	})
	t.Cleanup(env.pipeline.Close)
	return env
}

func TestProcessResultPerURL(t *testing.T) {
	assert := assert_.New(t)
	env := newTestEnv(t, 3)
	urls := []string{
		testURL("a1"),
		"https://elsewhere.example.net/watch?v=a1",
		testURL("b2"),
		testURL("c3"),
	}
	env.downloader.failURLs = map[string]error{testURL("b2"): fmt.Errorf("geo restricted")}

	results := env.pipeline.Process(context.Background(), urls, Options{})

	assert.Len(results, len(urls))
	for i, r := range results {
		assert.Equal(i, r.Index)
		assert.Equal(urls[i], r.URL)
	}

	assert.True(results[0].Success())
	assert.Equal(social_archiver.ContentID{Platform: "testtube", ID: "a1"}, results[0].ContentID)
	assert.Equal(social_archiver.Destination{EntityID: -100123, TopicID: 7}, results[0].Dest)
	assert.NotEmpty(results[0].Caption)

	assert.ErrorIs(results[1].Err, social_archiver.ErrNoMatch)
	assert.Equal(UploadStatusSkipped, results[1].UploadStatus)

	assert.ErrorContains(results[2].Err, "geo restricted")
	assert.Equal(UploadStatusSkipped, results[2].UploadStatus)

	assert.True(results[3].Success())
	assert.ElementsMatch([]string{"testtube:a1", "testtube:c3"}, env.deduper.added)
}

func TestProcessDuplicateShortCircuit(t *testing.T) {
	assert := assert_.New(t)
	env := newTestEnv(t, 3)
	dup := testURL("seen")
	env.deduper.known[dup] = true

	results := env.pipeline.Process(context.Background(), []string{dup, testURL("fresh")}, Options{})

	assert.True(results[0].Duplicate)
	assert.NoError(results[0].Err)
	assert.Equal(UploadStatusSkipped, results[0].UploadStatus)
	assert.False(env.downloader.called(dup), "duplicate must not reach the downloader")

	assert.True(results[1].Success())
	assert.True(env.downloader.called(testURL("fresh")))
}

func TestProcessBoundedConcurrency(t *testing.T) {
	for _, limit := range []int{1, 2, 5} {
		limit := limit
		t.Run(fmt.Sprintf("max_parallel=%d", limit), func(t *testing.T) {
			assert := assert_.New(t)
			env := newTestEnv(t, limit)
			env.downloader.delay = 20 * time.Millisecond

			urls := make([]string, 10)
			for i := range urls {
				urls[i] = testURL(fmt.Sprintf("v%02d", i))
			}
			results := env.pipeline.Process(context.Background(), urls, Options{})

			for _, r := range results {
				assert.True(r.Success(), "url %s: %v / %v", r.URL, r.Err, r.UploadErr)
			}
			assert.LessOrEqual(env.downloader.maxInFlight.Load(), int32(limit))
		})
	}
}

func TestProcessSequentialUploads(t *testing.T) {
	assert := assert_.New(t)
	env := newTestEnv(t, 5)
	env.downloader.delay = 2 * time.Millisecond
	env.uploader.delay = 2 * time.Millisecond

	urls := make([]string, 12)
	for i := range urls {
		urls[i] = testURL(fmt.Sprintf("v%02d", i))
	}
	results := env.pipeline.Process(context.Background(), urls, Options{})

	for _, r := range results {
		assert.True(r.Success())
	}
	assert.Len(env.uploader.uploads, 12)
	assert.False(env.uploader.overlapped.Load(), "uploads must never overlap")
}

func TestProcessUploadFailureContinues(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)
	env := newTestEnv(t, 2)
	urls := []string{testURL("ok1"), testURL("bad"), testURL("ok2")}
	env.uploader.failPath = filepath.Join(env.pipeline.cfg.DownloadDir, "bad.mp4")

	results := env.pipeline.Process(context.Background(), urls, Options{})
	require.Len(results, 3)

	var failed *Result
	success := 0
	for _, r := range results {
		if r.UploadStatus == UploadStatusFailed {
			failed = r
		} else if r.Success() {
			success++
		}
	}
	require.NotNil(failed)
	assert.Equal(testURL("bad"), failed.URL)
	assert.ErrorContains(failed.UploadErr, "upload rejected")
	assert.Equal(2, success)
	assert.NotContains(env.deduper.added, "testtube:bad")
}

func TestProcessMissingFile(t *testing.T) {
	assert := assert_.New(t)
	env := newTestEnv(t, 2)
	gone := testURL("gone")
	env.downloader.noFileURLs = map[string]bool{gone: true}

	results := env.pipeline.Process(context.Background(), []string{gone}, Options{})

	assert.ErrorIs(results[0].Err, media.ErrFileNotFound)
	assert.Equal(UploadStatusSkipped, results[0].UploadStatus)
	assert.Empty(env.uploader.uploads)
}

func TestProcessNoDestination(t *testing.T) {
	assert := assert_.New(t)
	env := newTestEnv(t, 2)
	env.pipeline.cfg.Destinations = nil

	results := env.pipeline.Process(context.Background(), []string{testURL("a1")}, Options{})

	assert.Equal(UploadStatusFailed, results[0].UploadStatus)
	assert.ErrorIs(results[0].UploadErr, ErrNoDestination)
}

func TestProcessExplicitDestination(t *testing.T) {
	assert := assert_.New(t)
	env := newTestEnv(t, 2)
	dest := social_archiver.Destination{EntityID: -200456, TopicID: 33}

	results := env.pipeline.Process(context.Background(), []string{testURL("a1")}, Options{Destination: dest})

	assert.True(results[0].Success())
	assert.Equal(dest, results[0].Dest)
}

func TestProcessShortFormDestination(t *testing.T) {
	assert := assert_.New(t)
	env := newTestEnv(t, 2)

	results := env.pipeline.Process(context.Background(), []string{testURL("s-clip1")}, Options{})

	assert.True(results[0].Success())
	assert.Equal(social_archiver.ContentTypeShort, results[0].ContentType)
	assert.Equal(social_archiver.Destination{EntityID: -100123, TopicID: 8}, results[0].Dest)
}

func TestProcessEventSnapshots(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)
	env := newTestEnv(t, 4)
	env.downloader.delay = 2 * time.Millisecond
	env.uploader.delay = 2 * time.Millisecond

	sub, err := env.pipeline.events.SubscribeBufSize(64)
	require.NoError(err)

	urls := make([]string, 16)
	for i := range urls {
		urls[i] = testURL(fmt.Sprintf("v%02d", i))
	}

	// Consume events while the batch is running, reading each item's fields
	// as they arrive. The upload stage writes to the live results at the
	// same time, so the events must carry snapshots, not aliases.
	downloadSnaps := make(map[int]*Result)
	var watcher sync.WaitGroup
	watcher.Add(1)
	go func() {
		defer watcher.Done()
		for ev := range sub.Receive() {
			switch e := ev.(type) {
			case DownloadFinished:
				downloadSnaps[e.Result.Index] = e.Result
			case BatchFinished:
				return
			}
		}
	}()

	results := env.pipeline.Process(context.Background(), urls, Options{})
	watcher.Wait()

	require.Len(downloadSnaps, len(urls))
	for i, r := range results {
		snap := downloadSnaps[i]
		assert.NotSame(r, snap, "event must not alias the live result")
		// The snapshot was taken when the item left the download stage, so
		// later upload-stage writes must not show through.
		assert.Equal(UploadStatusPending, snap.UploadStatus, "url %s", r.URL)
		assert.True(r.Success())
	}
}

func TestProcessEvents(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)
	env := newTestEnv(t, 2)
	sub, err := env.pipeline.events.SubscribeBufSize(64)
	require.NoError(err)

	env.pipeline.Process(context.Background(), []string{testURL("a1"), testURL("b2")}, Options{})

	downloads, uploads := 0, 0
	for ev := range sub.Receive() {
		switch e := ev.(type) {
		case DownloadFinished:
			downloads++
			assert.NotNil(e.Item())
		case UploadFinished:
			uploads++
		case BatchFinished:
			assert.Len(e.Results, 2)
			assert.Nil(e.Item())
		}
		if _, done := ev.(BatchFinished); done {
			break
		}
	}
	assert.Equal(2, downloads)
	assert.Equal(2, uploads)
}
