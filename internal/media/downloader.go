package media

import "context"

// Options control one extraction request.
type Options struct {
	// Format is the backend format selector; empty means the backend default.
	Format string
	// TargetDir is where the backend should write the downloaded file.
	TargetDir string
	// SkipDownload fetches metadata only.
	SkipDownload bool
}

// A Downloader fetches media and metadata for a URL. Implementations must be
// safe for concurrent use; the pipeline calls Download from multiple
// goroutines at once.
type Downloader interface {
	Download(ctx context.Context, url string, opts Options) (*Info, error)
}
