// Package ytdlp is the extraction backend that shells out to the yt-dlp
// binary. It works for every supported platform and is the default backend.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/mirrorbeam/social-archiver/internal/media"
)

const DefaultBinary = "yt-dlp"

// Downloader runs yt-dlp once per Download call, writing the media file as
// <id>.<ext> in the target directory and parsing the --print-json metadata
// record from stdout. Stateless, so safe for concurrent use.
type Downloader struct {
	// Binary is the yt-dlp executable name or path.
	Binary string

	log *zap.SugaredLogger
}

var _ media.Downloader = (*Downloader)(nil)

func New() *Downloader {
	return &Downloader{
		Binary: DefaultBinary,
		log:    zap.S().Named("ytdlp"),
	}
}

func (d *Downloader) Download(ctx context.Context, rawURL string, opts media.Options) (*media.Info, error) {
	args := []string{"--no-playlist", "--print-json"}
	if opts.Format != "" {
		args = append(args, "-f", opts.Format)
	}
	if opts.SkipDownload {
		args = append(args, "--skip-download")
	}
	if opts.TargetDir != "" {
		args = append(args, "-o", filepath.Join(opts.TargetDir, "%(id)s.%(ext)s"))
	}
	args = append(args, rawURL)

	cmd := exec.CommandContext(ctx, d.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	d.log.Debugw("running extractor", "binary", d.Binary, "args", args)
	if err := cmd.Run(); err != nil {
		if msg := lastLine(stderr.String()); msg != "" {
			return nil, fmt.Errorf("yt-dlp failed: %s: %w", msg, err)
		}
		return nil, fmt.Errorf("yt-dlp failed: %w", err)
	}

	info := &media.Info{}
	if err := json.NewDecoder(&stdout).Decode(info); err != nil {
		return nil, fmt.Errorf("could not parse yt-dlp output: %w", err)
	}
	return info, nil
}

// lastLine extracts the final non-empty line of yt-dlp's stderr, which is
// where it puts the actual error message after all the progress noise.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
