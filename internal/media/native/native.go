// Package native is a YouTube-only extraction backend with no external
// binary dependency, built on the kkdai/youtube client. Useful where yt-dlp
// is unavailable; every other platform still needs the ytdlp backend.
package native

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kkdai/youtube/v2"
	"go.uber.org/zap"

	"github.com/mirrorbeam/social-archiver/internal/media"
)

var ErrNoUsableFormat = errors.New("no format with audio channels")

type Downloader struct {
	log *zap.SugaredLogger
}

var _ media.Downloader = (*Downloader)(nil)

func New() *Downloader {
	return &Downloader{log: zap.S().Named("native")}
}

func (d *Downloader) Download(ctx context.Context, rawURL string, opts media.Options) (*media.Info, error) {
	client := youtube.Client{}
	video, err := client.GetVideoContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get video info: %w", err)
	}
	// TODO: select "highest" quality instead of the first muxed format
	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return nil, ErrNoUsableFormat
	}
	format := &formats[0]

	views := int64(video.Views)
	info := &media.Info{
		ID:         video.ID,
		Extractor:  "youtube",
		Title:      video.Title,
		Ext:        extFromMimeType(format.MimeType),
		WebpageURL: fmt.Sprintf("https://www.youtube.com/watch?v=%s", video.ID),
		Uploader:   video.Author,
		UploaderID: video.ChannelID,
		Channel:    video.Author,
		ChannelURL: fmt.Sprintf("https://www.youtube.com/channel/%s", video.ChannelID),
		ViewCount:  &views,
		Duration:   video.Duration.Seconds(),
	}
	if !video.PublishDate.IsZero() {
		info.Timestamp = video.PublishDate.Unix()
	}
	if opts.SkipDownload {
		return info, nil
	}

	stream, size, err := client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream: %w", err)
	}
	defer stream.Close()

	path := filepath.Join(opts.TargetDir, fmt.Sprintf("%s.%s", video.ID, info.Ext))
	d.log.Debugw("saving stream", "id", video.ID, "path", path, "size", size)
	if err := saveStream(path, stream); err != nil {
		return nil, err
	}
	info.Filepath = path
	return info, nil
}

func saveStream(path string, stream io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if _, err := io.Copy(f, stream); err != nil {
		f.Close()
		return fmt.Errorf("failed to save stream: %w", err)
	}
	return f.Close()
}

func extFromMimeType(mimeType string) string {
	mimeType = strings.SplitN(mimeType, ";", 2)[0]
	if parts := strings.SplitN(mimeType, "/", 2); len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}
	return "mp4"
}
