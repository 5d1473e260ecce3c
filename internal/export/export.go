// Package export is a filesystem implementation of the upload transport:
// published items land in a per-destination directory tree instead of a chat.
// It stands in for a real messaging client wherever one is not configured.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	social_archiver "github.com/mirrorbeam/social-archiver"
)

// Uploader copies each published file to Dir/<entity>/<topic>/ and writes the
// caption alongside it as <name>.caption.txt.
type Uploader struct {
	Dir string

	log *zap.SugaredLogger
}

func NewUploader(dir string) *Uploader {
	return &Uploader{Dir: dir, log: zap.S().Named("export")}
}

func (u *Uploader) Upload(_ context.Context, dest social_archiver.Destination, path string, caption string) error {
	destDir := filepath.Join(u.Dir, fmt.Sprintf("%d", dest.EntityID), fmt.Sprintf("%d", dest.TopicID))
	if err := os.MkdirAll(destDir, 0775); err != nil {
		return err
	}

	name := filepath.Base(path)
	target := filepath.Join(destDir, name)
	if err := copyFile(path, target); err != nil {
		return err
	}
	if caption != "" {
		captionPath := filepath.Join(destDir, name+".caption.txt")
		if err := os.WriteFile(captionPath, []byte(caption), 0644); err != nil {
			return err
		}
	}
	u.log.Infow("exported", "file", target)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
