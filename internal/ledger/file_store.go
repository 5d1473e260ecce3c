package ledger

import (
	"context"
	"os"
	"path/filepath"
)

const (
	statusFilename = "status.txt"
	idsFilename    = "video_ids.txt"
)

// FileStore is a Store over two local files, used when no remote slot is
// configured. The on-disk format is identical to the remote record: a status
// text and a one-ID-per-line attachment.
type FileStore struct {
	Dir string
}

func (s FileStore) FetchRecord(_ context.Context) (string, []byte, error) {
	text, err := os.ReadFile(filepath.Join(s.Dir, statusFilename))
	if err != nil {
		return "", nil, err
	}
	attachment, err := os.ReadFile(filepath.Join(s.Dir, idsFilename))
	if err != nil && !os.IsNotExist(err) {
		return "", nil, err
	}
	return string(text), attachment, nil
}

func (s FileStore) ReplaceRecord(_ context.Context, text string, attachment []byte) error {
	if err := os.MkdirAll(s.Dir, 0775); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(s.Dir, statusFilename), []byte(text), 0644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.Dir, idsFilename), attachment, 0644)
}
