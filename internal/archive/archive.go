// Package archive is the local index of processed videos: which content IDs
// were mirrored when, by which batch, and with what outcome. It backs the
// history command; the authoritative dedup state remains the remote ledger.
package archive

import (
	"context"
	"database/sql"
	"embed"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mirrorbeam/social-archiver/internal/telegram"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

type RowID = int64

type Archive struct {
	db  *sqlx.DB
	log *zap.SugaredLogger
}

func Open(path string) (*Archive, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, err
	}
	return &Archive{db: db, log: zap.S().Named("archive")}, nil
}

func (a *Archive) Migrate() error {
	a.log.Debug("running archive migrations")
	fs, err := iofs.New(embedMigrations, "migrations")
	if err != nil {
		return err
	}
	driver, err := sqlite3.WithInstance(a.db.DB, &sqlite3.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", fs, "sqlite3", driver)
	if err != nil {
		return err
	}
	err = m.Up()
	switch err {
	case nil:
		a.log.Debug("archive migration complete")
	case migrate.ErrNoChange:
		a.log.Debug("no archive migration required")
	default:
		return err
	}
	return nil
}

func (a *Archive) Close() {
	_ = a.db.Close()
}

// A Video is one processed item. Added is set by the database on insert.
type Video struct {
	ID           RowID  `db:"rowid"`
	ContentID    string `db:"content_id"`
	Platform     string
	URL          string `db:"url"`
	Title        string
	File         string
	UploadStatus string `db:"upload_status"`
	UploadError  string `db:"upload_error"`
	BatchID      string `db:"batch_id"`
	Added        time.Time
}

// InsertVideo adds a processed item, overwriting any auto-generated
// attributes with those from the database.
func (a *Archive) InsertVideo(v *Video) error {
	res, err := a.db.NamedExec(
		`INSERT INTO video (content_id, platform, url, title, file, upload_status, upload_error, batch_id)
		 VALUES (:content_id, :platform, :url, :title, :file, :upload_status, :upload_error, :batch_id)`, v)
	if err != nil {
		return err
	}
	if v.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	return a.RefreshVideo(v)
}

// RefreshVideo will reload the video information from the database.
func (a *Archive) RefreshVideo(v *Video) error {
	return a.db.Get(v, `SELECT rowid, * FROM video WHERE rowid = ?`, v.ID)
}

func (a *Archive) GetVideosByBatchID(batchID string) ([]Video, error) {
	var videos []Video
	if err := a.db.Select(&videos, `SELECT rowid, * FROM video WHERE batch_id = ? ORDER BY rowid`, batchID); err != nil {
		return nil, err
	}
	return videos, nil
}

func (a *Archive) GetRecentVideos(limit int) ([]Video, error) {
	var videos []Video
	if err := a.db.Select(&videos, `SELECT rowid, * FROM video ORDER BY rowid DESC LIMIT ?`, limit); err != nil {
		return nil, err
	}
	return videos, nil
}

// GetVideoByContentID returns the most recent record for the content ID, or
// (nil, nil) if the error is only that no such row exists.
func (a *Archive) GetVideoByContentID(contentID string) (*Video, error) {
	v := Video{}
	if err := a.db.Get(&v, `SELECT rowid, * FROM video WHERE content_id = ? ORDER BY rowid DESC LIMIT 1`, contentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (a *Archive) CountVideos() (int64, error) {
	var count int64
	if err := a.db.Get(&count, `SELECT COUNT(*) FROM video`); err != nil {
		return 0, err
	}
	return count, nil
}

// ScanMessages presents the archive as a message history for ledger sync:
// each row is a message whose ID is the rowid and whose text is the original
// URL, visited in ascending rowid order strictly after minID. The entity and
// topic arguments are ignored; the archive is a single local history.
func (a *Archive) ScanMessages(ctx context.Context, _ int64, _ int, minID int, fn func(telegram.Message) error) error {
	var videos []Video
	if err := a.db.SelectContext(ctx, &videos, `SELECT rowid, * FROM video WHERE rowid > ? ORDER BY rowid`, int64(minID)); err != nil {
		return err
	}
	for _, v := range videos {
		if err := fn(telegram.Message{ID: int(v.ID), Text: v.URL}); err != nil {
			return err
		}
	}
	return nil
}
