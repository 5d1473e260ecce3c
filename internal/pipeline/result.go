package pipeline

import (
	social_archiver "github.com/mirrorbeam/social-archiver"
)

type UploadStatus string

const (
	// UploadStatusPending is the initial state, before the item has passed
	// through the upload stage.
	UploadStatusPending UploadStatus = "pending"
	// UploadStatusSkipped means no upload was attempted: the item was a
	// duplicate or its download failed.
	UploadStatusSkipped UploadStatus = "skipped"
	UploadStatusSuccess UploadStatus = "success"
	UploadStatusFailed  UploadStatus = "failed"
)

// A Result records the complete outcome for one input URL. It is created by a
// download worker and not mutated after leaving the download stage, except
// that the upload stage attaches UploadStatus and UploadErr.
type Result struct {
	// Index is the URL's position in the input batch.
	Index int
	URL   string

	ContentID   social_archiver.ContentID
	ContentType social_archiver.ContentType
	// Duplicate marks an item skipped because its ID was already in the
	// ledger. Distinct from a failure: Err stays nil.
	Duplicate bool

	// Title is the media title reported by the extraction backend.
	Title string
	// File is the resolved local path of the downloaded media, empty unless
	// the download succeeded.
	File    string
	Caption string
	Dest    social_archiver.Destination
	// Err is the download-stage failure, if any.
	Err error

	UploadStatus UploadStatus
	UploadErr    error
}

// Downloaded reports whether the item cleared the download stage with a
// usable local file.
func (r *Result) Downloaded() bool {
	return r.Err == nil && !r.Duplicate && r.File != ""
}

// Success reports whether the item was fully mirrored.
func (r *Result) Success() bool {
	return r.UploadStatus == UploadStatusSuccess
}
