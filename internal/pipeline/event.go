package pipeline

// An Event is a progress notification published while a batch runs. Item
// returns the result the event concerns, or nil for batch-level events.
// Item events hold a snapshot taken when the event was published, never the
// live batch entry, so subscribers can read them without synchronising with
// the running pipeline.
type Event interface {
	Item() *Result
}

// DownloadFinished is published when an item leaves the download stage,
// whether it succeeded, failed or was a duplicate.
type DownloadFinished struct {
	Result *Result
}

func (e DownloadFinished) Item() *Result { return e.Result }

// UploadFinished is published when the upload stage is done with an item,
// including items it skipped.
type UploadFinished struct {
	Result *Result
}

func (e UploadFinished) Item() *Result { return e.Result }

// BatchFinished is published once per Process call, after the last upload.
type BatchFinished struct {
	Results []*Result
}

func (e BatchFinished) Item() *Result { return nil }
