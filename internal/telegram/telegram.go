// Package telegram defines the contract with the messaging transport. The
// concrete MTProto client lives outside this repository; everything here is
// expressed against these interfaces so the pipeline and ledger can be
// exercised with fakes.
package telegram

import (
	"bytes"
	"context"
	"errors"
	"io"

	social_archiver "github.com/mirrorbeam/social-archiver"
)

var ErrMessageNotFound = errors.New("message not found")

// Message is the subset of a remote message the archiver consumes.
type Message struct {
	ID            int
	Text          string
	HasAttachment bool
}

// Client is the content-owner identity: full history access, pinned record
// editing and large-media upload.
type Client interface {
	// GetMessage fetches a single message by ID, or ErrMessageNotFound.
	GetMessage(ctx context.Context, entityID int64, messageID int) (*Message, error)
	// ScanMessages calls fn for every message of the entity with ID > minID,
	// in ascending ID order. topicID of 0 means the whole entity.
	ScanMessages(ctx context.Context, entityID int64, topicID int, minID int, fn func(Message) error) error
	// DownloadAttachment writes the message's attached file to w.
	DownloadAttachment(ctx context.Context, entityID int64, messageID int, w io.Writer) error
	// EditMessage replaces a message's text and its attached file together.
	EditMessage(ctx context.Context, entityID int64, messageID int, text string, attachment io.Reader, filename string) error
	// SendFile posts the file with a caption into (entity, topic).
	SendFile(ctx context.Context, entityID int64, topicID int, path string, caption string) error
	// CreateTopic creates a forum sub-topic on the entity and returns its ID.
	CreateTopic(ctx context.Context, entityID int64, title string) (int, error)
}

// ClientUploader adapts a Client to the upload stage's Uploader interface.
type ClientUploader struct {
	Client Client
}

func (u ClientUploader) Upload(ctx context.Context, dest social_archiver.Destination, path string, caption string) error {
	return u.Client.SendFile(ctx, dest.EntityID, dest.TopicID, path, caption)
}

// A LedgerSlot binds a Client to the fixed (entity, message) location holding
// a platform's deduplication record, exposing the ledger's store operations.
type LedgerSlot struct {
	Client Client
	Slot   social_archiver.LedgerSlot
}

// FetchRecord returns the status text and bulk attachment of the slot.
func (s LedgerSlot) FetchRecord(ctx context.Context) (string, []byte, error) {
	msg, err := s.Client.GetMessage(ctx, s.Slot.EntityID, s.Slot.MessageID)
	if err != nil {
		return "", nil, err
	}
	var attachment []byte
	if msg.HasAttachment {
		buf := bytes.Buffer{}
		if err := s.Client.DownloadAttachment(ctx, s.Slot.EntityID, s.Slot.MessageID, &buf); err != nil {
			return msg.Text, nil, err
		}
		attachment = buf.Bytes()
	}
	return msg.Text, attachment, nil
}

// ReplaceRecord atomically updates the slot's status text and attachment.
func (s LedgerSlot) ReplaceRecord(ctx context.Context, text string, attachment []byte) error {
	return s.Client.EditMessage(ctx, s.Slot.EntityID, s.Slot.MessageID, text, bytes.NewReader(attachment), "video_ids.txt")
}

// ScanMessages forwards to the underlying client, satisfying the ledger's
// Scanner interface.
func (s LedgerSlot) ScanMessages(ctx context.Context, entityID int64, topicID int, minID int, fn func(Message) error) error {
	return s.Client.ScanMessages(ctx, entityID, topicID, minID, fn)
}
