// Package ledger implements the deduplication ledger: a persistent set of
// content IDs stored in a fixed remote message slot, with a cursor into the
// mirror channel's history so incremental syncs only scan new messages.
//
// The persisted form is two artifacts in one slot: a three-line status text
// carrying the cursor and counters, and a bulk attachment holding one ID per
// line. Save always re-reads the current remote attachment and unions it with
// the local set before writing, so concurrent sessions merge rather than
// clobber each other.
package ledger

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mirrorbeam/social-archiver/generic"
	"github.com/mirrorbeam/social-archiver/internal/sync_"
	"github.com/mirrorbeam/social-archiver/internal/telegram"
	"github.com/mirrorbeam/social-archiver/util"
)

const (
	lastMsgMarker = "Last processed message ID:"
	totalMarker   = "Total video IDs:"
	newMarker     = "New IDs in this sync:"
)

var lastMsgPattern = regexp.MustCompile(`(?i)` + lastMsgMarker + `\s*(\d+|none)`)

// Store is the remote slot holding the persisted ledger record.
type Store interface {
	// FetchRecord returns the slot's status text and bulk ID attachment.
	FetchRecord(ctx context.Context) (text string, attachment []byte, err error)
	// ReplaceRecord atomically updates both artifacts of the slot.
	ReplaceRecord(ctx context.Context, text string, attachment []byte) error
}

// Scanner iterates a remote message history in ascending ID order.
type Scanner interface {
	ScanMessages(ctx context.Context, entityID int64, topicID int, minID int, fn func(telegram.Message) error) error
}

// ExtractFunc derives a content ID from a URL. An error means the URL shape
// is unrecognised, which the ledger treats permissively.
type ExtractFunc func(rawURL string) (string, error)

type state struct {
	ids       generic.Set[string]
	lastMsgID int
}

// Ledger tracks which content IDs have already been mirrored. The in-memory
// set only grows during a session; persistence is explicit via Save. Safe for
// concurrent use: the pipeline consults it from several download workers.
type Ledger struct {
	store   Store
	scanner Scanner
	extract ExtractFunc
	log     *zap.SugaredLogger

	state *sync_.Mutexed[*state]
}

func New(store Store, scanner Scanner, extract ExtractFunc) *Ledger {
	return &Ledger{
		store:   store,
		scanner: scanner,
		extract: extract,
		log:     zap.S().Named("ledger"),
		state:   sync_.NewMutexed(&state{ids: generic.NewSet[string]()}),
	}
}

// Load fetches the persisted record. A missing or unreachable record is not
// fatal: the ledger starts empty with no cursor and Load returns false.
func (l *Ledger) Load(ctx context.Context) bool {
	text, attachment, err := l.store.FetchRecord(ctx)
	if err != nil {
		l.log.Warnw("ledger record unavailable, starting fresh", "error", err)
		l.reset()
		return false
	}

	cursor := parseCursor(text)
	ids := parseIDList(attachment)
	_ = l.state.Locked(func(s *state) error {
		s.ids = ids
		s.lastMsgID = cursor
		return nil
	})
	l.log.Infow("ledger loaded", "ids", ids.Count(), "last_msg_id", cursor)
	return true
}

// Sync scans the entity's message history strictly after the stored cursor,
// in ascending order, feeding the first URL of each message through the ID
// extractor. Returns the number of IDs newly discovered by this call. The
// cursor advances to the highest message ID observed, whether or not the
// message yielded an ID; on scan failure nothing is changed.
func (l *Ledger) Sync(ctx context.Context, entityID int64, topicID int) int {
	cursor := 0
	known := generic.NewSet[string]()
	_ = l.state.Locked(func(s *state) error {
		cursor = s.lastMsgID
		known = s.ids.Clone()
		return nil
	})

	newIDs := generic.NewSet[string]()
	latest := cursor
	err := l.scanner.ScanMessages(ctx, entityID, topicID, cursor, func(msg telegram.Message) error {
		if msg.ID > latest {
			latest = msg.ID
		}
		// Only the first URL is the content URL; later URLs in a mirror
		// message are auxiliary (channel links etc).
		first := util.FirstURL(msg.Text)
		if first == "" {
			return nil
		}
		id, err := l.extract(first)
		if err != nil {
			l.log.Debugw("no ID extracted during sync", "url", first, "message_id", msg.ID)
			return nil
		}
		if !known.Contains(id) && newIDs.Add(id) {
			l.log.Debugw("found new content ID", "id", id, "message_id", msg.ID)
		}
		return nil
	})
	if err != nil {
		l.log.Errorw("ledger sync failed", "entity_id", entityID, "error", err)
		return 0
	}

	_ = l.state.Locked(func(s *state) error {
		s.ids.AddAll(newIDs.ToSlice()...)
		if latest > s.lastMsgID {
			s.lastMsgID = latest
		}
		return nil
	})
	l.log.Infow("ledger sync complete", "new_ids", newIDs.Count(), "last_msg_id", latest)
	return newIDs.Count()
}

// IsDuplicate reports whether the URL's content ID is already known. A URL
// the extractor cannot parse is never a duplicate; unmatched content is
// always allowed through, and the anomaly is logged.
func (l *Ledger) IsDuplicate(rawURL string) bool {
	id, err := l.extract(rawURL)
	if err != nil {
		l.log.Warnw("could not extract ID from URL", "url", rawURL, "error", err)
		return false
	}
	dup := false
	_ = l.state.Locked(func(s *state) error {
		dup = s.ids.Contains(id)
		return nil
	})
	if dup {
		l.log.Infow("duplicate detected", "id", id)
	}
	return dup
}

// AddID records an ID in memory only; it is not persisted until Save.
func (l *Ledger) AddID(id string) {
	_ = l.state.Locked(func(s *state) error {
		s.ids.Add(id)
		return nil
	})
}

// Count returns the size of the in-memory ID set.
func (l *Ledger) Count() int {
	n := 0
	_ = l.state.Locked(func(s *state) error {
		n = s.ids.Count()
		return nil
	})
	return n
}

// LastMessageID returns the current cursor (0 when none).
func (l *Ledger) LastMessageID() int {
	n := 0
	_ = l.state.Locked(func(s *state) error {
		n = s.lastMsgID
		return nil
	})
	return n
}

// Save persists the ledger by merging with the current remote state: it
// re-reads the remote attachment, unions it with the local set, and replaces
// the slot's text and attachment with the merged result. This read-merge-write
// means two concurrent sessions union their additions instead of the later
// save clobbering the earlier one. Returns false (and logs) on any I/O error;
// the session's additions are then simply not persisted.
func (l *Ledger) Save(ctx context.Context, newIDCount int) bool {
	existing := generic.NewSet[string]()
	if _, attachment, err := l.store.FetchRecord(ctx); err != nil {
		l.log.Warnw("could not read current ledger record before save", "error", err)
	} else {
		existing = parseIDList(attachment)
	}

	var merged generic.Set[string]
	cursor := 0
	_ = l.state.Locked(func(s *state) error {
		merged = existing.Union(s.ids)
		cursor = s.lastMsgID
		return nil
	})

	text := buildStatusText(cursor, merged.Count(), newIDCount)
	if err := l.store.ReplaceRecord(ctx, text, buildIDList(merged)); err != nil {
		l.log.Errorw("failed to save ledger", "error", err)
		return false
	}

	_ = l.state.Locked(func(s *state) error {
		s.ids = merged
		return nil
	})
	l.log.Infow("ledger saved", "total_ids", merged.Count(), "new_ids", newIDCount)
	return true
}

func (l *Ledger) reset() {
	_ = l.state.Locked(func(s *state) error {
		s.ids = generic.NewSet[string]()
		s.lastMsgID = 0
		return nil
	})
}

func parseCursor(text string) int {
	m := lastMsgPattern.FindStringSubmatch(text)
	if m == nil || strings.EqualFold(m[1], "none") {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// parseIDList reads one ID per line, skipping blanks and '#' comments.
func parseIDList(data []byte) generic.Set[string] {
	ids := generic.NewSet[string]()
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids.Add(line)
	}
	return ids
}

// buildIDList writes the set one ID per line, sorted for determinism.
func buildIDList(ids generic.Set[string]) []byte {
	sorted := ids.ToSlice()
	sort.Strings(sorted)
	b := bytes.Buffer{}
	for _, id := range sorted {
		b.WriteString(id)
		b.WriteByte('\n')
	}
	return b.Bytes()
}

func buildStatusText(cursor int, totalIDs int, newIDs int) string {
	cursorText := "none"
	if cursor > 0 {
		cursorText = strconv.Itoa(cursor)
	}
	return fmt.Sprintf("%s %s\n%s %d\n%s %d", lastMsgMarker, cursorText, totalMarker, totalIDs, newMarker, newIDs)
}
