// ABOUTME: Ordered, deduplicated chat transcript for one conversation
// ABOUTME: Every mutation is a pure merge of current state and an incoming batch

package services

import (
	"slices"
	"strings"
	"time"

	"github.com/prit1626/IndiExport-B2B-sub001/models"
)

// Transcript holds the in-memory message list for one conversation. It
// guarantees two invariants after every mutation: no duplicate message IDs,
// and ascending order by creation timestamp (ID as tie-break). Transcript is
// not safe for concurrent use; the synchronizer serializes access.
type Transcript struct {
	messages []models.ChatMessage
	seen     map[string]struct{}
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{seen: make(map[string]struct{})}
}

// Reset discards all messages, e.g. on conversation switch.
func (t *Transcript) Reset() {
	t.messages = nil
	t.seen = make(map[string]struct{})
}

// ReplaceAll installs a freshly loaded history page as the entire transcript.
func (t *Transcript) ReplaceAll(batch []models.ChatMessage) {
	t.Reset()
	t.messages = dedupBatch(batch, t.seen)
	sortMessages(t.messages)
}

// PrependOlder merges an older history page in front of the transcript.
// Messages already present are dropped.
func (t *Transcript) PrependOlder(batch []models.ChatMessage) {
	older := dedupBatch(batch, t.seen)
	if len(older) == 0 {
		return
	}
	sortMessages(older)
	t.messages = append(older, t.messages...)
}

// MergeNew appends messages from a poll tick that are not yet present and
// returns them. The full transcript is re-sorted afterwards to guard against
// out-of-order arrival. A batch with nothing new mutates nothing.
func (t *Transcript) MergeNew(batch []models.ChatMessage) []models.ChatMessage {
	fresh := dedupBatch(batch, t.seen)
	if len(fresh) == 0 {
		return nil
	}
	t.messages = append(t.messages, fresh...)
	sortMessages(t.messages)
	return fresh
}

// Append adds a single server-confirmed message (e.g. one the user just sent)
// to the end of the transcript. Duplicates are ignored.
func (t *Transcript) Append(msg models.ChatMessage) bool {
	if _, ok := t.seen[msg.ID]; ok {
		return false
	}
	t.seen[msg.ID] = struct{}{}
	t.messages = append(t.messages, msg)
	sortMessages(t.messages)
	return true
}

// Messages returns a copy of the transcript in display order.
func (t *Transcript) Messages() []models.ChatMessage {
	out := make([]models.ChatMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages held.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// dedupBatch filters batch down to messages whose IDs are not in seen,
// recording the survivors in seen. Duplicates within the batch itself are
// also collapsed.
func dedupBatch(batch []models.ChatMessage, seen map[string]struct{}) []models.ChatMessage {
	var fresh []models.ChatMessage
	for _, msg := range batch {
		if _, ok := seen[msg.ID]; ok {
			continue
		}
		seen[msg.ID] = struct{}{}
		fresh = append(fresh, msg)
	}
	return fresh
}

// sortMessages orders messages ascending by creation time, ID as tie-break.
func sortMessages(msgs []models.ChatMessage) {
	slices.SortStableFunc(msgs, func(a, b models.ChatMessage) int {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if a.CreatedAt.Before(b.CreatedAt) {
				return -1
			}
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// GroupByDay partitions messages into contiguous calendar-day runs in the
// given location, labeling each "Today", "Yesterday", or an explicit date.
// This is a pure projection for display; it never reorders or drops messages.
func GroupByDay(msgs []models.ChatMessage, now time.Time, loc *time.Location) []models.DayGroup {
	if loc == nil {
		loc = time.Local
	}

	today := dayStart(now.In(loc))
	yesterday := today.AddDate(0, 0, -1)

	var groups []models.DayGroup
	var currentDay time.Time
	for _, msg := range msgs {
		day := dayStart(msg.CreatedAt.In(loc))
		if len(groups) == 0 || !day.Equal(currentDay) {
			groups = append(groups, models.DayGroup{Label: dayLabel(day, today, yesterday)})
			currentDay = day
		}
		groups[len(groups)-1].Messages = append(groups[len(groups)-1].Messages, msg)
	}
	return groups
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dayLabel(day, today, yesterday time.Time) string {
	switch {
	case day.Equal(today):
		return "Today"
	case day.Equal(yesterday):
		return "Yesterday"
	default:
		return day.Format("January 2, 2006")
	}
}
