// ABOUTME: Tests for the transcript container and day grouping
// ABOUTME: Verifies ordering, deduplication, and merge behavior across feeds

package services

import (
	"testing"
	"time"

	"github.com/prit1626/IndiExport-B2B-sub001/models"
)

func msg(id string, at time.Time) models.ChatMessage {
	return models.ChatMessage{
		ID:             id,
		ConversationID: "conv-1",
		SenderID:       "buyer-1",
		Kind:           models.MessageText,
		Body:           "message " + id,
		CreatedAt:      at,
	}
}

var base = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestTranscript_ReplaceAllSortsAndDedups(t *testing.T) {
	tr := NewTranscript()
	tr.ReplaceAll([]models.ChatMessage{
		msg("c", base.Add(2*time.Minute)),
		msg("a", base),
		msg("b", base.Add(time.Minute)),
		msg("a", base), // duplicate within the batch
	})

	got := tr.Messages()
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got[i].ID != want {
			t.Errorf("position %d: expected %q, got %q", i, want, got[i].ID)
		}
	}
}

func TestTranscript_TimestampTieBreaksOnID(t *testing.T) {
	tr := NewTranscript()
	tr.ReplaceAll([]models.ChatMessage{
		msg("b", base),
		msg("a", base),
	})

	got := tr.Messages()
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("expected [a b], got [%s %s]", got[0].ID, got[1].ID)
	}
}

func TestTranscript_MergeNewReturnsOnlyFresh(t *testing.T) {
	tr := NewTranscript()
	tr.ReplaceAll([]models.ChatMessage{
		msg("a", base),
		msg("b", base.Add(time.Minute)),
	})

	// Poll tick re-delivers the whole recent page plus one new message.
	fresh := tr.MergeNew([]models.ChatMessage{
		msg("a", base),
		msg("b", base.Add(time.Minute)),
		msg("c", base.Add(2*time.Minute)),
	})

	if len(fresh) != 1 || fresh[0].ID != "c" {
		t.Fatalf("expected fresh batch [c], got %v", fresh)
	}
	if tr.Len() != 3 {
		t.Errorf("expected 3 messages after merge, got %d", tr.Len())
	}
}

func TestTranscript_MergeNewNoopWhenNothingNew(t *testing.T) {
	tr := NewTranscript()
	tr.ReplaceAll([]models.ChatMessage{msg("a", base)})

	if fresh := tr.MergeNew([]models.ChatMessage{msg("a", base)}); fresh != nil {
		t.Errorf("expected nil fresh batch, got %v", fresh)
	}
	if tr.Len() != 1 {
		t.Errorf("transcript mutated by all-duplicate batch: len=%d", tr.Len())
	}
}

func TestTranscript_MergeNewHandlesOutOfOrderArrival(t *testing.T) {
	tr := NewTranscript()
	tr.ReplaceAll([]models.ChatMessage{msg("b", base.Add(time.Minute))})

	// A message older than the newest known one arrives late.
	tr.MergeNew([]models.ChatMessage{msg("a", base)})

	got := tr.Messages()
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("expected chronological order [a b], got [%s %s]", got[0].ID, got[1].ID)
	}
}

func TestTranscript_PrependOlderDropsKnownMessages(t *testing.T) {
	tr := NewTranscript()
	tr.ReplaceAll([]models.ChatMessage{
		msg("d", base.Add(3*time.Minute)),
		msg("e", base.Add(4*time.Minute)),
	})

	// Older page overlaps the newest page at the boundary.
	tr.PrependOlder([]models.ChatMessage{
		msg("b", base.Add(time.Minute)),
		msg("c", base.Add(2*time.Minute)),
		msg("d", base.Add(3*time.Minute)),
	})

	got := tr.Messages()
	want := []string{"b", "c", "d", "e"}
	if len(got) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], got[i].ID)
		}
	}
}

func TestTranscript_AppendIgnoresDuplicates(t *testing.T) {
	tr := NewTranscript()

	if !tr.Append(msg("a", base)) {
		t.Error("first append should report true")
	}
	if tr.Append(msg("a", base)) {
		t.Error("duplicate append should report false")
	}
	if tr.Len() != 1 {
		t.Errorf("expected 1 message, got %d", tr.Len())
	}
}

func TestTranscript_MessagesReturnsCopy(t *testing.T) {
	tr := NewTranscript()
	tr.ReplaceAll([]models.ChatMessage{msg("a", base)})

	snapshot := tr.Messages()
	snapshot[0].Body = "mutated"

	if tr.Messages()[0].Body == "mutated" {
		t.Error("caller mutation leaked into the transcript")
	}
}

func TestGroupByDay_Labels(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	msgs := []models.ChatMessage{
		msg("old", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		msg("y1", time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)),
		msg("y2", time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC)),
		msg("t1", time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)),
	}

	groups := GroupByDay(msgs, now, time.UTC)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}

	if groups[0].Label != "March 1, 2026" {
		t.Errorf("expected explicit date label, got %q", groups[0].Label)
	}
	if groups[1].Label != "Yesterday" {
		t.Errorf("expected Yesterday, got %q", groups[1].Label)
	}
	if len(groups[1].Messages) != 2 {
		t.Errorf("expected 2 messages in Yesterday group, got %d", len(groups[1].Messages))
	}
	if groups[2].Label != "Today" {
		t.Errorf("expected Today, got %q", groups[2].Label)
	}
}

func TestGroupByDay_PreservesOrderAndCount(t *testing.T) {
	now := base
	msgs := []models.ChatMessage{
		msg("a", base.AddDate(0, 0, -2)),
		msg("b", base.AddDate(0, 0, -1)),
		msg("c", base),
	}

	groups := GroupByDay(msgs, now, time.UTC)

	var flattened []string
	total := 0
	for _, g := range groups {
		for _, m := range g.Messages {
			flattened = append(flattened, m.ID)
			total++
		}
	}
	if total != len(msgs) {
		t.Fatalf("grouping dropped messages: %d != %d", total, len(msgs))
	}
	for i, want := range []string{"a", "b", "c"} {
		if flattened[i] != want {
			t.Errorf("position %d: expected %q, got %q", i, want, flattened[i])
		}
	}
}

func TestGroupByDay_Empty(t *testing.T) {
	if groups := GroupByDay(nil, base, time.UTC); len(groups) != 0 {
		t.Errorf("expected no groups for empty transcript, got %d", len(groups))
	}
}
