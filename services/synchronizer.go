// ABOUTME: Chat transcript synchronizer: initial load, backward pagination, upstream polling
// ABOUTME: Keeps one conversation's transcript ordered and duplicate-free under concurrent feeds

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prit1626/IndiExport-B2B-sub001/models"
)

// ChatAPI is the slice of the upstream API the synchronizer needs. The
// marketplace client provides an implementation bound to one session's
// credentials.
type ChatAPI interface {
	// History fetches one page of conversation history. Page 0 is the most
	// recent page; the server returns pages newest-first.
	History(ctx context.Context, conversationID string, page, size int) (*models.MessagePage, error)
	// Send submits a message and returns the persisted copy with the
	// server-assigned ID and timestamp.
	Send(ctx context.Context, conversationID string, req models.SendMessageRequest) (*models.ChatMessage, error)
}

// ErrNoConversation is returned when an operation requires an active
// conversation but none has been selected.
var ErrNoConversation = errors.New("no active conversation")

// ChatSynchronizer maintains the transcript for one session's active
// conversation. Three feeds mutate the transcript -- initial load, backward
// pagination, and a recurring upstream poll -- all serialized under one
// mutex so consumers never observe an unsorted or duplicated state.
type ChatSynchronizer struct {
	api          ChatAPI
	pollInterval time.Duration
	pageSize     int

	mu             sync.Mutex
	conversationID string
	transcript     *Transcript
	hasMore        bool
	loadingOlder   bool
	nextOlderPage  int
	cancelPoll     context.CancelFunc
	subs           map[int]chan []models.ChatMessage
	nextSubID      int
	closed         bool
}

// NewChatSynchronizer creates a synchronizer with no active conversation.
func NewChatSynchronizer(api ChatAPI, pollInterval time.Duration, pageSize int) *ChatSynchronizer {
	return &ChatSynchronizer{
		api:          api,
		pollInterval: pollInterval,
		pageSize:     pageSize,
		transcript:   NewTranscript(),
		subs:         make(map[int]chan []models.ChatMessage),
	}
}

// Switch makes conversationID the active conversation: any previous poll loop
// is cancelled, transcript and pagination state are reset, the most recent
// history page is loaded, and a new poll loop is started. Switching to the
// already-active conversation is a no-op.
func (s *ChatSynchronizer) Switch(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("synchronizer closed")
	}
	if s.conversationID == conversationID {
		s.mu.Unlock()
		return nil
	}

	// Reset before any fetch begins; a stale tick for the old conversation
	// will see the changed ID and drop its results.
	if s.cancelPoll != nil {
		s.cancelPoll()
		s.cancelPoll = nil
	}
	s.conversationID = conversationID
	s.transcript.Reset()
	s.hasMore = false
	s.loadingOlder = false
	s.nextOlderPage = 1
	s.mu.Unlock()

	page, err := s.api.History(ctx, conversationID, 0, s.pageSize)
	if err != nil {
		return fmt.Errorf("initial history load failed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.conversationID != conversationID {
		// Another switch won the race while we were loading.
		return nil
	}

	s.transcript.ReplaceAll(page.Content)
	s.hasMore = !page.Last

	pollCtx, cancel := context.WithCancel(context.Background())
	s.cancelPoll = cancel
	go s.pollLoop(pollCtx, conversationID)

	return nil
}

// pollLoop fetches the most recent page on a fixed interval and merges any
// genuinely new messages. Errors are swallowed: polling must never surface a
// visible error or stop the loop.
func (s *ChatSynchronizer) pollLoop(ctx context.Context, conversationID string) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollOnce(ctx, conversationID)
		}
	}
}

// pollOnce runs a single tick. The conversation ID captured at loop start is
// re-checked before results are applied so a tick that resolved after a
// conversation switch cannot pollute the new transcript.
func (s *ChatSynchronizer) pollOnce(ctx context.Context, conversationID string) {
	tickCtx, cancel := context.WithTimeout(ctx, s.pollInterval)
	defer cancel()

	page, err := s.api.History(tickCtx, conversationID, 0, s.pageSize)
	if err != nil {
		slog.Debug("Chat poll tick failed", "conversation", conversationID, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.conversationID != conversationID {
		return
	}

	fresh := s.transcript.MergeNew(page.Content)
	if len(fresh) > 0 {
		s.notifyLocked(fresh)
	}
}

// LoadOlder fetches the next page of older history and prepends it. Only one
// older-load may be outstanding at a time; a call while one is pending (or
// when no more history exists) is a no-op returning 0. Errors leave the
// transcript and pagination state intact so the caller may retry.
func (s *ChatSynchronizer) LoadOlder(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.conversationID == "" {
		s.mu.Unlock()
		return 0, ErrNoConversation
	}
	if s.loadingOlder || !s.hasMore {
		s.mu.Unlock()
		return 0, nil
	}
	conversationID := s.conversationID
	pageIndex := s.nextOlderPage
	s.loadingOlder = true
	s.mu.Unlock()

	page, err := s.api.History(ctx, conversationID, pageIndex, s.pageSize)

	s.mu.Lock()
	defer s.mu.Unlock()

	// The guard belongs to the conversation captured at fetch start. After a
	// switch, loadingOlder tracks the new conversation's load; a stale fetch
	// resolving late must not release it.
	sameConversation := !s.closed && s.conversationID == conversationID
	if sameConversation {
		s.loadingOlder = false
	}

	if err != nil {
		return 0, fmt.Errorf("older history load failed: %w", err)
	}
	if !sameConversation {
		return 0, nil
	}

	before := s.transcript.Len()
	s.transcript.PrependOlder(page.Content)
	added := s.transcript.Len() - before
	s.nextOlderPage = pageIndex + 1
	s.hasMore = !page.Last

	return added, nil
}

// Send submits a message to the active conversation. On success the
// server-confirmed message is appended immediately without waiting for the
// next poll tick; on failure the transcript is untouched.
func (s *ChatSynchronizer) Send(ctx context.Context, req models.SendMessageRequest) (*models.ChatMessage, error) {
	s.mu.Lock()
	conversationID := s.conversationID
	s.mu.Unlock()
	if conversationID == "" {
		return nil, ErrNoConversation
	}

	msg, err := s.api.Send(ctx, conversationID, req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed && s.conversationID == conversationID {
		if s.transcript.Append(*msg) {
			s.notifyLocked([]models.ChatMessage{*msg})
		}
	}

	return msg, nil
}

// Messages returns a snapshot of the current transcript.
func (s *ChatSynchronizer) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Messages()
}

// Grouped returns the transcript partitioned into labeled calendar-day runs.
func (s *ChatSynchronizer) Grouped(now time.Time, loc *time.Location) []models.DayGroup {
	return GroupByDay(s.Messages(), now, loc)
}

// HasMore reports whether older history pages remain.
func (s *ChatSynchronizer) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// ConversationID returns the active conversation, or "" if none.
func (s *ChatSynchronizer) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// Subscribe registers a listener for transcript additions (poll merges and
// sent messages). The returned cancel function must be called to release the
// subscription. Slow listeners miss batches rather than blocking the
// synchronizer.
func (s *ChatSynchronizer) Subscribe() (<-chan []models.ChatMessage, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan []models.ChatMessage, 16)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// notifyLocked fans a batch out to subscribers. Callers hold s.mu.
func (s *ChatSynchronizer) notifyLocked(batch []models.ChatMessage) {
	for id, ch := range s.subs {
		select {
		case ch <- batch:
		default:
			slog.Debug("Chat subscriber lagging, dropping batch", "subscriber", id)
		}
	}
}

// Close cancels the poll loop and releases all subscribers.
func (s *ChatSynchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.cancelPoll != nil {
		s.cancelPoll()
		s.cancelPoll = nil
	}
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// ChatManager owns one synchronizer per browser session, created lazily and
// torn down on logout or session expiry.
type ChatManager struct {
	pollInterval time.Duration
	pageSize     int

	mu    sync.Mutex
	syncs map[string]*ChatSynchronizer
}

// NewChatManager creates an empty manager.
func NewChatManager(pollInterval time.Duration, pageSize int) *ChatManager {
	return &ChatManager{
		pollInterval: pollInterval,
		pageSize:     pageSize,
		syncs:        make(map[string]*ChatSynchronizer),
	}
}

// For returns the session's synchronizer, creating it with the given API
// binding on first use.
func (m *ChatManager) For(sessionID string, api ChatAPI) *ChatSynchronizer {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sync, ok := m.syncs[sessionID]; ok {
		return sync
	}
	sync := NewChatSynchronizer(api, m.pollInterval, m.pageSize)
	m.syncs[sessionID] = sync
	return sync
}

// Drop closes and removes the session's synchronizer, if any.
func (m *ChatManager) Drop(sessionID string) {
	m.mu.Lock()
	sync, ok := m.syncs[sessionID]
	if ok {
		delete(m.syncs, sessionID)
	}
	m.mu.Unlock()

	if ok {
		sync.Close()
	}
}
