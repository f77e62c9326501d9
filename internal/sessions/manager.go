// Package sessions tracks per-chat conversational state: whether AI chat
// mode is active, the provider conversation token, and any pending
// multi-turn selection the bot is waiting on. State is in-memory only; a
// restart drops every session, which is acceptable because re-activating
// is a single message.
package sessions

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// ChatSession is the AI-chat state for one chat.
type ChatSession struct {
	ChatID            string
	AIMode            bool
	ConversationToken string
	LastActivity      time.Time
}

// SelectionAction says what a pending selection will do once resolved.
type SelectionAction int

const (
	SelectionNone SelectionAction = iota
	SelectionEnableVideoOnly
	SelectionDisableVideoOnly
)

// Candidate is one numbered option offered to the user.
type Candidate struct {
	ID          string
	DisplayName string
}

// SelectionSession is a pending numbered-choice question in one chat.
type SelectionSession struct {
	ChatID     string
	Action     SelectionAction
	Candidates []Candidate
	CreatedAt  time.Time
}

// chatState carries its own lock so chats never contend with each
// other; the manager's lock only guards the map itself.
type chatState struct {
	mu        sync.Mutex
	session   ChatSession
	selection *SelectionSession
}

// Manager owns all per-chat state. All methods are safe for concurrent
// use and serialize per chat id, not globally; callers pass the current
// time explicitly so timeout behavior is deterministic under test.
type Manager struct {
	mu    sync.RWMutex
	chats map[string]*chatState
}

func NewManager() *Manager {
	return &Manager{chats: make(map[string]*chatState)}
}

// state returns the chat's state, creating it on first sight.
func (m *Manager) state(chatID string) *chatState {
	m.mu.RLock()
	st, ok := m.chats[chatID]
	m.mu.RUnlock()
	if ok {
		return st
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.chats[chatID]; ok {
		return st
	}
	st = &chatState{session: ChatSession{ChatID: chatID}}
	m.chats[chatID] = st
	return st
}

// lookup returns the chat's state without creating it.
func (m *Manager) lookup(chatID string) *chatState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chats[chatID]
}

// Activate turns AI mode on for a chat and stamps activity at now.
// Re-activating an active chat just refreshes the activity stamp.
func (m *Manager) Activate(chatID string, now time.Time) {
	st := m.state(chatID)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.session.AIMode = true
	st.session.LastActivity = now
}

// Deactivate turns AI mode off and clears the conversation token.
// Reports whether the chat was active.
func (m *Manager) Deactivate(chatID string) bool {
	st := m.lookup(chatID)
	if st == nil {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.session.AIMode {
		return false
	}
	st.session.AIMode = false
	st.session.ConversationToken = ""
	return true
}

// IsActive reports whether AI mode is on for the chat.
func (m *Manager) IsActive(chatID string) bool {
	st := m.lookup(chatID)
	if st == nil {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.session.AIMode
}

// Touch refreshes the activity stamp of an active chat.
func (m *Manager) Touch(chatID string, now time.Time) {
	st := m.lookup(chatID)
	if st == nil {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.session.AIMode {
		st.session.LastActivity = now
	}
}

// UpdateToken records the provider's conversation token. An empty token
// keeps the previous one so a flaky provider response does not reset the
// conversation thread.
func (m *Manager) UpdateToken(chatID, token string) {
	if token == "" {
		return
	}
	st := m.state(chatID)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.session.ConversationToken = token
}

// Token returns the current conversation token for the chat.
func (m *Manager) Token(chatID string) string {
	st := m.lookup(chatID)
	if st == nil {
		return ""
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.session.ConversationToken
}

// ExpireIfIdle deactivates AI mode when the chat has been quiet for
// longer than timeout as of now. Timeouts are checked lazily on the next
// inbound message; nothing runs in the background. A chat idle exactly
// at the boundary is still live, it expires strictly after.
func (m *Manager) ExpireIfIdle(chatID string, now time.Time, timeout time.Duration) bool {
	st := m.lookup(chatID)
	if st == nil {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.session.AIMode {
		return false
	}
	if now.Sub(st.session.LastActivity) <= timeout {
		return false
	}
	st.session.AIMode = false
	st.session.ConversationToken = ""
	return true
}

// BeginSelection parks a numbered-choice question on the chat. A second
// question replaces the first, the newest question is the one the next
// numeric reply answers.
func (m *Manager) BeginSelection(chatID string, action SelectionAction, candidates []Candidate, now time.Time) {
	st := m.state(chatID)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.selection = &SelectionSession{
		ChatID:     chatID,
		Action:     action,
		Candidates: candidates,
		CreatedAt:  now,
	}
}

// Selection returns the pending selection for a chat, or nil.
func (m *Manager) Selection(chatID string) *SelectionSession {
	st := m.lookup(chatID)
	if st == nil {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.selection
}

// CancelSelection drops any pending selection for the chat.
func (m *Manager) CancelSelection(chatID string) {
	st := m.lookup(chatID)
	if st == nil {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.selection = nil
}

// SelectionResult classifies a reply to a pending selection.
type SelectionResult int

const (
	// SelectionResolved means the reply picked a candidate and the
	// session is consumed.
	SelectionResolved SelectionResult = iota
	// SelectionNotNumeric means the reply was not a number. The session
	// stays pending so the user can try again.
	SelectionNotNumeric
	// SelectionOutOfRange means the number did not name a candidate.
	// The session stays pending.
	SelectionOutOfRange
)

// ResolveSelection applies a user reply to the chat's pending selection.
// Only a successful pick consumes the session; invalid replies leave it
// in place for a retry.
func (m *Manager) ResolveSelection(chatID, reply string) (Candidate, SelectionAction, SelectionResult) {
	st := m.lookup(chatID)
	if st == nil {
		return Candidate{}, SelectionNone, SelectionNotNumeric
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.selection == nil {
		return Candidate{}, SelectionNone, SelectionNotNumeric
	}

	n, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil {
		return Candidate{}, st.selection.Action, SelectionNotNumeric
	}
	if n < 1 || n > len(st.selection.Candidates) {
		return Candidate{}, st.selection.Action, SelectionOutOfRange
	}

	picked := st.selection.Candidates[n-1]
	action := st.selection.Action
	st.selection = nil
	return picked, action, SelectionResolved
}
