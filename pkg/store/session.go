package store

import "time"

// Role of a conversation message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a session history. History is append-only.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ConversationState is the in-memory state of one dialogue session.
// DocType is bound once and never changes until the session is reset.
type ConversationState struct {
	SessionID      string        `json:"session_id"`
	DocType        *DocumentType `json:"doc_type,omitempty"`
	PromptTemplate string        `json:"prompt_template,omitempty"`
	History        []Message     `json:"history"`

	// BoundAt is len(History) at the moment DocType was bound. User turns
	// before it belong to the clarification phase.
	BoundAt int `json:"bound_at"`

	DocumentReady    bool    `json:"document_ready"`
	LastDocumentPath string  `json:"last_document_path,omitempty"`
	Progress         float64 `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversationState creates an empty state for a session
func NewConversationState(sessionID string, now time.Time) *ConversationState {
	return &ConversationState{
		SessionID: sessionID,
		History:   []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so a turn can be staged without touching the
// committed state.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	c := *s
	c.History = make([]Message, len(s.History))
	copy(c.History, s.History)
	if s.DocType != nil {
		dt := *s.DocType
		c.DocType = &dt
	}
	return &c
}

// Bound reports whether a document type has been selected
func (s *ConversationState) Bound() bool {
	return s.DocType != nil
}

// Append adds messages to the history
func (s *ConversationState) Append(msgs ...Message) {
	s.History = append(s.History, msgs...)
}

// LastAssistant returns the latest assistant message, if the history ends with one
func (s *ConversationState) LastAssistant() (Message, bool) {
	if len(s.History) == 0 {
		return Message{}, false
	}
	last := s.History[len(s.History)-1]
	return last, last.Role == RoleAssistant
}

// UserTurnsSinceBinding counts user messages after the document type was bound
func (s *ConversationState) UserTurnsSinceBinding() int {
	if !s.Bound() {
		return 0
	}
	n := 0
	for i := s.BoundAt; i < len(s.History); i++ {
		if s.History[i].Role == RoleUser {
			n++
		}
	}
	return n
}

// Session status values reported by GetSessionInfo and stored in the log
const (
	StatusNoSession    = "no_session"
	StatusInitializing = "initializing"
	StatusActive       = "active"
	StatusCompleted    = "completed"
)

// Status derives the externally visible status of a state
func (s *ConversationState) Status() string {
	switch {
	case s == nil:
		return StatusNoSession
	case s.DocumentReady:
		return StatusCompleted
	case !s.Bound():
		return StatusInitializing
	default:
		return StatusActive
	}
}
