package agent

import (
	"fmt"
	"time"

	"github.com/fwojciec/tabula"
)

// Conversations appends to and manages persisted transcripts. Every
// append writes the whole transcript through to the store before the
// session sees the new message.
type Conversations struct {
	store tabula.ConversationStore
	now   func() time.Time
}

// NewConversations creates a Conversations backed by store.
func NewConversations(store tabula.ConversationStore, now func() time.Time) *Conversations {
	if now == nil {
		now = time.Now
	}
	return &Conversations{store: store, now: now}
}

// New creates and persists an empty conversation owned by user.
func (c *Conversations) New(user string) (tabula.Conversation, error) {
	conv := tabula.Conversation{
		ID:       tabula.NewConversationID(c.now()),
		Owner:    user,
		Messages: []tabula.Message{},
	}
	if err := c.store.Save(conv); err != nil {
		return tabula.Conversation{}, err
	}
	return conv, nil
}

// Append adds a message to the session's conversation. Timestamps never
// go backwards: a clock that reads earlier than the last message is
// clamped to it. When saving fails the session is left unchanged.
func (c *Conversations) Append(s *tabula.Session, role tabula.Role, content, code string, result *tabula.ExecutionResult) (tabula.Message, error) {
	if !role.Valid() {
		return tabula.Message{}, fmt.Errorf("unknown role %q: %w", role, tabula.ErrValidation)
	}
	ts := c.now()
	if last := s.Conversation.LastTimestamp(); ts.Before(last) {
		ts = last
	}
	msg := tabula.Message{
		Role:      role,
		Content:   content,
		Timestamp: ts,
		Code:      code,
		Result:    result,
	}

	next := s.Conversation
	next.Messages = make([]tabula.Message, len(s.Conversation.Messages), len(s.Conversation.Messages)+1)
	copy(next.Messages, s.Conversation.Messages)
	next.Messages = append(next.Messages, msg)
	if err := c.store.Save(next); err != nil {
		return tabula.Message{}, err
	}
	s.Conversation = next
	return msg, nil
}

// Load reads a stored conversation.
func (c *Conversations) Load(user, id string) (tabula.Conversation, error) {
	return c.store.Load(user, id)
}

// List returns the user's conversations, most recently modified first.
func (c *Conversations) List(user string) ([]tabula.ConversationSummary, error) {
	return c.store.List(user)
}

// Clear empties the session's conversation and persists the empty
// transcript.
func (c *Conversations) Clear(s *tabula.Session) error {
	next := s.Conversation
	next.Messages = []tabula.Message{}
	if err := c.store.Save(next); err != nil {
		return err
	}
	s.Conversation = next
	return nil
}

// Delete removes a stored conversation.
func (c *Conversations) Delete(user, id string) error {
	return c.store.Delete(user, id)
}
