package tabula

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Conversation is a persisted, ordered transcript owned by one user.
type Conversation struct {
	ID       string
	Owner    string
	Messages []Message
}

// LastTimestamp returns the timestamp of the newest message, or the zero
// time for an empty conversation.
func (c Conversation) LastTimestamp() time.Time {
	if len(c.Messages) == 0 {
		return time.Time{}
	}
	return c.Messages[len(c.Messages)-1].Timestamp
}

// ConversationSummary is the listing entry for a stored conversation.
type ConversationSummary struct {
	ID       string
	Title    string
	Date     string // YYYY-MM-DD from the ID, empty when the ID is malformed
	Modified time.Time
}

// ConversationStore persists whole transcripts, one per (owner, id).
type ConversationStore interface {
	Save(c Conversation) error
	Load(owner, id string) (Conversation, error)
	List(owner string) ([]ConversationSummary, error)
	Delete(owner, id string) error
}

const conversationDateLayout = "20060102"

// NewConversationID returns an identifier of the form
// YYYYMMDD_HHMMSS_xxxxxxxx. IDs sort by creation time.
func NewConversationID(now time.Time) string {
	return now.Format("20060102_150405") + "_" + uuid.NewString()[:8]
}

// ConversationDate extracts the creation date from a conversation ID as
// YYYY-MM-DD. Malformed IDs yield an empty string.
func ConversationDate(id string) string {
	prefix, _, ok := strings.Cut(id, "_")
	if !ok || len(prefix) != len(conversationDateLayout) {
		return ""
	}
	t, err := time.Parse(conversationDateLayout, prefix)
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}
