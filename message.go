package tabula

import "time"

// Message is a single entry in a conversation transcript. Messages are
// immutable once appended; Code and Result are only set on assistant
// messages that ran analysis code.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time
	Code      string           // empty when no code was produced
	Result    *ExecutionResult // nil when nothing was executed
}

// ChatMessage is the role/content pair sent to a language model.
type ChatMessage struct {
	Role    Role
	Content string
}
