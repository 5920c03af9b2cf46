package tabula

// Session carries the per-request state of one user working in one
// conversation. It is passed explicitly to every operation.
type Session struct {
	User         string
	Conversation Conversation
	Registry     *Registry

	// ModelConfig overrides the shared configuration when set.
	ModelConfig *ModelConfig
}

// NewSession creates a session for user in conversation c.
func NewSession(user string, c Conversation, loader TableLoader) *Session {
	return &Session{
		User:         user,
		Conversation: c,
		Registry:     NewRegistry(loader),
	}
}
