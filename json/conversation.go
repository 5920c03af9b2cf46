package json

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fwojciec/tabula"
	"github.com/rivo/uniseg"
)

var _ tabula.ConversationStore = (*ConversationStore)(nil)

const titleLength = 30

// ConversationStore keeps one file per conversation under
// <dir>/<owner>/<id>.json. Writes are serialized within the process.
type ConversationStore struct {
	dir string
	mu  sync.Mutex
}

// NewConversationStore creates a store rooted at dir.
func NewConversationStore(dir string) *ConversationStore {
	return &ConversationStore{dir: dir}
}

func (s *ConversationStore) path(owner, id string) (string, error) {
	if err := checkName("user", owner); err != nil {
		return "", err
	}
	if err := checkName("conversation id", id); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, owner, id+".json"), nil
}

// Save writes the whole transcript of c.
func (s *ConversationStore) Save(c tabula.Conversation) error {
	path, err := s.path(c.Owner, c.ID)
	if err != nil {
		return fmt.Errorf("json: %w", err)
	}
	data, err := MarshalMessages(c.Messages)
	if err != nil {
		return fmt.Errorf("json: marshal: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeFile(path, data); err != nil {
		return fmt.Errorf("json: save conversation %s: %w", c.ID, err)
	}
	return nil
}

// Load reads the transcript of conversation id.
func (s *ConversationStore) Load(owner, id string) (tabula.Conversation, error) {
	path, err := s.path(owner, id)
	if err != nil {
		return tabula.Conversation{}, fmt.Errorf("json: %w", err)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return tabula.Conversation{}, fmt.Errorf("json: %s: %w", id, tabula.ErrConversationNotFound)
	}
	if err != nil {
		return tabula.Conversation{}, fmt.Errorf("json: read conversation: %w", err)
	}
	msgs, err := UnmarshalMessages(data)
	if err != nil {
		return tabula.Conversation{}, fmt.Errorf("json: conversation %s: %w", id, err)
	}
	return tabula.Conversation{ID: id, Owner: owner, Messages: msgs}, nil
}

// List summarizes the conversations of owner, most recently modified
// first. Files that cannot be decoded are listed with a placeholder title.
func (s *ConversationStore) List(owner string) ([]tabula.ConversationSummary, error) {
	if err := checkName("user", owner); err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	dir := filepath.Join(s.dir, owner)
	names, err := doublestar.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("json: list conversations: %w", err)
	}
	out := make([]tabula.ConversationSummary, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		out = append(out, tabula.ConversationSummary{
			ID:       id,
			Title:    readTitle(path),
			Date:     tabula.ConversationDate(id),
			Modified: info.ModTime(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Modified.After(out[j].Modified)
	})
	return out, nil
}

// Delete removes conversation id.
func (s *ConversationStore) Delete(owner, id string) error {
	path, err := s.path(owner, id)
	if err != nil {
		return fmt.Errorf("json: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("json: %s: %w", id, tabula.ErrConversationNotFound)
	}
	if err != nil {
		return fmt.Errorf("json: delete conversation: %w", err)
	}
	return nil
}

func readTitle(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "Unreadable conversation"
	}
	msgs, err := UnmarshalMessages(data)
	if err != nil {
		return "Unreadable conversation"
	}
	for _, m := range msgs {
		if m.Role == tabula.RoleUser {
			return Title(m.Content)
		}
	}
	return "Empty conversation"
}

// Title shortens a message to a listing title: the first 30 characters,
// with "..." appended when anything was cut. Characters are grapheme
// clusters, so combined emoji and accents are never split.
func Title(content string) string {
	if uniseg.GraphemeClusterCount(content) <= titleLength {
		return content
	}
	var b strings.Builder
	g := uniseg.NewGraphemes(content)
	for i := 0; i < titleLength && g.Next(); i++ {
		b.WriteString(g.Str())
	}
	return b.String() + "..."
}
