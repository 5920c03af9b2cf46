package mock

import (
	"io"

	"github.com/fwojciec/tabula"
)

// Interface compliance checks.
var (
	_ tabula.ConversationStore = (*ConversationStore)(nil)
	_ tabula.UserStore         = (*UserStore)(nil)
	_ tabula.ModelConfigStore  = (*ModelConfigStore)(nil)
	_ tabula.DatasetStore      = (*DatasetStore)(nil)
	_ tabula.TableLoader       = (*TableLoader)(nil)
)

// ConversationStore is a test double for tabula.ConversationStore.
// Set the function fields for the methods you need.
type ConversationStore struct {
	SaveFn   func(c tabula.Conversation) error
	LoadFn   func(owner, id string) (tabula.Conversation, error)
	ListFn   func(owner string) ([]tabula.ConversationSummary, error)
	DeleteFn func(owner, id string) error
}

// Save delegates to SaveFn.
func (s *ConversationStore) Save(c tabula.Conversation) error {
	return s.SaveFn(c)
}

// Load delegates to LoadFn.
func (s *ConversationStore) Load(owner, id string) (tabula.Conversation, error) {
	return s.LoadFn(owner, id)
}

// List delegates to ListFn.
func (s *ConversationStore) List(owner string) ([]tabula.ConversationSummary, error) {
	return s.ListFn(owner)
}

// Delete delegates to DeleteFn.
func (s *ConversationStore) Delete(owner, id string) error {
	return s.DeleteFn(owner, id)
}

// UserStore is a test double for tabula.UserStore.
type UserStore struct {
	UsersFn     func() (map[string]tabula.User, error)
	SaveUsersFn func(users map[string]tabula.User) error
}

// Users delegates to UsersFn.
func (s *UserStore) Users() (map[string]tabula.User, error) {
	return s.UsersFn()
}

// SaveUsers delegates to SaveUsersFn.
func (s *UserStore) SaveUsers(users map[string]tabula.User) error {
	return s.SaveUsersFn(users)
}

// ModelConfigStore is a test double for tabula.ModelConfigStore.
type ModelConfigStore struct {
	LoadFn func() (tabula.ModelConfig, error)
	SaveFn func(cfg tabula.ModelConfig) error
}

// Load delegates to LoadFn.
func (s *ModelConfigStore) Load() (tabula.ModelConfig, error) {
	return s.LoadFn()
}

// Save delegates to SaveFn.
func (s *ModelConfigStore) Save(cfg tabula.ModelConfig) error {
	return s.SaveFn(cfg)
}

// DatasetStore is a test double for tabula.DatasetStore.
type DatasetStore struct {
	DatasetsFn    func(user, conversationID string) ([]tabula.Dataset, error)
	SaveDatasetFn func(user, conversationID, name string, r io.Reader) (tabula.Dataset, error)
}

// Datasets delegates to DatasetsFn.
func (s *DatasetStore) Datasets(user, conversationID string) ([]tabula.Dataset, error) {
	return s.DatasetsFn(user, conversationID)
}

// SaveDataset delegates to SaveDatasetFn.
func (s *DatasetStore) SaveDataset(user, conversationID, name string, r io.Reader) (tabula.Dataset, error) {
	return s.SaveDatasetFn(user, conversationID, name, r)
}

// TableLoader is a test double for tabula.TableLoader.
// Set LoadFn before calling Load.
type TableLoader struct {
	LoadFn func(path string) (*tabula.Table, error)
}

// Load delegates to LoadFn.
func (l *TableLoader) Load(path string) (*tabula.Table, error) {
	return l.LoadFn(path)
}
