package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/fwojciec/tabula"
)

var _ tabula.UserStore = (*UserStore)(nil)

type userDTO struct {
	PasswordHash string  `json:"password_hash"`
	CreatedAt    string  `json:"created_at"`
	LastLogin    *string `json:"last_login"`
}

// UserStore keeps all users in a single file mapping usernames to records.
type UserStore struct {
	path string
	mu   sync.Mutex
}

// NewUserStore creates a store backed by the file at path.
func NewUserStore(path string) *UserStore {
	return &UserStore{path: path}
}

// Users reads every user. A missing or undecodable file reads as empty.
func (s *UserStore) Users() (map[string]tabula.User, error) {
	users := make(map[string]tabula.User)
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return users, nil
	}
	if err != nil {
		return nil, fmt.Errorf("json: read users: %w", err)
	}
	var dtos map[string]userDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		return users, nil
	}
	for name, dto := range dtos {
		u := tabula.User{Username: name, PasswordHash: dto.PasswordHash}
		if t, err := parseTime(dto.CreatedAt); err == nil {
			u.CreatedAt = t
		}
		if dto.LastLogin != nil {
			if t, err := parseTime(*dto.LastLogin); err == nil {
				u.LastLogin = &t
			}
		}
		users[name] = u
	}
	return users, nil
}

// SaveUsers replaces the stored users with users.
func (s *UserStore) SaveUsers(users map[string]tabula.User) error {
	dtos := make(map[string]userDTO, len(users))
	for name, u := range users {
		dto := userDTO{PasswordHash: u.PasswordHash, CreatedAt: formatTime(u.CreatedAt)}
		if u.LastLogin != nil {
			ts := formatTime(*u.LastLogin)
			dto.LastLogin = &ts
		}
		dtos[name] = dto
	}
	data, err := json.MarshalIndent(dtos, "", "  ")
	if err != nil {
		return fmt.Errorf("json: marshal users: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeFile(s.path, data); err != nil {
		return fmt.Errorf("json: save users: %w", err)
	}
	return nil
}
