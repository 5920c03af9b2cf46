package tabula

import "time"

// User is a registered account. Only LastLogin changes after registration.
type User struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// UserStore persists the username to user mapping as a whole. A missing
// store reads as empty.
type UserStore interface {
	Users() (map[string]User, error)
	SaveUsers(users map[string]User) error
}
