// Package session holds the signed-in manager's auth token and user record.
//
// Views read the session only through Store. A 401 from the ticketing
// service clears it, forcing the user to sign in again.
package session

import (
	"sync"

	"github.com/evcraddock/ticketboard/internal/client"
	"github.com/evcraddock/ticketboard/internal/ticket"
)

// Record is the persisted form of a session.
type Record struct {
	Token string       `json:"token" yaml:"token,omitempty"`
	User  *ticket.User `json:"user,omitempty" yaml:"user,omitempty"`
}

// Store is the accessor contract views depend on.
type Store interface {
	Token() string
	User() *ticket.User
	Set(token string, user *ticket.User) error
	Clear() error
}

// Permission returns the user's permission, or "" when nobody is signed in.
func Permission(s Store) string {
	if u := s.User(); u != nil {
		return string(u.Permission)
	}
	return ""
}

// Auth returns the credentials to pass on an authenticated API call.
func Auth(s Store) client.Auth {
	return client.Auth{Token: s.Token(), Permission: Permission(s)}
}

// Memory is a Store that lives only as long as the value.
type Memory struct {
	mu  sync.Mutex
	rec Record
}

// NewMemory returns a Memory store holding rec.
func NewMemory(rec Record) *Memory {
	return &Memory{rec: rec}
}

// Token returns the stored token.
func (m *Memory) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec.Token
}

// User returns the stored user.
func (m *Memory) User() *ticket.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec.User
}

// Set replaces the session.
func (m *Memory) Set(token string, user *ticket.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = Record{Token: token, User: user}
	return nil
}

// Clear drops the token and user.
func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = Record{}
	return nil
}
