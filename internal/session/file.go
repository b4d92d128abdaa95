package session

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/evcraddock/ticketboard/internal/ticket"
)

// FileStore keeps the CLI session in a YAML file.
type FileStore struct {
	path string
	rec  Record
}

// OpenFile loads the session at path. A missing file is an empty session.
func OpenFile(path string) (*FileStore, error) {
	fs := &FileStore{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	if err := yaml.Unmarshal(data, &fs.rec); err != nil {
		return nil, fmt.Errorf("parsing session: %w", err)
	}

	return fs, nil
}

// Path returns the file backing the session.
func (f *FileStore) Path() string {
	return f.path
}

// Token returns the stored token.
func (f *FileStore) Token() string {
	return f.rec.Token
}

// User returns the stored user.
func (f *FileStore) User() *ticket.User {
	return f.rec.User
}

// Set stores the session and writes it to disk.
func (f *FileStore) Set(token string, user *ticket.User) error {
	f.rec = Record{Token: token, User: user}
	return f.save()
}

// Clear removes the session file.
func (f *FileStore) Clear() error {
	f.rec = Record{}
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}

func (f *FileStore) save() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}

	data, err := yaml.Marshal(f.rec)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}

	return nil
}
