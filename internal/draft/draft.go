// Package draft keeps a visitor's in-progress ticket form between page loads.
package draft

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/evcraddock/ticketboard/internal/workflow"
)

// MaxAge is how long an untouched draft is kept.
const MaxAge = 7 * 24 * time.Hour

// Store persists form snapshots keyed by visitor id.
type Store struct {
	db *sql.DB
}

// NewStore creates a draft store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Load returns the saved snapshot for a visitor. A visitor with no draft
// gets an empty snapshot.
func (s *Store) Load(visitorID string) (workflow.Snapshot, error) {
	var snap workflow.Snapshot

	var stateJSON string
	err := s.db.QueryRow(
		"SELECT state_json FROM drafts WHERE visitor_id = ?", visitorID,
	).Scan(&stateJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("querying draft: %w", err)
	}

	if err := json.Unmarshal([]byte(stateJSON), &snap); err != nil {
		return workflow.Snapshot{}, fmt.Errorf("decoding draft: %w", err)
	}
	return snap, nil
}

// Save stores the snapshot, replacing any earlier one.
func (s *Store) Save(visitorID string, snap workflow.Snapshot) error {
	if visitorID == "" {
		return fmt.Errorf("visitor id is required")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding draft: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO drafts (visitor_id, state_json, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(visitor_id) DO UPDATE SET state_json = excluded.state_json, updated_at = excluded.updated_at`,
		visitorID, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving draft: %w", err)
	}
	return nil
}

// Delete drops a visitor's draft. Deleting a missing draft is not an error.
func (s *Store) Delete(visitorID string) error {
	if _, err := s.db.Exec("DELETE FROM drafts WHERE visitor_id = ?", visitorID); err != nil {
		return fmt.Errorf("deleting draft: %w", err)
	}
	return nil
}

// Cleanup removes drafts not touched within olderThan and returns how many
// were removed.
func (s *Store) Cleanup(olderThan time.Duration) (int64, error) {
	result, err := s.db.Exec(
		"DELETE FROM drafts WHERE updated_at < ?", time.Now().UTC().Add(-olderThan),
	)
	if err != nil {
		return 0, fmt.Errorf("cleaning up drafts: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting removed drafts: %w", err)
	}
	return n, nil
}
