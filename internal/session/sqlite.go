package session

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/evcraddock/ticketboard/internal/ticket"
)

const (
	sessionExpiry = 30 * 24 * time.Hour // 30 days
	cookieName    = "tb_session"
)

// SQLiteStore keeps web sessions in SQLite, keyed by a cookie.
type SQLiteStore struct {
	db     *sql.DB
	secure bool
}

// NewSQLiteStore creates a session store. secure marks the cookie Secure.
func NewSQLiteStore(db *sql.DB, secure bool) *SQLiteStore {
	return &SQLiteStore{db: db, secure: secure}
}

// Load returns the session bound to the request's cookie. A missing, unknown
// or expired cookie yields an empty session; only storage failures are errors.
func (s *SQLiteStore) Load(w http.ResponseWriter, r *http.Request) (*Request, error) {
	req := &Request{store: s, w: w}

	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return req, nil
	}

	var token, userJSON string
	var expiresAt time.Time

	err = s.db.QueryRow(
		"SELECT token, user_json, expires_at FROM sessions WHERE id = ?",
		cookie.Value,
	).Scan(&token, &userJSON, &expiresAt)
	if err == sql.ErrNoRows {
		return req, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	if time.Now().After(expiresAt) {
		if _, delErr := s.db.Exec("DELETE FROM sessions WHERE id = ?", cookie.Value); delErr != nil {
			return nil, fmt.Errorf("deleting expired session: %w", delErr)
		}
		return req, nil
	}

	var user *ticket.User
	if userJSON != "" {
		if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
			return nil, fmt.Errorf("decoding session user: %w", err)
		}
	}

	req.id = cookie.Value
	req.rec = Record{Token: token, User: user}
	return req, nil
}

// Cleanup removes expired sessions.
func (s *SQLiteStore) Cleanup() error {
	if _, err := s.db.Exec(
		"DELETE FROM sessions WHERE expires_at < ?",
		time.Now(),
	); err != nil {
		return fmt.Errorf("cleaning up sessions: %w", err)
	}
	return nil
}

// Request is a Store bound to one HTTP exchange. Set and Clear write the
// session cookie on the response.
type Request struct {
	store *SQLiteStore
	w     http.ResponseWriter
	id    string
	rec   Record
}

// Token returns the session token.
func (r *Request) Token() string {
	return r.rec.Token
}

// User returns the signed-in user.
func (r *Request) User() *ticket.User {
	return r.rec.User
}

// Set starts a fresh session, replacing any previous one.
func (r *Request) Set(token string, user *ticket.User) error {
	if err := r.drop(); err != nil {
		return err
	}

	id, err := generateSessionID()
	if err != nil {
		return fmt.Errorf("generating session ID: %w", err)
	}

	userJSON := ""
	if user != nil {
		data, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("encoding session user: %w", err)
		}
		userJSON = string(data)
	}

	expiresAt := time.Now().Add(sessionExpiry)

	if _, err := r.store.db.Exec(
		"INSERT INTO sessions (id, token, user_json, expires_at) VALUES (?, ?, ?, ?)",
		id, token, userJSON, expiresAt,
	); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}

	http.SetCookie(r.w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   r.store.secure,
		SameSite: http.SameSiteLaxMode,
	})

	r.id = id
	r.rec = Record{Token: token, User: user}
	return nil
}

// Clear removes the session and expires the cookie.
func (r *Request) Clear() error {
	if err := r.drop(); err != nil {
		return err
	}

	http.SetCookie(r.w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.store.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

func (r *Request) drop() error {
	if r.id != "" {
		if _, err := r.store.db.Exec("DELETE FROM sessions WHERE id = ?", r.id); err != nil {
			return fmt.Errorf("deleting session: %w", err)
		}
	}
	r.id = ""
	r.rec = Record{}
	return nil
}

func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
