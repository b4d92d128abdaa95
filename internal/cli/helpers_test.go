package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/evcraddock/ticketboard/internal/session"
	"github.com/evcraddock/ticketboard/internal/ticket"
)

// fakeAPI records what commands send to the ticketing service.
type fakeAPI struct {
	mu sync.Mutex

	notices []ticket.Notice

	creates    []url.Values
	uploads    []string
	replies    []string
	boardSorts []string
	authHeader string
}

// withFakeAPI points the CLI at a fake ticketing service and a fresh HOME.
func withFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /buildings", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"type":      "S_OK",
			"buildings": []ticket.Building{{ID: 7, Name: "Harbor View", Code: "HV", Address: "1 Pier Rd", City: "Portland"}},
		})
	})
	mux.HandleFunc("GET /buildings/{id}/notes", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(t, w, http.StatusOK, map[string]interface{}{"type": "S_OK", "notes": f.notices})
	})
	mux.HandleFunc("GET /ticket-categories", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer stale" {
			writeJSON(t, w, http.StatusUnauthorized, map[string]interface{}{"type": "E_AUTH"})
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"type":       "S_OK",
			"categories": []ticket.Category{{ID: 1, Name: "Plumbing"}},
		})
	})
	mux.HandleFunc("POST /tickets", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("fake api: parsing multipart: %v", err)
		}
		f.authHeader = r.Header.Get("Authorization")
		f.creates = append(f.creates, r.MultipartForm.Value)
		for _, field := range []string{"attachment1", "attachment2"} {
			for _, fh := range r.MultipartForm.File[field] {
				f.uploads = append(f.uploads, field+":"+fh.Filename)
			}
		}
		writeJSON(t, w, http.StatusOK, map[string]interface{}{"type": "S_OK", "ticket": ticket.Ticket{ID: 100, Code: "T-100"}})
	})
	mux.HandleFunc("GET /tickets/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer stale" {
			writeJSON(t, w, http.StatusUnauthorized, map[string]interface{}{"type": "E_AUTH"})
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"type":   "S_OK",
			"ticket": ticket.Ticket{ID: 41, Code: "T-41", StatusID: 2, StatusName: "In progress", ResidentName: "Jane Roe", UnitNumber: "4B", CellPhone: "555-123-4567"},
		})
	})
	mux.HandleFunc("POST /tickets/{id}/desc", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if r.Header.Get("Authorization") == "Bearer stale" {
			writeJSON(t, w, http.StatusUnauthorized, map[string]interface{}{"type": "E_AUTH"})
			return
		}
		var body struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("fake api: decoding reply: %v", err)
		}
		f.replies = append(f.replies, r.PathValue("id")+":"+body.Message)
		writeJSON(t, w, http.StatusOK, map[string]interface{}{"type": "S_OK"})
	})
	mux.HandleFunc("GET /board/tickets", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if r.URL.Query().Get("board_token") == "bad" {
			writeJSON(t, w, http.StatusUnauthorized, map[string]interface{}{"type": "E_AUTH"})
			return
		}
		f.boardSorts = append(f.boardSorts, r.URL.Query().Get("sort_status"))
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"type":     "S_OK",
			"building": ticket.Building{ID: 7, Name: "Harbor View"},
			"tickets": []ticket.Ticket{
				{ID: 1, Code: "T-1", StatusID: 1, StatusName: "Open"},
				{ID: 3, Code: "T-3", StatusID: 3, StatusName: "Closed", Description: "<p>Door fixed</p>"},
			},
			"internal_notes": []ticket.InternalNote{{TicketCode: "T-3", Description: "Hinge", Cost: 30}},
		})
	})
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("fake api: decoding login: %v", err)
		}
		if body.Password != "secret" {
			writeJSON(t, w, http.StatusUnauthorized, map[string]interface{}{"type": "E_AUTH", "message": "Wrong password"})
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]interface{}{
			"type":  "S_OK",
			"token": "mgr-token",
			"user":  map[string]interface{}{"user_id": 3, "name": "Morgan", "email": body.Email, "permission": 2},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	t.Setenv("HOME", t.TempDir())
	t.Setenv("TB_API_URL", srv.URL)
	return f
}

// calls returns a copy of what the service has recorded so far.
func (f *fakeAPI) calls() *fakeAPI {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &fakeAPI{
		creates:    append([]url.Values(nil), f.creates...),
		uploads:    append([]string(nil), f.uploads...),
		replies:    append([]string(nil), f.replies...),
		boardSorts: append([]string(nil), f.boardSorts...),
		authHeader: f.authHeader,
	}
}

// setNotices replaces the notices every building reports.
func (f *fakeAPI) setNotices(notices []ticket.Notice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = notices
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("fake api: encoding response: %v", err)
	}
}

// storeSession writes a CLI session as 'tb login' would.
func storeSession(t *testing.T, token string) {
	t.Helper()
	store, err := openSession()
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	if err := store.Set(token, &ticket.User{ID: 3, Name: "Morgan", Email: "m@example.com", Permission: "2"}); err != nil {
		t.Fatalf("set session: %v", err)
	}
}

func loadSession(t *testing.T) *session.FileStore {
	t.Helper()
	store, err := openSession()
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	return store
}
