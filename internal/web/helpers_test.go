package web

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/evcraddock/ticketboard/internal/client"
	"github.com/evcraddock/ticketboard/internal/config"
	"github.com/evcraddock/ticketboard/internal/db"
	"github.com/evcraddock/ticketboard/internal/ticket"
)

// fakeService is a stand-in for the remote ticketing API.
type fakeService struct {
	mu sync.Mutex

	buildings  []ticket.Building
	notices    map[int64][]ticket.Notice
	categories []ticket.Category
	created    ticket.Ticket
	board      client.BoardResponse
	tickets    map[int64]ticket.Ticket

	// failures maps a route name to the status it should fail with.
	failures map[string]int
	failMsg  map[string]string

	queries    []string
	creates    []url.Values
	uploads    []string
	boardSorts []string
	boardToken []string
	replies    []string
	authHeader map[string]string
}

func newFakeService(t *testing.T) (*fakeService, *httptest.Server) {
	t.Helper()
	f := &fakeService{
		buildings: []ticket.Building{
			{ID: 7, Name: "Harbor View", Code: "HV", Address: "1 Pier Rd", City: "Portland", State: "ME", Zip: "04101"},
		},
		notices: map[int64][]ticket.Notice{},
		categories: []ticket.Category{
			{ID: 1, Name: "Plumbing"},
			{ID: 2, Name: "Electrical"},
		},
		created: ticket.Ticket{ID: 100, Code: "T-100"},
		board: client.BoardResponse{
			Building: ticket.Building{ID: 7, Name: "Harbor View", Code: "HV", Type: "Condo"},
			Tickets: []ticket.Ticket{
				{ID: 1, Code: "T-1", StatusID: 1, StatusName: "Open", Description: "<p>Leaking tap</p><script>alert(1)</script>"},
				{ID: 2, Code: "T-2", StatusID: 2, StatusName: "In progress", Description: "<p>Broken light</p>"},
				{ID: 3, Code: "T-3", StatusID: 3, StatusName: "Closed", Description: "<p>Door fixed</p>"},
			},
			InternalNotes: []ticket.InternalNote{{TicketCode: "T-1", Description: "<p>Parts ordered</p>", Cost: 120}},
		},
		tickets: map[int64]ticket.Ticket{
			41: {ID: 41, Code: "T-41", ResidentName: "Jane Roe", CellPhone: "555-123-4567", UnitNumber: "4B"},
		},
		failures:   map[string]int{},
		failMsg:    map[string]string{},
		authHeader: map[string]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /buildings", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.queries = append(f.queries, r.URL.Query().Get("q"))
		if f.fail(w, "buildings") {
			return
		}
		writeOK(t, w, map[string]interface{}{"buildings": f.buildings})
	})
	mux.HandleFunc("GET /buildings/{id}/notes", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.fail(w, "notes") {
			return
		}
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		writeOK(t, w, map[string]interface{}{"notes": f.notices[id]})
	})
	mux.HandleFunc("GET /ticket-categories", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.fail(w, "categories") {
			return
		}
		writeOK(t, w, map[string]interface{}{"categories": f.categories})
	})
	mux.HandleFunc("POST /tickets", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.authHeader["create"] = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("fake service: parsing multipart: %v", err)
		}
		f.creates = append(f.creates, r.MultipartForm.Value)
		for _, field := range []string{"attachment1", "attachment2"} {
			for _, fh := range r.MultipartForm.File[field] {
				f.uploads = append(f.uploads, field+":"+fh.Filename)
			}
		}
		if f.fail(w, "create") {
			return
		}
		writeOK(t, w, map[string]interface{}{"ticket": f.created})
	})
	mux.HandleFunc("GET /tickets/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.authHeader["ticket"] = r.Header.Get("Authorization")
		f.authHeader["ticket-permission"] = r.Header.Get("X-User-Permission")
		if f.fail(w, "ticket") {
			return
		}
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		tk, ok := f.tickets[id]
		if !ok {
			writeStatus(t, w, http.StatusNotFound, `{"type":"E_NOT_FOUND","message":"Ticket not found"}`)
			return
		}
		writeOK(t, w, map[string]interface{}{"ticket": tk})
	})
	mux.HandleFunc("POST /tickets/{id}/desc", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var body struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("fake service: decoding reply: %v", err)
		}
		f.replies = append(f.replies, r.PathValue("id")+":"+body.Message)
		if f.fail(w, "reply") {
			return
		}
		writeOK(t, w, map[string]interface{}{})
	})
	mux.HandleFunc("GET /board/tickets", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.boardSorts = append(f.boardSorts, r.URL.Query().Get("sort_status"))
		f.boardToken = append(f.boardToken, r.URL.Query().Get("board_token"))
		if f.fail(w, "board") {
			return
		}
		writeOK(t, w, map[string]interface{}{
			"building":       f.board.Building,
			"tickets":        f.board.Tickets,
			"internal_notes": f.board.InternalNotes,
		})
	})
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.fail(w, "login") {
			return
		}
		writeStatus(t, w, http.StatusOK, `{"type":"S_OK","token":"mgr-token","user":{"user_id":3,"name":"Morgan","email":"m@example.com","permission":2}}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

// update changes the fake's fixtures under its lock.
func (f *fakeService) update(fn func(f *fakeService)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

// failWith makes route fail with status and, if msg is set, a server message.
func (f *fakeService) failWith(route string, status int, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route] = status
	f.failMsg[route] = msg
}

func (f *fakeService) fail(w http.ResponseWriter, route string) bool {
	status, ok := f.failures[route]
	if !ok {
		return false
	}
	body, _ := json.Marshal(map[string]string{"type": "E_FAIL", "message": f.failMsg[route]})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
	return true
}

// calls returns a copy of what the service has recorded so far.
func (f *fakeService) calls() *fakeService {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &fakeService{
		queries:    append([]string(nil), f.queries...),
		creates:    append([]url.Values(nil), f.creates...),
		uploads:    append([]string(nil), f.uploads...),
		boardSorts: append([]string(nil), f.boardSorts...),
		boardToken: append([]string(nil), f.boardToken...),
		replies:    append([]string(nil), f.replies...),
		authHeader: copyMap(f.authHeader),
	}
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func writeOK(t *testing.T, w http.ResponseWriter, payload map[string]interface{}) {
	t.Helper()
	payload["type"] = client.TypeOK
	data, err := json.Marshal(payload)
	if err != nil {
		t.Errorf("marshal fake response: %v", err)
		return
	}
	writeStatus(t, w, http.StatusOK, string(data))
}

func writeStatus(t *testing.T, w http.ResponseWriter, status int, body string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		t.Errorf("write response: %v", err)
	}
}

func testServer(t *testing.T) (*Server, *fakeService) {
	t.Helper()
	return testServerWith(t, nil)
}

// testServerWith lets a test adjust the config before the server is built.
func testServerWith(t *testing.T, configure func(*config.Config)) (*Server, *fakeService) {
	t.Helper()
	f, api := newFakeService(t)

	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})

	cfg := config.Config{
		APIURL:         api.URL,
		SubmitRate:     100,
		MaxUploadBytes: config.DefaultMaxUploadBytes,
	}
	if configure != nil {
		configure(&cfg)
	}
	srv, err := NewServer(d, client.New(api.URL, 0), cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv, f
}

// browser replays cookies between requests the way a web browser would.
type browser struct {
	t       *testing.T
	srv     http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, srv http.Handler) *browser {
	return &browser{t: t, srv: srv, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(r *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	for _, c := range b.cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.srv.ServeHTTP(w, r)

	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	b.t.Helper()
	return b.do(httptest.NewRequest("GET", path, nil))
}

func (b *browser) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	r := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(r)
}

// postMultipart posts fields plus files keyed by form field, each as
// "filename" => content.
func (b *browser) postMultipart(path string, fields url.Values, files map[string][2]string) *httptest.ResponseRecorder {
	b.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, vs := range fields {
		for _, v := range vs {
			if err := mw.WriteField(k, v); err != nil {
				b.t.Fatalf("write field: %v", err)
			}
		}
	}
	for field, file := range files {
		part, err := mw.CreateFormFile(field, file[0])
		if err != nil {
			b.t.Fatalf("create file part: %v", err)
		}
		if _, err := io.WriteString(part, file[1]); err != nil {
			b.t.Fatalf("write file part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		b.t.Fatalf("close multipart: %v", err)
	}

	r := httptest.NewRequest("POST", path, &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return b.do(r)
}

// signIn logs the browser in as the fake service's manager.
func (b *browser) signIn() {
	b.t.Helper()
	w := b.postForm("/login", url.Values{"email": {"m@example.com"}, "password": {"secret"}})
	if w.Code != http.StatusSeeOther {
		b.t.Fatalf("sign in status = %d, want %d", w.Code, http.StatusSeeOther)
	}
}

func buildingForm(b ticket.Building) url.Values {
	return url.Values{
		"building_id": {strconv.FormatInt(b.ID, 10)},
		"name":        {b.Name},
		"code":        {b.Code},
		"address":     {b.Address},
		"city":        {b.City},
	}
}

func exampleTicketFields() url.Values {
	return url.Values{
		"ticket_category": {"1"},
		"name":            {"Jane"},
		"unit_number":     {"4B"},
		"resident_email":  {"a@x.com"},
		"resident_email2": {"a@x.com"},
		"terms":           {"on"},
	}
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, want string) {
	t.Helper()
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d (body %q)", w.Code, http.StatusSeeOther, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != want {
		t.Errorf("location = %q, want %q", loc, want)
	}
}
