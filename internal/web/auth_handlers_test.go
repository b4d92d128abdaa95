package web

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func TestLoginPage(t *testing.T) {
	srv, _ := testServer(t)

	w := newBrowser(t, srv).get("/login?next=%2Fmanage%2Ftickets%2F41%2Freply")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `name="next" value="/manage/tickets/41/reply"`) {
		t.Error("expected next carried in the form")
	}
}

func TestLoginSuccess(t *testing.T) {
	srv, _ := testServer(t)
	b := newBrowser(t, srv)

	w := b.postForm("/login", url.Values{
		"email":    {"m@example.com"},
		"password": {"secret"},
		"next":     {"/manage/tickets/41/reply"},
	})
	assertRedirect(t, w, "/manage/tickets/41/reply")

	if b.cookies["tb_session"] == nil {
		t.Fatal("expected session cookie")
	}
	body := b.get(formRoute).Body.String()
	if !strings.Contains(body, "Morgan") || !strings.Contains(body, "Sign out") {
		t.Error("expected signed-in header")
	}
}

func TestLoginDefaultsToForm(t *testing.T) {
	srv, _ := testServer(t)

	w := newBrowser(t, srv).postForm("/login", url.Values{
		"email":    {"m@example.com"},
		"password": {"secret"},
		"next":     {"https://evil.example"},
	})
	assertRedirect(t, w, formRoute)
}

func TestLoginRequiresFields(t *testing.T) {
	srv, _ := testServer(t)

	w := newBrowser(t, srv).postForm("/login", url.Values{"email": {"m@example.com"}})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	if !strings.Contains(w.Body.String(), "Email and password are required") {
		t.Error("expected required message")
	}
}

func TestLoginRejected(t *testing.T) {
	srv, f := testServer(t)
	f.failWith("login", http.StatusUnauthorized, "")
	b := newBrowser(t, srv)

	w := b.postForm("/login", url.Values{"email": {"m@example.com"}, "password": {"wrong"}})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(w.Body.String(), loginFailedText) {
		t.Error("expected login failed message")
	}
	if !strings.Contains(w.Body.String(), `value="m@example.com"`) {
		t.Error("expected email kept")
	}
	if b.cookies["tb_session"] != nil {
		t.Error("expected no session cookie")
	}
}

func TestLoginServerMessage(t *testing.T) {
	srv, f := testServer(t)
	f.failWith("login", http.StatusBadRequest, "Account locked")

	w := newBrowser(t, srv).postForm("/login", url.Values{"email": {"m@example.com"}, "password": {"x"}})
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
	if !strings.Contains(w.Body.String(), "Account locked") {
		t.Error("expected server message")
	}
}

func TestLogout(t *testing.T) {
	srv, _ := testServer(t)
	b := newBrowser(t, srv)
	b.signIn()

	assertRedirect(t, b.postForm("/logout", nil), "/login")
	if b.cookies["tb_session"] != nil {
		t.Error("expected session cookie cleared")
	}
	assertRedirect(t, b.get("/manage/tickets/41/reply"), "/login?next=%2Fmanage%2Ftickets%2F41%2Freply")
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"", formRoute},
		{"/board/tok/7", "/board/tok/7"},
		{"//evil.example", formRoute},
		{"/\\evil.example", formRoute},
		{"https://evil.example/", formRoute},
	}
	for _, tt := range tests {
		if got := safeNext(tt.next); got != tt.want {
			t.Errorf("safeNext(%q) = %q, want %q", tt.next, got, tt.want)
		}
	}
}
