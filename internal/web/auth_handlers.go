package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/evcraddock/ticketboard/internal/client"
	"github.com/evcraddock/ticketboard/internal/session"
)

const loginFailedText = "Login failed. Check your email and password."

type loginData struct {
	page
	Email string
	Next  string
	Error string
}

type sessionKey struct{}

// requestSession returns the session requireManager loaded for the request.
func requestSession(ctx context.Context) *session.Request {
	sess, _ := ctx.Value(sessionKey{}).(*session.Request)
	return sess
}

// requireManager sends visitors without a session to the login page and
// hands the loaded session to the next handler.
func (s *Server) requireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Load(w, r)
		if err != nil {
			internalError(w, "loading session", err)
			return
		}
		if sess.Token() == "" {
			http.Redirect(w, r, loginURL(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

// handleLoginPage renders the manager login form.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	data := loginData{Next: safeNext(r.URL.Query().Get("next"))}
	data.Title = "Sign in"
	data.Toasts, data.Alert = (&toasts{}).collect(w, r, s.cfg.SecureCookies())
	s.render(w, "login.html", data)
}

// handleLoginSubmit signs in against the ticketing service and starts a session.
func (s *Server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	data := loginData{
		Email: strings.TrimSpace(r.FormValue("email")),
		Next:  safeNext(r.FormValue("next")),
	}
	data.Title = "Sign in"
	password := r.FormValue("password")

	if data.Email == "" || password == "" {
		data.Error = "Email and password are required"
		s.renderStatus(w, http.StatusUnprocessableEntity, "login.html", data)
		return
	}

	resp, err := s.api.Login(data.Email, password)
	if err != nil {
		slog.Info("login failed", "email", data.Email, "error", err)
		data.Error = client.Message(err, loginFailedText)
		status := http.StatusBadGateway
		if errors.Is(err, client.ErrAuthExpired) {
			status = http.StatusUnauthorized
		}
		s.renderStatus(w, status, "login.html", data)
		return
	}

	sess, err := s.sessions.Load(w, r)
	if err != nil {
		internalError(w, "loading session", err)
		return
	}
	if err := sess.Set(resp.Token, resp.User); err != nil {
		internalError(w, "creating session", err)
		return
	}

	slog.Info("signed in", "email", data.Email)
	http.Redirect(w, r, data.Next, http.StatusSeeOther)
}

// handleLogout ends the session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Load(w, r)
	if err != nil {
		internalError(w, "loading session", err)
		return
	}
	if err := sess.Clear(); err != nil {
		slog.Warn("clearing session", "error", err)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func loginURL(next string) string {
	return "/login?" + url.Values{"next": {next}}.Encode()
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return formRoute
	}
	return next
}
