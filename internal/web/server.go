// Package web provides the HTTP server and handlers for the ticketboard web UI.
package web

import (
	"database/sql"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/evcraddock/ticketboard/internal/client"
	"github.com/evcraddock/ticketboard/internal/config"
	"github.com/evcraddock/ticketboard/internal/draft"
	"github.com/evcraddock/ticketboard/internal/logging"
	"github.com/evcraddock/ticketboard/internal/session"
	"github.com/evcraddock/ticketboard/internal/ticket"
	"github.com/evcraddock/ticketboard/internal/workflow"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// API is the ticketing service as the web UI uses it.
type API interface {
	workflow.SubmissionAPI
	workflow.BoardAPI
	workflow.ReplyAPI
	SearchBuildings(query string) ([]ticket.Building, error)
	GetTicket(auth client.Auth, ticketID int64) (*ticket.Ticket, error)
	Login(email, password string) (*client.LoginResponse, error)
}

// Server is the web UI HTTP server.
type Server struct {
	cfg       config.Config
	api       API
	sessions  *session.SQLiteStore
	drafts    *draft.Store
	templates *template.Template
	router    chi.Router
}

// NewServer creates a web server backed by the given database and API.
func NewServer(db *sql.DB, api API, cfg config.Config) (*Server, error) {
	funcMap := template.FuncMap{
		"statusArrow": tmplStatusArrow,
		"fieldError":  tmplFieldError,
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	staticContent, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("creating static sub-fs: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		api:       api,
		sessions:  session.NewSQLiteStore(db, cfg.SecureCookies()),
		drafts:    draft.NewStore(db),
		templates: tmpl,
	}

	submitRate := cfg.SubmitRate
	if submitRate <= 0 {
		submitRate = config.DefaultSubmitRate
	}

	r := chi.NewRouter()
	r.Use(logging.RequestLogger)
	r.Use(recoverer)

	r.Get("/health", handleHealth)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticContent))))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, formRoute, http.StatusSeeOther)
	})

	r.Route(formRoute, func(r chi.Router) {
		r.Get("/", s.handleTicketForm)
		r.Post("/building", s.handleSelectBuilding)
		r.Post("/continue", s.handleContinue)
		r.Post("/dismiss", s.handleDismiss)
		r.With(httprate.LimitByIP(submitRate, time.Minute)).Post("/", s.handleSubmit)
	})

	r.Get(workflow.BoardLoginRoute, s.handleBoardLoginPage)
	r.Post(workflow.BoardLoginRoute, s.handleBoardLoginSubmit)
	r.Get("/board/{board_token}/{building_id}", s.handleBoard)

	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLoginSubmit)
	r.Post("/logout", s.handleLogout)

	r.Route("/manage/tickets/{ticket_id}/reply", func(r chi.Router) {
		r.Use(s.requireManager)
		r.Get("/", s.handleReplyPage)
		r.Post("/", s.handleReplySubmit)
	})

	s.router = r
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Cleanup removes expired sessions and stale drafts.
func (s *Server) Cleanup() error {
	if err := s.sessions.Cleanup(); err != nil {
		return err
	}
	n, err := s.drafts.Cleanup(draft.MaxAge)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Debug("removed stale drafts", "count", n)
	}
	return nil
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
		slog.Warn("writing health response", "error", err)
	}
}

// recoverer turns a handler panic into a 500.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic", "panic", rec, "path", r.URL.Path, "request_id", logging.RequestID(r.Context()))
				http.Error(w, "Internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// page is the data every full page template receives.
type page struct {
	Title  string
	User   *ticket.User
	Toasts []toast
	Alert  string
}

// render executes a full page template.
func (s *Server) render(w http.ResponseWriter, name string, data interface{}) {
	s.renderStatus(w, http.StatusOK, name, data)
}

// renderStatus executes a full page template with the given status code.
func (s *Server) renderStatus(w http.ResponseWriter, status int, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("rendering template", "template", name, "error", err)
	}
}

// Template helper functions

func tmplStatusArrow(d workflow.SortDir) string {
	if d == workflow.SortDesc {
		return "▼"
	}
	return "▲"
}

func tmplFieldError(errs workflow.ValidationErrors, field string) string {
	return errs[field]
}
