package web

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evcraddock/ticketboard/internal/client"
	"github.com/evcraddock/ticketboard/internal/draft"
	"github.com/evcraddock/ticketboard/internal/session"
	"github.com/evcraddock/ticketboard/internal/ticket"
	"github.com/evcraddock/ticketboard/internal/workflow"
)

const (
	formRoute       = "/tickets/new"
	visitorCookie   = "tb_visitor"
	multipartMemory = 8 << 20

	noticesFailedText = "The building notices could not be loaded. Please select the building again."
	uploadTooLarge    = "Attachments are too large."
)

// formRequest is a ticket form restored for one request.
type formRequest struct {
	sess    *session.Request
	notify  *toasts
	sub     *workflow.Submission
	visitor string
}

type formData struct {
	page
	Building      *ticket.Building
	Notices       []ticket.Notice
	NoticesLoaded bool
	Reviewing     bool
	FormVisible   bool
	Confirmation  *ticket.Ticket
	Categories    []ticket.Category
	Statuses      []string
	Form          ticket.Form
	Errors        workflow.ValidationErrors
	Query         string
	Searched      bool
	Buildings     []ticket.Building
}

// handleTicketForm renders the ticket form in its current state. A q
// parameter searches buildings for the picker.
func (s *Server) handleTicketForm(w http.ResponseWriter, r *http.Request) {
	fr, err := s.openForm(w, r)
	if err != nil {
		internalError(w, "opening ticket form", err)
		return
	}

	data := formData{}
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		data.Query = q
		buildings, err := s.api.SearchBuildings(q)
		if err != nil {
			slog.Warn("searching buildings", "query", q, "error", err)
			fr.notify.Warning(client.Message(err, workflow.GenericError))
		} else {
			data.Searched = true
			data.Buildings = buildings
		}
	}

	s.renderForm(w, r, fr, http.StatusOK, data)
}

// handleSelectBuilding makes the posted building current and loads its notices.
func (s *Server) handleSelectBuilding(w http.ResponseWriter, r *http.Request) {
	fr, err := s.openForm(w, r)
	if err != nil {
		internalError(w, "opening ticket form", err)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if err := fr.sub.SelectBuilding(buildingFromForm(r.PostForm)); errors.Is(err, workflow.ErrNoBuilding) {
		fr.notify.alert(workflow.NoBuildingText)
	}

	s.saveAndRedirect(w, r, fr)
}

// handleContinue acknowledges the notices and reveals the ticket fields.
func (s *Server) handleContinue(w http.ResponseWriter, r *http.Request) {
	fr, err := s.openForm(w, r)
	if err != nil {
		internalError(w, "opening ticket form", err)
		return
	}

	switch err := fr.sub.Continue(); {
	case errors.Is(err, workflow.ErrNoBuilding):
		fr.notify.alert(workflow.NoBuildingText)
	case errors.Is(err, workflow.ErrNoticesPending):
		fr.notify.Warning(noticesFailedText)
	}

	s.saveAndRedirect(w, r, fr)
}

// handleSubmit files the ticket from a multipart form post.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	fr, err := s.openForm(w, r)
	if err != nil {
		internalError(w, "opening ticket form", err)
		return
	}

	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, uploadTooLarge, http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if r.MultipartForm != nil {
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				slog.Warn("removing multipart files", "error", err)
			}
		}()
	}

	for i, field := range []string{"attachment1", "attachment2"} {
		a, err := formAttachment(r, field)
		if err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		if a == nil {
			continue
		}
		if c, ok := a.Content.(io.Closer); ok {
			defer closeUpload(c)
		}
		if err := fr.sub.Attach(i+1, a); err != nil {
			internalError(w, "attaching file", err)
			return
		}
	}

	created, err := fr.sub.Submit(ticket.FormFromValues(r.PostForm))

	data := formData{}
	status := http.StatusOK

	var verrs workflow.ValidationErrors
	switch {
	case err == nil:
		if fr.sess.Token() != "" {
			fr.notify.Info(fmt.Sprintf("Ticket %s has been created.", created.Code))
		}
		s.saveAndRedirect(w, r, fr)
		return
	case errors.As(err, &verrs):
		data.Errors = verrs
		status = http.StatusUnprocessableEntity
	case errors.Is(err, workflow.ErrNoBuilding):
		fr.notify.alert(workflow.NoBuildingText)
		status = http.StatusUnprocessableEntity
	case errors.Is(err, workflow.ErrReviewRequired):
		fr.notify.alert(workflow.ReviewText)
		status = http.StatusUnprocessableEntity
	case errors.Is(err, client.ErrAuthExpired):
		slog.Info("session expired during submit", "visitor", fr.visitor)
	default:
		status = http.StatusBadGateway
	}

	s.renderForm(w, r, fr, status, data)
}

// handleDismiss closes the confirmation shown after an anonymous submission.
func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	fr, err := s.openForm(w, r)
	if err != nil {
		internalError(w, "opening ticket form", err)
		return
	}

	fr.sub.DismissConfirmation()
	if fr.sub.State() != workflow.StateNoBuilding {
		s.saveAndRedirect(w, r, fr)
		return
	}

	// Nothing left worth keeping once the confirmation is gone.
	if err := s.drafts.Delete(fr.visitor); err != nil {
		internalError(w, "deleting draft", err)
		return
	}
	fr.notify.persist(w, s.cfg.SecureCookies())
	http.Redirect(w, r, formRoute, http.StatusSeeOther)
}

// openForm restores the visitor's form and session.
func (s *Server) openForm(w http.ResponseWriter, r *http.Request) (*formRequest, error) {
	sess, err := s.sessions.Load(w, r)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	visitor := visitorID(w, r, s.cfg.SecureCookies())
	snap, err := s.drafts.Load(visitor)
	if err != nil {
		return nil, fmt.Errorf("loading draft: %w", err)
	}

	n := &toasts{}
	sub := workflow.NewSubmission(s.api, sess, n)
	sub.Restore(snap)

	return &formRequest{sess: sess, notify: n, sub: sub, visitor: visitor}, nil
}

// saveAndRedirect stores the form state and sends the visitor back to the form.
func (s *Server) saveAndRedirect(w http.ResponseWriter, r *http.Request, fr *formRequest) {
	if err := s.drafts.Save(fr.visitor, fr.sub.Snapshot()); err != nil {
		internalError(w, "saving draft", err)
		return
	}
	fr.notify.persist(w, s.cfg.SecureCookies())
	http.Redirect(w, r, formRoute, http.StatusSeeOther)
}

// renderForm fills in the view state and renders the form page. Field values
// in data.Form are taken from the submission.
func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, fr *formRequest, status int, data formData) {
	if err := fr.sub.LoadCategories(); err != nil {
		slog.Debug("categories unavailable", "error", err)
	}

	state := fr.sub.State()
	data.Building = fr.sub.Building()
	data.Notices = fr.sub.Notices()
	data.NoticesLoaded = fr.sub.NoticesLoaded()
	data.Reviewing = state == workflow.StateAwaitingReview
	data.FormVisible = state == workflow.StateFormVisible
	data.Confirmation = fr.sub.Confirmation()
	data.Categories = fr.sub.Categories()
	data.Statuses = ticket.ResidentialStatuses
	data.Form = fr.sub.Form()

	data.Title = "New ticket"
	data.User = fr.sess.User()
	data.Toasts, data.Alert = fr.notify.collect(w, r, s.cfg.SecureCookies())

	s.renderStatus(w, status, "ticket_form.html", data)
}

// visitorID returns the visitor's draft key, issuing a new one when the
// cookie is missing or malformed.
func visitorID(w http.ResponseWriter, r *http.Request, secure bool) string {
	if c, err := r.Cookie(visitorCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     visitorCookie,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(draft.MaxAge),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// buildingFromForm reads the building record posted by a picker row.
func buildingFromForm(v url.Values) ticket.Building {
	id, err := strconv.ParseInt(v.Get("building_id"), 10, 64)
	if err != nil {
		id = 0
	}
	return ticket.Building{
		ID:      id,
		Name:    v.Get("name"),
		Code:    v.Get("code"),
		Type:    v.Get("type"),
		Address: v.Get("address"),
		City:    v.Get("city"),
		State:   v.Get("state"),
		Zip:     v.Get("zip"),
	}
}

// formAttachment returns the file posted in field, or nil when none was chosen.
func formAttachment(r *http.Request, field string) (*client.Attachment, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	file, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", field, err)
	}
	return &client.Attachment{Name: hdr.Filename, Content: file}, nil
}

func closeUpload(c io.Closer) {
	if err := c.Close(); err != nil {
		slog.Warn("closing upload", "error", err)
	}
}

func internalError(w http.ResponseWriter, op string, err error) {
	slog.Error(op, "error", err)
	http.Error(w, "Internal error", http.StatusInternalServerError)
}
