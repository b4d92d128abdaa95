package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/evcraddock/ticketboard/internal/client"
	"github.com/evcraddock/ticketboard/internal/session"
	"github.com/evcraddock/ticketboard/internal/ticket"
	"github.com/evcraddock/ticketboard/internal/workflow"
)

type replyData struct {
	page
	Ticket  *ticket.Ticket
	Message string
	Action  string
}

// handleReplyPage renders the reply modal for a ticket.
func (s *Server) handleReplyPage(w http.ResponseWriter, r *http.Request) {
	id, err := ticketIDParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	sess := requestSession(r.Context())
	n := &toasts{}

	t, err := s.api.GetTicket(session.Auth(sess), id)
	if errors.Is(err, client.ErrAuthExpired) {
		s.expireSession(w, r, sess)
		return
	}
	if err != nil {
		slog.Warn("loading ticket", "ticket_id", id, "error", err)
		n.Warning(client.Message(err, workflow.GenericError))
	}

	s.renderReply(w, r, sess, n, http.StatusOK, id, t, "")
}

// handleReplySubmit sends the manager's message to the resident.
func (s *Server) handleReplySubmit(w http.ResponseWriter, r *http.Request) {
	id, err := ticketIDParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	sess := requestSession(r.Context())
	n := &toasts{}

	sent := false
	reply := workflow.NewReply(s.api, sess, n, ticket.Ticket{ID: id}, func() { sent = true })
	reply.SetMessage(r.PostFormValue("message"))

	err = reply.Send()
	if sent {
		n.persist(w, s.cfg.SecureCookies())
		http.Redirect(w, r, replyPath(id), http.StatusSeeOther)
		return
	}
	if errors.Is(err, client.ErrAuthExpired) {
		s.expireSession(w, r, sess)
		return
	}

	// Show the ticket again so the manager can retry.
	t, getErr := s.api.GetTicket(session.Auth(sess), id)
	if getErr != nil {
		slog.Warn("reloading ticket", "ticket_id", id, "error", getErr)
	}
	s.renderReply(w, r, sess, n, http.StatusBadGateway, id, t, reply.Message())
}

func (s *Server) renderReply(w http.ResponseWriter, r *http.Request, sess *session.Request, n *toasts, status int, id int64, t *ticket.Ticket, message string) {
	data := replyData{Ticket: t, Message: message, Action: replyPath(id)}
	data.Title = fmt.Sprintf("Reply to ticket %d", id)
	data.User = sess.User()
	data.Toasts, data.Alert = n.collect(w, r, s.cfg.SecureCookies())
	s.renderStatus(w, status, "reply.html", data)
}

// expireSession clears the session and sends the manager back to sign in.
func (s *Server) expireSession(w http.ResponseWriter, r *http.Request, sess *session.Request) {
	if err := sess.Clear(); err != nil {
		slog.Warn("clearing session", "error", err)
	}
	http.Redirect(w, r, loginURL(r.URL.RequestURI()), http.StatusSeeOther)
}

func ticketIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "ticket_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid ticket id %q", chi.URLParam(r, "ticket_id"))
	}
	return id, nil
}

func replyPath(id int64) string {
	return fmt.Sprintf("/manage/tickets/%d/reply", id)
}
