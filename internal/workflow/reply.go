package workflow

import (
	"log/slog"

	"github.com/evcraddock/ticketboard/internal/client"
	"github.com/evcraddock/ticketboard/internal/session"
	"github.com/evcraddock/ticketboard/internal/ticket"
)

// ReplyAPI is the part of the ticketing API the reply modal uses.
type ReplyAPI interface {
	UpdateTicketDesc(auth client.Auth, ticketID int64, message string) error
}

// Reply is the view model of the manager's reply-to-resident modal.
type Reply struct {
	api     ReplyAPI
	session session.Store
	notify  Notifier

	ticket    ticket.Ticket
	message   string
	onSuccess func()
}

// NewReply returns a reply modal for t. onSuccess, if set, runs after the
// message is accepted.
func NewReply(api ReplyAPI, sess session.Store, notify Notifier, t ticket.Ticket, onSuccess func()) *Reply {
	return &Reply{
		api:       api,
		session:   sess,
		notify:    notify,
		ticket:    t,
		onSuccess: onSuccess,
	}
}

// Ticket returns the ticket being replied to.
func (r *Reply) Ticket() ticket.Ticket {
	return r.ticket
}

// SetMessage replaces the draft message.
func (r *Reply) SetMessage(msg string) {
	r.message = msg
}

// Message returns the draft message.
func (r *Reply) Message() string {
	return r.message
}

// Send delivers the message. An empty message is sent as is.
func (r *Reply) Send() error {
	if r.ticket.ID <= 0 {
		return ErrMissingTicketID
	}

	if err := r.api.UpdateTicketDesc(session.Auth(r.session), r.ticket.ID, r.message); err != nil {
		return handleFailure("sending reply", err, r.session, r.notify)
	}

	slog.Info("reply sent", "ticket_id", r.ticket.ID)

	if r.onSuccess != nil {
		r.onSuccess()
	}
	r.notify.Info(ReplySentText)
	return nil
}
