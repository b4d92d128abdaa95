// Package workflow holds the view models behind the ticket form, the board
// dashboard and the manager reply modal. Each view model owns its state for
// a single view and reaches the outside world only through the ticketing
// API, the session store and a Notifier.
package workflow

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/evcraddock/ticketboard/internal/client"
	"github.com/evcraddock/ticketboard/internal/session"
)

// User-facing texts.
const (
	GenericError   = "There was an unexpected error."
	NoBuildingText = "Please select the building first."
	ReviewText     = "Please review the building notices and continue."
	ReplySentText  = "The message is sent to the resident successfully."
)

// Notifier shows non-blocking toasts.
type Notifier interface {
	Info(msg string)
	Warning(msg string)
}

// Blocking alerts. These stop an action before any network call is made.
var (
	ErrNoBuilding      = errors.New("no building selected")
	ErrNoticesPending  = errors.New("building notices have not loaded")
	ErrReviewRequired  = errors.New("building notices not reviewed")
	ErrInvalidSlot     = errors.New("attachment slot must be 1 or 2")
	ErrMissingTicketID = errors.New("ticket has no id")
)

// handleFailure applies the shared failure policy for calls made with a
// session: 401 clears the session silently, anything else is a warning.
func handleFailure(op string, err error, sess session.Store, notify Notifier) error {
	if errors.Is(err, client.ErrAuthExpired) {
		slog.Info("session expired, clearing", "op", op)
		if clearErr := sess.Clear(); clearErr != nil {
			return fmt.Errorf("%s: %w (also failed to clear session: %v)", op, err, clearErr)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	slog.Warn("request failed", "op", op, "error", err)
	notify.Warning(client.Message(err, GenericError))
	return fmt.Errorf("%s: %w", op, err)
}
