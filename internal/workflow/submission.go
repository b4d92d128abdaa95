package workflow

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/evcraddock/ticketboard/internal/client"
	"github.com/evcraddock/ticketboard/internal/session"
	"github.com/evcraddock/ticketboard/internal/ticket"
)

// State is where the ticket form is in its workflow.
type State int

const (
	// StateNoBuilding: nothing selected yet, only the building picker is offered.
	StateNoBuilding State = iota
	// StateAwaitingReview: a building is selected and its notices are shown.
	StateAwaitingReview
	// StateFormVisible: notices were acknowledged, the ticket fields are shown.
	StateFormVisible
	// StateSubmitted: the confirmation for an anonymous submission is open.
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateNoBuilding:
		return "no-building"
	case StateAwaitingReview:
		return "awaiting-review"
	case StateFormVisible:
		return "form-visible"
	case StateSubmitted:
		return "submitted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// SubmissionAPI is the part of the ticketing API the form uses.
type SubmissionAPI interface {
	GetBuildingNotes(buildingID int64) ([]ticket.Notice, error)
	GetTicketCategories(auth client.Auth) ([]ticket.Category, error)
	CreateTicket(auth client.Auth, fields url.Values, attachment1, attachment2 *client.Attachment) (*ticket.Ticket, error)
}

// Snapshot is the part of a Submission that outlives a single request.
type Snapshot struct {
	Building      *ticket.Building `json:"building,omitempty"`
	Notices       []ticket.Notice  `json:"notices,omitempty"`
	NoticesLoaded bool             `json:"notices_loaded"`
	Reviewed      bool             `json:"reviewed"`
	Confirmation  *ticket.Ticket   `json:"confirmation,omitempty"`
}

// Submission is the view model of the resident ticket form.
type Submission struct {
	api     SubmissionAPI
	session session.Store
	notify  Notifier

	snap        Snapshot
	form        ticket.Form
	categories  []ticket.Category
	attachments [2]*client.Attachment
}

// NewSubmission returns a form with no building selected.
func NewSubmission(api SubmissionAPI, sess session.Store, notify Notifier) *Submission {
	return &Submission{
		api:     api,
		session: sess,
		notify:  notify,
		form:    ticket.NewForm(),
	}
}

// Restore resumes a form from a saved snapshot.
func (s *Submission) Restore(snap Snapshot) {
	s.snap = snap
}

// Snapshot returns the state to save between requests.
func (s *Submission) Snapshot() Snapshot {
	return s.snap
}

// State returns the current workflow state.
func (s *Submission) State() State {
	switch {
	case s.snap.Confirmation != nil:
		return StateSubmitted
	case !s.snap.Building.Valid():
		return StateNoBuilding
	case !s.snap.Reviewed:
		return StateAwaitingReview
	default:
		return StateFormVisible
	}
}

// Building returns the selected building, or nil.
func (s *Submission) Building() *ticket.Building {
	return s.snap.Building
}

// Notices returns the selected building's notices.
func (s *Submission) Notices() []ticket.Notice {
	return s.snap.Notices
}

// NoticesLoaded reports whether the notices fetch for the selected building succeeded.
func (s *Submission) NoticesLoaded() bool {
	return s.snap.NoticesLoaded
}

// Reviewed reports whether the notices were acknowledged.
func (s *Submission) Reviewed() bool {
	return s.snap.Reviewed
}

// Categories returns the loaded ticket categories.
func (s *Submission) Categories() []ticket.Category {
	return s.categories
}

// Form returns the current field values.
func (s *Submission) Form() ticket.Form {
	return s.form
}

// Confirmation returns the ticket shown in the confirmation, or nil.
func (s *Submission) Confirmation() *ticket.Ticket {
	return s.snap.Confirmation
}

// LoadCategories fetches the category choices. Called when the view starts.
func (s *Submission) LoadCategories() error {
	cats, err := s.api.GetTicketCategories(session.Auth(s.session))
	if err != nil {
		return handleFailure("loading ticket categories", err, s.session, s.notify)
	}
	s.categories = cats
	return nil
}

// SelectBuilding makes b the current building and fetches its notices.
// It always starts the review over, even when b is rejected.
func (s *Submission) SelectBuilding(b ticket.Building) error {
	s.snap = Snapshot{}

	if !b.Valid() {
		return ErrNoBuilding
	}
	s.snap.Building = &b

	notices, err := s.api.GetBuildingNotes(b.ID)
	if err != nil {
		slog.Warn("loading building notices", "building_id", b.ID, "error", err)
		s.notify.Warning(client.Message(err, GenericError))
		return fmt.Errorf("loading notices for building %d: %w", b.ID, err)
	}

	s.snap.Notices = notices
	s.snap.NoticesLoaded = true
	return nil
}

// Continue acknowledges the notices and reveals the ticket fields.
func (s *Submission) Continue() error {
	if !s.snap.Building.Valid() {
		return ErrNoBuilding
	}
	if !s.snap.NoticesLoaded {
		return ErrNoticesPending
	}
	s.snap.Reviewed = true
	return nil
}

// Attach fills attachment slot 1 or 2. A nil attachment empties the slot.
func (s *Submission) Attach(slot int, a *client.Attachment) error {
	if slot < 1 || slot > len(s.attachments) {
		return ErrInvalidSlot
	}
	s.attachments[slot-1] = a
	return nil
}

// Submit validates f and files the ticket against the selected building.
//
// Validation failures return ValidationErrors and a missing building returns
// ErrNoBuilding; neither reaches the network. On success the form starts
// over, and for a resident without a session the created ticket is kept for
// the confirmation.
func (s *Submission) Submit(f ticket.Form) (*ticket.Ticket, error) {
	s.form = f

	if err := ValidateForm(f); err != nil {
		return nil, err
	}
	if !s.snap.Building.Valid() {
		return nil, ErrNoBuilding
	}
	if !s.snap.Reviewed && !(s.snap.NoticesLoaded && len(s.snap.Notices) == 0) {
		return nil, ErrReviewRequired
	}

	f.BuildingID = s.snap.Building.ID
	created, err := s.api.CreateTicket(session.Auth(s.session), f.Values(), s.attachments[0], s.attachments[1])
	if err != nil {
		return nil, handleFailure("creating ticket", err, s.session, s.notify)
	}

	slog.Info("ticket created", "code", created.Code, "building_id", f.BuildingID)

	s.snap = Snapshot{}
	s.form = ticket.NewForm()
	s.attachments = [2]*client.Attachment{}

	if s.session.Token() == "" {
		s.snap.Confirmation = created
	}

	return created, nil
}

// DismissConfirmation closes the confirmation.
func (s *Submission) DismissConfirmation() {
	s.snap.Confirmation = nil
}
