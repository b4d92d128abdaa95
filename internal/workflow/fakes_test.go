package workflow

import (
	"net/url"

	"github.com/evcraddock/ticketboard/internal/client"
	"github.com/evcraddock/ticketboard/internal/ticket"
)

type recordingNotifier struct {
	infos    []string
	warnings []string
}

func (n *recordingNotifier) Info(msg string)    { n.infos = append(n.infos, msg) }
func (n *recordingNotifier) Warning(msg string) { n.warnings = append(n.warnings, msg) }

type createCall struct {
	auth        client.Auth
	fields      url.Values
	attachment1 *client.Attachment
	attachment2 *client.Attachment
}

type fakeAPI struct {
	notices    map[int64][]ticket.Notice
	notesErr   error
	notesCalls []int64

	categories    []ticket.Category
	categoriesErr error

	created   *ticket.Ticket
	createErr error
	creates   []createCall

	board       *client.BoardResponse
	boardErr    error
	boardCalls  []string
	boardTokens []string

	updateErr error
	updates   []string
	updateIDs []int64
	replyAuth []client.Auth
}

func (f *fakeAPI) GetBuildingNotes(buildingID int64) ([]ticket.Notice, error) {
	f.notesCalls = append(f.notesCalls, buildingID)
	if f.notesErr != nil {
		return nil, f.notesErr
	}
	return f.notices[buildingID], nil
}

func (f *fakeAPI) GetTicketCategories(auth client.Auth) ([]ticket.Category, error) {
	if f.categoriesErr != nil {
		return nil, f.categoriesErr
	}
	return f.categories, nil
}

func (f *fakeAPI) CreateTicket(auth client.Auth, fields url.Values, a1, a2 *client.Attachment) (*ticket.Ticket, error) {
	f.creates = append(f.creates, createCall{auth: auth, fields: fields, attachment1: a1, attachment2: a2})
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.created, nil
}

func (f *fakeAPI) GetBoardTickets(boardToken string, buildingID int64, sortDir string) (*client.BoardResponse, error) {
	f.boardCalls = append(f.boardCalls, sortDir)
	f.boardTokens = append(f.boardTokens, boardToken)
	if f.boardErr != nil {
		return nil, f.boardErr
	}
	return f.board, nil
}

func (f *fakeAPI) UpdateTicketDesc(auth client.Auth, ticketID int64, message string) error {
	f.replyAuth = append(f.replyAuth, auth)
	f.updateIDs = append(f.updateIDs, ticketID)
	f.updates = append(f.updates, message)
	return f.updateErr
}

func validForm() ticket.Form {
	f := ticket.NewForm()
	f.Category = "4"
	f.Name = "Ada"
	f.UnitNumber = "12B"
	f.ResidentEmail = "a@b.co"
	f.ResidentEmail2 = "a@b.co"
	return f
}
