package workflow

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/evcraddock/ticketboard/internal/client"
	"github.com/evcraddock/ticketboard/internal/ticket"
)

// BoardLoginRoute is where the board sends viewers whose board token was rejected.
const BoardLoginRoute = "/board/login"

// Collapsed is the expanded-row value meaning no row is expanded.
const Collapsed int64 = -1

// SortDir is the status sort direction, applied by the service.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// ParseSortDir reads a direction, defaulting to ascending.
func ParseSortDir(s string) SortDir {
	if SortDir(s) == SortDesc {
		return SortDesc
	}
	return SortAsc
}

// Toggle returns the opposite direction.
func (d SortDir) Toggle() SortDir {
	if d == SortAsc {
		return SortDesc
	}
	return SortAsc
}

// BoardStatus is the outcome of the last board fetch.
type BoardStatus int

const (
	BoardPending BoardStatus = iota
	BoardReady
	BoardFailed
	BoardLoginRequired
)

// BoardAPI is the part of the ticketing API the board uses.
type BoardAPI interface {
	GetBoardTickets(boardToken string, buildingID int64, sortDir string) (*client.BoardResponse, error)
}

// Row is one ticket line on the board.
type Row struct {
	Ticket   ticket.Ticket
	Color    ticket.Color
	Expanded bool
}

// Board is the view model of the read-only building dashboard.
type Board struct {
	api    BoardAPI
	notify Notifier

	boardToken string
	buildingID int64

	sort     SortDir
	expanded int64
	status   BoardStatus
	data     client.BoardResponse
}

// NewBoard returns an unloaded board sorted ascending with every row collapsed.
func NewBoard(api BoardAPI, notify Notifier, boardToken string, buildingID int64) *Board {
	return &Board{
		api:        api,
		notify:     notify,
		boardToken: boardToken,
		buildingID: buildingID,
		sort:       SortAsc,
		expanded:   Collapsed,
	}
}

// Load fetches the board with the current sort direction.
// A rejected board token sets BoardLoginRequired; the caller redirects to
// BoardLoginRoute. Other failures show a generic warning and keep whatever
// was loaded before.
func (b *Board) Load() error {
	resp, err := b.api.GetBoardTickets(b.boardToken, b.buildingID, string(b.sort))
	if err != nil {
		if errors.Is(err, client.ErrAuthExpired) {
			b.status = BoardLoginRequired
			return fmt.Errorf("loading board for building %d: %w", b.buildingID, err)
		}
		slog.Warn("loading board", "building_id", b.buildingID, "error", err)
		b.status = BoardFailed
		b.notify.Warning(GenericError)
		return fmt.Errorf("loading board for building %d: %w", b.buildingID, err)
	}

	b.data = *resp
	b.status = BoardReady
	return nil
}

// SetSort changes the direction and refetches. Setting the current
// direction on a loaded board does nothing.
func (b *Board) SetSort(d SortDir) error {
	if d == b.sort && b.status != BoardPending {
		return nil
	}
	b.sort = d
	return b.Load()
}

// Sort returns the current direction.
func (b *Board) Sort() SortDir {
	return b.sort
}

// Status returns the outcome of the last fetch.
func (b *Board) Status() BoardStatus {
	return b.status
}

// LoginRequired reports whether the viewer must go to BoardLoginRoute.
func (b *Board) LoginRequired() bool {
	return b.status == BoardLoginRequired
}

// Building returns the loaded building.
func (b *Board) Building() ticket.Building {
	return b.data.Building
}

// InternalNotes returns the loaded internal notes.
func (b *Board) InternalNotes() []ticket.InternalNote {
	return b.data.InternalNotes
}

// Tickets returns the loaded tickets in service order.
func (b *Board) Tickets() []ticket.Ticket {
	return b.data.Tickets
}

// Expand shows the detail of one ticket and collapses any other.
func (b *Board) Expand(ticketID int64) {
	b.expanded = ticketID
}

// Collapse hides the expanded detail.
func (b *Board) Collapse() {
	b.expanded = Collapsed
}

// Expanded returns the expanded ticket id, or Collapsed.
func (b *Board) Expanded() int64 {
	return b.expanded
}

// Rows returns the tickets with their display state.
func (b *Board) Rows() []Row {
	rows := make([]Row, len(b.data.Tickets))
	for i, t := range b.data.Tickets {
		rows[i] = Row{
			Ticket:   t,
			Color:    t.Color(),
			Expanded: b.expanded != Collapsed && t.ID == b.expanded,
		}
	}
	return rows
}
