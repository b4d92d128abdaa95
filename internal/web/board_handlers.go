package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/evcraddock/ticketboard/internal/ticket"
	"github.com/evcraddock/ticketboard/internal/workflow"
)

type boardRow struct {
	workflow.Row
	ToggleURL string
}

type boardData struct {
	page
	Building      ticket.Building
	Rows          []boardRow
	InternalNotes []ticket.InternalNote
	Sort          workflow.SortDir
	SortURL       string
	Failed        bool
}

type boardLoginData struct {
	page
	BoardToken string
	BuildingID string
	Error      string
}

// handleBoard renders a building's read-only dashboard. The sort and
// detail query parameters carry the view state between clicks.
func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	// chi hands back the raw segment when the path carries escapes.
	boardToken, err := url.PathUnescape(chi.URLParam(r, "board_token"))
	if err != nil || boardToken == "" {
		http.NotFound(w, r)
		return
	}
	buildingID, err := strconv.ParseInt(chi.URLParam(r, "building_id"), 10, 64)
	if err != nil || buildingID <= 0 {
		http.NotFound(w, r)
		return
	}

	n := &toasts{}
	board := workflow.NewBoard(s.api, n, boardToken, buildingID)
	sort := workflow.ParseSortDir(r.URL.Query().Get("sort"))
	if err := board.SetSort(sort); err != nil && board.LoginRequired() {
		http.Redirect(w, r, workflow.BoardLoginRoute, http.StatusSeeOther)
		return
	}

	if detail, err := strconv.ParseInt(r.URL.Query().Get("detail"), 10, 64); err == nil && detail != workflow.Collapsed {
		board.Expand(detail)
	}

	base := boardPath(boardToken, buildingID)
	rows := board.Rows()
	data := boardData{
		Building:      board.Building(),
		Rows:          make([]boardRow, len(rows)),
		InternalNotes: board.InternalNotes(),
		Sort:          board.Sort(),
		SortURL:       boardURL(base, board.Sort().Toggle(), workflow.Collapsed),
		Failed:        board.Status() == workflow.BoardFailed,
	}
	for i, row := range rows {
		target := row.Ticket.ID
		if row.Expanded {
			target = workflow.Collapsed
		}
		data.Rows[i] = boardRow{Row: row, ToggleURL: boardURL(base, board.Sort(), target)}
	}

	data.Title = "Board"
	if data.Building.Name != "" {
		data.Title = data.Building.Name
	}
	data.Toasts, data.Alert = n.collect(w, r, s.cfg.SecureCookies())

	s.render(w, "board.html", data)
}

// handleBoardLoginPage asks for a board link after a board token was rejected.
func (s *Server) handleBoardLoginPage(w http.ResponseWriter, r *http.Request) {
	data := boardLoginData{}
	data.Title = "Open board"
	data.Toasts, data.Alert = (&toasts{}).collect(w, r, s.cfg.SecureCookies())
	s.render(w, "board_login.html", data)
}

// handleBoardLoginSubmit opens the board for the posted token and building.
func (s *Server) handleBoardLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	data := boardLoginData{
		BoardToken: strings.TrimSpace(r.FormValue("board_token")),
		BuildingID: strings.TrimSpace(r.FormValue("building_id")),
	}
	data.Title = "Open board"

	buildingID, err := strconv.ParseInt(data.BuildingID, 10, 64)
	switch {
	case data.BoardToken == "":
		data.Error = "Board token is required"
	case err != nil || buildingID <= 0:
		data.Error = "Building ID must be a number"
	default:
		http.Redirect(w, r, boardPath(data.BoardToken, buildingID), http.StatusSeeOther)
		return
	}

	s.renderStatus(w, http.StatusUnprocessableEntity, "board_login.html", data)
}

func boardPath(boardToken string, buildingID int64) string {
	return fmt.Sprintf("/board/%s/%d", url.PathEscape(boardToken), buildingID)
}

func boardURL(base string, sort workflow.SortDir, detail int64) string {
	q := url.Values{}
	q.Set("sort", string(sort))
	if detail != workflow.Collapsed {
		q.Set("detail", strconv.FormatInt(detail, 10))
	}
	return base + "?" + q.Encode()
}
