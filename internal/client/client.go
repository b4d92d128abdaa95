// Package client provides an HTTP client for the remote ticketing API.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/evcraddock/ticketboard/internal/ticket"
)

// TypeOK is the envelope type the service uses for success.
const TypeOK = "S_OK"

// DefaultTimeout bounds every request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// ErrAuthExpired is returned when the service answers 401.
var ErrAuthExpired = errors.New("authentication expired")

// RequestError is any non-401 failure reported by the service.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed: %s", http.StatusText(e.Status))
	}
	return e.Message
}

// Auth carries the session credentials passed on authenticated calls.
type Auth struct {
	Token      string
	Permission string
}

// Attachment is a file sent alongside a new ticket.
type Attachment struct {
	Name    string
	Content io.Reader
}

// Client is an HTTP client for the ticketing API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client. A zero timeout uses DefaultTimeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// envelope is the part of every response the client inspects.
type envelope struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// BoardResponse is the response from the board call.
type BoardResponse struct {
	Building      ticket.Building       `json:"building"`
	Tickets       []ticket.Ticket       `json:"tickets"`
	InternalNotes []ticket.InternalNote `json:"internal_notes"`
}

// GetBoardTickets returns a building's tickets and internal notes, sorted
// by status in the given direction.
func (c *Client) GetBoardTickets(boardToken string, buildingID int64, sortDir string) (*BoardResponse, error) {
	params := url.Values{
		"board_token": {boardToken},
		"building_id": {strconv.FormatInt(buildingID, 10)},
		"sort_status": {sortDir},
	}
	var resp BoardResponse
	if err := c.get("/board/tickets?"+params.Encode(), Auth{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetBuildingNotes returns the notices posted for a building.
func (c *Client) GetBuildingNotes(buildingID int64) ([]ticket.Notice, error) {
	var resp struct {
		Notes []ticket.Notice `json:"notes"`
	}
	if err := c.get(fmt.Sprintf("/buildings/%d/notes", buildingID), Auth{}, &resp); err != nil {
		return nil, err
	}
	return resp.Notes, nil
}

// SearchBuildings returns buildings matching the query.
func (c *Client) SearchBuildings(query string) ([]ticket.Building, error) {
	path := "/buildings"
	if query != "" {
		path += "?" + url.Values{"q": {query}}.Encode()
	}
	var resp struct {
		Buildings []ticket.Building `json:"buildings"`
	}
	if err := c.get(path, Auth{}, &resp); err != nil {
		return nil, err
	}
	return resp.Buildings, nil
}

// GetTicketCategories returns the categories a ticket can be filed under.
func (c *Client) GetTicketCategories(auth Auth) ([]ticket.Category, error) {
	var resp struct {
		Categories []ticket.Category `json:"categories"`
	}
	if err := c.get("/ticket-categories", auth, &resp); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

// GetTicket returns a single ticket.
func (c *Client) GetTicket(auth Auth, ticketID int64) (*ticket.Ticket, error) {
	var resp struct {
		Ticket ticket.Ticket `json:"ticket"`
	}
	if err := c.get(fmt.Sprintf("/tickets/%d", ticketID), auth, &resp); err != nil {
		return nil, err
	}
	return &resp.Ticket, nil
}

// CreateTicket files a new ticket. Either attachment may be nil.
func (c *Client) CreateTicket(auth Auth, fields url.Values, attachment1, attachment2 *Attachment) (*ticket.Ticket, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range fields[k] {
			if err := mw.WriteField(k, v); err != nil {
				return nil, fmt.Errorf("writing field %s: %w", k, err)
			}
		}
	}

	for i, a := range []*Attachment{attachment1, attachment2} {
		if a == nil || a.Content == nil {
			continue
		}
		part, err := mw.CreateFormFile(fmt.Sprintf("attachment%d", i+1), a.Name)
		if err != nil {
			return nil, fmt.Errorf("creating attachment part: %w", err)
		}
		if _, err := io.Copy(part, a.Content); err != nil {
			return nil, fmt.Errorf("copying attachment %s: %w", a.Name, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL+"/tickets", &body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp struct {
		Ticket ticket.Ticket `json:"ticket"`
	}
	if err := c.do(req, auth, &resp); err != nil {
		return nil, err
	}
	return &resp.Ticket, nil
}

// UpdateTicketDesc sends a manager's follow-up message on a ticket.
func (c *Client) UpdateTicketDesc(auth Auth, ticketID int64, message string) error {
	body := map[string]string{"message": message}
	return c.post(fmt.Sprintf("/tickets/%d/desc", ticketID), auth, body, nil)
}

// LoginResponse is the response from the login call.
type LoginResponse struct {
	Token string       `json:"token"`
	User  *ticket.User `json:"user"`
}

// Login exchanges manager credentials for a session token.
func (c *Client) Login(email, password string) (*LoginResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var resp LoginResponse
	if err := c.post("/auth/login", Auth{}, body, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, &RequestError{Status: http.StatusOK, Message: "login response carried no token"}
	}
	return &resp, nil
}

// get performs a GET request and decodes the response.
func (c *Client) get(path string, auth Auth, result interface{}) error {
	req, err := http.NewRequest("GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, auth, result)
}

// post performs a POST request with a JSON body and decodes the response.
func (c *Client) post(path string, auth Auth, body interface{}, result interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, auth, result)
}

// do executes an HTTP request with auth headers and unwraps the envelope.
func (c *Client) do(req *http.Request, auth Auth, result interface{}) error {
	req.Header.Set("Accept", "application/json")
	if auth.Token != "" {
		req.Header.Set("Authorization", "Bearer "+auth.Token)
	}
	if auth.Permission != "" {
		req.Header.Set("X-User-Permission", auth.Permission)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("api request failed", "method", req.Method, "path", req.URL.Path, "error", err)
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("closing response body", "error", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		slog.Info("api session rejected", "method", req.Method, "path", req.URL.Path)
		return ErrAuthExpired
	}

	var env envelope
	decodeErr := json.Unmarshal(respBody, &env)

	if resp.StatusCode >= 400 {
		slog.Warn("api error response", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode)
		reqErr := &RequestError{Status: resp.StatusCode}
		if decodeErr == nil {
			reqErr.Message = env.Message
		}
		return reqErr
	}

	if decodeErr != nil {
		return fmt.Errorf("decoding response: %w", decodeErr)
	}
	if env.Type != TypeOK {
		return &RequestError{Status: resp.StatusCode, Message: env.Message}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

// Message returns the user-facing text for a failed call: the server's
// message when it sent one, otherwise fallback.
func Message(err error, fallback string) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.Message != "" {
		return reqErr.Message
	}
	return fallback
}
