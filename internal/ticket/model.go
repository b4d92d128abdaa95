// Package ticket provides the building-maintenance domain model shared by the
// API client, the view models, and the renderers.
package ticket

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/evcraddock/ticketboard/internal/richtext"
)

// Status ids as assigned by the ticketing service.
const (
	StatusOpen       int64 = 1
	StatusInProgress int64 = 2
)

// Color is the indicator shown next to a ticket status.
type Color string

const (
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorRed    Color = "red"
)

// StatusColor maps a status id to its indicator color.
// Any id other than open or in-progress is treated as closed.
func StatusColor(statusID int64) Color {
	switch statusID {
	case StatusOpen:
		return ColorGreen
	case StatusInProgress:
		return ColorYellow
	default:
		return ColorRed
	}
}

// Building is a managed building residents can file tickets against.
type Building struct {
	ID            int64  `json:"building_id"`
	Name          string `json:"name"`
	Code          string `json:"code"`
	Type          string `json:"type"`
	Address       string `json:"address"`
	City          string `json:"city"`
	State         string `json:"state"`
	Zip           string `json:"zip"`
	ManagersName  string `json:"managers_name,omitempty"`
	ManagersEmail string `json:"managers_email,omitempty"`
}

// Valid reports whether the building carries an identifier.
func (b *Building) Valid() bool {
	return b != nil && b.ID > 0
}

// Ticket is a resident-reported maintenance issue.
type Ticket struct {
	ID                int64         `json:"ticket_id"`
	Code              string        `json:"code"`
	CategoryID        int64         `json:"ticket_category_id"`
	CategoryName      string        `json:"ticket_category_name"`
	StatusID          int64         `json:"ticket_status_id"`
	StatusName        string        `json:"ticket_status_name"`
	ResidentName      string        `json:"resident_name"`
	UnitNumber        string        `json:"unit_number"`
	ResidentialStatus string        `json:"residential_status"`
	ResidentEmail     string        `json:"resident_email"`
	CellPhone         string        `json:"cell_phone"`
	Description       richtext.HTML `json:"description"`
	Attachment1       string        `json:"attachment1,omitempty"`
	Attachment1URL    string        `json:"attachment1_url,omitempty"`
	Attachment2       string        `json:"attachment2,omitempty"`
	Attachment2URL    string        `json:"attachment2_url,omitempty"`
	CreateDate        string        `json:"create_date"`
}

// Color returns the status indicator for the ticket.
func (t Ticket) Color() Color {
	return StatusColor(t.StatusID)
}

// Attachments returns the ticket's non-empty attachment links in slot order.
func (t Ticket) Attachments() []Link {
	var links []Link
	if t.Attachment1 != "" || t.Attachment1URL != "" {
		links = append(links, Link{Name: t.Attachment1, URL: t.Attachment1URL})
	}
	if t.Attachment2 != "" || t.Attachment2URL != "" {
		links = append(links, Link{Name: t.Attachment2, URL: t.Attachment2URL})
	}
	return links
}

// Link is a named URL.
type Link struct {
	Name string
	URL  string
}

// InternalNote is a manager-only annotation with an associated cost.
type InternalNote struct {
	TicketCode  string        `json:"ticket_code"`
	Description richtext.HTML `json:"description"`
	Cost        Amount        `json:"cost"`
	CreateDate  string        `json:"create_date"`
}

// Notice is a building-wide announcement shown before a new ticket is filed.
type Notice struct {
	Description richtext.HTML `json:"description"`
	CreateDate  string        `json:"create_date"`
}

// Category is a selectable ticket category.
type Category struct {
	ID   int64  `json:"ticket_category_id"`
	Name string `json:"name"`
}

// User is the signed-in account as returned by the ticketing service.
type User struct {
	ID         int64      `json:"user_id" yaml:"user_id"`
	Name       string     `json:"name" yaml:"name"`
	Email      string     `json:"email" yaml:"email"`
	Permission Permission `json:"permission" yaml:"permission"`
}

// Permission is the user's access level. The service sends it either as a
// number or a string, so it is kept in its textual form.
type Permission string

// UnmarshalJSON accepts both numeric and string permissions.
func (p *Permission) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = Permission(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decoding permission: %w", err)
	}
	*p = Permission(n.String())
	return nil
}

// Amount is a cost value. It tolerates numbers and numeric strings.
type Amount float64

// UnmarshalJSON accepts 12.5, "12.5" and null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*a = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("decoding amount %q: %w", s, err)
	}
	*a = Amount(f)
	return nil
}

// String formats the amount with two decimals.
func (a Amount) String() string {
	return fmt.Sprintf("%.2f", float64(a))
}

// Form holds the fields a resident fills in to open a ticket.
// The form tags are the wire names; the validate tags mirror the
// client-side schema.
type Form struct {
	BuildingID        int64  `form:"building_id"`
	Category          string `form:"ticket_category" validate:"required"`
	Name              string `form:"name" validate:"required"`
	UnitNumber        string `form:"unit_number" validate:"required"`
	BuildingStreet    string `form:"buildingStreet"`
	ResidentialStatus string `form:"residential_status"`
	CellPhone         string `form:"cell_phone" validate:"omitempty,phone"`
	ResidentEmail     string `form:"resident_email" validate:"required,email"`
	ResidentEmail2    string `form:"resident_email2" validate:"omitempty,eqfield=ResidentEmail"`
	Description       string `form:"description"`
	ReceiveNote       bool   `form:"receive_note"`
	Terms             bool   `form:"terms" validate:"required"`
}

// ResidentialStatuses lists the choices offered for Form.ResidentialStatus.
var ResidentialStatuses = []string{"Owner", "Renter", "Other"}

// NewForm returns a blank form with the terms box pre-checked.
func NewForm() Form {
	return Form{Terms: true}
}

// Values encodes the form as the fields sent to the create call.
func (f Form) Values() url.Values {
	v := url.Values{}
	v.Set("building_id", strconv.FormatInt(f.BuildingID, 10))
	v.Set("ticket_category", f.Category)
	v.Set("name", f.Name)
	v.Set("unit_number", f.UnitNumber)
	v.Set("buildingStreet", f.BuildingStreet)
	v.Set("residential_status", f.ResidentialStatus)
	v.Set("cell_phone", f.CellPhone)
	v.Set("resident_email", f.ResidentEmail)
	v.Set("resident_email2", f.ResidentEmail2)
	v.Set("description", f.Description)
	v.Set("receive_note", strconv.FormatBool(f.ReceiveNote))
	v.Set("terms", strconv.FormatBool(f.Terms))
	return v
}

// FormFromValues decodes submitted form values. Checkbox fields count as
// set when present with any of "on", "true", "1" or "checked".
func FormFromValues(v url.Values) Form {
	return Form{
		Category:          strings.TrimSpace(v.Get("ticket_category")),
		Name:              strings.TrimSpace(v.Get("name")),
		UnitNumber:        strings.TrimSpace(v.Get("unit_number")),
		BuildingStreet:    strings.TrimSpace(v.Get("buildingStreet")),
		ResidentialStatus: v.Get("residential_status"),
		CellPhone:         strings.TrimSpace(v.Get("cell_phone")),
		ResidentEmail:     strings.TrimSpace(v.Get("resident_email")),
		ResidentEmail2:    strings.TrimSpace(v.Get("resident_email2")),
		Description:       v.Get("description"),
		ReceiveNote:       checked(v.Get("receive_note")),
		Terms:             checked(v.Get("terms")),
	}
}

func checked(s string) bool {
	switch strings.ToLower(s) {
	case "on", "true", "1", "checked":
		return true
	}
	return false
}
