package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/evcraddock/ticketboard/internal/ticket"
	"github.com/evcraddock/ticketboard/internal/workflow"
)

// Status colors use ANSI 256 codes.
var statusStyles = map[ticket.Color]lipgloss.Style{
	ticket.ColorGreen:  lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
	ticket.ColorYellow: lipgloss.NewStyle().Foreground(lipgloss.Color("178")),
	ticket.ColorRed:    lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
}

var headingStyle = lipgloss.NewStyle().Bold(true)

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatStatus renders a status name behind its colored indicator.
func formatStatus(name string, c ticket.Color) string {
	return statusStyles[c].Render("●") + " " + name
}

// printBoard prints the building, its tickets and internal notes.
func printBoard(w io.Writer, b ticket.Building, rows []workflow.Row, notes []ticket.InternalNote) error {
	fmt.Fprintln(w, headingStyle.Render(b.Name))
	if b.Address != "" {
		fmt.Fprintf(w, "%s, %s %s %s\n", b.Address, b.City, b.State, b.Zip)
	}
	fmt.Fprintln(w)

	if len(rows) == 0 {
		fmt.Fprintln(w, "No tickets.")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		// Status goes last: its color codes vary in length and tabwriter
		// counts them as cell width.
		if _, err := fmt.Fprintln(tw, "ID\tCODE\tCATEGORY\tUNIT\tRESIDENT\tCREATED\tSTATUS"); err != nil {
			return fmt.Errorf("writing table header: %w", err)
		}
		for _, r := range rows {
			t := r.Ticket
			if _, err := fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
				t.ID, t.Code, t.CategoryName, t.UnitNumber, truncate(t.ResidentName, 24),
				t.CreateDate, formatStatus(t.StatusName, r.Color)); err != nil {
				return fmt.Errorf("writing table row: %w", err)
			}
		}
		if err := tw.Flush(); err != nil {
			return fmt.Errorf("flushing table: %w", err)
		}

		for _, r := range rows {
			if r.Expanded {
				fmt.Fprintln(w)
				printTicketDetail(w, &r.Ticket)
			}
		}
	}

	if len(notes) > 0 {
		fmt.Fprintf(w, "\n%s\n", headingStyle.Render("Internal notes"))
		for _, n := range notes {
			fmt.Fprintf(w, "[%s] %s  cost %s\n  %s\n", n.CreateDate, n.TicketCode, n.Cost, n.Description.PlainText())
		}
	}

	fmt.Fprintf(w, "\nTotal: %d tickets\n", len(rows))
	return nil
}

// printTicketDetail prints everything known about a ticket.
func printTicketDetail(w io.Writer, t *ticket.Ticket) {
	fmt.Fprintf(w, "Ticket #%d (%s)\n", t.ID, t.Code)
	fmt.Fprintf(w, "  Status:    %s\n", formatStatus(t.StatusName, t.Color()))
	if t.CategoryName != "" {
		fmt.Fprintf(w, "  Category:  %s\n", t.CategoryName)
	}
	fmt.Fprintf(w, "  Resident:  %s\n", t.ResidentName)
	fmt.Fprintf(w, "  Unit:      %s\n", t.UnitNumber)
	if t.ResidentialStatus != "" {
		fmt.Fprintf(w, "  Resides:   %s\n", t.ResidentialStatus)
	}
	if t.ResidentEmail != "" {
		fmt.Fprintf(w, "  Email:     %s\n", t.ResidentEmail)
	}
	if t.CellPhone != "" {
		fmt.Fprintf(w, "  Phone:     %s\n", t.CellPhone)
	}
	if t.CreateDate != "" {
		fmt.Fprintf(w, "  Created:   %s\n", t.CreateDate)
	}
	if !t.Description.IsEmpty() {
		fmt.Fprintf(w, "  %s\n", t.Description.PlainText())
	}
	for _, a := range t.Attachments() {
		fmt.Fprintf(w, "  Attachment: %s <%s>\n", a.Name, a.URL)
	}
}

// printBuildings prints building search results as a table.
func printBuildings(w io.Writer, buildings []ticket.Building) error {
	if len(buildings) == 0 {
		fmt.Fprintln(w, "No buildings found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tCODE\tNAME\tADDRESS"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, b := range buildings {
		addr := b.Address
		if b.City != "" {
			addr += ", " + b.City
		}
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", b.ID, b.Code, truncate(b.Name, 32), truncate(addr, 40)); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	return tw.Flush()
}

// printNotices prints a building's notices.
func printNotices(w io.Writer, notices []ticket.Notice) {
	if len(notices) == 0 {
		fmt.Fprintln(w, "No notices for this building.")
		return
	}
	fmt.Fprintln(w, headingStyle.Render("Building notices"))
	for _, n := range notices {
		fmt.Fprintf(w, "[%s] %s\n", n.CreateDate, n.Description.PlainText())
	}
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
