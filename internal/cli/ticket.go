package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/evcraddock/ticketboard/internal/client"
	"github.com/evcraddock/ticketboard/internal/session"
)

func newTicketCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ticket <id>",
		Short: "Show ticket details",
		Long:  "Show a ticket as managers see it before replying. Requires 'tb login'.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTicketID(args[0])
			if err != nil {
				return err
			}
			return runTicket(cmd.OutOrStdout(), id)
		},
	}
}

func runTicket(out io.Writer, id int64) error {
	store, err := openSession()
	if err != nil {
		return err
	}

	t, err := newAPIClient().GetTicket(session.Auth(store), id)
	if errors.Is(err, client.ErrAuthExpired) {
		if clearErr := store.Clear(); clearErr != nil {
			return fmt.Errorf("clearing session: %w", clearErr)
		}
		return errSessionExpired
	}
	if err != nil {
		return fmt.Errorf("loading ticket %d: %w", id, err)
	}

	if isJSON() {
		return printJSON(out, t)
	}
	printTicketDetail(out, t)
	return nil
}

func parseTicketID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid ticket ID: %s", s)
	}
	return id, nil
}
