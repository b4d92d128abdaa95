package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/ticketboard/internal/client"
	"github.com/evcraddock/ticketboard/internal/ticket"
	"github.com/evcraddock/ticketboard/internal/workflow"
)

var errSessionExpired = errors.New("session expired, run 'tb login' again")

func newReplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reply <ticket-id> [message...]",
		Short: "Send a message to a ticket's resident",
		Long:  "Send a follow-up message to the resident who filed a ticket. Requires 'tb login'. The message may be empty.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTicketID(args[0])
			if err != nil {
				return err
			}
			return runReply(cmd.OutOrStdout(), id, strings.Join(args[1:], " "))
		},
	}
}

func runReply(out io.Writer, id int64, message string) error {
	store, err := openSession()
	if err != nil {
		return err
	}
	if store.Token() == "" {
		return errors.New("not logged in, run 'tb login' first")
	}

	reply := workflow.NewReply(newAPIClient(), store, cliNotifier{w: out}, ticket.Ticket{ID: id}, nil)
	reply.SetMessage(message)

	err = reply.Send()
	if errors.Is(err, client.ErrAuthExpired) {
		return errSessionExpired
	}
	if err != nil {
		return fmt.Errorf("replying to ticket %d: %w", id, err)
	}
	return nil
}
