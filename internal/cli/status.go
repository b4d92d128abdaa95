package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/evcraddock/ticketboard/internal/client"
	"github.com/evcraddock/ticketboard/internal/session"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check connection and session status",
		Long:  "Tests the connection to the ticketing service and checks whether the stored session is still accepted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.OutOrStdout())
		},
	}
}

func runStatus(out io.Writer) error {
	fmt.Fprintf(out, "API:     %s\n", getAPIURL())

	store, err := openSession()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Session: %s\n", store.Path())
	if u := store.User(); u != nil {
		fmt.Fprintf(out, "User:    %s <%s> (permission %s)\n", u.Name, u.Email, u.Permission)
	} else if store.Token() == "" {
		fmt.Fprintln(out, "User:    not signed in")
	}

	_, err = newAPIClient().GetTicketCategories(session.Auth(store))
	var reqErr *client.RequestError
	switch {
	case err == nil && store.Token() != "":
		fmt.Fprintln(out, "Status:  ✓ connected and authenticated")
	case err == nil:
		fmt.Fprintln(out, "Status:  ✓ connected")
	case errors.Is(err, client.ErrAuthExpired):
		fmt.Fprintln(out, "Status:  ✗ session expired")
		fmt.Fprintln(out, "\nRun 'tb login' to sign in again.")
	case errors.As(err, &reqErr):
		fmt.Fprintf(out, "Status:  ✗ unexpected response (%d)\n", reqErr.Status)
	default:
		fmt.Fprintf(out, "Status:  ✗ cannot reach server (%v)\n", err)
	}

	return nil
}
