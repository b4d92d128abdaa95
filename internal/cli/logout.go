package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		Long:  "Removes the stored manager session. The API URL in the config file is kept.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.OutOrStdout())
		},
	}
}

func runLogout(out io.Writer) error {
	store, err := openSession()
	if err != nil {
		return err
	}

	if store.Token() == "" {
		fmt.Fprintln(out, "Not logged in.")
		return nil
	}

	if err := store.Clear(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}

	fmt.Fprintln(out, "✓ Logged out.")
	return nil
}
