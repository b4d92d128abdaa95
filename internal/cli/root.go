// Package cli defines the cobra command tree for ticketboard.
package cli

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/ticketboard/internal/client"
	"github.com/evcraddock/ticketboard/internal/config"
	"github.com/evcraddock/ticketboard/internal/db"
	"github.com/evcraddock/ticketboard/internal/logging"
	"github.com/evcraddock/ticketboard/internal/session"
)

var (
	flagFormat  string
	flagDB      string
	flagVerbose bool
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tb",
		Short:         "Building maintenance tickets",
		Long:          "File maintenance tickets for a building, follow its board, and reply to residents. Serves the web UI or talks to the ticketing service from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logging.Terminal(cmd.ErrOrStderr(), flagVerbose))
		},
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log requests to stderr")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path for serve (default: ~/.ticketboard/ticketboard.db)")

	root.AddCommand(
		newServeCmd(),
		newBoardCmd(),
		newBuildingsCmd(),
		newCategoriesCmd(),
		newTicketCmd(),
		newSubmitCmd(),
		newReplyCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

// openDB opens the SQLite database using the --db flag, then the
// configured path, then the default path.
func openDB(configured string) (*sql.DB, error) {
	path := flagDB
	if path == "" {
		path = configured
	}
	if path == "" {
		var err error
		path, err = db.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return db.Open(path)
}

// newAPIClient creates an HTTP client for the ticketing service.
func newAPIClient() *client.Client {
	return client.New(getAPIURL(), config.DefaultAPITimeout)
}

// openSession loads the CLI session file.
func openSession() (*session.FileStore, error) {
	path, err := sessionPath()
	if err != nil {
		return nil, err
	}
	return session.OpenFile(path)
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}

// cliNotifier prints view model toasts.
type cliNotifier struct {
	w io.Writer
}

func (n cliNotifier) Info(msg string) {
	fmt.Fprintln(n.w, msg)
}

func (n cliNotifier) Warning(msg string) {
	fmt.Fprintf(n.w, "warning: %s\n", msg)
}
