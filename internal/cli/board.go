package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/evcraddock/ticketboard/internal/workflow"
)

func newBoardCmd() *cobra.Command {
	var (
		sort   string
		detail int64
	)

	cmd := &cobra.Command{
		Use:   "board <board-token> <building-id>",
		Short: "Show a building's ticket board",
		Long:  "Show a building's tickets and internal notes, as the board page does. Tickets are sorted by status.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			buildingID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || buildingID <= 0 {
				return fmt.Errorf("invalid building ID: %s", args[1])
			}
			if sort != string(workflow.SortAsc) && sort != string(workflow.SortDesc) {
				return fmt.Errorf("invalid sort %q (want asc or desc)", sort)
			}
			return runBoard(cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], buildingID, workflow.SortDir(sort), detail)
		},
	}

	cmd.Flags().StringVar(&sort, "sort", string(workflow.SortAsc), "status sort direction (asc|desc)")
	cmd.Flags().Int64Var(&detail, "detail", workflow.Collapsed, "ticket ID to show in full")

	return cmd
}

func runBoard(out, errOut io.Writer, boardToken string, buildingID int64, sort workflow.SortDir, detail int64) error {
	board := workflow.NewBoard(newAPIClient(), cliNotifier{w: errOut}, boardToken, buildingID)
	if err := board.SetSort(sort); err != nil {
		if board.LoginRequired() {
			return fmt.Errorf("board token rejected for building %d", buildingID)
		}
		return err
	}
	if detail != workflow.Collapsed {
		board.Expand(detail)
	}

	if isJSON() {
		return printJSON(out, map[string]interface{}{
			"building":       board.Building(),
			"tickets":        board.Tickets(),
			"internal_notes": board.InternalNotes(),
		})
	}

	return printBoard(out, board.Building(), board.Rows(), board.InternalNotes())
}
