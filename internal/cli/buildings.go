package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/ticketboard/internal/session"
)

func newBuildingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buildings <query>",
		Short: "Search buildings",
		Long:  "Search buildings by name, code or address. Use the ID with 'tb submit --building'.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuildings(cmd.OutOrStdout(), strings.Join(args, " "))
		},
	}
}

func runBuildings(out io.Writer, query string) error {
	buildings, err := newAPIClient().SearchBuildings(query)
	if err != nil {
		return fmt.Errorf("searching buildings: %w", err)
	}

	if isJSON() {
		return printJSON(out, buildings)
	}
	return printBuildings(out, buildings)
}

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List ticket categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCategories(cmd.OutOrStdout())
		},
	}
}

func runCategories(out io.Writer) error {
	store, err := openSession()
	if err != nil {
		return err
	}

	cats, err := newAPIClient().GetTicketCategories(session.Auth(store))
	if err != nil {
		return fmt.Errorf("loading categories: %w", err)
	}

	if isJSON() {
		return printJSON(out, cats)
	}
	if len(cats) == 0 {
		fmt.Fprintln(out, "No categories.")
		return nil
	}
	for _, c := range cats {
		fmt.Fprintf(out, "%d\t%s\n", c.ID, c.Name)
	}
	return nil
}
