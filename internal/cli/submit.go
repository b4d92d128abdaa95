package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/evcraddock/ticketboard/internal/client"
	"github.com/evcraddock/ticketboard/internal/session"
	"github.com/evcraddock/ticketboard/internal/ticket"
	"github.com/evcraddock/ticketboard/internal/workflow"
)

// submitOptions are the flags of the submit command.
type submitOptions struct {
	buildingID  int64
	acknowledge bool
	anonymous   bool
	attachments []string
	form        ticket.Form
}

func newSubmitCmd() *cobra.Command {
	opts := submitOptions{form: ticket.NewForm()}
	var acceptTerms bool

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "File a maintenance ticket",
		Long: `File a maintenance ticket against a building.

The building's notices are printed first. If there are any, the ticket is
only filed with --acknowledge, confirming the issue is not already covered.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.buildingID <= 0 {
				return errors.New("--building is required")
			}
			if len(opts.attachments) > 2 {
				return errors.New("at most two attachments are allowed")
			}
			opts.form.Terms = acceptTerms
			return runSubmit(cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.Int64Var(&opts.buildingID, "building", 0, "building ID (see 'tb buildings')")
	f.BoolVar(&opts.acknowledge, "acknowledge", false, "confirm the building notices were reviewed")
	f.BoolVar(&opts.anonymous, "anonymous", false, "file without the stored session")
	f.StringSliceVar(&opts.attachments, "attach", nil, "file to attach (up to two)")
	f.StringVar(&opts.form.Category, "category", "", "category ID (see 'tb categories')")
	f.StringVar(&opts.form.Name, "name", "", "resident name")
	f.StringVar(&opts.form.UnitNumber, "unit", "", "unit number")
	f.StringVar(&opts.form.BuildingStreet, "street", "", "building street")
	f.StringVar(&opts.form.ResidentialStatus, "residential-status", "", "Owner, Renter or Other")
	f.StringVar(&opts.form.CellPhone, "phone", "", "cell phone")
	f.StringVar(&opts.form.ResidentEmail, "email", "", "resident email")
	f.StringVar(&opts.form.ResidentEmail2, "confirm-email", "", "resident email again")
	f.StringVar(&opts.form.Description, "description", "", "what needs fixing")
	f.BoolVar(&opts.form.ReceiveNote, "receive-note", false, "email the resident when the ticket is updated")
	f.BoolVar(&acceptTerms, "accept-terms", false, "accept the terms of service")

	return cmd
}

func runSubmit(out io.Writer, opts submitOptions) error {
	var store session.Store = session.NewMemory(session.Record{})
	if !opts.anonymous {
		fs, err := openSession()
		if err != nil {
			return err
		}
		store = fs
	}

	n := cliNotifier{w: out}
	sub := workflow.NewSubmission(newAPIClient(), store, n)

	if err := sub.SelectBuilding(ticket.Building{ID: opts.buildingID}); err != nil {
		return fmt.Errorf("selecting building: %w", err)
	}
	if !isJSON() {
		printNotices(out, sub.Notices())
	}
	if len(sub.Notices()) > 0 && !opts.acknowledge {
		return fmt.Errorf("building %d has %d notices, review them and pass --acknowledge", opts.buildingID, len(sub.Notices()))
	}
	if err := sub.Continue(); err != nil {
		return err
	}

	for i, path := range opts.attachments {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening attachment: %w", err)
		}
		defer closeFile(file)
		if err := sub.Attach(i+1, &client.Attachment{Name: filepath.Base(path), Content: file}); err != nil {
			return err
		}
	}

	created, err := sub.Submit(opts.form)
	var verrs workflow.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		fields := make([]string, 0, len(verrs))
		for field := range verrs {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			fmt.Fprintf(out, "  %s: %s\n", field, verrs[field])
		}
		return errors.New("ticket not filed, fix the fields above")
	case errors.Is(err, client.ErrAuthExpired):
		return errSessionExpired
	case err != nil:
		return fmt.Errorf("filing ticket: %w", err)
	}

	if isJSON() {
		return printJSON(out, created)
	}
	fmt.Fprintf(out, "✓ Ticket %s filed.\n", created.Code)
	return nil
}

func closeFile(f *os.File) {
	if err := f.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing %s: %v\n", f.Name(), err)
	}
}
