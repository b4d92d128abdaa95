package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd() *cobra.Command {
	var (
		email  string
		apiURL string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as a building manager",
		Long:  "Sign in against the ticketing service and store the session for later commands. The password is read from the terminal, or from stdin when it is not a terminal.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return runLogin(cmd.OutOrStdout(), email, password, apiURL)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "manager email")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "ticketing API URL to save in the config")

	return cmd
}

func runLogin(out io.Writer, email, password, apiURLFlag string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("--email is required")
	}
	if password == "" {
		return errors.New("no password provided")
	}

	if apiURLFlag != "" {
		// Load existing config to preserve other fields
		cfg, err := loadConfig()
		if err != nil {
			cfg = CLIConfig{}
		}
		cfg.APIURL = apiURLFlag
		if err := saveConfig(cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
	}

	resp, err := newAPIClient().Login(email, password)
	if err != nil {
		return fmt.Errorf("signing in: %w", err)
	}

	store, err := openSession()
	if err != nil {
		return err
	}
	if err := store.Set(resp.Token, resp.User); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	name := email
	if resp.User != nil && resp.User.Name != "" {
		name = resp.User.Name
	}
	fmt.Fprintf(out, "✓ Signed in as %s.\n", name)
	return nil
}

// readPassword prompts on the terminal with echo disabled, or reads one line
// from in when it is not a terminal.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
