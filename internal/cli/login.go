package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jrsteele09/go-dash-session/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd() *cobra.Command {
	var (
		email         string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			if email == "" {
				printf(cmd, "Email: ")
				line, err := readLine(in)
				if err != nil {
					return fmt.Errorf("read email: %w", err)
				}
				email = line
			}

			password, err := readPassword(cmd, in, passwordStdin)
			if err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.manager.Login(ctx, email, password); err != nil {
					return errors.New(describeLogin(err))
				}
				identity, _ := a.manager.Identity()
				printf(cmd, "Signed in as %s\n", displayName(identity.DisplayName, identity.Email))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted if omitted)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin instead of prompting")
	return cmd
}

// readPassword prompts without echo on a terminal and reads a line otherwise.
func readPassword(cmd *cobra.Command, in *bufio.Reader, fromStdin bool) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && !fromStdin && term.IsTerminal(int(f.Fd())) {
		printf(cmd, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		printf(cmd, "\n")
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := readLine(in)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return line, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func describeLogin(err error) string {
	if errors.Is(err, session.ErrSessionBusy) {
		return "Another sign in is already in progress."
	}
	msg := describe(err)
	if strings.HasPrefix(msg, "Your session has ended") {
		return "Sign in failed: wrong email or password."
	}
	return "Sign in failed. " + msg
}

func displayName(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}
