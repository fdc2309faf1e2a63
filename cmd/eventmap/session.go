package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/FeS1111/TSP/internal/client"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd(e *env) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if username == "" {
				if username, err = prompt(cmd.OutOrStdout(), in, "Username: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = promptSecret(cmd.OutOrStdout(), in, "Password: "); err != nil {
					return err
				}
			}

			s, err := e.api.Login(cmd.Context(), username, password)
			if err != nil {
				if client.IsKind(err, client.KindAuth) {
					return errors.New("invalid username or password")
				}
				return fmt.Errorf("login: %s", client.MessageOf(err))
			}
			name := username
			if s.User != nil && s.User.Username != "" {
				name = s.User.Username
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when empty)")
	return cmd
}

func newRegisterCmd(e *env) *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if username == "" {
				if username, err = prompt(cmd.OutOrStdout(), in, "Username: "); err != nil {
					return err
				}
			}
			if email == "" {
				if email, err = prompt(cmd.OutOrStdout(), in, "Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = promptSecret(cmd.OutOrStdout(), in, "Password: "); err != nil {
					return err
				}
			}

			msg, err := e.api.Register(cmd.Context(), username, email, password)
			if err != nil {
				return fmt.Errorf("register: %s", describe(err))
			}
			if msg == "" {
				msg = "Account created. Run 'eventmap login' to sign in."
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when empty)")
	return cmd
}

func newLogoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Drop the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.api.Logout(cmd.Context()); err != nil {
				// The local session is gone either way.
				e.log.Warn("logout request failed", "main.logout", "error", err)
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: server logout failed: %s\n", client.MessageOf(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "You have been logged out.")
			return nil
		},
	}
}

func prompt(w io.Writer, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads without echo when stdin is a terminal.
func promptSecret(w io.Writer, in *bufio.Reader, label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return prompt(w, in, label)
	}
	fmt.Fprint(w, label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

// describe flattens a server error, including per-field messages.
func describe(err error) string {
	var ae *client.Error
	if !errors.As(err, &ae) || len(ae.Fields) == 0 {
		return client.MessageOf(err)
	}
	fields := make([]string, 0, len(ae.Fields))
	for field := range ae.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(ae.Fields[field], " "))
	}
	return strings.Join(parts, "; ")
}
