package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"barangay-portal/internal/client"
	apperrors "barangay-portal/internal/common/errors"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// app holds the global flags and the pieces commands share.
type app struct {
	baseURL     string
	output      string
	sessionFile string
	timeout     time.Duration

	fs  afero.Fs
	out io.Writer
}

func newApp() *app {
	return &app{fs: afero.NewOsFs(), out: os.Stdout}
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".portalctl-session.json"
	}
	return filepath.Join(home, ".portalctl", "session.json")
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "portalctl",
		Short: "Work with barangay portal service requests",
		Long: `portalctl talks to the barangay portal API.

Residents can submit and track requests; staff can review them, manage
accounts, search and export.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.out)

	baseURL := os.Getenv("PORTAL_URL")
	if baseURL == "" {
		baseURL = client.DefaultBaseURL
	}
	root.PersistentFlags().StringVar(&a.baseURL, "base-url", baseURL, "Portal API base URL")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "table", "Output format: table, json")
	root.PersistentFlags().StringVar(&a.sessionFile, "session-file", defaultSessionFile(), "Where the login session is kept")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 30*time.Second, "Request timeout")

	root.AddCommand(loginCmd(a))
	root.AddCommand(logoutCmd(a))
	root.AddCommand(whoamiCmd(a))
	root.AddCommand(signupCmd(a))
	root.AddCommand(submitCmd(a))
	root.AddCommand(requestsCmd(a))
	root.AddCommand(proposalsCmd(a))
	root.AddCommand(courtCmd(a))
	root.AddCommand(usersCmd(a))
	root.AddCommand(searchCmd(a))
	root.AddCommand(exportCmd(a))
	root.AddCommand(statusesCmd(a))
	return root
}

// client builds an API client and restores the saved session, if any.
func (a *app) client() (*client.Client, error) {
	c := client.New(client.Options{BaseURL: a.baseURL, Timeout: a.timeout, RetryCount: 2})
	s, err := a.loadSession()
	if err != nil {
		return nil, err
	}
	if s != nil {
		c.SetSession(s)
	}
	return c, nil
}

func (a *app) loadSession() (*client.Session, error) {
	data, err := afero.ReadFile(a.fs, a.sessionFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var s client.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", a.sessionFile, err)
	}
	if !s.Valid(time.Now()) {
		return nil, nil
	}
	return &s, nil
}

func (a *app) saveSession(s *client.Session) error {
	if err := a.fs.MkdirAll(filepath.Dir(a.sessionFile), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return afero.WriteFile(a.fs, a.sessionFile, data, 0o600)
}

func (a *app) clearSession() error {
	err := a.fs.Remove(a.sessionFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// describe turns an API error into one line, with field errors appended.
func describe(err error) error {
	stdErr, ok := apperrors.As(err)
	if !ok {
		return err
	}
	msg := stdErr.Message
	for _, field := range sortedKeys(stdErr.Fields) {
		msg += fmt.Sprintf("\n  %s: %s", field, stdErr.Fields[field])
	}
	return errors.New(msg)
}
