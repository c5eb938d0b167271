package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/guileen/finledger/client"
	"github.com/guileen/finledger/config"
	"github.com/guileen/finledger/logger"
	"github.com/spf13/cobra"
)

// app carries what every command needs: configuration and the terminal.
type app struct {
	cfg config.ClientConfig
	in  *bufio.Reader
	out io.Writer
}

func newRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{
		cfg: config.LoadClientConfig(),
		in:  bufio.NewReader(in),
		out: out,
	}

	root := &cobra.Command{
		Use:           "finctl",
		Short:         "Manage assets, debts, income and expenses on a finledger server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			lc := logger.LoadConfig()
			if os.Getenv("LOG_LEVEL") == "" {
				lc.Level = slog.LevelWarn
			}
			lc.Format = "text"
			lc.Writer = errOut
			logger.Configure(lc)
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.ServerURL, "server", a.cfg.ServerURL, "finledger server URL")
	flags.StringVar(&a.cfg.SessionPath, "session", a.cfg.SessionPath, "session file")

	root.AddCommand(
		a.registerCommand(),
		a.verifyCommand(),
		a.loginCommand(),
		a.logoutCommand(),
		a.forgotPasswordCommand(),
		a.resetPasswordCommand(),
		a.addCommand(),
		a.listCommand(),
		a.schemaCommand(),
	)
	return root
}

// anonymousClient talks to the configured server without a session.
func (a *app) anonymousClient() *client.Client {
	return client.New(a.cfg.ServerURL, client.WithTimeout(a.cfg.Timeout))
}

// sessionClient talks to the server the saved session belongs to.
func (a *app) sessionClient() (*client.Client, error) {
	s, err := client.LoadSession(a.cfg.SessionPath)
	if err != nil {
		return nil, fmt.Errorf("%w (run finctl login first)", err)
	}
	server := a.cfg.ServerURL
	if s.Server != "" {
		server = s.Server
	}
	return client.New(server, client.WithTimeout(a.cfg.Timeout), client.WithSession(s)), nil
}

func (a *app) saveSession(s *client.Session) error {
	if err := s.Save(a.cfg.SessionPath); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "logged in as %s\n", s.Username)
	return nil
}

// password returns the flag value, or reads one line from the input when the
// flag is empty.
func (a *app) password(flagValue, prompt string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(a.out, prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
