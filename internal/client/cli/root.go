// Package cli implements contactctl, a command-line client for the contact manager.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/patric-chuzhbe/contactkeeper/internal/client"
	"github.com/patric-chuzhbe/contactkeeper/internal/client/state"
)

const defaultServer = "http://localhost:5000"

// ErrCommandFailed is returned by Execute once the failure has been shown as an alert.
var ErrCommandFailed = errors.New("contactctl: command failed")

var errNotLoggedIn = errors.New("Not logged in, run `contactctl login` first")

// App is the state shared by the commands of one invocation.
type App struct {
	auth     *state.AuthContext
	contacts *state.ContactsContext
	alerts   *state.AlertsContext

	in  io.Reader
	out io.Writer
}

type rootOptions struct {
	server      string
	sessionPath string
}

// Execute runs contactctl with args. Failures are reported through an alert written
// to errOut, and then ErrCommandFailed is returned.
func Execute(ctx context.Context, args []string, in io.Reader, out io.Writer, errOut io.Writer) error {
	alerts := state.NewAlertsContext()
	defer alerts.Close()

	unsubscribe := alerts.Subscribe(alertPrinter(errOut))
	defer unsubscribe()

	root := NewRootCommand(alerts, in, out)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	if err := root.ExecuteContext(ctx); err != nil {
		alerts.SetAlert(err.Error(), state.AlertDanger, 0)
		return ErrCommandFailed
	}

	return nil
}

// alertPrinter renders every alert once, when it first appears.
func alertPrinter(w io.Writer) func([]state.Alert) {
	shown := map[string]bool{}

	return func(alerts []state.Alert) {
		for _, alert := range alerts {
			if shown[alert.ID] {
				continue
			}
			shown[alert.ID] = true
			fmt.Fprintf(w, "[%s] %s\n", alert.Type, alert.Msg)
		}
	}
}

func NewRootCommand(alerts *state.AlertsContext, in io.Reader, out io.Writer) *cobra.Command {
	options := &rootOptions{}
	app := &App{
		alerts: alerts,
		in:     in,
		out:    out,
	}

	root := &cobra.Command{
		Use:           "contactctl",
		Short:         "Manage your contacts from the command line",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.init(options)
		},
	}

	defaultSessionPath, err := DefaultSessionPath()
	if err != nil {
		defaultSessionPath = ""
	}

	root.PersistentFlags().StringVar(&options.server, "server", defaultServer, "contact manager API address")
	root.PersistentFlags().StringVar(&options.sessionPath, "session", defaultSessionPath, "file that keeps the session token")

	root.AddCommand(
		newRegisterCommand(app),
		newLoginCommand(app),
		newLogoutCommand(app),
		newWhoamiCommand(app),
		newListCommand(app),
		newAddCommand(app),
		newUpdateCommand(app),
		newDeleteCommand(app),
	)

	return root
}

func (a *App) init(options *rootOptions) error {
	if options.sessionPath == "" {
		return errors.New("no session file location, pass --session")
	}

	api := client.New(options.server)

	authContext, err := state.NewAuthContext(api, NewFileTokenStore(options.sessionPath))
	if err != nil {
		return err
	}

	a.auth = authContext
	a.contacts = state.NewContactsContext(api)

	return nil
}

// requireSession restores the saved session and fails when it is missing or rejected.
func (a *App) requireSession(ctx context.Context) error {
	if err := a.auth.LoadUser(ctx); err != nil {
		return err
	}

	authenticated := a.auth.State().IsAuthenticated
	if authenticated == nil || !*authenticated {
		return errNotLoggedIn
	}

	return nil
}
