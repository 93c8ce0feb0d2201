package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/patric-chuzhbe/contactkeeper/internal/client/state"
	"github.com/patric-chuzhbe/contactkeeper/internal/models"
)

func newRegisterCommand(app *App) *cobra.Command {
	var request models.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if request.Password == "" {
				password, err := promptPassword(app.in, app.out)
				if err != nil {
					return err
				}
				request.Password = password
			}

			if err := app.auth.Register(cmd.Context(), request); err != nil {
				return err
			}

			if usr := app.auth.State().User; usr != nil {
				app.alerts.SetAlert("Registered as "+usr.Name, state.AlertSuccess, 0)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&request.Name, "name", "", "your name")
	cmd.Flags().StringVar(&request.Email, "email", "", "your email")
	cmd.Flags().StringVar(&request.Password, "password", "", "password, prompted for when omitted")

	return cmd
}

func newLoginCommand(app *App) *cobra.Command {
	var request models.LoginRequest

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if request.Password == "" {
				password, err := promptPassword(app.in, app.out)
				if err != nil {
					return err
				}
				request.Password = password
			}

			if err := app.auth.Login(cmd.Context(), request); err != nil {
				return err
			}

			if usr := app.auth.State().User; usr != nil {
				app.alerts.SetAlert("Logged in as "+usr.Name, state.AlertSuccess, 0)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&request.Email, "email", "", "your email")
	cmd.Flags().StringVar(&request.Password, "password", "", "password, prompted for when omitted")

	return cmd
}

func newLogoutCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			app.contacts.ClearContacts()

			return app.auth.Logout()
		},
	}
}

func newWhoamiCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.requireSession(cmd.Context()); err != nil {
				return err
			}

			usr := app.auth.State().User
			_, err := fmt.Fprintf(app.out, "%s <%s>\n", usr.Name, usr.Email)

			return err
		},
	}
}

func newListCommand(app *App) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your contacts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.requireSession(cmd.Context()); err != nil {
				return err
			}

			if err := app.contacts.GetContacts(cmd.Context()); err != nil {
				return err
			}
			app.contacts.FilterContacts(filter)

			return printContacts(app.out, app.contacts.State().Visible())
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "show only contacts whose name or email contains this text")

	return cmd
}

func newAddCommand(app *App) *cobra.Command {
	var request models.CreateContactRequest

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a contact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.requireSession(cmd.Context()); err != nil {
				return err
			}

			if err := app.contacts.AddContact(cmd.Context(), request); err != nil {
				return err
			}

			return printContacts(app.out, app.contacts.State().Contacts[:1])
		},
	}

	cmd.Flags().StringVar(&request.Name, "name", "", "contact name")
	cmd.Flags().StringVar(&request.Email, "email", "", "contact email")
	cmd.Flags().StringVar(&request.Phone, "phone", "", "contact phone")
	cmd.Flags().StringVar(&request.Type, "type", "", "personal or professional")

	return cmd
}

func newUpdateCommand(app *App) *cobra.Command {
	var name, email, phone, contactType string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the given fields of a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireSession(cmd.Context()); err != nil {
				return err
			}

			if err := app.contacts.GetContacts(cmd.Context()); err != nil {
				return err
			}

			var request models.UpdateContactRequest
			flags := cmd.Flags()
			if flags.Changed("name") {
				request.Name = &name
			}
			if flags.Changed("email") {
				request.Email = &email
			}
			if flags.Changed("phone") {
				request.Phone = &phone
			}
			if flags.Changed("type") {
				request.Type = &contactType
			}

			if err := app.contacts.UpdateContact(cmd.Context(), args[0], request); err != nil {
				return err
			}

			for _, contact := range app.contacts.State().Contacts {
				if contact.ID == args[0] {
					return printContacts(app.out, []models.Contact{contact})
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&email, "email", "", "new email, empty to clear")
	cmd.Flags().StringVar(&phone, "phone", "", "new phone, empty to clear")
	cmd.Flags().StringVar(&contactType, "type", "", "personal or professional")

	return cmd
}

func newDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireSession(cmd.Context()); err != nil {
				return err
			}

			if err := app.contacts.DeleteContact(cmd.Context(), args[0]); err != nil {
				return err
			}

			app.alerts.SetAlert("Contact removed", state.AlertSuccess, 0)

			return nil
		},
	}
}

func printContacts(w io.Writer, contacts []models.Contact) error {
	table := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(table, "ID\tNAME\tEMAIL\tPHONE\tTYPE")
	for _, contact := range contacts {
		fmt.Fprintf(table, "%s\t%s\t%s\t%s\t%s\n", contact.ID, contact.Name, contact.Email, contact.Phone, contact.Type)
	}

	return table.Flush()
}
