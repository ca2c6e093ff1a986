package main

import (
	"fmt"
	"os"

	"barangay-portal/internal/models"

	"github.com/spf13/cobra"
)

func loginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("PORTAL_PASSWORD")
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			s, err := c.Login(cmd.Context(), email, password)
			if err != nil {
				return describe(err)
			}
			if err := a.saveSession(s); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in as %s %s (%s)\n", s.User.FirstName, s.User.LastName, s.User.Type)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (defaults to $PORTAL_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			if c.Session() != nil {
				if err := c.Logout(cmd.Context()); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", describe(err))
				}
			}
			if err := a.clearSession(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "whoami",
		Aliases: []string{"me"},
		Short:   "Show the logged-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			u, err := c.Me(cmd.Context())
			if err != nil {
				return describe(err)
			}
			return outputResult(a.out, a.output, u, userTable([]models.User{*u}))
		},
	}
}

func signupCmd(a *app) *cobra.Command {
	var in models.SignupRequest
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a resident account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Password == "" {
				in.Password = os.Getenv("PORTAL_PASSWORD")
			}
			if in.ConfirmPassword == "" {
				in.ConfirmPassword = in.Password
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			u, err := c.Signup(cmd.Context(), in)
			if err != nil {
				return describe(err)
			}
			return outputResult(a.out, a.output, u, userTable([]models.User{*u}))
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.FirstName, "first-name", "", "First name")
	f.StringVar(&in.LastName, "last-name", "", "Last name")
	f.StringVarP(&in.Email, "email", "e", "", "Email")
	f.StringVar(&in.Phone, "phone", "", "Phone number")
	f.StringVar(&in.Address, "address", "", "Home address")
	f.StringVarP(&in.Password, "password", "p", "", "Password (defaults to $PORTAL_PASSWORD)")
	f.StringVar(&in.ConfirmPassword, "confirm-password", "", "Password confirmation (defaults to --password)")
	return cmd
}

func usersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every account (staff only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			users, err := c.ListUsers(cmd.Context())
			if err != nil {
				return describe(err)
			}
			return outputResult(a.out, a.output, users, userTable(users))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-type <user-id> <resident|admin|super_admin>",
		Short: "Change an account's role (super admin only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, ok := models.ParseUserType(args[1])
			if !ok {
				return fmt.Errorf("unknown user type %q", args[1])
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			u, err := c.UpdateUserType(cmd.Context(), args[0], t)
			if err != nil {
				return describe(err)
			}
			return outputResult(a.out, a.output, u, userTable([]models.User{*u}))
		},
	})
	return cmd
}
