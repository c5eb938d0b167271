package main

import (
	"fmt"

	"github.com/guileen/finledger/client"
	"github.com/spf13/cobra"
)

func (a *app) registerCommand() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "register <email>",
		Short: "Create an account; a verification code is e-mailed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := a.password(password, "password: ")
			if err != nil {
				return err
			}
			if err := a.anonymousClient().Register(cmd.Context(), args[0], pw); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "check %s for the verification code, then run finctl verify\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (read from stdin when empty)")
	return cmd
}

func (a *app) verifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <email> <code>",
		Short: "Confirm an e-mail address and log in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.anonymousClient().Verify(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return a.saveSession(s)
		},
	}
}

func (a *app) loginCommand() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Log in and remember the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := a.password(password, "password: ")
			if err != nil {
				return err
			}
			s, err := a.anonymousClient().Login(cmd.Context(), args[0], pw)
			if err != nil {
				return err
			}
			return a.saveSession(s)
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (read from stdin when empty)")
	return cmd
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := &client.Session{}
			if err := s.Clear(a.cfg.SessionPath); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "logged out")
			return nil
		},
	}
}

func (a *app) forgotPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "forgot-password <email>",
		Short: "E-mail a password reset code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.anonymousClient().ForgotPassword(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "a reset code was sent to %s\n", args[0])
			return nil
		},
	}
}

func (a *app) resetPasswordCommand() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "reset-password <email> <code>",
		Short: "Set a new password with a reset code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := a.password(password, "new password: ")
			if err != nil {
				return err
			}
			if err := a.anonymousClient().ResetPassword(cmd.Context(), args[0], args[1], pw); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "password updated, run finctl login")
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "new password (read from stdin when empty)")
	return cmd
}
