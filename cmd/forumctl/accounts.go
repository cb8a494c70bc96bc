package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pribylovaa/go-blog-forum/internal/service"
)

func (a *app) loginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print an access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var s service.Session
			if err := a.client.Call(cmd.Context(), service.MethodLogin, []any{email, password}, &s); err != nil {
				return err
			}

			return printSession(a.out(cmd), s)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var email, username, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and print an access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var s service.Session
			args := []any{email, username, password}
			if err := a.client.Call(cmd.Context(), service.MethodRegister, args, &s); err != nil {
				return err
			}

			return printSession(a.out(cmd), s)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&username, "username", "", "display name")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	for _, name := range []string{"email", "username", "password"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func printSession(w io.Writer, s service.Session) error {
	_, err := fmt.Fprintf(w, "user:    %s\nexpires: %s\n\nexport FORUM_TOKEN=%s\n",
		s.UserID, s.ExpiresAt.Format("2006-01-02 15:04:05Z07:00"), s.Token)
	return err
}
