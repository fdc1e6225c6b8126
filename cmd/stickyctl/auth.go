package main

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"stickyboard/client"
	"stickyboard/localstore"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	authPassword string
	authConfirm  string
)

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in and remember the session token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		resp, err := rt.api.Login(ctx, args[0], authPassword)
		if err != nil {
			return describe(err)
		}
		if err := rt.store.Set(ctx, localstore.KeyToken, resp.Token); err != nil {
			return err
		}
		if err := rt.store.Set(ctx, localstore.KeyEmail, resp.Email); err != nil {
			return err
		}
		// a different account must not inherit the previous board selection
		if err := rt.store.Remove(ctx, keyCurrentBoard); err != nil {
			return err
		}
		rt.log.Debug("logged in", zap.String("email", resp.Email))
		return rt.printer().message("%s as %s", resp.Message, resp.Email)
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <email>",
	Short: "Create an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm := authConfirm
		if confirm == "" {
			confirm = authPassword
		}
		resp, err := rt.api.Register(cmd.Context(), args[0], authPassword, confirm)
		if err != nil {
			return describe(err)
		}
		return rt.printer().message("%s: %s", resp.Message, resp.Email)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the session token and forget it locally",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := rt.requireLogin(); err != nil {
			return err
		}
		err := rt.api.Logout(ctx)
		if err != nil && !client.IsStatus(err, http.StatusUnauthorized) {
			return describe(err)
		}
		for _, key := range []string{localstore.KeyToken, localstore.KeyEmail, keyCurrentBoard, localstore.KeyNotes} {
			if err := rt.store.Remove(ctx, key); err != nil {
				return err
			}
		}
		return rt.printer().message("Logged out")
	},
}

// describe folds validation details into the error text.
func describe(err error) error {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || len(apiErr.Details) == 0 {
		return err
	}
	fields := make([]string, 0, len(apiErr.Details))
	for f := range apiErr.Details {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, fmt.Sprintf("  %s: %s", f, apiErr.Details[f]))
	}
	return fmt.Errorf("%s\n%s", apiErr.Message, strings.Join(lines, "\n"))
}

func init() {
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd)
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVarP(&authPassword, "password", "p", "", "account password")
		_ = c.MarkFlagRequired("password")
	}
	registerCmd.Flags().StringVar(&authConfirm, "confirm", "", "password confirmation (defaults to --password)")
}
