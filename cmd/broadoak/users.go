package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"broadoak/internal/server"
)

func newUsersCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect or extend the user directory",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := root.load()
			if err != nil {
				return err
			}
			backend, err := server.OpenBackend(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			defer backend.Close()

			users, err := backend.Shifts.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			for _, u := range users {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", u.ID, u.Name)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Add a user",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := root.load()
			if err != nil {
				return err
			}
			backend, err := server.OpenBackend(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			defer backend.Close()

			u, err := backend.Shifts.CreateUser(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", u.ID, u.Name)
			return nil
		},
	})
	return cmd
}
