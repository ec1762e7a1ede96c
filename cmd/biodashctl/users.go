package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"biodash/internal/app"
	"biodash/internal/auth"
	"biodash/internal/config"
)

func newLoginCommand(e *env) *cobra.Command {
	var password string
	var record bool
	cmd := &cobra.Command{
		Use:   "login <user>",
		Short: "Check a user's credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := auth.Load(e.cfg.UsersFile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !record {
				if !users.Check(args[0], password) {
					return app.ErrBadCredentials
				}
				fmt.Fprintln(out, "Credentials accepted")
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			store, err := e.openHistory(ctx)
			if err != nil {
				return err
			}
			state := app.NewState(e.cfg, users, store)
			defer state.Close()
			if err := state.Login(ctx, args[0], password); err != nil {
				return err
			}
			sess, _ := state.Session()
			fmt.Fprintf(out, "Credentials accepted, session %s recorded\n", sess.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password to check")
	cmd.Flags().BoolVar(&record, "record", false, "open a session in the history store")
	return cmd
}

func newUsersCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage the credential file",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List known users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := auth.Load(e.cfg.UsersFile)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUSER\tNAME\tEMAIL")
			for _, u := range users.Users() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Name, u.Email)
			}
			return tw.Flush()
		},
	}

	var u auth.User
	add := &cobra.Command{
		Use:   "add <user>",
		Short: "Add a user to the credential file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if u.Password == "" {
				return errors.New("--password is required")
			}
			users, err := auth.Load(e.cfg.UsersFile)
			if err != nil {
				return err
			}
			u.Username = args[0]
			if u.ID == "" {
				u.ID = uuid.NewString()
			}
			if err := users.Add(u); err != nil {
				return err
			}
			if err := users.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s to %s\n", u.Username, e.cfg.UsersFile)
			return nil
		},
	}
	add.Flags().StringVarP(&u.Password, "password", "p", "", "password")
	add.Flags().StringVar(&u.Name, "name", "", "full name")
	add.Flags().StringVar(&u.Email, "email", "", "email address")
	add.Flags().StringVar(&u.Phone, "phone", "", "phone number")
	add.Flags().StringVar(&u.ID, "id", "", "user id (random when empty)")

	cmd.AddCommand(list, add)
	return cmd
}

func newConfigCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration file",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(e.cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Wrote", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(show, initCmd)
	return cmd
}
