package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"biodash/internal/history"
)

func (e *env) openHistory(ctx context.Context) (history.Store, error) {
	return history.NewStore(ctx, history.StoreConfig{
		Backend:    e.cfg.History.Backend,
		MongoURI:   e.cfg.History.Mongo.URI,
		Database:   e.cfg.History.Mongo.Database,
		Collection: e.cfg.History.Mongo.Collection,
		SQLitePath: e.cfg.History.SQLite.Path,
	})
}

func newHistoryCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List or clear recorded sessions",
	}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List every session, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			store, err := e.openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			sessions, err := store.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(sessions)
			}
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions recorded")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tUSER\tLOGIN\tACTIONS\tPATH")
			for i, s := range sessions {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, s.User,
					s.LoginAt.Local().Format("2006-01-02 15:04:05"), s.ActionSummary(), s.Path)
			}
			return tw.Flush()
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "print sessions as JSON")

	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete history without --yes")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			store, err := e.openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.DeleteAll(ctx)
			if err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d sessions\n", n)
			return nil
		},
	}
	clearCmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")

	cmd.AddCommand(list, clearCmd)
	return cmd
}
