// Package main provides the entry point for the biomedical dashboard.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"biodash/internal/app"
	"biodash/internal/auth"
	"biodash/internal/capture"
	"biodash/internal/config"
	"biodash/internal/history"
	"biodash/internal/telemetry"
	"biodash/internal/version"
	"biodash/ui/mainwindow"
	"biodash/ui/prefs"
)

const appID = "org.biodash.dashboard"

func main() {
	var cfgFile string
	root := &cobra.Command{
		Use:     "biodash",
		Short:   "Desktop dashboard for medical images, signals and tables",
		Version: version.String(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfgFile)
		},
		SilenceUsage: true,
	}
	root.Flags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./config.yaml)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfgFile string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	closer := telemetry.InitLogger(cfg.Log.Debug, cfg.Log.File)
	defer closer.Close()
	slog.Info("Starting biodash", "version", version.Version)

	users, err := auth.Load(cfg.UsersFile)
	if err != nil {
		return err
	}

	// The dashboard still opens without history; sessions are then not recorded.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := history.NewStore(ctx, history.StoreConfig{
		Backend:    cfg.History.Backend,
		MongoURI:   cfg.History.Mongo.URI,
		Database:   cfg.History.Mongo.Database,
		Collection: cfg.History.Mongo.Collection,
		SQLitePath: cfg.History.SQLite.Path,
	})
	cancel()
	if err != nil {
		slog.Error("History store unavailable", "backend", cfg.History.Backend, "error", err)
	}

	state := app.NewState(cfg, users, store)
	defer state.Close()

	watcher := app.WatchCredentials(state, cfg.UsersFile, 2*time.Second)
	defer watcher.Stop()

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.Settings().SetTheme(&app.Theme{})

	newCamera := func() *capture.Camera {
		return capture.New(cfg.Camera.Device, cfg.Camera.Interval)
	}
	win := mainwindow.New(fyneApp, state, prefs.Load(), newCamera)
	win.SetMaster()
	win.ShowAndRun()

	slog.Info("Exiting biodash")
	return nil
}
