package main

import (
	"io"

	"github.com/spf13/cobra"

	"biodash/internal/config"
	"biodash/internal/results"
	"biodash/internal/telemetry"
	"biodash/internal/version"
)

// env is shared by every subcommand once the root has loaded config.
type env struct {
	cfgFile string
	cfg     *config.Config
	closer  io.Closer
}

func (e *env) results() *results.Writer {
	return results.NewWriter(e.cfg.ResultsDir)
}

// NewRootCommand creates the root command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	e := &env{}
	rootCmd := &cobra.Command{
		Use:     "biodashctl",
		Short:   "Command-line access to the biomedical dashboard",
		Long:    `biodashctl loads volumes, images, signals and tables without the desktop UI and manages the session history.`,
		Version: version.String(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(e.cfgFile)
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.closer = telemetry.InitCLILogger(cfg.Log.Debug, cfg.Log.File)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if e.closer != nil {
				return e.closer.Close()
			}
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&e.cfgFile, "config", "c", "", "config file (default ./config.yaml)")
	rootCmd.AddCommand(newHistoryCommand(e))
	rootCmd.AddCommand(newVolumeCommand(e))
	rootCmd.AddCommand(newImageCommand(e))
	rootCmd.AddCommand(newSignalCommand(e))
	rootCmd.AddCommand(newTableCommand(e))
	rootCmd.AddCommand(newLoginCommand(e))
	rootCmd.AddCommand(newUsersCommand(e))
	rootCmd.AddCommand(newConfigCommand(e))
	return rootCmd
}
