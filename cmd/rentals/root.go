package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Clownyz/rentals-bot/internal/config"
	"github.com/Clownyz/rentals-bot/internal/db"
)

// rootOptions holds global flags and the configuration they resolve to.
type rootOptions struct {
	ConfigPath string
	DBPath     string
	LogPath    string

	cfg      *config.Config
	closeLog func()
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "rentals",
		Short:         "Discord rental bot for Minecraft sets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.closeLog != nil {
				opts.closeLog()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file")
	cmd.PersistentFlags().StringVarP(&opts.DBPath, "db", "d", "", "SQLite database path (overrides config)")
	cmd.PersistentFlags().StringVarP(&opts.LogPath, "log", "l", "", "log file path (overrides config)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newSweepCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newPanelLinkCommand(opts))

	return cmd
}

// load resolves the configuration (flags over environment over file over
// defaults) and installs the logger.
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("db") {
		cfg.Database = o.DBPath
	}
	if cmd.Flags().Changed("log") {
		cfg.LogFile = o.LogPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	closeLog, err := setupLogger(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.LogFile)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.closeLog = closeLog
	return nil
}

// openDatabase opens the configured database and ensures its schema.
func (o *rootOptions) openDatabase() (*sql.DB, error) {
	database, err := db.Open(o.cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, err
	}
	slog.Info("database ready", "path", o.cfg.Database)
	return database, nil
}
