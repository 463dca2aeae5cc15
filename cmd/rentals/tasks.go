package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Clownyz/rentals-bot/internal/auth"
	"github.com/Clownyz/rentals-bot/internal/bot"
	"github.com/Clownyz/rentals-bot/internal/notify"
	"github.com/Clownyz/rentals-bot/internal/rental"
	"github.com/Clownyz/rentals-bot/internal/store"
	"github.com/Clownyz/rentals-bot/internal/sweeper"
)

func newSweepCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Return every expired rental once and exit",
		Long: `Return every expired rental once and exit.

Notifications are written to the log instead of Discord.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := opts.openDatabase()
			if err != nil {
				return err
			}
			defer database.Close()

			s := sweeper.New(rental.NewService(database), notify.Logger{}, time.Duration(opts.cfg.Sweep.Interval))
			returned, err := s.SweepOnce(cmd.Context())
			for _, r := range returned {
				fmt.Fprintf(cmd.OutOrStdout(), "expired: %s (was rented by %s)\n", r.Item.Name, r.PreviousRenter)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d rental(s) returned\n", len(returned))
			return nil
		},
	}
}

func newListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the current listing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := opts.openDatabase()
			if err != nil {
				return err
			}
			defer database.Close()

			listing, err := rental.NewService(database).Listing(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), bot.RenderListing(listing).String())
			fmt.Fprint(cmd.OutOrStdout(), bot.RenderBlacklist(listing.Blacklist).String())
			return nil
		},
	}
}

func newPanelLinkCommand(opts *rootOptions) *cobra.Command {
	var admin bool
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "panel-link <user-id>",
		Short: "Print a signed web panel link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := opts.openDatabase()
			if err != nil {
				return err
			}
			defer database.Close()

			secret, err := store.GetPanelSecret(cmd.Context(), database)
			if err != nil {
				return fmt.Errorf("loading panel secret: %w", err)
			}
			if !cmd.Flags().Changed("ttl") {
				ttl = time.Duration(opts.cfg.Web.TokenTTL)
			}
			token, err := auth.GenerateToken(secret, args[0], admin, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), auth.PanelURL(opts.cfg.Web.BaseURL, token))
			return nil
		},
	}

	cmd.Flags().BoolVar(&admin, "admin", false, "grant access to pending proofs")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "link lifetime")

	return cmd
}
