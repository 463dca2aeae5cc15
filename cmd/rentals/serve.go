package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Clownyz/rentals-bot/internal/bot"
	"github.com/Clownyz/rentals-bot/internal/discord"
	"github.com/Clownyz/rentals-bot/internal/notify"
	"github.com/Clownyz/rentals-bot/internal/rental"
	"github.com/Clownyz/rentals-bot/internal/store"
	"github.com/Clownyz/rentals-bot/internal/sweeper"
	"github.com/Clownyz/rentals-bot/internal/web"
)

type serveOptions struct {
	*rootOptions
	Addr      string
	NoDiscord bool
}

func newServeCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &serveOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Discord bot, expiry sweeper and web panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				opts.cfg.Web.Addr = opts.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Addr, "addr", "a", "", "panel listen address (overrides config)")
	cmd.Flags().BoolVar(&opts.NoDiscord, "no-discord", false, "run the sweeper and panel without connecting to Discord")

	return cmd
}

func serve(ctx context.Context, opts *serveOptions) error {
	cfg := opts.cfg
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	database, err := opts.openDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	secret, err := store.GetPanelSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("loading panel secret: %w", err)
	}

	rentals := rental.NewService(database)
	hub := web.NewHub()

	fanout := notify.NewFanout()
	fanout.Add("web", hub)
	if cfg.NATS.URL != "" {
		nc, err := notify.ConnectNATS(cfg.NATS.URL)
		if err != nil {
			return err
		}
		defer nc.Drain()
		fanout.Add("nats", notify.NewNATS(nc, cfg.NATS.Subject))
		slog.Info("publishing events to NATS", "url", cfg.NATS.URL, "subject", cfg.NATS.Subject)
	}

	handler := bot.New(rentals, fanout, bot.Options{
		Prefix:        cfg.Discord.Prefix,
		ProofsChannel: cfg.Discord.ProofsChannel,
		PanelSecret:   secret,
		PanelBaseURL:  cfg.Web.BaseURL,
		PanelTTL:      time.Duration(cfg.Web.TokenTTL),
	})

	if opts.NoDiscord {
		fanout.Add("log", notify.Logger{})
		slog.Warn("discord disabled, notifications are only logged")
	} else {
		chat, err := discord.New(cfg.Discord, handler)
		if err != nil {
			return err
		}
		fanout.Add("discord", chat)
		if err := chat.Open(); err != nil {
			return err
		}
		defer chat.Close()
		slog.Info("connected to discord")
	}

	panel, err := web.NewServer(rentals, hub, secret, cfg.Web.Public)
	if err != nil {
		return fmt.Errorf("setting up web panel: %w", err)
	}
	server := &http.Server{
		Addr:              cfg.Web.Addr,
		Handler:           panel.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		sweeper.New(rentals, fanout, time.Duration(cfg.Sweep.Interval)).Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("panel listening", "addr", cfg.Web.Addr, "public", cfg.Web.Public)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err = <-serveErr:
		slog.Error("panel server failed", "error", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	cancel()
	wg.Wait()

	slog.Info("stopped, closing database")
	return err
}
