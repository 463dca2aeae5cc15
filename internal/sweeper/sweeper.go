// Package sweeper periodically returns rentals whose time is up.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Clownyz/rentals-bot/internal/metrics"
	"github.com/Clownyz/rentals-bot/internal/model"
	"github.com/Clownyz/rentals-bot/internal/notify"
	"github.com/Clownyz/rentals-bot/internal/rental"
)

// ErrSweepInProgress is returned by SweepOnce when another sweep is running.
var ErrSweepInProgress = errors.New("sweep already in progress")

// Expirer is the part of rental.Service the sweeper drives.
type Expirer interface {
	Now() time.Time
	ExpireDue(ctx context.Context, now time.Time) ([]rental.Returned, error)
}

// Sweeper returns expired rentals on a fixed interval. At most one sweep
// runs at a time.
type Sweeper struct {
	rentals  Expirer
	notifier notify.Notifier
	interval time.Duration
	running  atomic.Bool
}

// New returns a Sweeper that runs every interval.
func New(rentals Expirer, notifier notify.Notifier, interval time.Duration) *Sweeper {
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Sweeper{rentals: rentals, notifier: notifier, interval: interval}
}

// Run sweeps once immediately and then on every tick until ctx is done.
// Ticks missed while a sweep runs are dropped.
func (s *Sweeper) Run(ctx context.Context) {
	slog.Info("sweeper started", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.SweepOnce(ctx); err != nil && !errors.Is(err, ErrSweepInProgress) {
			slog.Error("sweep failed", "error", err)
		}

		select {
		case <-ctx.Done():
			slog.Info("sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

// SweepOnce returns every rental that expired before now and notifies the
// previous renters and the log channel. Notification failures are logged and
// do not affect the result. It returns ErrSweepInProgress without doing
// anything if another sweep is running.
func (s *Sweeper) SweepOnce(ctx context.Context) ([]rental.Returned, error) {
	if !s.running.CompareAndSwap(false, true) {
		metrics.SweepsTotal.WithLabelValues("skipped").Inc()
		slog.Warn("sweep skipped, previous sweep still running")
		return nil, ErrSweepInProgress
	}
	defer s.running.Store(false)

	start := time.Now()
	defer func() { metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	now := s.rentals.Now()
	returned, err := s.rentals.ExpireDue(ctx, now)

	for _, r := range returned {
		metrics.ItemsExpired.Inc()
		slog.Info("rental expired", "item", r.Item.Name, "user", r.PreviousRenter)
		s.notifyExpired(ctx, r, now)
	}

	if err != nil {
		metrics.SweepsTotal.WithLabelValues("failed").Inc()
		return returned, fmt.Errorf("expiring rentals: %w", err)
	}
	metrics.SweepsTotal.WithLabelValues("ok").Inc()
	return returned, nil
}

func (s *Sweeper) notifyExpired(ctx context.Context, r rental.Returned, now time.Time) {
	name := r.Item.Name
	notify.Send(ctx, s.notifier, notify.Message{
		Target:   notify.ToUser(r.PreviousRenter),
		Kind:     model.EventItemExpired,
		Text:     fmt.Sprintf("Your rental **%s** has expired and was returned.", name),
		ItemName: name,
		UserID:   r.PreviousRenter,
		Time:     now,
	})
	notify.Send(ctx, s.notifier, notify.Message{
		Target:   notify.ToLog(),
		Kind:     model.EventItemExpired,
		Text:     fmt.Sprintf("EXPIRED: %s returned from %s", name, notify.Mention(r.PreviousRenter)),
		ItemName: name,
		UserID:   r.PreviousRenter,
		Time:     now,
	})
}
