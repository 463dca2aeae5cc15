package rental

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/Clownyz/rentals-bot/internal/model"
	"github.com/Clownyz/rentals-bot/internal/store"
)

// Service applies lifecycle decisions to the store. Every read-modify-write
// runs under one mutex and one transaction, so the compound rental fields and
// the matching history event change together or not at all.
type Service struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock used for rent and expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService returns a Service backed by db.
func NewService(db *sql.DB, opts ...Option) *Service {
	s := &Service{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.now()
}

// Returned describes an item that went back to available.
type Returned struct {
	Item           model.Item
	PreviousRenter string
	WasPaid        bool
	ExpiredAt      *time.Time
}

// withTx runs fn in a transaction under the service lock. Errors returned by
// fn pass through unchanged; begin and commit failures become
// PersistenceErrors.
func (s *Service) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence(op, fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return persistence(op, fmt.Errorf("committing: %w", err))
	}
	return nil
}

// AddItem creates an item or replaces the existing one with the same name.
func (s *Service) AddItem(ctx context.Context, actorID, name string, price int64, currency string) (model.Item, error) {
	item, err := AddItem(name, price, currency)
	if err != nil {
		return model.Item{}, err
	}

	err = s.withTx(ctx, "add item", func(tx *sql.Tx) error {
		if err := store.UpsertItem(ctx, tx, &item); err != nil {
			return persistence("add item", err)
		}
		return record(ctx, tx, "add item", &model.Event{
			Kind:     model.EventItemAdded,
			ItemName: item.Name,
			ActorID:  actorID,
			Detail:   strconv.FormatInt(item.Price, 10) + " " + item.Currency,
		})
	})
	if err != nil {
		return model.Item{}, err
	}

	slog.Info("item added", "item", item.Name, "price", item.Price, "currency", item.Currency, "actor", actorID)
	return item, nil
}

// RentItem assigns the named item to userID.
func (s *Service) RentItem(ctx context.Context, actorID, name, userID, durationSpec string) (model.Item, error) {
	name = NormalizeName(name)
	var rented model.Item

	err := s.withTx(ctx, "rent item", func(tx *sql.Tx) error {
		blacklisted, err := store.IsBlacklisted(ctx, tx, userID)
		if err != nil {
			return persistence("rent item", err)
		}
		current, err := store.GetItem(ctx, tx, name)
		if err != nil {
			return persistence("rent item", err)
		}

		rented, err = RentItem(current, userID, durationSpec, s.now(), func(string) bool { return blacklisted })
		if err != nil {
			return err
		}

		if err := store.UpsertItem(ctx, tx, &rented); err != nil {
			return persistence("rent item", err)
		}
		d, _ := ParseDuration(durationSpec)
		return record(ctx, tx, "rent item", &model.Event{
			Kind:     model.EventItemRented,
			ItemName: rented.Name,
			UserID:   userID,
			ActorID:  actorID,
			Detail:   FormatDuration(d),
		})
	})
	if err != nil {
		return model.Item{}, err
	}

	slog.Info("item rented", "item", rented.Name, "user", userID, "expires_at", rented.ExpiresAt, "actor", actorID)
	return rented, nil
}

// MarkPaid flags the named item's current rental as paid.
func (s *Service) MarkPaid(ctx context.Context, actorID, name string) (model.Item, error) {
	name = NormalizeName(name)
	var paid model.Item

	err := s.withTx(ctx, "mark paid", func(tx *sql.Tx) error {
		var err error
		paid, err = s.markPaidTx(ctx, tx, actorID, name, "")
		return err
	})
	if err != nil {
		return model.Item{}, err
	}

	slog.Info("item marked paid", "item", paid.Name, "user", paid.RentedBy, "actor", actorID)
	return paid, nil
}

func (s *Service) markPaidTx(ctx context.Context, tx *sql.Tx, actorID, name, detail string) (model.Item, error) {
	current, err := store.GetItem(ctx, tx, name)
	if err != nil {
		return model.Item{}, persistence("mark paid", err)
	}
	paid, err := MarkPaid(current)
	if err != nil {
		return model.Item{}, err
	}
	if current.Paid {
		return paid, nil
	}

	if err := store.UpsertItem(ctx, tx, &paid); err != nil {
		return model.Item{}, persistence("mark paid", err)
	}
	err = record(ctx, tx, "mark paid", &model.Event{
		Kind:     model.EventItemPaid,
		ItemName: paid.Name,
		UserID:   paid.RentedBy,
		ActorID:  actorID,
		Detail:   detail,
	})
	return paid, err
}

// ReturnItem makes the named item available again. Returning an available
// item succeeds without recording anything.
func (s *Service) ReturnItem(ctx context.Context, actorID, name string) (Returned, error) {
	name = NormalizeName(name)
	var ret Returned

	err := s.withTx(ctx, "return item", func(tx *sql.Tx) error {
		current, err := store.GetItem(ctx, tx, name)
		if err != nil {
			return persistence("return item", err)
		}
		if current == nil {
			return ErrNotFound
		}

		ret = Returned{
			Item:           ReturnItem(*current),
			PreviousRenter: current.RentedBy,
			WasPaid:        current.Paid,
			ExpiredAt:      current.ExpiresAt,
		}
		if !current.Rented() {
			return nil
		}

		if err := store.UpsertItem(ctx, tx, &ret.Item); err != nil {
			return persistence("return item", err)
		}
		return record(ctx, tx, "return item", &model.Event{
			Kind:     model.EventItemReturned,
			ItemName: name,
			UserID:   current.RentedBy,
			ActorID:  actorID,
		})
	})
	if err != nil {
		return Returned{}, err
	}

	if ret.PreviousRenter != "" {
		slog.Info("item returned", "item", name, "user", ret.PreviousRenter, "actor", actorID)
	}
	return ret, nil
}

// DeleteItem permanently removes the named item. Its history is kept.
func (s *Service) DeleteItem(ctx context.Context, actorID, name string) error {
	name = NormalizeName(name)

	err := s.withTx(ctx, "delete item", func(tx *sql.Tx) error {
		removed, err := store.DeleteItem(ctx, tx, name)
		if err != nil {
			return persistence("delete item", err)
		}
		if !removed {
			return ErrNotFound
		}
		return record(ctx, tx, "delete item", &model.Event{
			Kind:     model.EventItemDeleted,
			ItemName: name,
			ActorID:  actorID,
		})
	})
	if err != nil {
		return err
	}

	slog.Info("item deleted", "item", name, "actor", actorID)
	return nil
}

// GetItem returns the named item.
func (s *Service) GetItem(ctx context.Context, name string) (model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := store.GetItem(ctx, s.db, NormalizeName(name))
	if err != nil {
		return model.Item{}, persistence("get item", err)
	}
	if item == nil {
		return model.Item{}, ErrNotFound
	}
	return *item, nil
}

// ListItems returns all items in insertion order.
func (s *Service) ListItems(ctx context.Context) ([]model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := store.ListItems(ctx, s.db)
	if err != nil {
		return nil, persistence("list items", err)
	}
	return items, nil
}

// Blacklist bars userID from new rentals. Existing rentals are untouched.
func (s *Service) Blacklist(ctx context.Context, actorID, userID, reason string) error {
	err := s.withTx(ctx, "blacklist user", func(tx *sql.Tx) error {
		if err := store.SetBlacklist(ctx, tx, userID, reason); err != nil {
			return persistence("blacklist user", err)
		}
		return record(ctx, tx, "blacklist user", &model.Event{
			Kind:    model.EventUserBlacklisted,
			UserID:  userID,
			ActorID: actorID,
			Detail:  reason,
		})
	})
	if err != nil {
		return err
	}

	slog.Info("user blacklisted", "user", userID, "reason", reason, "actor", actorID)
	return nil
}

// Unblacklist lifts the ban on userID. It reports whether the user was listed.
func (s *Service) Unblacklist(ctx context.Context, actorID, userID string) (bool, error) {
	var removed bool

	err := s.withTx(ctx, "unblacklist user", func(tx *sql.Tx) error {
		var err error
		removed, err = store.RemoveBlacklist(ctx, tx, userID)
		if err != nil {
			return persistence("unblacklist user", err)
		}
		if !removed {
			return nil
		}
		return record(ctx, tx, "unblacklist user", &model.Event{
			Kind:    model.EventUserUnblacklisted,
			UserID:  userID,
			ActorID: actorID,
		})
	})
	if err != nil {
		return false, err
	}

	if removed {
		slog.Info("user unblacklisted", "user", userID, "actor", actorID)
	}
	return removed, nil
}

// IsBlacklisted reports whether userID is barred from new rentals.
func (s *Service) IsBlacklisted(ctx context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	listed, err := store.IsBlacklisted(ctx, s.db, userID)
	if err != nil {
		return false, persistence("check blacklist", err)
	}
	return listed, nil
}

// ListBlacklist returns all blacklist entries.
func (s *Service) ListBlacklist(ctx context.Context) ([]model.BlacklistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := store.ListBlacklist(ctx, s.db)
	if err != nil {
		return nil, persistence("list blacklist", err)
	}
	return entries, nil
}

// History returns the named item's events, newest first.
func (s *Service) History(ctx context.Context, name string) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := store.GetItemHistory(ctx, s.db, NormalizeName(name))
	if err != nil {
		return nil, persistence("item history", err)
	}
	return events, nil
}

// Events returns the most recent events across all items.
func (s *Service) Events(ctx context.Context, limit int) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := store.ListEvents(ctx, s.db, limit)
	if err != nil {
		return nil, persistence("list events", err)
	}
	return events, nil
}

// ListExpired returns the items whose expiry lies strictly before now.
func (s *Service) ListExpired(ctx context.Context, now time.Time) ([]model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := store.ListExpiredItems(ctx, s.db, now)
	if err != nil {
		return nil, persistence("list expired items", err)
	}
	return items, nil
}

// ExpireItem returns the named item if it is still expired at now. The
// boolean reports whether anything changed; an item that was returned or
// re-rented in the meantime is left alone.
func (s *Service) ExpireItem(ctx context.Context, name string, now time.Time) (Returned, bool, error) {
	var ret Returned
	var expired bool

	err := s.withTx(ctx, "expire item", func(tx *sql.Tx) error {
		current, err := store.GetItem(ctx, tx, name)
		if err != nil {
			return persistence("expire item", err)
		}
		if current == nil {
			return nil
		}

		var returned model.Item
		returned, expired = Expire(*current, now)
		if !expired {
			return nil
		}
		ret = Returned{
			Item:           returned,
			PreviousRenter: current.RentedBy,
			WasPaid:        current.Paid,
			ExpiredAt:      current.ExpiresAt,
		}

		if err := store.UpsertItem(ctx, tx, &returned); err != nil {
			return persistence("expire item", err)
		}
		return record(ctx, tx, "expire item", &model.Event{
			Kind:     model.EventItemExpired,
			ItemName: name,
			UserID:   current.RentedBy,
		})
	})
	if err != nil {
		return Returned{}, false, err
	}
	return ret, expired, nil
}

// ExpireDue returns every item whose expiry lies strictly before now. Each
// item is expired in its own transaction; a failure on one item is collected
// and the rest are still processed.
func (s *Service) ExpireDue(ctx context.Context, now time.Time) ([]Returned, error) {
	due, err := s.ListExpired(ctx, now)
	if err != nil {
		return nil, err
	}

	var returned []Returned
	var errs []error
	for _, item := range due {
		ret, ok, err := s.ExpireItem(ctx, item.Name, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("expiring %q: %w", item.Name, err))
			continue
		}
		if ok {
			returned = append(returned, ret)
		}
	}
	return returned, errors.Join(errs...)
}

func record(ctx context.Context, tx *sql.Tx, op string, ev *model.Event) error {
	if _, err := store.RecordEvent(ctx, tx, ev); err != nil {
		return persistence(op, err)
	}
	return nil
}
