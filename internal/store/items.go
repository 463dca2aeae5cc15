package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Clownyz/rentals-bot/internal/model"
)

const itemColumns = `name, price, currency, rented_by, paid, expires_at, created_at, updated_at`

// UpsertItem inserts the item or fully replaces the record with the same name.
func UpsertItem(ctx context.Context, db DBTX, item *model.Item) error {
	var expiresAt sql.NullInt64
	if item.ExpiresAt != nil {
		expiresAt = sql.NullInt64{Int64: item.ExpiresAt.Unix(), Valid: true}
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO items (name, price, currency, rented_by, paid, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET
		     price = excluded.price,
		     currency = excluded.currency,
		     rented_by = excluded.rented_by,
		     paid = excluded.paid,
		     expires_at = excluded.expires_at,
		     updated_at = CURRENT_TIMESTAMP`,
		item.Name, item.Price, item.Currency, nullString(item.RentedBy), boolToInt(item.Paid), expiresAt,
	)
	if err != nil {
		return fmt.Errorf("upserting item: %w", err)
	}
	return nil
}

// GetItem returns an item by name, or nil if there is none.
func GetItem(ctx context.Context, db DBTX, name string) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE name = ?`, name,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all items in insertion order.
func ListItems(ctx context.Context, db DBTX) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items ORDER BY rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// ListExpiredItems returns rented items whose expiry lies strictly before now.
func ListExpiredItems(ctx context.Context, db DBTX, now time.Time) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE expires_at IS NOT NULL AND expires_at < ?
		 ORDER BY expires_at, rowid`, now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("listing expired items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// FindItemRentedBy returns the oldest item currently rented by the user, or
// nil if the user rents nothing.
func FindItemRentedBy(ctx context.Context, db DBTX, userID string) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE rented_by = ? ORDER BY rowid LIMIT 1`, userID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding item rented by user: %w", err)
	}
	return item, nil
}

// DeleteItem permanently removes an item. It reports whether a row was removed.
func DeleteItem(ctx context.Context, db DBTX, name string) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM items WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("deleting item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking deleted item: %w", err)
	}
	return n > 0, nil
}

func scanItem(row scanner) (*model.Item, error) {
	item := &model.Item{}
	var rentedBy sql.NullString
	var expiresAt sql.NullInt64
	if err := row.Scan(&item.Name, &item.Price, &item.Currency, &rentedBy, &item.Paid, &expiresAt, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	item.RentedBy = rentedBy.String
	if expiresAt.Valid {
		t := time.Unix(expiresAt.Int64, 0).UTC()
		item.ExpiresAt = &t
	}
	return item, nil
}

func scanItems(rows *sql.Rows) ([]model.Item, error) {
	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}
