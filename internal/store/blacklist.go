package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Clownyz/rentals-bot/internal/model"
)

// SetBlacklist adds a user to the blacklist, replacing the reason if the user
// is already listed. An empty reason is stored as NULL.
func SetBlacklist(ctx context.Context, db DBTX, userID, reason string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO blacklist (user_id, reason) VALUES (?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET reason = excluded.reason`,
		userID, nullString(reason),
	)
	if err != nil {
		return fmt.Errorf("setting blacklist entry: %w", err)
	}
	return nil
}

// IsBlacklisted reports whether the user is on the blacklist.
func IsBlacklisted(ctx context.Context, db DBTX, userID string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM blacklist WHERE user_id = ?)`, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking blacklist: %w", err)
	}
	return exists, nil
}

// GetBlacklistEntry returns the entry for a user, or nil if the user is not listed.
func GetBlacklistEntry(ctx context.Context, db DBTX, userID string) (*model.BlacklistEntry, error) {
	e := &model.BlacklistEntry{}
	var reason sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT user_id, reason, created_at FROM blacklist WHERE user_id = ?`, userID,
	).Scan(&e.UserID, &reason, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting blacklist entry: %w", err)
	}
	e.Reason = reason.String
	return e, nil
}

// RemoveBlacklist removes a user from the blacklist. It reports whether the
// user was listed.
func RemoveBlacklist(ctx context.Context, db DBTX, userID string) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM blacklist WHERE user_id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("removing blacklist entry: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking removed blacklist entry: %w", err)
	}
	return n > 0, nil
}

// ListBlacklist returns all blacklist entries, oldest first.
func ListBlacklist(ctx context.Context, db DBTX) ([]model.BlacklistEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT user_id, reason, created_at FROM blacklist ORDER BY created_at, rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing blacklist: %w", err)
	}
	defer rows.Close()

	var entries []model.BlacklistEntry
	for rows.Next() {
		var e model.BlacklistEntry
		var reason sql.NullString
		if err := rows.Scan(&e.UserID, &reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning blacklist entry: %w", err)
		}
		e.Reason = reason.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
