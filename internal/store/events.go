package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Clownyz/rentals-bot/internal/model"
)

const eventColumns = `id, kind, item_name, user_id, actor_id, detail, created_at`

// RecordEvent appends an entry to the rental history and returns its ID.
func RecordEvent(ctx context.Context, db DBTX, ev *model.Event) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO events (kind, item_name, user_id, actor_id, detail) VALUES (?, ?, ?, ?, ?)`,
		ev.Kind, nullString(ev.ItemName), nullString(ev.UserID), nullString(ev.ActorID), nullString(ev.Detail),
	)
	if err != nil {
		return 0, fmt.Errorf("recording event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting event id: %w", err)
	}
	return id, nil
}

// ListEvents returns the most recent events, newest first. A non-positive
// limit returns all of them.
func ListEvents(ctx context.Context, db DBTX, limit int) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetItemHistory returns all events for an item, newest first. History
// outlives the item itself.
func GetItemHistory(ctx context.Context, db DBTX, itemName string) ([]model.Event, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE item_name = ? ORDER BY id DESC`, itemName,
	)
	if err != nil {
		return nil, fmt.Errorf("getting item history: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]model.Event, error) {
	var events []model.Event
	for rows.Next() {
		var ev model.Event
		var itemName, userID, actorID, detail sql.NullString
		if err := rows.Scan(&ev.ID, &ev.Kind, &itemName, &userID, &actorID, &detail, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		ev.ItemName = itemName.String
		ev.UserID = userID.String
		ev.ActorID = actorID.String
		ev.Detail = detail.String
		events = append(events, ev)
	}
	return events, rows.Err()
}
