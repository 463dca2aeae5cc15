package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GetPanelSecret retrieves the panel token signing key from the database.
// If no secret exists, it generates one, stores it, and returns it.
// Uses INSERT OR IGNORE + re-SELECT to avoid TOCTOU race on concurrent startup.
func GetPanelSecret(ctx context.Context, db DBTX) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating panel secret: %w", err)
	}
	candidate := hex.EncodeToString(buf)

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES ('panel_secret', ?)`,
		candidate,
	)
	if err != nil {
		return "", fmt.Errorf("storing panel_secret: %w", err)
	}

	// Always read back (either our insert or the existing value).
	var secret string
	err = db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = 'panel_secret'`,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying panel_secret: %w", err)
	}

	return secret, nil
}
