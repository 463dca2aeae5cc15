package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Clownyz/rentals-bot/internal/model"
)

const proofColumns = `id, item_name, user_id, urls, image_mime, fingerprint, status, created_at, decided_at, decided_by`

// CreateProof stores a new pending proof with its optional processed image.
func CreateProof(ctx context.Context, db DBTX, p *model.Proof, image []byte) error {
	if p.Status == "" {
		p.Status = model.ProofStatusPending
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO proofs (id, item_name, user_id, urls, image, image_mime, fingerprint, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ItemName, p.UserID, strings.Join(p.URLs, "\n"), image,
		nullString(p.ImageMime), nullString(p.Fingerprint), p.Status,
	)
	if err != nil {
		return fmt.Errorf("creating proof: %w", err)
	}
	return nil
}

// GetProof returns a proof by ID, or nil if there is none.
func GetProof(ctx context.Context, db DBTX, id string) (*model.Proof, error) {
	p, err := scanProof(db.QueryRowContext(ctx,
		`SELECT `+proofColumns+` FROM proofs WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting proof: %w", err)
	}
	return p, nil
}

// ListProofs returns proofs newest first, optionally filtered by status.
func ListProofs(ctx context.Context, db DBTX, status string) ([]model.Proof, error) {
	var rows *sql.Rows
	var err error

	if status != "" {
		rows, err = db.QueryContext(ctx,
			`SELECT `+proofColumns+` FROM proofs WHERE status = ? ORDER BY created_at DESC, id DESC`, status,
		)
	} else {
		rows, err = db.QueryContext(ctx,
			`SELECT `+proofColumns+` FROM proofs ORDER BY created_at DESC, id DESC`,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("listing proofs: %w", err)
	}
	defer rows.Close()

	var proofs []model.Proof
	for rows.Next() {
		p, err := scanProof(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning proof: %w", err)
		}
		proofs = append(proofs, *p)
	}
	return proofs, rows.Err()
}

// DecideProof moves a pending proof to approved or rejected. It reports
// whether the proof was still pending.
func DecideProof(ctx context.Context, db DBTX, id, status, decidedBy string, at time.Time) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE proofs SET status = ?, decided_at = ?, decided_by = ?
		 WHERE id = ? AND status = 'pending'`,
		status, at.UTC(), nullString(decidedBy), id,
	)
	if err != nil {
		return false, fmt.Errorf("deciding proof: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking decided proof: %w", err)
	}
	return n > 0, nil
}

// ProofFingerprintExists reports whether an image with this fingerprint was
// already submitted.
func ProofFingerprintExists(ctx context.Context, db DBTX, fingerprint string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM proofs WHERE fingerprint = ?)`, fingerprint,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking proof fingerprint: %w", err)
	}
	return exists, nil
}

// GetProofImage returns a proof's processed image and MIME type.
func GetProofImage(ctx context.Context, db DBTX, id string) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM proofs WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting proof image: %w", err)
	}
	return image, mime.String, nil
}

func scanProof(row scanner) (*model.Proof, error) {
	p := &model.Proof{}
	var urls string
	var mime, fingerprint, decidedBy sql.NullString
	var decidedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.ItemName, &p.UserID, &urls, &mime, &fingerprint, &p.Status, &p.CreatedAt, &decidedAt, &decidedBy); err != nil {
		return nil, err
	}
	if urls != "" {
		p.URLs = strings.Split(urls, "\n")
	}
	p.ImageMime = mime.String
	p.Fingerprint = fingerprint.String
	p.DecidedBy = decidedBy.String
	if decidedAt.Valid {
		t := decidedAt.Time
		p.DecidedAt = &t
	}
	return p, nil
}
