package rental

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Clownyz/rentals-bot/internal/model"
	"github.com/Clownyz/rentals-bot/internal/store"
)

// ProofSubmission is a payment proof as received from the chat platform.
type ProofSubmission struct {
	UserID      string
	URLs        []string
	Image       []byte
	ImageMime   string
	Fingerprint string
}

// SubmitProof records a pending proof for the item the user currently rents.
func (s *Service) SubmitProof(ctx context.Context, sub ProofSubmission) (model.Proof, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return model.Proof{}, fmt.Errorf("generating proof id: %w", err)
	}
	proof := model.Proof{
		ID:          id.String(),
		UserID:      sub.UserID,
		URLs:        sub.URLs,
		ImageMime:   sub.ImageMime,
		Fingerprint: sub.Fingerprint,
		Status:      model.ProofStatusPending,
	}

	err = s.withTx(ctx, "submit proof", func(tx *sql.Tx) error {
		item, err := store.FindItemRentedBy(ctx, tx, sub.UserID)
		if err != nil {
			return persistence("submit proof", err)
		}
		if item == nil {
			return ErrNotRented
		}
		proof.ItemName = item.Name

		if sub.Fingerprint != "" {
			seen, err := store.ProofFingerprintExists(ctx, tx, sub.Fingerprint)
			if err != nil {
				return persistence("submit proof", err)
			}
			if seen {
				return ErrDuplicateProof
			}
		}

		if err := store.CreateProof(ctx, tx, &proof, sub.Image); err != nil {
			return persistence("submit proof", err)
		}
		return record(ctx, tx, "submit proof", &model.Event{
			Kind:     model.EventProofSubmitted,
			ItemName: item.Name,
			UserID:   sub.UserID,
			Detail:   proof.ID,
		})
	})
	if err != nil {
		return model.Proof{}, err
	}

	proof.CreatedAt = s.now().UTC()
	slog.Info("proof submitted", "proof", proof.ID, "item", proof.ItemName, "user", proof.UserID)
	return proof, nil
}

// ApproveProof accepts a pending proof and marks the rental paid in the same
// transaction.
func (s *Service) ApproveProof(ctx context.Context, actorID, proofID string) (model.Proof, model.Item, error) {
	var proof model.Proof
	var item model.Item

	err := s.withTx(ctx, "approve proof", func(tx *sql.Tx) error {
		p, err := s.pendingProof(ctx, tx, "approve proof", proofID)
		if err != nil {
			return err
		}
		proof = *p

		current, err := store.GetItem(ctx, tx, proof.ItemName)
		if err != nil {
			return persistence("approve proof", err)
		}
		if current == nil {
			return ErrNotFound
		}
		if current.RentedBy != proof.UserID {
			return ErrNotRented
		}

		item, err = s.markPaidTx(ctx, tx, actorID, proof.ItemName, proof.ID)
		if err != nil {
			return err
		}
		return s.decideProof(ctx, tx, "approve proof", &proof, model.ProofStatusApproved, actorID)
	})
	if err != nil {
		return model.Proof{}, model.Item{}, err
	}

	slog.Info("proof approved", "proof", proof.ID, "item", proof.ItemName, "user", proof.UserID, "actor", actorID)
	return proof, item, nil
}

// RejectProof declines a pending proof. The rental is left untouched.
func (s *Service) RejectProof(ctx context.Context, actorID, proofID string) (model.Proof, error) {
	var proof model.Proof

	err := s.withTx(ctx, "reject proof", func(tx *sql.Tx) error {
		p, err := s.pendingProof(ctx, tx, "reject proof", proofID)
		if err != nil {
			return err
		}
		proof = *p

		if err := s.decideProof(ctx, tx, "reject proof", &proof, model.ProofStatusRejected, actorID); err != nil {
			return err
		}
		return record(ctx, tx, "reject proof", &model.Event{
			Kind:     model.EventProofRejected,
			ItemName: proof.ItemName,
			UserID:   proof.UserID,
			ActorID:  actorID,
			Detail:   proof.ID,
		})
	})
	if err != nil {
		return model.Proof{}, err
	}

	slog.Info("proof rejected", "proof", proof.ID, "item", proof.ItemName, "user", proof.UserID, "actor", actorID)
	return proof, nil
}

// GetProof returns a proof by ID.
func (s *Service) GetProof(ctx context.Context, proofID string) (model.Proof, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := store.GetProof(ctx, s.db, proofID)
	if err != nil {
		return model.Proof{}, persistence("get proof", err)
	}
	if p == nil {
		return model.Proof{}, ErrNotFound
	}
	return *p, nil
}

// ProofImage returns the stored thumbnail of a proof, if any.
func (s *Service) ProofImage(ctx context.Context, proofID string) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, mime, err := store.GetProofImage(ctx, s.db, proofID)
	if err != nil {
		return nil, "", persistence("get proof image", err)
	}
	if len(data) == 0 {
		return nil, "", ErrNotFound
	}
	return data, mime, nil
}

// PendingProofs returns proofs awaiting a decision, newest first.
func (s *Service) PendingProofs(ctx context.Context) ([]model.Proof, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	proofs, err := store.ListProofs(ctx, s.db, model.ProofStatusPending)
	if err != nil {
		return nil, persistence("list proofs", err)
	}
	return proofs, nil
}

func (s *Service) pendingProof(ctx context.Context, tx *sql.Tx, op, proofID string) (*model.Proof, error) {
	p, err := store.GetProof(ctx, tx, proofID)
	if err != nil {
		return nil, persistence(op, err)
	}
	if p == nil {
		return nil, ErrNotFound
	}
	if p.Status != model.ProofStatusPending {
		return nil, ErrProofDecided
	}
	return p, nil
}

func (s *Service) decideProof(ctx context.Context, tx *sql.Tx, op string, p *model.Proof, status, actorID string) error {
	now := s.now().UTC()
	ok, err := store.DecideProof(ctx, tx, p.ID, status, actorID, now)
	if err != nil {
		return persistence(op, err)
	}
	if !ok {
		return ErrProofDecided
	}
	p.Status = status
	p.DecidedBy = actorID
	p.DecidedAt = &now
	return nil
}
