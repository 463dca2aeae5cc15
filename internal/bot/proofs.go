package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Clownyz/rentals-bot/internal/model"
	"github.com/Clownyz/rentals-bot/internal/notify"
	"github.com/Clownyz/rentals-bot/internal/rental"
)

// Attachment is a file posted with a chat message.
type Attachment struct {
	URL         string
	ContentType string
}

// Decision actions carried by proof review buttons.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

const decisionPrefix = "proof:"

// DecisionID encodes a review button identifier.
func DecisionID(action, proofID string) string {
	return decisionPrefix + action + ":" + proofID
}

// ParseDecisionID decodes a review button identifier.
func ParseDecisionID(id string) (action, proofID string, ok bool) {
	rest, found := strings.CutPrefix(id, decisionPrefix)
	if !found {
		return "", "", false
	}
	action, proofID, found = strings.Cut(rest, ":")
	if !found || proofID == "" || (action != ActionApprove && action != ActionReject) {
		return "", "", false
	}
	return action, proofID, true
}

// HandleProof records attachments posted to the proofs channel as a payment
// proof for the caller's current rental and forwards it to the log channel
// for review. The second result is false when the message is not a proof,
// for example because the caller rents nothing.
func (h *Handler) HandleProof(ctx context.Context, caller Caller, attachments []Attachment) (Response, bool) {
	if len(attachments) == 0 {
		return Response{}, false
	}

	sub := rental.ProofSubmission{UserID: caller.UserID}
	for _, a := range attachments {
		sub.URLs = append(sub.URLs, a.URL)
	}
	if img := firstImage(attachments); img != nil {
		processed, err := h.opts.FetchProof(ctx, img.URL)
		if err != nil {
			slog.Warn("proof image not processed", "user", caller.UserID, "url", img.URL, "error", err)
		} else {
			sub.Image = processed.Thumbnail
			sub.ImageMime = processed.MIME
			sub.Fingerprint = processed.Fingerprint
		}
	}

	proof, err := h.rentals.SubmitProof(ctx, sub)
	switch {
	case errors.Is(err, rental.ErrNotRented):
		return Response{}, false
	case errors.Is(err, rental.ErrDuplicateProof):
		countCommand("proof", resultUserError)
		return textResponse("This screenshot was already submitted as proof."), true
	case err != nil:
		resp, result := failure("proof", err, "", caller.UserID)
		countCommand("proof", result)
		return resp, true
	}

	notify.Send(ctx, h.notifier, notify.Message{
		Target:      notify.ToLog(),
		Kind:        model.EventProofSubmitted,
		Text:        fmt.Sprintf("Proof from %s for **%s**", notify.Mention(caller.UserID), proof.ItemName),
		Attachments: proof.URLs,
		ItemName:    proof.ItemName,
		UserID:      caller.UserID,
		ProofID:     proof.ID,
	})
	countCommand("proof", resultOK)
	return textResponse(fmt.Sprintf("Proof received for **%s**. An admin will review it.", proof.ItemName)), true
}

func firstImage(attachments []Attachment) *Attachment {
	for i := range attachments {
		if strings.HasPrefix(attachments[i].ContentType, "image/") {
			return &attachments[i]
		}
	}
	return nil
}

// HandleDecision applies a proof review button press.
func (h *Handler) HandleDecision(ctx context.Context, caller Caller, decisionID string) Response {
	action, proofID, ok := ParseDecisionID(decisionID)
	if !ok {
		return Response{Text: "Unknown action.", Ephemeral: true}
	}
	command := "proof " + action
	if !caller.IsAdmin {
		countCommand(command, resultRejected)
		return Response{Text: "Admin only.", Ephemeral: true}
	}

	var resp Response
	var result string
	if action == ActionApprove {
		resp, result = h.approve(ctx, caller, proofID)
	} else {
		resp, result = h.reject(ctx, caller, proofID)
	}
	countCommand(command, result)
	resp.Ephemeral = true
	return resp
}

func (h *Handler) approve(ctx context.Context, caller Caller, proofID string) (Response, string) {
	proof, item, err := h.rentals.ApproveProof(ctx, caller.UserID, proofID)
	switch {
	case errors.Is(err, rental.ErrProofDecided):
		return textResponse("This proof was already reviewed."), resultUserError
	case errors.Is(err, rental.ErrNotFound):
		return textResponse("The proof or its set no longer exists."), resultUserError
	case errors.Is(err, rental.ErrNotRented):
		return textResponse("The set is no longer rented by this user."), resultUserError
	case err != nil:
		return failure("proof approve", err, "", "")
	}

	notify.Send(ctx, h.notifier, notify.Message{
		Target:   notify.ToUser(proof.UserID),
		Kind:     model.EventItemPaid,
		Text:     "Payment approved for " + item.Name,
		ItemName: item.Name,
		UserID:   proof.UserID,
		ProofID:  proof.ID,
	})
	notify.Send(ctx, h.notifier, notify.Message{
		Target:   notify.ToDisplays(),
		Kind:     model.EventItemPaid,
		Text:     fmt.Sprintf("%s marked paid", item.Name),
		ItemName: item.Name,
		UserID:   proof.UserID,
		ProofID:  proof.ID,
	})
	return textResponse("Approved."), resultOK
}

func (h *Handler) reject(ctx context.Context, caller Caller, proofID string) (Response, string) {
	proof, err := h.rentals.RejectProof(ctx, caller.UserID, proofID)
	switch {
	case errors.Is(err, rental.ErrProofDecided):
		return textResponse("This proof was already reviewed."), resultUserError
	case errors.Is(err, rental.ErrNotFound):
		return textResponse("The proof no longer exists."), resultUserError
	case err != nil:
		return failure("proof reject", err, "", "")
	}

	notify.Send(ctx, h.notifier, notify.Message{
		Target:   notify.ToUser(proof.UserID),
		Kind:     model.EventProofRejected,
		Text:     fmt.Sprintf("Your payment proof for **%s** was rejected. Contact an admin.", proof.ItemName),
		ItemName: proof.ItemName,
		UserID:   proof.UserID,
		ProofID:  proof.ID,
	})
	return textResponse("Rejected."), resultOK
}
