package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"unireview/internal/blindsign"
	"unireview/internal/cycle"
	"unireview/internal/models"
	"unireview/internal/repository"
)

// Submission is a review arriving on the anonymous channel. The
// payload is already sealed by the device; the server only verifies
// the token and stores the opaque blob.
type Submission struct {
	TokenUUID     string
	ProfessorID   int64
	CycleID       string
	Signature     *big.Int
	EncryptedBlob []byte
	EncryptedKey  []byte
}

// SubmissionService verifies review tokens and files sealed reviews
// into the pending inbox. It never sees plaintext review content.
type SubmissionService struct {
	pending    *repository.PendingReviewRepository
	professors *repository.ProfessorRepository
	authority  *blindsign.Authority
}

func NewSubmissionService(pending *repository.PendingReviewRepository, professors *repository.ProfessorRepository, authority *blindsign.Authority) *SubmissionService {
	return &SubmissionService{
		pending:    pending,
		professors: professors,
		authority:  authority,
	}
}

// Submit accepts a sealed review when its token carries a valid
// signature over (tokenUUID, professorID, cycleID) for the current
// cycle and the token has not been spent. Tokens from past cycles fail
// the cycle check, which is how expiry is enforced server-side.
func (s *SubmissionService) Submit(sub *Submission, now time.Time) error {
	if sub.CycleID != cycle.Current(now) {
		return ErrInvalidCycle
	}
	if _, err := uuid.Parse(sub.TokenUUID); err != nil {
		return ErrInvalidSignature
	}

	prof, err := s.professors.GetByID(sub.ProfessorID)
	if err != nil {
		return fmt.Errorf("failed to look up professor: %w", err)
	}
	if prof == nil {
		return ErrUnknownProfessor
	}

	message := blindsign.TokenMessage(sub.TokenUUID, sub.ProfessorID, sub.CycleID)
	if !s.authority.Verify(message, sub.Signature) {
		return ErrInvalidSignature
	}

	spent, err := s.pending.TokenSpent(sub.TokenUUID)
	if err != nil {
		return fmt.Errorf("failed to check token state: %w", err)
	}
	if spent {
		return ErrTokenAlreadyUsed
	}

	err = s.pending.Insert(&models.PendingReview{
		ID:            uuid.NewString(),
		TokenUUID:     sub.TokenUUID,
		ProfID:        sub.ProfessorID,
		CycleID:       sub.CycleID,
		EncryptedBlob: sub.EncryptedBlob,
		EncryptedKey:  sub.EncryptedKey,
	})
	if errors.Is(err, repository.ErrDuplicateToken) {
		// Lost a race with a concurrent submission of the same token.
		return ErrTokenAlreadyUsed
	}
	if err != nil {
		return fmt.Errorf("failed to store pending review: %w", err)
	}

	// Deliberately no professor or token identifiers here: the
	// submission log must not let timestamps pair a request with a
	// later published review.
	slog.Info("pending review accepted", "cycle_id", sub.CycleID)
	return nil
}

// decodePayload unmarshals and validates a decrypted review payload.
// A payload that fails validation is treated exactly like one that
// failed to decrypt.
func decodePayload(plaintext []byte) (*models.ReviewPayload, error) {
	var payload models.ReviewPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, err
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return &payload, nil
}
