package handlers

import (
	"encoding/base64"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"unireview/internal/blindsign"
	"unireview/internal/cycle"
	"unireview/internal/middleware"
	"unireview/internal/service"
)

// AnonymousHandler serves the anonymous review channel: claim status,
// blind token issuance, the envelope public key, and sealed review
// submission. Only the first two know who the caller is.
type AnonymousHandler struct {
	claimService      *service.ClaimService
	submissionService *service.SubmissionService
	encryptionKeyPEM  []byte
}

// NewAnonymousHandler creates a new anonymous channel handler
func NewAnonymousHandler(claimService *service.ClaimService, submissionService *service.SubmissionService, encryptionKeyPEM []byte) *AnonymousHandler {
	return &AnonymousHandler{
		claimService:      claimService,
		submissionService: submissionService,
		encryptionKeyPEM:  encryptionKeyPEM,
	}
}

// BlindedTokenRequest is one blinded message in a claim batch. The
// blinded value is a hex-encoded big integer.
type BlindedTokenRequest struct {
	ProfID  int64  `json:"profId"`
	Blinded string `json:"blinded"`
}

// ClaimRequest represents a token batch claim
type ClaimRequest struct {
	CycleID string                `json:"cycleId"`
	Tokens  []BlindedTokenRequest `json:"tokens"`
}

// SignedTokenResponse carries one raw signature over a blinded
// message, hex encoded.
type SignedTokenResponse struct {
	ProfID    int64  `json:"profId"`
	Signature string `json:"signature"`
}

// SubmitRequest represents an anonymous review submission
type SubmitRequest struct {
	TokenUUID     string `json:"tokenUuid"`
	ProfID        int64  `json:"profId"`
	CycleID       string `json:"cycleId"`
	Signature     string `json:"signature"`
	EncryptedBlob string `json:"encryptedBlob"`
	EncryptedKey  string `json:"encryptedKey"`
}

// Status reports the caller's claim standing for the current cycle
// @Summary Get claim status
// @Description Returns the current cycle, whether the caller has claimed, and the signing key components
// @Tags Anonymous
// @Produce json
// @Success 200 {object} map[string]interface{} "Claim status"
// @Failure 401 {object} map[string]string "Authentication required"
// @Security BearerAuth
// @Router /anonymous/status [get]
func (h *AnonymousHandler) Status(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.GetUserEmail(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	status, err := h.claimService.Status(email, time.Now())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load claim status")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"cycleId":    status.CycleID,
		"hasClaimed": status.HasClaimed,
		"signingKey": map[string]interface{}{
			"n": status.N.Text(16),
			"e": status.E,
		},
	})
}

// Claim signs a batch of blinded messages
// @Summary Claim a token batch
// @Description Records the caller's one claim for the cycle and blind-signs every message in the batch
// @Tags Anonymous
// @Accept json
// @Produce json
// @Param request body ClaimRequest true "Blinded token batch"
// @Success 200 {object} map[string]interface{} "Signed batch"
// @Failure 400 {object} map[string]string "Invalid batch"
// @Failure 409 {object} map[string]string "Already claimed this cycle"
// @Security BearerAuth
// @Router /anonymous/claim [post]
func (h *AnonymousHandler) Claim(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.GetUserEmail(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req ClaimRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if !cycle.Valid(req.CycleID) {
		respondWithError(w, http.StatusBadRequest, "Cycle is not current")
		return
	}

	batch := make([]service.BlindedToken, 0, len(req.Tokens))
	for _, t := range req.Tokens {
		blinded, valid := new(big.Int).SetString(t.Blinded, 16)
		if !valid {
			// Same message as a structurally invalid value inside the
			// signer, so a probing client learns nothing extra.
			respondWithError(w, http.StatusBadRequest, "Invalid blinded message")
			return
		}
		batch = append(batch, service.BlindedToken{ProfessorID: t.ProfID, Blinded: blinded})
	}

	signed, err := h.claimService.ClaimBatch(email, req.CycleID, batch, time.Now())
	switch {
	case errors.Is(err, service.ErrAlreadyClaimed):
		respondWithError(w, http.StatusConflict, "Already claimed this cycle")
		return
	case errors.Is(err, service.ErrInvalidCycle):
		respondWithError(w, http.StatusBadRequest, "Cycle is not current")
		return
	case errors.Is(err, service.ErrEmptyBatch):
		respondWithError(w, http.StatusBadRequest, "Empty token batch")
		return
	case errors.Is(err, blindsign.ErrInvalidBlindedMessage):
		respondWithError(w, http.StatusBadRequest, "Invalid blinded message")
		return
	case err != nil:
		respondWithError(w, http.StatusInternalServerError, "Failed to process claim")
		return
	}

	tokens := make([]SignedTokenResponse, len(signed))
	for i, s := range signed {
		tokens[i] = SignedTokenResponse{ProfID: s.ProfessorID, Signature: s.Signature.Text(16)}
	}
	// Log the numeric id rather than the email address.
	if userID, ok := middleware.GetUserID(r); ok {
		slog.Info("Token batch issued", "user_id", userID, "cycle_id", req.CycleID, "batch_size", len(tokens))
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"cycleId": req.CycleID,
		"tokens":  tokens,
	})
}

// EncryptionKey returns the public envelope key
// @Summary Get the envelope public key
// @Description Returns the PEM-encoded RSA public key reviews must be sealed to
// @Tags Anonymous
// @Produce json
// @Success 200 {object} map[string]string "Public key"
// @Router /anonymous/encryption-key [get]
func (h *AnonymousHandler) EncryptionKey(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"publicKey": string(h.encryptionKeyPEM),
	})
}

// Submit accepts a sealed anonymous review
// @Summary Submit an anonymous review
// @Description Verifies the review token and stages the sealed review for the next publication run. Deliberately unauthenticated.
// @Tags Anonymous
// @Accept json
// @Produce json
// @Param request body SubmitRequest true "Sealed review"
// @Success 202 {object} map[string]string "Review accepted"
// @Failure 400 {object} map[string]string "Invalid signature"
// @Failure 409 {object} map[string]string "Token already used"
// @Router /anonymous/submit [post]
func (h *AnonymousHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if !cycle.Valid(req.CycleID) {
		respondWithError(w, http.StatusBadRequest, "Cycle is not current")
		return
	}

	sig, valid := new(big.Int).SetString(req.Signature, 16)
	if !valid {
		respondWithError(w, http.StatusBadRequest, "Invalid signature")
		return
	}
	blob, err := base64.StdEncoding.DecodeString(req.EncryptedBlob)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid encrypted blob")
		return
	}
	wrappedKey, err := base64.StdEncoding.DecodeString(req.EncryptedKey)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid encrypted key")
		return
	}

	err = h.submissionService.Submit(&service.Submission{
		TokenUUID:     req.TokenUUID,
		ProfessorID:   req.ProfID,
		CycleID:       req.CycleID,
		Signature:     sig,
		EncryptedBlob: blob,
		EncryptedKey:  wrappedKey,
	}, time.Now())
	switch {
	case errors.Is(err, service.ErrInvalidCycle):
		respondWithError(w, http.StatusBadRequest, "Cycle is not current")
		return
	case errors.Is(err, service.ErrInvalidSignature):
		respondWithError(w, http.StatusBadRequest, "Invalid signature")
		return
	case errors.Is(err, service.ErrUnknownProfessor):
		respondWithError(w, http.StatusBadRequest, "Unknown professor")
		return
	case errors.Is(err, service.ErrTokenAlreadyUsed):
		respondWithError(w, http.StatusConflict, "Token already used")
		return
	case err != nil:
		respondWithError(w, http.StatusInternalServerError, "Failed to accept review")
		return
	}

	respondWithJSON(w, http.StatusAccepted, map[string]string{
		"message": "Review accepted for publication",
	})
}
