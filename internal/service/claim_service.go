package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"unireview/internal/blindsign"
	"unireview/internal/cycle"
	"unireview/internal/repository"
)

// BlindedToken is one blinded message scoped to a professor, as
// submitted by the reviewer device during a claim.
type BlindedToken struct {
	ProfessorID int64
	Blinded     *big.Int
}

// SignedToken carries the raw signature over a blinded message. The
// professor ID echoes the request so the device can match signatures
// to its pending token records.
type SignedToken struct {
	ProfessorID int64
	Signature   *big.Int
}

// StatusResult describes the caller's standing in the current cycle
// together with the public signing key components the device needs to
// blind and later verify tokens.
type StatusResult struct {
	CycleID    string
	HasClaimed bool
	N          *big.Int
	E          int
}

// ClaimService owns the one-claim-per-cycle ledger and the blind
// signing of review tokens. The ledger never stores emails: callers
// are recorded as an HMAC keyed per cycle, so even with the master
// secret a ledger row cannot be reversed to an address, and rows from
// different cycles cannot be joined on the hash column.
type ClaimService struct {
	db             *sql.DB
	claims         *repository.ClaimRepository
	authority      *blindsign.Authority
	identitySecret []byte
}

func NewClaimService(db *sql.DB, claims *repository.ClaimRepository, authority *blindsign.Authority, identitySecret string) *ClaimService {
	return &ClaimService{
		db:             db,
		claims:         claims,
		authority:      authority,
		identitySecret: []byte(identitySecret),
	}
}

// IdentityHash derives the ledger key for an email within a cycle. The
// per-cycle intermediate key is HMAC(masterSecret, cycleID); the row
// key is HMAC(cycleKey, normalized email).
func (s *ClaimService) IdentityHash(cycleID, email string) string {
	cycleKey := hmac.New(sha256.New, s.identitySecret)
	cycleKey.Write([]byte(cycleID))

	h := hmac.New(sha256.New, cycleKey.Sum(nil))
	h.Write([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(h.Sum(nil))
}

// Status reports the current cycle, whether the caller has already
// claimed in it, and the signing key components.
func (s *ClaimService) Status(email string, now time.Time) (*StatusResult, error) {
	cycleID := cycle.Current(now)

	claimed, err := s.claims.HasClaimed(cycleID, s.IdentityHash(cycleID, email))
	if err != nil {
		return nil, fmt.Errorf("failed to check claim ledger: %w", err)
	}

	n, e := s.authority.PublicComponents()
	return &StatusResult{
		CycleID:    cycleID,
		HasClaimed: claimed,
		N:          n,
		E:          e,
	}, nil
}

// ClaimBatch records the caller's claim for the cycle and signs every
// blinded message in one transaction. The batch is all or nothing: a
// single malformed blinded message rolls the claim back so the caller
// can retry with a fresh batch. The error never identifies which entry
// was rejected.
func (s *ClaimService) ClaimBatch(email, cycleID string, batch []BlindedToken, now time.Time) ([]SignedToken, error) {
	if cycleID != cycle.Current(now) {
		return nil, ErrInvalidCycle
	}
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim transaction: %w", err)
	}
	defer tx.Rollback()

	granted, err := s.claims.TryClaim(tx, cycleID, s.IdentityHash(cycleID, email))
	if err != nil {
		return nil, fmt.Errorf("failed to record claim: %w", err)
	}
	if !granted {
		return nil, ErrAlreadyClaimed
	}

	signed := make([]SignedToken, 0, len(batch))
	for _, bt := range batch {
		sig, err := s.authority.SignBlinded(bt.Blinded)
		if err != nil {
			return nil, blindsign.ErrInvalidBlindedMessage
		}
		signed = append(signed, SignedToken{ProfessorID: bt.ProfessorID, Signature: sig})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	slog.Info("claim granted", "cycle_id", cycleID, "batch_size", len(batch))
	return signed, nil
}

// PurgePastCycles drops ledger rows from ended cycles. Disabled by
// default; the scheduler calls this only when cleanup is switched on.
func (s *ClaimService) PurgePastCycles(now time.Time) (int64, error) {
	return s.claims.DeletePastCycles(cycle.Current(now))
}
