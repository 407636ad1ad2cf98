package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"unireview/internal/models"
)

// ErrDuplicateToken is returned when a submission reuses a token uuid
// that already backs a pending or published review.
var ErrDuplicateToken = errors.New("token already used")

const uniqueViolation = "23505"

// PendingReviewRepository is the staging inbox for encrypted
// submissions. Blobs are stored verbatim and only read back by the
// shuffle engine.
type PendingReviewRepository struct {
	db *sql.DB
}

// NewPendingReviewRepository creates a new pending review repository
func NewPendingReviewRepository(db *sql.DB) *PendingReviewRepository {
	return &PendingReviewRepository{db: db}
}

// Insert stores an encrypted submission. The unique constraint on
// token_uuid is the authoritative double-submission guard; a violation
// surfaces as ErrDuplicateToken.
func (r *PendingReviewRepository) Insert(p *models.PendingReview) error {
	query := `
		INSERT INTO pending_reviews (id, prof_id, cycle_id, token_uuid, encrypted_blob, encrypted_key, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING received_at
	`
	err := r.db.QueryRow(
		query,
		p.ID,
		p.ProfID,
		p.CycleID,
		p.TokenUUID,
		p.EncryptedBlob,
		p.EncryptedKey,
	).Scan(&p.ReceivedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicateToken
	}
	return err
}

// TokenSpent reports whether a token uuid already backs a pending
// submission or a published batch.
func (r *PendingReviewRepository) TokenSpent(tokenUUID string) (bool, error) {
	var spent bool
	query := `
		SELECT EXISTS(SELECT 1 FROM pending_reviews WHERE token_uuid = $1)
		    OR EXISTS(SELECT 1 FROM spent_tokens WHERE token_uuid = $1)
	`
	if err := r.db.QueryRow(query, tokenUUID).Scan(&spent); err != nil {
		return false, err
	}
	return spent, nil
}

// Count returns the inbox size
func (r *PendingReviewRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM pending_reviews`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountTx returns the inbox size inside the shuffle transaction
func (r *PendingReviewRepository) CountTx(tx *sql.Tx) (int, error) {
	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM pending_reviews`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// GetAllTx loads the entire inbox inside the shuffle transaction
func (r *PendingReviewRepository) GetAllTx(tx *sql.Tx) ([]models.PendingReview, error) {
	query := `
		SELECT id, prof_id, cycle_id, token_uuid, encrypted_blob, encrypted_key, received_at
		FROM pending_reviews
	`
	rows, err := tx.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []models.PendingReview
	for rows.Next() {
		var p models.PendingReview
		err := rows.Scan(
			&p.ID,
			&p.ProfID,
			&p.CycleID,
			&p.TokenUUID,
			&p.EncryptedBlob,
			&p.EncryptedKey,
			&p.ReceivedAt,
		)
		if err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}

	return pending, rows.Err()
}

// DeleteTx removes processed inbox rows inside the shuffle transaction
func (r *PendingReviewRepository) DeleteTx(tx *sql.Tx, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(`DELETE FROM pending_reviews WHERE id = ANY($1)`, pq.Array(ids))
	return err
}

// MarkSpentTx records consumed token uuids so replays are rejected
// after the pending rows are gone. The spent row carries no link to the
// published review.
func (r *PendingReviewRepository) MarkSpentTx(tx *sql.Tx, tokenUUIDs []string) error {
	if len(tokenUUIDs) == 0 {
		return nil
	}
	query := `
		INSERT INTO spent_tokens (token_uuid, spent_at)
		SELECT unnest($1::text[]), NOW()
		ON CONFLICT (token_uuid) DO NOTHING
	`
	_, err := tx.Exec(query, pq.Array(tokenUUIDs))
	return err
}
