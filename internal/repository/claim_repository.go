package repository

import (
	"database/sql"
)

// ClaimRepository is the per-cycle claim ledger. A row records only
// that a hashed identity claimed its batch, never which professors the
// batch covered.
type ClaimRepository struct {
	db *sql.DB
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db *sql.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// HasClaimed reports whether the hashed identity already claimed a
// batch this cycle.
func (r *ClaimRepository) HasClaimed(cycleID, identityHash string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM claim_records WHERE cycle_id = $1 AND identity_hash = $2)`
	if err := r.db.QueryRow(query, cycleID, identityHash).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// TryClaim atomically inserts the claim record if absent. It returns
// false when the identity already holds a claim for the cycle. Two
// concurrent claims for the same identity race on the primary key, so
// exactly one of them is granted.
func (r *ClaimRepository) TryClaim(tx *sql.Tx, cycleID, identityHash string) (bool, error) {
	query := `
		INSERT INTO claim_records (cycle_id, identity_hash, claimed_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (cycle_id, identity_hash) DO NOTHING
	`
	res, err := tx.Exec(query, cycleID, identityHash)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// DeletePastCycles removes ledger rows from any cycle other than the
// current one. Used by the opt-in rollover cleanup task.
func (r *ClaimRepository) DeletePastCycles(currentCycleID string) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM claim_records WHERE cycle_id <> $1`, currentCycleID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
