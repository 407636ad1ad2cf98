package repository

import (
	"database/sql"
	"time"

	"unireview/internal/models"
)

// ShuffleStateRepository owns the single shuffle_state row. Reading it
// FOR UPDATE inside the publish transaction is what serializes shuffle
// runs: a second prober blocks on the row lock and then sees the
// advanced timestamp.
type ShuffleStateRepository struct {
	db *sql.DB
}

// NewShuffleStateRepository creates a new shuffle state repository
func NewShuffleStateRepository(db *sql.DB) *ShuffleStateRepository {
	return &ShuffleStateRepository{db: db}
}

// GetForUpdateTx locks and returns the shuffle state row
func (r *ShuffleStateRepository) GetForUpdateTx(tx *sql.Tx) (*models.ShuffleState, error) {
	var state models.ShuffleState
	query := `SELECT last_shuffle_at, last_batch_size FROM shuffle_state WHERE id = 1 FOR UPDATE`
	err := tx.QueryRow(query).Scan(&state.LastShuffleAt, &state.LastBatchSize)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// AdvanceTx records a completed run inside the same transaction that
// published its batch.
func (r *ShuffleStateRepository) AdvanceTx(tx *sql.Tx, at time.Time, batchSize int) error {
	query := `UPDATE shuffle_state SET last_shuffle_at = $1, last_batch_size = $2 WHERE id = 1`
	_, err := tx.Exec(query, at, batchSize)
	return err
}
