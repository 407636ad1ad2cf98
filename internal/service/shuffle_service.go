package service

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"unireview/internal/config"
	"unireview/internal/envelope"
	"unireview/internal/models"
	"unireview/internal/repository"
)

// publishItem pairs a decrypted payload with the inbox row it came
// from, so the publish step knows which professor and cycle to file it
// under after the batch order is destroyed.
type publishItem struct {
	ProfID  int64
	CycleID string
	Payload *models.ReviewPayload
}

// ShuffleService turns the pending inbox into published reviews. A run
// drains the whole inbox, decrypts it, permutes it, and publishes every
// item under one shared timestamp, so nothing about arrival order or
// arrival time survives into the public table.
type ShuffleService struct {
	db      *sql.DB
	pending *repository.PendingReviewRepository
	reviews *repository.ReviewRepository
	state   *repository.ShuffleStateRepository
	keys    *envelope.EncryptionKeyPair
	cfg     config.ShuffleConfig
}

func NewShuffleService(db *sql.DB, pending *repository.PendingReviewRepository, reviews *repository.ReviewRepository, state *repository.ShuffleStateRepository, keys *envelope.EncryptionKeyPair, cfg config.ShuffleConfig) *ShuffleService {
	return &ShuffleService{
		db:      db,
		pending: pending,
		reviews: reviews,
		state:   state,
		keys:    keys,
		cfg:     cfg,
	}
}

// due decides whether a run should happen: a full-enough batch after a
// minimum quiet interval, or any non-empty batch once the oldest
// submission has waited long enough.
func (s *ShuffleService) due(count int, sinceLast time.Duration) bool {
	if count == 0 {
		return false
	}
	if count >= s.cfg.MinBatchSize && sinceLast >= s.cfg.MinInterval {
		return true
	}
	return sinceLast >= s.cfg.MaxWait
}

// RunIfDue executes one shuffle run when the trigger condition holds.
// The shuffle_state row lock serializes runs across instances: a
// second caller blocks on the lock and then finds an empty inbox. It
// returns the number of reviews published, zero when the run was not
// due.
func (s *ShuffleService) RunIfDue(now time.Time) (int, error) {
	now = now.UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin shuffle transaction: %w", err)
	}
	defer tx.Rollback()

	state, err := s.state.GetForUpdateTx(tx)
	if err != nil {
		return 0, fmt.Errorf("failed to lock shuffle state: %w", err)
	}

	count, err := s.pending.CountTx(tx)
	if err != nil {
		return 0, fmt.Errorf("failed to count inbox: %w", err)
	}
	if !s.due(count, now.Sub(state.LastShuffleAt)) {
		return 0, nil
	}

	entries, err := s.pending.GetAllTx(tx)
	if err != nil {
		return 0, fmt.Errorf("failed to load inbox: %w", err)
	}

	items, dropped := decryptBatch(entries, s.keys)
	if err := shuffleItems(items); err != nil {
		return 0, fmt.Errorf("failed to shuffle batch: %w", err)
	}

	for _, item := range items {
		review := &models.Review{
			ProfID:           item.ProfID,
			CycleID:          item.CycleID,
			CourseCode:       item.Payload.CourseCode,
			Semester:         item.Payload.Semester,
			ReviewType:       item.Payload.ReviewType,
			RatingOverall:    item.Payload.RatingOverall,
			RatingClarity:    item.Payload.RatingClarity,
			RatingDifficulty: item.Payload.RatingDifficulty,
			WouldTakeAgain:   item.Payload.WouldTakeAgain,
			Comment:          item.Payload.Comment,
			Anonymous:        true,
			CreatedAt:        now,
		}
		if item.Payload.Grade != "" {
			review.Grade = &item.Payload.Grade
		}
		if err := s.reviews.InsertAnonymousTx(tx, review); err != nil {
			return 0, fmt.Errorf("failed to publish review: %w", err)
		}
		if err := s.reviews.FoldIntoStatsTx(tx, review); err != nil {
			return 0, fmt.Errorf("failed to update stats: %w", err)
		}
	}

	// Undecryptable rows are consumed too: their tokens stay spent and
	// the rows leave the inbox, they just never publish.
	ids := make([]string, len(entries))
	tokens := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
		tokens[i] = e.TokenUUID
	}
	if err := s.pending.MarkSpentTx(tx, tokens); err != nil {
		return 0, fmt.Errorf("failed to mark tokens spent: %w", err)
	}
	if err := s.pending.DeleteTx(tx, ids); err != nil {
		return 0, fmt.Errorf("failed to drain inbox: %w", err)
	}
	if err := s.state.AdvanceTx(tx, now, len(items)); err != nil {
		return 0, fmt.Errorf("failed to advance shuffle state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit shuffle: %w", err)
	}

	slog.Info("shuffle run completed",
		"published", len(items),
		"dropped", dropped,
		"published_at", now,
	)
	return len(items), nil
}

// decryptBatch opens every inbox entry. Entries that fail to decrypt
// or carry an invalid payload are dropped rather than failing the run;
// one hostile blob must not block everyone else's publication.
func decryptBatch(entries []models.PendingReview, keys *envelope.EncryptionKeyPair) (items []publishItem, dropped int) {
	for _, e := range entries {
		plaintext, err := keys.Open(e.EncryptedBlob, e.EncryptedKey)
		if err != nil {
			dropped++
			continue
		}
		payload, err := decodePayload(plaintext)
		if err != nil {
			dropped++
			continue
		}
		items = append(items, publishItem{
			ProfID:  e.ProfID,
			CycleID: e.CycleID,
			Payload: payload,
		})
	}
	return items, dropped
}

// shuffleItems applies a Fisher-Yates permutation driven by crypto/rand.
// math/rand would let an observer who recovers the seed undo the
// permutation, which defeats the whole run.
func shuffleItems(items []publishItem) error {
	for i := len(items) - 1; i > 0; i-- {
		jBig, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return err
		}
		j := int(jBig.Int64())
		items[i], items[j] = items[j], items[i]
	}
	return nil
}
