package models

import (
	"fmt"
	"time"
)

// Professor is a roster entry reviews are written about.
type Professor struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"created_at"`
}

// ClaimRecord marks that a hashed identity has claimed its token batch
// for a cycle. It deliberately does not record which professors were
// claimed for: the ledger only needs to block a second batch claim.
type ClaimRecord struct {
	CycleID      string    `json:"cycle_id"`
	IdentityHash string    `json:"identity_hash"`
	ClaimedAt    time.Time `json:"claimed_at"`
}

// PendingReview is an encrypted submission staged in the inbox until
// the next shuffle run. The server never decrypts it on this path.
type PendingReview struct {
	ID            string    `json:"id"`
	ProfID        int64     `json:"prof_id"`
	CycleID       string    `json:"cycle_id"`
	TokenUUID     string    `json:"token_uuid"`
	EncryptedBlob []byte    `json:"-"`
	EncryptedKey  []byte    `json:"-"`
	ReceivedAt    time.Time `json:"received_at"`
}

// Review is a published review row. Anonymous rows carry no user
// reference and their CreatedAt is the shuffle's timestamp, not the
// submission instant.
type Review struct {
	ID               int64     `json:"id"`
	ProfID           int64     `json:"prof_id"`
	CycleID          string    `json:"cycle_id"`
	CourseCode       string    `json:"course_code"`
	Semester         string    `json:"semester"`
	ReviewType       string    `json:"review_type"`
	RatingOverall    int       `json:"rating_overall"`
	RatingClarity    int       `json:"rating_clarity"`
	RatingDifficulty int       `json:"rating_difficulty"`
	WouldTakeAgain   bool      `json:"would_take_again"`
	Comment          string    `json:"comment"`
	Grade            *string   `json:"grade,omitempty"`
	Anonymous        bool      `json:"anonymous"`
	UserID           *int64    `json:"user_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// ProfessorStats is the running aggregate a published review folds into.
type ProfessorStats struct {
	ProfID              int64     `json:"prof_id"`
	ReviewCount         int64     `json:"review_count"`
	RatingOverallSum    int64     `json:"rating_overall_sum"`
	RatingClaritySum    int64     `json:"rating_clarity_sum"`
	RatingDifficultySum int64     `json:"rating_difficulty_sum"`
	WouldTakeAgainCount int64     `json:"would_take_again_count"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// AverageOverall returns the mean overall rating, 0 when empty.
func (s *ProfessorStats) AverageOverall() float64 {
	if s.ReviewCount == 0 {
		return 0
	}
	return float64(s.RatingOverallSum) / float64(s.ReviewCount)
}

// ReviewPayload is the plaintext review content the client seals into
// the envelope. It is what the shuffle decrypts and publishes.
type ReviewPayload struct {
	RatingOverall    int    `json:"ratingOverall"`
	RatingClarity    int    `json:"ratingClarity"`
	RatingDifficulty int    `json:"ratingDifficulty"`
	WouldTakeAgain   bool   `json:"wouldTakeAgain"`
	Comment          string `json:"comment"`
	Grade            string `json:"grade,omitempty"`
	CourseCode       string `json:"courseCode"`
	Semester         string `json:"semester"`
	ReviewType       string `json:"reviewType"`
}

// Validate checks rating bounds before a payload is sealed or published.
func (p *ReviewPayload) Validate() error {
	for _, r := range []struct {
		name  string
		value int
	}{
		{"ratingOverall", p.RatingOverall},
		{"ratingClarity", p.RatingClarity},
		{"ratingDifficulty", p.RatingDifficulty},
	} {
		if r.value < 1 || r.value > 5 {
			return fmt.Errorf("%s must be between 1 and 5", r.name)
		}
	}
	if p.CourseCode == "" {
		return fmt.Errorf("courseCode is required")
	}
	if p.Semester == "" {
		return fmt.Errorf("semester is required")
	}
	return nil
}

// ReviewToken is the client-held right to submit one review for one
// professor in one cycle. Only the uuid and signature ever reach the
// server; the blinding factor stays on the device for audit.
type ReviewToken struct {
	TokenUUID      string    `json:"tokenUuid"`
	ProfID         int64     `json:"profId"`
	CycleID        string    `json:"cycleId"`
	Signature      string    `json:"signature"`
	BlindingFactor string    `json:"blindingFactor"`
	Used           bool      `json:"used"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ShuffleState is the single-row record the publication engine owns.
type ShuffleState struct {
	LastShuffleAt time.Time `json:"last_shuffle_at"`
	LastBatchSize int       `json:"last_batch_size"`
}
