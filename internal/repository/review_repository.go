package repository

import (
	"database/sql"

	"unireview/internal/models"
)

// ReviewRepository handles published review rows and the professor
// aggregates they fold into.
type ReviewRepository struct {
	db *sql.DB
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// InsertAnonymousTx publishes one anonymous review inside the shuffle
// transaction. The row never references a user, and created_at is the
// shuffle's timestamp supplied by the caller.
func (r *ReviewRepository) InsertAnonymousTx(tx *sql.Tx, review *models.Review) error {
	query := `
		INSERT INTO reviews (
			prof_id, cycle_id, course_code, semester, review_type,
			rating_overall, rating_clarity, rating_difficulty, would_take_again,
			comment, grade, anonymous, user_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, TRUE, NULL, $12)
		RETURNING id
	`
	return tx.QueryRow(
		query,
		review.ProfID,
		review.CycleID,
		review.CourseCode,
		review.Semester,
		review.ReviewType,
		review.RatingOverall,
		review.RatingClarity,
		review.RatingDifficulty,
		review.WouldTakeAgain,
		review.Comment,
		review.Grade,
		review.CreatedAt,
	).Scan(&review.ID)
}

// FoldIntoStatsTx adds one review's contribution to the professor
// aggregate inside the shuffle transaction.
func (r *ReviewRepository) FoldIntoStatsTx(tx *sql.Tx, review *models.Review) error {
	wouldTakeAgain := 0
	if review.WouldTakeAgain {
		wouldTakeAgain = 1
	}

	query := `
		INSERT INTO professor_stats (
			prof_id, review_count, rating_overall_sum, rating_clarity_sum,
			rating_difficulty_sum, would_take_again_count, updated_at
		) VALUES ($1, 1, $2, $3, $4, $5, NOW())
		ON CONFLICT (prof_id)
		DO UPDATE SET
			review_count = professor_stats.review_count + 1,
			rating_overall_sum = professor_stats.rating_overall_sum + EXCLUDED.rating_overall_sum,
			rating_clarity_sum = professor_stats.rating_clarity_sum + EXCLUDED.rating_clarity_sum,
			rating_difficulty_sum = professor_stats.rating_difficulty_sum + EXCLUDED.rating_difficulty_sum,
			would_take_again_count = professor_stats.would_take_again_count + EXCLUDED.would_take_again_count,
			updated_at = NOW()
	`
	_, err := tx.Exec(
		query,
		review.ProfID,
		review.RatingOverall,
		review.RatingClarity,
		review.RatingDifficulty,
		wouldTakeAgain,
	)
	return err
}

// GetStats retrieves the aggregate for a professor; nil when no review
// has been published yet.
func (r *ReviewRepository) GetStats(profID int64) (*models.ProfessorStats, error) {
	var stats models.ProfessorStats
	query := `
		SELECT prof_id, review_count, rating_overall_sum, rating_clarity_sum,
		       rating_difficulty_sum, would_take_again_count, updated_at
		FROM professor_stats
		WHERE prof_id = $1
	`
	err := r.db.QueryRow(query, profID).Scan(
		&stats.ProfID,
		&stats.ReviewCount,
		&stats.RatingOverallSum,
		&stats.RatingClaritySum,
		&stats.RatingDifficultySum,
		&stats.WouldTakeAgainCount,
		&stats.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListByProfessor retrieves published reviews for a professor, newest
// first.
func (r *ReviewRepository) ListByProfessor(profID int64) ([]models.Review, error) {
	query := `
		SELECT id, prof_id, cycle_id, course_code, semester, review_type,
		       rating_overall, rating_clarity, rating_difficulty, would_take_again,
		       comment, grade, anonymous, user_id, created_at
		FROM reviews
		WHERE prof_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(query, profID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var rev models.Review
		err := rows.Scan(
			&rev.ID,
			&rev.ProfID,
			&rev.CycleID,
			&rev.CourseCode,
			&rev.Semester,
			&rev.ReviewType,
			&rev.RatingOverall,
			&rev.RatingClarity,
			&rev.RatingDifficulty,
			&rev.WouldTakeAgain,
			&rev.Comment,
			&rev.Grade,
			&rev.Anonymous,
			&rev.UserID,
			&rev.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, rev)
	}

	return reviews, rows.Err()
}
