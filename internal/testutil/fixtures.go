package testutil

import (
	"database/sql"
	"testing"
	"time"
)

// SeedProfessor inserts a roster entry and returns its id.
func SeedProfessor(t *testing.T, db *sql.DB, name, department string) int64 {
	t.Helper()

	var id int64
	err := db.QueryRow(
		`INSERT INTO professors (name, department) VALUES ($1, $2) RETURNING id`,
		name, department,
	).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to seed professor: %v", err)
	}
	return id
}

// SetLastShuffleAt rewinds or advances the publication engine's clock
// so tests can force or suppress the trigger condition.
func SetLastShuffleAt(t *testing.T, db *sql.DB, at time.Time) {
	t.Helper()

	if _, err := db.Exec(`UPDATE shuffle_state SET last_shuffle_at = $1 WHERE id = 1`, at); err != nil {
		t.Fatalf("Failed to set shuffle state: %v", err)
	}
}
