package repository

import (
	"database/sql"

	"unireview/internal/models"
)

// ProfessorRepository handles the professor roster
type ProfessorRepository struct {
	db *sql.DB
}

// NewProfessorRepository creates a new professor repository
func NewProfessorRepository(db *sql.DB) *ProfessorRepository {
	return &ProfessorRepository{db: db}
}

// List retrieves the full roster ordered by id
func (r *ProfessorRepository) List() ([]models.Professor, error) {
	query := `SELECT id, name, department, created_at FROM professors ORDER BY id`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	professors := []models.Professor{}
	for rows.Next() {
		var p models.Professor
		if err := rows.Scan(&p.ID, &p.Name, &p.Department, &p.CreatedAt); err != nil {
			return nil, err
		}
		professors = append(professors, p)
	}

	return professors, rows.Err()
}

// GetByID retrieves a professor; nil when absent
func (r *ProfessorRepository) GetByID(id int64) (*models.Professor, error) {
	var p models.Professor
	query := `SELECT id, name, department, created_at FROM professors WHERE id = $1`
	err := r.db.QueryRow(query, id).Scan(&p.ID, &p.Name, &p.Department, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a professor and fills in the generated fields
func (r *ProfessorRepository) Create(p *models.Professor) error {
	query := `
		INSERT INTO professors (name, department)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	return r.db.QueryRow(query, p.Name, p.Department).Scan(&p.ID, &p.CreatedAt)
}
