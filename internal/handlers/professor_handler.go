package handlers

import (
	"net/http"
	"strconv"

	"unireview/internal/models"
	"unireview/internal/repository"
)

// ProfessorHandler serves the public roster, the published reviews,
// and the running aggregates. Everything here is world-readable.
type ProfessorHandler struct {
	professors *repository.ProfessorRepository
	reviews    *repository.ReviewRepository
}

// NewProfessorHandler creates a new professor handler
func NewProfessorHandler(professors *repository.ProfessorRepository, reviews *repository.ReviewRepository) *ProfessorHandler {
	return &ProfessorHandler{professors: professors, reviews: reviews}
}

func professorID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// List returns the professor roster
// @Summary List professors
// @Tags Professors
// @Produce json
// @Success 200 {array} models.Professor
// @Router /professors [get]
func (h *ProfessorHandler) List(w http.ResponseWriter, r *http.Request) {
	professors, err := h.professors.List()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load professors")
		return
	}
	if professors == nil {
		professors = []models.Professor{}
	}
	respondWithJSON(w, http.StatusOK, professors)
}

// Get returns one roster entry
// @Summary Get a professor
// @Tags Professors
// @Produce json
// @Param id path int true "Professor ID"
// @Success 200 {object} models.Professor
// @Failure 404 {object} map[string]string "Not found"
// @Router /professors/{id} [get]
func (h *ProfessorHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := professorID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid professor id")
		return
	}
	prof, err := h.professors.GetByID(id)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load professor")
		return
	}
	if prof == nil {
		respondWithError(w, http.StatusNotFound, "Professor not found")
		return
	}
	respondWithJSON(w, http.StatusOK, prof)
}

// Reviews returns the published reviews for a professor
// @Summary List published reviews
// @Description Published reviews carry the publication timestamp of their batch, not the submission time
// @Tags Professors
// @Produce json
// @Param id path int true "Professor ID"
// @Success 200 {array} models.Review
// @Router /professors/{id}/reviews [get]
func (h *ProfessorHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	id, ok := professorID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid professor id")
		return
	}
	reviews, err := h.reviews.ListByProfessor(id)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load reviews")
		return
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	respondWithJSON(w, http.StatusOK, reviews)
}

// Stats returns the aggregate ratings for a professor
// @Summary Get professor statistics
// @Tags Professors
// @Produce json
// @Param id path int true "Professor ID"
// @Success 200 {object} map[string]interface{}
// @Router /professors/{id}/stats [get]
func (h *ProfessorHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, ok := professorID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid professor id")
		return
	}
	stats, err := h.reviews.GetStats(id)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}
	if stats == nil {
		stats = &models.ProfessorStats{ProfID: id}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"profId":         stats.ProfID,
		"reviewCount":    stats.ReviewCount,
		"averageOverall": stats.AverageOverall(),
		"wouldTakeAgain": stats.WouldTakeAgainCount,
	})
}
