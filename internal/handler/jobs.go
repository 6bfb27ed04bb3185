package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/ledgerbook/api/internal/database"
)

// JobStore defines the database methods needed by job handlers.
type JobStore interface {
	GetJob(ctx context.Context, id int64) (database.Job, error)
}

// JobHandler serves job status polling.
type JobHandler struct {
	store JobStore
}

func NewJobHandler(store JobStore) *JobHandler {
	return &JobHandler{store: store}
}

func (h *JobHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{id}", h.Get)
}

// --- Response types ---

type jobResponse struct {
	ID           int64     `json:"id"`
	BatchID      *int64    `json:"batch_id"`
	Status       string    `json:"status"`
	TotalCount   int32     `json:"total_count"`
	SuccessCount int32     `json:"success_count"`
	FailCount    int32     `json:"fail_count"`
	CreatedAt    time.Time `json:"created_at"`
	FinishedAt   *string   `json:"finished_at"`
}

// --- Handlers ---

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	job, err := h.store.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
			return
		}
		log.Printf("ERROR: get job: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toJobResponse(job))
}

// --- Helper functions ---

func toJobResponse(j database.Job) jobResponse {
	resp := jobResponse{
		ID:           j.ID,
		Status:       j.Status,
		TotalCount:   j.TotalCount,
		SuccessCount: j.SuccessCount,
		FailCount:    j.FailCount,
		CreatedAt:    j.CreatedAt,
	}
	if j.BatchID.Valid {
		resp.BatchID = &j.BatchID.Int64
	}
	if j.FinishedAt.Valid {
		s := j.FinishedAt.Time.Format(time.RFC3339)
		resp.FinishedAt = &s
	}
	return resp
}
