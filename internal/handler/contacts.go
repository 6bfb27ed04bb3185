package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/ledgerbook/api/internal/database"
	"github.com/ledgerbook/api/internal/enum"
)

// ContactStore defines the database methods needed by contact handlers.
type ContactStore interface {
	ListContacts(ctx context.Context, arg database.ListContactsParams) ([]database.Contact, error)
	GetContact(ctx context.Context, id int64) (database.Contact, error)
}

// ContactHandler serves customer/vendor entities with their outstanding
// totals.
type ContactHandler struct {
	store ContactStore
}

func NewContactHandler(store ContactStore) *ContactHandler {
	return &ContactHandler{store: store}
}

func (h *ContactHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// --- Response types ---

type contactResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	AccountClass int32     `json:"account_class"`
	Currency     string    `json:"currency"`
	TotalDue     string    `json:"total_due"`
	CreatedAt    time.Time `json:"created_at"`
}

// --- Handlers ---

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	params := database.ListContactsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}
	if v := r.URL.Query().Get("account_class"); v != "" {
		class, err := strconv.Atoi(v)
		if err != nil || (class != enum.AccountClassPayable && class != enum.AccountClassReceivable) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid account_class"})
			return
		}
		params.AccountClass = pgtype.Int4{Int32: int32(class), Valid: true}
	}

	contacts, err := h.store.ListContacts(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list contacts: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]contactResponse, 0, len(contacts))
	for _, c := range contacts {
		resp = append(resp, toContactResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	contact, err := h.store.GetContact(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "contact not found"})
			return
		}
		log.Printf("ERROR: get contact: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toContactResponse(contact))
}

// --- Helper functions ---

func toContactResponse(c database.Contact) contactResponse {
	return contactResponse{
		ID:           c.ID,
		Name:         c.Name,
		AccountClass: c.AccountClass,
		Currency:     c.Currency,
		TotalDue:     numericToString(c.TotalDue),
		CreatedAt:    c.CreatedAt,
	}
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	return val.(string)
}

func parsePagination(r *http.Request) (int, int) {
	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		fmt.Sscanf(v, "%d", &offset)
	}
	if limit < 1 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
