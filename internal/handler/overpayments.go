package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/ledgerbook/api/internal/database"
	"github.com/ledgerbook/api/internal/enum"
)

// OverpaymentStore defines the database methods needed by overpayment
// handlers.
type OverpaymentStore interface {
	ListOpenOverpaymentEntities(ctx context.Context, accountClass int32) ([]database.OverpaymentEntity, error)
	ListUnusedOverpayments(ctx context.Context, arg database.ListUnusedOverpaymentsParams) ([]database.Overpayment, error)
	GetAvailableOverpayment(ctx context.Context, contactID int64) (pgtype.Numeric, error)
}

// OverpaymentHandler serves the overpayment read endpoints. These are
// simple filtered queries; reversal lives on the payment handler.
type OverpaymentHandler struct {
	store OverpaymentStore
}

func NewOverpaymentHandler(store OverpaymentStore) *OverpaymentHandler {
	return &OverpaymentHandler{store: store}
}

func (h *OverpaymentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/open", h.ListOpen)
	r.Get("/unused", h.ListUnused)
	r.Get("/available", h.Available)
}

// --- Response types ---

type overpaymentEntityResponse struct {
	ContactID    int64  `json:"contact_id"`
	ContactName  string `json:"contact_name"`
	AccountClass int32  `json:"account_class"`
	Available    string `json:"available"`
}

type overpaymentResponse struct {
	PaymentID   int64  `json:"payment_id"`
	ContactID   int64  `json:"contact_id"`
	PaymentDate string `json:"payment_date"`
	Amount      string `json:"amount"`
	Used        string `json:"used"`
	Available   string `json:"available"`
	Currency    string `json:"currency"`
}

// --- Handlers ---

func (h *OverpaymentHandler) ListOpen(w http.ResponseWriter, r *http.Request) {
	class, ok := parseAccountClass(w, r)
	if !ok {
		return
	}

	entities, err := h.store.ListOpenOverpaymentEntities(r.Context(), class)
	if err != nil {
		log.Printf("ERROR: list open overpayment entities: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]overpaymentEntityResponse, 0, len(entities))
	for _, e := range entities {
		resp = append(resp, overpaymentEntityResponse{
			ContactID:    e.ContactID,
			ContactName:  e.ContactName,
			AccountClass: e.AccountClass,
			Available:    numericToString(e.Available),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OverpaymentHandler) ListUnused(w http.ResponseWriter, r *http.Request) {
	class, ok := parseAccountClass(w, r)
	if !ok {
		return
	}

	params := database.ListUnusedOverpaymentsParams{AccountClass: class}
	if v := r.URL.Query().Get("contact_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid contact_id"})
			return
		}
		params.ContactID = pgtype.Int8{Int64: id, Valid: true}
	}

	overpayments, err := h.store.ListUnusedOverpayments(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list unused overpayments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]overpaymentResponse, 0, len(overpayments))
	for _, o := range overpayments {
		resp = append(resp, overpaymentResponse{
			PaymentID:   o.PaymentID,
			ContactID:   o.ContactID,
			PaymentDate: o.PaymentDate.Time.Format("2006-01-02"),
			Amount:      numericToString(o.Amount),
			Used:        numericToString(o.Used),
			Available:   numericToString(o.Available),
			Currency:    o.Currency,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OverpaymentHandler) Available(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query().Get("contact_id")
	if v == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "contact_id is required"})
		return
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid contact_id"})
		return
	}

	available, err := h.store.GetAvailableOverpayment(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "contact not found"})
			return
		}
		log.Printf("ERROR: get available overpayment: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"available": numericToString(available)})
}

// --- Helper functions ---

func parseAccountClass(w http.ResponseWriter, r *http.Request) (int32, bool) {
	v := r.URL.Query().Get("account_class")
	if v == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "account_class is required"})
		return 0, false
	}
	class, err := strconv.Atoi(v)
	if err != nil || (class != enum.AccountClassPayable && class != enum.AccountClassReceivable) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid account_class"})
		return 0, false
	}
	return int32(class), true
}
