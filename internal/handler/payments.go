package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/ledgerbook/api/internal/database"
	"github.com/ledgerbook/api/internal/enum"
	"github.com/ledgerbook/api/internal/payment"
	"github.com/shopspring/decimal"
)

// PaymentStore defines the database methods needed by payment handlers.
type PaymentStore interface {
	SearchPayments(ctx context.Context, arg database.SearchPaymentsParams) ([]database.SearchPaymentsRow, error)
	PostPayment(ctx context.Context, arg database.PostPaymentParams) (int64, error)
}

// BatchPoster runs the batch workflow. Satisfied by *payment.Poster.
type BatchPoster interface {
	PostBatch(ctx context.Context, req payment.BatchRequest) (*payment.BatchReport, error)
}

// PaymentReverser reverses a posted payment. Satisfied by
// *payment.OverpaymentService.
type PaymentReverser interface {
	Reverse(ctx context.Context, paymentID int64) (int64, error)
}

// PaymentHandler handles the payment batch endpoints.
type PaymentHandler struct {
	store    PaymentStore
	poster   BatchPoster
	reverser PaymentReverser
}

func NewPaymentHandler(store PaymentStore, poster BatchPoster, reverser PaymentReverser) *PaymentHandler {
	return &PaymentHandler{store: store, poster: poster, reverser: reverser}
}

func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/search", h.Search)
	r.Post("/", h.Post)
	r.Post("/batch", h.PostBatch)
	r.Post("/{id}/reverse", h.Reverse)
}

// --- Request / Response types ---

type searchContactResponse struct {
	ContactID    int64                   `json:"contact_id"`
	ContactName  string                  `json:"contact_name"`
	AccountClass int32                   `json:"account_class"`
	TotalDue     string                  `json:"total_due"`
	Invoices     []searchInvoiceResponse `json:"invoices"`
}

type searchInvoiceResponse struct {
	InvoiceID     int64  `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number"`
	InvoiceDate   string `json:"invoice_date"`
	Amount        string `json:"amount"`
	Paid          string `json:"paid"`
	NetDue        string `json:"net_due"`
}

type batchContactRequest struct {
	ContactID int64                 `json:"contact_id"`
	Selected  bool                  `json:"selected"`
	Mode      string                `json:"mode"`
	Invoices  []batchInvoiceRequest `json:"invoices"`
}

type batchInvoiceRequest struct {
	InvoiceID int64  `json:"invoice_id"`
	NetDue    string `json:"net_due"`
	Payment   string `json:"payment"`
}

type postBatchRequest struct {
	AccountClass int32                 `json:"account_class"`
	Currency     string                `json:"currency"`
	SourceStart  string                `json:"source_start"`
	BatchID      *int64                `json:"batch_id"`
	PaymentDate  string                `json:"payment_date"`
	Contacts     []batchContactRequest `json:"contacts"`
}

type postPaymentRequest struct {
	ContactID    int64  `json:"contact_id"`
	AccountClass int32  `json:"account_class"`
	InvoiceID    int64  `json:"invoice_id"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	Source       string `json:"source"`
	PaymentDate  string `json:"payment_date"`
}

type postPaymentResponse struct {
	PaymentID int64 `json:"payment_id"`
}

type reverseResponse struct {
	ReversalPaymentID int64 `json:"reversal_payment_id"`
}

// --- Handlers ---

// Search handles GET /payments/search: contacts with invoices pending
// payment, grouped per contact.
func (h *PaymentHandler) Search(w http.ResponseWriter, r *http.Request) {
	classStr := r.URL.Query().Get("account_class")
	if classStr == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "account_class is required"})
		return
	}
	class, err := strconv.Atoi(classStr)
	if err != nil || (class != enum.AccountClassPayable && class != enum.AccountClassReceivable) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid account_class"})
		return
	}

	params := database.SearchPaymentsParams{AccountClass: int32(class)}
	if v := r.URL.Query().Get("currency"); v != "" {
		params.Currency = pgtype.Text{String: v, Valid: true}
	}
	if v := r.URL.Query().Get("date_from"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date_from"})
			return
		}
		params.DateFrom = pgtype.Date{Time: d, Valid: true}
	}
	if v := r.URL.Query().Get("date_to"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date_to"})
			return
		}
		params.DateTo = pgtype.Date{Time: d, Valid: true}
	}

	rows, err := h.store.SearchPayments(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: search payments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, groupSearchRows(rows))
}

// PostBatch handles POST /payments/batch: the full collect, number,
// post-or-queue workflow. Validation failures return 400 before any
// database effect; per-contact posting failures come back in the report.
func (h *PaymentHandler) PostBatch(w http.ResponseWriter, r *http.Request) {
	var req postBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.PaymentDate == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "payment_date is required"})
		return
	}
	date, err := time.Parse("2006-01-02", req.PaymentDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payment_date format, expected YYYY-MM-DD"})
		return
	}

	batchReq := payment.BatchRequest{
		AccountClass: req.AccountClass,
		Currency:     req.Currency,
		SourceStart:  req.SourceStart,
		BatchID:      req.BatchID,
		PaymentDate:  date,
		Contacts:     make([]payment.ContactSelection, 0, len(req.Contacts)),
	}
	for _, c := range req.Contacts {
		sel := payment.ContactSelection{
			ContactID: c.ContactID,
			Selected:  c.Selected,
			Mode:      c.Mode,
			Invoices:  make([]payment.InvoiceSelection, 0, len(c.Invoices)),
		}
		for _, inv := range c.Invoices {
			sel.Invoices = append(sel.Invoices, payment.InvoiceSelection{
				InvoiceID: inv.InvoiceID,
				NetDue:    inv.NetDue,
				Payment:   inv.Payment,
			})
		}
		batchReq.Contacts = append(batchReq.Contacts, sel)
	}

	report, err := h.poster.PostBatch(r.Context(), batchReq)
	if err != nil {
		if isBatchValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: post payment batch: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// Post handles POST /payments: a single invoice/amount pair posted outside
// the batch workflow.
func (h *PaymentHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req postPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.ContactID == 0 || req.InvoiceID == 0 || req.Amount == "" || req.Currency == "" || req.PaymentDate == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "contact_id, invoice_id, amount, currency and payment_date are required"})
		return
	}
	if req.AccountClass != enum.AccountClassPayable && req.AccountClass != enum.AccountClassReceivable {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid account_class"})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount must be a positive decimal"})
		return
	}
	date, err := time.Parse("2006-01-02", req.PaymentDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payment_date format, expected YYYY-MM-DD"})
		return
	}

	var num pgtype.Numeric
	if err := num.Scan(amount.String()); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount must be a positive decimal"})
		return
	}

	id, err := h.store.PostPayment(r.Context(), database.PostPaymentParams{
		ContactID:    req.ContactID,
		AccountClass: req.AccountClass,
		InvoiceID:    req.InvoiceID,
		Amount:       num,
		Currency:     req.Currency,
		Source:       req.Source,
		PaymentDate:  pgtype.Date{Time: date, Valid: true},
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "P0001" {
			// Constraint raised inside the posting procedure, e.g. the
			// invoice does not belong to the contact.
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": pgErr.Message})
			return
		}
		log.Printf("ERROR: post payment: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, postPaymentResponse{PaymentID: id})
}

// Reverse handles POST /payments/{id}/reverse.
func (h *PaymentHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	reversalID, err := h.reverser.Reverse(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "payment not found"})
			return
		}
		if errors.Is(err, payment.ErrAlreadyReversed) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "payment already reversed"})
			return
		}
		log.Printf("ERROR: reverse payment: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, reverseResponse{ReversalPaymentID: reversalID})
}

// --- Helper functions ---

func groupSearchRows(rows []database.SearchPaymentsRow) []searchContactResponse {
	result := make([]searchContactResponse, 0)
	idx := make(map[int64]int)
	for _, row := range rows {
		i, ok := idx[row.ContactID]
		if !ok {
			result = append(result, searchContactResponse{
				ContactID:    row.ContactID,
				ContactName:  row.ContactName,
				AccountClass: row.AccountClass,
				TotalDue:     numericToString(row.TotalDue),
				Invoices:     []searchInvoiceResponse{},
			})
			i = len(result) - 1
			idx[row.ContactID] = i
		}
		result[i].Invoices = append(result[i].Invoices, searchInvoiceResponse{
			InvoiceID:     row.InvoiceID,
			InvoiceNumber: row.InvoiceNumber,
			InvoiceDate:   row.InvoiceDate.Time.Format("2006-01-02"),
			Amount:        numericToString(row.Amount),
			Paid:          numericToString(row.Paid),
			NetDue:        numericToString(row.NetDue),
		})
	}
	return result
}

// isBatchValidationError distinguishes caller mistakes (400) from
// database-side failures (500).
func isBatchValidationError(err error) bool {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return true
	}
	return errors.Is(err, payment.ErrSourceStartRequired) ||
		errors.Is(err, payment.ErrInvalidMode) ||
		errors.Is(err, payment.ErrMalformedAmount) ||
		errors.Is(err, payment.ErrMalformedLine)
}
