package payment_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/ledgerbook/api/internal/database"
	"github.com/ledgerbook/api/internal/enum"
	"github.com/ledgerbook/api/internal/payment"
)

// --- Mock ReversalStore ---

type mockReversalStore struct {
	payments map[int64]database.Payment
	reversed []database.ReverseOverpaymentParams
}

func newMockReversalStore() *mockReversalStore {
	return &mockReversalStore{payments: make(map[int64]database.Payment)}
}

func (m *mockReversalStore) GetPayment(_ context.Context, id int64) (database.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return database.Payment{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockReversalStore) ReverseOverpayment(_ context.Context, arg database.ReverseOverpaymentParams) (int64, error) {
	m.reversed = append(m.reversed, arg)
	return 9001, nil
}

func makeNumeric(s string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(s)
	return n
}

// --- Tests ---

func TestReverse_EchoesOriginalPosting(t *testing.T) {
	store := newMockReversalStore()
	date := pgtype.Date{Time: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), Valid: true}
	store.payments[100] = database.Payment{
		ID:           100,
		ContactID:    1,
		AccountClass: enum.AccountClassPayable,
		BatchID:      pgtype.Int8{Int64: 7, Valid: true},
		PaymentDate:  date,
		Amount:       makeNumeric("120.00"),
		ExchangeRate: makeNumeric("1.0850"),
		Currency:     "USD",
	}

	svc := payment.NewOverpaymentService(store)
	id, err := svc.Reverse(context.Background(), 100)
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if id != 9001 {
		t.Errorf("reversal id = %d, want 9001", id)
	}

	if len(store.reversed) != 1 {
		t.Fatalf("expected 1 reversal call, got %d", len(store.reversed))
	}
	got := store.reversed[0]
	if got.PaymentID != 100 {
		t.Errorf("payment id = %d, want 100", got.PaymentID)
	}
	if !got.PaymentDate.Valid || !got.PaymentDate.Time.Equal(date.Time) {
		t.Errorf("payment date = %+v, want original %v", got.PaymentDate, date.Time)
	}
	if !got.BatchID.Valid || got.BatchID.Int64 != 7 {
		t.Errorf("batch id = %+v, want original 7", got.BatchID)
	}
	if got.AccountClass != enum.AccountClassPayable {
		t.Errorf("account class = %d, want original payable", got.AccountClass)
	}
	if got.Currency != "USD" {
		t.Errorf("currency = %q, want original USD", got.Currency)
	}
	rate, _ := got.ExchangeRate.Value()
	if rate != "1.0850" {
		t.Errorf("exchange rate = %v, want original 1.0850", rate)
	}
}

func TestReverse_AlreadyReversed(t *testing.T) {
	store := newMockReversalStore()
	store.payments[100] = database.Payment{ID: 100, Reversed: true, Currency: "EUR"}

	svc := payment.NewOverpaymentService(store)
	if _, err := svc.Reverse(context.Background(), 100); !errors.Is(err, payment.ErrAlreadyReversed) {
		t.Fatalf("expected ErrAlreadyReversed, got %v", err)
	}
	if len(store.reversed) != 0 {
		t.Error("reversal must not be issued twice")
	}
}

func TestReverse_NotFound(t *testing.T) {
	store := newMockReversalStore()
	svc := payment.NewOverpaymentService(store)

	if _, err := svc.Reverse(context.Background(), 999); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected pgx.ErrNoRows, got %v", err)
	}
}
