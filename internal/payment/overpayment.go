package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/ledgerbook/api/internal/database"
)

var ErrAlreadyReversed = errors.New("payment already reversed")

// ReversalStore defines the DB methods needed to reverse a payment.
// Satisfied by *database.Queries.
type ReversalStore interface {
	GetPayment(ctx context.Context, id int64) (database.Payment, error)
	ReverseOverpayment(ctx context.Context, arg database.ReverseOverpaymentParams) (int64, error)
}

// OverpaymentService reverses posted payments. Reads of open overpayment
// entities and balances are simple filtered queries served straight from
// the store by the handlers.
type OverpaymentService struct {
	store ReversalStore
}

func NewOverpaymentService(store ReversalStore) *OverpaymentService {
	return &OverpaymentService{store: store}
}

// Reverse posts the inverse transaction for a payment, re-applying the
// original posting date, batch, account class, exchange rate and currency
// so the round trip nets to zero outstanding effect. Returns the reversal
// payment id.
func (s *OverpaymentService) Reverse(ctx context.Context, paymentID int64) (int64, error) {
	p, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return 0, err
	}
	if p.Reversed {
		return 0, ErrAlreadyReversed
	}

	id, err := s.store.ReverseOverpayment(ctx, database.ReverseOverpaymentParams{
		PaymentID:    p.ID,
		PaymentDate:  p.PaymentDate,
		BatchID:      p.BatchID,
		AccountClass: p.AccountClass,
		ExchangeRate: p.ExchangeRate,
		Currency:     p.Currency,
	})
	if err != nil {
		return 0, fmt.Errorf("reverse payment %d: %w", paymentID, err)
	}
	return id, nil
}
