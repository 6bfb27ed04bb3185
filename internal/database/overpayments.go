package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listOpenOverpaymentEntities = `
SELECT contact_id, contact_name, account_class, available
FROM overpayment__entities($1)
`

// ListOpenOverpaymentEntities wraps overpayment__entities: contacts of one
// account class currently holding a credit balance.
func (q *Queries) ListOpenOverpaymentEntities(ctx context.Context, accountClass int32) ([]OverpaymentEntity, error) {
	rows, err := q.db.Query(ctx, listOpenOverpaymentEntities, accountClass)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OverpaymentEntity
	for rows.Next() {
		var i OverpaymentEntity
		if err := rows.Scan(&i.ContactID, &i.ContactName, &i.AccountClass, &i.Available); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listUnusedOverpayments = `
SELECT payment_id, contact_id, payment_date, amount, used, available, currency
FROM overpayment__unused($1, $2)
`

type ListUnusedOverpaymentsParams struct {
	AccountClass int32
	ContactID    pgtype.Int8
}

// ListUnusedOverpayments wraps overpayment__unused: credits with remaining
// balance, optionally filtered to one contact.
func (q *Queries) ListUnusedOverpayments(ctx context.Context, arg ListUnusedOverpaymentsParams) ([]Overpayment, error) {
	rows, err := q.db.Query(ctx, listUnusedOverpayments, arg.AccountClass, arg.ContactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Overpayment
	for rows.Next() {
		var i Overpayment
		if err := rows.Scan(&i.PaymentID, &i.ContactID, &i.PaymentDate, &i.Amount, &i.Used, &i.Available, &i.Currency); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getAvailableOverpayment = `
SELECT available FROM overpayment__available($1)
`

// GetAvailableOverpayment wraps overpayment__available: the total credit
// usable against a contact's future invoices. Returns pgx.ErrNoRows for an
// unknown contact.
func (q *Queries) GetAvailableOverpayment(ctx context.Context, contactID int64) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	err := q.db.QueryRow(ctx, getAvailableOverpayment, contactID).Scan(&n)
	return n, err
}

const reverseOverpayment = `
SELECT overpayment__reverse($1, $2, $3, $4, $5, $6)
`

type ReverseOverpaymentParams struct {
	PaymentID    int64
	PaymentDate  pgtype.Date
	BatchID      pgtype.Int8
	AccountClass int32
	ExchangeRate pgtype.Numeric
	Currency     string
}

// ReverseOverpayment wraps overpayment__reverse: posts the inverse
// transaction re-applying the original date, batch, account class,
// exchange rate and currency. Returns the reversal payment id.
func (q *Queries) ReverseOverpayment(ctx context.Context, arg ReverseOverpaymentParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, reverseOverpayment,
		arg.PaymentID, arg.PaymentDate, arg.BatchID, arg.AccountClass,
		arg.ExchangeRate, arg.Currency,
	).Scan(&id)
	return id, err
}
