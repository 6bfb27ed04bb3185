package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const searchPayments = `
SELECT contact_id, contact_name, account_class, total_due,
       invoice_id, invoice_number, invoice_date, amount, paid, net_due
FROM payment__search($1, $2, $3, $4)
`

type SearchPaymentsParams struct {
	AccountClass int32
	Currency     pgtype.Text
	DateFrom     pgtype.Date
	DateTo       pgtype.Date
}

// SearchPaymentsRow is one invoice pending payment, flattened with its
// contact; callers group rows by contact_id.
type SearchPaymentsRow struct {
	ContactID     int64
	ContactName   string
	AccountClass  int32
	TotalDue      pgtype.Numeric
	InvoiceID     int64
	InvoiceNumber string
	InvoiceDate   pgtype.Date
	Amount        pgtype.Numeric
	Paid          pgtype.Numeric
	NetDue        pgtype.Numeric
}

// SearchPayments wraps payment__search: contacts with invoices pending
// payment for one account class, optionally filtered by currency and
// invoice date range.
func (q *Queries) SearchPayments(ctx context.Context, arg SearchPaymentsParams) ([]SearchPaymentsRow, error) {
	rows, err := q.db.Query(ctx, searchPayments, arg.AccountClass, arg.Currency, arg.DateFrom, arg.DateTo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SearchPaymentsRow
	for rows.Next() {
		var i SearchPaymentsRow
		if err := rows.Scan(
			&i.ContactID, &i.ContactName, &i.AccountClass, &i.TotalDue,
			&i.InvoiceID, &i.InvoiceNumber, &i.InvoiceDate, &i.Amount, &i.Paid, &i.NetDue,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const postPayment = `
SELECT payment_post($1, $2, $3, $4, $5, $6, $7)
`

type PostPaymentParams struct {
	ContactID    int64
	AccountClass int32
	InvoiceID    int64
	Amount       pgtype.Numeric
	Currency     string
	Source       string
	PaymentDate  pgtype.Date
}

// PostPayment wraps payment_post: a single invoice/amount pair posted
// immediately. Returns the new payment id.
func (q *Queries) PostPayment(ctx context.Context, arg PostPaymentParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, postPayment,
		arg.ContactID, arg.AccountClass, arg.InvoiceID, arg.Amount,
		arg.Currency, arg.Source, arg.PaymentDate,
	).Scan(&id)
	return id, err
}

const bulkPostPayment = `
SELECT payment_bulk_post($1, $2, $3, $4, $5, $6, $7)
`

type BulkPostPaymentParams struct {
	ContactID    int64
	AccountClass int32
	BatchID      pgtype.Int8
	Currency     string
	Source       string
	PaymentDate  pgtype.Date
	Lines        []string
}

// BulkPostPayment wraps payment_bulk_post: one contact's aggregated
// submission, lines encoded as "{invoice_id,amount}" array literals.
// Returns the new payment id.
func (q *Queries) BulkPostPayment(ctx context.Context, arg BulkPostPaymentParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, bulkPostPayment,
		arg.ContactID, arg.AccountClass, arg.BatchID, arg.Currency,
		arg.Source, arg.PaymentDate, arg.Lines,
	).Scan(&id)
	return id, err
}

const bulkQueuePayment = `
SELECT payment_bulk_queue($1, $2, $3, $4, $5, $6, $7)
`

type BulkQueuePaymentParams struct {
	JobID        int64
	ContactID    int64
	AccountClass int32
	Currency     string
	Source       string
	PaymentDate  pgtype.Date
	Lines        []string
}

// BulkQueuePayment wraps payment_bulk_queue: parks one contact's
// submission against a job for the worker. Returns the queue row id.
func (q *Queries) BulkQueuePayment(ctx context.Context, arg BulkQueuePaymentParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, bulkQueuePayment,
		arg.JobID, arg.ContactID, arg.AccountClass, arg.Currency,
		arg.Source, arg.PaymentDate, arg.Lines,
	).Scan(&id)
	return id, err
}

const getPayment = `
SELECT id, contact_id, account_class, batch_id, payment_date,
       amount, exchange_rate, currency, source, reversed
FROM payment__get($1)
`

// GetPayment wraps payment__get: the posted payment header, including the
// original posting date, batch, account class, exchange rate and currency
// a reversal must re-apply.
func (q *Queries) GetPayment(ctx context.Context, id int64) (Payment, error) {
	var p Payment
	err := q.db.QueryRow(ctx, getPayment, id).Scan(
		&p.ID, &p.ContactID, &p.AccountClass, &p.BatchID, &p.PaymentDate,
		&p.Amount, &p.ExchangeRate, &p.Currency, &p.Source, &p.Reversed,
	)
	return p, err
}
