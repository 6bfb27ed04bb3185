package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// User is an API user. Users are the only uuid-keyed rows; ledger entities
// keep the serial ids the stored procedures were written against.
type User struct {
	ID             uuid.UUID
	Email          string
	FullName       string
	HashedPassword string
	Role           string
	CreatedAt      time.Time
}

// Contact is a customer (receivable) or vendor (payable) entity.
type Contact struct {
	ID           int64
	Name         string
	AccountClass int32
	Currency     string
	TotalDue     pgtype.Numeric
	CreatedAt    time.Time
}

// Invoice belongs to one contact. Immutable once posted except for
// paid/due updates made by the posting procedures.
type Invoice struct {
	ID            int64
	ContactID     int64
	InvoiceNumber string
	InvoiceDate   pgtype.Date
	Amount        pgtype.Numeric
	Paid          pgtype.Numeric
	NetDue        pgtype.Numeric
	Currency      string
}

// Payment is a posted payment header, as returned by payment__get.
type Payment struct {
	ID           int64
	ContactID    int64
	AccountClass int32
	BatchID      pgtype.Int8
	PaymentDate  pgtype.Date
	Amount       pgtype.Numeric
	ExchangeRate pgtype.Numeric
	Currency     string
	Source       pgtype.Text
	Reversed     bool
}

// Job is an asynchronous posting unit created by job__create and polled
// through job__status.
type Job struct {
	ID           int64
	BatchID      pgtype.Int8
	Status       string
	TotalCount   int32
	SuccessCount int32
	FailCount    int32
	CreatedAt    time.Time
	FinishedAt   pgtype.Timestamptz
}

// QueuedPayment is one contact submission parked against a job, waiting
// for the worker.
type QueuedPayment struct {
	ID           int64
	JobID        int64
	ContactID    int64
	AccountClass int32
	Currency     string
	Source       string
	PaymentDate  pgtype.Date
	Lines        []string
	Status       string
	Error        pgtype.Text
}

// OverpaymentEntity is a contact currently holding a credit balance.
type OverpaymentEntity struct {
	ContactID    int64
	ContactName  string
	AccountClass int32
	Available    pgtype.Numeric
}

// Overpayment is a single unused (or partially used) credit.
type Overpayment struct {
	PaymentID   int64
	ContactID   int64
	PaymentDate pgtype.Date
	Amount      pgtype.Numeric
	Used        pgtype.Numeric
	Available   pgtype.Numeric
	Currency    string
}

// Setting is one persisted configuration row (e.g. queue_payments).
type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}
