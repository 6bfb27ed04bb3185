package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createJob = `
SELECT id, batch_id, status, total_count, success_count, fail_count, created_at, finished_at
FROM job__create($1)
`

// CreateJob wraps job__create. Exactly one job is created per queued batch
// invocation regardless of contact count.
func (q *Queries) CreateJob(ctx context.Context, batchID pgtype.Int8) (Job, error) {
	var j Job
	err := q.db.QueryRow(ctx, createJob, batchID).Scan(
		&j.ID, &j.BatchID, &j.Status, &j.TotalCount, &j.SuccessCount, &j.FailCount,
		&j.CreatedAt, &j.FinishedAt,
	)
	return j, err
}

const getJob = `
SELECT id, batch_id, status, total_count, success_count, fail_count, created_at, finished_at
FROM job__status($1)
`

// GetJob wraps job__status.
func (q *Queries) GetJob(ctx context.Context, id int64) (Job, error) {
	var j Job
	err := q.db.QueryRow(ctx, getJob, id).Scan(
		&j.ID, &j.BatchID, &j.Status, &j.TotalCount, &j.SuccessCount, &j.FailCount,
		&j.CreatedAt, &j.FinishedAt,
	)
	return j, err
}

const lockPendingJob = `
SELECT id, batch_id, status, total_count, success_count, fail_count, created_at, finished_at
FROM job__lock_pending()
`

// LockPendingJob wraps job__lock_pending: claims the oldest PENDING job
// (FOR UPDATE SKIP LOCKED inside the procedure) and flips it to
// IN_PROGRESS. Returns pgx.ErrNoRows when nothing is pending.
func (q *Queries) LockPendingJob(ctx context.Context) (Job, error) {
	var j Job
	err := q.db.QueryRow(ctx, lockPendingJob).Scan(
		&j.ID, &j.BatchID, &j.Status, &j.TotalCount, &j.SuccessCount, &j.FailCount,
		&j.CreatedAt, &j.FinishedAt,
	)
	return j, err
}

const listQueuedPayments = `
SELECT id, job_id, contact_id, account_class, currency, source, payment_date, lines, status, error
FROM payment_queue
WHERE job_id = $1 AND status = 'PENDING'
ORDER BY id
`

// ListQueuedPayments returns the pending submissions parked against a job.
func (q *Queries) ListQueuedPayments(ctx context.Context, jobID int64) ([]QueuedPayment, error) {
	rows, err := q.db.Query(ctx, listQueuedPayments, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []QueuedPayment
	for rows.Next() {
		var i QueuedPayment
		if err := rows.Scan(
			&i.ID, &i.JobID, &i.ContactID, &i.AccountClass, &i.Currency,
			&i.Source, &i.PaymentDate, &i.Lines, &i.Status, &i.Error,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const postQueuedPayment = `
SELECT payment_queue__post($1)
`

// PostQueuedPayment wraps payment_queue__post: posts one parked submission
// and marks the queue row POSTED. Returns the new payment id.
func (q *Queries) PostQueuedPayment(ctx context.Context, queuedID int64) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, postQueuedPayment, queuedID).Scan(&id)
	return id, err
}

const markQueuedPaymentFailed = `
UPDATE payment_queue SET status = 'FAILED', error = $2 WHERE id = $1
`

type MarkQueuedPaymentFailedParams struct {
	ID    int64
	Error string
}

func (q *Queries) MarkQueuedPaymentFailed(ctx context.Context, arg MarkQueuedPaymentFailedParams) error {
	_, err := q.db.Exec(ctx, markQueuedPaymentFailed, arg.ID, arg.Error)
	return err
}

const finishJob = `
UPDATE jobs
SET status = $2, success_count = $3, fail_count = $4, finished_at = now()
WHERE id = $1
RETURNING id, batch_id, status, total_count, success_count, fail_count, created_at, finished_at
`

type FinishJobParams struct {
	ID           int64
	Status       string
	SuccessCount int32
	FailCount    int32
}

// FinishJob records the terminal status and counts for a processed job.
func (q *Queries) FinishJob(ctx context.Context, arg FinishJobParams) (Job, error) {
	var j Job
	err := q.db.QueryRow(ctx, finishJob, arg.ID, arg.Status, arg.SuccessCount, arg.FailCount).Scan(
		&j.ID, &j.BatchID, &j.Status, &j.TotalCount, &j.SuccessCount, &j.FailCount,
		&j.CreatedAt, &j.FinishedAt,
	)
	return j, err
}
