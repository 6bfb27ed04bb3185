package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ledgerbook/api/internal/database"
	"github.com/ledgerbook/api/internal/enum"
	"github.com/ledgerbook/api/internal/logger"
	"github.com/ledgerbook/api/internal/ws"
	"github.com/rs/zerolog"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store defines the DB methods needed to process queued jobs.
// Satisfied by *database.Queries (and its WithTx variant).
type Store interface {
	LockPendingJob(ctx context.Context) (database.Job, error)
	ListQueuedPayments(ctx context.Context, jobID int64) ([]database.QueuedPayment, error)
	PostQueuedPayment(ctx context.Context, queuedID int64) (int64, error)
	MarkQueuedPaymentFailed(ctx context.Context, arg database.MarkQueuedPaymentFailedParams) error
	FinishJob(ctx context.Context, arg database.FinishJobParams) (database.Job, error)
}

// NewStore creates a Store from a DBTX (pool or tx). This allows the
// worker to create store instances bound to its claiming transaction.
type NewStore func(db database.DBTX) Store

// Broadcaster publishes job events to watching clients. Satisfied by
// *ws.Hub; nil disables publishing.
type Broadcaster interface {
	BroadcastToJob(jobID int64, event ws.Event)
}

// Worker polls for PENDING jobs and posts their parked submissions.
// A single transaction spans claim-to-finish so a crashed worker releases
// the job lock and the job stays PENDING for the next tick. Each posting
// runs under a savepoint inside that transaction so one bad submission
// cannot abort the claim.
type Worker struct {
	pool     TxBeginner
	newStore NewStore
	hub      Broadcaster
	interval time.Duration
	log      zerolog.Logger
}

func New(pool TxBeginner, newStore NewStore, hub Broadcaster, interval time.Duration) *Worker {
	return &Worker{
		pool:     pool,
		newStore: newStore,
		hub:      hub,
		interval: interval,
		log:      logger.WithComponent("worker"),
	}
}

// Run polls until the context is cancelled. After processing a job it
// re-polls immediately so a backlog drains without the tick delay.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("worker started")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("worker stopped")
			return
		case <-ticker.C:
			for {
				processed, err := w.ProcessNext(ctx)
				if err != nil {
					w.log.Error().Err(err).Msg("process job")
					break
				}
				if !processed {
					break
				}
			}
		}
	}
}

// ProcessNext claims and processes at most one pending job. Returns false
// when the queue is empty. Job events buffer until commit so watchers
// never see progress for a claim that rolls back.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := w.newStore(tx)

	job, err := store.LockPendingJob(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lock pending job: %w", err)
	}

	w.log.Info().Int64("job_id", job.ID).Int32("total", job.TotalCount).Msg("processing job")
	events := appendEvent(nil, ws.EventJobStarted, map[string]interface{}{
		"job_id": job.ID,
		"total":  job.TotalCount,
	})

	queued, err := store.ListQueuedPayments(ctx, job.ID)
	if err != nil {
		return false, fmt.Errorf("list queued payments for job %d: %w", job.ID, err)
	}

	var succeeded, failed int32
	for i, qp := range queued {
		// payment_queue__post raises on a bad submission, which puts the
		// whole session in an aborted state. The savepoint confines the
		// abort so the failure can be recorded and the job finalized.
		sp, err := tx.Begin(ctx)
		if err != nil {
			return false, fmt.Errorf("begin savepoint for queued payment %d: %w", qp.ID, err)
		}
		paymentID, postErr := w.newStore(sp).PostQueuedPayment(ctx, qp.ID)
		if postErr != nil {
			if err := sp.Rollback(ctx); err != nil {
				return false, fmt.Errorf("rollback savepoint for queued payment %d: %w", qp.ID, err)
			}
			failed++
			w.log.Warn().Err(postErr).Int64("job_id", job.ID).Int64("contact_id", qp.ContactID).Msg("queued payment failed")
			if err := store.MarkQueuedPaymentFailed(ctx, database.MarkQueuedPaymentFailedParams{
				ID:    qp.ID,
				Error: postErr.Error(),
			}); err != nil {
				return false, fmt.Errorf("mark queued payment %d failed: %w", qp.ID, err)
			}
		} else {
			if err := sp.Commit(ctx); err != nil {
				return false, fmt.Errorf("release savepoint for queued payment %d: %w", qp.ID, err)
			}
			succeeded++
			w.log.Debug().Int64("job_id", job.ID).Int64("contact_id", qp.ContactID).Int64("payment_id", paymentID).Msg("queued payment posted")
		}

		events = appendEvent(events, ws.EventJobProgress, map[string]interface{}{
			"job_id":    job.ID,
			"processed": i + 1,
			"total":     len(queued),
			"succeeded": succeeded,
			"failed":    failed,
		})
	}

	status := enum.JobStatusCompleted
	switch {
	case failed > 0 && succeeded == 0:
		status = enum.JobStatusFailed
	case failed > 0:
		status = enum.JobStatusCompletedWithErrors
	}

	finished, err := store.FinishJob(ctx, database.FinishJobParams{
		ID:           job.ID,
		Status:       status,
		SuccessCount: succeeded,
		FailCount:    failed,
	})
	if err != nil {
		return false, fmt.Errorf("finish job %d: %w", job.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit job %d: %w", job.ID, err)
	}

	w.log.Info().Int64("job_id", job.ID).Str("status", finished.Status).
		Int32("succeeded", finished.SuccessCount).Int32("failed", finished.FailCount).Msg("job finished")
	events = appendEvent(events, ws.EventJobFinished, map[string]interface{}{
		"job_id":    finished.ID,
		"status":    finished.Status,
		"succeeded": finished.SuccessCount,
		"failed":    finished.FailCount,
	})
	w.publish(job.ID, events)

	return true, nil
}

// appendEvent marshals the payload onto the buffered event list. Marshal
// failures drop the event.
func appendEvent(events []ws.Event, eventType string, payload map[string]interface{}) []ws.Event {
	data, err := json.Marshal(payload)
	if err != nil {
		return events
	}
	return append(events, ws.Event{Type: eventType, Payload: data})
}

func (w *Worker) publish(jobID int64, events []ws.Event) {
	if w.hub == nil {
		return
	}
	for _, ev := range events {
		w.hub.BroadcastToJob(jobID, ev)
	}
}
