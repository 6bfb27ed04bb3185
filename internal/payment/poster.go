package payment

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/ledgerbook/api/internal/database"
)

// PosterStore defines the DB methods needed to post a batch.
// Satisfied by *database.Queries.
type PosterStore interface {
	GetQueuePaymentsSetting(ctx context.Context) (bool, error)
	CreateJob(ctx context.Context, batchID pgtype.Int8) (database.Job, error)
	BulkPostPayment(ctx context.Context, arg database.BulkPostPaymentParams) (int64, error)
	BulkQueuePayment(ctx context.Context, arg database.BulkQueuePaymentParams) (int64, error)
}

// ContactResult records the outcome for one contact's submission.
type ContactResult struct {
	ContactID int64  `json:"contact_id"`
	Source    string `json:"source"`
	// PaymentID is the posted payment (immediate mode) or the queue row
	// (queued mode); zero when the submission failed.
	PaymentID int64  `json:"payment_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BatchReport aggregates a batch run. Per-contact posting failures do not
// abort the remaining contacts; they are collected here instead.
type BatchReport struct {
	Queued    bool             `json:"queued"`
	JobID     *int64           `json:"job_id,omitempty"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Results   []ContactResult  `json:"results"`
	Sources   map[int64]string `json:"sources"`
}

// Poster posts collected submissions either immediately or queued against
// a job, depending on the persisted queue_payments setting.
type Poster struct {
	store PosterStore
}

func NewPoster(store PosterStore) *Poster {
	return &Poster{store: store}
}

// PostBatch runs the whole workflow: collect and validate (no database
// effect on failure), then post or queue each contact's submission. Each
// bulk call is transactional on the database side; no outer transaction
// spans contacts, so one contact's failure leaves the others posted.
func (p *Poster) PostBatch(ctx context.Context, req BatchRequest) (*BatchReport, error) {
	col, err := Collect(req)
	if err != nil {
		return nil, err
	}

	queued, err := p.store.GetQueuePaymentsSetting(ctx)
	if err != nil {
		return nil, fmt.Errorf("read queue_payments setting: %w", err)
	}

	report := &BatchReport{Queued: queued, Sources: col.Sources}
	if len(col.Submissions) == 0 {
		return report, nil
	}

	batchID := pgtype.Int8{}
	if req.BatchID != nil {
		batchID = pgtype.Int8{Int64: *req.BatchID, Valid: true}
	}
	paymentDate := pgtype.Date{Time: req.PaymentDate, Valid: true}

	if queued {
		// One job per batch invocation regardless of contact count.
		job, err := p.store.CreateJob(ctx, batchID)
		if err != nil {
			return nil, fmt.Errorf("create job: %w", err)
		}
		report.JobID = &job.ID

		for _, sub := range col.Submissions {
			res := ContactResult{ContactID: sub.ContactID, Source: sub.Source}
			id, err := p.store.BulkQueuePayment(ctx, database.BulkQueuePaymentParams{
				JobID:        job.ID,
				ContactID:    sub.ContactID,
				AccountClass: req.AccountClass,
				Currency:     req.Currency,
				Source:       sub.Source,
				PaymentDate:  paymentDate,
				Lines:        sub.EncodedLines(),
			})
			if err != nil {
				res.Error = err.Error()
				report.Failed++
			} else {
				res.PaymentID = id
				report.Succeeded++
			}
			report.Results = append(report.Results, res)
		}
		return report, nil
	}

	for _, sub := range col.Submissions {
		res := ContactResult{ContactID: sub.ContactID, Source: sub.Source}
		id, err := p.store.BulkPostPayment(ctx, database.BulkPostPaymentParams{
			ContactID:    sub.ContactID,
			AccountClass: req.AccountClass,
			BatchID:      batchID,
			Currency:     req.Currency,
			Source:       sub.Source,
			PaymentDate:  paymentDate,
			Lines:        sub.EncodedLines(),
		})
		if err != nil {
			res.Error = err.Error()
			report.Failed++
		} else {
			res.PaymentID = id
			report.Succeeded++
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}
