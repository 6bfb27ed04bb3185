package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ledgerbook/api/internal/database"
	"github.com/ledgerbook/api/internal/enum"
	"github.com/ledgerbook/api/internal/ws"
)

// --- Mocks ---

// mockSession models one PostgreSQL session: after a statement fails, every
// following statement returns SQLSTATE 25P02 until the enclosing savepoint
// (or transaction) rolls back.
type mockSession struct {
	aborted bool
}

func abortedErr() error {
	return &pgconn.PgError{
		Code:    "25P02",
		Message: "current transaction is aborted, commands ignored until end of transaction block",
	}
}

// mockTx implements pgx.Tx with only the methods we need. Begin returns a
// savepoint bound to the same session.
type mockTx struct {
	session    *mockSession
	savepoint  bool
	committed  bool
	rolledBack bool
	commitErr  error
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.session.aborted {
		return nil, abortedErr()
	}
	return &mockTx{session: m.session, savepoint: true}, nil
}
func (m *mockTx) Commit(ctx context.Context) error {
	if m.session.aborted {
		return abortedErr()
	}
	m.committed = true
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error {
	m.rolledBack = true
	if m.savepoint {
		m.session.aborted = false
	}
	return nil
}
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.tx, nil
}

// mockStore implements Store with the session's abort rules applied to
// every statement.
type mockStore struct {
	session   *mockSession
	job       *database.Job
	queued    []database.QueuedPayment
	failIDs   map[int64]error // queue row id -> posting error
	marked    []database.MarkQueuedPaymentFailedParams
	finished  *database.FinishJobParams
	nextPayID int64
}

func (m *mockStore) LockPendingJob(_ context.Context) (database.Job, error) {
	if m.session.aborted {
		return database.Job{}, abortedErr()
	}
	if m.job == nil {
		return database.Job{}, pgx.ErrNoRows
	}
	j := *m.job
	j.Status = enum.JobStatusInProgress
	return j, nil
}

func (m *mockStore) ListQueuedPayments(_ context.Context, jobID int64) ([]database.QueuedPayment, error) {
	if m.session.aborted {
		return nil, abortedErr()
	}
	return m.queued, nil
}

func (m *mockStore) PostQueuedPayment(_ context.Context, queuedID int64) (int64, error) {
	if m.session.aborted {
		return 0, abortedErr()
	}
	if err, ok := m.failIDs[queuedID]; ok {
		m.session.aborted = true
		return 0, err
	}
	m.nextPayID++
	return m.nextPayID, nil
}

func (m *mockStore) MarkQueuedPaymentFailed(_ context.Context, arg database.MarkQueuedPaymentFailedParams) error {
	if m.session.aborted {
		return abortedErr()
	}
	m.marked = append(m.marked, arg)
	return nil
}

func (m *mockStore) FinishJob(_ context.Context, arg database.FinishJobParams) (database.Job, error) {
	if m.session.aborted {
		return database.Job{}, abortedErr()
	}
	m.finished = &arg
	return database.Job{
		ID:           arg.ID,
		Status:       arg.Status,
		TotalCount:   int32(len(m.queued)),
		SuccessCount: arg.SuccessCount,
		FailCount:    arg.FailCount,
	}, nil
}

// mockBroadcaster records published events.
type mockBroadcaster struct {
	events []ws.Event
}

func (m *mockBroadcaster) BroadcastToJob(jobID int64, event ws.Event) {
	m.events = append(m.events, event)
}

// --- Helpers ---

func newTestWorker(store *mockStore) (*Worker, *mockTx, *mockBroadcaster) {
	session := &mockSession{}
	store.session = session
	tx := &mockTx{session: session}
	pool := &mockTxBeginner{tx: tx}
	hub := &mockBroadcaster{}
	w := New(pool, func(db database.DBTX) Store { return store }, hub, time.Second)
	return w, tx, hub
}

func queuedPayment(id, jobID, contactID int64) database.QueuedPayment {
	return database.QueuedPayment{
		ID:           id,
		JobID:        jobID,
		ContactID:    contactID,
		AccountClass: int32(enum.AccountClassPayable),
		Currency:     "USD",
		Source:       "INV-099",
		Lines:        []string{"{10,50.00}"},
		Status:       enum.QueuedPaymentStatusPending,
	}
}

// --- Tests ---

func TestProcessNext_NoPendingJob(t *testing.T) {
	store := &mockStore{}
	w, tx, hub := newTestWorker(store)

	processed, err := w.ProcessNext(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed {
		t.Error("expected processed=false with empty queue")
	}
	if tx.committed {
		t.Error("no job claimed, tx must not commit")
	}
	if !tx.rolledBack {
		t.Error("expected rollback on idle tick")
	}
	if len(hub.events) != 0 {
		t.Errorf("expected no events on idle tick, got %d", len(hub.events))
	}
}

func TestProcessNext_AllSucceed(t *testing.T) {
	store := &mockStore{
		job: &database.Job{ID: 300, Status: enum.JobStatusPending, TotalCount: 2},
		queued: []database.QueuedPayment{
			queuedPayment(1, 300, 10),
			queuedPayment(2, 300, 11),
		},
	}
	w, tx, hub := newTestWorker(store)

	processed, err := w.ProcessNext(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !processed {
		t.Fatal("expected processed=true")
	}
	if !tx.committed {
		t.Error("expected commit after processing")
	}
	if store.finished == nil {
		t.Fatal("expected FinishJob to be called")
	}
	if store.finished.Status != enum.JobStatusCompleted {
		t.Errorf("status: got %s, want %s", store.finished.Status, enum.JobStatusCompleted)
	}
	if store.finished.SuccessCount != 2 || store.finished.FailCount != 0 {
		t.Errorf("counts: got %d/%d, want 2/0", store.finished.SuccessCount, store.finished.FailCount)
	}
	if len(store.marked) != 0 {
		t.Errorf("expected no failed marks, got %d", len(store.marked))
	}
	// started + 2 progress + finished
	if len(hub.events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(hub.events))
	}
	if hub.events[0].Type != ws.EventJobStarted || hub.events[3].Type != ws.EventJobFinished {
		t.Errorf("event order: got %s..%s", hub.events[0].Type, hub.events[3].Type)
	}
}

// A raised error inside a posting aborts the session until its savepoint
// rolls back; the failure must still be recorded and the job finalized.
func TestProcessNext_FailedRowDoesNotAbortClaim(t *testing.T) {
	store := &mockStore{
		job: &database.Job{ID: 300, Status: enum.JobStatusPending, TotalCount: 2},
		queued: []database.QueuedPayment{
			queuedPayment(1, 300, 10),
			queuedPayment(2, 300, 11),
		},
		failIDs: map[int64]error{1: errors.New("invoice 10 not found")},
	}
	w, tx, _ := newTestWorker(store)

	processed, err := w.ProcessNext(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !processed {
		t.Fatal("expected processed=true")
	}
	if !tx.committed {
		t.Error("expected commit despite first row failing")
	}
	if store.finished == nil {
		t.Fatal("expected FinishJob to be called")
	}
	if store.finished.Status != enum.JobStatusCompletedWithErrors {
		t.Errorf("status: got %s, want %s", store.finished.Status, enum.JobStatusCompletedWithErrors)
	}
	if store.finished.SuccessCount != 1 || store.finished.FailCount != 1 {
		t.Errorf("counts: got %d/%d, want 1/1", store.finished.SuccessCount, store.finished.FailCount)
	}
	if len(store.marked) != 1 || store.marked[0].ID != 1 {
		t.Fatalf("expected queue row 1 marked failed, got %+v", store.marked)
	}
	if store.marked[0].Error != "invoice 10 not found" {
		t.Errorf("marked error: got %q", store.marked[0].Error)
	}
}

func TestProcessNext_PartialFailure(t *testing.T) {
	store := &mockStore{
		job: &database.Job{ID: 300, Status: enum.JobStatusPending, TotalCount: 3},
		queued: []database.QueuedPayment{
			queuedPayment(1, 300, 10),
			queuedPayment(2, 300, 11),
			queuedPayment(3, 300, 12),
		},
		failIDs: map[int64]error{2: errors.New("invoice already paid")},
	}
	w, tx, _ := newTestWorker(store)

	processed, err := w.ProcessNext(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !processed {
		t.Fatal("expected processed=true")
	}
	if !tx.committed {
		t.Error("expected commit despite per-contact failure")
	}
	if store.finished.Status != enum.JobStatusCompletedWithErrors {
		t.Errorf("status: got %s, want %s", store.finished.Status, enum.JobStatusCompletedWithErrors)
	}
	if store.finished.SuccessCount != 2 || store.finished.FailCount != 1 {
		t.Errorf("counts: got %d/%d, want 2/1", store.finished.SuccessCount, store.finished.FailCount)
	}
	if len(store.marked) != 1 {
		t.Fatalf("expected 1 failed mark, got %d", len(store.marked))
	}
	if store.marked[0].ID != 2 {
		t.Errorf("marked queue row: got %d, want 2", store.marked[0].ID)
	}
	if store.marked[0].Error != "invoice already paid" {
		t.Errorf("marked error: got %q", store.marked[0].Error)
	}
}

func TestProcessNext_AllFail(t *testing.T) {
	store := &mockStore{
		job: &database.Job{ID: 300, Status: enum.JobStatusPending, TotalCount: 1},
		queued: []database.QueuedPayment{
			queuedPayment(1, 300, 10),
		},
		failIDs: map[int64]error{1: errors.New("contact missing")},
	}
	w, _, _ := newTestWorker(store)

	processed, err := w.ProcessNext(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !processed {
		t.Fatal("expected processed=true")
	}
	if store.finished.Status != enum.JobStatusFailed {
		t.Errorf("status: got %s, want %s", store.finished.Status, enum.JobStatusFailed)
	}
}

func TestProcessNext_BeginError(t *testing.T) {
	pool := &mockTxBeginner{err: errors.New("pool closed")}
	w := New(pool, func(db database.DBTX) Store { return &mockStore{session: &mockSession{}} }, nil, time.Second)

	if _, err := w.ProcessNext(context.Background()); err == nil {
		t.Fatal("expected error when Begin fails")
	}
}

func TestProcessNext_CommitError(t *testing.T) {
	session := &mockSession{}
	store := &mockStore{
		session: session,
		job:     &database.Job{ID: 300, Status: enum.JobStatusPending, TotalCount: 1},
		queued:  []database.QueuedPayment{queuedPayment(1, 300, 10)},
	}
	tx := &mockTx{session: session, commitErr: errors.New("serialization failure")}
	pool := &mockTxBeginner{tx: tx}
	hub := &mockBroadcaster{}
	w := New(pool, func(db database.DBTX) Store { return store }, hub, time.Second)

	if _, err := w.ProcessNext(context.Background()); err == nil {
		t.Fatal("expected error when commit fails")
	}
	if len(hub.events) != 0 {
		t.Errorf("expected no events for an uncommitted claim, got %d", len(hub.events))
	}
}
