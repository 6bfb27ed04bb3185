package enum

// ── Account classes (ledger side of a contact, CHECK constrained in DB) ──

const (
	AccountClassPayable    = 1 // vendors (AP)
	AccountClassReceivable = 2 // customers (AR)
)

// ── Payment modes ──
//
// "all" pays each selected invoice's full net amount; "some" pays the
// explicit per-invoice amount supplied with the selection.
const (
	PaymentModeAll  = "all"
	PaymentModeSome = "some"
)

// ── Job lifecycle (CHECK constrained in DB) ──

const (
	JobStatusPending             = "PENDING"
	JobStatusInProgress          = "IN_PROGRESS"
	JobStatusCompleted           = "COMPLETED"
	JobStatusCompletedWithErrors = "COMPLETED_WITH_ERRORS"
	JobStatusFailed              = "FAILED"
)

const (
	QueuedPaymentStatusPending = "PENDING"
	QueuedPaymentStatusPosted  = "POSTED"
	QueuedPaymentStatusFailed  = "FAILED"
)

// ── User roles (CHECK constrained in DB) ──

const (
	UserRoleAdmin      = "ADMIN"
	UserRoleBookkeeper = "BOOKKEEPER"
	UserRoleClerk      = "CLERK"
)

// ── Setting keys (no DB constraint; allowlisted in the settings handler) ──

const (
	SettingQueuePayments = "queue_payments"
)
