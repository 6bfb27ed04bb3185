package payment

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ledgerbook/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Errors returned by batch collection. All of them abort the whole batch
// before any database call.
var (
	ErrSourceStartRequired = errors.New("source start required")
	ErrInvalidMode         = errors.New("invalid payment mode")
	ErrMalformedAmount     = errors.New("malformed amount")
	ErrMalformedLine       = errors.New("malformed invoice/amount pair")
)

var validate = validator.New()

// linePattern is the strict shape every encoded pair must match before it
// may be submitted to the bulk procedures.
var linePattern = regexp.MustCompile(`^\{\d+,\d+(\.\d{1,10})?\}$`)

// BatchRequest is the validated input for one payment batch run. It
// replaces the field-bag request object of older ERP frontends: every
// field the workflow reads is enumerated and typed.
type BatchRequest struct {
	AccountClass int32  `validate:"required,oneof=1 2"`
	Currency     string `validate:"required,len=3"`
	SourceStart  string
	BatchID      *int64
	PaymentDate  time.Time          `validate:"required"`
	Contacts     []ContactSelection `validate:"required,min=1,dive"`
}

// ContactSelection is one contact row from the batch screen.
type ContactSelection struct {
	ContactID int64 `validate:"required,gt=0"`
	Selected  bool
	Mode      string             `validate:"required,oneof=all some"`
	Invoices  []InvoiceSelection `validate:"dive"`
}

// InvoiceSelection pairs an invoice with the amounts the mode resolution
// chooses between. Amounts travel as decimal strings.
type InvoiceSelection struct {
	InvoiceID int64 `validate:"required,gt=0"`
	// NetDue is the invoice's outstanding net amount, paid in full under
	// mode "all".
	NetDue string
	// Payment is the explicit partial amount, paid under mode "some".
	Payment string
}

// PaymentLine is a resolved (invoice, amount) pair with a nonzero amount.
type PaymentLine struct {
	InvoiceID int64
	Amount    decimal.Decimal
}

// Submission is one contact's aggregated payment, ready for
// payment_bulk_post / payment_bulk_queue.
type Submission struct {
	ContactID int64
	Source    string
	Lines     []PaymentLine
}

// EncodedLines renders the submission's pairs in the array-literal
// protocol the bulk procedures consume: "{invoice_id,amount}".
func (s Submission) EncodedLines() []string {
	out := make([]string, len(s.Lines))
	for i, l := range s.Lines {
		out[i] = fmt.Sprintf("{%d,%s}", l.InvoiceID, l.Amount.StringFixed(2))
	}
	return out
}

// Collection is the output of Collect: the submissions to post plus the
// source identifier assigned to each contact.
type Collection struct {
	Submissions []Submission
	Sources     map[int64]string
}

// Collect filters the request to selected contacts, resolves each
// invoice's pay amount from the contact's mode, skips zero/empty amounts,
// allocates source identifiers, and verifies every encoded pair against
// the strict numeric pattern. Any failure here means nothing has touched
// the database yet.
func Collect(req BatchRequest) (*Collection, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if req.AccountClass == enum.AccountClassPayable && strings.TrimSpace(req.SourceStart) == "" {
		return nil, ErrSourceStartRequired
	}

	seq := NewSourceSequence(strings.TrimSpace(req.SourceStart))
	col := &Collection{Sources: seq.Assigned()}

	for _, contact := range req.Contacts {
		if !contact.Selected {
			continue
		}

		var lines []PaymentLine
		for _, inv := range contact.Invoices {
			amount, err := resolveAmount(contact.Mode, inv)
			if err != nil {
				return nil, fmt.Errorf("contact %d invoice %d: %w", contact.ContactID, inv.InvoiceID, err)
			}
			if amount.IsZero() {
				continue
			}
			lines = append(lines, PaymentLine{InvoiceID: inv.InvoiceID, Amount: amount})
		}
		if len(lines) == 0 {
			continue
		}

		sub := Submission{
			ContactID: contact.ContactID,
			Source:    seq.Next(contact.ContactID),
			Lines:     lines,
		}
		for _, enc := range sub.EncodedLines() {
			if !linePattern.MatchString(enc) {
				return nil, fmt.Errorf("contact %d: %w: %s", contact.ContactID, ErrMalformedLine, enc)
			}
		}
		col.Submissions = append(col.Submissions, sub)
	}

	return col, nil
}

// resolveAmount picks the amount to post for one invoice: the full net
// amount under mode "all", the explicit partial amount under "some".
// Empty strings resolve to zero and are skipped by the caller.
func resolveAmount(mode string, inv InvoiceSelection) (decimal.Decimal, error) {
	var raw string
	switch mode {
	case enum.PaymentModeAll:
		raw = inv.NetDue
	case enum.PaymentModeSome:
		raw = inv.Payment
	default:
		return decimal.Zero, ErrInvalidMode
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, raw)
	}
	return amount, nil
}
