package payment_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ledgerbook/api/internal/enum"
	"github.com/ledgerbook/api/internal/payment"
)

func testDate() time.Time {
	return time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
}

func TestCollect_ModeResolution(t *testing.T) {
	req := payment.BatchRequest{
		AccountClass: enum.AccountClassReceivable,
		Currency:     "EUR",
		SourceStart:  "INV-099",
		PaymentDate:  testDate(),
		Contacts: []payment.ContactSelection{
			{
				ContactID: 1,
				Selected:  true,
				Mode:      enum.PaymentModeAll,
				Invoices: []payment.InvoiceSelection{
					{InvoiceID: 10, NetDue: "50.00", Payment: "10.00"},
				},
			},
			{
				ContactID: 2,
				Selected:  true,
				Mode:      enum.PaymentModeSome,
				Invoices: []payment.InvoiceSelection{
					{InvoiceID: 11, NetDue: "90.00", Payment: "25.00"},
				},
			},
		},
	}

	col, err := payment.Collect(req)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(col.Submissions) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(col.Submissions))
	}

	// Mode "all" resolves to the net amount, ignoring the partial field.
	first := col.Submissions[0]
	if first.Source != "INV-099" {
		t.Errorf("first source = %q, want INV-099", first.Source)
	}
	if got := first.EncodedLines(); len(got) != 1 || got[0] != "{10,50.00}" {
		t.Errorf("first lines = %v, want [{10,50.00}]", got)
	}

	// Mode "some" resolves to the explicit amount.
	second := col.Submissions[1]
	if second.Source != "INV-100" {
		t.Errorf("second source = %q, want INV-100", second.Source)
	}
	if got := second.EncodedLines(); len(got) != 1 || got[0] != "{11,25.00}" {
		t.Errorf("second lines = %v, want [{11,25.00}]", got)
	}
}

func TestCollect_SkipsZeroAndUnselected(t *testing.T) {
	req := payment.BatchRequest{
		AccountClass: enum.AccountClassReceivable,
		Currency:     "EUR",
		SourceStart:  "INV-001",
		PaymentDate:  testDate(),
		Contacts: []payment.ContactSelection{
			{
				ContactID: 1,
				Selected:  false, // not selected: no submission
				Mode:      enum.PaymentModeAll,
				Invoices:  []payment.InvoiceSelection{{InvoiceID: 10, NetDue: "50.00"}},
			},
			{
				ContactID: 2,
				Selected:  true,
				Mode:      enum.PaymentModeSome,
				Invoices: []payment.InvoiceSelection{
					{InvoiceID: 11, Payment: "0"},  // zero resolved amount
					{InvoiceID: 12, Payment: ""},   // empty resolved amount
					{InvoiceID: 13, Payment: "5.50"},
				},
			},
			{
				ContactID: 3,
				Selected:  true,
				Mode:      enum.PaymentModeSome,
				// Every line resolves to zero: contact produces no submission
				// and consumes no source number.
				Invoices: []payment.InvoiceSelection{{InvoiceID: 14, Payment: "0.00"}},
			},
		},
	}

	col, err := payment.Collect(req)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(col.Submissions) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(col.Submissions))
	}
	sub := col.Submissions[0]
	if sub.ContactID != 2 {
		t.Errorf("submission contact = %d, want 2", sub.ContactID)
	}
	if len(sub.Lines) != 1 || sub.Lines[0].InvoiceID != 13 {
		t.Errorf("submission lines = %+v, want single line for invoice 13", sub.Lines)
	}
	if sub.Source != "INV-001" {
		t.Errorf("source = %q, want INV-001 (zero-line contacts consume no number)", sub.Source)
	}
}

func TestCollect_SourceStartRequiredForPayables(t *testing.T) {
	req := payment.BatchRequest{
		AccountClass: enum.AccountClassPayable,
		Currency:     "EUR",
		SourceStart:  "  ",
		PaymentDate:  testDate(),
		Contacts: []payment.ContactSelection{
			{
				ContactID: 1,
				Selected:  true,
				Mode:      enum.PaymentModeAll,
				Invoices:  []payment.InvoiceSelection{{InvoiceID: 10, NetDue: "50.00"}},
			},
		},
	}

	_, err := payment.Collect(req)
	if !errors.Is(err, payment.ErrSourceStartRequired) {
		t.Fatalf("expected ErrSourceStartRequired, got %v", err)
	}
}

func TestCollect_ReceivablesWithoutSource(t *testing.T) {
	// Receivables may run without source numbering; sources come out empty.
	req := payment.BatchRequest{
		AccountClass: enum.AccountClassReceivable,
		Currency:     "EUR",
		PaymentDate:  testDate(),
		Contacts: []payment.ContactSelection{
			{
				ContactID: 1,
				Selected:  true,
				Mode:      enum.PaymentModeAll,
				Invoices:  []payment.InvoiceSelection{{InvoiceID: 10, NetDue: "50.00"}},
			},
		},
	}

	col, err := payment.Collect(req)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(col.Submissions) != 1 || col.Submissions[0].Source != "" {
		t.Fatalf("expected one submission with empty source, got %+v", col.Submissions)
	}
}

func TestCollect_MalformedAmountFailsWholeBatch(t *testing.T) {
	req := payment.BatchRequest{
		AccountClass: enum.AccountClassReceivable,
		Currency:     "EUR",
		SourceStart:  "INV-001",
		PaymentDate:  testDate(),
		Contacts: []payment.ContactSelection{
			{
				ContactID: 1,
				Selected:  true,
				Mode:      enum.PaymentModeAll,
				Invoices:  []payment.InvoiceSelection{{InvoiceID: 10, NetDue: "50.00"}},
			},
			{
				ContactID: 2,
				Selected:  true,
				Mode:      enum.PaymentModeSome,
				Invoices:  []payment.InvoiceSelection{{InvoiceID: 11, Payment: "twenty"}},
			},
		},
	}

	_, err := payment.Collect(req)
	if !errors.Is(err, payment.ErrMalformedAmount) {
		t.Fatalf("expected ErrMalformedAmount, got %v", err)
	}
}

func TestCollect_NegativeAmountRejected(t *testing.T) {
	req := payment.BatchRequest{
		AccountClass: enum.AccountClassReceivable,
		Currency:     "EUR",
		SourceStart:  "INV-001",
		PaymentDate:  testDate(),
		Contacts: []payment.ContactSelection{
			{
				ContactID: 1,
				Selected:  true,
				Mode:      enum.PaymentModeSome,
				Invoices:  []payment.InvoiceSelection{{InvoiceID: 10, Payment: "-5.00"}},
			},
		},
	}

	_, err := payment.Collect(req)
	if !errors.Is(err, payment.ErrMalformedLine) {
		t.Fatalf("expected ErrMalformedLine, got %v", err)
	}
}

func TestCollect_NegativeInvoiceIDRejected(t *testing.T) {
	req := payment.BatchRequest{
		AccountClass: enum.AccountClassReceivable,
		Currency:     "EUR",
		SourceStart:  "INV-001",
		PaymentDate:  testDate(),
		Contacts: []payment.ContactSelection{
			{
				ContactID: 1,
				Selected:  true,
				Mode:      enum.PaymentModeAll,
				Invoices:  []payment.InvoiceSelection{{InvoiceID: -10, NetDue: "50.00"}},
			},
		},
	}

	if _, err := payment.Collect(req); err == nil {
		t.Fatal("expected validation error for negative invoice id")
	}
}

func TestCollect_InvalidAccountClass(t *testing.T) {
	req := payment.BatchRequest{
		AccountClass: 3,
		Currency:     "EUR",
		PaymentDate:  testDate(),
		Contacts: []payment.ContactSelection{
			{ContactID: 1, Selected: true, Mode: enum.PaymentModeAll},
		},
	}

	if _, err := payment.Collect(req); err == nil {
		t.Fatal("expected validation error for account class 3")
	}
}
