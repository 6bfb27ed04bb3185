package payment_test

import (
	"testing"

	"github.com/ledgerbook/api/internal/payment"
)

func TestNextSource(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"zero padded width preserved", "INV-007", "INV-008"},
		{"carry within width", "INV-099", "INV-100"},
		{"width grows past padding", "INV-999", "INV-1000"},
		{"no separator", "CHK99", "CHK100"},
		{"all digits", "0099", "0100"},
		{"single digit", "A9", "A10"},
		{"no numeric suffix", "MEMO", ""},
		{"empty", "", ""},
		{"digits not trailing", "20260101-X", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := payment.NextSource(tc.in); got != tc.want {
				t.Errorf("NextSource(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSourceSequence(t *testing.T) {
	seq := payment.NewSourceSequence("INV-099")

	if got := seq.Next(1); got != "INV-099" {
		t.Errorf("first value = %q, want %q", got, "INV-099")
	}
	if got := seq.Next(2); got != "INV-100" {
		t.Errorf("second value = %q, want %q", got, "INV-100")
	}
	if got := seq.Next(3); got != "INV-101" {
		t.Errorf("third value = %q, want %q", got, "INV-101")
	}

	assigned := seq.Assigned()
	if assigned[1] != "INV-099" || assigned[2] != "INV-100" || assigned[3] != "INV-101" {
		t.Errorf("assigned map = %v", assigned)
	}
}

func TestSourceSequence_WidthPreservation(t *testing.T) {
	// The numeric field width must never shrink below the original run.
	seq := payment.NewSourceSequence("CHK-0008")
	want := []string{"CHK-0008", "CHK-0009", "CHK-0010", "CHK-0011"}
	for i, w := range want {
		if got := seq.Next(int64(i + 1)); got != w {
			t.Errorf("value %d = %q, want %q", i, got, w)
		}
	}
}

func TestSourceSequence_NoNumericSuffix(t *testing.T) {
	seq := payment.NewSourceSequence("WIRE")
	for i := int64(1); i <= 3; i++ {
		if got := seq.Next(i); got != "" {
			t.Errorf("contact %d source = %q, want empty", i, got)
		}
	}
}
