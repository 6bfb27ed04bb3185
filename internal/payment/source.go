package payment

import (
	"fmt"
	"strconv"
)

// NextSource increments the trailing numeric run of a source identifier by
// one, preserving the zero-padded width of the original run. A value with
// no trailing digits has no successor and maps to "".
//
//	"INV-099" -> "INV-100"
//	"INV-007" -> "INV-008"
//	"CHK99"   -> "CHK100"
//	"MEMO"    -> ""
func NextSource(s string) string {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return ""
	}
	prefix, digits := s[:i], s[i:]
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		// Numeric run too long to represent; treat like a non-numeric suffix.
		return ""
	}
	return prefix + fmt.Sprintf("%0*d", len(digits), n+1)
}

// SourceSequence hands out reconciliation source identifiers, one per
// contact processed in a batch: the starting value itself first, then each
// successor. Uniqueness is only guaranteed within one batch run.
type SourceSequence struct {
	next     string
	assigned map[int64]string
}

// NewSourceSequence builds a sequence from the user-supplied starting
// source. A start with no trailing numeric run yields "" for every
// contact (no numbering).
func NewSourceSequence(start string) *SourceSequence {
	if NextSource(start) == "" {
		start = ""
	}
	return &SourceSequence{next: start, assigned: make(map[int64]string)}
}

// Next assigns the current source value to a contact and advances the
// sequence.
func (s *SourceSequence) Next(contactID int64) string {
	cur := s.next
	if cur != "" {
		s.next = NextSource(cur)
	}
	s.assigned[contactID] = cur
	return cur
}

// Assigned returns the last source value handed to each contact, for
// result display.
func (s *SourceSequence) Assigned() map[int64]string {
	return s.assigned
}
