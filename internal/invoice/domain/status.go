package domain

import (
	"time"

	"github.com/wecloud/backoffice/internal/clock"
)

// DeriveStatus returns the status a non-Paid invoice should carry given its
// due date and today's date. Both sides are truncated to the start of day so
// time-of-day never flips the result.
func DeriveStatus(dueDate, today time.Time) string {
	if clock.StartOfDay(dueDate).Before(clock.StartOfDay(today)) {
		return StatusOverdue
	}
	return StatusDue
}

// CorrectStatus applies the reclassification rule to a single invoice and
// reports whether its status changed. Paid is terminal and never touched.
func CorrectStatus(invoice *Invoice, today time.Time) bool {
	if invoice == nil || invoice.Status == StatusPaid {
		return false
	}
	expected := DeriveStatus(invoice.DueDate, today)
	if invoice.Status == expected {
		return false
	}
	invoice.Status = expected
	return true
}
