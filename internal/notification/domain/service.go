package domain

import (
	"context"
	"errors"
)

// SendResult reports the outcome of one dispatch attempt. A duplicate send is
// not an error: Success is false and Message explains why.
type SendResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// BulkReminderResult aggregates per-invoice outcomes of a reminder run.
type BulkReminderResult struct {
	Total   int      `json:"total"`
	Sent    int      `json:"sent"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// BroadcastResult aggregates per-subscriber outcomes of a broadcast run.
type BroadcastResult struct {
	Total  int      `json:"total"`
	Sent   int      `json:"sent"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors,omitempty"`
}

// Gateway is the outbound messaging contract the dispatcher sends through.
type Gateway interface {
	SendText(ctx context.Context, phone, message string) error
	SendFile(ctx context.Context, phone, caption, filename, mimetype string, data []byte) error
}

type Dispatcher interface {
	// Send renders the template mapped to the invoice's status and delivers
	// it through the gateway exactly once per (invoice, event type) pair.
	Send(ctx context.Context, invoiceID, eventType string) (SendResult, error)
	// SendBulkReminders dispatches payment reminders for every invoice ID,
	// pausing between sends. One invoice's failure never aborts the run.
	SendBulkReminders(ctx context.Context, invoiceIDs []string) (BulkReminderResult, error)
	// SendInvoiceDocument renders the invoice as a PDF and delivers it to
	// the subscriber as a document attachment. Not guarded by the send log.
	SendInvoiceDocument(ctx context.Context, invoiceID string) (SendResult, error)
	// SendBroadcast delivers an announcement to every active subscriber,
	// pausing between sends. One subscriber's failure never aborts the run.
	SendBroadcast(ctx context.Context, message string) (BroadcastResult, error)
}

var (
	ErrInvalidEventType = errors.New("invalid_event_type")
	ErrEmptyBroadcast   = errors.New("empty_broadcast")
	ErrInvoiceNotFound  = errors.New("invoice_not_found")
	ErrUserNotFound     = errors.New("user_not_found")
	ErrPackageNotFound  = errors.New("package_not_found")
)
