package domain

import "time"

const (
	EventInvoiceCreated      = "invoice_notification"
	EventPaymentReminder     = "payment_reminder"
	EventPaymentConfirmation = "payment_confirmation"
)

// NotificationLogEntry is the idempotency guard: one row per
// (invoice, event type) pair, written only after a confirmed send.
type NotificationLogEntry struct {
	InvoiceID string    `gorm:"primaryKey" json:"invoice_id"`
	EventType string    `gorm:"primaryKey" json:"event_type"`
	SentAt    time.Time `gorm:"not null" json:"sent_at"`
	// Status captures the invoice status at the moment of the send.
	Status string `gorm:"not null" json:"status"`
}
