package repository

import (
	"context"

	"github.com/wecloud/backoffice/internal/notification/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, invoiceID, eventType string) (*domain.NotificationLogEntry, error) {
	var entry domain.NotificationLogEntry
	err := db.WithContext(ctx).Raw(
		`SELECT invoice_id, event_type, sent_at, status
		 FROM notification_log_entries WHERE invoice_id = ? AND event_type = ?`,
		invoiceID, eventType,
	).Scan(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.InvoiceID == "" {
		return nil, nil
	}
	return &entry, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.NotificationLogEntry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO notification_log_entries (invoice_id, event_type, sent_at, status)
		 VALUES (?, ?, ?, ?)`,
		entry.InvoiceID,
		entry.EventType,
		entry.SentAt,
		entry.Status,
	).Error
}

func (r *repo) ListByInvoice(ctx context.Context, db *gorm.DB, invoiceID string) ([]*domain.NotificationLogEntry, error) {
	var entries []*domain.NotificationLogEntry
	err := db.WithContext(ctx).Raw(
		`SELECT invoice_id, event_type, sent_at, status
		 FROM notification_log_entries WHERE invoice_id = ? ORDER BY sent_at`,
		invoiceID,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
