package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Find(ctx context.Context, db *gorm.DB, invoiceID, eventType string) (*NotificationLogEntry, error)
	Insert(ctx context.Context, db *gorm.DB, entry *NotificationLogEntry) error
	ListByInvoice(ctx context.Context, db *gorm.DB, invoiceID string) ([]*NotificationLogEntry, error)
}
