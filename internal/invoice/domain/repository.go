package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wecloud/backoffice/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	UpdateStatus(ctx context.Context, db *gorm.DB, formattedID, status string, updatedAt time.Time) error
	Delete(ctx context.Context, db *gorm.DB, formattedID string) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, formattedID string) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, filter ListInvoiceFilter, page pagination.Pagination) ([]*Invoice, error)
	// FindMisclassified returns non-Paid invoices whose status disagrees with
	// their due date relative to today (start of day).
	FindMisclassified(ctx context.Context, db *gorm.DB, today time.Time) ([]*Invoice, error)
	// ExistsForPeriod reports whether the user already has an invoice in the
	// given 0-indexed month.
	ExistsForPeriod(ctx context.Context, db *gorm.DB, userID int64, month, year int) (bool, error)
	// FindReminderCandidates returns overdue invoices that have never had a
	// payment reminder sent, oldest due date first.
	FindReminderCandidates(ctx context.Context, db *gorm.DB, limit int) ([]*Invoice, error)
	SumPaidAmount(ctx context.Context, db *gorm.DB) (decimal.Decimal, error)
	MarkReminderSent(ctx context.Context, db *gorm.DB, formattedID string, sentAt time.Time) error
}
