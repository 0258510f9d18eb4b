package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wecloud/backoffice/internal/clock"
	"github.com/wecloud/backoffice/internal/invoice/domain"
	"github.com/wecloud/backoffice/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoices (formatted_id, user_id, package_id, amount, due_date, status,
		                       month, year, package_name, created_at, updated_at, reminder_sent_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.FormattedID,
		invoice.UserID,
		invoice.PackageID,
		invoice.Amount,
		invoice.DueDate,
		invoice.Status,
		invoice.Month,
		invoice.Year,
		invoice.PackageName,
		invoice.CreatedAt,
		invoice.UpdatedAt,
		invoice.ReminderSentAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET user_id = ?, package_id = ?, amount = ?, due_date = ?, status = ?,
		     month = ?, year = ?, package_name = ?, updated_at = ?, reminder_sent_at = ?
		 WHERE formatted_id = ?`,
		invoice.UserID,
		invoice.PackageID,
		invoice.Amount,
		invoice.DueDate,
		invoice.Status,
		invoice.Month,
		invoice.Year,
		invoice.PackageName,
		invoice.UpdatedAt,
		invoice.ReminderSentAt,
		invoice.FormattedID,
	).Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, formattedID, status string, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices SET status = ?, updated_at = ? WHERE formatted_id = ?`,
		status, updatedAt, formattedID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, formattedID string) (int64, error) {
	stmt := db.WithContext(ctx).Exec(`DELETE FROM invoices WHERE formatted_id = ?`, formattedID)
	return stmt.RowsAffected, stmt.Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, formattedID string) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT formatted_id, user_id, package_id, amount, due_date, status,
		        month, year, package_name, created_at, updated_at, reminder_sent_at
		 FROM invoices WHERE formatted_id = ?`,
		formattedID,
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.FormattedID == "" {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListInvoiceFilter, page pagination.Pagination) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	stmt := db.WithContext(ctx).Model(&domain.Invoice{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.UserID != "" {
		stmt = stmt.Where("user_id = ?", filter.UserID)
	}
	if filter.Year != nil {
		stmt = stmt.Where("year = ?", *filter.Year)
	}
	if filter.Month != nil {
		stmt = stmt.Where("month = ?", *filter.Month)
	}
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		dueDate, err := time.Parse(time.RFC3339, cursor.DueDate)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("(due_date < ?) OR (due_date = ? AND formatted_id < ?)", dueDate, dueDate, cursor.ID)
	}
	err := stmt.
		Order("due_date desc, formatted_id desc").
		Limit(page.PageSize + 1).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) FindMisclassified(ctx context.Context, db *gorm.DB, today time.Time) ([]*domain.Invoice, error) {
	startOfDay := clock.StartOfDay(today)

	var invoices []*domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT formatted_id, user_id, package_id, amount, due_date, status,
		        month, year, package_name, created_at, updated_at, reminder_sent_at
		 FROM invoices
		 WHERE (status = ? AND due_date < ?) OR (status = ? AND due_date >= ?)`,
		domain.StatusDue, startOfDay,
		domain.StatusOverdue, startOfDay,
	).Scan(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) FindReminderCandidates(ctx context.Context, db *gorm.DB, limit int) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT formatted_id, user_id, package_id, amount, due_date, status,
		        month, year, package_name, created_at, updated_at, reminder_sent_at
		 FROM invoices
		 WHERE status = ? AND reminder_sent_at IS NULL
		 ORDER BY due_date ASC
		 LIMIT ?`,
		domain.StatusOverdue,
		limit,
	).Scan(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) ExistsForPeriod(ctx context.Context, db *gorm.DB, userID int64, month, year int) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM invoices WHERE user_id = ? AND month = ? AND year = ?`,
		userID, month, year,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) SumPaidAmount(ctx context.Context, db *gorm.DB) (decimal.Decimal, error) {
	var rows []struct {
		Amount decimal.Decimal
	}
	err := db.WithContext(ctx).Raw(
		`SELECT amount FROM invoices WHERE status = ?`,
		domain.StatusPaid,
	).Scan(&rows).Error
	if err != nil {
		return decimal.Zero, err
	}

	// summed in Go so decimal precision never depends on the SQL dialect
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Amount)
	}
	return total, nil
}

func (r *repo) MarkReminderSent(ctx context.Context, db *gorm.DB, formattedID string, sentAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices SET reminder_sent_at = ?, updated_at = ? WHERE formatted_id = ?`,
		sentAt, sentAt, formattedID,
	).Error
}
