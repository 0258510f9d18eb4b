package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const (
	StatusDue     = "Due"
	StatusOverdue = "Overdue"
	StatusPaid    = "Paid"
)

// Invoice is keyed by its formatted ID, e.g. "202506ZTFY0001".
type Invoice struct {
	FormattedID string          `gorm:"column:formatted_id;primaryKey" json:"formatted_id"`
	UserID      snowflake.ID    `gorm:"not null;index" json:"user_id"`
	PackageID   snowflake.ID    `gorm:"not null;index" json:"package_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	DueDate     time.Time       `gorm:"not null;index" json:"due_date"`
	Status      string          `gorm:"not null;index" json:"status"`

	// Month is the 0-indexed calendar month of DueDate, denormalized together
	// with Year for period queries.
	Month int `gorm:"not null;index:idx_invoices_period" json:"month"`
	Year  int `gorm:"not null;index:idx_invoices_period" json:"year"`

	// PackageName is captured at creation so notifications can fall back to it
	// when the package record has since been removed.
	PackageName string `json:"package_name,omitempty"`

	CreatedAt      time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	ReminderSentAt *time.Time `json:"reminder_sent_at,omitempty"`
}

// InvoiceCounter tracks how many invoice IDs were issued for a calendar
// period. Mutated only inside the allocation transaction.
type InvoiceCounter struct {
	Year          int       `gorm:"primaryKey;autoIncrement:false" json:"year"`
	Month         int       `gorm:"primaryKey;autoIncrement:false" json:"month"`
	TotalInvoices int64     `gorm:"not null;default:0" json:"total_invoices"`
	LastUpdated   time.Time `gorm:"not null" json:"last_updated"`
}

func ValidStatus(status string) bool {
	switch status {
	case StatusDue, StatusOverdue, StatusPaid:
		return true
	default:
		return false
	}
}
