package sequence

import (
	"context"
	"fmt"

	"github.com/wecloud/backoffice/internal/clock"
	"github.com/wecloud/backoffice/internal/invoice/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Allocator issues per-period invoice sequence numbers from a transactional
// counter row keyed by (year, month).
type Allocator struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
}

func NewAllocator(db *gorm.DB, log *zap.Logger, clk clock.Clock) *Allocator {
	return &Allocator{
		db:    db,
		log:   log.Named("invoice.sequence"),
		clock: clk,
	}
}

// Allocate returns the next sequence number for the period. Under concurrent
// callers each receives a distinct, gapless integer; the first allocation for
// a period creates its counter row. A commit failure surfaces as
// ErrTransientStore and must not be treated as a reserved number.
func (a *Allocator) Allocate(ctx context.Context, year, month int) (int64, error) {
	if month < 0 || month > 11 {
		return 0, domain.ErrInvalidPeriod
	}

	var next int64
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := a.clock.Now()

		// A single upsert both seeds the counter row and takes its lock, so
		// two first allocations for a fresh period cannot race on the insert.
		if err := tx.Exec(
			`INSERT INTO invoice_counters (year, month, total_invoices, last_updated)
			 VALUES (?, ?, 1, ?)
			 ON CONFLICT (year, month) DO UPDATE
			 SET total_invoices = invoice_counters.total_invoices + 1, last_updated = excluded.last_updated`,
			year, month, now,
		).Error; err != nil {
			return err
		}

		return tx.Raw(
			`SELECT total_invoices FROM invoice_counters WHERE year = ? AND month = ?`,
			year, month,
		).Scan(&next).Error
	})
	if err != nil {
		a.log.Error("sequence allocation failed",
			zap.Int("year", year),
			zap.Int("month", month),
			zap.Error(err),
		)
		return 0, fmt.Errorf("%w: %v", domain.ErrTransientStore, err)
	}

	return next, nil
}
