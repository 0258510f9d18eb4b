package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wecloud/backoffice/internal/clock"
	invoicedomain "github.com/wecloud/backoffice/internal/invoice/domain"
	notificationdomain "github.com/wecloud/backoffice/internal/notification/domain"
	"github.com/wecloud/backoffice/internal/observability/metrics"
	"github.com/wecloud/backoffice/internal/ratelimit"
)

var ErrInvalidConfig = errors.New("scheduler requires db, log, clock and services")

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	InvoiceSvc invoicedomain.Service
	Invoices   invoicedomain.Repository
	Dispatcher notificationdomain.Dispatcher
	Locks      *ratelimit.JobLocker `optional:"true"`
	Metrics    *metrics.Metrics     `optional:"true"`
	Config     Config               `optional:"true"`
}

// Scheduler runs the periodic back-office jobs: status reclassification,
// monthly invoice generation and overdue payment reminders.
type Scheduler struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	invoiceSvc invoicedomain.Service
	invoices   invoicedomain.Repository
	dispatcher notificationdomain.Dispatcher
	locks      *ratelimit.JobLocker
	metrics    *metrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.InvoiceSvc == nil || p.Invoices == nil || p.Dispatcher == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:         p.DB,
		log:        p.Log.Named("scheduler"),
		cfg:        p.Config.withDefaults(),
		clock:      p.Clock,
		invoiceSvc: p.InvoiceSvc,
		invoices:   p.Invoices,
		dispatcher: p.Dispatcher,
		locks:      p.Locks,
		metrics:    p.Metrics,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	release, owner, err := s.locks.Acquire(ctx, name)
	if err != nil {
		s.log.Warn("job lock unavailable, running anyway", zap.String("job", name), zap.Error(err))
	} else if !owner {
		s.log.Debug("job held by another instance", zap.String("job", name))
		return nil
	}
	defer release()

	err = fn(ctx)
	s.metrics.ObserveJobDuration(name, time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			s.metrics.RecordJobRun(name, "timeout")
			s.log.Warn("job timed out",
				zap.String("job", name),
				zap.Duration("timeout", s.cfg.JobTimeout),
				zap.Error(err),
			)
			return nil
		}
		s.metrics.RecordJobRun(name, "error")
		return fmt.Errorf("%s: %w", name, err)
	}

	s.metrics.RecordJobRun(name, "ok")
	return nil
}

// RunOnce executes a single pass over every job. Job errors are joined, not
// short-circuited, so one failing job never starves the others.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	err = errors.Join(err, s.runJob(parent, "reclassify_invoices", s.ReclassifyJob))
	err = errors.Join(err, s.runJob(parent, "generate_invoices", s.GenerateJob))
	err = errors.Join(err, s.runJob(parent, "send_reminders", s.RemindersJob))
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ReclassifyJob converges every stored status with its due date.
func (s *Scheduler) ReclassifyJob(ctx context.Context) error {
	result, err := s.invoiceSvc.Reclassify(ctx)
	if err != nil {
		return err
	}
	if result.Checked > 0 {
		s.log.Info("reclassify pass finished",
			zap.Int("checked", result.Checked),
			zap.Int("to_overdue", result.ToOverdue),
			zap.Int("to_due", result.ToDue),
			zap.Int("failed", result.Failed),
		)
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d invoices failed to reclassify", result.Failed)
	}
	return nil
}

// GenerateJob mints the month's invoices once the configured day arrives.
// Generation is per-subscriber idempotent, so firing on every tick of that
// day only fills gaps.
func (s *Scheduler) GenerateJob(ctx context.Context) error {
	now := s.clock.Now()
	if now.Day() != s.cfg.GenerateDay {
		return nil
	}

	dueDate := clock.StartOfDay(now).AddDate(0, 0, s.cfg.DueDays)
	result, err := s.invoiceSvc.GenerateMonthly(ctx, invoicedomain.GenerateMonthlyRequest{
		Month:   int(now.Month()) - 1,
		Year:    now.Year(),
		DueDate: dueDate,
		Notify:  s.cfg.Notify,
	})
	if err != nil {
		return err
	}
	if result.Total > 0 {
		s.log.Info("monthly generation finished",
			zap.Int("total", result.Total),
			zap.Int("succeeded", result.Succeeded),
			zap.Int("failed", result.Failed),
		)
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d invoices failed to generate", result.Failed)
	}
	return nil
}

// RemindersJob sends one payment reminder to every overdue invoice that has
// never had one.
func (s *Scheduler) RemindersJob(ctx context.Context) error {
	candidates, err := s.invoices.FindReminderCandidates(ctx, s.db, s.cfg.ReminderBatchSize)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}

	ids := make([]string, 0, len(candidates))
	for _, invoice := range candidates {
		ids = append(ids, invoice.FormattedID)
	}

	result, err := s.dispatcher.SendBulkReminders(ctx, ids)
	if err != nil {
		return err
	}
	s.log.Info("reminder pass finished",
		zap.Int("total", result.Total),
		zap.Int("sent", result.Sent),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	if result.Failed > 0 {
		return fmt.Errorf("%d reminders failed", result.Failed)
	}
	return nil
}
