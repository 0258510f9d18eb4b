package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/wecloud/backoffice/internal/catalog/domain"
	"github.com/wecloud/backoffice/internal/clock"
	"github.com/wecloud/backoffice/internal/config"
	"github.com/wecloud/backoffice/internal/invoice/domain"
	"github.com/wecloud/backoffice/internal/invoice/format"
	"github.com/wecloud/backoffice/internal/invoice/livefeed"
	"github.com/wecloud/backoffice/internal/invoice/sequence"
	notificationdomain "github.com/wecloud/backoffice/internal/notification/domain"
	"github.com/wecloud/backoffice/internal/observability/metrics"
	subscriberdomain "github.com/wecloud/backoffice/internal/subscriber/domain"
	"github.com/wecloud/backoffice/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	reclassifyBatchSize = 50

	generateChunkSize   = 10
	generateChunkPause  = 200 * time.Millisecond
	generateItemTimeout = 30 * time.Second
)

type Params struct {
	fx.In

	Config      config.Config
	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Repo        domain.Repository
	Allocator   *sequence.Allocator
	Hub         *livefeed.Hub
	Metrics     *metrics.Metrics              `optional:"true"`
	Dispatcher  notificationdomain.Dispatcher `optional:"true"`
	Subscribers subscriberdomain.Service
	Catalog     catalogdomain.Service
}

type Service struct {
	cfg         config.InvoiceConfig
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	repo        domain.Repository
	allocator   *sequence.Allocator
	hub         *livefeed.Hub
	metrics     *metrics.Metrics
	dispatcher  notificationdomain.Dispatcher
	subscribers subscriberdomain.Service
	catalog     catalogdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		cfg:         p.Config.Invoice,
		db:          p.DB,
		log:         p.Log.Named("invoice.service"),
		clock:       p.Clock,
		repo:        p.Repo,
		allocator:   p.Allocator,
		hub:         p.Hub,
		metrics:     p.Metrics,
		dispatcher:  p.Dispatcher,
		subscribers: p.Subscribers,
		catalog:     p.Catalog,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateInvoiceRequest) (domain.Invoice, error) {
	userID, err := parseRef(req.UserID)
	if err != nil {
		return domain.Invoice{}, domain.ErrMissingUser
	}
	packageID, err := parseRef(req.PackageID)
	if err != nil {
		return domain.Invoice{}, domain.ErrMissingPackage
	}
	if req.DueDate.IsZero() {
		return domain.Invoice{}, domain.ErrMissingDueDate
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		return domain.Invoice{}, err
	}

	if req.Status != "" && !domain.ValidStatus(req.Status) {
		return domain.Invoice{}, domain.ErrInvalidStatus
	}

	dueDate := clock.StartOfDay(req.DueDate)
	year := dueDate.Year()
	month := int(dueDate.Month()) - 1

	status := req.Status
	if status == "" {
		status = domain.DeriveStatus(dueDate, s.clock.Now())
	}

	var packageName string
	if pkg, err := s.catalog.GetByID(ctx, catalogdomain.GetPackageRequest{ID: packageID.String()}); err == nil {
		packageName = pkg.Name
		if amount.IsZero() {
			amount = pkg.MonthlyPrice
		}
	}

	seq, err := s.allocator.Allocate(ctx, year, month)
	if err != nil {
		return domain.Invoice{}, err
	}

	formattedID, err := format.FormatInvoiceID(s.cfg.Token, year, month, seq)
	if err != nil {
		return domain.Invoice{}, err
	}

	// The counter increment and this insert run in separate transactions; a
	// crash in between burns a sequence number without a matching invoice.
	now := s.clock.Now()
	invoice := domain.Invoice{
		FormattedID: formattedID,
		UserID:      userID,
		PackageID:   packageID,
		Amount:      amount,
		DueDate:     dueDate,
		Status:      status,
		Month:       month,
		Year:        year,
		PackageName: packageName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, &invoice); err != nil {
		return domain.Invoice{}, err
	}

	s.metrics.RecordInvoiceMinted(fmt.Sprintf("%04d%02d", year, month+1))
	s.hub.Publish(livefeed.Event{Change: livefeed.ChangeCreated, Invoice: invoice})

	if req.Notify && s.dispatcher != nil {
		if _, err := s.dispatcher.Send(ctx, invoice.FormattedID, notificationdomain.EventInvoiceCreated); err != nil {
			s.log.Warn("invoice notification failed",
				zap.String("formatted_id", invoice.FormattedID),
				zap.Error(err),
			)
		}
	}

	return invoice, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateInvoiceRequest) (domain.Invoice, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return domain.Invoice{}, domain.ErrInvalidID
	}

	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if existing == nil {
		return domain.Invoice{}, domain.ErrNotFound
	}

	if req.Amount != nil {
		amount, err := parseAmount(*req.Amount)
		if err != nil {
			return domain.Invoice{}, err
		}
		existing.Amount = amount
	}

	if req.DueDate != nil {
		dueDate := clock.StartOfDay(*req.DueDate)
		existing.DueDate = dueDate
		existing.Year = dueDate.Year()
		existing.Month = int(dueDate.Month()) - 1

		// An edited due date recomputes Due/Overdue unless the caller set
		// status explicitly in the same patch. Paid never moves.
		if req.Status == nil && existing.Status != domain.StatusPaid {
			existing.Status = domain.DeriveStatus(dueDate, s.clock.Now())
		}
	}

	if req.Status != nil {
		if !domain.ValidStatus(*req.Status) {
			return domain.Invoice{}, domain.ErrInvalidStatus
		}
		if existing.Status == domain.StatusPaid && *req.Status != domain.StatusPaid {
			return domain.Invoice{}, domain.ErrPaidIsTerminal
		}
		existing.Status = *req.Status
	}

	existing.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, existing); err != nil {
		return domain.Invoice{}, err
	}

	s.hub.Publish(livefeed.Event{Change: livefeed.ChangeUpdated, Invoice: *existing})
	return *existing, nil
}

func (s *Service) Delete(ctx context.Context, req domain.DeleteInvoiceRequest) error {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return domain.ErrInvalidID
	}

	affected, err := s.repo.Delete(ctx, s.db, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	s.hub.Publish(livefeed.Event{Change: livefeed.ChangeDeleted, Invoice: domain.Invoice{FormattedID: id}})
	return nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetInvoiceRequest) (domain.Invoice, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return domain.Invoice{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if item == nil {
		return domain.Invoice{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) MarkPaid(ctx context.Context, req domain.MarkPaidRequest) (domain.Invoice, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return domain.Invoice{}, domain.ErrInvalidID
	}

	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if existing == nil {
		return domain.Invoice{}, domain.ErrNotFound
	}

	if existing.Status != domain.StatusPaid {
		existing.Status = domain.StatusPaid
		existing.UpdatedAt = s.clock.Now()
		if err := s.repo.UpdateStatus(ctx, s.db, existing.FormattedID, domain.StatusPaid, existing.UpdatedAt); err != nil {
			return domain.Invoice{}, err
		}
		s.metrics.RecordStatusTransition(domain.StatusPaid)
		s.hub.Publish(livefeed.Event{Change: livefeed.ChangeUpdated, Invoice: *existing})
	}

	if req.Notify && s.dispatcher != nil {
		if _, err := s.dispatcher.Send(ctx, existing.FormattedID, notificationdomain.EventPaymentConfirmation); err != nil {
			s.log.Warn("payment confirmation failed",
				zap.String("formatted_id", existing.FormattedID),
				zap.Error(err),
			)
		}
	}

	return *existing, nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoiceRequest) (domain.ListInvoiceResponse, error) {
	if req.Status != "" && !domain.ValidStatus(req.Status) {
		return domain.ListInvoiceResponse{}, domain.ErrInvalidStatus
	}

	filter := domain.ListInvoiceFilter{
		Status: req.Status,
		UserID: strings.TrimSpace(req.UserID),
		Month:  req.Month,
		Year:   req.Year,
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = int32(s.cfg.PageSize)
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}

	pageInfo, items := pagination.BuildCursorPageInfo(items, pageSize, func(invoice *domain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:      invoice.FormattedID,
			DueDate: invoice.DueDate.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})

	invoices := make([]domain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}

	resp := domain.ListInvoiceResponse{Invoices: invoices}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) Reclassify(ctx context.Context) (domain.ReclassifyResult, error) {
	today := s.clock.Now()

	stale, err := s.repo.FindMisclassified(ctx, s.db, today)
	if err != nil {
		return domain.ReclassifyResult{}, err
	}

	result := domain.ReclassifyResult{Checked: len(stale)}
	for start := 0; start < len(stale); start += reclassifyBatchSize {
		end := start + reclassifyBatchSize
		if end > len(stale) {
			end = len(stale)
		}
		for _, invoice := range stale[start:end] {
			if !domain.CorrectStatus(invoice, today) {
				continue
			}
			if err := s.repo.UpdateStatus(ctx, s.db, invoice.FormattedID, invoice.Status, s.clock.Now()); err != nil {
				result.Failed++
				s.log.Error("reclassify write failed",
					zap.String("formatted_id", invoice.FormattedID),
					zap.Error(err),
				)
				continue
			}
			s.metrics.RecordStatusTransition(invoice.Status)
			s.hub.Publish(livefeed.Event{Change: livefeed.ChangeUpdated, Invoice: *invoice})
			if invoice.Status == domain.StatusOverdue {
				result.ToOverdue++
			} else {
				result.ToDue++
			}
		}
	}

	return result, nil
}

func (s *Service) GenerateMonthly(ctx context.Context, req domain.GenerateMonthlyRequest) (domain.BatchResult, error) {
	if req.Month < 0 || req.Month > 11 {
		return domain.BatchResult{}, domain.ErrInvalidPeriod
	}
	if req.DueDate.IsZero() {
		return domain.BatchResult{}, domain.ErrMissingDueDate
	}

	var result domain.BatchResult
	active := true
	pageToken := ""
	for {
		page, err := s.subscribers.List(ctx, subscriberdomain.ListSubscriberRequest{
			PageSize:  generateChunkSize,
			PageToken: pageToken,
			Active:    &active,
		})
		if err != nil {
			return result, err
		}

		for _, sub := range page.Subscribers {
			result.Total++
			if err := s.generateOne(ctx, sub, req); err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", sub.ID, err))
				continue
			}
			result.Succeeded++
		}

		if !page.HasMore {
			break
		}
		pageToken = page.NextPageToken

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(generateChunkPause):
		}
	}

	return result, nil
}

func (s *Service) generateOne(ctx context.Context, sub subscriberdomain.Subscriber, req domain.GenerateMonthlyRequest) error {
	ctx, cancel := context.WithTimeout(ctx, generateItemTimeout)
	defer cancel()

	if sub.PackageID == 0 {
		return domain.ErrMissingPackage
	}

	// Dedupe on the period the invoice will actually carry. Create
	// denormalizes month/year from the due date, which can sit in the month
	// after the generation run when the grace window crosses the boundary.
	dueDate := clock.StartOfDay(req.DueDate)
	exists, err := s.repo.ExistsForPeriod(ctx, s.db, int64(sub.ID), int(dueDate.Month())-1, dueDate.Year())
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = s.Create(ctx, domain.CreateInvoiceRequest{
		UserID:    sub.ID.String(),
		PackageID: sub.PackageID.String(),
		DueDate:   req.DueDate,
		Notify:    req.Notify,
	})
	return err
}

func (s *Service) TotalRevenue(ctx context.Context) (decimal.Decimal, error) {
	return s.repo.SumPaidAmount(ctx, s.db)
}

func (s *Service) Subscribe(ctx context.Context, req domain.SubscribeInvoiceRequest, callback func(domain.Invoice)) (func(), error) {
	sub, buffered, err := s.hub.Subscribe()
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	detach := func() {
		sub.Close()
		close(done)
	}

	deliver := func(event livefeed.Event) {
		if event.Change == livefeed.ChangeDeleted {
			return
		}
		invoice := event.Invoice
		if req.UserID != "" && invoice.UserID.String() != req.UserID {
			return
		}

		// Correct the record before the subscriber sees it; persistence of
		// the correction must not block delivery.
		if domain.CorrectStatus(&invoice, s.clock.Now()) {
			go func(id, status string) {
				if err := s.repo.UpdateStatus(context.Background(), s.db, id, status, s.clock.Now()); err != nil {
					s.log.Warn("live correction persist failed",
						zap.String("formatted_id", id),
						zap.Error(err),
					)
				}
			}(invoice.FormattedID, invoice.Status)
		}

		if req.Status != "" && invoice.Status != req.Status {
			return
		}
		callback(invoice)
	}

	go func() {
		for _, event := range buffered {
			deliver(event)
		}
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				sub.Close()
				return
			case event, ok := <-sub.Events():
				if !ok {
					return
				}
				deliver(event)
			}
		}
	}()

	return detach, nil
}

func parseRef(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func parseAmount(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(value)
	if err != nil || amount.IsNegative() {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	return amount, nil
}
