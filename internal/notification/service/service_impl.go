package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	catalogdomain "github.com/wecloud/backoffice/internal/catalog/domain"
	"github.com/wecloud/backoffice/internal/clock"
	"github.com/wecloud/backoffice/internal/config"
	invoicedomain "github.com/wecloud/backoffice/internal/invoice/domain"
	"github.com/wecloud/backoffice/internal/notification/domain"
	"github.com/wecloud/backoffice/internal/notification/template"
	"github.com/wecloud/backoffice/internal/observability/metrics"
	"github.com/wecloud/backoffice/internal/providers/pdf"
	"github.com/wecloud/backoffice/internal/ratelimit"
	subscriberdomain "github.com/wecloud/backoffice/internal/subscriber/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config      config.Config
	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Repo        domain.Repository
	Invoices    invoicedomain.Repository
	Subscribers subscriberdomain.Service
	Catalog     catalogdomain.Service
	Gateway     domain.Gateway
	PDF         pdf.Provider
	Limiter     *ratelimit.SendLimiter `optional:"true"`
	Metrics     *metrics.Metrics       `optional:"true"`
}

type Service struct {
	cfg         config.Config
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	repo        domain.Repository
	invoices    invoicedomain.Repository
	subscribers subscriberdomain.Service
	catalog     catalogdomain.Service
	gateway     domain.Gateway
	pdf         pdf.Provider
	limiter     *ratelimit.SendLimiter
	metrics     *metrics.Metrics
}

func New(p Params) domain.Dispatcher {
	return &Service{
		cfg:         p.Config,
		db:          p.DB,
		log:         p.Log.Named("notification.service"),
		clock:       p.Clock,
		repo:        p.Repo,
		invoices:    p.Invoices,
		subscribers: p.Subscribers,
		catalog:     p.Catalog,
		gateway:     p.Gateway,
		pdf:         p.PDF,
		limiter:     p.Limiter,
		metrics:     p.Metrics,
	}
}

func (s *Service) Send(ctx context.Context, invoiceID, eventType string) (domain.SendResult, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if !validEventType(eventType) {
		return domain.SendResult{}, domain.ErrInvalidEventType
	}

	existing, err := s.repo.Find(ctx, s.db, invoiceID, eventType)
	if err != nil {
		return domain.SendResult{}, err
	}
	if existing != nil {
		s.metrics.RecordNotificationDeduplicated(eventType)
		return domain.SendResult{
			Success: false,
			Message: fmt.Sprintf("%s already sent for invoice %s", eventType, invoiceID),
		}, nil
	}

	invoice, err := s.invoices.FindByID(ctx, s.db, invoiceID)
	if err != nil {
		return domain.SendResult{}, err
	}
	if invoice == nil {
		return domain.SendResult{}, domain.ErrInvoiceNotFound
	}

	user, err := s.subscribers.GetByID(ctx, subscriberdomain.GetSubscriberRequest{ID: invoice.UserID.String()})
	if err != nil {
		return domain.SendResult{}, domain.ErrUserNotFound
	}

	// The package may have been retired since the invoice was minted; the
	// denormalized name on the invoice is the designed fallback.
	packageName := invoice.PackageName
	packageSpeed := ""
	if pkg, err := s.catalog.GetByID(ctx, catalogdomain.GetPackageRequest{ID: invoice.PackageID.String()}); err == nil {
		packageName = pkg.Name
		packageSpeed = pkg.Speed
	}

	message := template.Render(templateFor(eventType, invoice.Status), map[string]string{
		"userName":      user.Name,
		"formattedId":   invoice.FormattedID,
		"amount":        template.FormatAmount(invoice.Amount),
		"dueDate":       template.FormatLongDate(invoice.DueDate),
		"invoiceLink":   s.invoiceLink(invoice.FormattedID),
		"packageName":   packageName,
		"packageSpeed":  packageSpeed,
		"billingPeriod": template.FormatBillingPeriod(invoice.Month, invoice.Year),
	})

	if err := s.gateway.SendText(ctx, user.Phone, message); err != nil {
		s.metrics.RecordNotificationFailed(eventType, "gateway")
		s.log.Warn("gateway send failed",
			zap.String("invoice_id", invoiceID),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		// no log entry is written, so a later retry is permitted
		return domain.SendResult{Success: false, Message: err.Error()}, err
	}

	entry := domain.NotificationLogEntry{
		InvoiceID: invoice.FormattedID,
		EventType: eventType,
		SentAt:    s.clock.Now(),
		Status:    invoice.Status,
	}
	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		// the message went out; losing the guard row risks a duplicate later
		s.log.Error("notification log write failed after send",
			zap.String("invoice_id", invoiceID),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return domain.SendResult{Success: true, Message: "sent, log write failed"}, err
	}

	s.metrics.RecordNotificationSent(eventType)
	return domain.SendResult{
		Success: true,
		Message: fmt.Sprintf("%s sent to %s", eventType, user.Name),
	}, nil
}

func (s *Service) SendBulkReminders(ctx context.Context, invoiceIDs []string) (domain.BulkReminderResult, error) {
	result := domain.BulkReminderResult{Total: len(invoiceIDs)}

	for i, invoiceID := range invoiceIDs {
		if err := s.limiter.Wait(ctx); err != nil {
			return result, err
		}
		res, err := s.Send(ctx, invoiceID, domain.EventPaymentReminder)
		switch {
		case err != nil:
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", invoiceID, err))
		case !res.Success:
			result.Skipped++
		default:
			result.Sent++
			if err := s.invoices.MarkReminderSent(ctx, s.db, invoiceID, s.clock.Now()); err != nil {
				s.log.Warn("reminder timestamp write failed",
					zap.String("invoice_id", invoiceID),
					zap.Error(err),
				)
			}
		}

		if i == len(invoiceIDs)-1 {
			break
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(s.cfg.Gateway.SendPause):
		}
	}

	return result, nil
}

// SendBroadcast pages through every active subscriber and delivers the
// announcement to each. Broadcasts are operator-initiated one-offs, so the
// (invoice, event) send guard does not apply.
func (s *Service) SendBroadcast(ctx context.Context, message string) (domain.BroadcastResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return domain.BroadcastResult{}, domain.ErrEmptyBroadcast
	}

	var result domain.BroadcastResult
	active := true
	pageToken := ""
	for {
		page, err := s.subscribers.List(ctx, subscriberdomain.ListSubscriberRequest{
			PageToken: pageToken,
			PageSize:  100,
			Active:    &active,
		})
		if err != nil {
			return result, err
		}

		for _, user := range page.Subscribers {
			if err := s.limiter.Wait(ctx); err != nil {
				return result, err
			}

			result.Total++
			body := template.Render(template.BroadcastAlert, map[string]string{
				"userName": user.Name,
				"message":  message,
			})
			if err := s.gateway.SendText(ctx, user.Phone, body); err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", user.Phone, err))
				s.metrics.RecordNotificationFailed("broadcast_alert", "gateway")
			} else {
				result.Sent++
				s.metrics.RecordNotificationSent("broadcast_alert")
			}

			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(s.cfg.Gateway.SendPause):
			}
		}

		if !page.HasMore {
			break
		}
		pageToken = page.NextPageToken
	}

	s.log.Info("broadcast finished",
		zap.Int("total", result.Total),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// SendInvoiceDocument renders the invoice to PDF and ships it through the
// gateway's document endpoint. A subscriber may ask for their copy any
// number of times, so this path skips the (invoice, event) send guard.
func (s *Service) SendInvoiceDocument(ctx context.Context, invoiceID string) (domain.SendResult, error) {
	invoiceID = strings.TrimSpace(invoiceID)

	invoice, err := s.invoices.FindByID(ctx, s.db, invoiceID)
	if err != nil {
		return domain.SendResult{}, err
	}
	if invoice == nil {
		return domain.SendResult{}, domain.ErrInvoiceNotFound
	}

	user, err := s.subscribers.GetByID(ctx, subscriberdomain.GetSubscriberRequest{ID: invoice.UserID.String()})
	if err != nil {
		return domain.SendResult{}, domain.ErrUserNotFound
	}

	packageName := invoice.PackageName
	packageSpeed := ""
	if pkg, err := s.catalog.GetByID(ctx, catalogdomain.GetPackageRequest{ID: invoice.PackageID.String()}); err == nil {
		packageName = pkg.Name
		packageSpeed = pkg.Speed
	}

	doc := pdf.InvoiceDocument{
		BusinessName:    "WeCloud Internet Services",
		InvoiceNumber:   invoice.FormattedID,
		IssueDate:       template.FormatLongDate(invoice.CreatedAt),
		DueDate:         template.FormatLongDate(invoice.DueDate),
		BillingPeriod:   template.FormatBillingPeriod(invoice.Month, invoice.Year),
		Status:          invoice.Status,
		CustomerName:    user.Name,
		CustomerPhone:   user.Phone,
		CustomerAddress: user.Address,
		PackageName:     packageName,
		PackageSpeed:    packageSpeed,
		Amount:          template.FormatAmount(invoice.Amount),
		InvoiceLink:     s.invoiceLink(invoice.FormattedID),
	}

	// Paid invoices go out as receipts so the document shows the settlement
	// date instead of a due date.
	var reader io.Reader
	caption := fmt.Sprintf("Invoice %s from WeCloud Internet Services", invoice.FormattedID)
	if invoice.Status == invoicedomain.StatusPaid {
		reader, err = s.pdf.GenerateReceipt(ctx, pdf.ReceiptDocument{
			InvoiceDocument: doc,
			DatePaid:        template.FormatLongDate(invoice.UpdatedAt),
		})
		caption = fmt.Sprintf("Receipt for invoice %s from WeCloud Internet Services", invoice.FormattedID)
	} else {
		reader, err = s.pdf.GenerateInvoice(ctx, doc)
	}
	if err != nil {
		return domain.SendResult{}, fmt.Errorf("render invoice pdf: %w", err)
	}
	if reader == nil {
		return domain.SendResult{Success: false, Message: "pdf rendering unavailable"}, nil
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return domain.SendResult{}, fmt.Errorf("read invoice pdf: %w", err)
	}

	filename := invoice.FormattedID + ".pdf"
	if err := s.gateway.SendFile(ctx, user.Phone, caption, filename, "application/pdf", data); err != nil {
		s.metrics.RecordNotificationFailed("invoice_document", "gateway")
		s.log.Warn("invoice document send failed",
			zap.String("invoice_id", invoiceID),
			zap.Error(err),
		)
		return domain.SendResult{Success: false, Message: err.Error()}, err
	}

	s.metrics.RecordNotificationSent("invoice_document")
	return domain.SendResult{
		Success: true,
		Message: fmt.Sprintf("invoice %s sent to %s as document", invoice.FormattedID, user.Name),
	}, nil
}

func (s *Service) invoiceLink(formattedID string) string {
	base := strings.TrimRight(s.cfg.Invoice.LinkBaseURL, "/")
	if base == "" {
		return ""
	}
	return base + "/" + formattedID
}

func templateFor(eventType, status string) string {
	switch eventType {
	case domain.EventPaymentConfirmation:
		return template.PaymentConfirmation
	case domain.EventPaymentReminder:
		return template.PaymentReminder
	}

	switch status {
	case invoicedomain.StatusPaid:
		return template.PaymentConfirmation
	case invoicedomain.StatusOverdue:
		return template.PaymentReminder
	default:
		return template.InvoiceNotification
	}
}

func validEventType(eventType string) bool {
	switch eventType {
	case domain.EventInvoiceCreated, domain.EventPaymentReminder, domain.EventPaymentConfirmation:
		return true
	default:
		return false
	}
}
