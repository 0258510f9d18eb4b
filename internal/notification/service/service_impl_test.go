package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	catalogdomain "github.com/wecloud/backoffice/internal/catalog/domain"
	catalogrepo "github.com/wecloud/backoffice/internal/catalog/repository"
	catalogservice "github.com/wecloud/backoffice/internal/catalog/service"
	"github.com/wecloud/backoffice/internal/clock"
	"github.com/wecloud/backoffice/internal/config"
	invoicedomain "github.com/wecloud/backoffice/internal/invoice/domain"
	invoicerepo "github.com/wecloud/backoffice/internal/invoice/repository"
	"github.com/wecloud/backoffice/internal/notification/domain"
	"github.com/wecloud/backoffice/internal/notification/repository"
	"github.com/wecloud/backoffice/internal/providers/pdf"
	subscriberdomain "github.com/wecloud/backoffice/internal/subscriber/domain"
	subscriberrepo "github.com/wecloud/backoffice/internal/subscriber/repository"
	subscriberservice "github.com/wecloud/backoffice/internal/subscriber/service"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeGateway struct {
	mu       sync.Mutex
	messages []string
	phones   []string
	files    []string
	fail     bool
}

func (g *fakeGateway) SendText(ctx context.Context, phone, message string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return fmt.Errorf("session not ready")
	}
	g.phones = append(g.phones, phone)
	g.messages = append(g.messages, message)
	return nil
}

func (g *fakeGateway) SendFile(ctx context.Context, phone, caption, filename, mimetype string, data []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return fmt.Errorf("session not ready")
	}
	g.phones = append(g.phones, phone)
	g.files = append(g.files, filename)
	g.messages = append(g.messages, caption)
	return nil
}

func (g *fakeGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.messages)
}

func (g *fakeGateway) last() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.messages) == 0 {
		return ""
	}
	return g.messages[len(g.messages)-1]
}

type fixture struct {
	dispatcher domain.Dispatcher
	gateway    *fakeGateway
	db         *gorm.DB
	invoices   invoicedomain.Repository
	subs       subscriberdomain.Service
	clock      *clock.FakeClock

	user subscriberdomain.Subscriber
	pkg  catalogdomain.Package
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&invoicedomain.Invoice{},
		&subscriberdomain.Subscriber{},
		&catalogdomain.Package{},
		&domain.NotificationLogEntry{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := config.Config{
		Invoice: config.InvoiceConfig{
			Token:       "ZTFY",
			LinkBaseURL: "https://billing.wecloud.net/invoices",
		},
		Gateway: config.GatewayConfig{
			DefaultCountry: "92",
			SendPause:      time.Millisecond,
		},
	}

	fakeClock := clock.NewFakeClock(time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC))

	subs := subscriberservice.New(subscriberservice.Params{
		Config: cfg,
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Repo:   subscriberrepo.Provide(),
	})
	catalog := catalogservice.New(catalogservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  catalogrepo.Provide(),
		Clock: fakeClock,
	})

	pkg, err := catalog.Create(context.Background(), catalogdomain.CreatePackageRequest{
		Name:         "Home 10",
		Speed:        "10 Mbps",
		MonthlyPrice: "1500",
	})
	require.NoError(t, err)

	user, err := subs.Create(context.Background(), subscriberdomain.CreateSubscriberRequest{
		Name:      "Ali Raza",
		Phone:     "03001234567",
		PackageID: pkg.ID.String(),
	})
	require.NoError(t, err)

	gateway := &fakeGateway{}
	invoices := invoicerepo.Provide()

	dispatcher := New(Params{
		Config:      cfg,
		DB:          db,
		Log:         zap.NewNop(),
		Clock:       fakeClock,
		Repo:        repository.Provide(),
		Invoices:    invoices,
		Subscribers: subs,
		Catalog:     catalog,
		Gateway:     gateway,
		PDF:         pdf.New(),
	})

	return &fixture{
		dispatcher: dispatcher,
		gateway:    gateway,
		db:         db,
		invoices:   invoices,
		subs:       subs,
		clock:      fakeClock,
		user:       user,
		pkg:        pkg,
	}
}

func (f *fixture) seedInvoice(t *testing.T, id, status string) invoicedomain.Invoice {
	t.Helper()

	invoice := invoicedomain.Invoice{
		FormattedID: id,
		UserID:      f.user.ID,
		PackageID:   f.pkg.ID,
		Amount:      decimal.RequireFromString("1500"),
		DueDate:     time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC),
		Status:      status,
		Month:       5,
		Year:        2025,
		PackageName: "Home 10",
		CreatedAt:   f.clock.Now(),
		UpdatedAt:   f.clock.Now(),
	}
	require.NoError(t, f.invoices.Insert(context.Background(), f.db, &invoice))
	return invoice
}

func TestSendIsIdempotent(t *testing.T) {
	f := setup(t)
	f.seedInvoice(t, "202506ZTFY0001", invoicedomain.StatusDue)

	first, err := f.dispatcher.Send(context.Background(), "202506ZTFY0001", domain.EventInvoiceCreated)
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := f.dispatcher.Send(context.Background(), "202506ZTFY0001", domain.EventInvoiceCreated)
	require.NoError(t, err)
	require.False(t, second.Success)
	require.Contains(t, second.Message, "already sent")

	require.Equal(t, 1, f.gateway.count())
}

func TestSendRendersInvoiceFields(t *testing.T) {
	f := setup(t)
	f.seedInvoice(t, "202506ZTFY0001", invoicedomain.StatusDue)

	_, err := f.dispatcher.Send(context.Background(), "202506ZTFY0001", domain.EventInvoiceCreated)
	require.NoError(t, err)

	message := f.gateway.last()
	require.Contains(t, message, "Ali Raza")
	require.Contains(t, message, "202506ZTFY0001")
	require.Contains(t, message, "PKR 1,500.00")
	require.Contains(t, message, "June 10, 2025")
	require.Contains(t, message, "https://billing.wecloud.net/invoices/202506ZTFY0001")
	require.Contains(t, message, "Home 10")
	require.NotContains(t, message, "{")

	require.Equal(t, []string{"923001234567"}, f.gateway.phones)
}

func TestSendSelectsTemplateByStatus(t *testing.T) {
	f := setup(t)

	f.seedInvoice(t, "202506ZTFY0001", invoicedomain.StatusPaid)
	_, err := f.dispatcher.Send(context.Background(), "202506ZTFY0001", domain.EventInvoiceCreated)
	require.NoError(t, err)
	require.Contains(t, f.gateway.last(), "PAYMENT CONFIRMATION")

	f.seedInvoice(t, "202506ZTFY0002", invoicedomain.StatusOverdue)
	_, err = f.dispatcher.Send(context.Background(), "202506ZTFY0002", domain.EventInvoiceCreated)
	require.NoError(t, err)
	require.Contains(t, f.gateway.last(), "PAYMENT REMINDER")
}

func TestSendGatewayFailureLeavesNoLogEntry(t *testing.T) {
	f := setup(t)
	f.seedInvoice(t, "202506ZTFY0001", invoicedomain.StatusDue)
	f.gateway.fail = true

	res, err := f.dispatcher.Send(context.Background(), "202506ZTFY0001", domain.EventInvoiceCreated)
	require.Error(t, err)
	require.False(t, res.Success)
	require.Contains(t, res.Message, "session not ready")

	// the failed attempt left no guard row, so the retry goes out
	f.gateway.fail = false
	retry, err := f.dispatcher.Send(context.Background(), "202506ZTFY0001", domain.EventInvoiceCreated)
	require.NoError(t, err)
	require.True(t, retry.Success)
	require.Equal(t, 1, f.gateway.count())
}

func TestSendUnknownInvoice(t *testing.T) {
	f := setup(t)

	_, err := f.dispatcher.Send(context.Background(), "202506ZTFY9999", domain.EventInvoiceCreated)
	require.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}

func TestSendRejectsUnknownEventType(t *testing.T) {
	f := setup(t)

	_, err := f.dispatcher.Send(context.Background(), "202506ZTFY0001", "carrier_pigeon")
	require.ErrorIs(t, err, domain.ErrInvalidEventType)
}

func TestSendFallsBackToDenormalizedPackageName(t *testing.T) {
	f := setup(t)
	invoice := f.seedInvoice(t, "202506ZTFY0001", invoicedomain.StatusDue)

	require.NoError(t, f.db.Exec(`DELETE FROM packages WHERE id = ?`, invoice.PackageID).Error)

	_, err := f.dispatcher.Send(context.Background(), invoice.FormattedID, domain.EventInvoiceCreated)
	require.NoError(t, err)
	require.Contains(t, f.gateway.last(), "Home 10")
}

func TestSendBulkReminders(t *testing.T) {
	f := setup(t)
	f.seedInvoice(t, "202506ZTFY0001", invoicedomain.StatusOverdue)
	f.seedInvoice(t, "202506ZTFY0002", invoicedomain.StatusOverdue)

	// one already has its reminder logged
	_, err := f.dispatcher.Send(context.Background(), "202506ZTFY0002", domain.EventPaymentReminder)
	require.NoError(t, err)

	result, err := f.dispatcher.SendBulkReminders(context.Background(), []string{
		"202506ZTFY0001",
		"202506ZTFY0002",
		"202506ZTFY9999",
	})
	require.NoError(t, err)
	require.Equal(t, 3, result.Total)
	require.Equal(t, 1, result.Sent)
	require.Equal(t, 1, result.Skipped)
	require.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	require.True(t, strings.Contains(result.Errors[0], "202506ZTFY9999"))

	// reminder timestamp recorded for the fresh send
	sent, err := f.invoices.FindByID(context.Background(), f.db, "202506ZTFY0001")
	require.NoError(t, err)
	require.NotNil(t, sent.ReminderSentAt)
}

func TestSendInvoiceDocument(t *testing.T) {
	f := setup(t)
	f.seedInvoice(t, "202506ZTFY0001", invoicedomain.StatusDue)

	result, err := f.dispatcher.SendInvoiceDocument(context.Background(), "202506ZTFY0001")
	require.NoError(t, err)
	require.True(t, result.Success)

	require.Len(t, f.gateway.files, 1)
	require.Equal(t, "202506ZTFY0001.pdf", f.gateway.files[0])
	require.Equal(t, "923001234567", f.gateway.phones[0])
	require.Contains(t, f.gateway.last(), "202506ZTFY0001")

	// not guarded, a second request goes out again
	again, err := f.dispatcher.SendInvoiceDocument(context.Background(), "202506ZTFY0001")
	require.NoError(t, err)
	require.True(t, again.Success)
	require.Len(t, f.gateway.files, 2)
}

func TestSendBroadcastReachesActiveSubscribers(t *testing.T) {
	f := setup(t)

	second, err := f.subs.Create(context.Background(), subscriberdomain.CreateSubscriberRequest{
		Name:  "Sara Khan",
		Phone: "03217654321",
	})
	require.NoError(t, err)

	inactive := false
	_, err = f.subs.Update(context.Background(), subscriberdomain.UpdateSubscriberRequest{
		ID:     second.ID.String(),
		Active: &inactive,
	})
	require.NoError(t, err)

	result, err := f.dispatcher.SendBroadcast(context.Background(), "Maintenance window tonight 2am")
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	require.Equal(t, 1, result.Sent)
	require.Zero(t, result.Failed)

	require.Equal(t, []string{"923001234567"}, f.gateway.phones)
	body := f.gateway.last()
	require.Contains(t, body, "Ali Raza")
	require.Contains(t, body, "Maintenance window tonight 2am")
}

func TestSendBroadcastCountsGatewayFailures(t *testing.T) {
	f := setup(t)
	f.gateway.fail = true

	result, err := f.dispatcher.SendBroadcast(context.Background(), "Maintenance window tonight 2am")
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	require.Zero(t, result.Sent)
	require.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
}

func TestSendBroadcastRejectsEmptyMessage(t *testing.T) {
	f := setup(t)

	_, err := f.dispatcher.SendBroadcast(context.Background(), "   ")
	require.ErrorIs(t, err, domain.ErrEmptyBroadcast)
}

func TestSendInvoiceDocumentPaidSendsReceipt(t *testing.T) {
	f := setup(t)
	f.seedInvoice(t, "202506ZTFY0002", invoicedomain.StatusPaid)

	result, err := f.dispatcher.SendInvoiceDocument(context.Background(), "202506ZTFY0002")
	require.NoError(t, err)
	require.True(t, result.Success)

	require.Len(t, f.gateway.files, 1)
	require.Equal(t, "202506ZTFY0002.pdf", f.gateway.files[0])
	require.Contains(t, f.gateway.last(), "Receipt for invoice 202506ZTFY0002")
}

func TestSendInvoiceDocumentUnknownInvoice(t *testing.T) {
	f := setup(t)

	_, err := f.dispatcher.SendInvoiceDocument(context.Background(), "202506ZTFY9999")
	require.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}
