package scheduler

import (
	"context"
	"fmt"
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
	"github.com/wecloud/backoffice/internal/invoice/livefeed"
	invoicerepo "github.com/wecloud/backoffice/internal/invoice/repository"
	"github.com/wecloud/backoffice/internal/invoice/sequence"
	invoiceservice "github.com/wecloud/backoffice/internal/invoice/service"
	notificationdomain "github.com/wecloud/backoffice/internal/notification/domain"
	subscriberdomain "github.com/wecloud/backoffice/internal/subscriber/domain"
	subscriberrepo "github.com/wecloud/backoffice/internal/subscriber/repository"
	subscriberservice "github.com/wecloud/backoffice/internal/subscriber/service"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeDispatcher struct {
	mu        sync.Mutex
	reminders [][]string
	fail      bool
}

func (f *fakeDispatcher) Send(ctx context.Context, invoiceID, eventType string) (notificationdomain.SendResult, error) {
	return notificationdomain.SendResult{Success: true}, nil
}

func (f *fakeDispatcher) SendBulkReminders(ctx context.Context, invoiceIDs []string) (notificationdomain.BulkReminderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return notificationdomain.BulkReminderResult{Total: len(invoiceIDs), Failed: len(invoiceIDs)}, nil
	}
	f.reminders = append(f.reminders, append([]string(nil), invoiceIDs...))
	return notificationdomain.BulkReminderResult{Total: len(invoiceIDs), Sent: len(invoiceIDs)}, nil
}

func (f *fakeDispatcher) SendInvoiceDocument(ctx context.Context, invoiceID string) (notificationdomain.SendResult, error) {
	return notificationdomain.SendResult{Success: true}, nil
}

func (f *fakeDispatcher) SendBroadcast(ctx context.Context, message string) (notificationdomain.BroadcastResult, error) {
	return notificationdomain.BroadcastResult{}, nil
}

func (f *fakeDispatcher) reminderBatches() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.reminders...)
}

type fixture struct {
	sched      *Scheduler
	invoiceSvc invoicedomain.Service
	invoices   invoicedomain.Repository
	dispatcher *fakeDispatcher
	clock      *clock.FakeClock
	db         *gorm.DB

	user subscriberdomain.Subscriber
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceCounter{},
		&subscriberdomain.Subscriber{},
		&catalogdomain.Package{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2025, time.June, 1, 6, 0, 0, 0, time.UTC))
	dispatcher := &fakeDispatcher{}

	cfg := config.Config{
		Invoice: config.InvoiceConfig{Token: "ZTFY", PageSize: 20},
		Gateway: config.GatewayConfig{DefaultCountry: "92"},
	}

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

	invoices := invoicerepo.Provide()
	invoiceSvc := invoiceservice.New(invoiceservice.Params{
		Config:      cfg,
		DB:          db,
		Log:         zap.NewNop(),
		Clock:       fakeClock,
		Repo:        invoices,
		Allocator:   sequence.NewAllocator(db, zap.NewNop(), fakeClock),
		Hub:         livefeed.NewHub(),
		Subscribers: subs,
		Catalog:     catalog,
	})

	sched, err := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		Clock:      fakeClock,
		InvoiceSvc: invoiceSvc,
		Invoices:   invoices,
		Dispatcher: dispatcher,
		Config:     Config{GenerateDay: 1, DueDays: 10, ReminderBatchSize: 10},
	})
	require.NoError(t, err)

	return &fixture{
		sched:      sched,
		invoiceSvc: invoiceSvc,
		invoices:   invoices,
		dispatcher: dispatcher,
		clock:      fakeClock,
		db:         db,
		user:       user,
	}
}

func (f *fixture) seedOverdue(t *testing.T, id string) {
	t.Helper()
	invoice := invoicedomain.Invoice{
		FormattedID: id,
		UserID:      f.user.ID,
		PackageID:   f.user.PackageID,
		Amount:      decimal.RequireFromString("1500"),
		DueDate:     time.Date(2025, time.May, 10, 0, 0, 0, 0, time.UTC),
		Status:      invoicedomain.StatusOverdue,
		Month:       4,
		Year:        2025,
		PackageName: "Home 10",
		CreatedAt:   f.clock.Now(),
		UpdatedAt:   f.clock.Now(),
	}
	require.NoError(t, f.invoices.Insert(context.Background(), f.db, &invoice))
}

func TestGenerateJobMintsOnConfiguredDay(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.sched.GenerateJob(context.Background()))

	page, err := f.invoiceSvc.List(context.Background(), invoicedomain.ListInvoiceRequest{})
	require.NoError(t, err)
	require.Len(t, page.Invoices, 1)
	require.Equal(t, "202506ZTFY0001", page.Invoices[0].FormattedID)
	require.Equal(t, time.Date(2025, time.June, 11, 0, 0, 0, 0, time.UTC), page.Invoices[0].DueDate)
}

func TestGenerateJobSkipsOtherDays(t *testing.T) {
	f := setup(t)
	f.clock.Advance(24 * time.Hour)

	require.NoError(t, f.sched.GenerateJob(context.Background()))

	page, err := f.invoiceSvc.List(context.Background(), invoicedomain.ListInvoiceRequest{})
	require.NoError(t, err)
	require.Empty(t, page.Invoices)
}

func TestGenerateJobRerunFillsNothing(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.sched.GenerateJob(context.Background()))
	require.NoError(t, f.sched.GenerateJob(context.Background()))

	page, err := f.invoiceSvc.List(context.Background(), invoicedomain.ListInvoiceRequest{})
	require.NoError(t, err)
	require.Len(t, page.Invoices, 1)
}

func TestReclassifyJobConverges(t *testing.T) {
	f := setup(t)

	// due date passed while status still says Due
	invoice := invoicedomain.Invoice{
		FormattedID: "202505ZTFY0001",
		UserID:      f.user.ID,
		PackageID:   f.user.PackageID,
		Amount:      decimal.RequireFromString("1500"),
		DueDate:     time.Date(2025, time.May, 10, 0, 0, 0, 0, time.UTC),
		Status:      invoicedomain.StatusDue,
		Month:       4,
		Year:        2025,
		CreatedAt:   f.clock.Now(),
		UpdatedAt:   f.clock.Now(),
	}
	require.NoError(t, f.invoices.Insert(context.Background(), f.db, &invoice))

	require.NoError(t, f.sched.ReclassifyJob(context.Background()))

	stored, err := f.invoices.FindByID(context.Background(), f.db, "202505ZTFY0001")
	require.NoError(t, err)
	require.Equal(t, invoicedomain.StatusOverdue, stored.Status)
}

func TestRemindersJobSendsOncePerInvoice(t *testing.T) {
	f := setup(t)
	f.seedOverdue(t, "202505ZTFY0001")
	f.seedOverdue(t, "202505ZTFY0002")

	require.NoError(t, f.sched.RemindersJob(context.Background()))

	batches := f.dispatcher.reminderBatches()
	require.Len(t, batches, 1)
	require.ElementsMatch(t, []string{"202505ZTFY0001", "202505ZTFY0002"}, batches[0])
}

func TestRemindersJobSkipsAlreadyReminded(t *testing.T) {
	f := setup(t)
	f.seedOverdue(t, "202505ZTFY0001")
	require.NoError(t, f.invoices.MarkReminderSent(context.Background(), f.db, "202505ZTFY0001", f.clock.Now()))

	require.NoError(t, f.sched.RemindersJob(context.Background()))
	require.Empty(t, f.dispatcher.reminderBatches())
}

func TestRemindersJobReportsFailures(t *testing.T) {
	f := setup(t)
	f.seedOverdue(t, "202505ZTFY0001")
	f.dispatcher.fail = true

	err := f.sched.RemindersJob(context.Background())
	require.Error(t, err)
}

func TestRunOnceJoinsJobErrors(t *testing.T) {
	f := setup(t)
	f.seedOverdue(t, "202505ZTFY0001")
	f.dispatcher.fail = true

	// reminders fail but generation still ran
	err := f.sched.RunOnce(context.Background())
	require.Error(t, err)

	page, listErr := f.invoiceSvc.List(context.Background(), invoicedomain.ListInvoiceRequest{
		Month: ptr(5),
		Year:  ptr(2025),
	})
	require.NoError(t, listErr)
	require.Len(t, page.Invoices, 1)
}

func ptr[T any](v T) *T { return &v }
