package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wecloud/backoffice/pkg/db/pagination"
)

type CreateInvoiceRequest struct {
	UserID    string
	PackageID string
	Amount    string
	DueDate   time.Time
	// Status overrides the derived initial status when set.
	Status string
	// Notify controls whether an invoice_notification event is dispatched
	// after the record is written. Dispatch failures never fail the create.
	Notify bool
}

type UpdateInvoiceRequest struct {
	ID      string
	Amount  *string
	DueDate *time.Time
	Status  *string
}

type GetInvoiceRequest struct {
	ID string
}

type DeleteInvoiceRequest struct {
	ID string
}

type MarkPaidRequest struct {
	ID string
	// Notify controls whether a payment_confirmation event is dispatched.
	Notify bool
}

type ListInvoiceRequest struct {
	PageToken string
	PageSize  int32
	Status    string
	UserID    string
	// Month filters by the denormalized 0-indexed month; requires Year.
	Month *int
	Year  *int
}

type ListInvoiceFilter struct {
	Status string
	UserID string
	Month  *int
	Year   *int
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

// ReclassifyResult reports the outcome of one corrective pass. Item failures
// are counted, never fatal to the pass.
type ReclassifyResult struct {
	Checked   int `json:"checked"`
	ToOverdue int `json:"to_overdue"`
	ToDue     int `json:"to_due"`
	Failed    int `json:"failed"`
}

// GenerateMonthlyRequest mints one invoice per active subscriber for the
// given 0-indexed month.
type GenerateMonthlyRequest struct {
	Month   int
	Year    int
	DueDate time.Time
	Notify  bool
}

// BatchResult aggregates per-item outcomes of a bulk operation.
type BatchResult struct {
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

type SubscribeInvoiceRequest struct {
	Status string
	UserID string
}

type Service interface {
	Create(context.Context, CreateInvoiceRequest) (Invoice, error)
	Update(context.Context, UpdateInvoiceRequest) (Invoice, error)
	Delete(context.Context, DeleteInvoiceRequest) error
	GetByID(context.Context, GetInvoiceRequest) (Invoice, error)
	MarkPaid(context.Context, MarkPaidRequest) (Invoice, error)
	List(context.Context, ListInvoiceRequest) (ListInvoiceResponse, error)
	Reclassify(context.Context) (ReclassifyResult, error)
	GenerateMonthly(context.Context, GenerateMonthlyRequest) (BatchResult, error)
	TotalRevenue(context.Context) (decimal.Decimal, error)
	// Subscribe delivers invoice changes matching the filter to callback,
	// with statuses corrected against today's date before delivery. The
	// returned detach function stops delivery.
	Subscribe(ctx context.Context, req SubscribeInvoiceRequest, callback func(Invoice)) (func(), error)
}

var (
	ErrTransientStore = errors.New("transient_store_error")
	ErrNotFound       = errors.New("not_found")
	ErrMissingUser    = errors.New("missing_user")
	ErrMissingPackage = errors.New("missing_package")
	ErrMissingDueDate = errors.New("missing_due_date")
	ErrInvalidAmount  = errors.New("invalid_amount")
	ErrInvalidStatus  = errors.New("invalid_status")
	ErrInvalidID      = errors.New("invalid_id")
	ErrPaidIsTerminal = errors.New("paid_is_terminal")
	ErrInvalidPeriod  = errors.New("invalid_period")
)
