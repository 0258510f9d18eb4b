package pdf

import (
	"context"
	"io"
)

// InvoiceDocument carries everything the printable invoice shows.
type InvoiceDocument struct {
	BusinessName    string
	BusinessTagline string

	InvoiceNumber string
	IssueDate     string
	DueDate       string
	BillingPeriod string
	Status        string

	CustomerName    string
	CustomerPhone   string
	CustomerAddress string

	PackageName  string
	PackageSpeed string
	Amount       string

	PaymentInstructions string
	InvoiceLink         string
}

// ReceiptDocument is the paid counterpart of an invoice document.
type ReceiptDocument struct {
	InvoiceDocument
	DatePaid string
}

type Provider interface {
	GenerateInvoice(ctx context.Context, doc InvoiceDocument) (io.Reader, error)
	GenerateReceipt(ctx context.Context, doc ReceiptDocument) (io.Reader, error)
}

type NoOpProvider struct{}

func (p *NoOpProvider) GenerateInvoice(ctx context.Context, doc InvoiceDocument) (io.Reader, error) {
	return nil, nil
}

func (p *NoOpProvider) GenerateReceipt(ctx context.Context, doc ReceiptDocument) (io.Reader, error) {
	return nil, nil
}
