package pdf

import (
	"bytes"
	"context"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateInvoice(ctx context.Context, doc InvoiceDocument) (io.Reader, error) {
	m := newDocument()

	m.AddRow(16,
		text.NewCol(12, doc.BusinessName, props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)
	if doc.BusinessTagline != "" {
		m.AddRow(8,
			text.NewCol(12, doc.BusinessTagline, props.Text{Size: 9}),
		)
	}

	m.AddRow(12,
		text.NewCol(12, "Invoice", props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   2,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New("Invoice number: "+doc.InvoiceNumber, props.Text{Top: 0}),
			text.New("Date of issue: "+doc.IssueDate, props.Text{Top: 4}),
			text.New("Date due: "+doc.DueDate, props.Text{Top: 8}),
			text.New("Billing period: "+doc.BillingPeriod, props.Text{Top: 12}),
			text.New("Status: "+doc.Status, props.Text{Top: 16}),
		),
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold}),
			text.New(doc.CustomerName, props.Text{Top: 4}),
			text.New(doc.CustomerPhone, props.Text{Top: 8}),
			text.New(doc.CustomerAddress, props.Text{Top: 12}),
		),
	)

	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Speed", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(3, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(12,
		text.NewCol(6, doc.PackageName+" (monthly subscription)", props.Text{Size: 9}),
		text.NewCol(3, doc.PackageSpeed, props.Text{Size: 9, Align: align.Right}),
		text.NewCol(3, doc.Amount, props.Text{Size: 9, Align: align.Right}),
	)

	m.AddRow(12,
		col.New(6),
		text.NewCol(3, "Amount due", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(3, doc.Amount, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)

	if doc.PaymentInstructions != "" {
		m.AddRow(20,
			text.NewCol(12, doc.PaymentInstructions, props.Text{Size: 9, Top: 2}),
		)
	}
	if doc.InvoiceLink != "" {
		m.AddRow(10,
			text.NewCol(12, "View online: "+doc.InvoiceLink, props.Text{Size: 8, Top: 2}),
		)
	}

	generated, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(generated.GetBytes()), nil
}

func newDocument() core.Maroto {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	return maroto.New(cfg)
}
