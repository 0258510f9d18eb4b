package pdf

import (
	"bytes"
	"context"
	"io"

	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

func (p *PDFProvider) GenerateReceipt(ctx context.Context, doc ReceiptDocument) (io.Reader, error) {
	m := newDocument()

	m.AddRow(16,
		text.NewCol(8, "Payment Receipt", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, doc.BusinessName, props.Text{
			Size:  10,
			Align: align.Right,
			Top:   4,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New("Invoice number: "+doc.InvoiceNumber, props.Text{Top: 0}),
			text.New("Billing period: "+doc.BillingPeriod, props.Text{Top: 4}),
			text.New("Date paid: "+doc.DatePaid, props.Text{Top: 8, Style: fontstyle.Bold}),
		),
		col.New(6).Add(
			text.New("Received from", props.Text{Style: fontstyle.Bold}),
			text.New(doc.CustomerName, props.Text{Top: 4}),
			text.New(doc.CustomerPhone, props.Text{Top: 8}),
		),
	)

	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(6, "Amount paid", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(12,
		text.NewCol(6, doc.PackageName+" (monthly subscription)", props.Text{Size: 9}),
		text.NewCol(6, doc.Amount, props.Text{Size: 9, Align: align.Right}),
	)

	m.AddRow(12,
		col.New(6),
		text.NewCol(6, "Total paid: "+doc.Amount, props.Text{
			Style: fontstyle.Bold,
			Size:  10,
			Align: align.Right,
		}),
	)

	m.AddRow(14,
		text.NewCol(12, "Thank you for your payment.", props.Text{Size: 9, Top: 4}),
	)

	generated, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(generated.GetBytes()), nil
}
