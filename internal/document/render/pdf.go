// Package render produces printable forms of issued documents.
package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/smallbiznis/repairdesk/internal/document/domain"
)

const dateLayout = "2006-01-02"

// Header carries the context printed above the line items.
type Header struct {
	OrganizationName string
	TicketNumber     string
	CustomerName     string
}

type Renderer interface {
	Render(ctx context.Context, view domain.View, header Header) ([]byte, error)
}

type PDFRenderer struct{}

func NewPDFRenderer() Renderer {
	return &PDFRenderer{}
}

func (r *PDFRenderer) Render(ctx context.Context, view domain.View, header Header) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc := view.Document

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, title(doc.Kind), props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, header.OrganizationName, props.Text{
			Size:  11,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	meta := []string{
		"Number: " + doc.DocumentNumber,
		"Date of issue: " + doc.IssuedAt.Format(dateLayout),
	}
	if doc.ValidUntil != nil {
		meta = append(meta, "Valid until: "+doc.ValidUntil.Format(dateLayout))
	}
	if doc.DueAt != nil {
		meta = append(meta, "Date due: "+doc.DueAt.Format(dateLayout))
	}
	if header.TicketNumber != "" {
		meta = append(meta, "Repair: "+header.TicketNumber)
	}
	metaCol := col.New(6)
	for i, line := range meta {
		metaCol.Add(text.New(line, props.Text{Top: float64(i * 4)}))
	}
	billTo := col.New(6)
	if header.CustomerName != "" {
		billTo.Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold, Align: align.Right}),
			text.New(header.CustomerName, props.Text{Top: 5, Align: align.Right}),
		)
	}
	m.AddRow(float64(len(meta)*4+6), metaCol, billTo)

	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	if len(view.Items) == 0 {
		m.AddRow(10, text.NewCol(12, view.EmptyLabel, props.Text{Size: 9, Style: fontstyle.Italic}))
	}
	for _, item := range view.Items {
		m.AddRow(8,
			text.NewCol(6, item.Description, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%d", item.Quantity), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.UnitPrice, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.LineTotal, props.Text{Size: 9, Align: align.Right}),
		)
	}

	totals := [][2]string{
		{"Subtotal", view.Subtotal},
		{view.TaxLabel, view.Tax},
		{"Total", view.Total},
	}
	if doc.Kind == domain.KindInvoice {
		totals = append(totals, [2]string{"Paid", view.AmountPaid}, [2]string{"Amount due", view.Balance})
	}
	for i, row := range totals {
		style := fontstyle.Normal
		if i == len(totals)-1 {
			style = fontstyle.Bold
		}
		m.AddRow(8,
			col.New(7),
			text.NewCol(3, row[0], props.Text{Size: 9, Style: style}),
			text.NewCol(2, row[1], props.Text{Size: 9, Style: style, Align: align.Right}),
		)
	}

	if notes := strings.TrimSpace(doc.Notes); notes != "" {
		m.AddRow(20, text.NewCol(12, notes, props.Text{Size: 9, Top: 6}))
	}

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate %s pdf: %w", doc.Kind, err)
	}
	return out.GetBytes(), nil
}

func title(kind domain.Kind) string {
	if kind == domain.KindInvoice {
		return "Invoice"
	}
	return "Quote"
}

func FileName(doc domain.Document) string {
	return doc.DocumentNumber + ".pdf"
}
