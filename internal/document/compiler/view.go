package compiler

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/repairdesk/internal/currency"
	currencydomain "github.com/smallbiznis/repairdesk/internal/currency/domain"
	documentdomain "github.com/smallbiznis/repairdesk/internal/document/domain"
)

// NewView formats doc for display. Rounding to the currency's digits happens
// here and nowhere earlier.
func NewView(doc documentdomain.Document, items []documentdomain.SnapshotItem) documentdomain.View {
	cur := currencydomain.Currency{
		Code:          doc.CurrencyCode,
		Symbol:        doc.CurrencySymbol,
		DecimalDigits: doc.DecimalDigits,
	}
	format := func(d decimal.Decimal) string { return currency.FormatAmount(d, cur) }

	view := documentdomain.View{
		Document: doc,
		Items:    make([]documentdomain.ItemView, 0, len(items)),
		Subtotal: format(doc.Subtotal),
		Tax:      format(doc.Tax),
		TaxLabel: taxLabel(doc),
		Total:    format(doc.Total),
	}
	for _, item := range items {
		view.Items = append(view.Items, documentdomain.ItemView{
			Description: item.Description,
			Quantity:    item.Quantity,
			ItemType:    item.ItemType,
			UnitPrice:   format(item.UnitPrice),
			LineTotal:   format(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))),
		})
	}
	if len(items) == 0 {
		view.EmptyLabel = documentdomain.NoItemsLabel
	}
	if doc.Kind == documentdomain.KindInvoice {
		view.AmountPaid = format(doc.AmountPaid)
		view.Balance = format(doc.Balance())
	}
	return view
}

func taxLabel(doc documentdomain.Document) string {
	switch doc.TaxSource {
	case documentdomain.TaxSourceRate:
		if doc.TaxRate.Valid {
			return "Tax (" + doc.TaxRate.Decimal.String() + "%)"
		}
		return "Tax"
	case documentdomain.TaxSourceExplicit:
		return "Tax"
	default:
		return "Tax (not configured)"
	}
}
