// Package compiler turns a repair ticket and its line items into a quote or
// invoice. Everything here is pure: no storage, no clock.
package compiler

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	currencydomain "github.com/smallbiznis/repairdesk/internal/currency/domain"
	documentdomain "github.com/smallbiznis/repairdesk/internal/document/domain"
	repairdomain "github.com/smallbiznis/repairdesk/internal/repair/domain"
	taxdomain "github.com/smallbiznis/repairdesk/internal/tax/domain"
	"gorm.io/datatypes"
)

var ErrMalformedSnapshot = errors.New("malformed_items_snapshot")

type Input struct {
	Kind     documentdomain.Kind
	Ticket   repairdomain.Ticket
	Items    []repairdomain.LineItem
	Currency currencydomain.Currency
	// TaxRate is used when ExplicitTax is nil. Both nil means no tax.
	TaxRate     *taxdomain.TaxRate
	ExplicitTax *decimal.Decimal
	IssuedAt    time.Time
	// Term sets ValidUntil on quotes and DueAt on invoices. Zero leaves them unset.
	Term  time.Duration
	Notes string
}

// Compile computes totals over the items and freezes them into the document.
// The result has no ID or number yet.
func Compile(in Input) (documentdomain.Document, error) {
	if _, err := documentdomain.ParseKind(string(in.Kind)); err != nil {
		return documentdomain.Document{}, err
	}
	if in.ExplicitTax != nil && in.ExplicitTax.IsNegative() {
		return documentdomain.Document{}, documentdomain.ErrInvalidTax
	}

	snapshot := Snapshot(in.Items)
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return documentdomain.Document{}, fmt.Errorf("encode items snapshot: %w", err)
	}

	subtotal := Subtotal(snapshot)
	tax, rate, source := computeTax(subtotal, in.TaxRate, in.ExplicitTax)
	issuedAt := in.IssuedAt.UTC()

	doc := documentdomain.Document{
		OrgID:          in.Ticket.OrgID,
		Kind:           in.Kind,
		RepairID:       in.Ticket.ID,
		IssuedAt:       issuedAt,
		Subtotal:       subtotal,
		Tax:            tax,
		Total:          subtotal.Add(tax),
		TaxRate:        rate,
		TaxSource:      source,
		CurrencyCode:   in.Currency.Code,
		CurrencySymbol: in.Currency.Symbol,
		DecimalDigits:  in.Currency.DecimalDigits,
		Status:         documentdomain.InitialStatus(in.Kind),
		IsActive:       true,
		ItemsSnapshot:  datatypes.JSON(raw),
		AmountPaid:     decimal.Zero,
		Notes:          in.Notes,
	}
	if in.Term > 0 {
		end := issuedAt.Add(in.Term)
		if in.Kind == documentdomain.KindInvoice {
			doc.DueAt = &end
		} else {
			doc.ValidUntil = &end
		}
	}
	return doc, nil
}

func computeTax(subtotal decimal.Decimal, rate *taxdomain.TaxRate, explicit *decimal.Decimal) (decimal.Decimal, decimal.NullDecimal, documentdomain.TaxSource) {
	switch {
	case explicit != nil:
		return *explicit, decimal.NullDecimal{}, documentdomain.TaxSourceExplicit
	case rate != nil:
		return rate.Compute(subtotal), decimal.NewNullDecimal(rate.Rate), documentdomain.TaxSourceRate
	default:
		return decimal.Zero, decimal.NullDecimal{}, documentdomain.TaxSourceNone
	}
}

// Snapshot copies items by value. The result never aliases the input.
func Snapshot(items []repairdomain.LineItem) []documentdomain.SnapshotItem {
	out := make([]documentdomain.SnapshotItem, 0, len(items))
	for _, item := range items {
		out = append(out, documentdomain.SnapshotItem{
			LineItemID:  item.ID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			ItemType:    string(item.ItemType),
			LineTotal:   item.LineTotal(),
		})
	}
	return out
}

// Subtotal sums unitPrice × quantity without rounding.
func Subtotal(items []documentdomain.SnapshotItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// DecodeSnapshot parses a stored snapshot. Anything other than a JSON array
// of items is ErrMalformedSnapshot.
func DecodeSnapshot(raw datatypes.JSON) ([]documentdomain.SnapshotItem, error) {
	if len(raw) == 0 {
		return nil, ErrMalformedSnapshot
	}
	var items []documentdomain.SnapshotItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if items == nil {
		return nil, ErrMalformedSnapshot
	}
	return items, nil
}
