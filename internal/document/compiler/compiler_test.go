package compiler

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	currencydomain "github.com/smallbiznis/repairdesk/internal/currency/domain"
	documentdomain "github.com/smallbiznis/repairdesk/internal/document/domain"
	repairdomain "github.com/smallbiznis/repairdesk/internal/repair/domain"
	taxdomain "github.com/smallbiznis/repairdesk/internal/tax/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var (
	usd      = currencydomain.Currency{Code: "USD", Symbol: "$", DecimalDigits: 2}
	jpy      = currencydomain.Currency{Code: "JPY", Symbol: "¥", DecimalDigits: 0}
	issuedAt = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	ticket   = repairdomain.Ticket{ID: snowflake.ID(100), OrgID: snowflake.ID(7)}
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func items() []repairdomain.LineItem {
	return []repairdomain.LineItem{
		{ID: 1, Description: "Screen", Quantity: 1, UnitPrice: d("10.50"), ItemType: repairdomain.ItemTypePart},
		{ID: 2, Description: "Labor", Quantity: 1, UnitPrice: d("15.00"), ItemType: repairdomain.ItemTypeService},
	}
}

func TestCompileWithRate(t *testing.T) {
	rate := &taxdomain.TaxRate{Rate: d("10")}
	doc, err := Compile(Input{Kind: documentdomain.KindQuote, Ticket: ticket, Items: items(), Currency: usd, TaxRate: rate, IssuedAt: issuedAt, Term: 72 * time.Hour})
	require.NoError(t, err)

	assert.True(t, doc.Subtotal.Equal(d("25.50")))
	assert.True(t, doc.Tax.Equal(d("2.55")))
	assert.True(t, doc.Total.Equal(d("28.05")))
	assert.Equal(t, documentdomain.TaxSourceRate, doc.TaxSource)
	assert.True(t, doc.TaxRate.Valid)
	assert.Equal(t, documentdomain.QuoteStatusPending, doc.Status)
	assert.True(t, doc.IsActive)
	assert.Equal(t, ticket.ID, doc.RepairID)
	require.NotNil(t, doc.ValidUntil)
	assert.Nil(t, doc.DueAt)
	assert.True(t, doc.ValidUntil.Equal(issuedAt.Add(72*time.Hour)))

	view := NewView(doc, Snapshot(items()))
	assert.Equal(t, "$25.50", view.Subtotal)
	assert.Equal(t, "$2.55", view.Tax)
	assert.Equal(t, "$28.05", view.Total)
	assert.Equal(t, "Tax (10%)", view.TaxLabel)
	assert.Empty(t, view.Balance)
}

func TestExplicitTaxWinsOverRate(t *testing.T) {
	explicit := d("1.00")
	doc, err := Compile(Input{Kind: documentdomain.KindInvoice, Ticket: ticket, Items: items(), Currency: usd, TaxRate: &taxdomain.TaxRate{Rate: d("10")}, ExplicitTax: &explicit, IssuedAt: issuedAt, Term: 24 * time.Hour})
	require.NoError(t, err)

	assert.Equal(t, documentdomain.TaxSourceExplicit, doc.TaxSource)
	assert.True(t, doc.Total.Equal(d("26.50")))
	assert.False(t, doc.TaxRate.Valid)
	assert.Equal(t, documentdomain.InvoiceStatusUnpaid, doc.Status)
	require.NotNil(t, doc.DueAt)

	negative := d("-1")
	_, err = Compile(Input{Kind: documentdomain.KindInvoice, Ticket: ticket, Currency: usd, ExplicitTax: &negative, IssuedAt: issuedAt})
	assert.ErrorIs(t, err, documentdomain.ErrInvalidTax)
}

func TestNoTaxIsFlagged(t *testing.T) {
	doc, err := Compile(Input{Kind: documentdomain.KindQuote, Ticket: ticket, Items: items(), Currency: usd, IssuedAt: issuedAt})
	require.NoError(t, err)
	assert.Equal(t, documentdomain.TaxSourceNone, doc.TaxSource)
	assert.True(t, doc.Tax.IsZero())
	assert.True(t, doc.Total.Equal(doc.Subtotal))
	assert.Nil(t, doc.ValidUntil)
	assert.Equal(t, "Tax (not configured)", NewView(doc, nil).TaxLabel)
}

func TestEmptyItemsAllowed(t *testing.T) {
	doc, err := Compile(Input{Kind: documentdomain.KindQuote, Ticket: ticket, Currency: usd, IssuedAt: issuedAt})
	require.NoError(t, err)
	assert.True(t, doc.Subtotal.IsZero())
	assert.JSONEq(t, `[]`, string(doc.ItemsSnapshot))

	view := NewView(doc, []documentdomain.SnapshotItem{})
	assert.Equal(t, documentdomain.NoItemsLabel, view.EmptyLabel)
	assert.Empty(t, view.Items)
	assert.Equal(t, "$0.00", view.Total)
}

func TestZeroDecimalCurrencyRoundsOnlyAtDisplay(t *testing.T) {
	line := []repairdomain.LineItem{{ID: 1, Description: "Cable", Quantity: 3, UnitPrice: d("8.5"), ItemType: repairdomain.ItemTypePart}}
	doc, err := Compile(Input{Kind: documentdomain.KindQuote, Ticket: ticket, Items: line, Currency: jpy, IssuedAt: issuedAt})
	require.NoError(t, err)

	assert.True(t, doc.Subtotal.Equal(d("25.5")))
	view := NewView(doc, Snapshot(line))
	assert.Equal(t, "¥26", view.Total)
	assert.Equal(t, "¥9", view.Items[0].UnitPrice)
	assert.Equal(t, "¥26", view.Items[0].LineTotal)
}

func TestSubtotalDoesNotRoundPerLine(t *testing.T) {
	line := []repairdomain.LineItem{
		{ID: 1, Description: "a", Quantity: 1, UnitPrice: d("0.004"), ItemType: repairdomain.ItemTypePart},
		{ID: 2, Description: "b", Quantity: 1, UnitPrice: d("0.004"), ItemType: repairdomain.ItemTypePart},
	}
	doc, err := Compile(Input{Kind: documentdomain.KindQuote, Ticket: ticket, Items: line, Currency: usd, IssuedAt: issuedAt})
	require.NoError(t, err)
	assert.Equal(t, "$0.01", NewView(doc, Snapshot(line)).Subtotal)
}

func TestSnapshotIsACopy(t *testing.T) {
	live := items()
	doc, err := Compile(Input{Kind: documentdomain.KindQuote, Ticket: ticket, Items: live, Currency: usd, IssuedAt: issuedAt})
	require.NoError(t, err)

	live[0].Quantity = 10
	live[0].UnitPrice = d("99")

	stored, err := DecodeSnapshot(doc.ItemsSnapshot)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, 1, stored[0].Quantity)
	assert.True(t, Subtotal(stored).Equal(doc.Subtotal))
}

func TestDecodeSnapshotRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "{", `{"items":[]}`, "null"} {
		_, err := DecodeSnapshot(datatypes.JSON(raw))
		assert.ErrorIs(t, err, ErrMalformedSnapshot, raw)
	}
}

func TestInvoiceViewShowsBalance(t *testing.T) {
	doc, err := Compile(Input{Kind: documentdomain.KindInvoice, Ticket: ticket, Items: items(), Currency: usd, IssuedAt: issuedAt})
	require.NoError(t, err)
	doc.AmountPaid = d("20")

	view := NewView(doc, Snapshot(items()))
	assert.Equal(t, "$20.00", view.AmountPaid)
	assert.Equal(t, "$5.50", view.Balance)
}

func TestCompileRejectsUnknownKind(t *testing.T) {
	_, err := Compile(Input{Kind: "receipt", Ticket: ticket, Currency: usd, IssuedAt: issuedAt})
	assert.ErrorIs(t, err, documentdomain.ErrInvalidKind)
}
