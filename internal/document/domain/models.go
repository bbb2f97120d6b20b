// Package domain contains the quote and invoice models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Kind string

const (
	KindQuote   Kind = "quote"
	KindInvoice Kind = "invoice"
)

// TaxSource records how a document's tax amount was obtained.
type TaxSource string

const (
	TaxSourceExplicit TaxSource = "explicit"
	TaxSourceRate     TaxSource = "rate"
	TaxSourceNone     TaxSource = "none"
)

type Status string

const (
	QuoteStatusPending  Status = "pending"
	QuoteStatusApproved Status = "approved"
	QuoteStatusRejected Status = "rejected"

	InvoiceStatusUnpaid  Status = "unpaid"
	InvoiceStatusPartial Status = "partial"
	InvoiceStatusPaid    Status = "paid"
)

// Document is an issued quote or invoice. Amounts are unrounded major units;
// ItemsSnapshot holds the exact line items the totals were computed from.
type Document struct {
	ID               snowflake.ID        `json:"id" gorm:"primaryKey"`
	OrgID            snowflake.ID        `json:"organization_id" gorm:"column:org_id;not null;index"`
	Kind             Kind                `json:"kind" gorm:"type:varchar(16);not null;index:ix_documents_repair_kind,priority:2"`
	DocumentNumber   string              `json:"document_number" gorm:"type:varchar(64);not null;uniqueIndex"`
	RepairID         snowflake.ID        `json:"repair_id" gorm:"not null;index:ix_documents_repair_kind,priority:1"`
	IssuedAt         time.Time           `json:"issued_at" gorm:"not null"`
	DueAt            *time.Time          `json:"due_at,omitempty"`
	ValidUntil       *time.Time          `json:"valid_until,omitempty"`
	Subtotal         decimal.Decimal     `json:"subtotal" gorm:"type:numeric(20,6);not null"`
	Tax              decimal.Decimal     `json:"tax" gorm:"type:numeric(20,6);not null"`
	Total            decimal.Decimal     `json:"total" gorm:"type:numeric(20,6);not null"`
	TaxRate          decimal.NullDecimal `json:"tax_rate" gorm:"type:numeric(7,4)"`
	TaxSource        TaxSource           `json:"tax_source" gorm:"type:varchar(16);not null"`
	CurrencyCode     string              `json:"currency_code" gorm:"type:varchar(3);not null"`
	CurrencySymbol   string              `json:"currency_symbol" gorm:"type:varchar(8);not null"`
	DecimalDigits    int                 `json:"decimal_digits" gorm:"not null"`
	Status           Status              `json:"status" gorm:"type:varchar(16);not null"`
	IsActive         bool                `json:"is_active" gorm:"not null"`
	ItemsSnapshot    datatypes.JSON      `json:"-" gorm:"not null"`
	PaymentReference string              `json:"payment_reference,omitempty" gorm:"type:varchar(128);not null;default:''"`
	AmountPaid       decimal.Decimal     `json:"amount_paid" gorm:"type:numeric(20,6);not null"`
	PaidAt           *time.Time          `json:"paid_at,omitempty"`
	Notes            string              `json:"notes,omitempty" gorm:"type:text;not null;default:''"`
	CreatedAt        time.Time           `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time           `json:"updated_at" gorm:"not null"`
}

func (Document) TableName() string { return "documents" }

// SnapshotItem is the frozen copy of a line item stored on a document.
type SnapshotItem struct {
	LineItemID  snowflake.ID    `json:"line_item_id"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	ItemType    string          `json:"item_type"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// Balance is the amount still owed on an invoice.
func (d Document) Balance() decimal.Decimal {
	return d.Total.Sub(d.AmountPaid)
}

func ParseKind(value string) (Kind, error) {
	switch Kind(value) {
	case KindQuote, KindInvoice:
		return Kind(value), nil
	default:
		return "", ErrInvalidKind
	}
}

// InitialStatus is the status a freshly issued document of kind starts in.
func InitialStatus(kind Kind) Status {
	if kind == KindInvoice {
		return InvoiceStatusUnpaid
	}
	return QuoteStatusPending
}

// ParseQuoteDecision accepts the statuses a pending quote may move to.
func ParseQuoteDecision(value string) (Status, error) {
	switch Status(value) {
	case QuoteStatusApproved, QuoteStatusRejected:
		return Status(value), nil
	default:
		return "", ErrInvalidStatus
	}
}
