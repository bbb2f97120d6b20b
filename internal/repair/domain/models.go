package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type ItemType string

const (
	ItemTypePart    ItemType = "part"
	ItemTypeService ItemType = "service"
)

const (
	MinPriority = 1
	MaxPriority = 5
)

// Ticket is a repair work order. TotalCost tracks the live item sum until an
// invoice is issued, after which CostFinalized is set and TotalCost holds the
// invoice total.
type Ticket struct {
	ID                      snowflake.ID        `json:"id" gorm:"primaryKey"`
	OrgID                   snowflake.ID        `json:"organization_id" gorm:"column:org_id;not null;index"`
	TicketNumber            string              `json:"ticket_number" gorm:"type:varchar(64);not null;uniqueIndex"`
	CustomerID              snowflake.ID        `json:"customer_id" gorm:"not null;index"`
	DeviceID                *snowflake.ID       `json:"device_id,omitempty"`
	TechnicianID            *snowflake.ID       `json:"technician_id,omitempty" gorm:"index"`
	Status                  Status              `json:"status" gorm:"type:varchar(32);not null;index"`
	PriorityLevel           int                 `json:"priority_level" gorm:"not null"`
	ProblemDescription      string              `json:"problem_description" gorm:"type:text;not null;default:''"`
	IntakeDate              time.Time           `json:"intake_date" gorm:"not null"`
	EstimatedCompletionDate *time.Time          `json:"estimated_completion_date,omitempty"`
	ActualCompletionDate    *time.Time          `json:"actual_completion_date,omitempty"`
	IsUnderWarranty         bool                `json:"is_under_warranty" gorm:"not null"`
	CustomerApproval        *bool               `json:"customer_approval,omitempty"`
	TotalCost               decimal.NullDecimal `json:"total_cost" gorm:"type:numeric(20,6)"`
	CostFinalized           bool                `json:"cost_finalized" gorm:"not null"`
	CreatedAt               time.Time           `json:"created_at" gorm:"not null"`
	UpdatedAt               time.Time           `json:"updated_at" gorm:"not null"`
}

func (Ticket) TableName() string { return "repair_tickets" }

type LineItem struct {
	ID              snowflake.ID    `json:"id" gorm:"primaryKey"`
	OrgID           snowflake.ID    `json:"organization_id" gorm:"column:org_id;not null;index"`
	RepairID        snowflake.ID    `json:"repair_id" gorm:"not null;index"`
	Description     string          `json:"description" gorm:"type:text;not null"`
	Quantity        int             `json:"quantity" gorm:"not null"`
	UnitPrice       decimal.Decimal `json:"unit_price" gorm:"type:numeric(20,6);not null"`
	ItemType        ItemType        `json:"item_type" gorm:"type:varchar(16);not null"`
	IsCompleted     bool            `json:"is_completed" gorm:"not null"`
	InventoryItemID *snowflake.ID   `json:"inventory_item_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time       `json:"updated_at" gorm:"not null"`
}

func (LineItem) TableName() string { return "repair_line_items" }

// LineTotal is unitPrice × quantity, unrounded.
func (i LineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Subtotal sums line totals without intermediate rounding.
func Subtotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func ParseItemType(value string) (ItemType, error) {
	switch ItemType(value) {
	case ItemTypePart, ItemTypeService:
		return ItemType(value), nil
	default:
		return "", ErrInvalidItemType
	}
}

func (i *LineItem) Validate() error {
	if i.Description == "" {
		return ErrInvalidDescription
	}
	if i.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if i.UnitPrice.IsNegative() {
		return ErrInvalidUnitPrice
	}
	if _, err := ParseItemType(string(i.ItemType)); err != nil {
		return err
	}
	return nil
}
