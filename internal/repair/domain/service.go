package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/repairdesk/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateTicketRequest) (*TicketDetail, error)
	Get(ctx context.Context, id string) (*TicketDetail, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	Update(ctx context.Context, req UpdateTicketRequest) (*Ticket, error)
	UpdateStatus(ctx context.Context, id string, status string) (*Ticket, error)
	ListUrgent(ctx context.Context) ([]Ticket, error)
	Summary(ctx context.Context) (*Summary, error)

	AddItem(ctx context.Context, repairID string, req LineItemInput) (*LineItem, error)
	UpdateItem(ctx context.Context, req UpdateItemRequest) (*LineItem, error)
	RemoveItem(ctx context.Context, repairID, itemID string) error
	CompleteItem(ctx context.Context, repairID, itemID string) (*LineItem, error)
}

// Reader is what document compilation needs: the ticket and its live items
// as of call time, and a way to record the issued total.
type Reader interface {
	Load(ctx context.Context, orgID, repairID snowflake.ID) (*Ticket, []LineItem, error)
	FinalizeTotal(ctx context.Context, orgID, repairID snowflake.ID, total decimal.Decimal) error
}

type LineItemInput struct {
	Description     string           `json:"description"`
	Quantity        int              `json:"quantity"`
	UnitPrice       *decimal.Decimal `json:"unit_price"`
	ItemType        string           `json:"item_type"`
	InventoryItemID string           `json:"inventory_item_id"`
}

type CreateTicketRequest struct {
	CustomerID              string          `json:"customer_id"`
	DeviceID                string          `json:"device_id"`
	TechnicianID            string          `json:"technician_id"`
	PriorityLevel           int             `json:"priority_level"`
	ProblemDescription      string          `json:"problem_description"`
	IntakeDate              *time.Time      `json:"intake_date"`
	EstimatedCompletionDate *time.Time      `json:"estimated_completion_date"`
	IsUnderWarranty         bool            `json:"is_under_warranty"`
	Items                   []LineItemInput `json:"items"`
}

type UpdateTicketRequest struct {
	ID                      string     `json:"-"`
	TechnicianID            *string    `json:"technician_id"`
	PriorityLevel           *int       `json:"priority_level"`
	ProblemDescription      *string    `json:"problem_description"`
	EstimatedCompletionDate *time.Time `json:"estimated_completion_date"`
	IsUnderWarranty         *bool      `json:"is_under_warranty"`
	CustomerApproval        *bool      `json:"customer_approval"`
}

type UpdateItemRequest struct {
	RepairID    string           `json:"-"`
	ItemID      string           `json:"-"`
	Description *string          `json:"description"`
	Quantity    *int             `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
}

type ListRequest struct {
	Status       string
	TechnicianID string
	CustomerID   string
	ActiveOnly   bool
	PageToken    string
	PageSize     int32
}

type ListFilter struct {
	Status       Status
	TechnicianID snowflake.ID
	CustomerID   snowflake.ID
	ActiveOnly   bool
}

type ListResponse struct {
	pagination.PageInfo
	Tickets []TicketView `json:"tickets"`
}

// TicketView carries the urgency classification alongside the ticket.
type TicketView struct {
	Ticket
	IsUrgent bool `json:"is_urgent"`
}

type TicketDetail struct {
	TicketView
	Items    []LineItem      `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type Summary struct {
	Active   int64            `json:"active"`
	Urgent   int64            `json:"urgent"`
	ByStatus map[Status]int64 `json:"by_status"`
}

func NewTicketView(t Ticket) TicketView {
	return TicketView{Ticket: t, IsUrgent: IsUrgent(t)}
}
