package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Item is a stocked part. UnitPrice is in the org's currency major units.
type Item struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID          snowflake.ID    `gorm:"not null;uniqueIndex:ux_inventory_org_sku,priority:1" json:"organization_id"`
	SKU            string          `gorm:"column:sku;not null;uniqueIndex:ux_inventory_org_sku,priority:2" json:"sku"`
	Name           string          `gorm:"not null" json:"name"`
	UnitPrice      decimal.Decimal `gorm:"type:numeric(20,6);not null" json:"unit_price"`
	QuantityOnHand int             `gorm:"not null" json:"quantity_on_hand"`
	CreatedAt      time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updated_at"`
}

func (Item) TableName() string { return "inventory_items" }

type CreateRequest struct {
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	QuantityOnHand int             `json:"quantity_on_hand"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Item, error)
	List(ctx context.Context) ([]Item, error)
	Get(ctx context.Context, id string) (Item, error)
	GetForOrg(ctx context.Context, orgID, id snowflake.ID) (Item, error)
	AdjustStock(ctx context.Context, id string, delta int) (Item, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidSKU          = errors.New("invalid_sku")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidPrice        = errors.New("invalid_unit_price")
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrDuplicateSKU        = errors.New("duplicate_sku")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
)
