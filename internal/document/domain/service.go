package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateRequest struct {
	RepairID     string `json:"repair_id"`
	CurrencyCode string `json:"currency_code"`
	// Tax overrides rate-based tax when set.
	Tax   *decimal.Decimal `json:"tax"`
	Notes string           `json:"notes"`
}

type PaymentRequest struct {
	ID        string          `json:"-"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

type Service interface {
	CreateQuote(ctx context.Context, req CreateRequest) (*View, error)
	CreateInvoice(ctx context.Context, req CreateRequest) (*View, error)
	Get(ctx context.Context, id string) (*View, error)
	ListByRepair(ctx context.Context, repairID string) ([]Document, error)
	Regenerate(ctx context.Context, id string) (*View, error)
	UpdateQuoteStatus(ctx context.Context, id string, status string) (*View, error)
	RecordPayment(ctx context.Context, req PaymentRequest) (*View, error)
	RenderPDF(ctx context.Context, id string) ([]byte, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, doc *Document) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Document, error)
	LockByID(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID) (*Document, error)
	ListByRepair(ctx context.Context, db *gorm.DB, orgID, repairID snowflake.ID) ([]Document, error)
	DeactivateActive(ctx context.Context, db *gorm.DB, orgID, repairID snowflake.ID, kind Kind) (int64, error)
	Update(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, fields map[string]any) error
}
