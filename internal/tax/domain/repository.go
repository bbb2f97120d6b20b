package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context, orgID snowflake.ID, filter ListRequest) ([]TaxRate, error)
	FindByID(ctx context.Context, orgID, id snowflake.ID) (*TaxRate, error)
	FindDefault(ctx context.Context, orgID snowflake.ID) (*TaxRate, error)
	FindByJurisdiction(ctx context.Context, orgID snowflake.ID, country, region string) (*TaxRate, error)
	CountByOrg(ctx context.Context, orgID snowflake.ID) (int64, error)
	Insert(ctx context.Context, rate *TaxRate) error
	InsertIfAbsent(ctx context.Context, rate *TaxRate) (bool, error)
	ClearDefault(ctx context.Context, orgID snowflake.ID) error
	MarkDefault(ctx context.Context, orgID, id snowflake.ID) error
}
