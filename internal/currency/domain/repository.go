package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// ListVisible returns the org's own currencies followed by core currencies.
	ListVisible(ctx context.Context, orgID snowflake.ID) ([]Currency, error)
	FindByCode(ctx context.Context, orgID snowflake.ID, code string) (*Currency, error)
	CountByOrg(ctx context.Context, orgID snowflake.ID) (int64, error)
	Insert(ctx context.Context, c *Currency) error
	// InsertIfAbsent skips rows whose (org_id, code) already exists.
	InsertIfAbsent(ctx context.Context, c *Currency) (bool, error)
	ClearDefault(ctx context.Context, orgID snowflake.ID) error
	MarkDefault(ctx context.Context, orgID, id snowflake.ID) error
}
