package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/pkg/db/option"
)

// Repository is a generic gorm-backed store keyed by snowflake id. Writes
// are always scoped to the owning organization.
type Repository[T any] interface {
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, orgID, id snowflake.ID, fields map[string]any) (bool, error)
}
