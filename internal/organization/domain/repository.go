package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrganization(ctx context.Context, org Organization) error
	FindByID(ctx context.Context, id snowflake.ID) (*Organization, error)
	List(ctx context.Context) ([]Organization, error)
	// LockByID reads the row under a row lock where the dialect has one.
	// Must be called inside a transaction.
	LockByID(ctx context.Context, id snowflake.ID) (*Organization, error)
}
