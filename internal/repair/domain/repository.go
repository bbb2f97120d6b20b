package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	InsertTicket(ctx context.Context, t *Ticket) error
	FindTicket(ctx context.Context, orgID, id snowflake.ID) (*Ticket, error)
	ListTickets(ctx context.Context, orgID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]*Ticket, error)
	ListActive(ctx context.Context, orgID snowflake.ID) ([]Ticket, error)
	CountByStatus(ctx context.Context, orgID snowflake.ID) (map[Status]int64, error)
	UpdateTicket(ctx context.Context, orgID, id snowflake.ID, fields map[string]any) error

	InsertItem(ctx context.Context, item *LineItem) error
	FindItem(ctx context.Context, orgID, repairID, id snowflake.ID) (*LineItem, error)
	ListItems(ctx context.Context, orgID, repairID snowflake.ID) ([]LineItem, error)
	UpdateItem(ctx context.Context, orgID, id snowflake.ID, fields map[string]any) error
	DeleteItem(ctx context.Context, orgID, id snowflake.ID) error
}
