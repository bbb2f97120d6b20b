package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	repairdomain "github.com/smallbiznis/repairdesk/internal/repair/domain"
	"github.com/smallbiznis/repairdesk/pkg/db/option"
	"github.com/smallbiznis/repairdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

var terminalStatuses = []repairdomain.Status{
	repairdomain.StatusCompleted,
	repairdomain.StatusCancelled,
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) repairdomain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) repairdomain.Repository {
	return &repository{db: tx}
}

func (r *repository) InsertTicket(ctx context.Context, t *repairdomain.Ticket) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *repository) FindTicket(ctx context.Context, orgID, id snowflake.ID) (*repairdomain.Ticket, error) {
	var ticket repairdomain.Ticket
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&ticket).Error
	if err != nil {
		return nil, err
	}
	if ticket.ID == 0 {
		return nil, nil
	}
	return &ticket, nil
}

func (r *repository) ListTickets(ctx context.Context, orgID snowflake.ID, filter repairdomain.ListFilter, page pagination.Pagination) ([]*repairdomain.Ticket, error) {
	var tickets []*repairdomain.Ticket
	stmt := r.db.WithContext(ctx).
		Model(&repairdomain.Ticket{}).
		Where("org_id = ?", orgID)

	conditions := []option.Condition{}
	if filter.Status != "" {
		conditions = append(conditions, option.Condition{Field: "status", Operator: option.Equal, Value: filter.Status})
	}
	if filter.TechnicianID != 0 {
		conditions = append(conditions, option.Condition{Field: "technician_id", Operator: option.Equal, Value: filter.TechnicianID})
	}
	if filter.CustomerID != 0 {
		conditions = append(conditions, option.Condition{Field: "customer_id", Operator: option.Equal, Value: filter.CustomerID})
	}
	if filter.ActiveOnly {
		conditions = append(conditions, option.Condition{Field: "status", Operator: option.NotIn, Value: terminalStatuses})
	}
	stmt = option.ApplyOperator(conditions...).Apply(stmt)
	stmt = option.ApplyPagination(page).Apply(stmt)

	if err := stmt.Order("created_at desc, id desc").Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *repository) ListActive(ctx context.Context, orgID snowflake.ID) ([]repairdomain.Ticket, error) {
	var tickets []repairdomain.Ticket
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND status NOT IN (?)", orgID, terminalStatuses).
		Order("priority_level asc, intake_date asc").
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *repository) CountByStatus(ctx context.Context, orgID snowflake.ID) (map[repairdomain.Status]int64, error) {
	type row struct {
		Status repairdomain.Status
		Total  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Raw(
		`SELECT status, COUNT(1) AS total
		 FROM repair_tickets
		 WHERE org_id = ?
		 GROUP BY status`,
		orgID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[repairdomain.Status]int64, len(rows))
	for _, item := range rows {
		counts[item.Status] = item.Total
	}
	return counts, nil
}

func (r *repository) UpdateTicket(ctx context.Context, orgID, id snowflake.ID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&repairdomain.Ticket{}).
		Where("org_id = ? AND id = ?", orgID, id).
		Updates(fields).Error
}

func (r *repository) InsertItem(ctx context.Context, item *repairdomain.LineItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) FindItem(ctx context.Context, orgID, repairID, id snowflake.ID) (*repairdomain.LineItem, error) {
	var item repairdomain.LineItem
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND repair_id = ? AND id = ?", orgID, repairID, id).
		Limit(1).
		Find(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repository) ListItems(ctx context.Context, orgID, repairID snowflake.ID) ([]repairdomain.LineItem, error) {
	var items []repairdomain.LineItem
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND repair_id = ?", orgID, repairID).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) UpdateItem(ctx context.Context, orgID, id snowflake.ID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&repairdomain.LineItem{}).
		Where("org_id = ? AND id = ?", orgID, id).
		Updates(fields).Error
}

func (r *repository) DeleteItem(ctx context.Context, orgID, id snowflake.ID) error {
	return r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Delete(&repairdomain.LineItem{}).Error
}
