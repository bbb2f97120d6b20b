package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	currencydomain "github.com/smallbiznis/repairdesk/internal/currency/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) currencydomain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) currencydomain.Repository {
	return &repository{db: tx}
}

func (r *repository) ListVisible(ctx context.Context, orgID snowflake.ID) ([]currencydomain.Currency, error) {
	var items []currencydomain.Currency
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, org_id, code, name, symbol, decimal_digits, is_default, scope, created_at, updated_at
		 FROM currencies
		 WHERE org_id = ? OR org_id = ?
		 ORDER BY CASE WHEN org_id = ? THEN 1 ELSE 0 END, code ASC`,
		orgID,
		currencydomain.CoreOrgID,
		currencydomain.CoreOrgID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) FindByCode(ctx context.Context, orgID snowflake.ID, code string) (*currencydomain.Currency, error) {
	var item currencydomain.Currency
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, org_id, code, name, symbol, decimal_digits, is_default, scope, created_at, updated_at
		 FROM currencies
		 WHERE org_id = ? AND code = ?`,
		orgID,
		code,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repository) CountByOrg(ctx context.Context, orgID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM currencies WHERE org_id = ?`,
		orgID,
	).Scan(&count).Error
	return count, err
}

func (r *repository) Insert(ctx context.Context, c *currencydomain.Currency) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO currencies (
			id, org_id, code, name, symbol, decimal_digits, is_default, scope, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.OrgID,
		c.Code,
		c.Name,
		c.Symbol,
		c.DecimalDigits,
		c.IsDefault,
		c.Scope,
		c.CreatedAt,
		c.UpdatedAt,
	).Error
}

func (r *repository) InsertIfAbsent(ctx context.Context, c *currencydomain.Currency) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "org_id"}, {Name: "code"}},
			DoNothing: true,
		}).
		Create(c)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ClearDefault(ctx context.Context, orgID snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE currencies SET is_default = ?, updated_at = ? WHERE org_id = ? AND is_default = ?`,
		false,
		time.Now().UTC(),
		orgID,
		true,
	).Error
}

func (r *repository) MarkDefault(ctx context.Context, orgID, id snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE currencies SET is_default = ?, updated_at = ? WHERE org_id = ? AND id = ?`,
		true,
		time.Now().UTC(),
		orgID,
		id,
	).Error
}
