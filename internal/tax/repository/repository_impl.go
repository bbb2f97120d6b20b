package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	taxdomain "github.com/smallbiznis/repairdesk/internal/tax/domain"
	"github.com/smallbiznis/repairdesk/pkg/db/option"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const selectColumns = `id, org_id, country_code, region_code, name, rate, is_default, created_at, updated_at`

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) taxdomain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) taxdomain.Repository {
	return &repository{db: tx}
}

func (r *repository) List(ctx context.Context, orgID snowflake.ID, filter taxdomain.ListRequest) ([]taxdomain.TaxRate, error) {
	var items []taxdomain.TaxRate
	stmt := r.db.WithContext(ctx).
		Model(&taxdomain.TaxRate{}).
		Where("org_id = ?", orgID)

	if filter.CountryCode != "" {
		stmt = stmt.Where("country_code = ?", filter.CountryCode)
	}

	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"created_at":   true,
		"name":         true,
		"country_code": true,
		"rate":         true,
	})).Apply(stmt)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) FindByID(ctx context.Context, orgID, id snowflake.ID) (*taxdomain.TaxRate, error) {
	return r.scanOne(ctx,
		`SELECT `+selectColumns+` FROM tax_rates WHERE org_id = ? AND id = ?`,
		orgID, id,
	)
}

func (r *repository) FindDefault(ctx context.Context, orgID snowflake.ID) (*taxdomain.TaxRate, error) {
	return r.scanOne(ctx,
		`SELECT `+selectColumns+` FROM tax_rates WHERE org_id = ? AND is_default = ? ORDER BY id ASC LIMIT 1`,
		orgID, true,
	)
}

func (r *repository) FindByJurisdiction(ctx context.Context, orgID snowflake.ID, country, region string) (*taxdomain.TaxRate, error) {
	return r.scanOne(ctx,
		`SELECT `+selectColumns+` FROM tax_rates WHERE org_id = ? AND country_code = ? AND region_code = ?`,
		orgID, country, region,
	)
}

func (r *repository) scanOne(ctx context.Context, query string, args ...any) (*taxdomain.TaxRate, error) {
	var item taxdomain.TaxRate
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&item).Error; err != nil {
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
		`SELECT COUNT(1) FROM tax_rates WHERE org_id = ?`,
		orgID,
	).Scan(&count).Error
	return count, err
}

func (r *repository) Insert(ctx context.Context, rate *taxdomain.TaxRate) error {
	return r.db.WithContext(ctx).Create(rate).Error
}

func (r *repository) InsertIfAbsent(ctx context.Context, rate *taxdomain.TaxRate) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "org_id"}, {Name: "country_code"}, {Name: "region_code"}},
			DoNothing: true,
		}).
		Create(rate)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ClearDefault(ctx context.Context, orgID snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE tax_rates SET is_default = ?, updated_at = ? WHERE org_id = ? AND is_default = ?`,
		false,
		time.Now().UTC(),
		orgID,
		true,
	).Error
}

func (r *repository) MarkDefault(ctx context.Context, orgID, id snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE tax_rates SET is_default = ?, updated_at = ? WHERE org_id = ? AND id = ?`,
		true,
		time.Now().UTC(),
		orgID,
		id,
	).Error
}
