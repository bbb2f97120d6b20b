package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/document/domain"
	dbpkg "github.com/smallbiznis/repairdesk/pkg/db"
	"gorm.io/gorm"
)

const documentColumns = `id, org_id, kind, document_number, repair_id, issued_at, due_at, valid_until,
	subtotal, tax, total, tax_rate, tax_source, currency_code, currency_symbol, decimal_digits,
	status, is_active, items_snapshot, payment_reference, amount_paid, paid_at, notes,
	created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, doc *domain.Document) error {
	return db.WithContext(ctx).Create(doc).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Document, error) {
	var doc domain.Document
	err := db.WithContext(ctx).Raw(
		`SELECT `+documentColumns+`
		 FROM documents WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&doc).Error
	if err != nil {
		return nil, err
	}
	if doc.ID == 0 {
		return nil, nil
	}
	return &doc, nil
}

// LockByID re-reads the document under a row lock. Call it inside the
// transaction that writes the row back.
func (r *repo) LockByID(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID) (*domain.Document, error) {
	query := `SELECT ` + documentColumns + `
		 FROM documents WHERE org_id = ? AND id = ?`
	// SQLite serializes writers on its own and has no FOR UPDATE.
	if !dbpkg.IsSQLite(tx) {
		query += ` FOR UPDATE`
	}

	var doc domain.Document
	if err := tx.WithContext(ctx).Raw(query, orgID, id).Scan(&doc).Error; err != nil {
		return nil, err
	}
	if doc.ID == 0 {
		return nil, nil
	}
	return &doc, nil
}

func (r *repo) ListByRepair(ctx context.Context, db *gorm.DB, orgID, repairID snowflake.ID) ([]domain.Document, error) {
	var docs []domain.Document
	err := db.WithContext(ctx).Raw(
		`SELECT `+documentColumns+`
		 FROM documents
		 WHERE org_id = ? AND repair_id = ?
		 ORDER BY issued_at DESC, id DESC`,
		orgID,
		repairID,
	).Scan(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *repo) DeactivateActive(ctx context.Context, db *gorm.DB, orgID, repairID snowflake.ID, kind domain.Kind) (int64, error) {
	// Creates for one ticket queue on its row. MySQL has no partial unique
	// index, so this lock alone keeps a single active document there.
	if !dbpkg.IsSQLite(db) {
		lock := db.WithContext(ctx).Exec(
			`SELECT id FROM repair_tickets WHERE org_id = ? AND id = ? FOR UPDATE`,
			orgID,
			repairID,
		)
		if lock.Error != nil {
			return 0, lock.Error
		}
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE documents SET is_active = ?
		 WHERE org_id = ? AND repair_id = ? AND kind = ? AND is_active = ?`,
		false,
		orgID,
		repairID,
		kind,
		true,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("org_id = ? AND id = ?", orgID, id).
		Updates(fields).Error
}
