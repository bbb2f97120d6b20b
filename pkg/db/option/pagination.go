package option

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

// ApplyPagination applies keyset pagination over (created_at desc, id desc)
// and fetches one row past the page so callers can detect more results.
// Malformed tokens restart from the first page.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if page.PageToken != "" {
			if cursor, err := pagination.DecodeCursor(page.PageToken); err == nil {
				createdAt, timeErr := cursor.Time()
				id, idErr := snowflake.ParseString(cursor.ID)
				if timeErr == nil && idErr == nil {
					db = db.Where("(created_at < ?) OR (created_at = ? AND id < ?)", createdAt, createdAt, int64(id))
				}
			}
		}
		return db.Limit(pagination.NormalizeSize(page.PageSize) + 1)
	})
}
