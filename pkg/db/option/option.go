package option

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before it executes.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type QueryOptionFunc func(db *gorm.DB) *gorm.DB

func (f QueryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

type QuerySortBy struct {
	Allow map[string]bool
	Field string
	Desc  bool
}

var sortableFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"code":       true,
}

// WithSortBy orders by field if it is in the allow list, falling back to id.
func WithSortBy(sort QuerySortBy) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		allow := sort.Allow
		if allow == nil {
			allow = sortableFields
		}
		field := strings.ToLower(strings.TrimSpace(sort.Field))
		if !allow[field] {
			field = "id"
		}
		direction := "ASC"
		if sort.Desc {
			direction = "DESC"
		}
		return db.Order(fmt.Sprintf("%s %s", field, direction))
	})
}

// WithQuerySortBy builds a QuerySortBy from request parameters. orderBy is
// "asc" or "desc"; anything else sorts ascending.
func WithQuerySortBy(sortBy, orderBy string, allow map[string]bool) QuerySortBy {
	return QuerySortBy{
		Allow: allow,
		Field: sortBy,
		Desc:  strings.EqualFold(strings.TrimSpace(orderBy), "desc"),
	}
}

type Operator string

const (
	Equal    Operator = "="
	NotEqual Operator = "<>"
	In       Operator = "IN"
	NotIn    Operator = "NOT IN"
	Like     Operator = "LIKE"
)

// Condition filters on a column; the column name must come from code, never user input.
type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

func ApplyOperator(conditions ...Condition) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		for _, cond := range conditions {
			switch cond.Operator {
			case In, NotIn:
				db = db.Where(fmt.Sprintf("%s %s (?)", cond.Field, cond.Operator), cond.Value)
			case "":
				db = db.Where(fmt.Sprintf("%s = ?", cond.Field), cond.Value)
			default:
				db = db.Where(fmt.Sprintf("%s %s ?", cond.Field, cond.Operator), cond.Value)
			}
		}
		return db
	})
}
