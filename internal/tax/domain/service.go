package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Resolver picks the rate that applies to a document.
type Resolver interface {
	ResolveDefault(ctx context.Context, orgID snowflake.ID) (*TaxRate, error)
	ResolveForJurisdiction(ctx context.Context, orgID snowflake.ID, country, region string) (*TaxRate, error)
}

type Service interface {
	List(ctx context.Context, req ListRequest) ([]TaxRate, error)
	Create(ctx context.Context, req CreateRequest) (*TaxRate, error)
	SetDefault(ctx context.Context, id string) (*TaxRate, error)
	Resolve(ctx context.Context, req ResolveRequest) (*TaxRate, error)
}

type ListRequest struct {
	CountryCode string
	SortBy      string
	OrderBy     string
}

type CreateRequest struct {
	CountryCode string          `json:"country_code"`
	RegionCode  string          `json:"region_code"`
	Name        string          `json:"name"`
	Rate        decimal.Decimal `json:"rate"`
	IsDefault   bool            `json:"is_default"`
}

type ResolveRequest struct {
	CountryCode string
	RegionCode  string
}
