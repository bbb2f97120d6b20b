package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	List(ctx context.Context, req ListRequest) ([]Currency, error)
	Create(ctx context.Context, req CreateRequest) (*Currency, error)
	SetDefault(ctx context.Context, code string) (*Currency, error)
	Resolve(ctx context.Context, req ResolveRequest) (*Resolution, error)
	ResolveForOrg(ctx context.Context, orgID snowflake.ID, explicitCode string) (*Resolution, error)
	Invalidate(orgID snowflake.ID)
	InvalidateAll()
}

type ListRequest struct {
	// Refresh bypasses and repopulates the cached list.
	Refresh bool
}

type CreateRequest struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	DecimalDigits *int   `json:"decimal_digits"`
	IsDefault     bool   `json:"is_default"`
}

type ResolveRequest struct {
	Code    string
	Refresh bool
}
