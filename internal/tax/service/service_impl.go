package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	taxdomain "github.com/smallbiznis/repairdesk/internal/tax/domain"
	"go.uber.org/fx"
)

type resolverParam struct {
	fx.In

	Repository taxdomain.Repository
}

type resolver struct {
	repo taxdomain.Repository
}

func NewResolver(p resolverParam) taxdomain.Resolver {
	return &resolver{repo: p.Repository}
}

// ResolveDefault never guesses: a missing default is returned as
// ErrNoDefaultTaxRate.
func (r *resolver) ResolveDefault(ctx context.Context, orgID snowflake.ID) (*taxdomain.TaxRate, error) {
	if orgID == 0 {
		return nil, taxdomain.ErrInvalidOrganization
	}
	rate, err := r.repo.FindDefault(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if rate == nil {
		return nil, taxdomain.ErrNoDefaultTaxRate
	}
	return rate, nil
}

// ResolveForJurisdiction tries the exact region, then the country-wide rate,
// then the org default.
func (r *resolver) ResolveForJurisdiction(ctx context.Context, orgID snowflake.ID, country, region string) (*taxdomain.TaxRate, error) {
	country = taxdomain.NormalizeCountry(country)
	region = taxdomain.NormalizeRegion(region)

	if country != "" {
		if region != "" {
			rate, err := r.repo.FindByJurisdiction(ctx, orgID, country, region)
			if err != nil {
				return nil, err
			}
			if rate != nil {
				return rate, nil
			}
		}
		rate, err := r.repo.FindByJurisdiction(ctx, orgID, country, "")
		if err != nil {
			return nil, err
		}
		if rate != nil {
			return rate, nil
		}
	}
	return r.ResolveDefault(ctx, orgID)
}
