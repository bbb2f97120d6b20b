package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/clock"
	"github.com/smallbiznis/repairdesk/internal/orgcontext"
	taxdomain "github.com/smallbiznis/repairdesk/internal/tax/domain"
	dbpkg "github.com/smallbiznis/repairdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type serviceParams struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     taxdomain.Repository
	Resolver taxdomain.Resolver
	Clock    clock.Clock
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     taxdomain.Repository
	resolver taxdomain.Resolver
	clock    clock.Clock
}

func NewService(p serviceParams) taxdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("tax.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		resolver: p.Resolver,
		clock:    p.Clock,
	}
}

func (s *Service) List(ctx context.Context, req taxdomain.ListRequest) ([]taxdomain.TaxRate, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, taxdomain.ErrInvalidOrganization
	}

	filter := taxdomain.ListRequest{
		CountryCode: taxdomain.NormalizeCountry(req.CountryCode),
		SortBy:      strings.TrimSpace(req.SortBy),
		OrderBy:     strings.TrimSpace(req.OrderBy),
	}
	return s.repo.List(ctx, orgID, filter)
}

func (s *Service) Create(ctx context.Context, req taxdomain.CreateRequest) (*taxdomain.TaxRate, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, taxdomain.ErrInvalidOrganization
	}

	now := s.clock.Now()
	record := &taxdomain.TaxRate{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		CountryCode: taxdomain.NormalizeCountry(req.CountryCode),
		RegionCode:  taxdomain.NormalizeRegion(req.RegionCode),
		Name:        strings.TrimSpace(req.Name),
		Rate:        req.Rate,
		IsDefault:   req.IsDefault,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByJurisdiction(ctx, orgID, record.CountryCode, record.RegionCode)
		if err != nil {
			return err
		}
		if existing != nil {
			return taxdomain.ErrDuplicateRate
		}
		if record.IsDefault {
			if err := repo.ClearDefault(ctx, orgID); err != nil {
				return err
			}
		}
		if err := repo.Insert(ctx, record); err != nil {
			if dbpkg.IsDuplicateKeyErr(err) {
				return taxdomain.ErrDuplicateRate
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("tax rate created",
		zap.String("org_id", orgID.String()),
		zap.String("country_code", record.CountryCode),
		zap.String("region_code", record.RegionCode),
		zap.String("rate", record.Rate.String()),
	)
	return record, nil
}

func (s *Service) SetDefault(ctx context.Context, id string) (*taxdomain.TaxRate, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, taxdomain.ErrInvalidOrganization
	}

	rateID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, taxdomain.ErrInvalidID
	}

	var updated *taxdomain.TaxRate
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindByID(ctx, orgID, rateID)
		if err != nil {
			return err
		}
		if item == nil {
			return taxdomain.ErrNotFound
		}
		if err := repo.ClearDefault(ctx, orgID); err != nil {
			return err
		}
		if err := repo.MarkDefault(ctx, orgID, item.ID); err != nil {
			return err
		}
		item.IsDefault = true
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) Resolve(ctx context.Context, req taxdomain.ResolveRequest) (*taxdomain.TaxRate, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, taxdomain.ErrInvalidOrganization
	}
	if strings.TrimSpace(req.CountryCode) == "" {
		return s.resolver.ResolveDefault(ctx, orgID)
	}
	return s.resolver.ResolveForJurisdiction(ctx, orgID, req.CountryCode, req.RegionCode)
}
