package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/cache"
	"github.com/smallbiznis/repairdesk/internal/clock"
	currencydomain "github.com/smallbiznis/repairdesk/internal/currency/domain"
	obsmetrics "github.com/smallbiznis/repairdesk/internal/observability/metrics"
	"github.com/smallbiznis/repairdesk/internal/orgcontext"
	dbpkg "github.com/smallbiznis/repairdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ListTTL bounds how long a cached currency list may be served.
const ListTTL = 5 * time.Minute

type ServiceParams struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    currencydomain.Repository
	Clock   clock.Clock
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    currencydomain.Repository
	clock   clock.Clock
	metrics *obsmetrics.Metrics
	lists   cache.Cache[snowflake.ID, []currencydomain.Currency]
}

func NewService(p ServiceParams) currencydomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("currency.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		clock:   p.Clock,
		metrics: p.Metrics,
		lists:   cache.NewTTLCache[snowflake.ID, []currencydomain.Currency](),
	}
}

func (s *Service) List(ctx context.Context, req currencydomain.ListRequest) ([]currencydomain.Currency, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, currencydomain.ErrInvalidOrganization
	}
	return s.visible(ctx, orgID, req.Refresh)
}

func (s *Service) visible(ctx context.Context, orgID snowflake.ID, refresh bool) ([]currencydomain.Currency, error) {
	if !refresh {
		if items, ok := s.lists.Get(orgID); ok {
			return items, nil
		}
	}

	items, err := s.repo.ListVisible(ctx, orgID)
	if err != nil {
		return nil, err
	}
	s.lists.Set(orgID, items, ListTTL)
	return items, nil
}

func (s *Service) Create(ctx context.Context, req currencydomain.CreateRequest) (*currencydomain.Currency, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, currencydomain.ErrInvalidOrganization
	}

	code := currencydomain.NormalizeCode(req.Code)
	digits := currencydomain.DecimalDigitsFor(code)
	if req.DecimalDigits != nil {
		digits = *req.DecimalDigits
	}
	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" {
		symbol = code
	}

	now := s.clock.Now()
	record := &currencydomain.Currency{
		ID:            s.genID.Generate(),
		OrgID:         orgID,
		Code:          code,
		Name:          strings.TrimSpace(req.Name),
		Symbol:        symbol,
		DecimalDigits: digits,
		IsDefault:     req.IsDefault,
		Scope:         currencydomain.ScopeOrganization,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByCode(ctx, orgID, code)
		if err != nil {
			return err
		}
		if existing != nil {
			return currencydomain.ErrDuplicateCode
		}
		if record.IsDefault {
			if err := repo.ClearDefault(ctx, orgID); err != nil {
				return err
			}
		}
		if err := repo.Insert(ctx, record); err != nil {
			if dbpkg.IsDuplicateKeyErr(err) {
				return currencydomain.ErrDuplicateCode
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Invalidate(orgID)
	s.log.Info("currency created",
		zap.String("org_id", orgID.String()),
		zap.String("code", code),
		zap.Bool("is_default", record.IsDefault),
	)
	return record, nil
}

// SetDefault makes the org-scoped currency with code the only org default.
func (s *Service) SetDefault(ctx context.Context, code string) (*currencydomain.Currency, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, currencydomain.ErrInvalidOrganization
	}
	code = currencydomain.NormalizeCode(code)
	if !currencydomain.ValidCode(code) {
		return nil, currencydomain.ErrInvalidCode
	}

	var updated *currencydomain.Currency
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindByCode(ctx, orgID, code)
		if err != nil {
			return err
		}
		if item == nil {
			return currencydomain.ErrNotFound
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

	s.Invalidate(orgID)
	return updated, nil
}

func (s *Service) Resolve(ctx context.Context, req currencydomain.ResolveRequest) (*currencydomain.Resolution, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, currencydomain.ErrInvalidOrganization
	}
	return s.resolve(ctx, orgID, req.Code, req.Refresh)
}

func (s *Service) ResolveForOrg(ctx context.Context, orgID snowflake.ID, explicitCode string) (*currencydomain.Resolution, error) {
	if orgID == 0 {
		return nil, currencydomain.ErrInvalidOrganization
	}
	return s.resolve(ctx, orgID, explicitCode, false)
}

func (s *Service) resolve(ctx context.Context, orgID snowflake.ID, code string, refresh bool) (*currencydomain.Resolution, error) {
	items, err := s.visible(ctx, orgID, refresh)
	if err != nil {
		return nil, err
	}

	res, err := currencydomain.Resolve(items, code)
	if err != nil {
		if errors.Is(err, currencydomain.ErrNoCurrencyConfigured) {
			s.log.Error("no currency configured", zap.String("org_id", orgID.String()))
		}
		return nil, fmt.Errorf("resolve currency for org %s: %w", orgID, err)
	}

	if res.Source != currencydomain.SourceExplicit {
		s.metrics.RecordCurrencyFallback(ctx, string(res.Source))
	}
	if res.UnmatchedCode != "" {
		s.log.Warn("explicit currency code not found, using fallback",
			zap.String("org_id", orgID.String()),
			zap.String("code", res.UnmatchedCode),
			zap.String("source", string(res.Source)),
		)
	}
	return &res, nil
}

func (s *Service) Invalidate(orgID snowflake.ID) {
	if orgID == currencydomain.CoreOrgID {
		s.lists.Purge()
		return
	}
	s.lists.Delete(orgID)
}

func (s *Service) InvalidateAll() {
	s.lists.Purge()
}
