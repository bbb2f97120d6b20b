package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/orgcontext"
	"github.com/smallbiznis/repairdesk/internal/technician/domain"
	"github.com/smallbiznis/repairdesk/pkg/db/option"
	pkgrepository "github.com/smallbiznis/repairdesk/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Store pkgrepository.Repository[domain.Technician]
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	store pkgrepository.Repository[domain.Technician]
}

func New(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("technician.service"),
		genID: p.GenID,
		store: p.Store,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Technician, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Technician{}, domain.ErrInvalidOrganization
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Technician{}, domain.ErrInvalidName
	}

	now := time.Now().UTC()
	tech := domain.Technician{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Name:      name,
		Email:     strings.TrimSpace(req.Email),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, &tech); err != nil {
		return domain.Technician{}, err
	}
	return tech, nil
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]domain.Technician, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	opts := []option.QueryOption{option.WithSortBy(option.QuerySortBy{Field: "name"})}
	if activeOnly {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "is_active", Operator: option.Equal, Value: true}))
	}
	items, err := s.store.Find(ctx, &domain.Technician{OrgID: orgID}, opts...)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Technician, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Technician, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.Technician{}, domain.ErrInvalidOrganization
	}
	techID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || techID == 0 {
		return domain.Technician{}, domain.ErrInvalidID
	}

	item, err := s.store.FindOne(ctx, &domain.Technician{OrgID: orgID, ID: techID})
	if err != nil {
		return domain.Technician{}, err
	}
	if item == nil {
		return domain.Technician{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Deactivate(ctx context.Context, id string) error {
	tech, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.store.Update(ctx, tech.OrgID, tech.ID, map[string]any{
		"is_active":  false,
		"updated_at": time.Now().UTC(),
	})
	return err
}
