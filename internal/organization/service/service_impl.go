package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/repairdesk/internal/clock"
	"github.com/smallbiznis/repairdesk/internal/organization/domain"
	dbpkg "github.com/smallbiznis/repairdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	Clock       clock.Clock
	Provisioner domain.Provisioner `optional:"true"`
}

type service struct {
	log         *zap.Logger
	repo        domain.Repository
	genID       *snowflake.Node
	clock       clock.Clock
	provisioner domain.Provisioner
}

func NewService(p Params) domain.Service {
	return &service{
		log:         p.Log.Named("organization.service"),
		repo:        p.Repo,
		genID:       p.GenID,
		clock:       p.Clock,
		provisioner: p.Provisioner,
	}
}

// Create stores the tenant and provisions its default currencies and tax
// rates. A provisioning failure is logged and left to the startup backfill.
func (s *service) Create(ctx context.Context, req domain.CreateOrganizationRequest) (*domain.Organization, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	countryCode := strings.ToUpper(strings.TrimSpace(req.CountryCode))
	if countryCode != "" && !validCountry(countryCode) {
		return nil, domain.ErrInvalidCountry
	}

	now := s.clock.Now()
	org := domain.Organization{
		ID:          s.genID.Generate(),
		Name:        name,
		Slug:        slug.Make(name),
		CountryCode: countryCode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if org.Slug == "" {
		org.Slug = org.ID.String()
	}

	err := s.repo.CreateOrganization(ctx, org)
	if dbpkg.IsDuplicateKeyErr(err) {
		// Same name as an existing tenant: disambiguate once with the id.
		org.Slug = org.Slug + "-" + org.ID.Base36()
		err = s.repo.CreateOrganization(ctx, org)
		if dbpkg.IsDuplicateKeyErr(err) {
			return nil, domain.ErrSlugTaken
		}
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("organization created",
		zap.String("org_id", org.ID.String()),
		zap.String("slug", org.Slug),
		zap.String("country_code", org.CountryCode),
	)

	if s.provisioner != nil {
		if err := s.provisioner.Provision(ctx, org.ID); err != nil {
			s.log.Error("organization provisioning failed",
				zap.String("org_id", org.ID.String()),
				zap.Error(err),
			)
		}
	}

	return &org, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	raw := strings.TrimSpace(id)
	if raw == "" {
		return nil, domain.ErrInvalidOrganization
	}
	orgID, err := snowflake.ParseString(raw)
	if err != nil {
		return nil, domain.ErrInvalidOrganization
	}

	org, err := s.repo.FindByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domain.ErrNotFound
	}
	return org, nil
}

func (s *service) List(ctx context.Context) ([]domain.Organization, error) {
	orgs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if orgs == nil {
		orgs = []domain.Organization{}
	}
	return orgs, nil
}

func validCountry(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
