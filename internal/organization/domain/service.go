package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, req CreateOrganizationRequest) (*Organization, error)
	GetByID(ctx context.Context, id string) (*Organization, error)
	List(ctx context.Context) ([]Organization, error)
}

// Provisioner installs a new tenant's default reference data.
type Provisioner interface {
	Provision(ctx context.Context, orgID snowflake.ID) error
}

type CreateOrganizationRequest struct {
	Name        string `json:"name"`
	CountryCode string `json:"country_code"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidCountry      = errors.New("invalid_country")
	ErrNotFound            = errors.New("organization_not_found")
	ErrSlugTaken           = errors.New("organization_slug_taken")
)
