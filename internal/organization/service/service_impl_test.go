package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/clock"
	"github.com/smallbiznis/repairdesk/internal/organization/domain"
	"github.com/smallbiznis/repairdesk/internal/organization/repository"
	dbpkg "github.com/smallbiznis/repairdesk/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingProvisioner struct {
	calls []snowflake.ID
	err   error
}

func (p *recordingProvisioner) Provision(_ context.Context, orgID snowflake.ID) error {
	p.calls = append(p.calls, orgID)
	return p.err
}

func setup(t *testing.T, provisioner domain.Provisioner) domain.Service {
	t.Helper()
	conn, err := dbpkg.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Organization{}))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(Params{
		Log:         zap.NewNop(),
		GenID:       node,
		Repo:        repository.NewRepository(conn),
		Clock:       clock.NewFakeClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)),
		Provisioner: provisioner,
	})
}

func TestCreateOrganizationProvisionsDefaults(t *testing.T) {
	provisioner := &recordingProvisioner{}
	svc := setup(t, provisioner)
	ctx := context.Background()

	org, err := svc.Create(ctx, domain.CreateOrganizationRequest{Name: "Fix-It Labs", CountryCode: "gb"})
	require.NoError(t, err)
	assert.Equal(t, "fix-it-labs", org.Slug)
	assert.Equal(t, "GB", org.CountryCode)
	assert.Equal(t, []snowflake.ID{org.ID}, provisioner.calls)

	got, err := svc.GetByID(ctx, org.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Fix-It Labs", got.Name)

	twin, err := svc.Create(ctx, domain.CreateOrganizationRequest{Name: "Fix It Labs"})
	require.NoError(t, err)
	assert.NotEqual(t, org.Slug, twin.Slug)
	assert.Contains(t, twin.Slug, "fix-it-labs-")

	orgs, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, orgs, 2)
}

func TestCreateOrganizationSurvivesProvisioningFailure(t *testing.T) {
	provisioner := &recordingProvisioner{err: errors.New("boom")}
	svc := setup(t, provisioner)

	org, err := svc.Create(context.Background(), domain.CreateOrganizationRequest{Name: "Byte Clinic"})
	require.NoError(t, err)
	assert.Len(t, provisioner.calls, 1)
	assert.Equal(t, "", org.CountryCode)
}

func TestCreateOrganizationValidation(t *testing.T) {
	svc := setup(t, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateOrganizationRequest{Name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateOrganizationRequest{Name: "Shop", CountryCode: "USA"})
	assert.ErrorIs(t, err, domain.ErrInvalidCountry)

	_, err = svc.GetByID(ctx, "x")
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)

	_, err = svc.GetByID(ctx, "12345")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
