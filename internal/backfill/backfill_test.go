package backfill

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/clock"
	"github.com/smallbiznis/repairdesk/internal/config"
	currencydomain "github.com/smallbiznis/repairdesk/internal/currency/domain"
	currencyrepo "github.com/smallbiznis/repairdesk/internal/currency/repository"
	currencyservice "github.com/smallbiznis/repairdesk/internal/currency/service"
	"github.com/smallbiznis/repairdesk/internal/lock"
	organizationdomain "github.com/smallbiznis/repairdesk/internal/organization/domain"
	orgrepo "github.com/smallbiznis/repairdesk/internal/organization/repository"
	"github.com/smallbiznis/repairdesk/internal/orgcontext"
	taxdomain "github.com/smallbiznis/repairdesk/internal/tax/domain"
	taxrepo "github.com/smallbiznis/repairdesk/internal/tax/repository"
	dbpkg "github.com/smallbiznis/repairdesk/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db         *gorm.DB
	migrator   *Migrator
	currencies currencydomain.Service
	node       *snowflake.Node
}

// blockingLocker refuses one key and delegates the rest.
type blockingLocker struct {
	lock.Locker
	refuse string
}

func (l blockingLocker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (lock.Release, error) {
	if key == l.refuse {
		return nil, lock.ErrNotAcquired
	}
	return l.Locker.Acquire(ctx, key, ttl, wait)
}

func setup(t *testing.T, locker lock.Locker) *fixture {
	t.Helper()
	conn, err := dbpkg.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&organizationdomain.Organization{},
		&currencydomain.Currency{},
		&taxdomain.TaxRate{},
	))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC))
	currencyRepo := currencyrepo.NewRepository(conn)
	currencies := currencyservice.NewService(currencyservice.ServiceParams{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  currencyRepo,
		Clock: clk,
	})
	if locker == nil {
		locker = lock.NewLocalLocker()
	}

	m := New(Params{
		DB:         conn,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clk,
		Locker:     locker,
		Orgs:       orgrepo.NewRepository(conn),
		Currencies: currencyRepo,
		Taxes:      taxrepo.NewRepository(conn),
		Cache:      currencies,
		Defaults:   config.NewStaticBackfillConfig(config.DefaultBackfillConfig()),
	})
	return &fixture{db: conn, migrator: m, currencies: currencies, node: node}
}

func (f *fixture) org(t *testing.T, name, country string) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	org := organizationdomain.Organization{
		ID:          f.node.Generate(),
		Name:        name,
		Slug:        name,
		CountryCode: country,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, f.db.Create(&org).Error)
	return org.ID
}

func countRows(t *testing.T, db *gorm.DB, table string, orgID snowflake.ID, onlyDefault bool) int64 {
	t.Helper()
	query := db.Table(table).Where("org_id = ?", orgID)
	if onlyDefault {
		query = query.Where("is_default = ?", true)
	}
	var n int64
	require.NoError(t, query.Count(&n).Error)
	return n
}

func TestEnsureDefaultsSeedsOnceWithSingleDefault(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	orgID := f.org(t, "acme", "US")

	res, err := f.migrator.EnsureDefaults(ctx, orgID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSeeded, res.Outcome)
	assert.Equal(t, 4, res.CurrenciesInserted)
	assert.Equal(t, 5, res.TaxRatesInserted)

	assert.Equal(t, int64(1), countRows(t, f.db, "currencies", orgID, true))
	assert.Equal(t, int64(1), countRows(t, f.db, "tax_rates", orgID, true))

	again, err := f.migrator.EnsureDefaults(ctx, orgID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, again.Outcome)
	assert.Zero(t, again.CurrenciesInserted)
	assert.Zero(t, again.TaxRatesInserted)
	assert.Equal(t, int64(4), countRows(t, f.db, "currencies", orgID, false))
	assert.Equal(t, int64(5), countRows(t, f.db, "tax_rates", orgID, false))
}

func TestEnsureDefaultsLeavesExistingCurrenciesAlone(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	orgID := f.org(t, "yen-shop", "JP")

	now := time.Now().UTC()
	require.NoError(t, f.db.Create(&currencydomain.Currency{
		ID: f.node.Generate(), OrgID: orgID, Code: "JPY", Name: "Yen", Symbol: "¥",
		DecimalDigits: 0, IsDefault: true, Scope: currencydomain.ScopeOrganization,
		CreatedAt: now, UpdatedAt: now,
	}).Error)

	res, err := f.migrator.EnsureDefaults(ctx, orgID)
	require.NoError(t, err)
	assert.Zero(t, res.CurrenciesInserted)
	assert.Equal(t, 5, res.TaxRatesInserted)
	assert.Equal(t, int64(1), countRows(t, f.db, "currencies", orgID, false))
}

func TestEnsureDefaultsPrefersOrganizationCountryForTax(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	orgID := f.org(t, "berlin-fix", "DE")

	_, err := f.migrator.EnsureDefaults(ctx, orgID)
	require.NoError(t, err)

	var rate taxdomain.TaxRate
	require.NoError(t, f.db.Where("org_id = ? AND is_default = ?", orgID, true).First(&rate).Error)
	assert.Equal(t, "DE", rate.CountryCode)
	assert.Equal(t, "19", rate.Rate.String())
}

func TestEnsureDefaultsFallsBackToConfiguredTaxDefault(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	orgID := f.org(t, "nowhere", "")

	_, err := f.migrator.EnsureDefaults(ctx, orgID)
	require.NoError(t, err)

	var rate taxdomain.TaxRate
	require.NoError(t, f.db.Where("org_id = ? AND is_default = ?", orgID, true).First(&rate).Error)
	assert.Equal(t, "US", rate.CountryCode)
}

func TestEnsureDefaultsConcurrentPassesInsertOnce(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	orgID := f.org(t, "race", "GB")

	var wg sync.WaitGroup
	results := make([]Result, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.migrator.EnsureDefaults(ctx, orgID)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, 4, results[0].CurrenciesInserted+results[1].CurrenciesInserted)
	assert.Equal(t, int64(4), countRows(t, f.db, "currencies", orgID, false))
	assert.Equal(t, int64(1), countRows(t, f.db, "currencies", orgID, true))
	assert.Equal(t, int64(1), countRows(t, f.db, "tax_rates", orgID, true))
}

func TestEnsureDefaultsUnknownOrganization(t *testing.T) {
	f := setup(t, nil)

	res, err := f.migrator.EnsureDefaults(context.Background(), snowflake.ID(987654))
	assert.ErrorIs(t, err, ErrOrganizationNotFound)
	assert.Equal(t, OutcomeFailed, res.Outcome)
}

func TestEnsureDefaultsInvalidatesCurrencyCache(t *testing.T) {
	f := setup(t, nil)
	orgID := f.org(t, "cached", "US")
	ctx := orgcontext.WithOrgID(context.Background(), orgID)

	before, err := f.currencies.List(ctx, currencydomain.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, before)

	_, err = f.migrator.EnsureDefaults(context.Background(), orgID)
	require.NoError(t, err)

	after, err := f.currencies.List(ctx, currencydomain.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, after, 4)
}

func TestEnsureCoreIsIdempotent(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	res, err := f.migrator.EnsureCore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, res.CurrenciesInserted)

	res, err = f.migrator.EnsureCore(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, res.Outcome)
	assert.Equal(t, int64(1), countRows(t, f.db, "currencies", currencydomain.CoreOrgID, true))
}

func TestEnsureAllIsolatesFailures(t *testing.T) {
	f := setup(t, nil)
	ok := f.org(t, "healthy", "US")
	bad := f.org(t, "stuck", "US")
	f.migrator.locker = blockingLocker{Locker: lock.NewLocalLocker(), refuse: lockKey(bad)}

	report := f.migrator.EnsureAll(context.Background())

	assert.True(t, report.Failed())
	require.Len(t, report.Failures, 1)
	assert.Equal(t, bad, report.Failures[0].OrgID)
	assert.Equal(t, 4, report.Core.CurrenciesInserted)
	assert.Len(t, report.Organizations, 2)
	assert.Equal(t, int64(4), countRows(t, f.db, "currencies", ok, false))
	assert.Zero(t, countRows(t, f.db, "currencies", bad, false))
}

func TestProvisionSatisfiesOrganizationHook(t *testing.T) {
	f := setup(t, nil)
	orgID := f.org(t, "hooked", "CA")

	var provisioner organizationdomain.Provisioner = f.migrator
	require.NoError(t, provisioner.Provision(context.Background(), orgID))
	assert.Equal(t, int64(5), countRows(t, f.db, "tax_rates", orgID, false))
}
