package backfill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/repairdesk/internal/clock"
	"github.com/smallbiznis/repairdesk/internal/config"
	currencydomain "github.com/smallbiznis/repairdesk/internal/currency/domain"
	"github.com/smallbiznis/repairdesk/internal/lock"
	obsmetrics "github.com/smallbiznis/repairdesk/internal/observability/metrics"
	organizationdomain "github.com/smallbiznis/repairdesk/internal/organization/domain"
	taxdomain "github.com/smallbiznis/repairdesk/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	lockTTL  = 30 * time.Second
	lockWait = 30 * time.Second
)

var (
	ErrOrganizationNotFound = errors.New("backfill_organization_not_found")
	ErrInvalidDefaults      = errors.New("backfill_invalid_defaults")
)

type Outcome string

const (
	OutcomeSeeded  Outcome = "seeded"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Result describes one organization's pass.
type Result struct {
	OrgID              snowflake.ID `json:"org_id"`
	CurrenciesInserted int          `json:"currencies_inserted"`
	TaxRatesInserted   int          `json:"tax_rates_inserted"`
	Outcome            Outcome      `json:"outcome"`
}

type Failure struct {
	OrgID snowflake.ID `json:"org_id"`
	Error string       `json:"error"`
}

// Report aggregates a full sweep. Failures never stop the sweep.
type Report struct {
	Core          Result    `json:"core"`
	Organizations []Result  `json:"organizations"`
	Failures      []Failure `json:"failures"`
}

func (r Report) Failed() bool {
	return len(r.Failures) > 0
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Locker     lock.Locker
	Orgs       organizationdomain.Repository
	Currencies currencydomain.Repository
	Taxes      taxdomain.Repository
	Cache      currencydomain.Service
	Defaults   *config.BackfillConfigHolder
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

// Migrator installs default currencies and tax rates for organizations that
// have none. Every pass is idempotent.
type Migrator struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	locker     lock.Locker
	orgs       organizationdomain.Repository
	currencies currencydomain.Repository
	taxes      taxdomain.Repository
	cache      currencydomain.Service
	defaults   *config.BackfillConfigHolder
	metrics    *obsmetrics.Metrics
}

func New(p Params) *Migrator {
	return &Migrator{
		db:         p.DB,
		log:        p.Log.Named("backfill"),
		genID:      p.GenID,
		clock:      p.Clock,
		locker:     p.Locker,
		orgs:       p.Orgs,
		currencies: p.Currencies,
		taxes:      p.Taxes,
		cache:      p.Cache,
		defaults:   p.Defaults,
		metrics:    p.Metrics,
	}
}

// Provision runs EnsureDefaults for a freshly created organization.
func (m *Migrator) Provision(ctx context.Context, orgID snowflake.ID) error {
	_, err := m.EnsureDefaults(ctx, orgID)
	return err
}

func (m *Migrator) EnsureDefaults(ctx context.Context, orgID snowflake.ID) (Result, error) {
	result := Result{OrgID: orgID, Outcome: OutcomeSkipped}
	if orgID == 0 {
		return m.fail(ctx, result, organizationdomain.ErrInvalidOrganization)
	}

	defaults := m.defaults.Get()
	if err := config.ValidateBackfillConfig(defaults); err != nil {
		return m.fail(ctx, result, fmt.Errorf("%w: %v", ErrInvalidDefaults, err))
	}

	release, err := m.locker.Acquire(ctx, lockKey(orgID), lockTTL, lockWait)
	if err != nil {
		return m.fail(ctx, result, fmt.Errorf("acquire backfill lock: %w", err))
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			m.log.Warn("failed to release backfill lock", zap.String("org_id", orgID.String()), zap.Error(err))
		}
	}()

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := m.orgs.WithTx(tx).LockByID(ctx, orgID)
		if err != nil {
			return err
		}
		if org == nil {
			return ErrOrganizationNotFound
		}

		now := m.clock.Now()
		inserted, err := m.seedCurrencies(ctx, m.currencies.WithTx(tx), orgID, defaults.Currencies, now)
		if err != nil {
			return err
		}
		result.CurrenciesInserted = inserted

		inserted, err = m.seedTaxRates(ctx, m.taxes.WithTx(tx), org, defaults.TaxRates, now)
		if err != nil {
			return err
		}
		result.TaxRatesInserted = inserted
		return nil
	})
	if err != nil {
		result.CurrenciesInserted, result.TaxRatesInserted = 0, 0
		return m.fail(ctx, result, err)
	}

	if result.CurrenciesInserted > 0 || result.TaxRatesInserted > 0 {
		result.Outcome = OutcomeSeeded
		m.cache.Invalidate(orgID)
		m.log.Info("backfilled organization defaults",
			zap.String("org_id", orgID.String()),
			zap.Int("currencies", result.CurrenciesInserted),
			zap.Int("tax_rates", result.TaxRatesInserted),
		)
	}
	m.metrics.RecordBackfill(ctx, string(result.Outcome))
	return result, nil
}

// EnsureCore tops up the core currency set. Missing codes are inserted; the
// seed default is applied only while core has no default.
func (m *Migrator) EnsureCore(ctx context.Context) (Result, error) {
	result := Result{OrgID: currencydomain.CoreOrgID, Outcome: OutcomeSkipped}

	defaults := m.defaults.Get()
	if err := config.ValidateBackfillConfig(defaults); err != nil {
		return m.fail(ctx, result, fmt.Errorf("%w: %v", ErrInvalidDefaults, err))
	}

	release, err := m.locker.Acquire(ctx, lockKey(currencydomain.CoreOrgID), lockTTL, lockWait)
	if err != nil {
		return m.fail(ctx, result, fmt.Errorf("acquire backfill lock: %w", err))
	}
	defer func() {
		_ = release(context.Background())
	}()

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := m.currencies.WithTx(tx)
		existing, err := repo.ListVisible(ctx, currencydomain.CoreOrgID)
		if err != nil {
			return err
		}
		present := make(map[string]struct{}, len(existing))
		hasDefault := false
		for _, c := range existing {
			present[c.Code] = struct{}{}
			hasDefault = hasDefault || c.IsDefault
		}

		now := m.clock.Now()
		for _, seed := range defaults.Currencies {
			code := currencydomain.NormalizeCode(seed.Code)
			if _, ok := present[code]; ok {
				continue
			}
			row := m.currencyRow(currencydomain.CoreOrgID, seed, now)
			row.IsDefault = seed.IsDefault && !hasDefault
			ok, err := repo.InsertIfAbsent(ctx, &row)
			if err != nil {
				return err
			}
			if ok {
				result.CurrenciesInserted++
				hasDefault = hasDefault || row.IsDefault
			}
		}
		return nil
	})
	if err != nil {
		result.CurrenciesInserted = 0
		return m.fail(ctx, result, err)
	}

	if result.CurrenciesInserted > 0 {
		result.Outcome = OutcomeSeeded
		m.cache.InvalidateAll()
		m.log.Info("backfilled core currencies", zap.Int("currencies", result.CurrenciesInserted))
	}
	return result, nil
}

// EnsureAll seeds core, then every organization. Per-org failures are
// logged and collected.
func (m *Migrator) EnsureAll(ctx context.Context) Report {
	var report Report

	core, err := m.EnsureCore(ctx)
	report.Core = core
	if err != nil {
		report.Failures = append(report.Failures, Failure{OrgID: currencydomain.CoreOrgID, Error: err.Error()})
	}

	orgs, err := m.orgs.List(ctx)
	if err != nil {
		m.log.Error("failed to list organizations for backfill", zap.Error(err))
		report.Failures = append(report.Failures, Failure{Error: err.Error()})
		return report
	}

	for _, org := range orgs {
		if ctx.Err() != nil {
			report.Failures = append(report.Failures, Failure{OrgID: org.ID, Error: ctx.Err().Error()})
			continue
		}
		result, err := m.EnsureDefaults(ctx, org.ID)
		report.Organizations = append(report.Organizations, result)
		if err != nil {
			report.Failures = append(report.Failures, Failure{OrgID: org.ID, Error: err.Error()})
		}
	}
	return report
}

func (m *Migrator) seedCurrencies(
	ctx context.Context,
	repo currencydomain.Repository,
	orgID snowflake.ID,
	seeds []config.CurrencySeed,
	now time.Time,
) (int, error) {
	count, err := repo.CountByOrg(ctx, orgID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	inserted := 0
	for _, seed := range seeds {
		row := m.currencyRow(orgID, seed, now)
		if err := row.Validate(); err != nil {
			return 0, fmt.Errorf("currency %s: %w", row.Code, err)
		}
		ok, err := repo.InsertIfAbsent(ctx, &row)
		if err != nil {
			return 0, err
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}

func (m *Migrator) seedTaxRates(
	ctx context.Context,
	repo taxdomain.Repository,
	org *organizationdomain.Organization,
	seeds []config.TaxRateSeed,
	now time.Time,
) (int, error) {
	count, err := repo.CountByOrg(ctx, org.ID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	defaultIdx := defaultTaxIndex(seeds, org.CountryCode)
	inserted := 0
	for i, seed := range seeds {
		row := taxdomain.TaxRate{
			ID:          m.genID.Generate(),
			OrgID:       org.ID,
			CountryCode: taxdomain.NormalizeCountry(seed.CountryCode),
			RegionCode:  taxdomain.NormalizeRegion(seed.RegionCode),
			Name:        seed.Name,
			Rate:        decimal.NewFromFloat(seed.Rate),
			IsDefault:   i == defaultIdx,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := row.Validate(); err != nil {
			return 0, fmt.Errorf("tax rate %s: %w", row.CountryCode, err)
		}
		ok, err := repo.InsertIfAbsent(ctx, &row)
		if err != nil {
			return 0, err
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}

func (m *Migrator) currencyRow(orgID snowflake.ID, seed config.CurrencySeed, now time.Time) currencydomain.Currency {
	scope := currencydomain.ScopeOrganization
	if orgID == currencydomain.CoreOrgID {
		scope = currencydomain.ScopeCore
	}
	return currencydomain.Currency{
		ID:            m.genID.Generate(),
		OrgID:         orgID,
		Code:          currencydomain.NormalizeCode(seed.Code),
		Name:          seed.Name,
		Symbol:        seed.Symbol,
		DecimalDigits: seed.DecimalDigits,
		IsDefault:     seed.IsDefault,
		Scope:         scope,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (m *Migrator) fail(ctx context.Context, result Result, err error) (Result, error) {
	result.Outcome = OutcomeFailed
	m.log.Warn("backfill failed", zap.String("org_id", result.OrgID.String()), zap.Error(err))
	m.metrics.RecordBackfill(ctx, string(result.Outcome))
	return result, err
}

// defaultTaxIndex prefers the country-wide rate of the organization's country
// and falls back to the configured default.
func defaultTaxIndex(seeds []config.TaxRateSeed, country string) int {
	country = taxdomain.NormalizeCountry(country)
	if country != "" {
		for i, seed := range seeds {
			if taxdomain.NormalizeCountry(seed.CountryCode) == country && taxdomain.NormalizeRegion(seed.RegionCode) == "" {
				return i
			}
		}
	}
	for i, seed := range seeds {
		if seed.IsDefault {
			return i
		}
	}
	return -1
}

func lockKey(orgID snowflake.ID) string {
	return "backfill:" + orgID.String()
}

var _ organizationdomain.Provisioner = (*Migrator)(nil)
