package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	currencydomain "github.com/smallbiznis/repairdesk/internal/currency/domain"
	customerdomain "github.com/smallbiznis/repairdesk/internal/customer/domain"
	documentdomain "github.com/smallbiznis/repairdesk/internal/document/domain"
	inventorydomain "github.com/smallbiznis/repairdesk/internal/inventory/domain"
	organizationdomain "github.com/smallbiznis/repairdesk/internal/organization/domain"
	repairdomain "github.com/smallbiznis/repairdesk/internal/repair/domain"
	taxdomain "github.com/smallbiznis/repairdesk/internal/tax/domain"
	techniciandomain "github.com/smallbiznis/repairdesk/internal/technician/domain"
	dbpkg "github.com/smallbiznis/repairdesk/pkg/db"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&organizationdomain.Organization{},
		&currencydomain.Currency{},
		&taxdomain.TaxRate{},
		&customerdomain.Customer{},
		&customerdomain.Device{},
		&techniciandomain.Technician{},
		&inventorydomain.Item{},
		&repairdomain.Ticket{},
		&repairdomain.LineItem{},
		&documentdomain.Document{},
	}
}

// partialIndexes are the "at most one" guarantees gorm tags cannot express.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_currencies_org_default ON currencies (org_id) WHERE is_default`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_tax_rates_org_default ON tax_rates (org_id) WHERE is_default`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_documents_active_kind ON documents (repair_id, kind) WHERE is_active`,
}

// Migrate brings the schema up to date. Postgres runs the embedded SQL
// migrations; other dialects fall back to AutoMigrate.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if conn.Dialector.Name() == "postgres" {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}
	return AutoMigrate(conn)
}

func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	// MySQL has no partial indexes.
	if !dbpkg.IsSQLite(conn) {
		return nil
	}
	for _, stmt := range partialIndexes {
		if err := conn.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create partial index: %w", err)
		}
	}
	return nil
}

func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}
