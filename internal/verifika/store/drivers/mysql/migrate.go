package mysql

import (
	"database/sql"
	"errors"

	"github.com/bluesystem/verifika/internal/verifika/store/drivers/mysql/migrations"

	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

var errNoMigrationDSN = errors.New("mysql: migrations need a store opened with Open")

// ApplyMigrations applies any pending migrations from the embedded files.
// Migration files hold several statements, so they run over a dedicated
// handle with multiStatements enabled rather than the request pool.
func (s *Store) ApplyMigrations() error {
	if s.cfg == nil {
		return errNoMigrationDSN
	}

	// 1. Open the migration handle
	db, err := sql.Open("mysql", s.cfg.DSN(true))
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. Create the MySQL migration driver
	driver, err := migratemysql.WithInstance(db, &migratemysql.Config{})
	if err != nil {
		return err
	}

	// 3. Create the iofs (embedded filesystem) source driver
	source, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return err
	}

	// 4. Apply all up migrations
	instance, err := migrate.NewWithInstance("iofs", source, "mysql", driver)
	if err != nil {
		return err
	}

	err = instance.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}
