package store

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a *gorm.DB with the repository methods every component needs.
// Mirrors marlonfan-go-stock-collector's Database struct: a single wrapper
// type holding the gorm handle, with plain methods instead of a generic
// repository-per-table interface.
type DB struct {
	gormDB *gorm.DB
}

// Open runs pending goose migrations against dsn (a go-sql-driver/mysql DSN)
// and returns a DB backed by GORM. Migrations, not AutoMigrate, own the
// schema — AutoMigrate is reserved for the in-memory sqlite databases the test
// suites build with OpenForTests.
func Open(dsn string) (*DB, error) {
	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	sqlDB.SetMaxOpenConns(10) // bounded connection pool, per design §5

	if err := migrate(sqlDB); err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("gorm open: %w", err)
	}

	return &DB{gormDB: gdb}, nil
}

func migrate(sqlDB *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("mysql"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.Up(sqlDB, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// MigrationVersion reports the latest applied migration version, surfaced on
// the health endpoint.
func (d *DB) MigrationVersion() (int64, error) {
	sqlDB, err := d.gormDB.DB()
	if err != nil {
		return 0, err
	}
	return goose.GetDBVersion(sqlDB)
}

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	sqlDB, err := d.gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
