// Package sqlite opens SQLite databases through the pure-Go modernc driver.
// It backs local development and tests that should not depend on Docker.
package sqlite

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
	"golang.org/x/text/cases"

	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
)

// CaseFold names a scalar SQL function returning the Unicode case folding of
// its text argument. SQLite's own LIKE and lower() fold ASCII only.
const CaseFold = "casefold"

func init() {
	moderncsqlite.MustRegisterDeterministicScalarFunction(CaseFold, 1, caseFold)
}

func caseFold(_ *moderncsqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return cases.Fold().String(v), nil
	case []byte:
		return cases.Fold().String(string(v)), nil
	default:
		return v, nil
	}
}

// MemoryDSN is an in-memory database. It lives as long as its only
// connection, so New pins the pool to a single connection.
const MemoryDSN = ":memory:"

// New opens the database at dsn. Writes are serialized through a single
// connection since SQLite allows only one writer at a time.
func New(ctx context.Context, dsn string) (*sqlx.DB, error) {
	const op = "sqlite.New"

	db, err := sqlx.ConnectContext(ctx, "sqlite", withPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	return db, nil
}

func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_time_format=sqlite&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// RunMigrations applies the migrations found in dir of fsys using db itself,
// which keeps in-memory databases usable after migrating.
func RunMigrations(db *sqlx.DB, fsys fs.FS, dir string) error {
	const op = "sqlite.RunMigrations"

	src, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("%s: failed to open migrations source: %w", op, err)
	}

	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("%s: failed to initialize migrations driver: %w", op, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("%s: failed to initialize migrations: %w", op, err)
	}

	// m.Close would close db as well, only the source is released here.
	defer src.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	return nil
}

// IsUniqueViolation reports whether err is a UNIQUE constraint failure.
func IsUniqueViolation(err error) bool {
	var sqliteErr *moderncsqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	code := sqliteErr.Code()
	if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}

	// Primary result code only, when extended codes are disabled.
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE")
}
