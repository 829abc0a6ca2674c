// Package sqlite persists the controller's EEPROM cells in a SQLite file so
// the credential survives restarts of the back-end process.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/doorlock/internal/logging"
	"github.com/dmitrijs2005/doorlock/internal/storage/sqlite/migrations"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// gooseLogger sends goose output to the structured log instead of the
// standard logger.
type gooseLogger struct {
	l logging.Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.l.Info(context.Background(), strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.l.Error(context.Background(), strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func RunMigrations(ctx context.Context, db *sql.DB, l logging.Logger) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(gooseLogger{l: l.With("module", "migrations")})

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the SQLite database at dsn and brings its
// schema up to date.
func Open(ctx context.Context, dsn string, size int, l logging.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one writer; SQLite serializes anyway and this keeps ":memory:" on one connection
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db, l); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", dsn, err)
	}

	return New(db, size), nil
}
