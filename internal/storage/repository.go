package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	applog "expensetracker/internal/log"
)

var (
	// ErrNotFound covers missing rows and rows owned by another user.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned on unique constraint violations.
	ErrConflict = errors.New("record already exists")
)

const timestampLayout = time.RFC3339

type SQLiteRepository struct {
	db     *sqlx.DB
	logger *applog.Logger
	now    func() time.Time
}

// DSN builds the modernc connection string with foreign keys enabled.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string, logger *applog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		logger: logger.WithComponent(applog.ComponentStorage),
		now:    time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping is used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) timestamp() string {
	return r.now().UTC().Format(timestampLayout)
}

// named expands :name parameters and rebinds them for the driver.
func (r *SQLiteRepository) named(query string, args map[string]any) (string, []any, error) {
	q, params, err := sqlx.Named(query, args)
	if err != nil {
		return "", nil, fmt.Errorf("build query: %w", err)
	}
	return r.db.Rebind(q), params, nil
}

func (r *SQLiteRepository) exec(ctx context.Context, query string, args map[string]any) (sql.Result, error) {
	q, params, err := r.named(query, args)
	if err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx, q, params...)
	if err != nil {
		return nil, mapError(err)
	}
	return res, nil
}

func (r *SQLiteRepository) get(ctx context.Context, dest any, query string, args map[string]any) error {
	q, params, err := r.named(query, args)
	if err != nil {
		return err
	}
	if err := r.db.GetContext(ctx, dest, q, params...); err != nil {
		return mapError(err)
	}
	return nil
}

func (r *SQLiteRepository) selectRows(ctx context.Context, dest any, query string, args map[string]any) error {
	q, params, err := r.named(query, args)
	if err != nil {
		return err
	}
	if err := r.db.SelectContext(ctx, dest, q, params...); err != nil {
		return mapError(err)
	}
	return nil
}

// affectOne turns a zero-row update or delete into ErrNotFound.
func affectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		case sqlite3.SQLITE_CONSTRAINT:
			if strings.Contains(se.Error(), "UNIQUE") {
				return fmt.Errorf("%w: %v", ErrConflict, err)
			}
		}
	}
	return err
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
