package universe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const table = "universes"

var columns = []string{"id", "name", "description", "contract", "created_at", "updated_at"}

var schema = map[string]string{
	dialect.Postgres: `CREATE TABLE IF NOT EXISTS universes (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    contract TEXT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_universes_contract ON universes(contract);`,
	dialect.SQLite: `CREATE TABLE IF NOT EXISTS universes (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    contract TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_universes_contract ON universes(contract);`,
}

// SQLBackend stores universes in Postgres (pgx) or SQLite (modernc). Queries
// are built with the ent SQL builder for the matching dialect.
type SQLBackend struct {
	db      *sql.DB
	dialect string

	schemaOnce sync.Once
	schemaErr  error
}

func OpenPostgres(dsn string) (*SQLBackend, error) {
	return openSQL("pgx", dialect.Postgres, dsn)
}

func OpenSQLite(dsn string) (*SQLBackend, error) {
	b, err := openSQL("sqlite", dialect.SQLite, dsn)
	if err != nil {
		return nil, err
	}
	// one writer at a time
	b.db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := b.db.Exec(pragma); err != nil {
			_ = b.db.Close()
			return nil, fmt.Errorf("sqlite %s: %w", pragma, err)
		}
	}
	return b, nil
}

func openSQL(driver, dialectName, dsn string) (*SQLBackend, error) {
	db, err := sql.Open(driver, strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLBackend{db: db, dialect: dialectName}, nil
}

func (b *SQLBackend) ensureSchema(ctx context.Context) error {
	b.schemaOnce.Do(func() {
		_, b.schemaErr = b.db.ExecContext(ctx, schema[b.dialect])
	})
	return b.schemaErr
}

func (b *SQLBackend) builder() *entsql.DialectBuilder {
	return entsql.Dialect(b.dialect)
}

func (b *SQLBackend) Get(ctx context.Context, id string) (Universe, error) {
	if err := b.ensureSchema(ctx); err != nil {
		return Universe{}, err
	}
	d := b.builder()
	query, args := d.Select(columns...).
		From(d.Table(table)).
		Where(entsql.EQ("id", id)).
		Query()
	u, err := scanUniverse(b.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Universe{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return u, err
}

func (b *SQLBackend) Put(ctx context.Context, u Universe) error {
	if err := b.ensureSchema(ctx); err != nil {
		return err
	}
	query, args := b.builder().Insert(table).
		Columns(columns...).
		Values(u.ID, u.Name, u.Description, u.Contract, u.CreatedAt.UTC(), u.UpdatedAt.UTC()).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	_, err := b.db.ExecContext(ctx, query, args...)
	return err
}

func (b *SQLBackend) List(ctx context.Context) ([]Universe, error) {
	if err := b.ensureSchema(ctx); err != nil {
		return nil, err
	}
	d := b.builder()
	query, args := d.Select(columns...).
		From(d.Table(table)).
		OrderBy(entsql.Asc("name")).
		Query()
	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Universe
	for rows.Next() {
		u, err := scanUniverse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (b *SQLBackend) Delete(ctx context.Context, id string) error {
	if err := b.ensureSchema(ctx); err != nil {
		return err
	}
	query, args := b.builder().Delete(table).Where(entsql.EQ("id", id)).Query()
	res, err := b.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (b *SQLBackend) Close() error { return b.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUniverse(row rowScanner) (Universe, error) {
	var (
		u                Universe
		created, updated time.Time
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Description, &u.Contract, &created, &updated); err != nil {
		return Universe{}, err
	}
	u.CreatedAt, u.UpdatedAt = created.UTC(), updated.UTC()
	return u, nil
}
