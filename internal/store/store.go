// Package store is the throwaway SQLite database compiled plans run against.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/matthewbaird/relplan/internal/catalog"
	"github.com/matthewbaird/relplan/internal/seed"
)

// DefaultDSN keeps the database in memory for the life of the process.
const DefaultDSN = ":memory:"

// Store owns the database connection.
type Store struct {
	drv *entsql.Driver
}

// Rows is a fully read query result.
type Rows struct {
	Columns []string
	Values  [][]any
}

// Open opens the database at dsn. The pool is capped at one connection so
// an in-memory database survives between queries.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Store{drv: entsql.OpenDB(dialect.SQLite, db)}, nil
}

// Close releases the connection.
func (s *Store) Close() error {
	return s.drv.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.drv.DB().PingContext(ctx)
}

// Seed recreates each fixture table and fills it, all in one transaction.
func (s *Store) Seed(ctx context.Context, fixtures []seed.Fixture) error {
	for _, f := range fixtures {
		if err := f.Validate(); err != nil {
			return err
		}
	}

	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	for _, f := range fixtures {
		if err := seedTable(ctx, tx, f); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing fixtures: %w", err)
	}
	log.Debug().Int("tables", len(fixtures)).Msg("store seeded")
	return nil
}

func seedTable(ctx context.Context, tx dialect.Tx, f seed.Fixture) error {
	if err := tx.Exec(ctx, f.DropSQL(), []any{}, nil); err != nil {
		return fmt.Errorf("dropping table %s: %w", f.Name, err)
	}
	if err := tx.Exec(ctx, f.CreateSQL(), []any{}, nil); err != nil {
		return fmt.Errorf("creating table %s: %w", f.Name, err)
	}
	insert := f.InsertSQL()
	for i, row := range f.Rows {
		if err := tx.Exec(ctx, insert, row, nil); err != nil {
			return fmt.Errorf("inserting row %d into %s: %w", i, f.Name, err)
		}
	}
	return nil
}

// Tables lists the user tables with their column names.
func (s *Store) Tables(ctx context.Context) ([]catalog.Table, error) {
	names, err := s.queryStrings(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}

	tables := make([]catalog.Table, 0, len(names))
	for _, name := range names {
		cols, err := s.queryStrings(ctx, "SELECT name FROM pragma_table_info(?) ORDER BY cid", name)
		if err != nil {
			return nil, fmt.Errorf("listing columns of %s: %w", name, err)
		}
		tables = append(tables, catalog.Table{Name: name, Columns: cols})
	}
	return tables, nil
}

// queryStrings runs a query returning a single text column.
func (s *Store) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, append([]any{}, args...), &rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Query runs a read query and returns every row. Text stored as bytes is
// returned as string.
func (s *Store) Query(ctx context.Context, query string) (*Rows, error) {
	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, []any{}, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	result := &Rows{Columns: cols, Values: [][]any{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		result.Values = append(result.Values, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
