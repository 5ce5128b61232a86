// Package store persists cleaned credit application tables to PostgreSQL.
//
// Each Save appends one run: every record is stored with the run id and its
// row index, so repeated runs over the same source can be told apart.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/creditclean/internal/config"
	"github.com/JonMunkholm/creditclean/internal/core"
	"github.com/JonMunkholm/creditclean/internal/logging"
)

const (
	runIDColumn    = "run_id"
	rowIndexColumn = "row_index"
)

// Store writes cleaned tables into a single Postgres table.
type Store struct {
	pool    *pgxpool.Pool
	table   pgx.Identifier
	columns core.ColumnSet
}

// Open connects to the database described by cfg and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig, columns core.ColumnSet) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return New(pool, cfg.Table, columns), nil
}

// New wraps an existing pool. table may be schema-qualified ("schema.name").
func New(pool *pgxpool.Pool, table string, columns core.ColumnSet) *Store {
	return &Store{
		pool:    pool,
		table:   tableIdentifier(table),
		columns: columns,
	}
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Save copies t into the store under runID in one transaction and returns the
// number of rows written. The target table and any new columns are created
// on demand.
func (s *Store) Save(ctx context.Context, t *core.Table, runID string) (int64, error) {
	start := time.Now()
	logger := logging.WithFields(ctx, "table", s.table.Sanitize(), "rows", t.Len())

	types := columnTypes(t.Columns, s.columns)
	rows, err := copyRows(t, runID, types)
	if err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	for _, stmt := range schemaStatements(s.table, t.Columns, types) {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return 0, fmt.Errorf("prepare table: %w", err)
		}
	}

	n, err := tx.CopyFrom(ctx, s.table, copyColumns(t.Columns), pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	logger.Info("run saved", "copied", n, "duration_ms", time.Since(start).Milliseconds())
	return n, nil
}

// sqlType maps a cleaned column to its Postgres type.
type sqlType string

const (
	sqlText   sqlType = "text"
	sqlDate   sqlType = "date"
	sqlFloat  sqlType = "double precision"
	sqlBigint sqlType = "bigint"
)

// columnTypes assigns a Postgres type to every table column. Known columns
// follow their cleaning rule; pass-through columns are text.
func columnTypes(columns []string, set core.ColumnSet) map[string]sqlType {
	byName := make(map[string]core.FieldType)
	for _, spec := range set.FieldSpecs() {
		byName[spec.Name] = spec.Type
	}

	types := make(map[string]sqlType, len(columns))
	for _, col := range columns {
		switch ft, ok := byName[col]; {
		case !ok:
			types[col] = sqlText
		case ft == core.FieldDate:
			types[col] = sqlDate
		case ft == core.FieldNumeric:
			types[col] = sqlFloat
		case ft == core.FieldInteger:
			types[col] = sqlBigint
		default:
			types[col] = sqlText
		}
	}
	return types
}

func tableIdentifier(name string) pgx.Identifier {
	return pgx.Identifier(strings.Split(name, "."))
}

// schemaStatements returns the DDL that makes table able to receive columns.
func schemaStatements(table pgx.Identifier, columns []string, types map[string]sqlType) []string {
	name := table.Sanitize()
	stmts := []string{fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s uuid NOT NULL, %s bigint NOT NULL, PRIMARY KEY (%s, %s))",
		name, runIDColumn, rowIndexColumn, runIDColumn, rowIndexColumn,
	)}
	for _, col := range columns {
		stmts = append(stmts, fmt.Sprintf(
			"ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s",
			name, pgx.Identifier{col}.Sanitize(), types[col],
		))
	}
	return stmts
}

func copyColumns(columns []string) []string {
	return append([]string{runIDColumn, rowIndexColumn}, columns...)
}

// copyRows converts the table into COPY rows: run id, row index, then one
// value per column. Missing cells become NULL.
func copyRows(t *core.Table, runID string, types map[string]sqlType) ([][]any, error) {
	labels := t.Labels()
	rows := make([][]any, 0, t.Len())
	for i, rec := range t.Records {
		row := make([]any, 0, len(t.Columns)+2)
		row = append(row, runID, int64(labels[i]))
		for _, col := range t.Columns {
			v, err := copyValue(rec[col], types[col])
			if err != nil {
				return nil, &core.RowError{Row: labels[i], Column: col, Err: err}
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func copyValue(c core.Cell, typ sqlType) (any, error) {
	if core.IsMissing(c) {
		return nil, nil
	}
	switch typ {
	case sqlDate:
		d, err := time.Parse(core.DateOutputLayout, core.FormatCell(c))
		if err != nil {
			return nil, fmt.Errorf("date %q: %w", core.FormatCell(c), err)
		}
		return pgtype.Date{Time: d, Valid: true}, nil
	case sqlText:
		return core.FormatCell(c), nil
	default:
		return c, nil
	}
}
