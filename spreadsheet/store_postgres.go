package spreadsheet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

// schemaSQL is applied once at startup: no migration framework, just
// idempotent DDL.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS workbooks (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	version    BIGINT NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sheets (
	id           BIGSERIAL PRIMARY KEY,
	workbook_id  BIGINT NOT NULL REFERENCES workbooks(id) ON DELETE CASCADE,
	name         TEXT NOT NULL,
	row_count    INT NOT NULL DEFAULT 1000,
	column_count INT NOT NULL DEFAULT 26,
	UNIQUE (workbook_id, name)
);

CREATE TABLE IF NOT EXISTS cells (
	id             BIGSERIAL PRIMARY KEY,
	sheet_id       BIGINT NOT NULL REFERENCES sheets(id) ON DELETE CASCADE,
	row_index      INT NOT NULL,
	column_index   INT NOT NULL,
	kind           TEXT NOT NULL,
	raw_value      TEXT NOT NULL,
	computed_value TEXT NOT NULL,
	version        BIGINT NOT NULL DEFAULT 1,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (sheet_id, row_index, column_index)
);
`

// PostgresStore is the production CellStore backend: workbooks, sheets,
// and cells as rows in Postgres, reached through database/sql with the
// pgx stdlib driver.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens dsn, verifies connectivity, and applies schemaSQL.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sheetcore: open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sheetcore: ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sheetcore: apply schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) Get(ctx context.Context, sheetID int64, addr Address) (*Cell, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT kind, raw_value, computed_value, version, updated_at
		FROM cells WHERE sheet_id = $1 AND row_index = $2 AND column_index = $3`,
		sheetID, addr.Row, addr.Col)

	var c Cell
	c.SheetID = sheetID
	c.Addr = addr
	var kind string
	if err := row.Scan(&kind, &c.Raw, &c.Computed, &c.Version, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, mapSQLError(err)
	}
	c.Kind = Kind(kind)
	return &c, nil
}

func (s *PostgresStore) List(ctx context.Context, sheetID int64) ([]Cell, error) {
	return s.query(ctx, `
		SELECT row_index, column_index, kind, raw_value, computed_value, version, updated_at
		FROM cells WHERE sheet_id = $1 ORDER BY row_index, column_index`, sheetID)
}

func (s *PostgresStore) ListFormulas(ctx context.Context, sheetID int64) ([]Cell, error) {
	return s.query(ctx, `
		SELECT row_index, column_index, kind, raw_value, computed_value, version, updated_at
		FROM cells WHERE sheet_id = $1 AND kind = 'FORMULA' ORDER BY row_index, column_index`, sheetID)
}

func (s *PostgresStore) query(ctx context.Context, q string, sheetID int64) ([]Cell, error) {
	rows, err := s.db.QueryContext(ctx, q, sheetID)
	if err != nil {
		return nil, mapSQLError(err)
	}
	defer rows.Close()

	var out []Cell
	for rows.Next() {
		var c Cell
		c.SheetID = sheetID
		var kind string
		if err := rows.Scan(&c.Addr.Row, &c.Addr.Col, &kind, &c.Raw, &c.Computed, &c.Version, &c.UpdatedAt); err != nil {
			return nil, mapSQLError(err)
		}
		c.Kind = Kind(kind)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLError(err)
	}
	return out, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, cell Cell, expectedVersion int64) (Cell, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Cell{}, mapSQLError(err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	var currentVersion int64
	err = tx.QueryRowContext(ctx, `
		SELECT version FROM cells
		WHERE sheet_id = $1 AND row_index = $2 AND column_index = $3
		FOR UPDATE`, cell.SheetID, cell.Addr.Row, cell.Addr.Col).Scan(&currentVersion)

	now := time.Now()
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if expectedVersion != 0 {
			return Cell{}, &CoreError{Kind: ErrVersionConflict, Message: "cell does not exist", Addr: cell.Addr.String()}
		}
		cell.Version = 1
		_, err = tx.ExecContext(ctx, `
			INSERT INTO cells (sheet_id, row_index, column_index, kind, raw_value, computed_value, version, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			cell.SheetID, cell.Addr.Row, cell.Addr.Col, string(cell.Kind), cell.Raw, cell.Computed, cell.Version, now)
		if err != nil {
			return Cell{}, mapSQLError(err)
		}
	case err != nil:
		return Cell{}, mapSQLError(err)
	default:
		if currentVersion != expectedVersion {
			return Cell{}, &CoreError{Kind: ErrVersionConflict, Message: "version mismatch", Addr: cell.Addr.String()}
		}
		cell.Version = currentVersion + 1
		_, err = tx.ExecContext(ctx, `
			UPDATE cells SET kind = $1, raw_value = $2, computed_value = $3, version = $4, updated_at = $5
			WHERE sheet_id = $6 AND row_index = $7 AND column_index = $8`,
			string(cell.Kind), cell.Raw, cell.Computed, cell.Version, now,
			cell.SheetID, cell.Addr.Row, cell.Addr.Col)
		if err != nil {
			return Cell{}, mapSQLError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Cell{}, mapSQLError(err)
	}
	cell.UpdatedAt = now
	return cell, nil
}

func (s *PostgresStore) Delete(ctx context.Context, sheetID int64, addr Address, expectedVersion int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapSQLError(err)
	}
	defer tx.Rollback() //nolint:errcheck

	var currentVersion int64
	err = tx.QueryRowContext(ctx, `
		SELECT version FROM cells
		WHERE sheet_id = $1 AND row_index = $2 AND column_index = $3
		FOR UPDATE`, sheetID, addr.Row, addr.Col).Scan(&currentVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return mapSQLError(err)
	}
	if expectedVersion > 0 && currentVersion != expectedVersion {
		return &CoreError{Kind: ErrVersionConflict, Message: "version mismatch", Addr: addr.String()}
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM cells WHERE sheet_id = $1 AND row_index = $2 AND column_index = $3`,
		sheetID, addr.Row, addr.Col); err != nil {
		return mapSQLError(err)
	}
	return mapSQLError(tx.Commit())
}

// mapSQLError distinguishes a caller-initiated context cancellation from
// any other driver error, turning the former into CANCELLED.
func mapSQLError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return &CoreError{Kind: ErrCancelled, Message: "operation cancelled"}
	}
	return fmt.Errorf("sheetcore: store error: %w", err)
}
