package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx
type queryer interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
}

// withTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise; fn's error is returned unchanged.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// reference describes a table whose rows are created at most once per natural key
type reference struct {
	table   string
	columns []string // returned columns, matching the db tags of the row type
	keys    []string // natural key
	inserts []string // columns written on create, natural key first
}

func (ref reference) selectQuery() string {
	conds := make([]string, len(ref.keys))
	for i, k := range ref.keys {
		conds[i] = fmt.Sprintf("%s = $%d", k, i+1)
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		strings.Join(ref.columns, ", "), ref.table, strings.Join(conds, " AND "))
}

func (ref reference) insertQuery() string {
	params := make([]string, len(ref.inserts))
	for i := range ref.inserts {
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING RETURNING %s",
		ref.table,
		strings.Join(ref.inserts, ", "),
		strings.Join(params, ", "),
		strings.Join(ref.keys, ", "),
		strings.Join(ref.columns, ", "))
}

// getOrCreate returns the row matching the natural key, inserting it with
// values when absent. An existing row is never modified. created reports
// whether this call inserted the row.
func getOrCreate[T any](ctx context.Context, q queryer, ref reference, values ...any) (row *T, created bool, err error) {
	if len(values) != len(ref.inserts) {
		return nil, false, fmt.Errorf("%s: expected %d values, got %d", ref.table, len(ref.inserts), len(values))
	}
	keyArgs := values[:len(ref.keys)]

	var existing T
	err = sqlx.GetContext(ctx, q, &existing, ref.selectQuery(), keyArgs...)
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("select %s: %w", ref.table, err)
	}

	var inserted T
	err = sqlx.GetContext(ctx, q, &inserted, ref.insertQuery(), values...)
	if err == nil {
		return &inserted, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("insert %s: %w", ref.table, err)
	}

	// A concurrent writer created the row between our select and insert
	var raced T
	if err := sqlx.GetContext(ctx, q, &raced, ref.selectQuery(), keyArgs...); err != nil {
		return nil, false, fmt.Errorf("select %s after conflict: %w", ref.table, err)
	}
	return &raced, false, nil
}

var (
	assetClassRef = reference{
		table:   "asset_classes",
		columns: []string{"id", "name", "created_at"},
		keys:    []string{"name"},
		inserts: []string{"name"},
	}

	currencyRef = reference{
		table:   "currencies",
		columns: []string{"id", "name", "created_at"},
		keys:    []string{"name"},
		inserts: []string{"name"},
	}

	assetRef = reference{
		table:   "assets",
		columns: []string{"id", "identifier", "symbol", "asset_type", "currency", "name", "created_at"},
		keys:    []string{"symbol"},
		inserts: []string{"symbol", "identifier", "asset_type", "currency", "name"},
	}

	timeSeriesRef = reference{
		table:   "asset_time_series",
		columns: []string{"id", "asset_id", "date", "open", "high", "low", "close", "created_at"},
		keys:    []string{"asset_id", "date"},
		inserts: []string{"asset_id", "date", "open", "high", "low", "close"},
	}

	searchEntryRef = reference{
		table:   "search_entries",
		columns: []string{"id", "input", "created_at"},
		keys:    []string{"input"},
		inserts: []string{"input"},
	}

	searchResultRef = reference{
		table:   "search_results",
		columns: []string{"id", "name", "symbol", "asset_type", "currency", "created_at"},
		keys:    []string{"symbol", "asset_type", "currency"},
		inserts: []string{"symbol", "asset_type", "currency", "name"},
	}
)
