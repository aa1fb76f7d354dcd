package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(files, "sql")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	for _, e := range entries {
		body, err := fs.ReadFile(files, "sql/"+e.Name())
		require.NoError(t, err)
		text := string(body)
		assert.True(t, strings.HasPrefix(text, "-- +goose Up"), e.Name())
		assert.Contains(t, text, "-- +goose Down", e.Name())
	}
}

func TestSchemaEnforcesNaturalKeys(t *testing.T) {
	body, err := fs.ReadFile(files, "sql/00001_market_data.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "symbol      VARCHAR(64) NOT NULL UNIQUE")
	assert.Contains(t, string(body), "UNIQUE (asset_id, date)")
	assert.Contains(t, string(body), "ON DELETE CASCADE")

	body, err = fs.ReadFile(files, "sql/00002_search_history.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "UNIQUE (symbol, asset_type, currency)")
	assert.Contains(t, string(body), "PRIMARY KEY (search_entry_id, search_result_id)")
}

func TestPriceColumnsKeepFullPrecision(t *testing.T) {
	body, err := fs.ReadFile(files, "sql/00001_market_data.sql")
	require.NoError(t, err)
	text := string(body)

	for _, col := range []string{"open", "high", "low", "close"} {
		assert.Regexp(t, `(?m)^\s+`+col+`\s+NUMERIC NOT NULL`, text, col)
	}
	assert.NotContains(t, text, "NUMERIC(")
}
