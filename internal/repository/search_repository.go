package repository

import (
	"context"
	"fmt"

	"github.com/yourorg/quote-vault/internal/model"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// SearchRepository handles database operations for the symbol search history
type SearchRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewSearchRepository creates a new search repository
func NewSearchRepository(db *sqlx.DB, logger *zap.Logger) *SearchRepository {
	return &SearchRepository{
		db:     db,
		logger: logger,
	}
}

// GetOrCreateEntry returns the stored search input, creating it if needed
func (r *SearchRepository) GetOrCreateEntry(ctx context.Context, input string) (*model.SearchEntry, error) {
	entry, _, err := getOrCreate[model.SearchEntry](ctx, r.db, searchEntryRef, input)
	if err != nil {
		r.logger.Error("Failed to get or create search entry", zap.Error(err), zap.String("input", input))
		return nil, err
	}
	return entry, nil
}

// GetOrCreateResult returns the stored search result with the same
// (symbol, asset type, currency), creating it if needed
func (r *SearchRepository) GetOrCreateResult(ctx context.Context, result model.SearchResult) (*model.SearchResultRecord, error) {
	record, _, err := getOrCreate[model.SearchResultRecord](ctx, r.db, searchResultRef,
		result.Symbol, result.AssetType, result.Currency, result.Name)
	if err != nil {
		r.logger.Error("Failed to get or create search result", zap.Error(err), zap.String("symbol", result.Symbol))
		return nil, err
	}
	return record, nil
}

// LinkEntryToResults associates an entry with results. Pairs already linked
// are skipped. It returns the number of new links.
func (r *SearchRepository) LinkEntryToResults(ctx context.Context, entryID int, resultIDs []int) (int, error) {
	linked, err := linkEntry(ctx, r.db, entryID, resultIDs)
	if err != nil {
		r.logger.Error("Failed to link search results", zap.Error(err), zap.Int("entry_id", entryID))
		return 0, err
	}
	return linked, nil
}

// SaveSearchResults stores an input with its results and links them, all in one transaction
func (r *SearchRepository) SaveSearchResults(ctx context.Context, input string, results []model.SearchResult) (*model.SearchEntry, error) {
	var entry *model.SearchEntry
	linked := 0

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		entry, _, err = getOrCreate[model.SearchEntry](ctx, tx, searchEntryRef, input)
		if err != nil {
			return err
		}

		ids := make([]int, 0, len(results))
		for _, res := range results {
			record, _, err := getOrCreate[model.SearchResultRecord](ctx, tx, searchResultRef,
				res.Symbol, res.AssetType, res.Currency, res.Name)
			if err != nil {
				return err
			}
			ids = append(ids, record.ID)
		}

		linked, err = linkEntry(ctx, tx, entry.ID, ids)
		return err
	})
	if err != nil {
		r.logger.Error("Failed to save search results", zap.Error(err), zap.String("input", input))
		return nil, err
	}

	r.logger.Info("Saved search results",
		zap.String("input", input),
		zap.Int("results", len(results)),
		zap.Int("new_links", linked))
	return entry, nil
}

// GetSearchResults retrieves the results stored for an input. Unknown inputs yield an empty slice.
func (r *SearchRepository) GetSearchResults(ctx context.Context, input string) ([]model.SearchResult, error) {
	query := `
		SELECT r.name, r.symbol, r.asset_type, r.currency
		FROM search_results r
		JOIN search_entry_results l ON l.search_result_id = r.id
		JOIN search_entries e ON e.id = l.search_entry_id
		WHERE e.input = $1
		ORDER BY r.id
	`

	var results []model.SearchResult
	if err := r.db.SelectContext(ctx, &results, query, input); err != nil {
		r.logger.Error("Failed to get search results", zap.Error(err), zap.String("input", input))
		return nil, err
	}
	if results == nil {
		results = []model.SearchResult{}
	}
	return results, nil
}

// GetSearchInputs retrieves every stored search input
func (r *SearchRepository) GetSearchInputs(ctx context.Context) ([]string, error) {
	query := `SELECT input FROM search_entries ORDER BY input`

	var inputs []string
	if err := r.db.SelectContext(ctx, &inputs, query); err != nil {
		r.logger.Error("Failed to get search inputs", zap.Error(err))
		return nil, err
	}
	if inputs == nil {
		inputs = []string{}
	}
	return inputs, nil
}

func linkEntry(ctx context.Context, q sqlx.ExecerContext, entryID int, resultIDs []int) (int, error) {
	query := `
		INSERT INTO search_entry_results (search_entry_id, search_result_id)
		VALUES ($1, $2)
		ON CONFLICT (search_entry_id, search_result_id) DO NOTHING
	`

	linked := 0
	for _, resultID := range resultIDs {
		res, err := q.ExecContext(ctx, query, entryID, resultID)
		if err != nil {
			return linked, fmt.Errorf("link entry %d to result %d: %w", entryID, resultID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return linked, err
		}
		linked += int(n)
	}
	return linked, nil
}
