package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/yourorg/quote-vault/internal/model"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const assetColumns = `id, identifier, symbol, asset_type, currency, name, created_at`

const pointColumns = `id, asset_id, date, open, high, low, close, created_at`

// AssetRepository handles database operations for assets and their time series
type AssetRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *sqlx.DB, logger *zap.Logger) *AssetRepository {
	return &AssetRepository{
		db:     db,
		logger: logger,
	}
}

// GetOrCreateAsset returns the asset with in.Symbol, creating it along with
// its asset class and currency catalogue rows when it does not exist yet.
// An existing asset is returned unchanged even if in differs from it.
func (r *AssetRepository) GetOrCreateAsset(ctx context.Context, in model.AssetCreate) (*model.Asset, bool, error) {
	var (
		asset   *model.Asset
		created bool
	)
	in.Symbol = normalizeName(in.Symbol)
	in.Identifier = normalizeName(in.Identifier)
	in.AssetType = normalizeName(in.AssetType)
	in.Currency = normalizeName(in.Currency)
	in.Name = normalizeName(in.Name)

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, _, err := getOrCreate[model.AssetClass](ctx, tx, assetClassRef, in.AssetType); err != nil {
			return err
		}
		if in.Currency != "" {
			if _, _, err := getOrCreate[model.Currency](ctx, tx, currencyRef, in.Currency); err != nil {
				return err
			}
		}

		var err error
		asset, created, err = getOrCreate[model.Asset](ctx, tx, assetRef,
			in.Symbol, in.Identifier, in.AssetType, in.Currency, in.Name)
		return err
	})
	if err != nil {
		r.logger.Error("Failed to get or create asset", zap.Error(err), zap.String("symbol", in.Symbol))
		return nil, false, err
	}

	if created {
		r.logger.Info("Created asset",
			zap.String("symbol", asset.Symbol),
			zap.String("asset_type", asset.AssetType),
			zap.Int("id", asset.ID))
	}
	return asset, created, nil
}

// GetAsset retrieves an asset by symbol
func (r *AssetRepository) GetAsset(ctx context.Context, symbol string) (*model.Asset, error) {
	asset, err := assetBySymbol(ctx, r.db, symbol)
	if err != nil && !errors.Is(err, ErrAssetNotFound) {
		r.logger.Error("Failed to get asset", zap.Error(err), zap.String("symbol", symbol))
	}
	return asset, err
}

// GetAssetsByIdentifier retrieves all assets sharing a display identifier
func (r *AssetRepository) GetAssetsByIdentifier(ctx context.Context, identifier string) ([]model.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE identifier = $1 ORDER BY symbol`

	assets := []model.Asset{}
	if err := r.db.SelectContext(ctx, &assets, query, identifier); err != nil {
		r.logger.Error("Failed to get assets by identifier", zap.Error(err), zap.String("identifier", identifier))
		return nil, err
	}
	return assets, nil
}

// ListAssets retrieves assets, optionally restricted to the given asset types
func (r *AssetRepository) ListAssets(ctx context.Context, assetTypes []string) ([]model.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets`
	var args []any
	if len(assetTypes) > 0 {
		query += ` WHERE asset_type = ANY($1)`
		args = append(args, pq.Array(assetTypes))
	}
	query += ` ORDER BY symbol`

	assets := []model.Asset{}
	if err := r.db.SelectContext(ctx, &assets, query, args...); err != nil {
		r.logger.Error("Failed to list assets", zap.Error(err), zap.Strings("asset_types", assetTypes))
		return nil, err
	}
	return assets, nil
}

// AddTimeSeriesPoint stores one point for the asset with symbol. If a point
// for that date already exists it is returned unchanged. Nothing is written
// when the asset does not exist or any step fails.
func (r *AssetRepository) AddTimeSeriesPoint(ctx context.Context, symbol string, p model.TimeSeriesCreate) (*model.TimeSeriesPoint, error) {
	point, _, err := r.addPoint(ctx, symbol, p)
	if err != nil {
		if !errors.Is(err, ErrAssetNotFound) {
			r.logger.Error("Failed to add time series point",
				zap.Error(err),
				zap.String("symbol", symbol),
				zap.String("date", p.Date.String()))
		}
		return nil, err
	}
	return point, nil
}

// AddTimeSeriesPoints stores points in order, each in its own transaction.
// It stops at the first failure; points stored before it stay stored and
// are returned together with the error.
func (r *AssetRepository) AddTimeSeriesPoints(ctx context.Context, symbol string, points []model.TimeSeriesCreate) ([]model.TimeSeriesPoint, error) {
	stored := make([]model.TimeSeriesPoint, 0, len(points))
	inserted := 0

	for _, p := range points {
		point, created, err := r.addPoint(ctx, symbol, p)
		if err != nil {
			r.logger.Error("Failed to add time series points",
				zap.Error(err),
				zap.String("symbol", symbol),
				zap.String("date", p.Date.String()),
				zap.Int("stored", len(stored)))
			return stored, fmt.Errorf("point %s: %w", p.Date, err)
		}
		if created {
			inserted++
		}
		stored = append(stored, *point)
	}

	r.logger.Debug("Stored time series points",
		zap.String("symbol", symbol),
		zap.Int("points", len(stored)),
		zap.Int("inserted", inserted))
	return stored, nil
}

func (r *AssetRepository) addPoint(ctx context.Context, symbol string, p model.TimeSeriesCreate) (*model.TimeSeriesPoint, bool, error) {
	var (
		point   *model.TimeSeriesPoint
		created bool
	)
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		asset, err := assetBySymbol(ctx, tx, symbol)
		if err != nil {
			return err
		}
		point, created, err = getOrCreate[model.TimeSeriesPoint](ctx, tx, timeSeriesRef,
			asset.ID, p.Date, p.Open, p.High, p.Low, p.Close)
		return err
	})
	return point, created, err
}

// GetTimeSeriesPoint retrieves the point of an asset for one date
func (r *AssetRepository) GetTimeSeriesPoint(ctx context.Context, symbol string, date model.Date) (*model.TimeSeriesPoint, error) {
	asset, err := r.GetAsset(ctx, symbol)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + pointColumns + ` FROM asset_time_series WHERE asset_id = $1 AND date = $2`

	var point model.TimeSeriesPoint
	if err := r.db.GetContext(ctx, &point, query, asset.ID, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTimeSeriesNotFound
		}
		r.logger.Error("Failed to get time series point", zap.Error(err), zap.String("symbol", symbol))
		return nil, err
	}
	return &point, nil
}

// GetLatestTimeSeriesPoint retrieves the most recent point of an asset
func (r *AssetRepository) GetLatestTimeSeriesPoint(ctx context.Context, symbol string) (*model.TimeSeriesPoint, error) {
	asset, err := r.GetAsset(ctx, symbol)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + pointColumns + ` FROM asset_time_series WHERE asset_id = $1 ORDER BY date DESC LIMIT 1`

	var point model.TimeSeriesPoint
	if err := r.db.GetContext(ctx, &point, query, asset.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTimeSeriesNotFound
		}
		r.logger.Error("Failed to get latest time series point", zap.Error(err), zap.String("symbol", symbol))
		return nil, err
	}
	return &point, nil
}

// ListTimeSeries retrieves the points of an asset in date order.
// A zero from or to leaves that side of the range open.
func (r *AssetRepository) ListTimeSeries(ctx context.Context, symbol string, from, to model.Date) ([]model.TimeSeriesPoint, error) {
	asset, err := r.GetAsset(ctx, symbol)
	if err != nil {
		return nil, err
	}

	conds := []string{"asset_id = $1"}
	args := []any{asset.ID}
	if !from.IsZero() {
		args = append(args, from)
		conds = append(conds, fmt.Sprintf("date >= $%d", len(args)))
	}
	if !to.IsZero() {
		args = append(args, to)
		conds = append(conds, fmt.Sprintf("date <= $%d", len(args)))
	}
	query := `SELECT ` + pointColumns + ` FROM asset_time_series WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY date`

	points := []model.TimeSeriesPoint{}
	if err := r.db.SelectContext(ctx, &points, query, args...); err != nil {
		r.logger.Error("Failed to list time series", zap.Error(err), zap.String("symbol", symbol))
		return nil, err
	}
	return points, nil
}

// DeleteAsset removes an asset and every point it owns in one transaction.
// It returns the number of points removed.
func (r *AssetRepository) DeleteAsset(ctx context.Context, symbol string) (int64, error) {
	var removed int64
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		asset, err := assetBySymbol(ctx, tx, symbol)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM asset_time_series WHERE asset_id = $1`, asset.ID)
		if err != nil {
			return fmt.Errorf("delete time series: %w", err)
		}
		if removed, err = res.RowsAffected(); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM assets WHERE id = $1`, asset.ID); err != nil {
			return fmt.Errorf("delete asset: %w", err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrAssetNotFound) {
			r.logger.Error("Failed to delete asset", zap.Error(err), zap.String("symbol", symbol))
		}
		return 0, err
	}

	r.logger.Info("Deleted asset", zap.String("symbol", symbol), zap.Int64("points", removed))
	return removed, nil
}

func assetBySymbol(ctx context.Context, q sqlx.QueryerContext, symbol string) (*model.Asset, error) {
	var asset model.Asset
	if err := sqlx.GetContext(ctx, q, &asset, assetRef.selectQuery(), symbol); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, symbol)
		}
		return nil, err
	}
	return &asset, nil
}
