package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/yourorg/quote-vault/internal/model"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ReferenceRepository handles database operations for asset classes and currencies
type ReferenceRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewReferenceRepository creates a new reference repository
func NewReferenceRepository(db *sqlx.DB, logger *zap.Logger) *ReferenceRepository {
	return &ReferenceRepository{
		db:     db,
		logger: logger,
	}
}

// GetOrCreateAssetClass returns the asset class called name, creating it if needed
func (r *ReferenceRepository) GetOrCreateAssetClass(ctx context.Context, name string) (*model.AssetClass, error) {
	class, created, err := getOrCreate[model.AssetClass](ctx, r.db, assetClassRef, normalizeName(name))
	if err != nil {
		r.logger.Error("Failed to get or create asset class", zap.Error(err), zap.String("name", name))
		return nil, err
	}
	if created {
		r.logger.Info("Created asset class", zap.String("name", class.Name), zap.Int("id", class.ID))
	}
	return class, nil
}

// GetOrCreateCurrency returns the currency called name, creating it if needed
func (r *ReferenceRepository) GetOrCreateCurrency(ctx context.Context, name string) (*model.Currency, error) {
	currency, created, err := getOrCreate[model.Currency](ctx, r.db, currencyRef, normalizeName(name))
	if err != nil {
		r.logger.Error("Failed to get or create currency", zap.Error(err), zap.String("name", name))
		return nil, err
	}
	if created {
		r.logger.Info("Created currency", zap.String("name", currency.Name), zap.Int("id", currency.ID))
	}
	return currency, nil
}

// GetAssetClass retrieves an asset class by name
func (r *ReferenceRepository) GetAssetClass(ctx context.Context, name string) (*model.AssetClass, error) {
	var class model.AssetClass
	err := r.db.GetContext(ctx, &class, assetClassRef.selectQuery(), normalizeName(name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAssetClassNotFound
		}
		r.logger.Error("Failed to get asset class", zap.Error(err), zap.String("name", name))
		return nil, err
	}
	return &class, nil
}

// GetCurrency retrieves a currency by name
func (r *ReferenceRepository) GetCurrency(ctx context.Context, name string) (*model.Currency, error) {
	var currency model.Currency
	err := r.db.GetContext(ctx, &currency, currencyRef.selectQuery(), normalizeName(name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCurrencyNotFound
		}
		r.logger.Error("Failed to get currency", zap.Error(err), zap.String("name", name))
		return nil, err
	}
	return &currency, nil
}

// ListAssetClasses retrieves all asset classes
func (r *ReferenceRepository) ListAssetClasses(ctx context.Context) ([]model.AssetClass, error) {
	query := `SELECT id, name, created_at FROM asset_classes ORDER BY name`

	classes := []model.AssetClass{}
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		r.logger.Error("Failed to list asset classes", zap.Error(err))
		return nil, err
	}
	return classes, nil
}

// ListCurrencies retrieves all currencies
func (r *ReferenceRepository) ListCurrencies(ctx context.Context) ([]model.Currency, error) {
	query := `SELECT id, name, created_at FROM currencies ORDER BY name`

	currencies := []model.Currency{}
	if err := r.db.SelectContext(ctx, &currencies, query); err != nil {
		r.logger.Error("Failed to list currencies", zap.Error(err))
		return nil, err
	}
	return currencies, nil
}

func normalizeName(name string) string {
	return strings.TrimSpace(name)
}
