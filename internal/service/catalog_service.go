package service

import (
	"context"
	"strings"

	"github.com/yourorg/quote-vault/internal/model"

	"go.uber.org/zap"
)

// ReferenceStore is the catalogue persistence used by CatalogService
type ReferenceStore interface {
	GetAssetClass(ctx context.Context, name string) (*model.AssetClass, error)
	GetCurrency(ctx context.Context, name string) (*model.Currency, error)
	ListAssetClasses(ctx context.Context) ([]model.AssetClass, error)
	ListCurrencies(ctx context.Context) ([]model.Currency, error)
}

// CatalogService handles read access to asset classes and currencies
type CatalogService struct {
	refs   ReferenceStore
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(refs ReferenceStore, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		refs:   refs,
		logger: logger,
	}
}

// AssetClasses lists every known asset class
func (s *CatalogService) AssetClasses(ctx context.Context) ([]model.AssetClass, error) {
	return s.refs.ListAssetClasses(ctx)
}

// AssetClass returns one asset class by name
func (s *CatalogService) AssetClass(ctx context.Context, name string) (*model.AssetClass, error) {
	return s.refs.GetAssetClass(ctx, strings.TrimSpace(name))
}

// Currencies lists every known currency
func (s *CatalogService) Currencies(ctx context.Context) ([]model.Currency, error) {
	return s.refs.ListCurrencies(ctx)
}

// Currency returns one currency by name
func (s *CatalogService) Currency(ctx context.Context, name string) (*model.Currency, error) {
	return s.refs.GetCurrency(ctx, strings.ToUpper(strings.TrimSpace(name)))
}
