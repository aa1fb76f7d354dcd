package handler

import (
	"context"
	"net/http"

	"github.com/yourorg/quote-vault/internal/model"
	"github.com/yourorg/quote-vault/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CatalogService is what the catalog handler needs from the service layer
type CatalogService interface {
	AssetClasses(ctx context.Context) ([]model.AssetClass, error)
	AssetClass(ctx context.Context, name string) (*model.AssetClass, error)
	Currencies(ctx context.Context) ([]model.Currency, error)
	Currency(ctx context.Context, name string) (*model.Currency, error)
}

// CatalogHandler handles asset class and currency HTTP requests
type CatalogHandler struct {
	catalogService CatalogService
	logger         *zap.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalogService CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// ListAssetClasses handles listing asset classes
// GET /api/v1/asset-classes
func (h *CatalogHandler) ListAssetClasses(c *gin.Context) {
	classes, err := h.catalogService.AssetClasses(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to list asset classes")
		return
	}
	utils.SendListResponse(c, http.StatusOK, classes, len(classes))
}

// GetAssetClass handles retrieving an asset class by name
// GET /api/v1/asset-classes/:name
func (h *CatalogHandler) GetAssetClass(c *gin.Context) {
	class, err := h.catalogService.AssetClass(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to get asset class", zap.String("name", c.Param("name")))
		return
	}
	c.JSON(http.StatusOK, class)
}

// ListCurrencies handles listing currencies
// GET /api/v1/currencies
func (h *CatalogHandler) ListCurrencies(c *gin.Context) {
	currencies, err := h.catalogService.Currencies(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to list currencies")
		return
	}
	utils.SendListResponse(c, http.StatusOK, currencies, len(currencies))
}

// GetCurrency handles retrieving a currency by name
// GET /api/v1/currencies/:name
func (h *CatalogHandler) GetCurrency(c *gin.Context) {
	currency, err := h.catalogService.Currency(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to get currency", zap.String("name", c.Param("name")))
		return
	}
	c.JSON(http.StatusOK, currency)
}
