package handler

import (
	"context"
	"net/http"

	"github.com/yourorg/quote-vault/internal/model"
	"github.com/yourorg/quote-vault/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AssetService is what the asset handler needs from the service layer
type AssetService interface {
	Asset(ctx context.Context, symbol string) (*model.Asset, error)
	Assets(ctx context.Context, assetTypes []string) ([]model.Asset, error)
	AssetsByIdentifier(ctx context.Context, identifier string) ([]model.Asset, error)
	Point(ctx context.Context, symbol string, date model.Date) (*model.TimeSeriesPoint, error)
	Series(ctx context.Context, symbol string, from, to model.Date) ([]model.TimeSeriesPoint, error)
	DeleteAsset(ctx context.Context, symbol string) (int64, error)
}

// AssetHandler handles stored asset HTTP requests
type AssetHandler struct {
	assetService AssetService
	logger       *zap.Logger
}

// NewAssetHandler creates a new asset handler
func NewAssetHandler(assetService AssetService, logger *zap.Logger) *AssetHandler {
	return &AssetHandler{
		assetService: assetService,
		logger:       logger,
	}
}

// ListAssets handles listing stored assets, by type or by identifier
// GET /api/v1/assets?asset_type=stock,forex
// GET /api/v1/assets?identifier=BTC/EUR
func (h *AssetHandler) ListAssets(c *gin.Context) {
	var (
		assets []model.Asset
		err    error
	)
	if identifier := c.Query("identifier"); identifier != "" {
		assets, err = h.assetService.AssetsByIdentifier(c.Request.Context(), identifier)
	} else {
		assets, err = h.assetService.Assets(c.Request.Context(), utils.ParseList(c, "asset_type"))
	}
	if err != nil {
		respondError(c, h.logger, err, "Failed to list assets")
		return
	}

	utils.SendListResponse(c, http.StatusOK, assets, len(assets))
}

// GetAsset handles retrieving an asset by symbol
// GET /api/v1/assets/:symbol
func (h *AssetHandler) GetAsset(c *gin.Context) {
	symbol := c.Param("symbol")

	asset, err := h.assetService.Asset(c.Request.Context(), symbol)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get asset", zap.String("symbol", symbol))
		return
	}

	c.JSON(http.StatusOK, asset)
}

// GetSeries handles retrieving stored points of an asset
// GET /api/v1/assets/:symbol/series?from=&to=
func (h *AssetHandler) GetSeries(c *gin.Context) {
	symbol := c.Param("symbol")

	from, to, err := utils.ParseDateRange(c)
	if err != nil {
		utils.SendErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	points, err := h.assetService.Series(c.Request.Context(), symbol, from, to)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get time series", zap.String("symbol", symbol))
		return
	}

	utils.SendListResponse(c, http.StatusOK, points, len(points))
}

// GetPoint handles retrieving one stored point, or the most recent one
// GET /api/v1/assets/:symbol/series/:date
// GET /api/v1/assets/:symbol/series/latest
func (h *AssetHandler) GetPoint(c *gin.Context) {
	symbol := c.Param("symbol")

	var date model.Date
	if raw := c.Param("date"); raw != "latest" {
		parsed, err := model.ParseDate(raw)
		if err != nil {
			utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD or latest")
			return
		}
		date = parsed
	}

	point, err := h.assetService.Point(c.Request.Context(), symbol, date)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get time series point",
			zap.String("symbol", symbol),
			zap.String("date", c.Param("date")))
		return
	}

	c.JSON(http.StatusOK, point)
}

// DeleteAsset handles removing an asset and its points
// DELETE /api/v1/assets/:symbol
func (h *AssetHandler) DeleteAsset(c *gin.Context) {
	symbol := c.Param("symbol")

	removed, err := h.assetService.DeleteAsset(c.Request.Context(), symbol)
	if err != nil {
		respondError(c, h.logger, err, "Failed to delete asset", zap.String("symbol", symbol))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":         symbol,
		"points_deleted": removed,
	})
}
