package handler

import (
	"net/http"

	"github.com/yourorg/quote-vault/internal/metrics"
	"github.com/yourorg/quote-vault/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires handlers and middleware into a gin engine
func NewRouter(
	ingestHandler *IngestHandler,
	assetHandler *AssetHandler,
	catalogHandler *CatalogHandler,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()

	// Use middlewares
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/quota", ingestHandler.GetQuota)
		v1.GET("/search", ingestHandler.Search)
		v1.GET("/search/inputs", ingestHandler.GetSearchInputs)
		v1.POST("/history", ingestHandler.IngestHistory)

		assets := v1.Group("/assets")
		{
			assets.GET("", assetHandler.ListAssets)
			assets.GET("/:symbol", assetHandler.GetAsset)
			assets.GET("/:symbol/series", assetHandler.GetSeries)
			assets.GET("/:symbol/series/:date", assetHandler.GetPoint)
			assets.DELETE("/:symbol", assetHandler.DeleteAsset)
		}

		v1.GET("/asset-classes", catalogHandler.ListAssetClasses)
		v1.GET("/asset-classes/:name", catalogHandler.GetAssetClass)
		v1.GET("/currencies", catalogHandler.ListCurrencies)
		v1.GET("/currencies/:name", catalogHandler.GetCurrency)
	}

	return router
}
