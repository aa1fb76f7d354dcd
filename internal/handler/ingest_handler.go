package handler

import (
	"context"
	"net/http"

	"github.com/yourorg/quote-vault/internal/client"
	"github.com/yourorg/quote-vault/internal/model"
	"github.com/yourorg/quote-vault/internal/service"
	"github.com/yourorg/quote-vault/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IngestService is what the ingest handler needs from the service layer
type IngestService interface {
	IngestHistory(ctx context.Context, params client.HistoryParams) (*service.IngestResult, error)
	Search(ctx context.Context, keywords string) (*model.SearchOutcome, error)
	SearchInputs(ctx context.Context) ([]string, error)
	Quota(ctx context.Context) (model.QuotaState, error)
}

// QuotaResponse is the quota ledger as exposed over HTTP
type QuotaResponse struct {
	Limit     int               `json:"limit"`
	Remaining int               `json:"remaining"`
	Used      int               `json:"used"`
	Status    model.QuotaStatus `json:"status"`
	LastReset model.Date        `json:"last_update"`
}

// IngestHandler handles quota, search and history ingestion requests
type IngestHandler struct {
	ingestService IngestService
	logger        *zap.Logger
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(ingestService IngestService, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{
		ingestService: ingestService,
		logger:        logger,
	}
}

// GetQuota handles reading the remaining daily allowance
// GET /api/v1/quota
func (h *IngestHandler) GetQuota(c *gin.Context) {
	state, err := h.ingestService.Quota(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to read quota", zap.Error(err))
		utils.SendErrorResponse(c, http.StatusInternalServerError, "Failed to read quota")
		return
	}

	c.JSON(http.StatusOK, QuotaResponse{
		Limit:     state.Limit,
		Remaining: state.Remaining,
		Used:      state.Used(),
		Status:    state.Status(),
		LastReset: state.LastReset,
	})
}

// Search handles symbol search, answering from stored results when possible
// GET /api/v1/search?keywords=
func (h *IngestHandler) Search(c *gin.Context) {
	keywords := c.Query("keywords")
	if keywords == "" {
		utils.SendErrorResponse(c, http.StatusBadRequest, "keywords query parameter is required")
		return
	}

	outcome, err := h.ingestService.Search(c.Request.Context(), keywords)
	if err != nil {
		respondError(c, h.logger, err, "Failed to search symbols", zap.String("keywords", keywords))
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// GetSearchInputs handles listing past search keywords
// GET /api/v1/search/inputs
func (h *IngestHandler) GetSearchInputs(c *gin.Context) {
	inputs, err := h.ingestService.SearchInputs(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to list search inputs")
		return
	}

	utils.SendListResponse(c, http.StatusOK, inputs, len(inputs))
}

// IngestHistory handles fetching and storing a price history
// POST /api/v1/history
func (h *IngestHandler) IngestHistory(c *gin.Context) {
	var params client.HistoryParams
	if err := c.ShouldBindJSON(&params); err != nil {
		utils.SendErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.ingestService.IngestHistory(c.Request.Context(), params)
	if err != nil {
		respondError(c, h.logger, err, "Failed to ingest history",
			zap.String("asset_type", string(params.AssetType)),
			zap.String("symbol", params.Symbol))
		return
	}

	c.JSON(http.StatusOK, result)
}
