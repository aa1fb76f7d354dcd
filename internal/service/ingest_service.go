package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/yourorg/quote-vault/internal/cache"
	"github.com/yourorg/quote-vault/internal/client"
	"github.com/yourorg/quote-vault/internal/events"
	"github.com/yourorg/quote-vault/internal/metrics"
	"github.com/yourorg/quote-vault/internal/model"

	"go.uber.org/zap"
)

// Fetcher performs one quota-aware API call
type Fetcher interface {
	Fetch(ctx context.Context, req client.Request, creds client.Credentials) (*client.Result, error)
}

// QuotaReader reports the current allowance without spending it
type QuotaReader interface {
	Peek(ctx context.Context) (model.QuotaState, error)
}

// AssetStore is the asset persistence used by the service
type AssetStore interface {
	GetOrCreateAsset(ctx context.Context, in model.AssetCreate) (*model.Asset, bool, error)
	AddTimeSeriesPoints(ctx context.Context, symbol string, points []model.TimeSeriesCreate) ([]model.TimeSeriesPoint, error)
	GetAsset(ctx context.Context, symbol string) (*model.Asset, error)
	GetAssetsByIdentifier(ctx context.Context, identifier string) ([]model.Asset, error)
	GetTimeSeriesPoint(ctx context.Context, symbol string, date model.Date) (*model.TimeSeriesPoint, error)
	GetLatestTimeSeriesPoint(ctx context.Context, symbol string) (*model.TimeSeriesPoint, error)
	ListAssets(ctx context.Context, assetTypes []string) ([]model.Asset, error)
	ListTimeSeries(ctx context.Context, symbol string, from, to model.Date) ([]model.TimeSeriesPoint, error)
	DeleteAsset(ctx context.Context, symbol string) (int64, error)
}

// SearchStore is the search history persistence used by the service
type SearchStore interface {
	GetSearchResults(ctx context.Context, input string) ([]model.SearchResult, error)
	SaveSearchResults(ctx context.Context, input string, results []model.SearchResult) (*model.SearchEntry, error)
	GetSearchInputs(ctx context.Context) ([]string, error)
}

// IngestResult is the outcome of one history ingestion
type IngestResult struct {
	Asset  *model.Asset            `json:"asset"`
	Meta   model.HistoryMeta       `json:"meta"`
	Points []model.TimeSeriesPoint `json:"points"`
	Source string                  `json:"source"`
}

// IngestService handles fetching quotes and storing them
type IngestService struct {
	fetcher   Fetcher
	quota     QuotaReader
	assets    AssetStore
	searches  SearchStore
	cache     cache.HistoryCache
	publisher events.Publisher
	creds     client.Credentials
	logger    *zap.Logger
}

// NewIngestService creates a new ingestion service. A nil cache or publisher
// disables that step.
func NewIngestService(
	fetcher Fetcher,
	quota QuotaReader,
	assets AssetStore,
	searches SearchStore,
	historyCache cache.HistoryCache,
	publisher events.Publisher,
	creds client.Credentials,
	logger *zap.Logger,
) *IngestService {
	if historyCache == nil {
		historyCache = cache.NopHistoryCache{}
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &IngestService{
		fetcher:   fetcher,
		quota:     quota,
		assets:    assets,
		searches:  searches,
		cache:     historyCache,
		publisher: publisher,
		creds:     creds,
		logger:    logger,
	}
}

// IngestHistory fetches a history, from cache when possible, and stores every
// point under the derived asset. Points that already exist are returned as stored.
func (s *IngestService) IngestHistory(ctx context.Context, params client.HistoryParams) (*IngestResult, error) {
	req, err := client.NewHistoryRequest(params)
	if err != nil {
		return nil, err
	}

	history, source, err := s.loadHistory(ctx, req)
	if err != nil {
		return nil, err
	}

	in := assetFor(req, history.Meta)
	asset, _, err := s.assets.GetOrCreateAsset(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("get or create asset %s: %w", in.Symbol, err)
	}

	points, err := s.assets.AddTimeSeriesPoints(ctx, asset.Symbol, model.PointsFromHistory(history.Series))
	metrics.RecordPointsStored(asset.AssetType, len(points))
	if err != nil {
		return nil, fmt.Errorf("store points for %s: %w", asset.Symbol, err)
	}

	s.logger.Info("Ingested history",
		zap.String("symbol", asset.Symbol),
		zap.String("function", req.Function()),
		zap.String("source", source),
		zap.Int("points", len(points)))

	event := events.Event{
		Type:      events.TypeHistoryIngested,
		Symbol:    asset.Symbol,
		AssetType: asset.AssetType,
		Function:  req.Function(),
		Source:    source,
		Count:     len(points),
	}
	if len(history.Series) > 0 {
		event.FirstDate = history.Series[0].Date.String()
		event.LastDate = history.Series[len(history.Series)-1].Date.String()
	}
	s.publish(ctx, event)

	return &IngestResult{
		Asset:  asset,
		Meta:   history.Meta,
		Points: points,
		Source: source,
	}, nil
}

func (s *IngestService) loadHistory(ctx context.Context, req client.Request) (*model.AssetHistory, string, error) {
	key := historyCacheKey(req)

	cached, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("History cache unavailable, fetching from API", zap.Error(err))
	}
	if hit {
		return cached, model.SourceCache, nil
	}

	result, err := s.fetcher.Fetch(ctx, req, s.creds)
	if err != nil {
		return nil, "", err
	}

	if err := s.cache.Set(ctx, key, result.History); err != nil {
		s.logger.Warn("Failed to cache history", zap.Error(err))
	}
	return result.History, model.SourceAPI, nil
}

// Search returns stored matches for keywords, falling back to the API and
// saving what it returns
func (s *IngestService) Search(ctx context.Context, keywords string) (*model.SearchOutcome, error) {
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return nil, &client.ValidationError{Field: "keywords", Reason: "required"}
	}

	stored, err := s.searches.GetSearchResults(ctx, keywords)
	if err != nil {
		return nil, fmt.Errorf("load stored search results: %w", err)
	}
	if len(stored) > 0 {
		return &model.SearchOutcome{Keywords: keywords, Source: model.SourceDatabase, Results: stored}, nil
	}

	result, err := s.fetcher.Fetch(ctx, client.SymbolSearchRequest{Keywords: keywords}, s.creds)
	if err != nil {
		return nil, err
	}

	if _, err := s.searches.SaveSearchResults(ctx, keywords, result.Matches); err != nil {
		return nil, fmt.Errorf("save search results: %w", err)
	}

	s.publish(ctx, events.Event{
		Type:     events.TypeSearchSaved,
		Keywords: keywords,
		Source:   model.SourceAPI,
		Count:    len(result.Matches),
	})

	return &model.SearchOutcome{Keywords: keywords, Source: model.SourceAPI, Results: result.Matches}, nil
}

// Quota returns the current allowance
func (s *IngestService) Quota(ctx context.Context) (model.QuotaState, error) {
	return s.quota.Peek(ctx)
}

// SearchInputs lists every keyword searched so far
func (s *IngestService) SearchInputs(ctx context.Context) ([]string, error) {
	return s.searches.GetSearchInputs(ctx)
}

// Asset returns a stored asset by symbol
func (s *IngestService) Asset(ctx context.Context, symbol string) (*model.Asset, error) {
	return s.assets.GetAsset(ctx, strings.ToUpper(strings.TrimSpace(symbol)))
}

// Assets lists stored assets, optionally filtered by type
func (s *IngestService) Assets(ctx context.Context, assetTypes []string) ([]model.Asset, error) {
	return s.assets.ListAssets(ctx, assetTypes)
}

// AssetsByIdentifier lists assets sharing an external identifier
func (s *IngestService) AssetsByIdentifier(ctx context.Context, identifier string) ([]model.Asset, error) {
	return s.assets.GetAssetsByIdentifier(ctx, strings.ToUpper(strings.TrimSpace(identifier)))
}

// Point returns the stored point of symbol on date. A zero date means the latest one.
func (s *IngestService) Point(ctx context.Context, symbol string, date model.Date) (*model.TimeSeriesPoint, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if date.IsZero() {
		return s.assets.GetLatestTimeSeriesPoint(ctx, symbol)
	}
	return s.assets.GetTimeSeriesPoint(ctx, symbol, date)
}

// Series returns stored points for symbol between from and to, inclusive
func (s *IngestService) Series(ctx context.Context, symbol string, from, to model.Date) ([]model.TimeSeriesPoint, error) {
	return s.assets.ListTimeSeries(ctx, strings.ToUpper(strings.TrimSpace(symbol)), from, to)
}

// DeleteAsset removes an asset and its points
func (s *IngestService) DeleteAsset(ctx context.Context, symbol string) (int64, error) {
	return s.assets.DeleteAsset(ctx, strings.ToUpper(strings.TrimSpace(symbol)))
}

// publish never fails the caller; the data is already stored
func (s *IngestService) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.PublishEvent(ctx, e); err != nil {
		s.logger.Warn("Failed to publish ingestion event",
			zap.String("type", e.Type),
			zap.Error(err))
	}
}

func historyCacheKey(req client.Request) string {
	switch r := req.(type) {
	case client.StockHistoryRequest:
		return cache.Key(r.Func, r.Symbol, r.OutputSize)
	case client.ForexHistoryRequest:
		return cache.Key(r.Func, r.FromSymbol, r.ToSymbol, r.OutputSize)
	case client.CryptoHistoryRequest:
		return cache.Key(r.Func, r.Symbol, r.Market)
	default:
		return cache.Key(req.Function())
	}
}

// assetFor derives the asset natural key: the ticker for stocks, the pair
// for forex and the code plus market for crypto
func assetFor(req client.Request, meta model.HistoryMeta) model.AssetCreate {
	switch r := req.(type) {
	case client.ForexHistoryRequest:
		pair := r.FromSymbol + "/" + r.ToSymbol
		return model.AssetCreate{
			Identifier: pair,
			Symbol:     r.FromSymbol + r.ToSymbol,
			AssetType:  string(model.AssetTypeForex),
			Currency:   r.ToSymbol,
			Name:       pair,
		}
	case client.CryptoHistoryRequest:
		pair := r.Symbol + "/" + r.Market
		return model.AssetCreate{
			Identifier: pair,
			Symbol:     r.Symbol + r.Market,
			AssetType:  string(model.AssetTypeCrypto),
			Currency:   r.Market,
			Name:       pair,
		}
	default:
		symbol := meta.AssetSymbol
		if r, ok := req.(client.StockHistoryRequest); ok {
			symbol = r.Symbol
		}
		return model.AssetCreate{
			Identifier: symbol,
			Symbol:     symbol,
			AssetType:  string(model.AssetTypeStock),
			Currency:   strings.ToUpper(meta.Currency),
			Name:       symbol,
		}
	}
}
