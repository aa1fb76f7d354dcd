package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/yourorg/quote-vault/internal/metrics"
	"github.com/yourorg/quote-vault/internal/model"
	"github.com/yourorg/quote-vault/internal/quota"
	"github.com/yourorg/quote-vault/internal/schema"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public query endpoint
const DefaultBaseURL = "https://www.alphavantage.co/query"

// Top-level keys the API uses to report a refused request with status 200
var businessErrorKeys = []string{"Error Message", "Information", "Note"}

// Credentials are attached to every outbound call
type Credentials struct {
	APIKey string
}

// QuotaLedger is the part of the quota ledger the client needs
type QuotaLedger interface {
	Peek(ctx context.Context) (model.QuotaState, error)
	CommitDecrement(ctx context.Context) (model.QuotaState, error)
}

// Result is the normalized outcome of a call. History is set for history
// kinds, Matches for symbol search.
type Result struct {
	Kind    RequestKind
	History *model.AssetHistory
	Matches []model.SearchResult
}

// Config holds client settings
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
}

// Option configures an AlphaVantageClient
type Option func(*AlphaVantageClient)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *AlphaVantageClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMapper replaces the response mapper
func WithMapper(m *schema.Mapper) Option {
	return func(c *AlphaVantageClient) {
		if m != nil {
			c.mapper = m
		}
	}
}

// AlphaVantageClient handles quota-aware communication with the Alpha Vantage API
type AlphaVantageClient struct {
	baseURL    string
	httpClient *http.Client
	ledger     QuotaLedger
	mapper     *schema.Mapper
	limiter    *rate.Limiter
	inflight   *semaphore.Weighted
	logger     *zap.Logger
}

// NewAlphaVantageClient creates a new Alpha Vantage client
func NewAlphaVantageClient(cfg Config, ledger QuotaLedger, logger *zap.Logger, opts ...Option) *AlphaVantageClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &AlphaVantageClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		ledger:   ledger,
		mapper:   schema.NewMapper(nil),
		inflight: semaphore.NewWeighted(1),
		logger:   logger,
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch performs one API call for req.
//
// The quota is checked first and nothing is sent when it is exhausted. Any
// received response spends one call, including error responses. Failures to
// reach the API do not. The client never retries. Calls are serialized from
// the quota check through the commit, so concurrent callers cannot overspend.
func (c *AlphaVantageClient) Fetch(ctx context.Context, req Request, creds Credentials) (*Result, error) {
	query, err := EncodeQuery(req)
	if err != nil {
		return nil, err
	}
	fn := req.Function()

	if err := c.inflight.Acquire(ctx, 1); err != nil {
		return nil, &TransportError{Err: err}
	}
	defer c.inflight.Release(1)

	// Check the daily allowance before touching the network
	state, err := c.ledger.Peek(ctx)
	if err != nil {
		return nil, err
	}
	if state.Remaining <= 0 {
		metrics.RecordAPICall(fn, "quota_exhausted", 0)
		c.logger.Warn("API limit reached, request not sent",
			zap.String("function", fn),
			zap.Int("limit", state.Limit))
		return nil, fmt.Errorf("%w: limit of %d calls reached on %s", quota.ErrQuotaExhausted, state.Limit, state.LastReset)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Err: err}
		}
	}

	// Create HTTP request
	query.Set("apikey", creds.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	// Execute request
	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		err = c.redact(err)
		metrics.RecordAPICall(fn, "transport_error", time.Since(start))
		c.logger.Error("Failed to send request to Alpha Vantage", zap.String("function", fn), zap.Error(err))
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	elapsed := time.Since(start)

	// A response arrived, so the call counts against the quota whatever it says.
	// The commit must not be skipped because the caller gave up meanwhile.
	spent, err := c.ledger.CommitDecrement(context.WithoutCancel(ctx))
	if err != nil {
		metrics.RecordAPICall(fn, "quota_error", elapsed)
		c.logger.Error("Failed to record API call", zap.String("function", fn), zap.Error(err))
		return nil, fmt.Errorf("record API call: %w", err)
	}
	metrics.SetQuotaRemaining(spent.Remaining)

	if readErr != nil {
		metrics.RecordAPICall(fn, "transport_error", elapsed)
		return nil, &TransportError{Err: fmt.Errorf("read response body: %w", readErr)}
	}

	// Check for error status
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		metrics.RecordAPICall(fn, "http_error", elapsed)
		c.logger.Warn("Alpha Vantage returned an error status",
			zap.String("function", fn),
			zap.Int("status", resp.StatusCode))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: truncate(body)}
	}

	raw, err := c.decode(body)
	if err != nil {
		metrics.RecordAPICall(fn, "malformed", elapsed)
		c.logger.Error("Failed to decode Alpha Vantage response", zap.String("function", fn), zap.Error(err))
		return nil, err
	}

	if msg, ok := businessError(body); ok {
		metrics.RecordAPICall(fn, "business_error", elapsed)
		c.logger.Warn("Alpha Vantage refused the request",
			zap.String("function", fn),
			zap.String("message", msg))
		return nil, &BusinessError{Message: msg}
	}

	// Parse response
	result := &Result{Kind: req.Kind()}
	if req.Kind() == KindSymbolSearch {
		result.Matches, err = c.mapper.MapSearch(raw)
	} else {
		result.History, err = c.mapper.MapHistory(raw)
	}
	if err != nil {
		metrics.RecordAPICall(fn, "schema_error", elapsed)
		c.logger.Error("Failed to map Alpha Vantage response", zap.String("function", fn), zap.Error(err))
		return nil, fmt.Errorf("map %s response: %w", fn, err)
	}

	metrics.RecordAPICall(fn, "ok", elapsed)
	c.logger.Info("Fetched data from Alpha Vantage",
		zap.String("function", fn),
		zap.Int("quota_remaining", spent.Remaining),
		zap.Duration("elapsed", elapsed))
	return result, nil
}

// decode parses body as a JSON object, keeping numbers exact
func (c *AlphaVantageClient) decode(body []byte) (map[string]any, error) {
	if !gjson.ValidBytes(body) {
		return nil, &MalformedResponseError{Err: errors.New("body is not valid JSON")}
	}
	if !gjson.ParseBytes(body).IsObject() {
		return nil, &MalformedResponseError{Err: errors.New("body is not a JSON object")}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, &MalformedResponseError{Err: err}
	}
	return raw, nil
}

// redact strips the query string, which carries the API key, from URL errors
func (c *AlphaVantageClient) redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = c.baseURL
	}
	return err
}

func businessError(body []byte) (string, bool) {
	root := gjson.ParseBytes(body)
	for _, key := range businessErrorKeys {
		if v := root.Get(key); v.Exists() {
			return v.String(), true
		}
	}
	return "", false
}
