package client

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/yourorg/quote-vault/internal/model"

	"github.com/go-playground/validator/v10"
)

// RequestKind identifies one of the supported API calls
type RequestKind string

const (
	KindStockHistory  RequestKind = "stock_history"
	KindForexHistory  RequestKind = "forex_history"
	KindCryptoHistory RequestKind = "crypto_history"
	KindSymbolSearch  RequestKind = "symbol_search"
)

// Function words understood by the API
const (
	FunctionStockDaily   = "TIME_SERIES_DAILY"
	FunctionStockWeekly  = "TIME_SERIES_WEEKLY"
	FunctionStockMonthly = "TIME_SERIES_MONTHLY"

	FunctionForexDaily   = "FX_DAILY"
	FunctionForexWeekly  = "FX_WEEKLY"
	FunctionForexMonthly = "FX_MONTHLY"

	FunctionCryptoDaily   = "DIGITAL_CURRENCY_DAILY"
	FunctionCryptoWeekly  = "DIGITAL_CURRENCY_WEEKLY"
	FunctionCryptoMonthly = "DIGITAL_CURRENCY_MONTHLY"

	FunctionSymbolSearch = "SYMBOL_SEARCH"
)

// Output sizes for daily history
const (
	OutputSizeCompact = "compact"
	OutputSizeFull    = "full"
)

var functions = map[model.AssetType]map[model.Interval]string{
	model.AssetTypeStock: {
		model.IntervalDaily:   FunctionStockDaily,
		model.IntervalWeekly:  FunctionStockWeekly,
		model.IntervalMonthly: FunctionStockMonthly,
	},
	model.AssetTypeForex: {
		model.IntervalDaily:   FunctionForexDaily,
		model.IntervalWeekly:  FunctionForexWeekly,
		model.IntervalMonthly: FunctionForexMonthly,
	},
	model.AssetTypeCrypto: {
		model.IntervalDaily:   FunctionCryptoDaily,
		model.IntervalWeekly:  FunctionCryptoWeekly,
		model.IntervalMonthly: FunctionCryptoMonthly,
	},
}

// FunctionFor returns the function word for an asset type and interval
func FunctionFor(assetType model.AssetType, interval model.Interval) (string, error) {
	byInterval, ok := functions[assetType]
	if !ok {
		return "", &ValidationError{Field: "asset_type", Reason: fmt.Sprintf("unsupported asset type %q", assetType)}
	}
	fn, ok := byInterval[interval]
	if !ok {
		return "", &ValidationError{Field: "interval", Reason: fmt.Sprintf("unsupported interval %q", interval)}
	}
	return fn, nil
}

// Request is a typed descriptor of one API call.
// The set of implementations is closed to this package.
type Request interface {
	Kind() RequestKind
	Function() string
	request()
}

// StockHistoryRequest asks for the price history of a stock or ETF
type StockHistoryRequest struct {
	Func       string `validate:"required,oneof=TIME_SERIES_DAILY TIME_SERIES_WEEKLY TIME_SERIES_MONTHLY"`
	Symbol     string `validate:"required"`
	OutputSize string `validate:"omitempty,oneof=compact full"`
}

// ForexHistoryRequest asks for the history of an exchange rate
type ForexHistoryRequest struct {
	Func       string `validate:"required,oneof=FX_DAILY FX_WEEKLY FX_MONTHLY"`
	FromSymbol string `validate:"required"`
	ToSymbol   string `validate:"required"`
	OutputSize string `validate:"omitempty,oneof=compact full"`
}

// CryptoHistoryRequest asks for the history of a digital currency in a market
type CryptoHistoryRequest struct {
	Func   string `validate:"required,oneof=DIGITAL_CURRENCY_DAILY DIGITAL_CURRENCY_WEEKLY DIGITAL_CURRENCY_MONTHLY"`
	Symbol string `validate:"required"`
	Market string `validate:"required"`
}

// SymbolSearchRequest looks up instruments matching free-text keywords
type SymbolSearchRequest struct {
	Keywords string `validate:"required"`
}

func (StockHistoryRequest) Kind() RequestKind  { return KindStockHistory }
func (ForexHistoryRequest) Kind() RequestKind  { return KindForexHistory }
func (CryptoHistoryRequest) Kind() RequestKind { return KindCryptoHistory }
func (SymbolSearchRequest) Kind() RequestKind  { return KindSymbolSearch }

func (r StockHistoryRequest) Function() string  { return r.Func }
func (r ForexHistoryRequest) Function() string  { return r.Func }
func (r CryptoHistoryRequest) Function() string { return r.Func }
func (SymbolSearchRequest) Function() string    { return FunctionSymbolSearch }

func (StockHistoryRequest) request()  {}
func (ForexHistoryRequest) request()  {}
func (CryptoHistoryRequest) request() {}
func (SymbolSearchRequest) request()  {}

// HistoryParams is the loosely typed input from callers that pick the kind at runtime
type HistoryParams struct {
	AssetType  model.AssetType `json:"asset_type" validate:"required,oneof=stock forex crypto"`
	Interval   model.Interval  `json:"interval" validate:"required,oneof=Daily Weekly Monthly"`
	Symbol     string          `json:"symbol" validate:"required"`
	ToSymbol   string          `json:"to_symbol"`
	Market     string          `json:"market"`
	OutputSize string          `json:"outputsize" validate:"omitempty,oneof=compact full"`
}

// NewHistoryRequest builds the typed descriptor for params
func NewHistoryRequest(params HistoryParams) (Request, error) {
	if err := validate.Struct(params); err != nil {
		return nil, validationError(err)
	}
	fn, err := FunctionFor(params.AssetType, params.Interval)
	if err != nil {
		return nil, err
	}

	symbol := strings.ToUpper(strings.TrimSpace(params.Symbol))
	var req Request
	switch params.AssetType {
	case model.AssetTypeStock:
		req = StockHistoryRequest{Func: fn, Symbol: symbol, OutputSize: params.OutputSize}
	case model.AssetTypeForex:
		req = ForexHistoryRequest{
			Func:       fn,
			FromSymbol: symbol,
			ToSymbol:   strings.ToUpper(strings.TrimSpace(params.ToSymbol)),
			OutputSize: params.OutputSize,
		}
	case model.AssetTypeCrypto:
		req = CryptoHistoryRequest{
			Func:   fn,
			Symbol: symbol,
			Market: strings.ToUpper(strings.TrimSpace(params.Market)),
		}
	}

	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	return req, nil
}

// EncodeQuery maps a descriptor to its query parameters, without credentials
func EncodeQuery(req Request) (url.Values, error) {
	if req == nil {
		return nil, &ValidationError{Field: "request", Reason: "nil request"}
	}
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	q := url.Values{}
	q.Set("function", req.Function())

	switch r := req.(type) {
	case StockHistoryRequest:
		q.Set("symbol", r.Symbol)
		if r.Func == FunctionStockDaily && r.OutputSize != "" {
			q.Set("outputsize", r.OutputSize)
		}
	case ForexHistoryRequest:
		q.Set("from_symbol", r.FromSymbol)
		q.Set("to_symbol", r.ToSymbol)
		if r.Func == FunctionForexDaily && r.OutputSize != "" {
			q.Set("outputsize", r.OutputSize)
		}
	case CryptoHistoryRequest:
		q.Set("symbol", r.Symbol)
		q.Set("market", r.Market)
	case SymbolSearchRequest:
		q.Set("keywords", r.Keywords)
	default:
		return nil, &ValidationError{Field: "request", Reason: fmt.Sprintf("unsupported request %T", req)}
	}
	return q, nil
}

var validate = validator.New()

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{
			Field:  fe.Field(),
			Reason: fmt.Sprintf("failed %q check (value %v)", fe.Tag(), fe.Value()),
		}
	}
	return &ValidationError{Field: "request", Reason: err.Error()}
}
