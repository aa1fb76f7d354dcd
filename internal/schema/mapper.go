package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yourorg/quote-vault/internal/model"

	"github.com/shopspring/decimal"
)

// Timestamp layouts accepted as series keys
var timestampLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Mapper turns decoded payloads into normalized records
type Mapper struct {
	aliases AliasTable
}

// NewMapper creates a mapper over aliases; nil selects the built-in table
func NewMapper(aliases AliasTable) *Mapper {
	if aliases == nil {
		aliases = Aliases
	}
	return &Mapper{aliases: aliases}
}

// MapHistory normalizes a stock, forex or crypto history payload
func (m *Mapper) MapHistory(raw map[string]any) (*model.AssetHistory, error) {
	metaRaw, _, ok := m.aliases.resolve(raw, FieldMeta)
	if !ok {
		return nil, missing(m.aliases, FieldMeta)
	}
	meta, ok := metaRaw.(map[string]any)
	if !ok {
		return nil, invalid(FieldMeta, "expected an object, got %T", metaRaw)
	}

	history := &model.AssetHistory{}
	var err error
	if history.Meta.Information, err = m.requiredString(meta, FieldInformation); err != nil {
		return nil, err
	}
	if history.Meta.AssetSymbol, err = m.requiredString(meta, FieldAssetSymbol); err != nil {
		return nil, err
	}
	if history.Meta.Currency, err = m.optionalString(meta, FieldCurrency); err != nil {
		return nil, err
	}
	if history.Meta.TimeZone, err = m.requiredString(meta, FieldTimeZone); err != nil {
		return nil, err
	}

	seriesRaw, _, ok := m.aliases.resolve(raw, FieldSeries)
	if !ok {
		return nil, missing(m.aliases, FieldSeries)
	}
	series, ok := seriesRaw.(map[string]any)
	if !ok {
		return nil, invalid(FieldSeries, "expected an object, got %T", seriesRaw)
	}

	history.Series, err = mapSeries(series, m.aliases.forMarket(history.Meta.Currency))
	if err != nil {
		return nil, err
	}
	return history, nil
}

func mapSeries(series map[string]any, aliases AliasTable) ([]model.HistoryPoint, error) {
	points := make([]model.HistoryPoint, 0, len(series))
	seen := make(map[model.Date]string, len(series))

	for key, value := range series {
		date, err := parseTimestamp(key)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[date]; dup {
			return nil, invalid(FieldSeries, "timestamps %q and %q fall on the same day", prev, key)
		}
		seen[date] = key

		obj, ok := value.(map[string]any)
		if !ok {
			return nil, invalid(FieldSeries, "entry %q is %T, not an object", key, value)
		}

		ohlc, err := mapOHLC(obj, aliases)
		if err != nil {
			return nil, err
		}
		points = append(points, model.HistoryPoint{Date: date, OHLC: ohlc})
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points, nil
}

func mapOHLC(obj map[string]any, aliases AliasTable) (model.OHLC, error) {
	var ohlc model.OHLC
	targets := []struct {
		field Field
		dst   *decimal.Decimal
	}{
		{FieldOpen, &ohlc.Open},
		{FieldHigh, &ohlc.High},
		{FieldLow, &ohlc.Low},
		{FieldClose, &ohlc.Close},
	}

	for _, target := range targets {
		raw, key, ok := aliases.resolve(obj, target.field)
		if !ok {
			return model.OHLC{}, missing(aliases, target.field)
		}
		d, err := toDecimal(raw)
		if err != nil {
			return model.OHLC{}, invalid(target.field, "%q: %v", key, err)
		}
		if d.IsNegative() {
			return model.OHLC{}, invalid(target.field, "%q is negative (%s)", key, d)
		}
		*target.dst = d
	}
	return ohlc, nil
}

// MapSearch normalizes a symbol search payload. No matches yields an empty slice.
func (m *Mapper) MapSearch(raw map[string]any) ([]model.SearchResult, error) {
	listRaw, _, ok := m.aliases.resolve(raw, FieldMatches)
	if !ok {
		return nil, missing(m.aliases, FieldMatches)
	}
	list, ok := listRaw.([]any)
	if !ok {
		return nil, invalid(FieldMatches, "expected a list, got %T", listRaw)
	}

	results := make([]model.SearchResult, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, invalid(FieldMatches, "match %d is %T, not an object", i, item)
		}

		var r model.SearchResult
		var err error
		if r.Name, err = m.requiredString(obj, FieldMatchName); err != nil {
			return nil, err
		}
		if r.Symbol, err = m.requiredString(obj, FieldMatchSymbol); err != nil {
			return nil, err
		}
		if r.AssetType, err = m.requiredString(obj, FieldMatchType); err != nil {
			return nil, err
		}
		if r.Currency, err = m.requiredString(obj, FieldMatchCurrency); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

func (m *Mapper) requiredString(obj map[string]any, field Field) (string, error) {
	raw, key, ok := m.aliases.resolve(obj, field)
	if !ok {
		return "", missing(m.aliases, field)
	}
	s, ok := raw.(string)
	if !ok {
		return "", invalid(field, "%q is %T, not a string", key, raw)
	}
	return s, nil
}

func (m *Mapper) optionalString(obj map[string]any, field Field) (string, error) {
	if _, _, ok := m.aliases.resolve(obj, field); !ok {
		return "", nil
	}
	return m.requiredString(obj, field)
}

func parseTimestamp(key string) (model.Date, error) {
	trimmed := strings.TrimSpace(key)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return model.DateOf(t), nil
		}
	}
	return model.Date{}, invalid(FieldSeries, "unparseable timestamp %q", key)
}

// toDecimal accepts the shapes a price can take after decoding with UseNumber
func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case json.Number:
		return decimal.NewFromString(n.String())
	case string:
		return decimal.NewFromString(strings.TrimSpace(n))
	case float64:
		return decimal.NewFromFloat(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("unsupported value type %T", v)
	}
}
