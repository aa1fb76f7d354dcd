package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/yourorg/quote-vault/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(bytes.NewBufferString(body))
	dec.UseNumber()
	var out map[string]any
	require.NoError(t, dec.Decode(&out))
	return out
}

func schemaErr(t *testing.T, err error) *SchemaValidationError {
	t.Helper()
	var target *SchemaValidationError
	require.True(t, errors.As(err, &target), "expected SchemaValidationError, got %v", err)
	return target
}

const stockDaily = `{
	"Meta Data": {
		"1. Information": "Daily Prices (open, high, low, close) and Volumes",
		"2. Symbol": "IBM",
		"3. Last Refreshed": "2024-05-02",
		"4. Output Size": "Compact",
		"5. Time Zone": "US/Eastern"
	},
	"Time Series (Daily)": {
		"2024-05-02": {"1. open": "166.6600", "2. high": "166.9400", "3. low": "164.2000", "4. close": "165.6900", "5. volume": "3923011"},
		"2024-04-30": {"1. open": "167.0000", "2. high": "167.5000", "3. low": "165.5200", "4. close": "166.2000", "5. volume": "7386568"},
		"2024-05-01": {"1. open": "165.6900", "2. high": "166.2700", "3. low": "164.3000", "4. close": "164.4300", "5. volume": "4030384"}
	}
}`

const forexWeekly = `{
	"Meta Data": {
		"1. Information": "Forex Weekly Prices (open, high, low, close)",
		"2. From Symbol": "EUR",
		"3. To Symbol": "USD",
		"4. Last Refreshed": "2024-05-02 21:55:00",
		"5. Time Zone": "UTC"
	},
	"Time Series FX (Weekly)": {
		"2024-05-02": {"1. open": "1.06960", "2. high": "1.07350", "3. low": "1.06500", "4. close": "1.07230"}
	}
}`

const cryptoDaily = `{
	"Meta Data": {
		"1. Information": "Daily Prices and Volumes for Digital Currency",
		"2. Digital Currency Code": "BTC",
		"3. Digital Currency Name": "Bitcoin",
		"4. Market Code": "EUR",
		"5. Market Name": "Euro",
		"6. Last Refreshed": "2024-05-02 00:00:00",
		"7. Time Zone": "UTC"
	},
	"Time Series (Digital Currency Daily)": {
		"2024-05-02 00:00:00": {
			"1a. open (EUR)": "53301.12", "1b. open (USD)": "57201.84",
			"2a. high (EUR)": "55402.00", "2b. high (USD)": "59455.00",
			"3a. low (EUR)": "53015.40", "3b. low (USD)": "56895.10",
			"4a. close (EUR)": "54280.10", "4b. close (USD)": "58253.70"
		}
	}
}`

func TestMapHistoryStock(t *testing.T) {
	history, err := NewMapper(nil).MapHistory(decode(t, stockDaily))
	require.NoError(t, err)

	assert.Equal(t, "IBM", history.Meta.AssetSymbol)
	assert.Equal(t, "", history.Meta.Currency)
	assert.Equal(t, "US/Eastern", history.Meta.TimeZone)

	require.Len(t, history.Series, 3)
	assert.Equal(t, "2024-04-30", history.Series[0].Date.String())
	assert.Equal(t, "2024-05-01", history.Series[1].Date.String())
	assert.Equal(t, "2024-05-02", history.Series[2].Date.String())

	latest, ok := history.Latest()
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("166.66").Equal(latest.Open))
	assert.Equal(t, "165.69", latest.Close.String())
}

func TestMapHistoryForexAndCrypto(t *testing.T) {
	mapper := NewMapper(nil)

	fx, err := mapper.MapHistory(decode(t, forexWeekly))
	require.NoError(t, err)
	assert.Equal(t, "EUR", fx.Meta.AssetSymbol)
	assert.Equal(t, "USD", fx.Meta.Currency)
	assert.Equal(t, "1.0723", fx.Series[0].Close.String())

	crypto, err := mapper.MapHistory(decode(t, cryptoDaily))
	require.NoError(t, err)
	assert.Equal(t, "BTC", crypto.Meta.AssetSymbol)
	assert.Equal(t, "EUR", crypto.Meta.Currency)
	assert.Equal(t, "UTC", crypto.Meta.TimeZone)
	require.Len(t, crypto.Series, 1)
	assert.Equal(t, model.NewDate(2024, time.May, 2), crypto.Series[0].Date)
	assert.Equal(t, "53301.12", crypto.Series[0].Open.String())
	assert.Equal(t, "55402", crypto.Series[0].High.String())
	assert.Equal(t, "53015.4", crypto.Series[0].Low.String())
	assert.Equal(t, "54280.1", crypto.Series[0].Close.String())
}

func TestMapHistoryCryptoNeverReadsUSDColumnForOtherMarkets(t *testing.T) {
	mapper := NewMapper(nil)

	usdOnly := `{
		"Meta Data": {"1. Information": "i", "2. Digital Currency Code": "BTC", "4. Market Code": "EUR", "7. Time Zone": "UTC"},
		"Time Series (Digital Currency Daily)": {
			"2024-05-02": {"1b. open (USD)": "60000.0", "2b. high (USD)": "61000.0", "3b. low (USD)": "59000.0", "4b. close (USD)": "60500.0"}
		}
	}`
	_, err := mapper.MapHistory(decode(t, usdOnly))
	e := schemaErr(t, err)
	assert.Equal(t, FieldOpen, e.Field)
	assert.Equal(t, []string{"1. open", "open", "1a. open (EUR)"}, e.Candidates)

	usdMarket := `{
		"Meta Data": {"1. Information": "i", "2. Digital Currency Code": "BTC", "4. Market Code": "USD", "7. Time Zone": "UTC"},
		"Time Series (Digital Currency Daily)": {
			"2024-05-02": {"1a. open (USD)": "60000.0", "2a. high (USD)": "61000.0", "3a. low (USD)": "59000.0", "4a. close (USD)": "60500.0"}
		}
	}`
	history, err := mapper.MapHistory(decode(t, usdMarket))
	require.NoError(t, err)
	assert.Equal(t, "60000", history.Series[0].Open.String())

	current := `{
		"Meta Data": {"1. Information": "i", "2. Digital Currency Code": "BTC", "4. Market Code": "EUR", "7. Time Zone": "UTC"},
		"Time Series (Digital Currency Daily)": {
			"2024-05-02": {"1. open": "55000.0", "2. high": "56000.0", "3. low": "54000.0", "4. close": "55500.0", "1b. open (USD)": "60000.0"}
		}
	}`
	history, err = mapper.MapHistory(decode(t, current))
	require.NoError(t, err)
	assert.Equal(t, "55000", history.Series[0].Open.String())
}

func TestAliasesMapToSameRecord(t *testing.T) {
	numbered := `{
		"Meta Data": {"1. Information": "i", "2. Symbol": "X", "5. Time Zone": "UTC"},
		"Time Series (Daily)": {"2024-01-02": {"1. open": "10.5", "2. high": "11", "3. low": "9.75", "4. close": "10.01"}}
	}`
	plain := `{
		"Meta Data": {"Information": "i", "symbol": "X", "Time Zone": "UTC"},
		"Time Series (Daily)": {"2024-01-02": {"open": 10.5, "high": 11, "low": 9.75, "close": "10.01"}}
	}`

	mapper := NewMapper(nil)
	a, err := mapper.MapHistory(decode(t, numbered))
	require.NoError(t, err)
	b, err := mapper.MapHistory(decode(t, plain))
	require.NoError(t, err)

	require.Len(t, a.Series, 1)
	require.Len(t, b.Series, 1)
	assert.Equal(t, a.Meta, b.Meta)
	assert.Equal(t, a.Series[0].Date, b.Series[0].Date)
	for _, pair := range [][2]decimal.Decimal{
		{a.Series[0].Open, b.Series[0].Open},
		{a.Series[0].High, b.Series[0].High},
		{a.Series[0].Low, b.Series[0].Low},
		{a.Series[0].Close, b.Series[0].Close},
	} {
		assert.True(t, pair[0].Equal(pair[1]), "%s != %s", pair[0], pair[1])
	}
}

func TestMapHistoryFailures(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field Field
	}{
		{
			name:  "no meta",
			body:  `{"Time Series (Daily)": {}}`,
			field: FieldMeta,
		},
		{
			name:  "no symbol",
			body:  `{"Meta Data": {"1. Information": "i", "5. Time Zone": "UTC"}, "Time Series (Daily)": {}}`,
			field: FieldAssetSymbol,
		},
		{
			name:  "no series",
			body:  `{"Meta Data": {"1. Information": "i", "2. Symbol": "X", "5. Time Zone": "UTC"}}`,
			field: FieldSeries,
		},
		{
			name:  "missing close",
			body:  `{"Meta Data": {"1. Information": "i", "2. Symbol": "X", "5. Time Zone": "UTC"}, "Time Series (Daily)": {"2024-01-02": {"1. open": "1", "2. high": "1", "3. low": "1"}}}`,
			field: FieldClose,
		},
		{
			name:  "bad date",
			body:  `{"Meta Data": {"1. Information": "i", "2. Symbol": "X", "5. Time Zone": "UTC"}, "Time Series (Daily)": {"02.01.2024": {"1. open": "1", "2. high": "1", "3. low": "1", "4. close": "1"}}}`,
			field: FieldSeries,
		},
		{
			name:  "same day twice",
			body:  `{"Meta Data": {"1. Information": "i", "2. Symbol": "X", "5. Time Zone": "UTC"}, "Time Series (Daily)": {"2024-01-02": {"1. open": "1", "2. high": "1", "3. low": "1", "4. close": "1"}, "2024-01-02 16:00:00": {"1. open": "1", "2. high": "1", "3. low": "1", "4. close": "1"}}}`,
			field: FieldSeries,
		},
		{
			name:  "negative price",
			body:  `{"Meta Data": {"1. Information": "i", "2. Symbol": "X", "5. Time Zone": "UTC"}, "Time Series (Daily)": {"2024-01-02": {"1. open": "-1", "2. high": "1", "3. low": "1", "4. close": "1"}}}`,
			field: FieldOpen,
		},
		{
			name:  "not a number",
			body:  `{"Meta Data": {"1. Information": "i", "2. Symbol": "X", "5. Time Zone": "UTC"}, "Time Series (Daily)": {"2024-01-02": {"1. open": "n/a", "2. high": "1", "3. low": "1", "4. close": "1"}}}`,
			field: FieldOpen,
		},
	}

	mapper := NewMapper(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mapper.MapHistory(decode(t, tt.body))
			require.Error(t, err)
			assert.Equal(t, tt.field, schemaErr(t, err).Field)
		})
	}
}

func TestMissingFieldListsCandidates(t *testing.T) {
	_, err := NewMapper(nil).MapHistory(decode(t, `{"Meta Data": {"2. Symbol": "X"}}`))
	e := schemaErr(t, err)
	assert.Equal(t, FieldInformation, e.Field)
	assert.Equal(t, []string{"1. Information", "Information"}, e.Candidates)
	assert.Contains(t, e.Error(), "1. Information")
}

func TestHighBelowLowPassesThrough(t *testing.T) {
	body := `{"Meta Data": {"1. Information": "i", "2. Symbol": "X", "5. Time Zone": "UTC"}, "Time Series (Daily)": {"2024-01-02": {"1. open": "5", "2. high": "1", "3. low": "9", "4. close": "5"}}}`
	history, err := NewMapper(nil).MapHistory(decode(t, body))
	require.NoError(t, err)
	assert.True(t, history.Series[0].High.LessThan(history.Series[0].Low))
}

func TestCustomAliasTable(t *testing.T) {
	table := AliasTable{}
	for field, keys := range Aliases {
		table[field] = keys
	}
	table[FieldSeries] = append([]string{"Time Series (60min)"}, Aliases[FieldSeries]...)

	body := `{"Meta Data": {"1. Information": "i", "2. Symbol": "X", "6. Time Zone": "US/Eastern"}, "Time Series (60min)": {"2024-01-02 16:00:00": {"1. open": "1", "2. high": "2", "3. low": "1", "4. close": "2"}}}`
	history, err := NewMapper(table).MapHistory(decode(t, body))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", history.Series[0].Date.String())

	_, err = NewMapper(nil).MapHistory(decode(t, body))
	assert.Error(t, err)
}

func TestMapSearch(t *testing.T) {
	body := `{"bestMatches": [
		{"1. symbol": "TSCO.LON", "2. name": "Tesco PLC", "3. type": "Equity", "4. region": "United Kingdom", "8. currency": "GBX", "9. matchScore": "0.7273"},
		{"1. symbol": "TSCDF", "2. name": "Tesco plc", "3. type": "Equity", "4. region": "United States", "8. currency": "USD", "9. matchScore": "0.7143"}
	]}`

	results, err := NewMapper(nil).MapSearch(decode(t, body))
	require.NoError(t, err)
	assert.Equal(t, []model.SearchResult{
		{Name: "Tesco PLC", Symbol: "TSCO.LON", AssetType: "Equity", Currency: "GBX"},
		{Name: "Tesco plc", Symbol: "TSCDF", AssetType: "Equity", Currency: "USD"},
	}, results)
}

func TestMapSearchEdgeCases(t *testing.T) {
	mapper := NewMapper(nil)

	results, err := mapper.MapSearch(decode(t, `{"bestMatches": []}`))
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	_, err = mapper.MapSearch(decode(t, `{"matches": []}`))
	assert.Equal(t, FieldMatches, schemaErr(t, err).Field)

	_, err = mapper.MapSearch(decode(t, `{"bestMatches": [{"1. symbol": "A", "2. name": "A", "3. type": "Equity"}]}`))
	assert.Equal(t, FieldMatchCurrency, schemaErr(t, err).Field)

	_, err = mapper.MapSearch(decode(t, `{"bestMatches": [{"1. symbol": 7, "2. name": "A", "3. type": "Equity", "8. currency": "USD"}]}`))
	assert.Equal(t, FieldMatchSymbol, schemaErr(t, err).Field)
}
