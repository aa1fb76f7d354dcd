// Package schema normalizes the raw JSON shapes returned by Alpha Vantage.
//
// Each logical field resolves through an ordered list of candidate keys; the
// first key present in the payload wins. New response variants are supported
// by extending the alias table, never by branching in the resolver.
package schema

import (
	"fmt"
	"strings"
)

// Field names a logical value of a normalized record
type Field string

const (
	FieldMeta        Field = "meta"
	FieldInformation Field = "information"
	FieldAssetSymbol Field = "asset_symbol"
	FieldCurrency    Field = "currency"
	FieldTimeZone    Field = "timezone"
	FieldSeries      Field = "series"
	FieldOpen        Field = "open"
	FieldHigh        Field = "high"
	FieldLow         Field = "low"
	FieldClose       Field = "close"

	FieldMatches       Field = "matches"
	FieldMatchName     Field = "match.name"
	FieldMatchSymbol   Field = "match.symbol"
	FieldMatchType     Field = "match.type"
	FieldMatchCurrency Field = "match.currency"
)

// AliasTable maps a logical field to its candidate keys in priority order
type AliasTable map[Field][]string

// Aliases is the table for every response variant handled so far
var Aliases = AliasTable{
	FieldMeta:        {"Meta Data"},
	FieldInformation: {"1. Information", "Information"},
	FieldAssetSymbol: {"2. Symbol", "2. From Symbol", "2. Digital Currency Code", "Symbol", "symbol"},
	FieldCurrency:    {"3. To Symbol", "4. Market Code", "Currency", "currency"},
	FieldTimeZone:    {"5. Time Zone", "6. Time Zone", "7. Time Zone", "4. Time Zone", "Time Zone"},
	FieldSeries: {
		"Time Series (Daily)",
		"Weekly Time Series",
		"Monthly Time Series",
		"Weekly Adjusted Time Series",
		"Monthly Adjusted Time Series",
		"Time Series FX (Daily)",
		"Time Series FX (Weekly)",
		"Time Series FX (Monthly)",
		"Time Series (Digital Currency Daily)",
		"Time Series (Digital Currency Weekly)",
		"Time Series (Digital Currency Monthly)",
	},
	FieldOpen:  {"1. open", "open"},
	FieldHigh:  {"2. high", "high"},
	FieldLow:   {"3. low", "low"},
	FieldClose: {"4. close", "close"},

	FieldMatches:       {"bestMatches"},
	FieldMatchName:     {"2. name", "name"},
	FieldMatchSymbol:   {"1. symbol", "symbol"},
	FieldMatchType:     {"3. type", "type"},
	FieldMatchCurrency: {"8. currency", "currency"},
}

// marketColumns are the older digital currency price columns, quoted in the
// market currency. The USD columns next to them are never read.
var marketColumns = map[Field]string{
	FieldOpen:  "1a. open (%s)",
	FieldHigh:  "2a. high (%s)",
	FieldLow:   "3a. low (%s)",
	FieldClose: "4a. close (%s)",
}

// forMarket returns t extended with the market currency price columns
func (t AliasTable) forMarket(market string) AliasTable {
	market = strings.ToUpper(strings.TrimSpace(market))
	if market == "" {
		return t
	}
	ext := make(AliasTable, len(t))
	for field, keys := range t {
		ext[field] = keys
	}
	for field, column := range marketColumns {
		keys := make([]string, 0, len(t[field])+1)
		keys = append(keys, t[field]...)
		ext[field] = append(keys, fmt.Sprintf(column, market))
	}
	return ext
}

// Candidates returns the keys tried for field
func (t AliasTable) Candidates(field Field) []string {
	return t[field]
}

// resolve returns the value under the first candidate key present in obj
func (t AliasTable) resolve(obj map[string]any, field Field) (any, string, bool) {
	for _, key := range t[field] {
		if v, ok := obj[key]; ok {
			return v, key, true
		}
	}
	return nil, "", false
}
