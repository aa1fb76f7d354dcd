package model

import (
	"github.com/shopspring/decimal"
)

// OHLC holds one period's prices exactly as the source reported them.
// No cross-field validation happens here; high < low passes through.
type OHLC struct {
	Open  decimal.Decimal `json:"open"`
	High  decimal.Decimal `json:"high"`
	Low   decimal.Decimal `json:"low"`
	Close decimal.Decimal `json:"close"`
}

// HistoryMeta is the normalized metadata block of a history response
type HistoryMeta struct {
	Information string `json:"information"`
	AssetSymbol string `json:"asset_symbol"`
	Currency    string `json:"currency"`
	TimeZone    string `json:"timezone"`
}

// HistoryPoint is a single dated OHLC record
type HistoryPoint struct {
	Date Date `json:"date"`
	OHLC
}

// AssetHistory is the normalized result of a stock, forex or crypto history request.
// Series is ordered by date ascending and holds at most one point per date.
type AssetHistory struct {
	Meta   HistoryMeta    `json:"meta"`
	Series []HistoryPoint `json:"series"`
}

// Latest returns the most recent point, if any
func (h *AssetHistory) Latest() (HistoryPoint, bool) {
	if h == nil || len(h.Series) == 0 {
		return HistoryPoint{}, false
	}
	return h.Series[len(h.Series)-1], true
}

// SearchResult is a normalized symbol search match.
// (Symbol, AssetType, Currency) identifies an instrument.
type SearchResult struct {
	Name      string `json:"name" db:"name"`
	Symbol    string `json:"symbol" db:"symbol"`
	AssetType string `json:"asset_type" db:"asset_type"`
	Currency  string `json:"currency" db:"currency"`
}
