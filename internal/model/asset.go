package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetType is the kind of instrument an asset is
type AssetType string

const (
	AssetTypeStock  AssetType = "stock"
	AssetTypeForex  AssetType = "forex"
	AssetTypeCrypto AssetType = "crypto"
)

// Interval is the sampling period of a history request
type Interval string

const (
	IntervalDaily   Interval = "Daily"
	IntervalWeekly  Interval = "Weekly"
	IntervalMonthly Interval = "Monthly"
)

// AssetClass represents a catalogue entry for an asset type
type AssetClass struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Currency represents a catalogue entry for a quote currency
type Currency struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Asset represents a persisted instrument; Symbol is its natural key
type Asset struct {
	ID         int       `json:"id" db:"id"`
	Identifier string    `json:"identifier" db:"identifier"`
	Symbol     string    `json:"symbol" db:"symbol"`
	AssetType  string    `json:"asset_type" db:"asset_type"`
	Currency   string    `json:"currency" db:"currency"`
	Name       string    `json:"name" db:"name"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// AssetCreate carries the attributes used when an asset does not exist yet
type AssetCreate struct {
	Identifier string `json:"identifier" validate:"required"`
	Symbol     string `json:"symbol" validate:"required"`
	AssetType  string `json:"asset_type" validate:"required"`
	Currency   string `json:"currency"`
	Name       string `json:"name" validate:"required"`
}

// TimeSeriesPoint is a persisted OHLC fact owned by an asset.
// (AssetID, Date) is unique.
type TimeSeriesPoint struct {
	ID        int             `json:"id" db:"id"`
	AssetID   int             `json:"asset_id" db:"asset_id"`
	Date      Date            `json:"date" db:"date"`
	Open      decimal.Decimal `json:"open" db:"open"`
	High      decimal.Decimal `json:"high" db:"high"`
	Low       decimal.Decimal `json:"low" db:"low"`
	Close     decimal.Decimal `json:"close" db:"close"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// TimeSeriesCreate is the input for a new time series point
type TimeSeriesCreate struct {
	Date  Date            `json:"date"`
	Open  decimal.Decimal `json:"open"`
	High  decimal.Decimal `json:"high"`
	Low   decimal.Decimal `json:"low"`
	Close decimal.Decimal `json:"close"`
}

// PointsFromHistory converts a normalized series into insert inputs, keeping order
func PointsFromHistory(series []HistoryPoint) []TimeSeriesCreate {
	points := make([]TimeSeriesCreate, 0, len(series))
	for _, p := range series {
		points = append(points, TimeSeriesCreate{
			Date:  p.Date,
			Open:  p.Open,
			High:  p.High,
			Low:   p.Low,
			Close: p.Close,
		})
	}
	return points
}
