package repository

import "errors"

// Lookup failures. Callers match them with errors.Is.
var (
	ErrAssetNotFound      = errors.New("asset not found")
	ErrCurrencyNotFound   = errors.New("currency not found")
	ErrAssetClassNotFound = errors.New("asset class not found")
	ErrTimeSeriesNotFound = errors.New("time series point not found")
)
