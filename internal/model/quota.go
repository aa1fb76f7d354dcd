package model

// DefaultDailyLimit is the free-tier allowance of the quotes API
const DefaultDailyLimit = 25

// QuotaStatus is the lifecycle position of a QuotaState
type QuotaStatus string

const (
	QuotaFresh     QuotaStatus = "fresh"
	QuotaActive    QuotaStatus = "active"
	QuotaExhausted QuotaStatus = "exhausted"
)

// QuotaState is the persisted daily call allowance.
// The JSON shape is the ledger file format: {"limit":25,"remaining":20,"last_update":"2024-05-01"}
type QuotaState struct {
	Limit     int  `json:"limit" db:"daily_limit"`
	Remaining int  `json:"remaining" db:"remaining"`
	LastReset Date `json:"last_update" db:"last_update"`
}

// FreshQuota returns a full allowance for the given day
func FreshQuota(limit int, today Date) QuotaState {
	return QuotaState{Limit: limit, Remaining: limit, LastReset: today}
}

// Status reports fresh, active or exhausted
func (q QuotaState) Status() QuotaStatus {
	switch {
	case q.Remaining <= 0:
		return QuotaExhausted
	case q.Remaining == q.Limit:
		return QuotaFresh
	default:
		return QuotaActive
	}
}

// Used is the number of calls spent since the last reset
func (q QuotaState) Used() int {
	return q.Limit - q.Remaining
}
