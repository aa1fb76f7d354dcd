package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateOfDropsTimeOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	d := DateOf(time.Date(2024, 3, 1, 23, 59, 0, 0, loc))

	assert.Equal(t, "2024-03-01", d.String())
	assert.True(t, d.Equal(NewDate(2024, time.March, 1)))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2023-12-31")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2023, time.December, 31), d)
	assert.Equal(t, NewDate(2024, time.January, 1), d.AddDays(1))

	_, err = ParseDate("31.12.2023")
	assert.Error(t, err)
}

func TestDateJSON(t *testing.T) {
	var state QuotaState
	require.NoError(t, json.Unmarshal([]byte(`{"limit":25,"remaining":20,"last_update":"2024-05-01"}`), &state))
	assert.Equal(t, 25, state.Limit)
	assert.Equal(t, 20, state.Remaining)
	assert.Equal(t, NewDate(2024, time.May, 1), state.LastReset)

	out, err := json.Marshal(state)
	require.NoError(t, err)
	assert.JSONEq(t, `{"limit":25,"remaining":20,"last_update":"2024-05-01"}`, string(out))
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-02-29", d.String())

	require.NoError(t, d.Scan([]byte("2024-01-02T00:00:00Z")))
	assert.Equal(t, "2024-01-02", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))
}

func TestQuotaStatus(t *testing.T) {
	today := NewDate(2024, time.May, 1)

	assert.Equal(t, QuotaFresh, FreshQuota(25, today).Status())
	assert.Equal(t, QuotaActive, QuotaState{Limit: 25, Remaining: 3, LastReset: today}.Status())
	assert.Equal(t, QuotaExhausted, QuotaState{Limit: 25, Remaining: 0, LastReset: today}.Status())
	assert.Equal(t, 22, QuotaState{Limit: 25, Remaining: 3}.Used())
}
