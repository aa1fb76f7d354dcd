package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yourorg/quote-vault/internal/model"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRedis struct {
	data   map[string][]byte
	ttl    map[string]time.Duration
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string][]byte{}, ttl: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = value.([]byte)
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func sampleHistory() *model.AssetHistory {
	return &model.AssetHistory{
		Meta: model.HistoryMeta{Information: "Daily", AssetSymbol: "IBM", TimeZone: "US/Eastern"},
		Series: []model.HistoryPoint{{
			Date: model.NewDate(2024, time.May, 2),
			OHLC: model.OHLC{
				Open:  decimal.RequireFromString("166.66"),
				High:  decimal.RequireFromString("166.94"),
				Low:   decimal.RequireFromString("164.20"),
				Close: decimal.RequireFromString("165.69"),
			},
		}},
	}
}

func TestKeyIsStable(t *testing.T) {
	a := Key("TIME_SERIES_DAILY", "IBM", "compact")
	assert.Equal(t, a, Key("TIME_SERIES_DAILY", "IBM", "compact"))
	assert.NotEqual(t, a, Key("TIME_SERIES_DAILY", "IBMcompact"))
	assert.True(t, strings.HasPrefix(a, keyPrefix))
}

func TestRedisHistoryCacheRoundTrip(t *testing.T) {
	fake := newFakeRedis()
	c := NewRedisHistoryCache(fake, time.Hour, zap.NewNop())
	key := Key("TIME_SERIES_DAILY", "IBM")

	_, hit, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(context.Background(), key, sampleHistory()))
	assert.Equal(t, time.Hour, fake.ttl[key])

	got, hit, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "IBM", got.Meta.AssetSymbol)
	require.Len(t, got.Series, 1)
	assert.Equal(t, "2024-05-02", got.Series[0].Date.String())
	assert.True(t, decimal.RequireFromString("164.2").Equal(got.Series[0].Low))
}

func TestRedisHistoryCacheErrors(t *testing.T) {
	fake := newFakeRedis()
	fake.data["bad"] = []byte("{not json")
	c := NewRedisHistoryCache(fake, time.Hour, zap.NewNop())

	_, hit, err := c.Get(context.Background(), "bad")
	require.NoError(t, err)
	assert.False(t, hit)

	fake.getErr = errors.New("connection refused")
	_, _, err = c.Get(context.Background(), "any")
	assert.Error(t, err)
}

func TestNopHistoryCache(t *testing.T) {
	var c HistoryCache = NopHistoryCache{}
	require.NoError(t, c.Set(context.Background(), "k", sampleHistory()))
	_, hit, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, hit)
}
