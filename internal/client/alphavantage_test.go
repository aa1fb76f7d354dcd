package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yourorg/quote-vault/internal/model"
	"github.com/yourorg/quote-vault/internal/quota"
	"github.com/yourorg/quote-vault/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var clientNow = time.Date(2024, time.May, 2, 9, 0, 0, 0, time.UTC)

const searchBody = `{"bestMatches": [
	{"1. symbol": "TSCO.LON", "2. name": "Tesco PLC", "3. type": "Equity", "8. currency": "GBX"}
]}`

const historyBody = `{
	"Meta Data": {"1. Information": "Daily Prices", "2. Symbol": "IBM", "5. Time Zone": "US/Eastern"},
	"Time Series (Daily)": {
		"2024-05-01": {"1. open": "165.69", "2. high": "166.27", "3. low": "164.30", "4. close": "164.43"},
		"2024-05-02": {"1. open": "166.66", "2. high": "166.94", "3. low": "164.20", "4. close": "165.69"}
	}
}`

type apiStub struct {
	server *httptest.Server
	hits   atomic.Int32
	last   atomic.Value
}

func newAPIStub(t *testing.T, status int, body string) *apiStub {
	t.Helper()
	stub := &apiStub{}
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.hits.Add(1)
		stub.last.Store(r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(stub.server.Close)
	return stub
}

func newLedger(remaining int) (*quota.Ledger, *quota.MemoryBackend) {
	backend := quota.NewMemoryBackend(&model.QuotaState{
		Limit:     25,
		Remaining: remaining,
		LastReset: model.DateOf(clientNow),
	})
	ledger := quota.NewLedger(backend, 25, quota.WithClock(func() time.Time { return clientNow }))
	return ledger, backend
}

func remaining(t *testing.T, b *quota.MemoryBackend) int {
	t.Helper()
	state, _, err := b.Load(context.Background())
	require.NoError(t, err)
	return state.Remaining
}

func newTestClient(baseURL string, ledger QuotaLedger) *AlphaVantageClient {
	return NewAlphaVantageClient(Config{BaseURL: baseURL, Timeout: 2 * time.Second}, ledger, zap.NewNop())
}

var ibmDaily = StockHistoryRequest{Func: FunctionStockDaily, Symbol: "IBM", OutputSize: OutputSizeCompact}

func TestFetchHistory(t *testing.T) {
	stub := newAPIStub(t, http.StatusOK, historyBody)
	ledger, backend := newLedger(20)

	result, err := newTestClient(stub.server.URL, ledger).Fetch(context.Background(), ibmDaily, Credentials{APIKey: "demo"})
	require.NoError(t, err)

	assert.Equal(t, KindStockHistory, result.Kind)
	require.NotNil(t, result.History)
	assert.Equal(t, "IBM", result.History.Meta.AssetSymbol)
	require.Len(t, result.History.Series, 2)
	assert.Equal(t, "2024-05-01", result.History.Series[0].Date.String())
	assert.Nil(t, result.Matches)

	assert.Equal(t, 19, remaining(t, backend))

	query := stub.last.Load().(url.Values)
	assert.Equal(t, []string{"TIME_SERIES_DAILY"}, query["function"])
	assert.Equal(t, []string{"IBM"}, query["symbol"])
	assert.Equal(t, []string{"compact"}, query["outputsize"])
	assert.Equal(t, []string{"demo"}, query["apikey"])
}

func TestFetchSearch(t *testing.T) {
	stub := newAPIStub(t, http.StatusOK, searchBody)
	ledger, _ := newLedger(25)

	result, err := newTestClient(stub.server.URL, ledger).Fetch(context.Background(), SymbolSearchRequest{Keywords: "tesco"}, Credentials{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, KindSymbolSearch, result.Kind)
	assert.Nil(t, result.History)
	assert.Equal(t, []model.SearchResult{{Name: "Tesco PLC", Symbol: "TSCO.LON", AssetType: "Equity", Currency: "GBX"}}, result.Matches)
}

func TestFetchBusinessErrorStillSpendsQuota(t *testing.T) {
	stub := newAPIStub(t, http.StatusOK, `{"Error Message": "Invalid API call"}`)
	ledger, backend := newLedger(25)

	_, err := newTestClient(stub.server.URL, ledger).Fetch(context.Background(), ibmDaily, Credentials{APIKey: "k"})

	var bizErr *BusinessError
	require.True(t, errors.As(err, &bizErr))
	assert.Equal(t, "Invalid API call", bizErr.Message)
	assert.Equal(t, 24, remaining(t, backend))
}

func TestFetchRateLimitNotice(t *testing.T) {
	stub := newAPIStub(t, http.StatusOK, `{"Information": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`)
	ledger, backend := newLedger(3)

	_, err := newTestClient(stub.server.URL, ledger).Fetch(context.Background(), SymbolSearchRequest{Keywords: "x"}, Credentials{})
	var bizErr *BusinessError
	require.True(t, errors.As(err, &bizErr))
	assert.Contains(t, bizErr.Message, "rate limit")
	assert.Equal(t, 2, remaining(t, backend))
}

func TestFetchExhaustedSendsNothing(t *testing.T) {
	stub := newAPIStub(t, http.StatusOK, historyBody)
	ledger, backend := newLedger(0)

	_, err := newTestClient(stub.server.URL, ledger).Fetch(context.Background(), ibmDaily, Credentials{APIKey: "k"})
	assert.ErrorIs(t, err, quota.ErrQuotaExhausted)
	assert.Equal(t, int32(0), stub.hits.Load())
	assert.Equal(t, 0, remaining(t, backend))
}

func TestFetchTransportErrorKeepsQuota(t *testing.T) {
	stub := newAPIStub(t, http.StatusOK, historyBody)
	baseURL := stub.server.URL
	stub.server.Close()

	ledger, backend := newLedger(10)
	_, err := newTestClient(baseURL, ledger).Fetch(context.Background(), ibmDaily, Credentials{APIKey: "secret-key"})

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.NotContains(t, err.Error(), "secret-key")
	assert.Equal(t, 10, remaining(t, backend))
}

func TestFetchHTTPError(t *testing.T) {
	stub := newAPIStub(t, http.StatusServiceUnavailable, "upstream down")
	ledger, backend := newLedger(10)

	_, err := newTestClient(stub.server.URL, ledger).Fetch(context.Background(), ibmDaily, Credentials{})

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	assert.Equal(t, "upstream down", httpErr.Body)
	assert.Equal(t, 9, remaining(t, backend))
}

func TestFetchMalformedBody(t *testing.T) {
	for _, body := range []string{`<html>oops</html>`, `[1,2,3]`, `{"Meta Data": `} {
		stub := newAPIStub(t, http.StatusOK, body)
		ledger, backend := newLedger(10)

		_, err := newTestClient(stub.server.URL, ledger).Fetch(context.Background(), ibmDaily, Credentials{})
		var malformed *MalformedResponseError
		assert.True(t, errors.As(err, &malformed), body)
		assert.Equal(t, 9, remaining(t, backend))
	}
}

func TestFetchSchemaError(t *testing.T) {
	stub := newAPIStub(t, http.StatusOK, `{"Meta Data": {"2. Symbol": "IBM"}, "Time Series (Daily)": {}}`)
	ledger, _ := newLedger(10)

	_, err := newTestClient(stub.server.URL, ledger).Fetch(context.Background(), ibmDaily, Credentials{})
	var schemaErr *schema.SchemaValidationError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestFetchInvalidRequest(t *testing.T) {
	stub := newAPIStub(t, http.StatusOK, historyBody)
	ledger, backend := newLedger(10)

	_, err := newTestClient(stub.server.URL, ledger).Fetch(context.Background(), StockHistoryRequest{Func: FunctionStockDaily}, Credentials{})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, int32(0), stub.hits.Load())
	assert.Equal(t, 10, remaining(t, backend))
}

type brokenLedger struct{ err error }

func (l brokenLedger) Peek(ctx context.Context) (model.QuotaState, error) {
	return model.QuotaState{Limit: 25, Remaining: 25}, nil
}

func (l brokenLedger) CommitDecrement(ctx context.Context) (model.QuotaState, error) {
	return model.QuotaState{}, l.err
}

func TestFetchSurfacesCommitFailure(t *testing.T) {
	stub := newAPIStub(t, http.StatusOK, historyBody)
	boom := errors.New("ledger file locked")

	_, err := newTestClient(stub.server.URL, brokenLedger{err: boom}).Fetch(context.Background(), ibmDaily, Credentials{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), stub.hits.Load())
}

func TestFetchConcurrentCallersCannotOverspend(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte(historyBody))
	}))
	t.Cleanup(server.Close)

	ledger, backend := newLedger(1)
	c := newTestClient(server.URL, ledger)

	const callers = 3
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Fetch(context.Background(), ibmDaily, Credentials{APIKey: "k"})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 0, remaining(t, backend))

	var ok, exhausted int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, quota.ErrQuotaExhausted):
			exhausted++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, exhausted)
}

func TestFetchWaitingCallerHonorsContext(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		_, _ = w.Write([]byte(historyBody))
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	ledger, _ := newLedger(10)
	c := newTestClient(server.URL, ledger)

	go func() { _, _ = c.Fetch(context.Background(), ibmDaily, Credentials{}) }()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Fetch(ctx, ibmDaily, Credentials{})

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
