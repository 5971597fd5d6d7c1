package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"StockCast/internal/domain/models"
	pkghttp "StockCast/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartOK = `{"chart":{"result":[{
  "timestamp":[1700000000,1700086400,1700172800],
  "indicators":{
    "quote":[{"open":[10.0,null,12.0],"high":[11,11,13],"low":[9,9,11],"close":[10.5,11.0,12.5],"volume":[100,200,null]}],
    "adjclose":[{"adjclose":[10.4,10.9,null]}]
  }}],"error":null}}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(pkghttp.NewClient(pkghttp.WithTimeout(2*time.Second)), WithBaseURL(srv.URL))
}

func TestHistoryParsesBars(t *testing.T) {
	var gotPath, gotInterval, gotEvents string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotInterval = r.URL.Query().Get("interval")
		gotEvents = r.URL.Query().Get("events")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chartOK))
	})

	end := time.Unix(1700200000, 0)
	quotes, err := c.History(context.Background(), "AAPL", end.Add(-72*time.Hour), end, "")
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/AAPL", gotPath)
	assert.Equal(t, "1d", gotInterval)
	assert.Equal(t, "history", gotEvents)

	require.Len(t, quotes, 2, "the bar with a null open is skipped")
	assert.Equal(t, 10.0, quotes[0].Open)
	assert.Equal(t, 10.4, quotes[0].AdjClose)
	assert.Equal(t, int64(100), quotes[0].Volume)
	assert.Equal(t, 12.5, quotes[1].AdjClose, "missing adjclose falls back to close")
	assert.Zero(t, quotes[1].Volume)
	assert.True(t, quotes[0].Time.Before(quotes[1].Time))
}

func TestHistoryRejectsBadSymbolWithoutIO(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := c.History(context.Background(), "aapl1", time.Now().Add(-time.Hour), time.Now(), "1d")
	assert.ErrorIs(t, err, models.ErrInvalidSymbol)
	assert.False(t, called)
}

func TestHistoryChartError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	})

	_, err := c.History(context.Background(), "ZZZZZ", time.Now().Add(-time.Hour), time.Now(), "1d")
	require.ErrorIs(t, err, models.ErrUpstream)
	assert.Contains(t, err.Error(), "symbol may be delisted")
}

func TestHistoryServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oops", http.StatusInternalServerError)
	})

	_, err := c.History(context.Background(), "MSFT", time.Now().Add(-time.Hour), time.Now(), "1d")
	require.ErrorIs(t, err, models.ErrUpstream)

	var se *pkghttp.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
}

func TestHistoryEmptyResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
	})

	_, err := c.History(context.Background(), "IBM", time.Now().Add(-time.Hour), time.Now(), "1wk")
	assert.ErrorIs(t, err, models.ErrNoData)
}
