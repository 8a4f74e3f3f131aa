package quote

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/errors"
)

func chartPayload(symbol string, price, open, prevClose, high, low float64, volume int64) string {
	return fmt.Sprintf(`{"chart":{"result":[{"meta":{
		"symbol":%q,"longName":"Test Issuer Inc.",
		"regularMarketPrice":%g,"regularMarketOpen":%g,"previousClose":%g,
		"regularMarketDayHigh":%g,"regularMarketDayLow":%g,"regularMarketVolume":%d
	}}],"error":null}}`, symbol, price, open, prevClose, high, low, volume)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *YahooClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewYahooClient(srv.URL, 5*time.Second, zerolog.Nop())
}

func TestFetch_ParsesQuote(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v8/finance/chart/AAPL")
		fmt.Fprint(w, chartPayload("AAPL", 157.50, 151.20, 150.00, 158.10, 149.80, 52000000))
	})

	q, err := client.Fetch(context.Background(), "aapl")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, 157.50, q.Price)
	assert.Equal(t, 151.20, q.Open)
	assert.Equal(t, 150.00, q.PreviousClose)
	assert.Equal(t, 158.10, q.High)
	assert.Equal(t, 149.80, q.Low)
	assert.Equal(t, int64(52000000), q.Volume)
	assert.False(t, q.FetchedAt.IsZero())
}

func TestFetch_ChartPreviousCloseFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{
			"symbol":"VOO","regularMarketPrice":520.0,"chartPreviousClose":500.0
		}}],"error":null}}`)
	})

	q, err := client.Fetch(context.Background(), "VOO")
	require.NoError(t, err)
	assert.Equal(t, 500.0, q.PreviousClose)
}

func TestFetch_UnknownSymbol(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.Fetch(context.Background(), "NOPE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidSymbol))
}

func TestValidate_ReturnsDisplayName(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartPayload("AAPL", 157.50, 151.20, 150.00, 158.10, 149.80, 52000000))
	})

	name, err := client.Validate(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Test Issuer Inc.", name)
}
