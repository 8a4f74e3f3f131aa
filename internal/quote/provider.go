// Package quote provides quote provider clients and the quote cache.
package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"stockwatch/internal/errors"
	"stockwatch/internal/models"
	"stockwatch/pkg/utils"
)

// Provider defines the interface for a quote data source.
type Provider interface {
	// Fetch returns the current quote for a symbol.
	Fetch(ctx context.Context, symbol string) (models.Quote, error)
	// Validate checks that a symbol is resolvable and returns its display name.
	Validate(ctx context.Context, symbol string) (string, error)
}

// YahooClient fetches quotes from the Yahoo Finance chart API.
type YahooClient struct {
	baseURL string
	client  *http.Client
	retry   utils.RetryConfig
	logger  zerolog.Logger
}

// NewYahooClient creates a new Yahoo Finance quote client. Transient request
// failures are retried with backoff; a ticker the provider does not know is
// not retried.
func NewYahooClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *YahooClient {
	retry := utils.DefaultRetryConfig()
	retry.ShouldRetry = func(err error) bool {
		return !errors.Is(err, errors.ErrInvalidSymbol)
	}
	return &YahooClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		retry:   retry,
		logger:  logger.With().Str("component", "yahoo").Logger(),
	}
}

// chartResponse is the top-level container of the chart API payload.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta chartMeta `json:"meta"`
}

type chartMeta struct {
	Symbol               string  `json:"symbol"`
	LongName             string  `json:"longName"`
	ShortName            string  `json:"shortName"`
	RegularMarketPrice   float64 `json:"regularMarketPrice"`
	RegularMarketOpen    float64 `json:"regularMarketOpen"`
	ChartPreviousClose   float64 `json:"chartPreviousClose"`
	PreviousClose        float64 `json:"previousClose"`
	RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
	RegularMarketVolume  int64   `json:"regularMarketVolume"`
}

// Fetch returns the current quote for a symbol.
func (c *YahooClient) Fetch(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = models.NormalizeSymbol(symbol)
	start := time.Now()

	meta, err := utils.RetryWithResult(ctx, c.retry, func() (*chartMeta, error) {
		return c.fetchMeta(ctx, symbol)
	})
	if err != nil {
		c.logger.Debug().Err(err).Str("symbol", symbol).Dur("duration", time.Since(start)).
			Msg("Quote fetch failed")
		return models.Quote{}, err
	}

	prevClose := meta.PreviousClose
	if prevClose == 0 {
		prevClose = meta.ChartPreviousClose
	}

	quote := models.Quote{
		Symbol:        symbol,
		Price:         meta.RegularMarketPrice,
		PreviousClose: prevClose,
		Open:          meta.RegularMarketOpen,
		High:          meta.RegularMarketDayHigh,
		Low:           meta.RegularMarketDayLow,
		Volume:        meta.RegularMarketVolume,
		FetchedAt:     time.Now().UTC(),
	}

	c.logger.Debug().Str("symbol", symbol).Float64("price", quote.Price).
		Dur("duration", time.Since(start)).Msg("Quote fetched")
	return quote, nil
}

// Validate checks that a symbol resolves to price data and returns the
// issuer's display name when the provider knows one.
func (c *YahooClient) Validate(ctx context.Context, symbol string) (string, error) {
	symbol = models.NormalizeSymbol(symbol)
	meta, err := c.fetchMeta(ctx, symbol)
	if err != nil {
		return "", err
	}
	if meta.LongName != "" {
		return meta.LongName, nil
	}
	if meta.ShortName != "" {
		return meta.ShortName, nil
	}
	return symbol, nil
}

func (c *YahooClient) fetchMeta(ctx context.Context, symbol string) (*chartMeta, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=1d",
		c.baseURL, url.PathEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.NewFetchError("yahoo", symbol, err)
	}
	req.Header.Set("User-Agent", "stockwatch/0.1")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.NewFetchError("yahoo", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.NewFetchError("yahoo", symbol, errors.ErrInvalidSymbol)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewFetchError("yahoo", symbol,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.NewFetchError("yahoo", symbol, err)
	}
	if payload.Chart.Error != nil {
		return nil, errors.NewFetchError("yahoo", symbol,
			fmt.Errorf("%s: %s", payload.Chart.Error.Code, payload.Chart.Error.Description))
	}
	if len(payload.Chart.Result) == 0 {
		return nil, errors.NewFetchError("yahoo", symbol, errors.ErrInvalidSymbol)
	}

	meta := payload.Chart.Result[0].Meta
	if meta.RegularMarketPrice == 0 {
		return nil, errors.NewFetchError("yahoo", symbol, errors.ErrInvalidSymbol)
	}
	return &meta, nil
}
