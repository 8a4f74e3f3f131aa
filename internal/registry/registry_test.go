package registry

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/errors"
	"stockwatch/internal/models"
	"stockwatch/internal/store"
)

// validatingProvider knows a fixed universe of tickers.
type validatingProvider struct {
	known map[string]string
}

func (p *validatingProvider) Fetch(_ context.Context, symbol string) (models.Quote, error) {
	if _, ok := p.known[symbol]; !ok {
		return models.Quote{}, errors.NewFetchError("fake", symbol, errors.ErrInvalidSymbol)
	}
	return models.Quote{Symbol: symbol, Price: 100, PreviousClose: 100}, nil
}

func (p *validatingProvider) Validate(_ context.Context, symbol string) (string, error) {
	name, ok := p.known[symbol]
	if !ok {
		return "", errors.NewFetchError("fake", symbol, errors.ErrInvalidSymbol)
	}
	return name, nil
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "registry_test.db")
	st, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	provider := &validatingProvider{known: map[string]string{
		"VOO":  "Vanguard S&P 500 ETF",
		"AAPL": "Apple Inc.",
		"TSLA": "Tesla, Inc.",
	}}
	return New(st, provider, zerolog.Nop())
}

func TestAdd_ValidatesAgainstProvider(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	ts, err := reg.Add(ctx, AddRequest{Symbol: "aapl"})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", ts.Symbol, "symbol is normalized to uppercase")
	assert.Equal(t, "Apple Inc.", ts.Name, "name comes from the provider")
	assert.True(t, ts.IsActive)
	assert.False(t, ts.HasOverride())

	_, err = reg.Add(ctx, AddRequest{Symbol: "NOPE"})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidSymbol))
}

func TestAdd_RejectsDuplicates(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Add(ctx, AddRequest{Symbol: "VOO"})
	require.NoError(t, err)

	// Case-insensitive duplicate check.
	_, err = reg.Add(ctx, AddRequest{Symbol: "voo"})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrDuplicateSymbol))
}

func TestAdd_ThresholdBounds(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	for _, bad := range []float64{-1.0, 50.01, 100} {
		_, err := reg.Add(ctx, AddRequest{Symbol: "VOO", AlertThreshold: bad})
		require.Error(t, err, "threshold %v must be rejected", bad)
		var verr *errors.ValidationError
		assert.True(t, stderrors.As(err, &verr))
	}

	ts, err := reg.Add(ctx, AddRequest{Symbol: "VOO", AlertThreshold: 50.0})
	require.NoError(t, err)
	assert.True(t, ts.HasOverride())
}

func TestRemove_Idempotent(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	ts, err := reg.Add(ctx, AddRequest{Symbol: "VOO"})
	require.NoError(t, err)

	removed, err := reg.Remove(ctx, ts.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = reg.Remove(ctx, ts.ID)
	require.NoError(t, err)
	assert.False(t, removed, "second removal reports false, not an error")
}

func TestUpdate_PartialFields(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	ts, err := reg.Add(ctx, AddRequest{Symbol: "TSLA", AlertThreshold: 2.0})
	require.NoError(t, err)

	inactive := false
	updated, err := reg.Update(ctx, ts.ID, UpdateRequest{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, 2.0, updated.AlertThreshold, "untouched fields keep their value")

	// Threshold of zero clears the override.
	zero := 0.0
	updated, err = reg.Update(ctx, ts.ID, UpdateRequest{AlertThreshold: &zero})
	require.NoError(t, err)
	assert.False(t, updated.HasOverride())

	_, err = reg.Update(ctx, 9999, UpdateRequest{IsActive: &inactive})
	assert.True(t, stderrors.Is(err, errors.ErrSymbolNotFound))
}

func TestListActive_FiltersInactive(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	a, err := reg.Add(ctx, AddRequest{Symbol: "VOO"})
	require.NoError(t, err)
	_, err = reg.Add(ctx, AddRequest{Symbol: "AAPL"})
	require.NoError(t, err)

	inactive := false
	_, err = reg.Update(ctx, a.ID, UpdateRequest{IsActive: &inactive})
	require.NoError(t, err)

	active, err := reg.ListActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, active)
}

func TestSummary(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	summary, err := reg.Summary(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
	assert.Nil(t, summary.MostRecentAddition)

	_, err = reg.Add(ctx, AddRequest{Symbol: "VOO", AlertThreshold: 1.0})
	require.NoError(t, err)
	ts, err := reg.Add(ctx, AddRequest{Symbol: "AAPL", AlertThreshold: 3.0})
	require.NoError(t, err)
	inactive := false
	_, err = reg.Update(ctx, ts.ID, UpdateRequest{IsActive: &inactive})
	require.NoError(t, err)

	summary, err = reg.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Active)
	assert.Equal(t, 1, summary.Inactive)
	assert.InDelta(t, 2.0, summary.AverageThreshold, 1e-9)
	require.NotNil(t, summary.MostRecentAddition)
}

func TestSeedDefaults_OnlyWhenEmpty(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, reg.SeedDefaults(ctx))
	symbols, err := reg.List(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, symbols)
	seeded := len(symbols)

	// A second seed is a no-op.
	require.NoError(t, reg.SeedDefaults(ctx))
	symbols, err = reg.List(ctx)
	require.NoError(t, err)
	assert.Len(t, symbols, seeded)

	for _, s := range symbols {
		assert.True(t, s.IsActive)
		assert.True(t, s.HasOverride(), fmt.Sprintf("%s should carry the seed threshold", s.Symbol))
	}
}
