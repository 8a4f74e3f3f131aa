package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/history"
	"stockwatch/internal/models"
	"stockwatch/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *history.Store, store.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "engine_test.db")
	st, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	hist := history.New(st, zerolog.Nop())
	return NewEngine(hist, zerolog.Nop()), hist, st
}

func quoteFor(symbol string, price, prevClose float64) models.Quote {
	return models.Quote{
		Symbol:        symbol,
		Price:         price,
		PreviousClose: prevClose,
		FetchedAt:     time.Now(),
	}
}

func TestEvaluate_FiresAtExactThreshold(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	p := models.DefaultPreferences()

	// 150 -> 157.50 is exactly +5%; at-threshold must fire.
	v, err := eng.Evaluate(context.Background(), quoteFor("AAPL", 157.50, 150.00), 5.0, p)
	require.NoError(t, err)
	assert.True(t, v.Fire)
	assert.InDelta(t, 5.0, v.ChangePercent, 1e-9)
	assert.Equal(t, models.AlertSurge, v.Type)
	assert.Equal(t, ReasonNone, v.Reason)
}

func TestEvaluate_BelowThresholdNoAlert(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	p := models.DefaultPreferences()

	// 150 -> 154 is about +2.67%, under the 3% default.
	v, err := eng.Evaluate(context.Background(), quoteFor("AAPL", 154.00, 150.00), p.GlobalAlertThreshold, p)
	require.NoError(t, err)
	assert.False(t, v.Fire)
	assert.Equal(t, ReasonBelowThreshold, v.Reason)
}

func TestEvaluate_DropFiresWithOverrideThreshold(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	p := models.DefaultPreferences()

	// +2.25% against a 2.0 per-symbol override.
	v, err := eng.Evaluate(context.Background(), quoteFor("TSLA", 204.50, 200.00), 2.0, p)
	require.NoError(t, err)
	assert.True(t, v.Fire)
	assert.Equal(t, models.AlertSurge, v.Type)

	// Same magnitude downward also fires, classified as a drop.
	v, err = eng.Evaluate(context.Background(), quoteFor("TSLA", 195.50, 200.00), 2.0, p)
	require.NoError(t, err)
	assert.True(t, v.Fire)
	assert.Equal(t, models.AlertDrop, v.Type)
}

func TestEvaluate_ZeroPreviousCloseSkips(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	p := models.DefaultPreferences()

	v, err := eng.Evaluate(context.Background(), quoteFor("IPO", 42.00, 0), 3.0, p)
	require.NoError(t, err)
	assert.False(t, v.Fire)
	assert.Equal(t, ReasonNoPrevClose, v.Reason)
	assert.Zero(t, v.ChangePercent)
}

func TestEvaluate_CooldownSuppresses(t *testing.T) {
	eng, hist, _ := newTestEngine(t)
	p := models.DefaultPreferences() // 30 minute cooldown, rate limits enforced

	base := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	_, err := hist.Append(context.Background(), models.AlertRecord{
		Symbol:        "AAPL",
		CurrentPrice:  160,
		PreviousPrice: 150,
		ChangePercent: 6.67,
		ThresholdUsed: 3.0,
		AlertType:     models.AlertSurge,
		Timestamp:     base,
	})
	require.NoError(t, err)

	// Ten minutes later the symbol is still cooling down.
	eng.now = func() time.Time { return base.Add(10 * time.Minute) }
	v, err := eng.Evaluate(context.Background(), quoteFor("AAPL", 170.00, 150.00), 3.0, p)
	require.NoError(t, err)
	assert.False(t, v.Fire)
	assert.Equal(t, ReasonInCooldown, v.Reason)

	// A different symbol is unaffected.
	v, err = eng.Evaluate(context.Background(), quoteFor("MSFT", 430.00, 400.00), 3.0, p)
	require.NoError(t, err)
	assert.True(t, v.Fire)

	// Past the window the original symbol fires again.
	eng.now = func() time.Time { return base.Add(31 * time.Minute) }
	v, err = eng.Evaluate(context.Background(), quoteFor("AAPL", 170.00, 150.00), 3.0, p)
	require.NoError(t, err)
	assert.True(t, v.Fire)
}

func TestEvaluate_DailyCapSuppresses(t *testing.T) {
	eng, hist, _ := newTestEngine(t)
	p := models.DefaultPreferences()
	p.MaxAlertsPerDay = 2
	p.CooldownMinutes = 0

	now := time.Now().UTC()
	for _, sym := range []string{"VOO", "QQQM"} {
		_, err := hist.Append(context.Background(), models.AlertRecord{
			Symbol:        sym,
			CurrentPrice:  110,
			PreviousPrice: 100,
			ChangePercent: 10,
			ThresholdUsed: 3.0,
			AlertType:     models.AlertSurge,
			Timestamp:     now,
		})
		require.NoError(t, err)
	}

	v, err := eng.Evaluate(context.Background(), quoteFor("SPY", 520.00, 500.00), 3.0, p)
	require.NoError(t, err)
	assert.False(t, v.Fire)
	assert.Equal(t, ReasonDailyCapHit, v.Reason)
}

func TestEvaluate_RateLimitsDisabledBypassesGate(t *testing.T) {
	eng, hist, _ := newTestEngine(t)
	p := models.DefaultPreferences()
	p.EnforceRateLimits = false
	p.MaxAlertsPerDay = 1

	now := time.Now().UTC()
	_, err := hist.Append(context.Background(), models.AlertRecord{
		Symbol:        "AAPL",
		CurrentPrice:  160,
		PreviousPrice: 150,
		ChangePercent: 6.67,
		ThresholdUsed: 3.0,
		AlertType:     models.AlertSurge,
		Timestamp:     now,
	})
	require.NoError(t, err)

	// Cap exhausted and cooldown active, yet the permissive mode still fires.
	v, err := eng.Evaluate(context.Background(), quoteFor("AAPL", 170.00, 150.00), 3.0, p)
	require.NoError(t, err)
	assert.True(t, v.Fire)
}

func TestWithinCooldown(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-10 * time.Minute)
	old := now.Add(-45 * time.Minute)
	exact := now.Add(-30 * time.Minute)

	assert.False(t, WithinCooldown(nil, now, 30), "no prior alert never blocks")
	assert.False(t, WithinCooldown(&recent, now, 0), "zero cooldown never blocks")
	assert.False(t, WithinCooldown(&recent, now, -5), "negative cooldown never blocks")
	assert.True(t, WithinCooldown(&recent, now, 30))
	assert.False(t, WithinCooldown(&old, now, 30))
	assert.False(t, WithinCooldown(&exact, now, 30), "window is half-open, boundary is eligible")
}
