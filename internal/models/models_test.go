package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuoteChangePercent(t *testing.T) {
	q := Quote{Symbol: "AAPL", Price: 157.50, PreviousClose: 150.00}
	assert.InDelta(t, 5.0, q.ChangePercent(), 1e-9)

	q = Quote{Symbol: "TSLA", Price: 195.50, PreviousClose: 200.00}
	assert.InDelta(t, -2.25, q.ChangePercent(), 1e-9)

	// Zero previous close must not divide by zero.
	q = Quote{Symbol: "NEW", Price: 42.00, PreviousClose: 0}
	assert.Equal(t, 0.0, q.ChangePercent())
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "AAPL", NormalizeSymbol("  aapl "))
	assert.Equal(t, "BRK-B", NormalizeSymbol("brk-b"))
	assert.Equal(t, "", NormalizeSymbol("   "))
}

func TestValidSymbol(t *testing.T) {
	assert.True(t, ValidSymbol("voo"))
	assert.True(t, ValidSymbol("ABCDEFGHIJ"))
	assert.False(t, ValidSymbol(""))
	assert.False(t, ValidSymbol("   "))
	assert.False(t, ValidSymbol("ABCDEFGHIJK"))
}

func TestTrackedSymbolHasOverride(t *testing.T) {
	assert.False(t, TrackedSymbol{Symbol: "SPY"}.HasOverride())
	assert.True(t, TrackedSymbol{Symbol: "TSLA", AlertThreshold: 2.0}.HasOverride())
}

func TestDefaultPreferences(t *testing.T) {
	p := DefaultPreferences()
	assert.Equal(t, 3.0, p.GlobalAlertThreshold)
	assert.Equal(t, 30, p.CooldownMinutes)
	assert.Equal(t, 10, p.MaxAlertsPerDay)
	assert.True(t, p.IsActive)
	assert.True(t, p.EnforceRateLimits)
	assert.WithinDuration(t, time.Now().UTC(), p.UpdatedDate, time.Minute)
}

func TestDefaultAnalysis(t *testing.T) {
	a := DefaultAnalysis("AAPL", 4.2)
	assert.Contains(t, a.Text, "AAPL")
	assert.Contains(t, a.Text, "rose")

	a = DefaultAnalysis("TSLA", -5.0)
	assert.Contains(t, a.Text, "fell")
	assert.NotEmpty(t, a.KeyFactors)
}

func TestAlertRecordPriceChangeDollar(t *testing.T) {
	r := AlertRecord{CurrentPrice: 104.20, PreviousPrice: 100.00}
	assert.InDelta(t, 4.20, r.PriceChangeDollar(), 1e-9)
}
