package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/models"
	"stockwatch/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "history_test.db")
	st, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st, zerolog.Nop())
}

func record(symbol string, changePercent float64, ts time.Time) models.AlertRecord {
	typ := models.AlertSurge
	if changePercent < 0 {
		typ = models.AlertDrop
	}
	return models.AlertRecord{
		Symbol:            symbol,
		CurrentPrice:      100 + changePercent,
		PreviousPrice:     100,
		ChangePercent:     changePercent,
		ThresholdUsed:     3.0,
		AlertType:         typ,
		Analysis:          "moved",
		Timestamp:         ts,
		DeliverySucceeded: true,
	}
}

func TestAppend_AssignsIncreasingIDs(t *testing.T) {
	hist := newTestStore(t)
	ctx := context.Background()

	id1, err := hist.Append(ctx, record("AAPL", 4.2, time.Now()))
	require.NoError(t, err)
	id2, err := hist.Append(ctx, record("TSLA", -5.1, time.Now()))
	require.NoError(t, err)

	assert.Equal(t, int64(1), id1)
	assert.Equal(t, int64(2), id2)
}

func TestAppend_FillsZeroTimestamp(t *testing.T) {
	hist := newTestStore(t)
	fixed := time.Date(2026, 2, 3, 14, 30, 0, 0, time.UTC)
	hist.now = func() time.Time { return fixed }

	_, err := hist.Append(context.Background(), record("VOO", 3.3, time.Time{}))
	require.NoError(t, err)

	recs, err := hist.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Timestamp.Equal(fixed))
}

func TestRecent_NewestFirstAndDefaultLimit(t *testing.T) {
	hist := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		_, err := hist.Append(ctx, record("AAPL", 3.5, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	// limit <= 0 falls back to 10.
	recs, err := hist.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 10)
	assert.Equal(t, int64(15), recs[0].ID)
	assert.True(t, recs[0].Timestamp.After(recs[1].Timestamp))

	recs, err = hist.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestBySymbol_FiltersCaseInsensitively(t *testing.T) {
	hist := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := hist.Append(ctx, record("AAPL", 4.0, now))
	require.NoError(t, err)
	_, err = hist.Append(ctx, record("TSLA", -6.0, now.Add(time.Minute)))
	require.NoError(t, err)
	_, err = hist.Append(ctx, record("AAPL", 3.1, now.Add(2*time.Minute)))
	require.NoError(t, err)

	recs, err := hist.BySymbol(ctx, "aapl", 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.Equal(t, "AAPL", r.Symbol)
	}
}

func TestCountToday_UsesUTCDayBoundary(t *testing.T) {
	hist := newTestStore(t)
	ctx := context.Background()

	fixed := time.Date(2026, 2, 3, 1, 15, 0, 0, time.UTC)
	hist.now = func() time.Time { return fixed }

	// Yesterday, even if only an hour and a half earlier.
	_, err := hist.Append(ctx, record("AAPL", 4.0, fixed.Add(-90*time.Minute)))
	require.NoError(t, err)
	// Today.
	_, err = hist.Append(ctx, record("TSLA", -5.0, fixed.Add(-time.Hour)))
	require.NoError(t, err)
	_, err = hist.Append(ctx, record("VOO", 3.2, fixed))
	require.NoError(t, err)

	n, err := hist.CountToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestLastAlertFor(t *testing.T) {
	hist := newTestStore(t)
	ctx := context.Background()

	ts, err := hist.LastAlertFor(ctx, "AAPL")
	require.NoError(t, err)
	assert.Nil(t, ts)

	first := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	second := first.Add(2 * time.Hour)
	_, err = hist.Append(ctx, record("AAPL", 4.0, first))
	require.NoError(t, err)
	_, err = hist.Append(ctx, record("AAPL", 3.6, second))
	require.NoError(t, err)

	ts, err = hist.LastAlertFor(ctx, "aapl")
	require.NoError(t, err)
	require.NotNil(t, ts)
	assert.True(t, ts.Equal(second))
}

func TestSummary(t *testing.T) {
	hist := newTestStore(t)
	ctx := context.Background()

	fixed := time.Date(2026, 2, 3, 16, 0, 0, 0, time.UTC)
	hist.now = func() time.Time { return fixed }

	_, err := hist.Append(ctx, record("AAPL", 4.0, fixed.Add(-48*time.Hour)))
	require.NoError(t, err)
	_, err = hist.Append(ctx, record("AAPL", -6.0, fixed.Add(-time.Hour)))
	require.NoError(t, err)
	_, err = hist.Append(ctx, record("TSLA", 2.0, fixed))
	require.NoError(t, err)

	sum, err := hist.Summary(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, sum.TotalAlerts)
	assert.Equal(t, 2, sum.AlertsToday)
	assert.Equal(t, "AAPL", sum.MostActiveSymbol)
	require.NotNil(t, sum.LastAlertTime)
	assert.True(t, sum.LastAlertTime.Equal(fixed))
	assert.InDelta(t, 4.0, sum.AverageAbsChangePercent, 1e-9)
}

func TestClear_RestartsNumbering(t *testing.T) {
	hist := newTestStore(t)
	ctx := context.Background()

	_, err := hist.Append(ctx, record("AAPL", 4.0, time.Now()))
	require.NoError(t, err)
	_, err = hist.Append(ctx, record("TSLA", -5.0, time.Now()))
	require.NoError(t, err)

	ok, err := hist.Clear(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	recs, err := hist.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recs)

	id, err := hist.Append(ctx, record("VOO", 3.3, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}
