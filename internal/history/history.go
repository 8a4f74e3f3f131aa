// Package history provides the append-only record of dispatched alerts.
package history

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"stockwatch/internal/errors"
	"stockwatch/internal/models"
	"stockwatch/internal/store"
)

// Store records dispatched alerts. Append is the only mutation; records are
// never changed or removed except by the administrative Clear.
type Store struct {
	store  store.Store
	logger zerolog.Logger

	now func() time.Time // overridable in tests
}

// New creates an alert history store backed by the given persistence layer.
func New(st store.Store, logger zerolog.Logger) *Store {
	return &Store{
		store:  st,
		logger: logger.With().Str("component", "history").Logger(),
		now:    time.Now,
	}
}

// Summary holds aggregate figures about the alert history.
type Summary struct {
	TotalAlerts             int
	AlertsToday             int
	MostActiveSymbol        string
	LastAlertTime           *time.Time
	AverageAbsChangePercent float64
}

// Append records a dispatched alert and returns its assigned id.
func (s *Store) Append(ctx context.Context, rec models.AlertRecord) (int64, error) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now().UTC()
	}
	id, err := s.store.AppendAlert(ctx, &rec)
	if err != nil {
		return 0, errors.NewPersistenceError("append_alert", "", err)
	}
	s.logger.Info().Int64("id", id).Str("symbol", rec.Symbol).
		Float64("change_percent", rec.ChangePercent).
		Bool("delivered", rec.DeliverySucceeded).
		Msg("Alert recorded")
	return id, nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]models.AlertRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.store.RecentAlerts(ctx, limit)
}

// BySymbol returns up to limit records for one symbol, matched
// case-insensitively, newest first.
func (s *Store) BySymbol(ctx context.Context, symbol string, limit int) ([]models.AlertRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.store.AlertsBySymbol(ctx, models.NormalizeSymbol(symbol), limit)
}

// CountToday counts alerts recorded for any symbol today, in UTC
// calendar-date terms.
func (s *Store) CountToday(ctx context.Context) (int, error) {
	return s.store.CountAlertsSince(ctx, startOfUTCDay(s.now()))
}

// LastAlertFor returns the timestamp of the most recent alert for a symbol,
// or nil when the symbol has no history.
func (s *Store) LastAlertFor(ctx context.Context, symbol string) (*time.Time, error) {
	return s.store.LastAlertTime(ctx, models.NormalizeSymbol(symbol))
}

// Summary returns aggregate figures over the whole history.
func (s *Store) Summary(ctx context.Context) (*Summary, error) {
	stats, err := s.store.AlertStats(ctx)
	if err != nil {
		return nil, err
	}
	today, err := s.CountToday(ctx)
	if err != nil {
		return nil, err
	}
	return &Summary{
		TotalAlerts:             stats.TotalAlerts,
		AlertsToday:             today,
		MostActiveSymbol:        stats.MostActiveSymbol,
		LastAlertTime:           stats.LastAlertTime,
		AverageAbsChangePercent: stats.AverageAbsChangePerc,
	}, nil
}

// Clear irreversibly wipes the history. Intended for explicit operator
// action only; id numbering restarts from 1 afterwards.
func (s *Store) Clear(ctx context.Context) (bool, error) {
	if err := s.store.ClearAlerts(ctx); err != nil {
		return false, errors.NewPersistenceError("clear_alerts", "", err)
	}
	s.logger.Warn().Msg("Alert history cleared")
	return true, nil
}

func startOfUTCDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
