// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"stockwatch/internal/models"
)

// Store defines the interface for data persistence. Each logical collection
// (tracked symbols, preferences, alert history) has a single writer at a
// time; implementations must be safe for concurrent readers.
type Store interface {
	// Tracked symbols
	InsertSymbol(ctx context.Context, sym *models.TrackedSymbol) error
	UpdateSymbol(ctx context.Context, sym *models.TrackedSymbol) error
	DeleteSymbol(ctx context.Context, id int64) (bool, error)
	GetSymbol(ctx context.Context, id int64) (*models.TrackedSymbol, error)
	GetSymbolByTicker(ctx context.Context, symbol string) (*models.TrackedSymbol, error)
	ListSymbols(ctx context.Context) ([]models.TrackedSymbol, error)

	// Preferences (singleton record)
	GetPreferences(ctx context.Context) (*models.Preferences, error)
	SavePreferences(ctx context.Context, prefs models.Preferences) error

	// Alert history (append-only)
	AppendAlert(ctx context.Context, rec *models.AlertRecord) (int64, error)
	RecentAlerts(ctx context.Context, limit int) ([]models.AlertRecord, error)
	AlertsBySymbol(ctx context.Context, symbol string, limit int) ([]models.AlertRecord, error)
	CountAlertsSince(ctx context.Context, since time.Time) (int, error)
	LastAlertTime(ctx context.Context, symbol string) (*time.Time, error)
	AlertStats(ctx context.Context) (*AlertStats, error)
	ClearAlerts(ctx context.Context) error

	// Lifecycle
	Close() error
}

// AlertStats holds aggregate figures over the whole alert history.
type AlertStats struct {
	TotalAlerts          int
	MostActiveSymbol     string
	LastAlertTime        *time.Time
	AverageAbsChangePerc float64
}
