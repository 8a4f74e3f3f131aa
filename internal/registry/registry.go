// Package registry manages the dynamic set of tracked symbols.
package registry

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"stockwatch/internal/errors"
	"stockwatch/internal/models"
	"stockwatch/internal/quote"
	"stockwatch/internal/store"
)

// MaxThresholdPercent bounds a per-symbol threshold override.
const MaxThresholdPercent = 50.0

// Registry is the sole writer of tracked symbols. Every mutation persists
// before returning success.
type Registry struct {
	store    store.Store
	provider quote.Provider
	logger   zerolog.Logger
}

// New creates a symbol registry backed by the given store. The provider is
// used to validate symbols before insertion.
func New(st store.Store, provider quote.Provider, logger zerolog.Logger) *Registry {
	return &Registry{
		store:    st,
		provider: provider,
		logger:   logger.With().Str("component", "registry").Logger(),
	}
}

// AddRequest carries the fields for a new tracked symbol.
type AddRequest struct {
	Symbol         string
	Name           string
	AlertThreshold float64 // 0 means no override
	Notes          string
}

// UpdateRequest carries partial updates; nil fields keep their prior value.
type UpdateRequest struct {
	Name           *string
	IsActive       *bool
	AlertThreshold *float64
	Notes          *string
}

// Summary holds aggregate figures about the registry.
type Summary struct {
	Total              int
	Active             int
	Inactive           int
	AverageThreshold   float64
	MostRecentAddition *time.Time
}

// Add validates the symbol against the quote provider and inserts it.
// Duplicates are rejected case-insensitively.
func (r *Registry) Add(ctx context.Context, req AddRequest) (*models.TrackedSymbol, error) {
	symbol := models.NormalizeSymbol(req.Symbol)
	if !models.ValidSymbol(symbol) {
		return nil, errors.NewValidationError("symbol", req.Symbol, "must be 1-10 characters")
	}
	if req.AlertThreshold != 0 {
		if req.AlertThreshold <= 0 || req.AlertThreshold > MaxThresholdPercent {
			return nil, errors.NewValidationError("alert_threshold", req.AlertThreshold,
				"must be greater than 0 and at most 50")
		}
	}

	existing, err := r.store.GetSymbolByTicker(ctx, symbol)
	if err != nil {
		return nil, errors.Wrap(err, "checking for duplicate")
	}
	if existing != nil {
		return nil, errors.ErrDuplicateSymbol
	}

	// One provider round-trip confirms the symbol resolves and supplies a
	// display name when the caller did not give one.
	name, err := r.provider.Validate(ctx, symbol)
	if err != nil {
		r.logger.Warn().Err(err).Str("symbol", symbol).Msg("Symbol validation failed")
		return nil, errors.Wrap(errors.ErrInvalidSymbol, symbol)
	}
	if req.Name != "" {
		name = req.Name
	}

	sym := &models.TrackedSymbol{
		Symbol:         symbol,
		Name:           name,
		IsActive:       true,
		AlertThreshold: req.AlertThreshold,
		Notes:          req.Notes,
		AddedDate:      time.Now().UTC(),
	}

	if err := r.store.InsertSymbol(ctx, sym); err != nil {
		return nil, errors.NewPersistenceError("add_symbol", "", err)
	}

	r.logger.Info().Str("symbol", symbol).Int64("id", sym.ID).Msg("Symbol added to registry")
	return sym, nil
}

// Remove deletes a tracked symbol. It is idempotent: removing an unknown id
// returns false, never an error.
func (r *Registry) Remove(ctx context.Context, id int64) (bool, error) {
	removed, err := r.store.DeleteSymbol(ctx, id)
	if err != nil {
		return false, errors.NewPersistenceError("remove_symbol", "", err)
	}
	if removed {
		r.logger.Info().Int64("id", id).Msg("Symbol removed from registry")
	}
	return removed, nil
}

// Update applies a partial update to a tracked symbol.
func (r *Registry) Update(ctx context.Context, id int64, req UpdateRequest) (*models.TrackedSymbol, error) {
	sym, err := r.store.GetSymbol(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "loading symbol")
	}
	if sym == nil {
		return nil, errors.ErrSymbolNotFound
	}

	if req.Name != nil {
		sym.Name = *req.Name
	}
	if req.IsActive != nil {
		sym.IsActive = *req.IsActive
	}
	if req.AlertThreshold != nil {
		t := *req.AlertThreshold
		if t != 0 && (t <= 0 || t > MaxThresholdPercent) {
			return nil, errors.NewValidationError("alert_threshold", t,
				"must be greater than 0 and at most 50")
		}
		sym.AlertThreshold = t
	}
	if req.Notes != nil {
		sym.Notes = *req.Notes
	}

	if err := r.store.UpdateSymbol(ctx, sym); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrSymbolNotFound
		}
		return nil, errors.NewPersistenceError("update_symbol", "", err)
	}

	r.logger.Info().Str("symbol", sym.Symbol).Int64("id", id).Msg("Symbol updated")
	return sym, nil
}

// Get returns a tracked symbol by id.
func (r *Registry) Get(ctx context.Context, id int64) (*models.TrackedSymbol, error) {
	sym, err := r.store.GetSymbol(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "loading symbol")
	}
	if sym == nil {
		return nil, errors.ErrSymbolNotFound
	}
	return sym, nil
}

// Lookup returns a tracked symbol by ticker. Untracked tickers yield
// ErrSymbolNotFound.
func (r *Registry) Lookup(ctx context.Context, symbol string) (*models.TrackedSymbol, error) {
	sym, err := r.store.GetSymbolByTicker(ctx, symbol)
	if err != nil {
		return nil, errors.Wrap(err, "loading symbol")
	}
	if sym == nil {
		return nil, errors.ErrSymbolNotFound
	}
	return sym, nil
}

// List returns every tracked symbol.
func (r *Registry) List(ctx context.Context) ([]models.TrackedSymbol, error) {
	return r.store.ListSymbols(ctx)
}

// ListActive returns a snapshot of active symbol tickers.
func (r *Registry) ListActive(ctx context.Context) ([]string, error) {
	symbols, err := r.store.ListSymbols(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if sym.IsActive {
			active = append(active, sym.Symbol)
		}
	}
	return active, nil
}

// Summary returns aggregate figures about the registry.
func (r *Registry) Summary(ctx context.Context) (*Summary, error) {
	symbols, err := r.store.ListSymbols(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Total: len(symbols)}
	var thresholdSum float64
	for _, sym := range symbols {
		if sym.IsActive {
			summary.Active++
		} else {
			summary.Inactive++
		}
		thresholdSum += sym.AlertThreshold
		if summary.MostRecentAddition == nil || sym.AddedDate.After(*summary.MostRecentAddition) {
			added := sym.AddedDate
			summary.MostRecentAddition = &added
		}
	}
	if len(symbols) > 0 {
		summary.AverageThreshold = thresholdSum / float64(len(symbols))
	}
	return summary, nil
}

// defaultSymbols is the watchlist seeded on a fresh installation.
var defaultSymbols = []models.TrackedSymbol{
	{Symbol: "VOO", Name: "Vanguard S&P 500 ETF", AlertThreshold: 1.0},
	{Symbol: "QQQM", Name: "Invesco NASDAQ 100 ETF", AlertThreshold: 1.0},
	{Symbol: "SCHD", Name: "Schwab U.S. Dividend Equity ETF", AlertThreshold: 1.0},
	{Symbol: "VT", Name: "Vanguard Total World Stock ETF", AlertThreshold: 1.0},
	{Symbol: "SPY", Name: "SPDR S&P 500 ETF Trust", AlertThreshold: 1.0},
}

// SeedDefaults populates the registry with a starter watchlist when it is
// empty. Called once at startup; a non-empty registry is left untouched.
func (r *Registry) SeedDefaults(ctx context.Context) error {
	existing, err := r.store.ListSymbols(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	now := time.Now().UTC()
	for _, sym := range defaultSymbols {
		sym.IsActive = true
		sym.AddedDate = now
		if err := r.store.InsertSymbol(ctx, &sym); err != nil {
			return errors.NewPersistenceError("seed_defaults", "", err)
		}
	}
	r.logger.Info().Int("count", len(defaultSymbols)).Msg("Seeded default watchlist")
	return nil
}
