package engine

import (
	"context"
	stderrors "errors"

	"stockwatch/internal/errors"
	"stockwatch/internal/models"
	"stockwatch/internal/prefs"
	"stockwatch/internal/registry"
)

// Resolver answers per-symbol policy questions by combining the symbol
// registry's overrides with the global preference record.
type Resolver struct {
	registry *registry.Registry
	prefs    *prefs.Store
}

func NewResolver(reg *registry.Registry, ps *prefs.Store) *Resolver {
	return &Resolver{registry: reg, prefs: ps}
}

// EffectiveThreshold returns the alert threshold that applies to symbol:
// the symbol's own override when one is set, the global threshold otherwise.
// A symbol missing from the registry still resolves to the global value so
// ad-hoc checks against untracked tickers behave sensibly.
func (r *Resolver) EffectiveThreshold(ctx context.Context, symbol string) (float64, error) {
	p, err := r.prefs.Get(ctx)
	if err != nil {
		return 0, err
	}
	ts, err := r.registry.Lookup(ctx, symbol)
	if err != nil {
		if stderrors.Is(err, errors.ErrSymbolNotFound) {
			return p.GlobalAlertThreshold, nil
		}
		return 0, err
	}
	if ts.HasOverride() {
		return ts.AlertThreshold, nil
	}
	return p.GlobalAlertThreshold, nil
}

// ShouldConsiderAlert is the coarse monitoring gate: alerting must be
// globally active and the email channel enabled. Cooldown and daily-cap
// checks are per-alert concerns handled by the engine, not here.
func (r *Resolver) ShouldConsiderAlert(ctx context.Context) (bool, error) {
	p, err := r.prefs.Get(ctx)
	if err != nil {
		return false, err
	}
	return p.IsActive && p.EmailAlertsEnabled, nil
}

// Preferences exposes the current preference record for callers that need
// the full document alongside the resolved threshold.
func (r *Resolver) Preferences(ctx context.Context) (models.Preferences, error) {
	return r.prefs.Get(ctx)
}
