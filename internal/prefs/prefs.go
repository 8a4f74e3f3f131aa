// Package prefs manages the singleton alerting policy record.
package prefs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"stockwatch/internal/errors"
	"stockwatch/internal/models"
	"stockwatch/internal/registry"
	"stockwatch/internal/store"
)

// Store owns the preferences record: initialized with defaults on first run,
// mutated only through Update, never deleted (Reset rewrites defaults).
type Store struct {
	store  store.Store
	logger zerolog.Logger
}

// New creates a preference store backed by the given persistence layer.
func New(st store.Store, logger zerolog.Logger) *Store {
	return &Store{
		store:  st,
		logger: logger.With().Str("component", "prefs").Logger(),
	}
}

// UpdateRequest carries partial updates; nil fields keep their prior value.
type UpdateRequest struct {
	GlobalAlertThreshold *float64
	CooldownMinutes      *int
	MaxAlertsPerDay      *int
	IsActive             *bool
	EmailAlertsEnabled   *bool
	IncludeAnalysis      *bool
	IncludeKeyFactors    *bool
	EnforceRateLimits    *bool
}

// Get returns the current preferences, writing defaults first when no record
// exists yet.
func (s *Store) Get(ctx context.Context) (models.Preferences, error) {
	p, err := s.store.GetPreferences(ctx)
	if err != nil {
		return models.Preferences{}, err
	}
	if p == nil {
		defaults := models.DefaultPreferences()
		if err := s.store.SavePreferences(ctx, defaults); err != nil {
			return models.Preferences{}, errors.NewPersistenceError("init_preferences", "", err)
		}
		s.logger.Info().Msg("Initialized default preferences")
		return defaults, nil
	}
	return *p, nil
}

// Update merges the request into the current record and refreshes the
// updated-at timestamp. Threshold-like fields are validated at this boundary.
func (s *Store) Update(ctx context.Context, req UpdateRequest) (models.Preferences, error) {
	p, err := s.Get(ctx)
	if err != nil {
		return models.Preferences{}, err
	}

	if req.GlobalAlertThreshold != nil {
		t := *req.GlobalAlertThreshold
		if t <= 0 || t > registry.MaxThresholdPercent {
			return models.Preferences{}, errors.NewValidationError("global_alert_threshold", t,
				"must be greater than 0 and at most 50")
		}
		p.GlobalAlertThreshold = t
	}
	if req.CooldownMinutes != nil {
		if *req.CooldownMinutes < 0 {
			return models.Preferences{}, errors.NewValidationError("cooldown_minutes",
				*req.CooldownMinutes, "must be non-negative")
		}
		p.CooldownMinutes = *req.CooldownMinutes
	}
	if req.MaxAlertsPerDay != nil {
		if *req.MaxAlertsPerDay < 0 {
			return models.Preferences{}, errors.NewValidationError("max_alerts_per_day",
				*req.MaxAlertsPerDay, "must be non-negative")
		}
		p.MaxAlertsPerDay = *req.MaxAlertsPerDay
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if req.EmailAlertsEnabled != nil {
		p.EmailAlertsEnabled = *req.EmailAlertsEnabled
	}
	if req.IncludeAnalysis != nil {
		p.IncludeAnalysis = *req.IncludeAnalysis
	}
	if req.IncludeKeyFactors != nil {
		p.IncludeKeyFactors = *req.IncludeKeyFactors
	}
	if req.EnforceRateLimits != nil {
		p.EnforceRateLimits = *req.EnforceRateLimits
	}

	p.UpdatedDate = time.Now().UTC()
	if err := s.store.SavePreferences(ctx, p); err != nil {
		return models.Preferences{}, errors.NewPersistenceError("update_preferences", "", err)
	}

	s.logger.Info().Msg("Preferences updated")
	return p, nil
}

// ResetToDefaults rewrites the record with default values.
func (s *Store) ResetToDefaults(ctx context.Context) (models.Preferences, error) {
	defaults := models.DefaultPreferences()
	if err := s.store.SavePreferences(ctx, defaults); err != nil {
		return models.Preferences{}, errors.NewPersistenceError("reset_preferences", "", err)
	}
	s.logger.Info().Msg("Preferences reset to defaults")
	return defaults, nil
}
