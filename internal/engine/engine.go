package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"stockwatch/internal/history"
	"stockwatch/internal/models"
)

// Reason explains why a quote did not produce an alert. Fired verdicts carry
// ReasonNone.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonNoPrevClose    Reason = "no_previous_close"
	ReasonBelowThreshold Reason = "below_threshold"
	ReasonInCooldown     Reason = "in_cooldown"
	ReasonDailyCapHit    Reason = "daily_cap_reached"
)

// Verdict is the outcome of evaluating one quote against its threshold.
type Verdict struct {
	Fire          bool
	ChangePercent float64
	Type          models.AlertType
	Threshold     float64
	Reason        Reason
}

// Engine turns quotes into alert verdicts. The threshold comparison itself
// is pure arithmetic; the rate-limit gate consults alert history.
type Engine struct {
	history *history.Store
	logger  zerolog.Logger
	now     func() time.Time
}

func NewEngine(hist *history.Store, logger zerolog.Logger) *Engine {
	return &Engine{
		history: hist,
		logger:  logger.With().Str("component", "engine").Logger(),
		now:     time.Now,
	}
}

// Evaluate decides whether quote crosses threshold and, if so, whether the
// alert survives the cooldown and daily-cap gate. A change exactly equal to
// the threshold fires. A zero or negative previous close yields a quiet
// no-alert verdict rather than an error: the quote is unusable, not wrong.
//
// When p.EnforceRateLimits is false the cooldown and cap checks are skipped,
// reproducing the permissive behavior some deployments rely on.
func (e *Engine) Evaluate(ctx context.Context, quote models.Quote, threshold float64, p models.Preferences) (Verdict, error) {
	v := Verdict{Threshold: threshold}

	if quote.PreviousClose <= 0 {
		e.logger.Debug().Str("symbol", quote.Symbol).Msg("no usable previous close, skipping")
		v.Reason = ReasonNoPrevClose
		return v, nil
	}

	v.ChangePercent = quote.ChangePercent()
	if v.ChangePercent >= 0 {
		v.Type = models.AlertSurge
	} else {
		v.Type = models.AlertDrop
	}

	abs := v.ChangePercent
	if abs < 0 {
		abs = -abs
	}
	if abs < threshold {
		v.Reason = ReasonBelowThreshold
		return v, nil
	}

	if p.EnforceRateLimits {
		if p.MaxAlertsPerDay > 0 {
			count, err := e.history.CountToday(ctx)
			if err != nil {
				return v, err
			}
			if count >= p.MaxAlertsPerDay {
				e.logger.Info().
					Str("symbol", quote.Symbol).
					Int("alerts_today", count).
					Int("max_per_day", p.MaxAlertsPerDay).
					Msg("daily alert cap reached, suppressing")
				v.Reason = ReasonDailyCapHit
				return v, nil
			}
		}
		last, err := e.history.LastAlertFor(ctx, quote.Symbol)
		if err != nil {
			return v, err
		}
		if WithinCooldown(last, e.now(), p.CooldownMinutes) {
			e.logger.Info().
				Str("symbol", quote.Symbol).
				Time("last_alert", *last).
				Int("cooldown_minutes", p.CooldownMinutes).
				Msg("within cooldown window, suppressing")
			v.Reason = ReasonInCooldown
			return v, nil
		}
	}

	v.Fire = true
	return v, nil
}
