// Package models provides domain models for the stock monitoring application.
package models

import (
	"strings"
	"time"
)

// AlertType classifies the direction of a price movement that fired an alert.
type AlertType string

const (
	AlertSurge AlertType = "SURGE"
	AlertDrop  AlertType = "DROP"
)

// Quote represents a point-in-time market quote for a symbol.
// A Quote is immutable once constructed; each fetch produces a new value.
type Quote struct {
	Symbol        string
	Price         float64
	PreviousClose float64
	Open          float64
	High          float64
	Low           float64
	Volume        int64
	FetchedAt     time.Time
}

// ChangePercent returns the percentage move from previous close.
// Returns 0 when the previous close is zero so callers never divide by zero.
func (q Quote) ChangePercent() float64 {
	if q.PreviousClose == 0 {
		return 0
	}
	return (q.Price - q.PreviousClose) / q.PreviousClose * 100
}

// TrackedSymbol is an entry in the symbol registry.
type TrackedSymbol struct {
	ID             int64
	Symbol         string
	Name           string
	IsActive       bool
	AlertThreshold float64 // per-symbol override; 0 means use the global threshold
	Notes          string
	AddedDate      time.Time
}

// HasOverride reports whether the symbol carries its own alert threshold.
func (s TrackedSymbol) HasOverride() bool {
	return s.AlertThreshold > 0
}

// NormalizeSymbol canonicalizes a ticker for registry lookups and storage.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ValidSymbol reports whether a ticker has an acceptable shape (1-10 chars).
func ValidSymbol(symbol string) bool {
	n := len(NormalizeSymbol(symbol))
	return n >= 1 && n <= 10
}

// Preferences is the singleton global alerting policy.
type Preferences struct {
	GlobalAlertThreshold float64
	CooldownMinutes      int
	MaxAlertsPerDay      int
	IsActive             bool
	EmailAlertsEnabled   bool
	IncludeAnalysis      bool
	IncludeKeyFactors    bool
	// EnforceRateLimits gates the cooldown and daily-cap checks. The legacy
	// system declared both fields but never consulted them; disabling this
	// reproduces that behavior.
	EnforceRateLimits bool
	UpdatedDate       time.Time
}

// DefaultPreferences returns the policy used on first run.
func DefaultPreferences() Preferences {
	return Preferences{
		GlobalAlertThreshold: 3.0,
		CooldownMinutes:      30,
		MaxAlertsPerDay:      10,
		IsActive:             true,
		EmailAlertsEnabled:   true,
		IncludeAnalysis:      true,
		IncludeKeyFactors:    true,
		EnforceRateLimits:    true,
		UpdatedDate:          time.Now().UTC(),
	}
}

// AlertRecord is one row of the append-only alert history.
type AlertRecord struct {
	ID                int64
	Symbol            string
	CurrentPrice      float64
	PreviousPrice     float64
	ChangePercent     float64
	ThresholdUsed     float64
	AlertType         AlertType
	Analysis          string
	KeyFactors        []string
	Timestamp         time.Time
	DeliverySucceeded bool
}

// PriceChangeDollar returns the absolute dollar move captured by the record.
func (r AlertRecord) PriceChangeDollar() float64 {
	return r.CurrentPrice - r.PreviousPrice
}

// Analysis is the rationale attached to an alert. It is always present;
// when the analysis collaborator is disabled a plain default is used instead
// of an ad hoc placeholder object.
type Analysis struct {
	Text       string
	KeyFactors []string
}

// DefaultAnalysis builds the minimal rationale used when analysis is disabled.
func DefaultAnalysis(symbol string, changePercent float64) Analysis {
	direction := "rose"
	if changePercent < 0 {
		direction = "fell"
	}
	return Analysis{
		Text:       symbol + " " + direction + " beyond its configured alert threshold.",
		KeyFactors: []string{"Price movement"},
	}
}
