// Package analysis produces a short rationale for fired alerts.
package analysis

import (
	"context"

	"stockwatch/internal/models"
)

// Analyzer explains a price move for inclusion in the alert payload.
// Implementations must never block a dispatch on failure: callers fall back
// to the static rationale when Analyze errors.
type Analyzer interface {
	Analyze(ctx context.Context, quote models.Quote) (models.Analysis, error)
}

// StaticAnalyzer returns the built-in rationale without any external call.
type StaticAnalyzer struct{}

func NewStaticAnalyzer() *StaticAnalyzer { return &StaticAnalyzer{} }

func (StaticAnalyzer) Analyze(_ context.Context, quote models.Quote) (models.Analysis, error) {
	return models.DefaultAnalysis(quote.Symbol, quote.ChangePercent()), nil
}
