// Package monitor runs the periodic price-check cycle.
package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"stockwatch/internal/analysis"
	"stockwatch/internal/engine"
	"stockwatch/internal/history"
	"stockwatch/internal/logging"
	"stockwatch/internal/models"
	"stockwatch/internal/notify"
	"stockwatch/internal/quote"
	"stockwatch/internal/registry"
)

const defaultFetchConcurrency = 4

// CycleResult summarizes one monitoring cycle.
type CycleResult struct {
	SymbolsChecked int
	AlertsFired    int
	FetchErrors    int
	Skipped        bool
	Duration       time.Duration
}

// Monitor drives the fetch, decide, dispatch cycle over the active watchlist.
type Monitor struct {
	cache    *quote.Cache
	registry *registry.Registry
	resolver *engine.Resolver
	engine   *engine.Engine
	history  *history.Store
	notifier notify.Notifier
	analyzer analysis.Analyzer
	logger   zerolog.Logger

	concurrency int
	inProgress  atomic.Bool
}

// New creates a monitor. concurrency bounds parallel quote fetches within a
// cycle; values outside 1..32 fall back to the default.
func New(
	cache *quote.Cache,
	reg *registry.Registry,
	resolver *engine.Resolver,
	eng *engine.Engine,
	hist *history.Store,
	notifier notify.Notifier,
	analyzer analysis.Analyzer,
	concurrency int,
	logger zerolog.Logger,
) *Monitor {
	if concurrency < 1 || concurrency > 32 {
		concurrency = defaultFetchConcurrency
	}
	if analyzer == nil {
		analyzer = analysis.NewStaticAnalyzer()
	}
	return &Monitor{
		cache:       cache,
		registry:    reg,
		resolver:    resolver,
		engine:      eng,
		history:     hist,
		notifier:    notifier,
		analyzer:    analyzer,
		logger:      logger.With().Str("component", "monitor").Logger(),
		concurrency: concurrency,
	}
}

type fetchResult struct {
	symbol string
	quote  models.Quote
	err    error
}

// RunCycle performs one full monitoring pass. Cycles never overlap: a cycle
// that starts while another is still running is a logged no-op with
// Skipped set.
func (m *Monitor) RunCycle(ctx context.Context) (CycleResult, error) {
	if !m.inProgress.CompareAndSwap(false, true) {
		m.logger.Warn().Msg("previous cycle still running, skipping")
		return CycleResult{Skipped: true}, nil
	}
	defer m.inProgress.Store(false)

	start := time.Now()
	res := CycleResult{}

	enabled, err := m.resolver.ShouldConsiderAlert(ctx)
	if err != nil {
		return res, err
	}
	if !enabled {
		m.logger.Debug().Msg("alerting disabled, skipping cycle")
		res.Skipped = true
		return res, nil
	}

	prefs, err := m.resolver.Preferences(ctx)
	if err != nil {
		return res, err
	}

	symbols, err := m.registry.ListActive(ctx)
	if err != nil {
		return res, err
	}
	if len(symbols) == 0 {
		m.logger.Debug().Msg("no active symbols")
		res.Duration = time.Since(start)
		return res, nil
	}

	results := m.fetchAll(ctx, symbols)

	for _, fr := range results {
		if fr.err != nil {
			// One bad symbol never fails the cycle.
			res.FetchErrors++
			m.logger.Warn().Err(fr.err).Str("symbol", fr.symbol).Msg("quote fetch failed")
			continue
		}
		res.SymbolsChecked++

		fired, err := m.evaluateAndDispatch(ctx, fr.quote, prefs)
		if err != nil {
			m.logger.Error().Err(err).Str("symbol", fr.symbol).Msg("alert evaluation failed")
			continue
		}
		if fired {
			res.AlertsFired++
		}
	}

	res.Duration = time.Since(start)
	logging.LogCycle(m.logger, res.SymbolsChecked, res.AlertsFired, res.FetchErrors, res.Duration)
	return res, nil
}

// fetchAll retrieves quotes for all symbols through a bounded worker pool.
func (m *Monitor) fetchAll(ctx context.Context, symbols []string) []fetchResult {
	jobs := make(chan string)
	out := make(chan fetchResult, len(symbols))

	var wg sync.WaitGroup
	workers := m.concurrency
	if workers > len(symbols) {
		workers = len(symbols)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range jobs {
				fetchStart := time.Now()
				q, err := m.cache.Get(ctx, sym)
				logging.LogFetch(m.logger, sym, time.Since(fetchStart), err)
				out <- fetchResult{symbol: sym, quote: q, err: err}
			}
		}()
	}

	for _, sym := range symbols {
		jobs <- sym
	}
	close(jobs)
	wg.Wait()
	close(out)

	results := make([]fetchResult, 0, len(symbols))
	for fr := range out {
		results = append(results, fr)
	}
	return results
}

// evaluateAndDispatch runs the decision engine for one quote and, on a fired
// verdict, delivers the alert and records it. The record is appended whether
// or not delivery succeeded so rate limiting stays honest.
func (m *Monitor) evaluateAndDispatch(ctx context.Context, q models.Quote, prefs models.Preferences) (bool, error) {
	threshold, err := m.resolver.EffectiveThreshold(ctx, q.Symbol)
	if err != nil {
		return false, err
	}

	verdict, err := m.engine.Evaluate(ctx, q, threshold, prefs)
	if err != nil {
		return false, err
	}
	if !verdict.Fire {
		return false, nil
	}

	rec := models.AlertRecord{
		Symbol:        q.Symbol,
		CurrentPrice:  q.Price,
		PreviousPrice: q.PreviousClose,
		ChangePercent: verdict.ChangePercent,
		ThresholdUsed: threshold,
		AlertType:     verdict.Type,
		Timestamp:     time.Now().UTC(),
	}

	// Every alert carries a rationale: the analyzer's when enabled, the
	// plain default otherwise or on failure.
	a := models.DefaultAnalysis(q.Symbol, verdict.ChangePercent)
	if prefs.IncludeAnalysis {
		got, err := m.analyzer.Analyze(ctx, q)
		if err != nil {
			m.logger.Warn().Err(err).Str("symbol", q.Symbol).Msg("analysis failed, using fallback")
		} else {
			a = got
		}
	}
	rec.Analysis = a.Text
	if prefs.IncludeKeyFactors {
		rec.KeyFactors = a.KeyFactors
	}

	if err := m.notifier.Notify(ctx, rec); err != nil {
		m.logger.Error().Err(err).Str("symbol", q.Symbol).Msg("alert delivery failed")
		rec.DeliverySucceeded = false
	} else {
		rec.DeliverySucceeded = true
	}

	if _, err := m.history.Append(ctx, rec); err != nil {
		return true, err
	}

	logging.LogAlert(m.logger, q.Symbol, verdict.ChangePercent, threshold, rec.DeliverySucceeded)
	return true, nil
}
