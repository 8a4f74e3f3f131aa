// Package notify delivers fired alerts to the configured channels.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"stockwatch/internal/config"
	"stockwatch/internal/errors"
	"stockwatch/internal/models"
)

// Notifier delivers a single alert. Implementations must be safe for
// concurrent use; the monitor invokes Notify from its worker pool.
type Notifier interface {
	Notify(ctx context.Context, rec models.AlertRecord) error
}

// Channel is a single delivery target behind a MultiNotifier.
type Channel interface {
	Name() string
	Send(ctx context.Context, rec models.AlertRecord) error
	IsEnabled() bool
}

// MultiNotifier fans an alert out to every enabled channel. Channel failures
// are collected, not short-circuited: one broken channel must not keep the
// others from delivering.
type MultiNotifier struct {
	channels []Channel
	mu       sync.RWMutex
}

// NewMultiNotifier builds a notifier from the notification configuration.
func NewMultiNotifier(cfg config.NotificationConfig) *MultiNotifier {
	mn := &MultiNotifier{}
	if cfg.Terminal {
		mn.channels = append(mn.channels, NewTerminalNotifier(true))
	}
	if cfg.Email.Enabled {
		mn.channels = append(mn.channels, NewEmailNotifier(cfg.Email))
	}
	return mn
}

// AddChannel registers an additional delivery channel.
func (mn *MultiNotifier) AddChannel(ch Channel) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.channels = append(mn.channels, ch)
}

// Notify delivers rec to all enabled channels and returns the joined failures.
func (mn *MultiNotifier) Notify(ctx context.Context, rec models.AlertRecord) error {
	mn.mu.RLock()
	channels := mn.channels
	mn.mu.RUnlock()

	var errs []string
	for _, ch := range channels {
		if !ch.IsEnabled() {
			continue
		}
		if err := ch.Send(ctx, rec); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", ch.Name(), err))
		}
	}
	if len(errs) > 0 {
		return errors.NewDeliveryError("multi", rec.Symbol,
			fmt.Errorf("delivery errors: %s", strings.Join(errs, "; ")))
	}
	return nil
}

// subjectFor builds the one-line headline used as email subject and terminal
// banner, e.g. "AAPL surged +5.00% today".
func subjectFor(rec models.AlertRecord) string {
	verb := "surged"
	if rec.AlertType == models.AlertDrop {
		verb = "dropped"
	}
	return fmt.Sprintf("Stock Alert: %s %s %+.2f%% today", rec.Symbol, verb, rec.ChangePercent)
}

// bodyFor renders the plain-text alert body shared by the channels.
func bodyFor(rec models.AlertRecord) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Symbol: %s\n", rec.Symbol))
	sb.WriteString(fmt.Sprintf("Current Price: $%.2f\n", rec.CurrentPrice))
	sb.WriteString(fmt.Sprintf("Previous Close: $%.2f\n", rec.PreviousPrice))
	sb.WriteString(fmt.Sprintf("Change: %+.2f%% ($%+.2f)\n", rec.ChangePercent, rec.PriceChangeDollar()))
	sb.WriteString(fmt.Sprintf("Threshold: %.2f%%\n", rec.ThresholdUsed))

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	sb.WriteString(fmt.Sprintf("Time: %s\n", ts.Format("2006-01-02 15:04:05 MST")))

	if rec.Analysis != "" {
		sb.WriteString("\nAnalysis:\n")
		sb.WriteString(rec.Analysis)
		sb.WriteString("\n")
	}
	if len(rec.KeyFactors) > 0 {
		sb.WriteString("\nKey Factors:\n")
		for _, f := range rec.KeyFactors {
			sb.WriteString("  - " + f + "\n")
		}
	}
	return sb.String()
}

// NoOpNotifier discards alerts. Used in tests and when every channel is
// disabled.
type NoOpNotifier struct{}

func NewNoOpNotifier() *NoOpNotifier { return &NoOpNotifier{} }

func (NoOpNotifier) Notify(context.Context, models.AlertRecord) error { return nil }
