package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"stockwatch/internal/models"
)

// TerminalNotifier prints fired alerts to the terminal with ANSI colors.
type TerminalNotifier struct {
	out          io.Writer
	colorEnabled bool
	bellEnabled  bool
}

// NewTerminalNotifier creates a terminal channel writing to stdout.
func NewTerminalNotifier(colorEnabled bool) *TerminalNotifier {
	return &TerminalNotifier{
		out:          os.Stdout,
		colorEnabled: colorEnabled,
		bellEnabled:  true,
	}
}

func (t *TerminalNotifier) Name() string { return "terminal" }

func (t *TerminalNotifier) IsEnabled() bool { return true }

// SetBellEnabled toggles the terminal bell on delivery.
func (t *TerminalNotifier) SetBellEnabled(enabled bool) {
	t.bellEnabled = enabled
}

// Send prints the alert banner and body.
func (t *TerminalNotifier) Send(_ context.Context, rec models.AlertRecord) error {
	if t.bellEnabled {
		fmt.Fprint(t.out, "\a")
	}
	fmt.Fprintln(t.out, FormatAlert(rec, t.colorEnabled))
	return nil
}

// FormatAlert renders an alert for terminal display.
func FormatAlert(rec models.AlertRecord, colorEnabled bool) string {
	var color, reset string
	if colorEnabled {
		reset = "\033[0m"
		if rec.AlertType == models.AlertDrop {
			color = "\033[31m" // Red
		} else {
			color = "\033[32m" // Green
		}
	}

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s[%s] %s%s\n", color, ts.Format("15:04:05"), subjectFor(rec), reset))
	for _, line := range strings.Split(strings.TrimRight(bodyFor(rec), "\n"), "\n") {
		sb.WriteString("    " + line + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
