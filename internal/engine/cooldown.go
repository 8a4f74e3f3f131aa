package engine

import "time"

// WithinCooldown reports whether a new alert for a symbol would fall inside
// the cooldown window following its last dispatched alert. A nil last-alert
// time or a non-positive cooldown never blocks. Pure function, no I/O.
func WithinCooldown(lastAlert *time.Time, now time.Time, cooldownMinutes int) bool {
	if lastAlert == nil || cooldownMinutes <= 0 {
		return false
	}
	return now.Sub(*lastAlert) < time.Duration(cooldownMinutes)*time.Minute
}
