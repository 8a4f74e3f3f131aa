package utils

import "time"

// MarketStatus describes the US equity market session.
type MarketStatus string

const (
	MarketOpen       MarketStatus = "OPEN"
	MarketClosed     MarketStatus = "CLOSED"
	MarketPreMarket  MarketStatus = "PRE_MARKET"
	MarketAfterHours MarketStatus = "AFTER_HOURS"
)

// MarketLocation is the timezone for US markets.
var MarketLocation *time.Location

func init() {
	var err error
	MarketLocation, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback to fixed EST
		MarketLocation = time.FixedZone("EST", -5*60*60)
	}
}

// MarketStatusAt returns the session status at a given instant.
func MarketStatusAt(t time.Time) MarketStatus {
	local := t.In(MarketLocation)

	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return MarketClosed
	}

	minutes := local.Hour()*60 + local.Minute()
	switch {
	case minutes >= 4*60 && minutes < 9*60+30:
		return MarketPreMarket
	case minutes >= 9*60+30 && minutes < 16*60:
		return MarketOpen
	case minutes >= 16*60 && minutes < 20*60:
		return MarketAfterHours
	default:
		return MarketClosed
	}
}

// GetMarketStatus returns the current session status.
func GetMarketStatus() MarketStatus {
	return MarketStatusAt(time.Now())
}

// IsMarketOpen reports whether the regular session is trading now.
func IsMarketOpen() bool {
	return GetMarketStatus() == MarketOpen
}

// NextMarketOpen returns the next regular-session opening time after t.
func NextMarketOpen(t time.Time) time.Time {
	local := t.In(MarketLocation)
	next := time.Date(local.Year(), local.Month(), local.Day(), 9, 30, 0, 0, MarketLocation)
	if !local.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// TodaysMarketClose returns today's regular-session close in market time.
func TodaysMarketClose(t time.Time) time.Time {
	local := t.In(MarketLocation)
	return time.Date(local.Year(), local.Month(), local.Day(), 16, 0, 0, 0, MarketLocation)
}
