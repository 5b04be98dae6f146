// Package market answers whether the exchange is currently trading. The
// fetch pipeline itself never consults this; the scheduler does.
package market

import (
	"fmt"
	"time"

	"github.com/scmhub/calendar"
)

// Hours is the market-hours predicate. When the configured MIC resolves to a
// known exchange calendar, holidays are honored; otherwise a plain
// Monday-to-Friday window in the configured timezone is used.
type Hours struct {
	cal        *calendar.Calendar
	loc        *time.Location
	openHour   int
	openMin    int
	closeHour  int
	closeMin   int
	alwaysOpen bool
}

// Config describes the trading window.
type Config struct {
	// MIC is the ISO 10383 market identifier, e.g. "xnse". Optional.
	MIC string
	// Timezone of the exchange clock, e.g. "Asia/Kolkata".
	Timezone string
	// Open and Close are "HH:MM" in the exchange timezone.
	Open  string
	Close string
	// AlwaysOpen disables gating entirely (useful in development).
	AlwaysOpen bool
}

// New builds the predicate. Unknown MICs fall back to the weekday window.
func New(cfg Config) (*Hours, error) {
	h := &Hours{alwaysOpen: cfg.AlwaysOpen}

	tz := cfg.Timezone
	if tz == "" {
		tz = "Asia/Kolkata"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load market timezone %q: %w", tz, err)
	}
	h.loc = loc

	open := cfg.Open
	if open == "" {
		open = "09:15"
	}
	closeAt := cfg.Close
	if closeAt == "" {
		closeAt = "15:30"
	}
	if h.openHour, h.openMin, err = parseClock(open); err != nil {
		return nil, fmt.Errorf("market open time: %w", err)
	}
	if h.closeHour, h.closeMin, err = parseClock(closeAt); err != nil {
		return nil, fmt.Errorf("market close time: %w", err)
	}

	if cfg.MIC != "" {
		if cal := calendar.GetCalendar(cfg.MIC); cal != nil {
			h.cal = cal
		}
	}

	return h, nil
}

// IsOpen reports whether the exchange is trading at t.
func (h *Hours) IsOpen(t time.Time) bool {
	if h == nil {
		return false
	}
	if h.alwaysOpen {
		return true
	}

	local := t.In(h.loc)

	if h.cal != nil {
		if !h.cal.IsBusinessDay(local) {
			return false
		}
	} else if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}

	minutes := local.Hour()*60 + local.Minute()
	return minutes >= h.openHour*60+h.openMin && minutes < h.closeHour*60+h.closeMin
}

func parseClock(value string) (int, int, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(value, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("invalid clock value %q", value)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid clock value %q", value)
	}
	return hour, minute, nil
}
