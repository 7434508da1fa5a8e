package utils

import "time"

// ET is the US Eastern time zone used by NYSE and Nasdaq.
var ET *time.Location

func init() {
	var err error
	ET, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback if the tz database is unavailable. Fixed EST; ignores DST.
		ET = time.FixedZone("ET", -5*60*60)
	}
}

// NowET returns the current time in US Eastern time.
func NowET() time.Time {
	return time.Now().In(ET)
}

// MarketOpenTime returns the regular-session open (9:30 AM ET) for a date.
func MarketOpenTime(date time.Time) time.Time {
	d := date.In(ET)
	return time.Date(d.Year(), d.Month(), d.Day(), 9, 30, 0, 0, ET)
}

// MarketCloseTime returns the regular-session close (4:00 PM ET) for a date.
func MarketCloseTime(date time.Time) time.Time {
	d := date.In(ET)
	return time.Date(d.Year(), d.Month(), d.Day(), 16, 0, 0, 0, ET)
}

// PreMarketStart returns the pre-market session start (4:00 AM ET).
func PreMarketStart(date time.Time) time.Time {
	d := date.In(ET)
	return time.Date(d.Year(), d.Month(), d.Day(), 4, 0, 0, 0, ET)
}

// IsMarketOpenAt reports whether the regular session is open at t.
func IsMarketOpenAt(t time.Time) bool {
	t = t.In(ET)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	if IsMarketHoliday(t) {
		return false
	}
	open := MarketOpenTime(t)
	close := MarketCloseTime(t)
	return !t.Before(open) && t.Before(close)
}

// IsMarketOpen reports whether the regular session is open right now.
func IsMarketOpen() bool {
	return IsMarketOpenAt(NowET())
}

// IsTradingDay reports whether the date is a weekday and not a holiday.
func IsTradingDay(t time.Time) bool {
	t = t.In(ET)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !IsMarketHoliday(t)
}

// PrevTradingDay returns the most recent trading day strictly before from.
func PrevTradingDay(from time.Time) time.Time {
	prev := from.In(ET).AddDate(0, 0, -1)
	for !IsTradingDay(prev) {
		prev = prev.AddDate(0, 0, -1)
	}
	return prev
}

// IsMarketHoliday reports whether the date is a US market holiday.
func IsMarketHoliday(t time.Time) bool {
	_, ok := usMarketHolidays2026[t.In(ET).Format("2006-01-02")]
	return ok
}

// US equity market holidays for 2026 (update annually).
// Source: NYSE holiday calendar.
var usMarketHolidays2026 = map[string]string{
	"2026-01-01": "New Year's Day",
	"2026-01-19": "Martin Luther King, Jr. Day",
	"2026-02-16": "Washington's Birthday",
	"2026-04-03": "Good Friday",
	"2026-05-25": "Memorial Day",
	"2026-06-19": "Juneteenth",
	"2026-07-03": "Independence Day (observed)",
	"2026-09-07": "Labor Day",
	"2026-11-26": "Thanksgiving Day",
	"2026-12-25": "Christmas Day",
}

// ParseDateET parses "2006-01-02" in US Eastern time.
func ParseDateET(dateStr string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", dateStr, ET)
}

// FormatDateET formats a time as "2006-01-02" in US Eastern time.
func FormatDateET(t time.Time) string {
	return t.In(ET).Format("2006-01-02")
}

// FormatDateTimeET formats a time as "2006-01-02 15:04:05 ET".
func FormatDateTimeET(t time.Time) string {
	return t.In(ET).Format("2006-01-02 15:04:05") + " ET"
}

// MarketStatus returns a human-readable session label for right now.
func MarketStatus() string {
	return MarketStatusAt(NowET())
}

// MarketStatusAt returns the session label for an arbitrary instant.
func MarketStatusAt(now time.Time) string {
	now = now.In(ET)

	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return "CLOSED (Weekend)"
	}
	if IsMarketHoliday(now) {
		return "CLOSED (" + usMarketHolidays2026[now.Format("2006-01-02")] + ")"
	}

	open := MarketOpenTime(now)
	close := MarketCloseTime(now)
	preMarket := PreMarketStart(now)

	switch {
	case now.Before(preMarket):
		return "CLOSED"
	case now.Before(open):
		return "PRE-MARKET"
	case now.Before(close):
		return "OPEN"
	case now.Before(close.Add(4 * time.Hour)):
		return "AFTER-HOURS"
	default:
		return "CLOSED"
	}
}
