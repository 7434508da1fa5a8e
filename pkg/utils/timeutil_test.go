package utils

import (
	"testing"
	"time"
)

func TestMarketOpenClose(t *testing.T) {
	// Wednesday 2026-03-04, a regular trading day.
	day := time.Date(2026, 3, 4, 12, 0, 0, 0, ET)

	open := MarketOpenTime(day)
	if open.Hour() != 9 || open.Minute() != 30 {
		t.Fatalf("open: got %v", open)
	}
	close := MarketCloseTime(day)
	if close.Hour() != 16 || close.Minute() != 0 {
		t.Fatalf("close: got %v", close)
	}
}

func TestIsMarketOpenAt(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"midday_weekday", time.Date(2026, 3, 4, 12, 0, 0, 0, ET), true},
		{"exactly_open", time.Date(2026, 3, 4, 9, 30, 0, 0, ET), true},
		{"before_open", time.Date(2026, 3, 4, 9, 29, 0, 0, ET), false},
		{"exactly_close", time.Date(2026, 3, 4, 16, 0, 0, 0, ET), false},
		{"saturday", time.Date(2026, 3, 7, 12, 0, 0, 0, ET), false},
		{"christmas", time.Date(2026, 12, 25, 12, 0, 0, 0, ET), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsMarketOpenAt(tt.at); got != tt.want {
				t.Fatalf("IsMarketOpenAt(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestPrevTradingDay(t *testing.T) {
	// Monday 2026-03-09 → previous trading day is Friday 2026-03-06.
	monday := time.Date(2026, 3, 9, 10, 0, 0, 0, ET)
	prev := PrevTradingDay(monday)
	if prev.Weekday() != time.Friday || prev.Day() != 6 {
		t.Fatalf("got %v", prev)
	}

	// Day after a holiday: 2026-12-26 is a Saturday; previous trading day
	// from Monday 2026-12-28 skips the weekend and Christmas.
	mon := time.Date(2026, 12, 28, 10, 0, 0, 0, ET)
	prev = PrevTradingDay(mon)
	if FormatDateET(prev) != "2026-12-24" {
		t.Fatalf("got %s", FormatDateET(prev))
	}
}

func TestMarketStatusAt(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"open", time.Date(2026, 3, 4, 12, 0, 0, 0, ET), "OPEN"},
		{"pre_market", time.Date(2026, 3, 4, 8, 0, 0, 0, ET), "PRE-MARKET"},
		{"after_hours", time.Date(2026, 3, 4, 17, 0, 0, 0, ET), "AFTER-HOURS"},
		{"late_night", time.Date(2026, 3, 4, 21, 0, 0, 0, ET), "CLOSED"},
		{"weekend", time.Date(2026, 3, 7, 12, 0, 0, 0, ET), "CLOSED (Weekend)"},
		{"holiday", time.Date(2026, 12, 25, 12, 0, 0, 0, ET), "CLOSED (Christmas Day)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MarketStatusAt(tt.at); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseFormatDateET(t *testing.T) {
	d, err := ParseDateET("2026-03-04")
	if err != nil {
		t.Fatal(err)
	}
	if FormatDateET(d) != "2026-03-04" {
		t.Fatalf("round trip: got %s", FormatDateET(d))
	}
}
