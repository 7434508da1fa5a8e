// Package models defines the shared market data types used across
// datasources, the agent's tools, and the HTTP API.
package models

import "time"

// Timespan is the aggregate bar resolution accepted by the history endpoints.
type Timespan string

const (
	TimespanMinute Timespan = "minute"
	TimespanHour   Timespan = "hour"
	TimespanDay    Timespan = "day"
	TimespanWeek   Timespan = "week"
	TimespanMonth  Timespan = "month"
)

// ValidTimespan reports whether s is a supported aggregate resolution.
func ValidTimespan(s string) bool {
	switch Timespan(s) {
	case TimespanMinute, TimespanHour, TimespanDay, TimespanWeek, TimespanMonth:
		return true
	}
	return false
}

// Quote is the latest traded price for a ticker.
type Quote struct {
	Ticker    string    `json:"ticker"`
	Price     float64   `json:"price"`
	Size      float64   `json:"size,omitempty"`
	Exchange  int       `json:"exchange,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Aggregate is a single OHLCV bar.
type Aggregate struct {
	Ticker    string    `json:"ticker,omitempty"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	VWAP      float64   `json:"vwap,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PriceHistory is a series of aggregate bars plus the query that produced it.
type PriceHistory struct {
	Ticker     string      `json:"ticker"`
	Timespan   Timespan    `json:"timespan"`
	Multiplier int         `json:"multiplier"`
	Adjusted   bool        `json:"adjusted"`
	From       string      `json:"from"`
	To         string      `json:"to"`
	Bars       []Aggregate `json:"bars"`
}

// NewsArticle is one market news headline.
type NewsArticle struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}
