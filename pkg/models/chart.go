package models

import "fmt"

// ChartType enumerates the chart renderings the frontend understands.
type ChartType string

const (
	ChartCandlestick ChartType = "candlestick"
	ChartLine        ChartType = "line"
	ChartArea        ChartType = "area"
)

// Indicator names the overlay studies the frontend can draw.
var validIndicators = map[string]bool{
	"sma_20":    true,
	"sma_50":    true,
	"sma_200":   true,
	"ema_12":    true,
	"ema_26":    true,
	"rsi_14":    true,
	"macd":      true,
	"bollinger": true,
	"volume":    true,
}

// ChartSpec describes a chart for the frontend to render. The agent builds
// and validates specs; it never renders anything itself.
type ChartSpec struct {
	Ticker       string    `json:"ticker"`
	Type         ChartType `json:"type"`
	Timespan     Timespan  `json:"timespan"`
	Multiplier   int       `json:"multiplier"`
	LookbackDays int       `json:"lookback_days"`
	Indicators   []string  `json:"indicators,omitempty"`
	CompareWith  []string  `json:"compare_with,omitempty"`
	Title        string    `json:"title,omitempty"`
}

// Validate normalizes and checks a spec, filling defaults for zero fields.
func (c *ChartSpec) Validate() error {
	if c.Ticker == "" {
		return fmt.Errorf("chart spec: ticker is required")
	}
	if c.Type == "" {
		c.Type = ChartCandlestick
	}
	switch c.Type {
	case ChartCandlestick, ChartLine, ChartArea:
	default:
		return fmt.Errorf("chart spec: unknown chart type %q", c.Type)
	}
	if c.Timespan == "" {
		c.Timespan = TimespanDay
	}
	if !ValidTimespan(string(c.Timespan)) {
		return fmt.Errorf("chart spec: unknown timespan %q", c.Timespan)
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 1
	}
	if c.LookbackDays <= 0 {
		c.LookbackDays = 180
	}
	for _, ind := range c.Indicators {
		if !validIndicators[ind] {
			return fmt.Errorf("chart spec: unknown indicator %q", ind)
		}
	}
	return nil
}

// SupportedIndicators returns the indicator names accepted by Validate.
func SupportedIndicators() []string {
	out := make([]string, 0, len(validIndicators))
	for name := range validIndicators {
		out = append(out, name)
	}
	return out
}
