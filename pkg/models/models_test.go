package models

import (
	"strings"
	"testing"
)

func TestOptionSnapshotMidPrice(t *testing.T) {
	tests := []struct {
		name string
		snap OptionSnapshot
		want float64
	}{
		{
			name: "mid_quote_preferred",
			snap: OptionSnapshot{
				LastQuote: &OptionQuote{Bid: 1.20, Ask: 1.40},
				LastTrade: &OptionTrade{Price: 9.99},
			},
			want: 1.30,
		},
		{
			name: "fallback_to_last_trade",
			snap: OptionSnapshot{
				LastQuote: &OptionQuote{Bid: 0, Ask: 1.40},
				LastTrade: &OptionTrade{Price: 1.34},
			},
			want: 1.34,
		},
		{
			name: "no_quote_at_all",
			snap: OptionSnapshot{LastTrade: &OptionTrade{Price: 2.50}},
			want: 2.50,
		},
		{
			name: "nothing_available",
			snap: OptionSnapshot{},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.snap.MidPrice(); got != tt.want {
				t.Fatalf("MidPrice: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidTimespan(t *testing.T) {
	for _, s := range []string{"minute", "hour", "day", "week", "month"} {
		if !ValidTimespan(s) {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	if ValidTimespan("fortnight") {
		t.Fatal("fortnight should not be a valid timespan")
	}
}

func TestValidContractType(t *testing.T) {
	if !ValidContractType("call") || !ValidContractType("put") {
		t.Fatal("call and put must be valid")
	}
	if ValidContractType("straddle") {
		t.Fatal("straddle is not a contract type")
	}
}

func TestChartSpecDefaults(t *testing.T) {
	spec := ChartSpec{Ticker: "AAPL"}
	if err := spec.Validate(); err != nil {
		t.Fatal(err)
	}
	if spec.Type != ChartCandlestick {
		t.Fatalf("default type: got %q", spec.Type)
	}
	if spec.Timespan != TimespanDay || spec.Multiplier != 1 {
		t.Fatalf("default resolution: got %q/%d", spec.Timespan, spec.Multiplier)
	}
	if spec.LookbackDays != 180 {
		t.Fatalf("default lookback: got %d", spec.LookbackDays)
	}
}

func TestChartSpecValidation(t *testing.T) {
	tests := []struct {
		name    string
		spec    ChartSpec
		wantErr string
	}{
		{"missing_ticker", ChartSpec{}, "ticker"},
		{"bad_type", ChartSpec{Ticker: "SPY", Type: "pie"}, "chart type"},
		{"bad_timespan", ChartSpec{Ticker: "SPY", Timespan: "decade"}, "timespan"},
		{"bad_indicator", ChartSpec{Ticker: "SPY", Indicators: []string{"astrology"}}, "indicator"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	good := ChartSpec{
		Ticker:     "SPY",
		Type:       ChartLine,
		Indicators: []string{"sma_50", "rsi_14"},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid spec rejected: %v", err)
	}
}
