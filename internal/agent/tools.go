package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/finchat-ai/finchat/internal/datasource"
	"github.com/finchat-ai/finchat/internal/llm"
	"github.com/finchat-ai/finchat/pkg/models"
	"github.com/finchat-ai/finchat/pkg/utils"
)

// MarketData is the market data surface the analyst's tools consume.
// *datasource.PolygonClient satisfies it.
type MarketData interface {
	LastTrade(ctx context.Context, ticker string) (*models.Quote, error)
	PriceHistory(ctx context.Context, ticker string, mult int, timespan models.Timespan, from, to time.Time) (*models.PriceHistory, error)
	ListOptionContracts(ctx context.Context, underlying string, filter datasource.ContractFilter) ([]models.OptionContract, error)
	OptionSnapshot(ctx context.Context, underlying, contract string) (*models.OptionSnapshot, error)
	Financials(ctx context.Context, ticker, timeframe string, limit int) ([]models.FinancialReport, error)
}

// NewsProvider serves market headlines. *datasource.NewsSource satisfies it.
type NewsProvider interface {
	Headlines(ctx context.Context, ticker string, limit int) ([]models.NewsArticle, error)
}

// Sources bundles the data dependencies of the analyst's tools.
type Sources struct {
	Market MarketData
	News   NewsProvider
}

// buildTools binds the analyst's tool set to the given sources.
func buildTools(s Sources) []llm.Tool {
	return []llm.Tool{
		{
			Name:        "get_stock_price",
			Description: "Get the latest traded price for a US stock ticker",
			Parameters: llm.ObjectSchema(map[string]*llm.JSONSchema{
				"ticker": llm.StringProp("Ticker symbol, e.g. AAPL, MSFT, SPY"),
			}),
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return s.Market.LastTrade(ctx, strArg(args, "ticker"))
			},
		},
		{
			Name:        "get_price_history",
			Description: "Fetch OHLCV price bars for a ticker over a lookback window",
			Parameters: llm.ObjectSchema(map[string]*llm.JSONSchema{
				"ticker":     llm.StringProp("Ticker symbol"),
				"days":       llm.IntProp("Lookback window in calendar days (default 30)"),
				"timespan":   llm.EnumProp("Bar resolution", "minute", "hour", "day", "week", "month"),
				"multiplier": llm.IntProp("Bar size multiplier, e.g. 5 with timespan minute for 5-minute bars (default 1)"),
			}),
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				days := intArg(args, "days", 30)
				timespan := models.Timespan(strArgDefault(args, "timespan", "day"))
				to := time.Now()
				from := to.AddDate(0, 0, -days)
				return s.Market.PriceHistory(ctx, strArg(args, "ticker"), intArg(args, "multiplier", 1), timespan, from, to)
			},
		},
		{
			Name:        "list_option_contracts",
			Description: "List active option contracts for an underlying, filtered by type, expiration window, and strike range",
			Parameters: llm.ObjectSchema(map[string]*llm.JSONSchema{
				"underlying":     llm.StringProp("Underlying stock ticker"),
				"contract_type":  llm.EnumProp("Contract type, empty for both", "call", "put", ""),
				"expiration_gte": llm.StringProp("Earliest expiration date, YYYY-MM-DD, empty for no bound"),
				"expiration_lte": llm.StringProp("Latest expiration date, YYYY-MM-DD, empty for no bound"),
				"strike_gte":     llm.NumberProp("Minimum strike price, 0 for no bound"),
				"strike_lte":     llm.NumberProp("Maximum strike price, 0 for no bound"),
				"limit":          llm.IntProp("Maximum contracts to return (default 100)"),
			}),
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return s.Market.ListOptionContracts(ctx, strArg(args, "underlying"), datasource.ContractFilter{
					ContractType:  models.ContractType(strArg(args, "contract_type")),
					ExpirationGTE: strArg(args, "expiration_gte"),
					ExpirationLTE: strArg(args, "expiration_lte"),
					StrikeGTE:     floatArg(args, "strike_gte"),
					StrikeLTE:     floatArg(args, "strike_lte"),
					Limit:         intArg(args, "limit", 0),
				})
			},
		},
		{
			Name:        "resolve_option_ticker",
			Description: "Resolve an option described by underlying, type, strike, and expiration into its exact OCC contract ticker",
			Parameters: llm.ObjectSchema(map[string]*llm.JSONSchema{
				"underlying":      llm.StringProp("Underlying stock ticker"),
				"contract_type":   llm.EnumProp("Contract type", "call", "put"),
				"strike":          llm.NumberProp("Strike price"),
				"expiration_date": llm.StringProp("Expiration date, YYYY-MM-DD"),
			}),
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return resolveOptionTicker(ctx, s.Market, args)
			},
		},
		{
			Name:        "get_option_snapshot",
			Description: "Get the live snapshot of one option contract: bid/ask, mid price, greeks, implied volatility, open interest",
			Parameters: llm.ObjectSchema(map[string]*llm.JSONSchema{
				"underlying": llm.StringProp("Underlying stock ticker"),
				"contract":   llm.StringProp("OCC contract ticker, e.g. O:SPY260116C00400000"),
			}),
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				snap, err := s.Market.OptionSnapshot(ctx, strArg(args, "underlying"), strArg(args, "contract"))
				if err != nil {
					return nil, err
				}
				return struct {
					*models.OptionSnapshot
					MidPrice float64 `json:"mid_price"`
				}{snap, snap.MidPrice()}, nil
			},
		},
		{
			Name:        "get_financials",
			Description: "Fetch company financial statements (income statement, balance sheet, cash flow), newest first",
			Parameters: llm.ObjectSchema(map[string]*llm.JSONSchema{
				"ticker":    llm.StringProp("Ticker symbol"),
				"timeframe": llm.EnumProp("Report period", "quarterly", "annual"),
				"limit":     llm.IntProp("Number of reports (default 4)"),
			}),
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return s.Market.Financials(ctx, strArg(args, "ticker"), strArgDefault(args, "timeframe", "quarterly"), intArg(args, "limit", 4))
			},
		},
		{
			Name:        "get_market_news",
			Description: "Fetch recent market headlines, optionally filtered to one ticker",
			Parameters: llm.ObjectSchema(map[string]*llm.JSONSchema{
				"ticker": llm.StringProp("Ticker to filter by, empty for general market news"),
				"limit":  llm.IntProp("Maximum headlines (default 10)"),
			}),
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return s.News.Headlines(ctx, strArg(args, "ticker"), intArg(args, "limit", 10))
			},
		},
		{
			Name:        "build_chart_spec",
			Description: "Build a validated chart specification for the frontend to render. Does not render anything itself",
			Parameters: llm.ObjectSchema(map[string]*llm.JSONSchema{
				"ticker":        llm.StringProp("Ticker symbol to chart"),
				"chart_type":    llm.EnumProp("Chart rendering", "candlestick", "line", "area"),
				"timespan":      llm.EnumProp("Bar resolution", "minute", "hour", "day", "week", "month"),
				"lookback_days": llm.IntProp("Lookback window in days (default 180)"),
				"indicators":    llm.ArrayProp("Overlay studies: sma_20, sma_50, sma_200, ema_12, ema_26, rsi_14, macd, bollinger, volume", llm.StringProp("indicator name")),
				"compare_with":  llm.ArrayProp("Additional tickers to overlay for comparison", llm.StringProp("ticker symbol")),
				"title":         llm.StringProp("Chart title, empty for an automatic one"),
			}),
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				spec := models.ChartSpec{
					Ticker:       utils.NormalizeTicker(strArg(args, "ticker")),
					Type:         models.ChartType(strArg(args, "chart_type")),
					Timespan:     models.Timespan(strArg(args, "timespan")),
					LookbackDays: intArg(args, "lookback_days", 0),
					Indicators:   strSliceArg(args, "indicators"),
					CompareWith:  strSliceArg(args, "compare_with"),
					Title:        strArg(args, "title"),
				}
				if err := spec.Validate(); err != nil {
					return nil, err
				}
				if spec.Title == "" {
					spec.Title = fmt.Sprintf("%s (%d day %s)", spec.Ticker, spec.LookbackDays, spec.Type)
				}
				return spec, nil
			},
		},
		{
			Name:        "get_market_status",
			Description: "Report whether the US stock market is currently open, pre-market, after-hours, or closed",
			Parameters:  llm.ObjectSchema(nil),
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return utils.MarketStatusAt(time.Now()), nil
			},
		},
	}
}

// resolveOptionTicker narrows a contract listing to the exact contract the
// user described. Strike matching tolerates sub-cent float noise.
func resolveOptionTicker(ctx context.Context, market MarketData, args map[string]any) (any, error) {
	underlying := strArg(args, "underlying")
	strike := floatArg(args, "strike")
	expiry := strArg(args, "expiration_date")

	contracts, err := market.ListOptionContracts(ctx, underlying, datasource.ContractFilter{
		ContractType:  models.ContractType(strArg(args, "contract_type")),
		ExpirationGTE: expiry,
		ExpirationLTE: expiry,
		StrikeGTE:     strike,
		StrikeLTE:     strike,
		Limit:         10,
	})
	if err != nil {
		return nil, err
	}
	for _, c := range contracts {
		if c.ExpirationDate == expiry && c.StrikePrice-strike < 0.005 && strike-c.StrikePrice < 0.005 {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no %s %s $%g option expiring %s", underlying, strArg(args, "contract_type"), strike, expiry)
}

// ── argument helpers ──

func strArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func strArgDefault(args map[string]any, key, def string) string {
	if v := strArg(args, key); v != "" {
		return v
	}
	return def
}

// intArg reads an integer argument. JSON numbers decode as float64.
func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		if int(v) > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	}
	return def
}

func floatArg(args map[string]any, key string) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return 0
}

func strSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
