package agent

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/finchat-ai/finchat/internal/datasource"
	"github.com/finchat-ai/finchat/internal/llm"
	"github.com/finchat-ai/finchat/pkg/models"
)

// fakeMarket is an in-memory MarketData for tool tests.
type fakeMarket struct {
	quotes    map[string]float64
	contracts []models.OptionContract
}

func (f *fakeMarket) LastTrade(ctx context.Context, ticker string) (*models.Quote, error) {
	price, ok := f.quotes[ticker]
	if !ok {
		return nil, fmt.Errorf("no quote for %s", ticker)
	}
	return &models.Quote{Ticker: ticker, Price: price, Timestamp: time.Now()}, nil
}

func (f *fakeMarket) PriceHistory(ctx context.Context, ticker string, mult int, timespan models.Timespan, from, to time.Time) (*models.PriceHistory, error) {
	return &models.PriceHistory{Ticker: ticker, Timespan: timespan, Multiplier: mult, Bars: []models.Aggregate{{Close: 100}}}, nil
}

func (f *fakeMarket) ListOptionContracts(ctx context.Context, underlying string, filter datasource.ContractFilter) ([]models.OptionContract, error) {
	return f.contracts, nil
}

func (f *fakeMarket) OptionSnapshot(ctx context.Context, underlying, contract string) (*models.OptionSnapshot, error) {
	return &models.OptionSnapshot{
		Contract:  models.OptionContract{Ticker: contract, Underlying: underlying},
		LastQuote: &models.OptionQuote{Bid: 10, Ask: 11},
	}, nil
}

func (f *fakeMarket) Financials(ctx context.Context, ticker, timeframe string, limit int) ([]models.FinancialReport, error) {
	return []models.FinancialReport{{Ticker: ticker, Timeframe: timeframe, FiscalPeriod: "Q2"}}, nil
}

type fakeNews struct{}

func (fakeNews) Headlines(ctx context.Context, ticker string, limit int) ([]models.NewsArticle, error) {
	return []models.NewsArticle{{Title: "Markets rally"}}, nil
}

func testSources() Sources {
	return Sources{
		Market: &fakeMarket{
			quotes: map[string]float64{"AAPL": 184.25},
			contracts: []models.OptionContract{
				{Ticker: "O:SPY260116C00400000", Underlying: "SPY", ContractType: models.ContractCall, StrikePrice: 400, ExpirationDate: "2026-01-16"},
				{Ticker: "O:SPY260116C00410000", Underlying: "SPY", ContractType: models.ContractCall, StrikePrice: 410, ExpirationDate: "2026-01-16"},
			},
		},
		News: fakeNews{},
	}
}

func findTool(t *testing.T, tools []llm.Tool, name string) llm.Tool {
	t.Helper()
	for _, tool := range tools {
		if tool.Name == name {
			return tool
		}
	}
	t.Fatalf("tool %s not found", name)
	return llm.Tool{}
}

func TestMemoryWindow(t *testing.T) {
	m := NewMemory(4)
	for i := 0; i < 6; i++ {
		m.Add(llm.Message{Role: llm.RoleUser, Content: fmt.Sprintf("msg %d", i)})
	}
	msgs := m.Messages()
	if len(msgs) != 4 {
		t.Fatalf("window = %d", len(msgs))
	}
	if msgs[0].Content != "msg 2" {
		t.Fatalf("oldest kept = %q", msgs[0].Content)
	}

	m.Clear()
	if m.Size() != 0 {
		t.Fatalf("size after clear = %d", m.Size())
	}
}

func TestBuildToolsRegistersAll(t *testing.T) {
	tools := buildTools(testSources())

	want := []string{
		"get_stock_price", "get_price_history", "list_option_contracts",
		"resolve_option_ticker", "get_option_snapshot", "get_financials",
		"get_market_news", "build_chart_spec", "get_market_status",
	}
	if len(tools) != len(want) {
		t.Fatalf("tools = %d, want %d", len(tools), len(want))
	}
	for _, name := range want {
		findTool(t, tools, name)
	}
}

func TestResolveOptionTicker(t *testing.T) {
	tool := findTool(t, buildTools(testSources()), "resolve_option_ticker")

	result, err := tool.Handler(context.Background(), map[string]any{
		"underlying":      "SPY",
		"contract_type":   "call",
		"strike":          400.0,
		"expiration_date": "2026-01-16",
	})
	if err != nil {
		t.Fatal(err)
	}
	contract := result.(models.OptionContract)
	if contract.Ticker != "O:SPY260116C00400000" {
		t.Fatalf("resolved %q", contract.Ticker)
	}

	_, err = tool.Handler(context.Background(), map[string]any{
		"underlying":      "SPY",
		"contract_type":   "call",
		"strike":          405.0,
		"expiration_date": "2026-01-16",
	})
	if err == nil {
		t.Fatal("strike with no listed contract must fail")
	}
}

func TestOptionSnapshotToolIncludesMid(t *testing.T) {
	tool := findTool(t, buildTools(testSources()), "get_option_snapshot")

	result, err := tool.Handler(context.Background(), map[string]any{
		"underlying": "SPY",
		"contract":   "O:SPY260116C00400000",
	})
	if err != nil {
		t.Fatal(err)
	}
	mid := result.(struct {
		*models.OptionSnapshot
		MidPrice float64 `json:"mid_price"`
	}).MidPrice
	if mid != 10.5 {
		t.Fatalf("mid = %v", mid)
	}
}

func TestBuildChartSpecTool(t *testing.T) {
	tool := findTool(t, buildTools(testSources()), "build_chart_spec")

	result, err := tool.Handler(context.Background(), map[string]any{
		"ticker":     "nvda",
		"indicators": []any{"sma_50", "volume"},
	})
	if err != nil {
		t.Fatal(err)
	}
	spec := result.(models.ChartSpec)
	if spec.Ticker != "NVDA" || spec.Type != models.ChartCandlestick || spec.LookbackDays != 180 {
		t.Fatalf("spec = %+v", spec)
	}
	if spec.Title == "" {
		t.Fatal("expected an automatic title")
	}

	_, err = tool.Handler(context.Background(), map[string]any{
		"ticker":     "NVDA",
		"indicators": []any{"astrology"},
	})
	if err == nil {
		t.Fatal("unknown indicator must fail validation")
	}
}

func TestChatRunsToolLoopAndRemembers(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		if requests == 1 {
			fmt.Fprint(w, `{
				"id": "resp_1",
				"output": [{"type": "function_call", "call_id": "call_1", "name": "get_stock_price", "arguments": "{\"ticker\":\"AAPL\"}"}],
				"usage": {"input_tokens": 10, "output_tokens": 5, "total_tokens": 15}
			}`)
			return
		}
		fmt.Fprint(w, `{
			"id": "resp_2",
			"output": [{"type": "message", "role": "assistant", "content": [{"type": "output_text", "text": "AAPL last traded at $184.25."}]}],
			"usage": {"input_tokens": 10, "output_tokens": 5, "total_tokens": 15}
		}`)
	}))
	defer srv.Close()

	client, err := llm.NewClient("test-key", llm.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	analyst := NewAnalyst(Config{Client: client, Sources: testSources()})

	var calls []string
	result, err := analyst.Chat(context.Background(), "What is AAPL trading at?", nil, func(rec llm.ToolCallRecord) {
		calls = append(calls, rec.ToolName)
	})
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(result.Content, "184.25") {
		t.Fatalf("content = %q", result.Content)
	}
	if len(calls) != 1 || calls[0] != "get_stock_price" {
		t.Fatalf("observed calls = %v", calls)
	}
	if result.Tokens != 30 {
		t.Fatalf("tokens = %d", result.Tokens)
	}

	// The exchange landed in memory as plain text.
	msgs := analyst.Memory().Messages()
	if len(msgs) != 2 || msgs[0].Role != llm.RoleUser || msgs[1].Role != llm.RoleAssistant {
		t.Fatalf("memory = %+v", msgs)
	}
}

func TestAskDoesNotTouchMemory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"id": "resp_1",
			"output": [{"type": "message", "role": "assistant", "content": [{"type": "output_text", "text": "hello"}]}],
			"usage": {}
		}`)
	}))
	defer srv.Close()

	client, err := llm.NewClient("test-key", llm.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	analyst := NewAnalyst(Config{Client: client, Sources: testSources()})
	if _, err := analyst.Ask(context.Background(), "hi", nil, nil); err != nil {
		t.Fatal(err)
	}
	if analyst.Memory().Size() != 0 {
		t.Fatal("Ask must not write to memory")
	}
}
