// Package datasource provides market data access for the agent's tools:
// quotes, aggregates, option chains, fundamentals from Polygon.io, and
// headlines from RSS feeds. All sources share a TTL cache and a
// token-bucket rate limiter.
package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/finchat-ai/finchat/internal/infra"
	"github.com/finchat-ai/finchat/pkg/models"
	"github.com/finchat-ai/finchat/pkg/utils"
)

// Sentinel errors for the data layer.
var (
	ErrNoAPIKey   = errors.New("polygon: no API key configured")
	ErrNotFound   = errors.New("polygon: not found")
	ErrRateLimit  = errors.New("polygon: rate limit exceeded")
	ErrUnexpected = errors.New("polygon: unexpected response")
)

const (
	defaultPolygonBaseURL = "https://api.polygon.io"
	maxContractPages      = 5
)

// PolygonClient fetches market data from the Polygon.io REST API.
type PolygonClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      *infra.Cache
	limiter    *infra.RateLimiter
	logger     *slog.Logger
}

// PolygonOption configures a PolygonClient.
type PolygonOption func(*PolygonClient)

// WithPolygonBaseURL overrides the API endpoint.
func WithPolygonBaseURL(u string) PolygonOption {
	return func(c *PolygonClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithPolygonHTTPClient replaces the underlying HTTP client.
func WithPolygonHTTPClient(hc *http.Client) PolygonOption {
	return func(c *PolygonClient) { c.httpClient = hc }
}

// WithPolygonCacheTTL sets the default cache TTL.
func WithPolygonCacheTTL(ttl time.Duration) PolygonOption {
	return func(c *PolygonClient) { c.cache = infra.NewCache(ttl) }
}

// WithPolygonRateLimit sets the request budget per minute.
func WithPolygonRateLimit(perMinute int) PolygonOption {
	return func(c *PolygonClient) { c.limiter = infra.NewRateLimiter(perMinute, time.Minute) }
}

// WithPolygonLogger sets the structured logger.
func WithPolygonLogger(l *slog.Logger) PolygonOption {
	return func(c *PolygonClient) { c.logger = l }
}

// NewPolygonClient builds a client. The API key is required.
func NewPolygonClient(apiKey string, opts ...PolygonOption) (*PolygonClient, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	c := &PolygonClient{
		apiKey:     apiKey,
		baseURL:    defaultPolygonBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      infra.NewCache(time.Minute),
		limiter:    infra.NewRateLimiter(5, time.Minute),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// doGet performs a rate-limited GET and decodes the JSON body into out.
// path may be absolute (a next_url from pagination) or relative to the
// base URL. The API key rides as a query parameter.
func (c *PolygonClient) doGet(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	full := path
	if !strings.HasPrefix(path, "http") {
		full = c.baseURL + path
	}
	u, err := url.Parse(full)
	if err != nil {
		return fmt.Errorf("polygon: bad url %q: %w", path, err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	q.Set("apiKey", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}

	c.logger.Debug("polygon request", "path", u.Path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("polygon: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("polygon: reading body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimit
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrNoAPIKey
	default:
		return fmt.Errorf("%w: status %d: %s", ErrUnexpected, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpected, err)
	}
	return nil
}

// LastTrade returns the most recent trade for a stock ticker.
func (c *PolygonClient) LastTrade(ctx context.Context, ticker string) (*models.Quote, error) {
	ticker = utils.NormalizeTicker(ticker)
	key := "trade:" + ticker
	if v, ok := c.cache.Get(key); ok {
		return v.(*models.Quote), nil
	}

	var resp struct {
		Status  string `json:"status"`
		Results struct {
			Price     float64 `json:"p"`
			Size      float64 `json:"s"`
			Timestamp int64   `json:"t"` // nanoseconds
		} `json:"results"`
	}
	if err := c.doGet(ctx, "/v2/last/trade/"+ticker, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Results.Price == 0 {
		return nil, fmt.Errorf("%w: no trade for %s", ErrNotFound, ticker)
	}

	q := &models.Quote{
		Ticker:    ticker,
		Price:     resp.Results.Price,
		Size:      resp.Results.Size,
		Timestamp: time.Unix(0, resp.Results.Timestamp),
	}
	c.cache.SetWithTTL(key, q, 15*time.Second)
	return q, nil
}

// aggsResponse is the shared envelope for aggregate bar queries.
type aggsResponse struct {
	Ticker       string `json:"ticker"`
	ResultsCount int    `json:"resultsCount"`
	Results      []struct {
		Open      float64 `json:"o"`
		High      float64 `json:"h"`
		Low       float64 `json:"l"`
		Close     float64 `json:"c"`
		Volume    float64 `json:"v"`
		VWAP      float64 `json:"vw"`
		Timestamp int64   `json:"t"` // milliseconds
	} `json:"results"`
}

// PriceHistory returns OHLCV bars for a ticker over [from, to].
func (c *PolygonClient) PriceHistory(ctx context.Context, ticker string, mult int, timespan models.Timespan, from, to time.Time) (*models.PriceHistory, error) {
	ticker = utils.NormalizeTicker(ticker)
	if !models.ValidTimespan(string(timespan)) {
		return nil, fmt.Errorf("polygon: invalid timespan %q", timespan)
	}
	if mult <= 0 {
		mult = 1
	}

	key := fmt.Sprintf("aggs:%s:%d:%s:%s:%s", ticker, mult, timespan, utils.FormatDateET(from), utils.FormatDateET(to))
	if v, ok := c.cache.Get(key); ok {
		return v.(*models.PriceHistory), nil
	}

	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/%d/%s/%s/%s",
		ticker, mult, timespan, utils.FormatDateET(from), utils.FormatDateET(to))
	params := url.Values{
		"adjusted": {"true"},
		"sort":     {"asc"},
		"limit":    {"5000"},
	}

	var resp aggsResponse
	if err := c.doGet(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	if resp.ResultsCount == 0 {
		return nil, fmt.Errorf("%w: no bars for %s", ErrNotFound, ticker)
	}

	h := &models.PriceHistory{
		Ticker:     ticker,
		Timespan:   timespan,
		Multiplier: mult,
		Adjusted:   true,
		From:       utils.FormatDateET(from),
		To:         utils.FormatDateET(to),
		Bars:       make([]models.Aggregate, 0, len(resp.Results)),
	}
	for _, r := range resp.Results {
		h.Bars = append(h.Bars, models.Aggregate{
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.Volume,
			VWAP:      r.VWAP,
			Timestamp: time.UnixMilli(r.Timestamp),
		})
	}
	c.cache.Set(key, h)
	return h, nil
}

// ContractFilter narrows an option contract listing.
type ContractFilter struct {
	ContractType  models.ContractType // call, put, or empty for both
	ExpirationGTE string              // YYYY-MM-DD
	ExpirationLTE string
	StrikeGTE     float64
	StrikeLTE     float64
	Limit         int
}

// ListOptionContracts lists active contracts for an underlying, following
// pagination until the filter's limit or the page cap is reached.
func (c *PolygonClient) ListOptionContracts(ctx context.Context, underlying string, filter ContractFilter) ([]models.OptionContract, error) {
	underlying = utils.NormalizeTicker(underlying)
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	params := url.Values{
		"underlying_ticker": {underlying},
		"limit":             {fmt.Sprint(limit)},
		"sort":              {"expiration_date"},
		"order":             {"asc"},
	}
	if filter.ContractType != "" {
		params.Set("contract_type", string(filter.ContractType))
	}
	if filter.ExpirationGTE != "" {
		params.Set("expiration_date.gte", filter.ExpirationGTE)
	}
	if filter.ExpirationLTE != "" {
		params.Set("expiration_date.lte", filter.ExpirationLTE)
	}
	if filter.StrikeGTE > 0 {
		params.Set("strike_price.gte", fmt.Sprint(filter.StrikeGTE))
	}
	if filter.StrikeLTE > 0 {
		params.Set("strike_price.lte", fmt.Sprint(filter.StrikeLTE))
	}

	type page struct {
		Results []struct {
			Ticker         string  `json:"ticker"`
			Underlying     string  `json:"underlying_ticker"`
			ContractType   string  `json:"contract_type"`
			StrikePrice    float64 `json:"strike_price"`
			ExpirationDate string  `json:"expiration_date"`
			SharesPer      float64 `json:"shares_per_contract"`
		} `json:"results"`
		NextURL string `json:"next_url"`
	}

	var contracts []models.OptionContract
	path := "/v3/reference/options/contracts"
	for pages := 0; pages < maxContractPages; pages++ {
		var p page
		if err := c.doGet(ctx, path, params, &p); err != nil {
			return nil, err
		}
		for _, r := range p.Results {
			contracts = append(contracts, models.OptionContract{
				Ticker:         r.Ticker,
				Underlying:     r.Underlying,
				ContractType:   models.ContractType(r.ContractType),
				StrikePrice:    r.StrikePrice,
				ExpirationDate: r.ExpirationDate,
				SharesPer:      r.SharesPer,
			})
		}
		if p.NextURL == "" || len(contracts) >= limit {
			break
		}
		// next_url already encodes the query; only the key is re-added.
		path = p.NextURL
		params = nil
	}

	if len(contracts) == 0 {
		return nil, fmt.Errorf("%w: no contracts for %s", ErrNotFound, underlying)
	}
	if len(contracts) > limit {
		contracts = contracts[:limit]
	}
	return contracts, nil
}

// OptionSnapshot returns quote, greeks, and open interest for one
// contract. The contract ticker must be in OCC form, e.g.
// O:SPY260116C00400000.
func (c *PolygonClient) OptionSnapshot(ctx context.Context, underlying, contract string) (*models.OptionSnapshot, error) {
	underlying = utils.NormalizeTicker(underlying)
	contract = utils.NormalizeOptionTicker(contract)

	key := "osnap:" + contract
	if v, ok := c.cache.Get(key); ok {
		return v.(*models.OptionSnapshot), nil
	}

	// Strike and expiry live under details, not at the top level.
	var resp struct {
		Status  string `json:"status"`
		Results struct {
			Details struct {
				Ticker         string  `json:"ticker"`
				ContractType   string  `json:"contract_type"`
				StrikePrice    float64 `json:"strike_price"`
				ExpirationDate string  `json:"expiration_date"`
			} `json:"details"`
			Greeks struct {
				Delta float64 `json:"delta"`
				Gamma float64 `json:"gamma"`
				Theta float64 `json:"theta"`
				Vega  float64 `json:"vega"`
			} `json:"greeks"`
			LastQuote struct {
				Bid float64 `json:"bid"`
				Ask float64 `json:"ask"`
			} `json:"last_quote"`
			LastTrade struct {
				Price float64 `json:"price"`
			} `json:"last_trade"`
			ImpliedVolatility float64 `json:"implied_volatility"`
			OpenInterest      float64 `json:"open_interest"`
			Day               struct {
				Volume float64 `json:"volume"`
			} `json:"day"`
		} `json:"results"`
	}

	path := fmt.Sprintf("/v3/snapshot/options/%s/%s", underlying, contract)
	if err := c.doGet(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Results.Details.Ticker == "" {
		return nil, fmt.Errorf("%w: contract %s", ErrNotFound, contract)
	}

	snap := &models.OptionSnapshot{
		Contract: models.OptionContract{
			Ticker:         resp.Results.Details.Ticker,
			Underlying:     underlying,
			ContractType:   models.ContractType(resp.Results.Details.ContractType),
			StrikePrice:    resp.Results.Details.StrikePrice,
			ExpirationDate: resp.Results.Details.ExpirationDate,
		},
		ImpliedVolatility: resp.Results.ImpliedVolatility,
		OpenInterest:      resp.Results.OpenInterest,
	}
	if g := resp.Results.Greeks; g.Delta != 0 || g.Gamma != 0 || g.Theta != 0 || g.Vega != 0 {
		snap.Greeks = &models.Greeks{Delta: g.Delta, Gamma: g.Gamma, Theta: g.Theta, Vega: g.Vega}
	}
	if q := resp.Results.LastQuote; q.Bid > 0 || q.Ask > 0 {
		snap.LastQuote = &models.OptionQuote{Bid: q.Bid, Ask: q.Ask}
	}
	if tr := resp.Results.LastTrade; tr.Price > 0 {
		snap.LastTrade = &models.OptionTrade{Price: tr.Price}
	}
	c.cache.SetWithTTL(key, snap, 30*time.Second)
	return snap, nil
}

// Financials returns fundamental reports, newest first by period of
// report date. timeframe is quarterly or annual.
func (c *PolygonClient) Financials(ctx context.Context, ticker, timeframe string, limit int) ([]models.FinancialReport, error) {
	ticker = utils.NormalizeTicker(ticker)
	if timeframe != "quarterly" && timeframe != "annual" {
		return nil, fmt.Errorf("polygon: invalid timeframe %q", timeframe)
	}
	if limit <= 0 || limit > 20 {
		limit = 4
	}

	key := fmt.Sprintf("fin:%s:%s:%d", ticker, timeframe, limit)
	if v, ok := c.cache.Get(key); ok {
		return v.([]models.FinancialReport), nil
	}

	params := url.Values{
		"ticker":    {ticker},
		"timeframe": {timeframe},
		"limit":     {fmt.Sprint(limit)},
		"order":     {"desc"},
		"sort":      {"period_of_report_date"},
	}

	var resp struct {
		Results []struct {
			CompanyName        string `json:"company_name"`
			FiscalPeriod       string `json:"fiscal_period"`
			FiscalYear         string `json:"fiscal_year"`
			PeriodOfReportDate string `json:"period_of_report_date"`
			Timeframe          string `json:"timeframe"`
			Financials         struct {
				IncomeStatement   models.FinancialStatement `json:"income_statement"`
				BalanceSheet      models.FinancialStatement `json:"balance_sheet"`
				CashFlowStatement models.FinancialStatement `json:"cash_flow_statement"`
			} `json:"financials"`
		} `json:"results"`
	}
	if err := c.doGet(ctx, "/vX/reference/financials", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("%w: no financials for %s", ErrNotFound, ticker)
	}

	reports := make([]models.FinancialReport, 0, len(resp.Results))
	for _, r := range resp.Results {
		reports = append(reports, models.FinancialReport{
			Ticker:             ticker,
			CompanyName:        r.CompanyName,
			FiscalPeriod:       r.FiscalPeriod,
			FiscalYear:         r.FiscalYear,
			PeriodOfReportDate: r.PeriodOfReportDate,
			Timeframe:          r.Timeframe,
			IncomeStatement:    r.Financials.IncomeStatement,
			BalanceSheet:       r.Financials.BalanceSheet,
			CashFlowStatement:  r.Financials.CashFlowStatement,
		})
	}
	c.cache.SetWithTTL(key, reports, time.Hour)
	return reports, nil
}
