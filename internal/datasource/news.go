package datasource

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/finchat-ai/finchat/internal/infra"
	"github.com/finchat-ai/finchat/pkg/models"
	"github.com/finchat-ai/finchat/pkg/utils"
)

// Default financial news feeds. Overridable via config.
var defaultNewsFeeds = []string{
	"https://feeds.a.dj.com/rss/RSSMarketsMain.xml",
	"https://www.cnbc.com/id/100003114/device/rss/rss.html",
	"https://finance.yahoo.com/news/rssindex",
}

// tickerKeywords maps tickers to company names used for headline matching.
// Headline filters match either the ticker symbol or any keyword.
var tickerKeywords = map[string][]string{
	"AAPL":  {"apple"},
	"MSFT":  {"microsoft"},
	"GOOGL": {"google", "alphabet"},
	"AMZN":  {"amazon"},
	"META":  {"meta", "facebook"},
	"NVDA":  {"nvidia"},
	"TSLA":  {"tesla", "musk"},
	"NFLX":  {"netflix"},
	"AMD":   {"amd", "advanced micro"},
	"INTC":  {"intel"},
	"JPM":   {"jpmorgan", "jp morgan"},
	"GS":    {"goldman"},
	"BAC":   {"bank of america"},
	"SPY":   {"s&p 500", "s&p500"},
	"QQQ":   {"nasdaq"},
	"DIA":   {"dow jones"},
}

// NewsSource aggregates headlines from RSS feeds.
type NewsSource struct {
	feeds   []string
	parser  *gofeed.Parser
	cache   *infra.Cache
	logger  *slog.Logger
	timeout time.Duration
}

// NewsOption configures a NewsSource.
type NewsOption func(*NewsSource)

// WithNewsFeeds replaces the default feed list.
func WithNewsFeeds(feeds []string) NewsOption {
	return func(n *NewsSource) {
		if len(feeds) > 0 {
			n.feeds = feeds
		}
	}
}

// WithNewsLogger sets the structured logger.
func WithNewsLogger(l *slog.Logger) NewsOption {
	return func(n *NewsSource) { n.logger = l }
}

// NewNewsSource builds a news source with a 5 minute headline cache.
func NewNewsSource(opts ...NewsOption) *NewsSource {
	n := &NewsSource{
		feeds:   defaultNewsFeeds,
		parser:  gofeed.NewParser(),
		cache:   infra.NewCache(5 * time.Minute),
		logger:  slog.Default(),
		timeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Headlines returns recent market headlines, newest first. When ticker is
// non-empty only articles mentioning the symbol or its company keywords
// are returned. A feed that fails to fetch is logged and skipped.
func (n *NewsSource) Headlines(ctx context.Context, ticker string, limit int) ([]models.NewsArticle, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	ticker = utils.NormalizeTicker(ticker)

	articles, err := n.allArticles(ctx)
	if err != nil {
		return nil, err
	}
	if ticker != "" {
		articles = filterByTicker(articles, ticker)
	}
	if len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, nil
}

func (n *NewsSource) allArticles(ctx context.Context) ([]models.NewsArticle, error) {
	if v, ok := n.cache.Get("headlines"); ok {
		return v.([]models.NewsArticle), nil
	}

	var all []models.NewsArticle
	for _, feedURL := range n.feeds {
		fctx, cancel := context.WithTimeout(ctx, n.timeout)
		feed, err := n.parser.ParseURLWithContext(feedURL, fctx)
		cancel()
		if err != nil {
			n.logger.Warn("news feed fetch failed", "feed", feedURL, "error", err)
			continue
		}

		source := feed.Title
		for _, item := range feed.Items {
			published := time.Now()
			if item.PublishedParsed != nil {
				published = *item.PublishedParsed
			}
			all = append(all, models.NewsArticle{
				Title:       strings.TrimSpace(item.Title),
				URL:         item.Link,
				Source:      source,
				Summary:     cleanHTML(item.Description),
				PublishedAt: published,
			})
		}
	}
	if len(all) == 0 {
		return nil, ErrUnexpected
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].PublishedAt.After(all[j].PublishedAt)
	})
	n.cache.Set("headlines", all)
	return all, nil
}

// filterByTicker keeps articles whose title or summary mention the ticker
// symbol or one of its company keywords.
func filterByTicker(articles []models.NewsArticle, ticker string) []models.NewsArticle {
	needles := []string{strings.ToLower(ticker)}
	needles = append(needles, tickerKeywords[ticker]...)

	var out []models.NewsArticle
	for _, a := range articles {
		haystack := strings.ToLower(a.Title + " " + a.Summary)
		for _, needle := range needles {
			if strings.Contains(haystack, needle) {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// cleanHTML strips markup from a feed description, keeping the text.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	text := strings.TrimSpace(doc.Text())
	if len(text) > 500 {
		text = text[:500] + "..."
	}
	return text
}
