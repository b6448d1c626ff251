package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"stocktrends/internal/util"
)

// Compile-time interface check.
var _ Source = (*AlpacaSource)(nil)

// AlpacaSource implements Source on the Alpaca market-data and trading APIs.
// All provider calls go through a token-bucket rate limiter (free-tier quota)
// and a short retry loop.
type AlpacaSource struct {
	md      *marketdata.Client
	trading *alpaca.Client
	limiter *util.RateLimiter
	retries int
	log     *slog.Logger

	// Asset list for ticker search, fetched on first use. A failed fetch is
	// retried on the next call.
	assetsMu sync.Mutex
	assets   []SymbolInfo
}

// AlpacaOpts configures an AlpacaSource.
type AlpacaOpts struct {
	APIKey          string
	APISecret       string
	BaseURL         string // trading API (assets)
	DataURL         string // market-data API
	RateLimitPerMin int
	Retries         int
}

// NewAlpacaSource creates an AlpacaSource with the given credentials and
// endpoints.
func NewAlpacaSource(opts AlpacaOpts) *AlpacaSource {
	mdOpts := marketdata.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
	}
	if opts.DataURL != "" {
		mdOpts.BaseURL = opts.DataURL
	}

	tradingOpts := alpaca.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
	}
	if opts.BaseURL != "" {
		tradingOpts.BaseURL = opts.BaseURL
	}

	perMin := opts.RateLimitPerMin
	if perMin <= 0 {
		perMin = 200
	}
	retries := opts.Retries
	if retries <= 0 {
		retries = 3
	}

	return &AlpacaSource{
		md:      marketdata.NewClient(mdOpts),
		trading: alpaca.NewClient(tradingOpts),
		limiter: util.NewRateLimiter(perMin),
		retries: retries,
		log:     slog.Default().With("source", "alpaca"),
	}
}

// call rate-limits and retries one provider request.
func (s *AlpacaSource) call(ctx context.Context, fn func() error) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return util.Retry(ctx, s.retries, 500*time.Millisecond, fn)
}

// CurrentPrice returns the price of the latest trade for the symbol.
func (s *AlpacaSource) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = strings.ToUpper(symbol)

	var trade *marketdata.Trade
	err := s.call(ctx, func() error {
		var err error
		trade, err = s.md.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
		return err
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("latest trade for %s: %w", symbol, err)
	}
	if trade == nil {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	return decimal.NewFromFloat(trade.Price), nil
}

// DailyBars returns daily bars covering the last n calendar days.
func (s *AlpacaSource) DailyBars(ctx context.Context, symbol string, days int) ([]Bar, error) {
	symbol = strings.ToUpper(symbol)
	if days <= 0 {
		days = 30
	}
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	var bars []marketdata.Bar
	err := s.call(ctx, func() error {
		var err error
		bars, err = s.md.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     start,
			End:       end,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("daily bars for %s: %w", symbol, err)
	}

	return convertBars(bars), nil
}

// IntradayBars returns today's bars at the given minute interval.
func (s *AlpacaSource) IntradayBars(ctx context.Context, symbol string, intervalMinutes int) ([]Bar, error) {
	symbol = strings.ToUpper(symbol)
	switch intervalMinutes {
	case 1, 5, 15, 30, 60:
	default:
		intervalMinutes = 5
	}

	end := time.Now().UTC()
	start := end.Truncate(24 * time.Hour)

	var bars []marketdata.Bar
	err := s.call(ctx, func() error {
		var err error
		bars, err = s.md.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame: marketdata.NewTimeFrame(intervalMinutes, marketdata.Min),
			Start:     start,
			End:       end,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("intraday bars for %s: %w", symbol, err)
	}

	return convertBars(bars), nil
}

// News returns recent articles for the symbol from the last week.
func (s *AlpacaSource) News(ctx context.Context, symbol string, limit int) ([]Article, error) {
	symbol = strings.ToUpper(symbol)
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -7)

	var news []marketdata.News
	err := s.call(ctx, func() error {
		var err error
		news, err = s.md.GetNews(marketdata.GetNewsRequest{
			Symbols:    []string{symbol},
			Start:      start,
			End:        end,
			TotalLimit: limit,
			Sort:       marketdata.SortAsc,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("news for %s: %w", symbol, err)
	}

	articles := make([]Article, 0, len(news))
	for _, n := range news {
		articles = append(articles, Article{
			Time:     n.CreatedAt,
			Source:   "alpaca",
			Headline: n.Headline,
			Summary:  n.Summary,
			URL:      n.URL,
		})
	}
	return articles, nil
}

// SearchSymbols returns active tradable tickers starting with prefix. The
// asset list is fetched once and held for the process lifetime.
func (s *AlpacaSource) SearchSymbols(ctx context.Context, prefix string, limit int) ([]SymbolInfo, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	assets, err := s.loadAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}

	var matches []SymbolInfo
	for _, info := range assets {
		if strings.HasPrefix(info.Symbol, prefix) {
			matches = append(matches, info)
			if len(matches) == limit {
				break
			}
		}
	}
	return matches, nil
}

func (s *AlpacaSource) loadAssets(ctx context.Context) ([]SymbolInfo, error) {
	s.assetsMu.Lock()
	defer s.assetsMu.Unlock()

	if s.assets != nil {
		return s.assets, nil
	}

	var infos []SymbolInfo
	err := s.call(ctx, func() error {
		assets, err := s.trading.GetAssets(alpaca.GetAssetsRequest{Status: "active"})
		if err != nil {
			return err
		}
		infos = make([]SymbolInfo, 0, len(assets))
		for _, a := range assets {
			if !a.Tradable {
				continue
			}
			infos = append(infos, SymbolInfo{
				Symbol:   a.Symbol,
				Name:     a.Name,
				Exchange: a.Exchange,
			})
		}
		return nil
	})
	if err != nil {
		s.log.Warn("loading asset list", "error", err)
		return nil, err
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Symbol < infos[j].Symbol })
	s.assets = infos
	return s.assets, nil
}

func convertBars(bars []marketdata.Bar) []Bar {
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		out = append(out, Bar{
			Time:   b.Timestamp,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: int64(b.Volume),
		})
	}
	return out
}
