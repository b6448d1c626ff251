package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"stocktrends/internal/config"
	"stocktrends/internal/engine"
	"stocktrends/internal/httpapi"
	"stocktrends/internal/marketdata"
	"stocktrends/internal/store"
	"stocktrends/internal/util"
)

func main() {
	cfgPath := "config/stocktrends.yaml"
	if p := os.Getenv("STOCKTRENDS_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	st, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Error("opening store", "path", cfg.Storage.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	source := newSource(cfg, log)
	srv := httpapi.NewServer(engine.New(st), st, source, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}

// newSource builds the market-data source: Alpaca with a parquet news cache
// when credentials are configured, otherwise a static offline price table.
func newSource(cfg *config.Config, log *slog.Logger) marketdata.Source {
	if cfg.Alpaca.APIKey == "" {
		log.Warn("no Alpaca API key configured, using static offline prices")
		return marketdata.NewStaticSource(map[string]decimal.Decimal{
			"AAPL": decimal.RequireFromString("190.50"),
			"MSFT": decimal.RequireFromString("420.25"),
			"GOOG": decimal.RequireFromString("155.10"),
			"AMZN": decimal.RequireFromString("185.75"),
			"TSLA": decimal.RequireFromString("245.00"),
		})
	}

	alpaca := marketdata.NewAlpacaSource(marketdata.AlpacaOpts{
		APIKey:          cfg.Alpaca.APIKey,
		APISecret:       cfg.Alpaca.APISecret,
		BaseURL:         cfg.Alpaca.BaseURL,
		DataURL:         cfg.Alpaca.DataURL,
		RateLimitPerMin: cfg.MarketData.RateLimitPerMin,
		Retries:         cfg.MarketData.Retries,
	})
	return marketdata.NewCachedNewsSource(alpaca, cfg.Storage.DataDir)
}
