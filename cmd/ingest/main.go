// Command ingest fetches one history or symbol search and stores the result.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/yourorg/quote-vault/internal/app"
	"github.com/yourorg/quote-vault/internal/client"
	"github.com/yourorg/quote-vault/internal/config"
	"github.com/yourorg/quote-vault/internal/logging"
	"github.com/yourorg/quote-vault/internal/model"
	"github.com/yourorg/quote-vault/internal/quota"

	"go.uber.org/zap"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "path to the config file")
		assetType  = flag.String("type", "stock", "asset type: stock, forex or crypto")
		interval   = flag.String("interval", "Daily", "interval: Daily, Weekly or Monthly")
		symbol     = flag.String("symbol", "", "stock symbol, forex from-symbol or crypto code")
		toSymbol   = flag.String("to", "", "forex to-symbol")
		market     = flag.String("market", "", "crypto market")
		outputSize = flag.String("outputsize", "", "compact or full (daily only)")
		search     = flag.String("search", "", "run a symbol search instead of a history fetch")
		showQuota  = flag.Bool("quota", false, "print the remaining daily allowance and exit")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set up logger
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if cfg.AlphaVantage.APIKey == "" && !*showQuota {
		logger.Fatal("Alpha Vantage API key is not set", zap.String("env", config.APIKeyEnv))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer application.Close()

	var out any
	switch {
	case *showQuota:
		out, err = application.IngestService.Quota(ctx)
	case *search != "":
		out, err = application.IngestService.Search(ctx, *search)
	default:
		out, err = application.IngestService.IngestHistory(ctx, client.HistoryParams{
			AssetType:  model.AssetType(*assetType),
			Interval:   model.Interval(*interval),
			Symbol:     *symbol,
			ToSymbol:   *toSymbol,
			Market:     *market,
			OutputSize: *outputSize,
		})
	}
	if err != nil {
		if errors.Is(err, quota.ErrQuotaExhausted) {
			logger.Warn("Daily API limit reached, try again tomorrow", zap.Error(err))
		} else {
			logger.Error("Ingestion failed", zap.Error(err))
		}
		application.Close()
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
