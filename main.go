package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"believescreener/config"
	"believescreener/internal/api"
	"believescreener/internal/metrics"
	"believescreener/internal/screener"
	"believescreener/logger"
	"believescreener/reader"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", config.DefaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service":     cfg.Screener.Name,
		"version":     cfg.Screener.Version,
		"environment": config.AppEnvironment(),
		"source":      cfg.Source.BaseURL,
		"known":       config.KnownTokenSymbols(),
	}).Info("starting believescreener")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cw := cfg.Metrics.CloudWatch; cw.Enabled {
		logger.InitCloudWatch(ctx, logger.CloudWatchOptions{
			Region:          cw.Region,
			Namespace:       cw.Namespace,
			AccessKeyID:     cw.AccessKeyID,
			SecretAccessKey: cw.SecretAccessKey,
		})
	}
	metrics.Configure(cfg.Metrics)

	if logger.ReportEnabled(cfg.Logging.Level) {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	pages := reader.NewPageReader(cfg.Source)
	svc := screener.NewService(pages, cfg.Scraper)

	server, err := api.NewServer(cfg.Server, svc, log)
	if err != nil {
		log.WithError(err).Error("Failed to create api server")
		os.Exit(1)
	}

	if cfg.Server.StartupScrape && !config.IsProductionLike(config.AppEnvironment()) {
		go func() {
			tokens := svc.ScrapeAllTokens(ctx)
			log.WithComponent("main").WithFields(logger.Fields{"tokens": len(tokens)}).Info("startup scrape finished")
		}()
	}

	if err := server.Run(ctx); err != nil {
		log.WithError(err).Error("api server stopped with error")
		os.Exit(1)
	}

	log.WithComponent("main").Info("believescreener stopped")
}
