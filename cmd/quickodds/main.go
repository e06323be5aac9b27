package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rewired-gh/quickodds/internal/cache/redis"
	"github.com/rewired-gh/quickodds/internal/coingecko"
	"github.com/rewired-gh/quickodds/internal/config"
	"github.com/rewired-gh/quickodds/internal/console"
	"github.com/rewired-gh/quickodds/internal/logger"
	"github.com/rewired-gh/quickodds/internal/models"
	"github.com/rewired-gh/quickodds/internal/server"
	"github.com/rewired-gh/quickodds/internal/session"
	"github.com/rewired-gh/quickodds/internal/storage"
	"github.com/rewired-gh/quickodds/internal/telegram"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	watch      = flag.String("watch", "", "Open this market (e.g. q15_bitcoin) and print live odds to the console")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logCloser := logger.Setup(logger.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	defer logCloser.Close()
	logger.Info("Configuration loaded from %s", *configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	cache, cacheCloser, err := openCache(ctx, cfg.Cache)
	if err != nil {
		logger.Fatal("Failed to initialize price cache: %v", err)
	}
	defer func() {
		if err := cacheCloser.Close(); err != nil {
			logger.Error("Failed to close price cache: %v", err)
		}
	}()

	feed := coingecko.NewClient(cfg.Feed.BaseURL, cfg.Feed.Timeout, coingecko.ClientConfig{
		VsCurrency:    cfg.Feed.VsCurrency,
		APIKey:        cfg.Feed.APIKey,
		RatePerMinute: cfg.Feed.RatePerMinute,
		RateBurst:     cfg.Feed.RateBurst,
	})

	catalog := cfg.Catalog()
	warmCache(ctx, feed, cache, catalog)

	desk := session.NewDesk(catalog, feed, cache, cfg.SessionConfig())

	if cfg.Telegram.Enabled {
		tg, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
		desk.OnExpire(func(e models.Expiry) {
			go func() {
				if err := tg.SendExpiry(e); err != nil {
					logger.Error("Failed to send Telegram expiry notification: %v", err)
				}
			}()
		})
		tg.ListenForCommands(ctx, desk)
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Server.Enabled {
		srv := server.New(cfg.Server, desk)
		g.Go(func() error { return srv.Run(gctx) })
	}

	if *watch != "" {
		con := console.New(os.Stdout)
		if listings, err := desk.Markets(ctx); err == nil {
			con.PrintMarkets(listings)
		}
		desk.Subscribe(con.HandleSnapshot)
		desk.OnExpire(con.PrintExpiry)
		if _, err := desk.Open(ctx, *watch); err != nil {
			logger.Fatal("Failed to open market %s: %v", *watch, err)
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		desk.Close()
		return nil
	})

	logger.Info("Quick-market engine running (poll: %v, market: %v, cache: %s)",
		cfg.Feed.PollInterval, cfg.Market.Duration, cfg.Cache.Backend)

	if err := g.Wait(); err != nil {
		logger.Error("Service stopped with error: %v", err)
		return
	}
	logger.Info("Service stopped")
}

func openCache(ctx context.Context, cfg config.CacheConfig) (session.Board, io.Closer, error) {
	switch cfg.Backend {
	case "redis":
		client, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return nil, nil, err
		}
		return redis.NewPriceCache(client), client, nil
	case "memory":
		return storage.NewMemory(), closerFunc(func() error { return nil }), nil
	default:
		store, err := storage.New(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// warmCache fetches every catalog price once so the first view renders a chart.
func warmCache(ctx context.Context, feed *coingecko.Client, cache session.Board, catalog *models.Catalog) {
	assets := catalog.Assets()
	ids := make([]string, len(assets))
	for i, a := range assets {
		ids[i] = a.ID
	}
	prices, err := feed.FetchSpotPrices(ctx, ids)
	if err != nil {
		logger.Warn("Failed to warm price cache: %v", err)
		return
	}
	for id, p := range prices {
		if err := cache.SetPrice(ctx, id, p); err != nil {
			logger.Warn("Failed to cache price for %s: %v", id, err)
		}
	}
	logger.Info("Price cache warmed with %d of %d assets", len(prices), len(ids))
}
