package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"contenthub/internal/api"
	"contenthub/internal/channel"
	"contenthub/internal/config"
	"contenthub/internal/meta"
	"contenthub/internal/scheduler"
	"contenthub/internal/service"
	"contenthub/internal/source/notion"
	"contenthub/internal/storage/kv"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, cleanup, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	dispatcher, err := channel.NewDispatcher(channel.Config{
		URL:      cfg.RabbitMQ.URL,
		Exchange: cfg.RabbitMQ.Exchange,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer dispatcher.Close()

	source := notion.New(notion.Config{
		BaseURL:        cfg.Source.BaseURL,
		Token:          cfg.Source.Token,
		PageSize:       cfg.Source.PageSize,
		Timeout:        cfg.Source.Timeout,
		MaxAttempts:    cfg.Source.Retry.MaxAttempts,
		InitialBackoff: cfg.Source.Retry.InitialBackoff,
		MaxBackoff:     cfg.Source.Retry.MaxBackoff,
	}, logger)

	background := scheduler.NewBackground(time.Minute, logger)
	defer background.Wait()

	syncService := service.NewSyncService(source, store, cfg.Source.DatabaseIDs(), logger)
	notifyService := service.NewNotifyService(
		store,
		channel.NewPush(dispatcher),
		channel.NewEmail(dispatcher),
		channel.NewWhatsapp(dispatcher),
		channel.NewSocial(dispatcher),
		service.SiteConfig{
			URL:              cfg.Site.URL,
			CDNURL:           cfg.Site.CDNURL,
			PlaceholderImage: cfg.Site.PlaceholderImage,
		},
		logger,
	)
	metaService := service.NewMetaService(store, meta.NewScraper(nil, logger), background, cfg.Meta.TTL, logger)
	subscriptionService := service.NewSubscriptionService(store, logger)

	sched := scheduler.New(logger)
	sched.Add(scheduler.Job{
		Name:     "sync:resource",
		Interval: cfg.Sync.Interval,
		Run: func(ctx context.Context) error {
			_, err := syncService.Sync(ctx)
			return err
		},
	})
	sched.Add(scheduler.Job{
		Name:     "notify:content",
		Interval: cfg.Notify.Interval,
		Run: func(ctx context.Context) error {
			_, err := notifyService.Notify(ctx)
			return err
		},
	})
	sched.Add(scheduler.Job{
		Name:     "sync:meta-data",
		Interval: cfg.Meta.RefreshInterval,
		Run:      metaService.RefreshAll,
	})

	server := api.NewServer(store, metaService, subscriptionService, channel.NewPush(dispatcher), logger)
	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: server.Handler(),
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	logger.Info("starting content hub",
		"sync_interval", cfg.Sync.Interval,
		"notify_interval", cfg.Notify.Interval,
		"meta_refresh_interval", cfg.Meta.RefreshInterval,
	)

	if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

// openStore connects to postgres when a database host is configured and
// falls back to the filesystem store otherwise.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.Store, func(), error) {
	if cfg.Database.Host == "" {
		logger.Info("using filesystem store", "dir", cfg.Storage.Dir)
		return kv.NewFS(cfg.Storage.Dir), func() {}, nil
	}

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, nil, err
	}

	store := kv.NewPostgres(db)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	logger.Info("connected to database", "host", cfg.Database.Host)
	return store, func() { db.Close() }, nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
