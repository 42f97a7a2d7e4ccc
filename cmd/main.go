package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"strangerlink/backend/internal/api/handler"
	"strangerlink/backend/internal/chathub"
	"strangerlink/backend/internal/complaint"
	"strangerlink/backend/internal/config"
	"strangerlink/backend/internal/localization"
	"strangerlink/backend/internal/logging"
	"strangerlink/backend/internal/ratelimit"
	"strangerlink/backend/internal/storage"
	"strangerlink/backend/internal/telegram"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(ctx context.Context, cfg config.Config) (*gorm.DB, *redis.Client, error) {
	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
		if err != nil {
			return nil, nil, err
		}
		slog.Info("postgres archive enabled")
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		// Перевірка з'єднання Redis
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, err
		}
		slog.Info("redis enabled", "addr", cfg.RedisAddr)
	}
	return db, rdb, nil
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logging.Init(cfg.LogLevel)
	slog.Info("starting strangerlink backend", "port", cfg.Port, "policy", cfg.MatchPolicy)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Ініціалізація залежностей
	db, rdb, err := setupDependencies(ctx, cfg)
	if err != nil {
		slog.Error("failed to connect dependencies", "err", err)
		os.Exit(1)
	}
	s := storage.NewStorageService(db, rdb)
	if err := s.Migrate(); err != nil {
		slog.Error("failed to run migrations", "err", err)
		os.Exit(1)
	}

	// 2. Ядро: hub, менеджер, скарги
	var tap chathub.EventPublisher
	if rdb != nil {
		tap = s
	}
	hub := chathub.NewHub(tap)

	policy, err := chathub.ParsePolicy(cfg.MatchPolicy)
	if err != nil {
		slog.Error("invalid match policy", "err", err)
		os.Exit(1)
	}
	opts := chathub.Options{
		Policy:            policy,
		ReaperInterval:    cfg.ReaperInterval,
		InactivityTimeout: cfg.InactivityTimeout,
		Notifier:          hub,
	}
	if db != nil {
		opts.Archiver = chathub.NewStorageArchiver(s)
	}
	if rdb != nil {
		opts.BanChecker = s
	}
	manager := chathub.NewManagerService(opts)
	complaints := complaint.NewService(manager, s)

	var limiter handler.Limiter
	if rdb != nil && cfg.StartRateLimitPerMinute > 0 {
		l, err := ratelimit.NewFixedWindowLimiter(rdb, "strangerlink:ratelimit:start", cfg.StartRateLimitPerMinute, time.Minute)
		if err != nil {
			slog.Error("failed to create rate limiter", "err", err)
			os.Exit(1)
		}
		limiter = l
	}

	// 3. HTTP
	h := handler.NewHandler(manager, hub, complaints, limiter, cfg.JWTSecret)
	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        h.Router(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// 4. Запуск основних goroutines
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		manager.Run(gctx)
		return nil
	})

	if cfg.TelegramBotToken != "" {
		l, err := localization.Bundled()
		if err != nil {
			slog.Error("failed to load locales", "err", err)
			os.Exit(1)
		}
		api, err := telegram.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			slog.Error("failed to start telegram bot", "err", err)
			os.Exit(1)
		}
		bot := telegram.NewBotService(api, manager, hub, complaints, l)
		g.Go(func() error {
			bot.Run(gctx, api)
			return nil
		})
	} else {
		slog.Info("TELEGRAM_BOT_TOKEN not set, telegram transport disabled")
	}

	if err := g.Wait(); err != nil {
		slog.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	slog.Info("server stopped")
}
