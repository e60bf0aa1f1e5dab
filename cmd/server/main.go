package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/pharmacy-checkout/internal/checkout"
	"github.com/example/pharmacy-checkout/internal/config"
	"github.com/example/pharmacy-checkout/internal/database"
	"github.com/example/pharmacy-checkout/internal/handlers"
	"github.com/example/pharmacy-checkout/internal/notify"
	"github.com/example/pharmacy-checkout/internal/routes"
	"github.com/example/pharmacy-checkout/internal/sessionstore"
	"github.com/example/pharmacy-checkout/internal/shape"
	"github.com/example/pharmacy-checkout/internal/storefront"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}

	log := newLogger(cfg)
	defer func() { _ = log.Sync() }()

	decimal.MarshalJSONWithoutQuotes = true

	store, err := newSessionStore(cfg, log)
	if err != nil {
		log.Fatal("session store", zap.Error(err))
	}

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	if pruner, ok := store.(sessionstore.Pruner); ok && cfg.SessionTTL > 0 {
		go sessionstore.RunJanitor(janitorCtx, pruner, cfg.SessionTTL, time.Hour, log)
	}

	shapes, err := shape.LoadFile(cfg.ShapesFile)
	if err != nil {
		log.Fatal("load response shapes", zap.String("file", cfg.ShapesFile), zap.Error(err))
	}

	hub := notify.NewHub(log)
	defer hub.Close()

	telegram := notify.NewTelegram(notify.TelegramOptions{
		BotToken:    cfg.TelegramBotToken,
		AdminChatID: cfg.TelegramAdminChat,
		Currency:    cfg.Currency,
		Logger:      log,
	})

	opts := checkout.Options{
		Storefront: storefront.New(cfg.StorefrontAPIURL, cfg.StorefrontTimeout, log),
		Store:      store,
		Shapes:     shapes,
		Pricing:    checkout.Pricing{FreeDeliveryThreshold: cfg.FreeDeliveryThreshold},
		Publisher:  hub,
		Logger:     log,
	}
	if telegram.Enabled() {
		opts.Notifier = telegram
	}
	svc := checkout.NewService(opts)

	app := fiber.New(fiber.Config{
		AppName:      "Pharmacy Checkout",
		ErrorHandler: handlers.ErrorHandler(log),
		BodyLimit:    handlers.MaxPrescriptionSize + 1<<20,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Session-ID",
		ExposeHeaders:    "X-Session-ID",
		AllowCredentials: cfg.CORSOrigins != "*",
	}))

	routes.Register(app, svc, hub, cfg, log)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("shutting down")
		stopJanitor()
		hub.Close()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
	}()

	log.Info("starting server",
		zap.String("port", cfg.AppPort),
		zap.String("storefront", cfg.StorefrontAPIURL),
		zap.Bool("telegram", telegram.Enabled()),
	)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatal("fiber.Listen error", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		log *zap.Logger
		err error
	)
	if cfg.IsProduction() {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		return zap.NewExample()
	}
	return log
}

func newSessionStore(cfg *config.Config, log *zap.Logger) (sessionstore.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, session state is kept in memory")
		return sessionstore.NewMemory(), nil
	}

	db, err := database.Connect(cfg.DatabaseURL, !cfg.IsProduction(), log)
	if err != nil {
		return nil, err
	}
	return sessionstore.NewGorm(db), nil
}
