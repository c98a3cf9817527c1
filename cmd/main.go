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

	"license-relay-proxy/internal/config"
	"license-relay-proxy/internal/database"
	"license-relay-proxy/internal/handler"
	"license-relay-proxy/internal/service"
	"license-relay-proxy/internal/sink"
	"license-relay-proxy/internal/store"
	"license-relay-proxy/internal/usagelog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	if err := database.InitDB(cfg); err != nil {
		return err
	}
	defer func() {
		if err := database.Close(database.DB); err != nil {
			slog.Warn("close database", "error", err)
		}
	}()

	licenses := store.NewGormLicenseStore(database.DB)

	messages, err := newSink(ctx, cfg)
	if err != nil {
		return err
	}

	usage, closeUsage, err := newUsageWriter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeUsage()

	svc := service.NewLicenseService(licenses, messages, usage,
		service.WithNonPositiveCreditGuard(cfg.RejectNonPositiveCredits))

	opts := handler.Options{
		Licenses: svc,
		Store:    licenses,
		SinkMode: messages.Mode(),
		Admin: handler.AdminOptions{
			Username:     cfg.AdminUsername,
			PasswordHash: cfg.AdminPasswordHash,
			Secret:       cfg.AdminJWTSecret,
			TokenTTL:     cfg.TokenTTL(),
		},
	}
	if reader, ok := usage.(handler.UsageReader); ok {
		opts.Usage = reader
	}
	if !cfg.AdminAuthEnabled() {
		slog.Warn("ADMIN_JWT_SECRET not set, add-credits is unauthenticated")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		},
	})

	// 中间件
	app.Use(logger.New())
	app.Use(cors.New())

	handler.SetupRoutes(app, handler.New(opts))

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.ListenAddr, "sink_mode", messages.Mode(), "usage_log", usage.Backend())
		errCh <- app.Listen(cfg.ListenAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

func newSink(ctx context.Context, cfg *config.Config) (sink.MessageSink, error) {
	switch cfg.SinkMode {
	case config.SinkModeService:
		s, err := sink.NewServiceSink(ctx, cfg.SinkCredentialsFile, cfg.SinkBaseURL, cfg.SinkGCPProject)
		if err != nil {
			return nil, fmt.Errorf("init service sink: %w", err)
		}
		return s, nil
	default:
		return sink.NewDelegatedSink(cfg.SinkBaseURL, cfg.SinkGCPProject, &http.Client{Timeout: 30 * time.Second}), nil
	}
}

func newUsageWriter(ctx context.Context, cfg *config.Config) (usagelog.Writer, func(), error) {
	noop := func() {}
	switch cfg.UsageLogBackend {
	case config.UsageLogMongo:
		w, err := usagelog.NewMongoWriter(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			return nil, noop, fmt.Errorf("init mongo usage log: %w", err)
		}
		return w, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := w.Close(closeCtx); err != nil {
				slog.Warn("close mongo usage log", "error", err)
			}
		}, nil
	case config.UsageLogSheets:
		w, err := usagelog.NewSheetsWriter(ctx, cfg.SheetsCredentialsFile, cfg.SheetsSpreadsheetID, cfg.SheetsSheetName)
		if err != nil {
			return nil, noop, fmt.Errorf("init sheets usage log: %w", err)
		}
		return w, noop, nil
	default:
		return usagelog.NewDBWriter(database.DB), noop, nil
	}
}
