package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"license-relay-proxy/internal/model"
	"license-relay-proxy/internal/service"

	"github.com/gofiber/fiber/v2"
)

// StoreProbe is the part of the license store the boundary uses directly.
type StoreProbe interface {
	Ping(ctx context.Context) error
	Statistics(ctx context.Context) (*model.LicenseStatistics, error)
}

// UsageReader queries recorded usage entries.
type UsageReader interface {
	List(ctx context.Context, licenseKey string, page, pageSize int) ([]model.UsageLog, int64, error)
	SendStatistics(ctx context.Context, since time.Time) (int64, []model.DailySends, error)
}

type AdminOptions struct {
	Username     string
	PasswordHash string
	Secret       string
	TokenTTL     time.Duration
}

type Options struct {
	Licenses *service.LicenseService
	Store    StoreProbe
	// Usage is nil when usage entries are not kept in the relational store.
	Usage    UsageReader
	SinkMode string
	Admin    AdminOptions
	Logger   *slog.Logger
}

type Handler struct {
	licenses *service.LicenseService
	store    StoreProbe
	usage    UsageReader
	sinkMode string
	admin    AdminOptions
	logger   *slog.Logger
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		licenses: opts.Licenses,
		store:    opts.Store,
		usage:    opts.Usage,
		sinkMode: opts.SinkMode,
		admin:    opts.Admin,
		logger:   logger,
	}
}

// requestIDKey 与 requestid 中间件写入 Locals 的键一致
const requestIDKey = "requestid"

// log 返回带有请求 ID 的日志记录器
func (h *Handler) log(c *fiber.Ctx) *slog.Logger {
	if id, ok := c.Locals(requestIDKey).(string); ok && id != "" {
		return h.logger.With("request_id", id)
	}
	return h.logger
}

// parseBody 按 JSON 解析请求体，不依赖 Content-Type，空请求体按空对象处理
func parseBody(c *fiber.Ctx, out interface{}) error {
	body := c.Body()
	if len(body) == 0 {
		return nil
	}
	return c.App().Config().JSONDecoder(body, out)
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   "invalid request body",
	})
}

// fail 业务错误返回 200 和 success=false，其余错误返回 500
func (h *Handler) fail(c *fiber.Ctx, op string, err error) error {
	if service.IsBusiness(err) {
		return c.JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	logger := h.log(c)
	logger.ErrorContext(c.UserContext(), "request failed", "op", op, "error", err)

	var upErr *service.UpstreamError
	if errors.As(err, &upErr) {
		logger.ErrorContext(c.UserContext(), "upstream response", "op", op, "status", upErr.Status, "body", upErr.Body)
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}
