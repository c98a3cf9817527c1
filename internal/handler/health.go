package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const healthPingTimeout = 2 * time.Second

func (h *Handler) storeReachable(c *fiber.Ctx) bool {
	if h.store == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), healthPingTimeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		h.log(c).WarnContext(ctx, "license store ping failed", "error", err)
		return false
	}
	return true
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "degraded"
}

// HandleRoot 服务状态
func (h *Handler) HandleRoot(c *fiber.Ctx) error {
	storeOK := h.storeReachable(c)
	return c.JSON(fiber.Map{
		"status":       status(storeOK),
		"message":      "License Relay Proxy",
		"timestamp":    time.Now().UTC().Format(time.RFC3339Nano),
		"licenseStore": storeOK,
		"messageSink":  h.sinkMode != "",
		"sinkMode":     h.sinkMode,
	})
}

// HandleHealth 健康检查
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	storeOK := h.storeReachable(c)
	return c.JSON(fiber.Map{
		"status":       status(storeOK),
		"timestamp":    time.Now().UTC().Format(time.RFC3339Nano),
		"licenseStore": storeOK,
		"messageSink":  h.sinkMode != "",
	})
}
