package handler

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HandleLicenseStatistics 处理许可证统计信息请求
func (h *Handler) HandleLicenseStatistics(c *fiber.Ctx) error {
	// 默认统计最近30天
	days := 30
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 366 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "days must be between 1 and 366",
			})
		}
		days = n
	}

	ctx := c.UserContext()
	stats, err := h.store.Statistics(ctx)
	if err != nil {
		return h.fail(c, "statistics", err)
	}

	// 使用记录不在数据库中时不返回发送统计
	if h.usage != nil {
		since := time.Now().AddDate(0, 0, -days)
		stats.TotalSends, stats.DailySends, err = h.usage.SendStatistics(ctx, since)
		if err != nil {
			return h.fail(c, "statistics", err)
		}
		stats.SendsTracked = true
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"data":         stats,
		"binding_rate": stats.GetBindingRate(),
	})
}
