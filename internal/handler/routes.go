package handler

import (
	"license-relay-proxy/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

// SetupRoutes 注册所有路由
func SetupRoutes(app *fiber.App, h *Handler) {
	// 请求 ID 写入响应头和日志
	app.Use(requestid.New(requestid.Config{
		Generator:  uuid.NewString,
		ContextKey: requestIDKey,
	}))

	app.Get("/", h.HandleRoot)

	api := app.Group("/api")
	api.Get("/health", h.HandleHealth)

	// 许可证路由
	api.Post("/validate-license", h.HandleValidateLicense)
	api.Post("/send-message", h.HandleSendMessage)
	api.Post("/get-credits", h.HandleGetCredits)

	// 管理员路由，未配置 ADMIN_JWT_SECRET 时保持开放
	secret := h.admin.Secret
	api.Post("/add-credits", middleware.Auth(secret), middleware.AdminOnly(secret), h.HandleAddCredits)

	// 使用记录与统计只在启用管理员认证时开放
	if secret == "" {
		return
	}
	admin := api.Group("/admin")
	admin.Post("/login", h.HandleAdminLogin)
	admin.Get("/usage", middleware.Auth(secret), middleware.AdminOnly(secret), h.HandleUsageLogs)
	admin.Get("/statistics", middleware.Auth(secret), middleware.AdminOnly(secret), h.HandleLicenseStatistics)
}
