package middleware

import (
	"strings"

	"license-relay-proxy/internal/util"

	"github.com/gofiber/fiber/v2"
)

// Auth 校验 Bearer 令牌，secret 为空时不做校验
func Auth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "authorization token not provided",
			})
		}

		// 获取 Bearer token
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "invalid authorization format",
			})
		}

		// 验证令牌
		claims, err := util.ValidateToken(tokenParts[1], secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "invalid authorization token",
			})
		}

		// 将声明存储在上下文中
		c.Locals("subject", claims.Subject)
		c.Locals("role", claims.Role)
		return c.Next()
	}
}

// AdminOnly 要求管理员角色，secret 为空时不做校验
func AdminOnly(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}

		role, _ := c.Locals("role").(string)
		if role != util.RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   "admin role required",
			})
		}

		return c.Next()
	}
}
