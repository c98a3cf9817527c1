package handler

import (
	"strconv"

	"license-relay-proxy/internal/util"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleAdminLogin 管理员登录，返回 Bearer 令牌
func (h *Handler) HandleAdminLogin(c *fiber.Ctx) error {
	if h.admin.Secret == "" || h.admin.PasswordHash == "" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"error":   "admin login disabled",
		})
	}

	input := new(LoginInput)
	if err := parseBody(c, input); err != nil {
		return invalidBody(c)
	}

	// 验证用户名和密码
	if input.Username != h.admin.Username ||
		bcrypt.CompareHashAndPassword([]byte(h.admin.PasswordHash), []byte(input.Password)) != nil {
		h.log(c).WarnContext(c.UserContext(), "admin login failed", "username", input.Username, "ip", c.IP())
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "invalid username or password",
		})
	}

	// 生成JWT令牌
	token, err := util.GenerateToken(input.Username, util.RoleAdmin, h.admin.Secret, h.admin.TokenTTL)
	if err != nil {
		return h.fail(c, "admin-login", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"token":   token,
	})
}

// HandleUsageLogs 分页查询使用记录
func (h *Handler) HandleUsageLogs(c *fiber.Ctx) error {
	if h.usage == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{
			"success": false,
			"error":   "usage log listing requires the db backend",
		})
	}

	// 获取分页参数
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	// 限制页面大小
	if pageSize > 100 {
		pageSize = 100
	}

	logs, total, err := h.usage.List(c.UserContext(), c.Query("licenseKey"), page, pageSize)
	if err != nil {
		return h.fail(c, "usage-logs", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"logs":    logs,
		"total":   total,
		"page":    page,
		"size":    pageSize,
	})
}
