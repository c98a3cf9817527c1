package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"license-relay-proxy/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(secret string) *fiber.App {
	app := fiber.New()
	app.Get("/admin", Auth(secret), AdminOnly(secret), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestAuth(t *testing.T) {
	adminToken, err := util.GenerateToken("admin", util.RoleAdmin, "secret", time.Hour)
	require.NoError(t, err)
	userToken, err := util.GenerateToken("someone", "user", "secret", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		secret     string
		header     string
		wantStatus int
	}{
		{name: "disabled", secret: "", header: "", wantStatus: fiber.StatusOK},
		{name: "missing_header", secret: "secret", header: "", wantStatus: fiber.StatusUnauthorized},
		{name: "bad_format", secret: "secret", header: "Token " + adminToken, wantStatus: fiber.StatusUnauthorized},
		{name: "bad_token", secret: "secret", header: "Bearer garbage", wantStatus: fiber.StatusUnauthorized},
		{name: "not_admin", secret: "secret", header: "Bearer " + userToken, wantStatus: fiber.StatusForbidden},
		{name: "admin", secret: "secret", header: "Bearer " + adminToken, wantStatus: fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp(tt.secret)
			req := httptest.NewRequest("GET", "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}
