package handler

import (
	"license-relay-proxy/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ValidateLicenseInput struct {
	LicenseKey string `json:"licenseKey"`
	HWID       string `json:"hwid"`
}

type SendMessageInput struct {
	LicenseKey string   `json:"licenseKey"`
	Token      string   `json:"token"`
	ProjectID  string   `json:"projectId"`
	Message    string   `json:"message"`
	Files      []string `json:"files"`
}

type GetCreditsInput struct {
	LicenseKey string `json:"licenseKey"`
}

type AddCreditsInput struct {
	LicenseKey string `json:"licenseKey"`
	Credits    *int64 `json:"credits"`
}

// HandleValidateLicense 验证许可证并在首次使用时绑定设备
func (h *Handler) HandleValidateLicense(c *fiber.Ctx) error {
	input := new(ValidateLicenseInput)
	if err := parseBody(c, input); err != nil {
		return invalidBody(c)
	}

	ctx := c.UserContext()
	h.log(c).InfoContext(ctx, "validating license", "license_key", input.LicenseKey)

	res, err := h.licenses.ValidateLicense(ctx, input.LicenseKey, input.HWID)
	if err != nil {
		return h.fail(c, "validate-license", err)
	}
	res.Binding.Log(ctx, h.log(c), "license_key", input.LicenseKey)

	h.log(c).InfoContext(ctx, "license validated", "license_key", input.LicenseKey, "credits", res.Credits)
	return c.JSON(fiber.Map{
		"success":  true,
		"credits":  res.Credits,
		"isActive": res.IsActive,
	})
}

// HandleSendMessage 转发消息并扣除一个额度
func (h *Handler) HandleSendMessage(c *fiber.Ctx) error {
	input := new(SendMessageInput)
	if err := parseBody(c, input); err != nil {
		return invalidBody(c)
	}

	ctx := c.UserContext()
	h.log(c).InfoContext(ctx, "sending message", "license_key", input.LicenseKey, "project_id", input.ProjectID)

	res, err := h.licenses.SendMessage(ctx, service.SendRequest{
		LicenseKey: input.LicenseKey,
		AuthToken:  input.Token,
		ProjectID:  input.ProjectID,
		Content:    input.Message,
		Files:      input.Files,
	})
	if err != nil {
		return h.fail(c, "send-message", err)
	}
	res.Debit.Log(ctx, h.log(c), "license_key", input.LicenseKey)
	res.UsageLog.Log(ctx, h.log(c), "license_key", input.LicenseKey, "project_id", input.ProjectID)

	h.log(c).InfoContext(ctx, "message sent", "license_key", input.LicenseKey, "message_id", res.MessageID)
	return c.JSON(fiber.Map{
		"success":          true,
		"messageId":        res.MessageID,
		"creditsRemaining": res.CreditsRemaining,
	})
}

// HandleGetCredits 查询剩余额度
func (h *Handler) HandleGetCredits(c *fiber.Ctx) error {
	input := new(GetCreditsInput)
	if err := parseBody(c, input); err != nil {
		return invalidBody(c)
	}

	res, err := h.licenses.GetCredits(c.UserContext(), input.LicenseKey)
	if err != nil {
		return h.fail(c, "get-credits", err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"credits":  res.Credits,
		"isActive": res.IsActive,
	})
}

// HandleAddCredits 管理员增加额度
func (h *Handler) HandleAddCredits(c *fiber.Ctx) error {
	input := new(AddCreditsInput)
	if err := parseBody(c, input); err != nil {
		return invalidBody(c)
	}

	ctx := c.UserContext()
	newCredits, err := h.licenses.AddCredits(ctx, service.AddCreditsRequest{
		LicenseKey: input.LicenseKey,
		Amount:     input.Credits,
	})
	if err != nil {
		return h.fail(c, "add-credits", err)
	}

	h.log(c).InfoContext(ctx, "credits adjusted", "license_key", input.LicenseKey, "amount", *input.Credits, "new_credits", newCredits)
	return c.JSON(fiber.Map{
		"success":    true,
		"newCredits": newCredits,
	})
}
