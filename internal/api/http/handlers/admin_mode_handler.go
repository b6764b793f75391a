package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/marketbook/marketbook-api/internal/api/dto"
	"github.com/marketbook/marketbook-api/internal/service"
)

// AdminModeHandler manages the per-account admin password.
type AdminModeHandler struct {
	auth *service.AuthService
}

// NewAdminModeHandler constructs handler.
func NewAdminModeHandler(authService *service.AuthService) *AdminModeHandler {
	return &AdminModeHandler{auth: authService}
}

// Enable handles POST /admin/register. The password is shown exactly once.
func (h *AdminModeHandler) Enable(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	password, err := h.auth.EnableAdminMode(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":       "Admin access created successfully",
		"adminPassword": password,
	})
}

// Login handles POST /admin/login.
func (h *AdminModeHandler) Login(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.AdminPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	session, err := h.auth.AdminLogin(c.UserContext(), user, req.AdminPassword)
	if err != nil {
		return err
	}
	return c.JSON(sessionResponse("Admin login successful", session))
}

// Verify handles POST /admin/verify-password.
func (h *AdminModeHandler) Verify(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.AdminPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.auth.VerifyAdminPassword(c.UserContext(), user, req.AdminPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Admin password verified successfully", "verified": true})
}

// ChangePassword handles PUT /admin/change-password.
func (h *AdminModeHandler) ChangePassword(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ChangeAdminPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.auth.ChangeAdminPassword(c.UserContext(), user, req.CurrentAdminPassword, req.NewAdminPassword); err != nil {
		return err
	}
	return message(c, "Admin password changed successfully")
}
