package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/marketbook/marketbook-api/internal/api/dto"
	"github.com/marketbook/marketbook-api/internal/service"
)

// GlobalAdminHandler exposes global admin sign-in and roster management.
type GlobalAdminHandler struct {
	admins *service.GlobalAdminService
}

// NewGlobalAdminHandler constructs handler.
func NewGlobalAdminHandler(adminService *service.GlobalAdminService) *GlobalAdminHandler {
	return &GlobalAdminHandler{admins: adminService}
}

// Login handles POST /global-admin/login.
func (h *GlobalAdminHandler) Login(c *fiber.Ctx) error {
	var req dto.GlobalAdminLoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	session, err := h.admins.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.AdminSessionResponse{
		Message:   "Login successful",
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Admin:     globalAdminResponse(session.Admin),
	})
}

// Reset handles POST /global-admin/reset.
func (h *GlobalAdminHandler) Reset(c *fiber.Ctx) error {
	var req dto.GlobalAdminResetRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.admins.Reset(c.UserContext(), req.Email, req.ResetCode); err != nil {
		return err
	}
	return message(c, "Password reset successfully. Please login with the default password.")
}

// Profile handles GET /global-admin/profile.
func (h *GlobalAdminHandler) Profile(c *fiber.Ctx) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"admin": globalAdminResponse(admin)})
}

// Create handles POST /global-admin/admins.
func (h *GlobalAdminHandler) Create(c *fiber.Ctx) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	var req dto.CreateGlobalAdminRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	created, err := h.admins.Create(c.UserContext(), admin, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "Global admin created successfully",
		"admin":   globalAdminResponse(created),
	})
}

// List handles GET /global-admin/admins.
func (h *GlobalAdminHandler) List(c *fiber.Ctx) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	roster, err := h.admins.List(c.UserContext(), admin)
	if err != nil {
		return err
	}
	out := make([]dto.GlobalAdminResponse, 0, len(roster))
	for i := range roster {
		out = append(out, globalAdminResponse(&roster[i]))
	}
	return c.JSON(fiber.Map{"admins": out})
}

// Delete handles DELETE /global-admin/admins/:id.
func (h *GlobalAdminHandler) Delete(c *fiber.Ctx) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	if err := h.admins.Delete(c.UserContext(), admin, c.Params("id")); err != nil {
		return err
	}
	return message(c, "Global admin deleted successfully")
}
