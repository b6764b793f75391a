package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/marketbook/marketbook-api/internal/api/dto"
	"github.com/marketbook/marketbook-api/internal/service"
)

// AdminUsersHandler lets global admins moderate and message marketplace accounts.
type AdminUsersHandler struct {
	admins  *service.GlobalAdminService
	support *service.SupportService
}

// NewAdminUsersHandler constructs handler.
func NewAdminUsersHandler(adminService *service.GlobalAdminService, supportService *service.SupportService) *AdminUsersHandler {
	return &AdminUsersHandler{admins: adminService, support: supportService}
}

// List handles GET /global-admin/users.
func (h *AdminUsersHandler) List(c *fiber.Ctx) error {
	page, err := h.admins.ListUsers(c.UserContext(), service.UserListInput{
		Search: c.Query("search"),
		Status: c.Query("status"),
		Page:   parseIntQuery(c, "page", 1),
		Limit:  parseIntQuery(c, "limit", 0),
	})
	if err != nil {
		return err
	}
	users := make([]dto.ManagedUserResponse, 0, len(page.Users))
	for i := range page.Users {
		users = append(users, managedUserResponse(&page.Users[i]))
	}
	return c.JSON(dto.ManagedUserListResponse{
		Users:       users,
		TotalPages:  page.TotalPages,
		CurrentPage: page.CurrentPage,
		Total:       page.Total,
	})
}

// ToggleStatus handles PATCH /global-admin/users/:id/toggle-status.
func (h *AdminUsersHandler) ToggleStatus(c *fiber.Ctx) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	user, err := h.admins.ToggleUserStatus(c.UserContext(), admin, c.Params("id"))
	if err != nil {
		return err
	}
	state := "disabled"
	if user.IsActive {
		state = "enabled"
	}
	return c.JSON(fiber.Map{
		"message": "User " + state + " successfully",
		"user":    managedUserResponse(user),
	})
}

// ToggleRecommendation handles PATCH /global-admin/users/:id/toggle-recommendation.
func (h *AdminUsersHandler) ToggleRecommendation(c *fiber.Ctx) error {
	user, err := h.admins.ToggleUserRecommendation(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	text := "User removed from recommended successfully"
	if user.IsRecommended {
		text = "User marked as recommended successfully"
	}
	return c.JSON(fiber.Map{"message": text, "user": managedUserResponse(user)})
}

// Delete handles DELETE /global-admin/users/:id.
func (h *AdminUsersHandler) Delete(c *fiber.Ctx) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	if err := h.admins.DeleteUser(c.UserContext(), admin, c.Params("id")); err != nil {
		return err
	}
	return message(c, "User deleted successfully")
}

// Recover handles PATCH /global-admin/users/:id/recover.
func (h *AdminUsersHandler) Recover(c *fiber.Ctx) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	if _, err := h.admins.RecoverUser(c.UserContext(), admin, c.Params("id")); err != nil {
		return err
	}
	return message(c, "User recovered successfully")
}

// SendMessage handles POST /global-admin/send-message/:userId.
func (h *AdminUsersHandler) SendMessage(c *fiber.Ctx) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	var req dto.AdminMessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.support.SendAdminMessage(c.UserContext(), admin, c.Params("userId"), req.Subject, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Message sent successfully", "ticketId": ticket.ID})
}

// Broadcast handles POST /global-admin/broadcast-message.
func (h *AdminUsersHandler) Broadcast(c *fiber.Ctx) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	var req dto.AdminMessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	count, err := h.admins.Broadcast(c.UserContext(), admin, req.Subject, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Broadcast message sent successfully", "recipientCount": count})
}
