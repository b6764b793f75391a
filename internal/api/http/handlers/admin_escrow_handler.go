package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/marketbook/marketbook-api/internal/api/dto"
	"github.com/marketbook/marketbook-api/internal/domain"
	"github.com/marketbook/marketbook-api/internal/service"
)

// AdminEscrowHandler exposes escrow mediation to global admins.
type AdminEscrowHandler struct {
	escrow *service.EscrowService
}

// NewAdminEscrowHandler constructs handler.
func NewAdminEscrowHandler(escrowService *service.EscrowService) *AdminEscrowHandler {
	return &AdminEscrowHandler{escrow: escrowService}
}

// List handles GET /global-admin/escrow-tickets.
func (h *AdminEscrowHandler) List(c *fiber.Ctx) error {
	page, err := h.escrow.ListAll(c.UserContext(), service.EscrowListInput{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Page:   parseIntQuery(c, "page", 1),
		Limit:  parseIntQuery(c, "limit", 0),
	})
	if err != nil {
		return err
	}
	return c.JSON(escrowListResponse(page, ""))
}

// Get handles GET /global-admin/escrow-tickets/:id. Read flags are untouched.
func (h *AdminEscrowHandler) Get(c *fiber.Ctx) error {
	ticket, err := h.escrow.AdminGet(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(escrowTicketResponse(ticket, domain.EscrowRoleNone))
}

// Message handles POST /global-admin/escrow-tickets/:id/message.
func (h *AdminEscrowHandler) Message(c *fiber.Ctx) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	var req dto.MessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.escrow.AdminMessage(c.UserContext(), admin, c.Params("id"), req.Message)
	if err != nil {
		return err
	}
	return adminTicket(c, "Admin message sent successfully", ticket)
}

// UpdateStatus handles PATCH /global-admin/escrow-tickets/:id/status.
func (h *AdminEscrowHandler) UpdateStatus(c *fiber.Ctx) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	var req dto.StatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.escrow.UpdateStatus(c.UserContext(), admin, c.Params("id"), domain.EscrowStatus(req.Status))
	if err != nil {
		return err
	}
	return adminTicket(c, "Escrow ticket status updated successfully", ticket)
}

// Reopen handles PATCH /global-admin/escrow-tickets/:id/reopen.
func (h *AdminEscrowHandler) Reopen(c *fiber.Ctx) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	ticket, err := h.escrow.Reopen(c.UserContext(), admin, c.Params("id"))
	if err != nil {
		return err
	}
	return adminTicket(c, "Escrow ticket reopened successfully", ticket)
}

// Close handles PATCH /global-admin/escrow-tickets/:id/close.
func (h *AdminEscrowHandler) Close(c *fiber.Ctx) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	ticket, err := h.escrow.AdminClose(c.UserContext(), admin, c.Params("id"))
	if err != nil {
		return err
	}
	return adminTicket(c, "Escrow ticket closed successfully", ticket)
}

// Notes handles PATCH /global-admin/escrow-tickets/:id/notes.
func (h *AdminEscrowHandler) Notes(c *fiber.Ctx) error {
	var req dto.NotesRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.escrow.SetAdminNotes(c.UserContext(), c.Params("id"), req.Notes)
	if err != nil {
		return err
	}
	return adminTicket(c, "Admin notes updated successfully", ticket)
}

// Delete handles DELETE /global-admin/escrow-tickets/:id.
func (h *AdminEscrowHandler) Delete(c *fiber.Ctx) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	if err := h.escrow.SoftDelete(c.UserContext(), admin, c.Params("id")); err != nil {
		return err
	}
	return message(c, "Escrow ticket deleted successfully")
}

func adminTicket(c *fiber.Ctx, msg string, ticket *domain.EscrowTicket) error {
	return c.JSON(fiber.Map{
		"message": msg,
		"ticket":  escrowTicketResponse(ticket, domain.EscrowRoleNone),
	})
}
