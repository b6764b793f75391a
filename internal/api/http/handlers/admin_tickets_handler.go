package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/marketbook/marketbook-api/internal/api/dto"
	"github.com/marketbook/marketbook-api/internal/domain"
	"github.com/marketbook/marketbook-api/internal/service"
)

// AdminTicketsHandler serves the global admin support inbox.
type AdminTicketsHandler struct {
	support *service.SupportService
}

// NewAdminTicketsHandler constructs handler.
func NewAdminTicketsHandler(supportService *service.SupportService) *AdminTicketsHandler {
	return &AdminTicketsHandler{support: supportService}
}

// List handles GET /global-admin/tickets.
func (h *AdminTicketsHandler) List(c *fiber.Ctx) error {
	inbox, err := h.support.Inbox(c.UserContext(), service.SupportListInput{
		Kind:   c.Query("type"),
		Status: c.Query("status"),
		Page:   parseIntQuery(c, "page", 1),
		Limit:  parseIntQuery(c, "limit", 0),
	})
	if err != nil {
		return err
	}
	tickets := make([]dto.InboxEntryResponse, 0, len(inbox.Entries))
	for _, entry := range inbox.Entries {
		tickets = append(tickets, inboxEntryResponse(entry))
	}
	return c.JSON(dto.InboxResponse{
		Tickets:     tickets,
		Total:       inbox.Total,
		TotalPages:  inbox.TotalPages,
		CurrentPage: inbox.CurrentPage,
	})
}

// Get handles GET /global-admin/tickets/:id.
func (h *AdminTicketsHandler) Get(c *fiber.Ctx) error {
	entry, err := h.support.AdminGet(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(inboxEntryResponse(*entry))
}

// Reply handles POST /global-admin/tickets/:id/reply.
func (h *AdminTicketsHandler) Reply(c *fiber.Ctx) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	var req dto.MessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	entry, err := h.support.AdminReply(c.UserContext(), admin, c.Params("id"), req.Message)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Reply sent successfully", "ticket": inboxEntryResponse(*entry)})
}

// UpdateStatus handles PATCH /global-admin/tickets/:id/status.
func (h *AdminTicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	var req dto.StatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	entry, err := h.support.AdminUpdateStatus(c.UserContext(), admin, c.Params("id"), domain.SupportStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Ticket status updated successfully", "ticket": inboxEntryResponse(*entry)})
}

// Reopen handles PATCH /global-admin/tickets/:id/reopen.
func (h *AdminTicketsHandler) Reopen(c *fiber.Ctx) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	entry, err := h.support.AdminReopen(c.UserContext(), admin, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Ticket reopened successfully", "ticket": inboxEntryResponse(*entry)})
}

// Delete handles DELETE /global-admin/tickets/:id.
func (h *AdminTicketsHandler) Delete(c *fiber.Ctx) error {
	admin, err := currentAdmin(c)
	if err != nil {
		return err
	}
	kind, err := h.support.AdminDelete(c.UserContext(), admin, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Ticket deleted successfully", "type": kind})
}
