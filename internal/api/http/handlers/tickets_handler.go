package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/marketbook/marketbook-api/internal/api/dto"
	"github.com/marketbook/marketbook-api/internal/service"
)

// TicketsHandler manages end-user support ticket endpoints.
type TicketsHandler struct {
	support *service.SupportService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(supportService *service.SupportService) *TicketsHandler {
	return &TicketsHandler{support: supportService}
}

// List handles GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	page, err := h.support.List(c.UserContext(), user, service.SupportListInput{
		Status: c.Query("status"),
		Page:   parseIntQuery(c, "page", 1),
		Limit:  parseIntQuery(c, "limit", 0),
	})
	if err != nil {
		return err
	}
	tickets := make([]dto.SupportTicketResponse, 0, len(page.Tickets))
	for i := range page.Tickets {
		tickets = append(tickets, supportTicketResponse(&page.Tickets[i]))
	}
	return c.JSON(dto.SupportListResponse{
		Tickets:     tickets,
		Total:       page.Total,
		TotalPages:  page.TotalPages,
		CurrentPage: page.CurrentPage,
	})
}

// Get handles GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ticket, err := h.support.Get(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(supportTicketResponse(ticket))
}

// Create handles POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateSupportTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.support.Create(c.UserContext(), user, service.SupportCreateInput{
		Subject:     req.Subject,
		Description: req.Description,
		Priority:    req.Priority,
		Category:    req.Category,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "Support ticket created successfully",
		"ticket":  supportTicketResponse(ticket),
	})
}

// Reply handles POST /tickets/:id/reply.
func (h *TicketsHandler) Reply(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.MessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.support.Reply(c.UserContext(), user, c.Params("id"), req.Message)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Reply sent successfully",
		"ticket":  supportTicketResponse(ticket),
	})
}

// Close handles PATCH /tickets/:id/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.support.Close(c.UserContext(), user, c.Params("id")); err != nil {
		return err
	}
	return message(c, "Ticket closed successfully")
}
