package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/marketbook/marketbook-api/internal/api/dto"
	"github.com/marketbook/marketbook-api/internal/domain"
	"github.com/marketbook/marketbook-api/internal/service"
)

// EscrowHandler manages party-facing escrow endpoints.
type EscrowHandler struct {
	escrow *service.EscrowService
}

// NewEscrowHandler constructs handler.
func NewEscrowHandler(escrowService *service.EscrowService) *EscrowHandler {
	return &EscrowHandler{escrow: escrowService}
}

// SearchUsers handles GET /escrow/search-users.
func (h *EscrowHandler) SearchUsers(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	users, err := h.escrow.SearchUsers(c.UserContext(), user.ID, c.Query("q"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"users": searchResults(users)})
}

// Create handles POST /escrow/create.
func (h *EscrowHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateEscrowRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	input := service.EscrowCreateInput{
		RecipientID: req.RecipientID,
		Title:       req.Title,
		Description: req.Description,
		Currency:    req.Currency,
		Category:    req.Category,
		Priority:    req.Priority,
		Metadata: domain.EscrowMetadata{
			IPAddress: c.IP(),
			UserAgent: c.Get(fiber.HeaderUserAgent),
			Source:    "web",
		},
	}
	if req.TransactionAmount != nil {
		input.TransactionAmount = *req.TransactionAmount
	}
	ticket, err := h.escrow.Create(c.UserContext(), user, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message":      "Escrow invitation sent successfully",
		"escrowTicket": escrowTicketResponse(ticket, domain.EscrowRoleInitiator),
	})
}

// MyTickets handles GET /escrow/my-tickets.
func (h *EscrowHandler) MyTickets(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	page, err := h.escrow.List(c.UserContext(), user, service.EscrowListInput{
		Status: c.Query("status"),
		Type:   c.Query("type"),
		Search: c.Query("search"),
		Page:   parseIntQuery(c, "page", 1),
		Limit:  parseIntQuery(c, "limit", 0),
	})
	if err != nil {
		return err
	}
	return c.JSON(escrowListResponse(page, user.ID))
}

// Get handles GET /escrow/tickets/:id and marks counterparty messages read.
func (h *EscrowHandler) Get(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ticket, err := h.escrow.Get(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(escrowTicketResponse(ticket, ticket.ResolveRole(user.ID)))
}

// Respond handles PATCH /escrow/tickets/:id/respond.
func (h *EscrowHandler) Respond(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.RespondEscrowRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.escrow.Respond(c.UserContext(), user, c.Params("id"), req.Action)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Escrow invitation " + string(ticket.InvitationStatus) + " successfully",
		"ticket":  escrowTicketResponse(ticket, domain.EscrowRoleRecipient),
	})
}

// Message handles POST /escrow/tickets/:id/message.
func (h *EscrowHandler) Message(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.MessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.escrow.Message(c.UserContext(), user, c.Params("id"), req.Message)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Message sent successfully",
		"ticket":  escrowTicketResponse(ticket, ticket.ResolveRole(user.ID)),
	})
}

// Close handles PATCH /escrow/tickets/:id/close.
func (h *EscrowHandler) Close(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ticket, err := h.escrow.Close(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Escrow ticket closed successfully",
		"ticket":  escrowTicketResponse(ticket, ticket.ResolveRole(user.ID)),
	})
}
