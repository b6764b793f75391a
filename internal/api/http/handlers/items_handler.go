package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/marketbook/marketbook-api/internal/api/dto"
	"github.com/marketbook/marketbook-api/internal/service"
)

// ItemsHandler manages listings and the invoice payment flow.
type ItemsHandler struct {
	items *service.ItemService
}

// NewItemsHandler constructs handler.
func NewItemsHandler(itemService *service.ItemService) *ItemsHandler {
	return &ItemsHandler{items: itemService}
}

// List handles GET /items.
func (h *ItemsHandler) List(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	page, err := h.items.List(c.UserContext(), user, service.ItemListInput{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Page:   parseIntQuery(c, "page", 1),
		Limit:  parseIntQuery(c, "limit", 0),
	})
	if err != nil {
		return err
	}
	items := make([]dto.ItemResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, itemResponse(&page.Items[i]))
	}
	return c.JSON(dto.ItemListResponse{
		Items:       items,
		Total:       page.Total,
		TotalPages:  page.TotalPages,
		CurrentPage: page.CurrentPage,
	})
}

// Stats handles GET /items/stats.
func (h *ItemsHandler) Stats(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	stats, err := h.items.Stats(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(dto.ItemStatsResponse{
		TotalItems:   stats.TotalItems,
		PaidItems:    stats.PaidItems,
		UnpaidItems:  stats.UnpaidItems,
		PendingItems: stats.PendingItems,
		TotalRevenue: stats.TotalRevenue,
	})
}

// Get handles GET /items/:id.
func (h *ItemsHandler) Get(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	item, err := h.items.Get(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(itemResponse(item))
}

// Create handles POST /items.
func (h *ItemsHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateItemRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	item, err := h.items.Create(c.UserContext(), user, service.ItemInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		Status:      req.Status,
		Category:    req.Category,
		Tags:        req.Tags,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"message": "Item created successfully", "item": itemResponse(item)})
}

// Update handles PUT /items/:id in admin mode.
func (h *ItemsHandler) Update(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateItemRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	item, err := h.items.Update(c.UserContext(), user, c.Params("id"), service.ItemUpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Status:      req.Status,
		Category:    req.Category,
		Tags:        req.Tags,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Item updated successfully", "item": itemResponse(item)})
}

// Delete handles DELETE /items/:id in admin mode.
func (h *ItemsHandler) Delete(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.items.Delete(c.UserContext(), user, c.Params("id")); err != nil {
		return err
	}
	return message(c, "Item deleted successfully")
}

// MarkPaid handles POST /items/mark-paid/:invoiceNumber without credentials.
func (h *ItemsHandler) MarkPaid(c *fiber.Ctx) error {
	if err := h.items.MarkPaid(c.UserContext(), c.Params("invoiceNumber")); err != nil {
		return err
	}
	return message(c, "Payment confirmation request sent to the invoice owner")
}

// ApprovePayment handles POST /items/:id/approve-payment.
func (h *ItemsHandler) ApprovePayment(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ApprovePaymentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	approve := *req.Approve
	item, err := h.items.ReviewPayment(c.UserContext(), user, c.Params("id"), approve)
	if err != nil {
		return err
	}
	verb := "rejected"
	if approve {
		verb = "approved"
	}
	return c.JSON(fiber.Map{"message": "Payment " + verb + " successfully", "item": itemResponse(item)})
}
