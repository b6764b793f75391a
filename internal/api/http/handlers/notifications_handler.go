package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/marketbook/marketbook-api/internal/api/dto"
	"github.com/marketbook/marketbook-api/internal/service"
)

// NotificationsHandler exposes the caller's notification inbox.
type NotificationsHandler struct {
	notifications *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notificationService}
}

// List handles GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	page, err := h.notifications.List(c.UserContext(), user.ID,
		parseIntQuery(c, "page", 1), parseIntQuery(c, "limit", 0), parseBoolQuery(c, "unreadOnly", false))
	if err != nil {
		return err
	}
	out := make([]dto.NotificationResponse, 0, len(page.Notifications))
	for i := range page.Notifications {
		out = append(out, notificationResponse(&page.Notifications[i]))
	}
	return c.JSON(dto.NotificationListResponse{
		Notifications: out,
		Total:         page.Total,
		TotalPages:    page.TotalPages,
		CurrentPage:   page.CurrentPage,
		UnreadCount:   page.UnreadCount,
	})
}

// MarkRead handles PATCH /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	n, err := h.notifications.MarkRead(c.UserContext(), user.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Notification marked as read", "notification": notificationResponse(n)})
}

// MarkAllRead handles PATCH /notifications/mark-all-read.
func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	updated, err := h.notifications.MarkAllRead(c.UserContext(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "All notifications marked as read", "updated": updated})
}

// Delete handles DELETE /notifications/:id.
func (h *NotificationsHandler) Delete(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.notifications.Delete(c.UserContext(), user.ID, c.Params("id")); err != nil {
		return err
	}
	return message(c, "Notification deleted successfully")
}
