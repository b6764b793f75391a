package dto

import (
	"time"

	"github.com/marketbook/marketbook-api/internal/domain"
)

// NotificationResponse is one inbox entry.
type NotificationResponse struct {
	ID        string                   `json:"id"`
	Title     string                   `json:"title"`
	Message   string                   `json:"message"`
	Type      domain.NotificationLevel `json:"type"`
	Data      map[string]any           `json:"data,omitempty"`
	Read      bool                     `json:"read"`
	ReadAt    *time.Time               `json:"readAt,omitempty"`
	CreatedAt time.Time                `json:"createdAt"`
}

// NotificationListResponse is one page of the inbox.
type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Total         int                    `json:"total"`
	TotalPages    int                    `json:"totalPages"`
	CurrentPage   int                    `json:"currentPage"`
	UnreadCount   int                    `json:"unreadCount"`
}
