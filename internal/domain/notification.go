package domain

import "time"

// NotificationLevel styles a notification in the client.
type NotificationLevel string

const (
	NotificationInfo    NotificationLevel = "info"
	NotificationSuccess NotificationLevel = "success"
	NotificationWarning NotificationLevel = "warning"
	NotificationError   NotificationLevel = "error"
)

// Notification is a persisted message for one user.
type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	Level     NotificationLevel
	Data      map[string]any
	Read      bool
	ReadAt    *time.Time
	CreatedAt time.Time
}
