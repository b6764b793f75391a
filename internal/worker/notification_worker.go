package worker

import (
	"context"
	"fmt"
	"time"
)

const defaultRetentionDays = 30

// NotificationPurger deletes read notifications created before a cutoff.
type NotificationPurger interface {
	PurgeRead(ctx context.Context, cutoff time.Time) (int64, error)
}

// NotificationRetention drops read notifications once they age past the
// retention window. Unread notifications are never removed.
type NotificationRetention struct {
	purger NotificationPurger
	days   int
}

// NewNotificationRetention builds the job. Non-positive days fall back to 30.
func NewNotificationRetention(purger NotificationPurger, days int) *NotificationRetention {
	if days <= 0 {
		days = defaultRetentionDays
	}
	return &NotificationRetention{purger: purger, days: days}
}

// Name implements Job.
func (j *NotificationRetention) Name() string {
	return "notification_retention"
}

// Run implements Job.
func (j *NotificationRetention) Run(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.AddDate(0, 0, -j.days)
	removed, err := j.purger.PurgeRead(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge read notifications before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return removed, nil
}
