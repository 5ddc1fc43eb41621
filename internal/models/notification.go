package models

import "time"

// NotificationPriority ranks delivered alerts.
type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "LOW"
	NotificationPriorityNormal NotificationPriority = "NORMAL"
	NotificationPriorityHigh   NotificationPriority = "HIGH"
)

// RecipientType identifies who a notification addresses.
type RecipientType string

const (
	RecipientTypeStudent RecipientType = "STUDENT"
	RecipientTypeAdvisor RecipientType = "ADVISOR"
)

// Notification is one persisted alert row. Delivery is at-least-once;
// duplicate rows for the same transition are tolerated.
type Notification struct {
	ID            string               `db:"id" json:"id"`
	RecipientID   string               `db:"recipient_id" json:"recipient_id"`
	RecipientType RecipientType        `db:"recipient_type" json:"recipient_type"`
	Title         string               `db:"title" json:"title"`
	Message       string               `db:"message" json:"message"`
	Priority      NotificationPriority `db:"priority" json:"priority"`
	RelatedTo     string               `db:"related_to" json:"related_to"`
	CreatedAt     time.Time            `db:"created_at" json:"created_at"`
}
