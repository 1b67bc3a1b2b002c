package types

import "time"

type NotificationStatus string

const (
	NotificationStatusSent   NotificationStatus = "sent"
	NotificationStatusFailed NotificationStatus = "failed"
)

// Notification is the audit record of one outbound message to one donor.
type Notification struct {
	ID             string             `db:"id" json:"id"`
	AlertID        string             `db:"alert_id" json:"alertId"`
	RecipientID    string             `db:"recipient_id" json:"recipientId"`
	RecipientEmail string             `db:"recipient_email" json:"recipientEmail"`
	Subject        string             `db:"subject" json:"subject"`
	Body           string             `db:"body" json:"body"`
	Status         NotificationStatus `db:"status" json:"status"`
	Error          *string            `db:"error" json:"error,omitempty"`
	SentAt         time.Time          `db:"sent_at" json:"sentAt"`
}

// NotificationFilter scopes notification listings. Zero fields are ignored.
type NotificationFilter struct {
	RecipientID string
	HospitalID  string
	Since       *time.Time
	Until       *time.Time
	Limit       uint64
}
