package notification

import (
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/notification"
)

// SendReceiptRequest sends a sale receipt to the customer. An empty recipient
// uses the customer's email or WhatsApp number.
type SendReceiptRequest struct {
	Channel   string `json:"channel" binding:"required,oneof=whatsapp email"`
	Recipient string `json:"recipient" binding:"max=200"`
}

// NotificationListFilter represents filter options for the notification list
type NotificationListFilter struct {
	Channel     string     `form:"channel" binding:"omitempty,oneof=whatsapp email"`
	Status      string     `form:"status" binding:"omitempty,oneof=pending sent failed"`
	ReferenceID *uuid.UUID `form:"reference_id"`
	Page        int        `form:"page" binding:"omitempty,min=1"`
	PageSize    int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// NotificationResponse represents a notification in API responses
type NotificationResponse struct {
	ID                uuid.UUID  `json:"id"`
	Channel           string     `json:"channel"`
	Recipient         string     `json:"recipient"`
	Subject           string     `json:"subject,omitempty"`
	ReferenceType     string     `json:"reference_type,omitempty"`
	ReferenceID       *uuid.UUID `json:"reference_id,omitempty"`
	Status            string     `json:"status"`
	ProviderMessageID string     `json:"provider_message_id,omitempty"`
	Error             string     `json:"error,omitempty"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// ToNotificationResponse converts a notification to a response
func ToNotificationResponse(n *notification.Notification) NotificationResponse {
	return NotificationResponse{
		ID:                n.ID,
		Channel:           string(n.Channel),
		Recipient:         n.Recipient,
		Subject:           n.Subject,
		ReferenceType:     n.ReferenceType,
		ReferenceID:       n.ReferenceID,
		Status:            string(n.Status),
		ProviderMessageID: n.ProviderMessageID,
		Error:             n.Error,
		SentAt:            n.SentAt,
		CreatedAt:         n.CreatedAt,
	}
}
