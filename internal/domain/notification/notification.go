package notification

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/shared"
)

// Channel is the delivery channel
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
)

// IsValid checks if the channel is known
func (c Channel) IsValid() bool {
	return c == ChannelWhatsApp || c == ChannelEmail
}

// Status is the delivery state
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Reference types
const (
	RefSale = "sale"
	RefBill = "bill"
)

// Notification is a log entry of a message sent to a customer
type Notification struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID         uuid.UUID  `gorm:"type:uuid;not null;index"`
	Channel           Channel    `gorm:"type:varchar(20);not null"`
	Recipient         string     `gorm:"type:varchar(200);not null"`
	Subject           string     `gorm:"type:varchar(255)"`
	Body              string     `gorm:"type:text;not null"`
	ReferenceType     string     `gorm:"type:varchar(20)"`
	ReferenceID       *uuid.UUID `gorm:"type:uuid;index"`
	Status            Status     `gorm:"type:varchar(20);not null;default:'pending'"`
	ProviderMessageID string     `gorm:"type:varchar(200)"`
	Error             string     `gorm:"type:text"`
	SentAt            *time.Time
	CreatedBy         *uuid.UUID `gorm:"type:uuid"`
	CreatedAt         time.Time
}

// TableName returns the table name for GORM
func (Notification) TableName() string {
	return "notifications"
}

// New creates a pending notification
func New(companyID uuid.UUID, channel Channel, recipient, subject, body, refType string, refID *uuid.UUID) (*Notification, error) {
	if !channel.IsValid() {
		return nil, shared.NewDomainError("INVALID_CHANNEL", "Channel must be whatsapp or email")
	}
	recipient = strings.TrimSpace(recipient)
	switch channel {
	case ChannelWhatsApp:
		recipient = shared.OnlyDigits(recipient)
		if len(recipient) < 10 || len(recipient) > 13 {
			return nil, shared.NewDomainError("INVALID_RECIPIENT", "WhatsApp number must have 10 to 13 digits")
		}
		if len(recipient) <= 11 {
			// national number, add Brazil's country code
			recipient = "55" + recipient
		}
	case ChannelEmail:
		recipient = strings.ToLower(recipient)
		if !strings.Contains(recipient, "@") {
			return nil, shared.NewDomainError("INVALID_RECIPIENT", "Email address is not valid")
		}
	}
	if strings.TrimSpace(body) == "" {
		return nil, shared.NewDomainError("INVALID_BODY", "Message body is required")
	}
	return &Notification{
		ID:            uuid.New(),
		CompanyID:     companyID,
		Channel:       channel,
		Recipient:     recipient,
		Subject:       subject,
		Body:          body,
		ReferenceType: refType,
		ReferenceID:   refID,
		Status:        StatusPending,
		CreatedAt:     time.Now(),
	}, nil
}

// MarkSent records a successful delivery
func (n *Notification) MarkSent(providerID string) {
	now := time.Now()
	n.Status = StatusSent
	n.ProviderMessageID = providerID
	n.SentAt = &now
	n.Error = ""
}

// MarkFailed records a delivery failure
func (n *Notification) MarkFailed(err error) {
	n.Status = StatusFailed
	if err != nil {
		n.Error = err.Error()
	}
}

// Filter narrows notification listings
type Filter struct {
	shared.Filter
	Channel     Channel
	Status      Status
	ReferenceID *uuid.UUID
}

// Repository defines persistence for notifications
type Repository interface {
	FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter Filter) ([]Notification, int64, error)
	Save(ctx context.Context, n *Notification) error
}
