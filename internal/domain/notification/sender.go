package notification

import "context"

// Attachment is a file sent along with an email
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Email is an outgoing HTML message
type Email struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer delivers emails
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// WhatsAppSender delivers WhatsApp messages and returns the provider message id
type WhatsAppSender interface {
	SendText(ctx context.Context, to, body string) (string, error)
	SendDocument(ctx context.Context, to, link, filename, caption string) (string, error)
}
