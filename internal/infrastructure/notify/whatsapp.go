// Package notify contains the outbound message channels: the WhatsApp
// Business Cloud API client and the SMTP mailer.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pdv/backend/internal/domain/notification"
	"github.com/pdv/backend/internal/domain/shared"
	"github.com/pdv/backend/internal/infrastructure/config"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

var _ notification.WhatsAppSender = (*WhatsAppClient)(nil)

// ErrDisabled is returned by channels that are turned off in configuration
var ErrDisabled = errors.New("notification channel disabled")

// WhatsAppError is an error answered by the Cloud API
type WhatsAppError struct {
	StatusCode int
	Code       int64
	Message    string
}

func (e *WhatsAppError) Error() string {
	return fmt.Sprintf("whatsapp: %d (code %d): %s", e.StatusCode, e.Code, e.Message)
}

// WhatsAppClient sends messages through the WhatsApp Business Cloud API
type WhatsAppClient struct {
	enabled    bool
	endpoint   string
	token      string
	client     *http.Client
	logger     *zap.Logger
	newBackOff func() backoff.BackOff
}

// NewWhatsAppClient creates a client for the configured phone number id
func NewWhatsAppClient(cfg config.WhatsAppConfig, logger *zap.Logger) *WhatsAppClient {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://graph.facebook.com"
	}
	version := cfg.APIVersion
	if version == "" {
		version = "v21.0"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &WhatsAppClient{
		enabled:  cfg.Enabled,
		endpoint: fmt.Sprintf("%s/%s/%s/messages", base, version, cfg.PhoneNumberID),
		token:    cfg.AccessToken,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 300 * time.Millisecond
			return backoff.WithMaxRetries(b, 2)
		},
	}
}

// SendText sends a plain text message
func (c *WhatsAppClient) SendText(ctx context.Context, to, body string) (string, error) {
	return c.send(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                normalizePhone(to),
		"type":              "text",
		"text":              map[string]any{"preview_url": false, "body": body},
	})
}

// SendDocument sends a document by public link, e.g. a presigned PDF URL
func (c *WhatsAppClient) SendDocument(ctx context.Context, to, link, filename, caption string) (string, error) {
	return c.send(ctx, map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                normalizePhone(to),
		"type":              "document",
		"document":          map[string]any{"link": link, "filename": filename, "caption": caption},
	})
}

func (c *WhatsAppClient) send(ctx context.Context, payload map[string]any) (string, error) {
	if !c.enabled {
		return "", ErrDisabled
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	var messageID string
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

		if resp.StatusCode >= 300 {
			apiErr := &WhatsAppError{
				StatusCode: resp.StatusCode,
				Code:       gjson.GetBytes(raw, "error.code").Int(),
				Message:    gjson.GetBytes(raw, "error.message").String(),
			}
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				c.logger.Warn("WhatsApp transient error", zap.Int("status", resp.StatusCode))
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}
		messageID = gjson.GetBytes(raw, "messages.0.id").String()
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return "", err
	}
	return messageID, nil
}

// normalizePhone keeps digits and adds the Brazilian country code to
// national numbers (10 or 11 digits).
func normalizePhone(phone string) string {
	digits := shared.OnlyDigits(phone)
	if len(digits) == 10 || len(digits) == 11 {
		return "55" + digits
	}
	return digits
}
