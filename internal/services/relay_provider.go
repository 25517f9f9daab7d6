package services

import (
	"context"
	"fmt"
	"time"

	"warnengine/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RelayRequest is the payload accepted by the outbound gateway.
type RelayRequest struct {
	Channel string `json:"channel"`
	To      string `json:"to"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
}

// RelayResponse is the gateway's acknowledgement.
type RelayResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

// RelayProvider forwards email, sms and push messages to an HTTP gateway
// that owns the actual transport. Sends are single attempts: POSTs are not
// idempotent, and the queue's own backoff decides when to try again.
type RelayProvider struct {
	name       string
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewRelayProvider(name, baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *RelayProvider {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}

	return &RelayProvider{
		name:       name,
		httpClient: client,
		logger:     logger.Named("relay").With(zap.String("provider", name)),
	}
}

func (p *RelayProvider) Name() string { return p.name }

func (p *RelayProvider) Send(ctx context.Context, channel models.NotificationChannel, address, subject, body string) (string, error) {
	var response RelayResponse
	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetBody(RelayRequest{Channel: string(channel), To: address, Subject: subject, Body: body}).
		SetResult(&response).
		SetError(&response).
		Post("/messages")
	if err != nil {
		return "", fmt.Errorf("relay %s: %w", p.name, err)
	}
	if resp.IsError() {
		p.logger.Warn("relay rejected message",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("error", response.Error),
		)
		return "", fmt.Errorf("relay %s rejected message: status %d %s", p.name, resp.StatusCode(), response.Error)
	}
	if response.MessageID == "" {
		response.MessageID = uuid.NewString()
	}
	return response.MessageID, nil
}

// WebhookPayload is what a user's webhook endpoint receives.
type WebhookPayload struct {
	Channel string    `json:"channel"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

// WebhookProvider posts messages to the recipient's own URL.
type WebhookProvider struct {
	httpClient *resty.Client
	now        func() time.Time
}

func NewWebhookProvider(timeout time.Duration, now func() time.Time) *WebhookProvider {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "warnengine-webhook/1.0")
	return &WebhookProvider{httpClient: client, now: now}
}

func (p *WebhookProvider) Name() string { return "webhook" }

func (p *WebhookProvider) Send(ctx context.Context, channel models.NotificationChannel, address, subject, body string) (string, error) {
	messageID := uuid.NewString()
	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetHeader("X-Message-Id", messageID).
		SetBody(WebhookPayload{Channel: string(channel), Subject: subject, Body: body, SentAt: p.now().UTC()}).
		Post(address)
	if err != nil {
		return "", fmt.Errorf("webhook post: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode())
	}
	return messageID, nil
}
