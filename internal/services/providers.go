package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"warnengine/internal/models"
	"warnengine/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoAddress means the recipient has no address for the channel.
var ErrNoAddress = errors.New("no recipient address for channel")

// Provider hands one message to a transport and returns its message id.
type Provider interface {
	Name() string
	Send(ctx context.Context, channel models.NotificationChannel, address, subject, body string) (string, error)
}

// ProviderRegistry routes channels to providers.
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[models.NotificationChannel]Provider
	fallback  Provider
}

// NewProviderRegistry uses fallback for channels without a registered provider.
func NewProviderRegistry(fallback Provider) *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[models.NotificationChannel]Provider),
		fallback:  fallback,
	}
}

func (r *ProviderRegistry) Register(channel models.NotificationChannel, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[channel] = p
}

func (r *ProviderRegistry) For(channel models.NotificationChannel) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.providers[channel]; ok {
		return p, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("no provider registered for channel %s", channel)
}

// InAppProvider delivers by leaving the queue row in place as the inbox item.
type InAppProvider struct{}

func (InAppProvider) Name() string { return "in-app" }

func (InAppProvider) Send(_ context.Context, _ models.NotificationChannel, address, _, _ string) (string, error) {
	return "inapp-" + address + "-" + uuid.NewString(), nil
}

// LogProvider writes messages to the log instead of a transport.
type LogProvider struct {
	logger *zap.Logger
}

func NewLogProvider(logger *zap.Logger) *LogProvider {
	return &LogProvider{logger: logger.Named("log_provider")}
}

func (p *LogProvider) Name() string { return "log" }

func (p *LogProvider) Send(_ context.Context, channel models.NotificationChannel, address, subject, body string) (string, error) {
	id := uuid.NewString()
	p.logger.Info("notification",
		zap.String("channel", string(channel)),
		zap.String("to", address),
		zap.String("subject", subject),
		zap.Int("body_length", len(body)),
		zap.String("message_id", id),
	)
	return id, nil
}

// AddressResolver finds where a queue entry should be sent.
type AddressResolver interface {
	Resolve(ctx context.Context, n *models.NotificationQueue, s *models.UserNotificationSettings) (string, error)
}

type recipientDirectory struct {
	signals repositories.SignalRepository
}

func NewAddressResolver(signals repositories.SignalRepository) AddressResolver {
	return &recipientDirectory{signals: signals}
}

func (d *recipientDirectory) Resolve(ctx context.Context, n *models.NotificationQueue, s *models.UserNotificationSettings) (string, error) {
	switch n.Channel {
	case models.ChannelInApp:
		return n.UserID.String(), nil
	case models.ChannelWebhook:
		if s.WebhookURL == nil || *s.WebhookURL == "" {
			return "", ErrNoAddress
		}
		return *s.WebhookURL, nil
	case models.ChannelPush:
		tokens := s.PushTokens()
		if len(tokens) == 0 {
			return "", ErrNoAddress
		}
		return strings.Join(tokens, ","), nil
	case models.ChannelEmail, models.ChannelSMS:
		user, err := d.signals.GetUser(ctx, n.UserID)
		if err != nil {
			return "", err
		}
		if n.Channel == models.ChannelEmail {
			if user.Email == "" {
				return "", ErrNoAddress
			}
			return user.Email, nil
		}
		if user.Phone == nil || *user.Phone == "" {
			return "", ErrNoAddress
		}
		return *user.Phone, nil
	}
	return "", fmt.Errorf("unknown channel %s", n.Channel)
}
