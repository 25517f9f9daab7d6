package services

import (
	"context"
	"time"

	"warnengine/internal/common"
	"warnengine/internal/models"
	"warnengine/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// NotificationService handles inbox reads and operator actions on queue entries
type NotificationService interface {
	// Inbox
	ListForUser(ctx context.Context, userID uuid.UUID, channel *models.NotificationChannel, unreadOnly bool, limit, offset int) ([]*models.NotificationQueue, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) (*models.NotificationQueue, error)
	MarkClicked(ctx context.Context, userID, id uuid.UUID) (*models.NotificationQueue, error)

	// Provider callbacks
	MarkDelivered(ctx context.Context, id uuid.UUID) (*models.NotificationQueue, error)
	MarkBounced(ctx context.Context, id uuid.UUID, reason string) (*models.NotificationQueue, error)

	// Operator actions
	Get(ctx context.Context, id uuid.UUID) (*models.NotificationQueue, error)
	Cancel(ctx context.Context, id uuid.UUID) (*models.NotificationQueue, error)
	Retry(ctx context.Context, id uuid.UUID) (*models.NotificationQueue, error)
}

type notificationService struct {
	repo   repositories.NotificationQueueRepository
	clock  clockwork.Clock
	logger *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(repo repositories.NotificationQueueRepository, clock clockwork.Clock, logger *zap.Logger) NotificationService {
	return &notificationService{
		repo:   repo,
		clock:  clock,
		logger: logger.Named("notification_service"),
	}
}

func (s *notificationService) ListForUser(ctx context.Context, userID uuid.UUID, channel *models.NotificationChannel, unreadOnly bool, limit, offset int) ([]*models.NotificationQueue, error) {
	return s.repo.ListForUser(ctx, userID, channel, unreadOnly, limit, offset)
}

func (s *notificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *notificationService) Get(ctx context.Context, id uuid.UUID) (*models.NotificationQueue, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *notificationService) MarkRead(ctx context.Context, userID, id uuid.UUID) (*models.NotificationQueue, error) {
	return s.mutate(ctx, id, func(n *models.NotificationQueue, now time.Time) error {
		if n.UserID != userID {
			return common.ErrNotFound
		}
		return n.MarkRead(now)
	})
}

func (s *notificationService) MarkClicked(ctx context.Context, userID, id uuid.UUID) (*models.NotificationQueue, error) {
	return s.mutate(ctx, id, func(n *models.NotificationQueue, now time.Time) error {
		if n.UserID != userID {
			return common.ErrNotFound
		}
		return n.MarkClicked(now)
	})
}

func (s *notificationService) MarkDelivered(ctx context.Context, id uuid.UUID) (*models.NotificationQueue, error) {
	return s.mutate(ctx, id, func(n *models.NotificationQueue, now time.Time) error {
		return n.MarkDelivered(now)
	})
}

func (s *notificationService) MarkBounced(ctx context.Context, id uuid.UUID, reason string) (*models.NotificationQueue, error) {
	if reason == "" {
		reason = "Bounced"
	}
	return s.mutate(ctx, id, func(n *models.NotificationQueue, now time.Time) error {
		return n.MarkBounced(reason, now)
	})
}

// Cancel only prevents future attempts; a send already in flight completes.
func (s *notificationService) Cancel(ctx context.Context, id uuid.UUID) (*models.NotificationQueue, error) {
	n, err := s.mutate(ctx, id, func(n *models.NotificationQueue, now time.Time) error {
		return n.Cancel(now)
	})
	if err == nil {
		s.logger.Info("notification cancelled", zap.String("notification_id", id.String()))
	}
	return n, err
}

func (s *notificationService) Retry(ctx context.Context, id uuid.UUID) (*models.NotificationQueue, error) {
	n, err := s.mutate(ctx, id, func(n *models.NotificationQueue, now time.Time) error {
		return n.Retry(now)
	})
	if err == nil {
		s.logger.Info("notification resubmitted",
			zap.String("notification_id", id.String()),
			zap.Int("retry_count", n.RetryCount),
		)
	}
	return n, err
}

func (s *notificationService) mutate(ctx context.Context, id uuid.UUID, fn func(n *models.NotificationQueue, now time.Time) error) (*models.NotificationQueue, error) {
	var result *models.NotificationQueue
	err := retryOnConflict(ctx, func() error {
		n, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(n, s.clock.Now()); err != nil {
			return err
		}
		expected := n.Version
		n.Version++
		if err := s.repo.Update(ctx, n, expected); err != nil {
			return err
		}
		result = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
