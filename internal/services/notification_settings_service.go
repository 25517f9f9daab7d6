package services

import (
	"context"
	"errors"

	"warnengine/internal/common"
	"warnengine/internal/models"
	"warnengine/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// NotificationSettingsService owns per-user delivery preferences. Users
// without a stored row get the defaults; the row is created on first write.
type NotificationSettingsService interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.UserNotificationSettings, error)
	Update(ctx context.Context, s *models.UserNotificationSettings, actor uuid.UUID) (*models.UserNotificationSettings, error)
	EnableDoNotDisturb(ctx context.Context, userID uuid.UUID, hours int, reason string) (*models.UserNotificationSettings, error)
	DisableDoNotDisturb(ctx context.Context, userID uuid.UUID) (*models.UserNotificationSettings, error)
	AddDeviceToken(ctx context.Context, userID uuid.UUID, token string) (*models.UserNotificationSettings, error)
	RemoveDeviceToken(ctx context.Context, userID uuid.UUID, token string) (*models.UserNotificationSettings, error)
	// RecordSent counts one delivered notification against today's cap.
	RecordSent(ctx context.Context, s *models.UserNotificationSettings) error
}

type notificationSettingsService struct {
	repo   repositories.UserSettingsRepository
	clock  clockwork.Clock
	logger *zap.Logger
}

func NewNotificationSettingsService(repo repositories.UserSettingsRepository, clock clockwork.Clock, logger *zap.Logger) NotificationSettingsService {
	return &notificationSettingsService{
		repo:   repo,
		clock:  clock,
		logger: logger.Named("notification_settings"),
	}
}

func (s *notificationSettingsService) Get(ctx context.Context, userID uuid.UUID) (*models.UserNotificationSettings, error) {
	settings, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return models.DefaultUserNotificationSettings(userID, s.clock.Now()), nil
	}
	return settings, err
}

// Update replaces the stored preferences. settings.Version must match the
// stored version (0 when nothing is stored yet).
func (s *notificationSettingsService) Update(ctx context.Context, settings *models.UserNotificationSettings, actor uuid.UUID) (*models.UserNotificationSettings, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	settings.LastModifiedBy = &actor
	settings.UpdatedAt = now

	existing, err := s.repo.GetByUserID(ctx, settings.UserID)
	switch {
	case errors.Is(err, common.ErrNotFound):
		if settings.Version != 0 {
			return nil, common.ErrStaleVersion
		}
		if settings.ID == uuid.Nil {
			settings.ID = uuid.New()
		}
		settings.Version = 1
		settings.CreatedAt = now
		if err := s.repo.Insert(ctx, settings); err != nil {
			return nil, err
		}
		return settings, nil
	case err != nil:
		return nil, err
	}

	if settings.Version != existing.Version {
		return nil, common.ErrStaleVersion
	}
	expected := existing.Version
	settings.ID = existing.ID
	settings.CreatedAt = existing.CreatedAt
	settings.NotificationsToday = existing.NotificationsToday
	settings.LastNotificationReset = existing.LastNotificationReset
	settings.Version = expected + 1
	if err := s.repo.Update(ctx, settings, expected); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *notificationSettingsService) EnableDoNotDisturb(ctx context.Context, userID uuid.UUID, hours int, reason string) (*models.UserNotificationSettings, error) {
	return s.mutate(ctx, userID, func(settings *models.UserNotificationSettings) error {
		return settings.EnableDoNotDisturb(hours, reason, s.clock.Now())
	})
}

func (s *notificationSettingsService) DisableDoNotDisturb(ctx context.Context, userID uuid.UUID) (*models.UserNotificationSettings, error) {
	return s.mutate(ctx, userID, func(settings *models.UserNotificationSettings) error {
		settings.DisableDoNotDisturb(s.clock.Now())
		return nil
	})
}

func (s *notificationSettingsService) AddDeviceToken(ctx context.Context, userID uuid.UUID, token string) (*models.UserNotificationSettings, error) {
	if token == "" {
		return nil, common.NewValidationError("token", "is required")
	}
	return s.mutate(ctx, userID, func(settings *models.UserNotificationSettings) error {
		settings.AddPushDeviceToken(token, s.clock.Now())
		return nil
	})
}

func (s *notificationSettingsService) RemoveDeviceToken(ctx context.Context, userID uuid.UUID, token string) (*models.UserNotificationSettings, error) {
	return s.mutate(ctx, userID, func(settings *models.UserNotificationSettings) error {
		settings.RemovePushDeviceToken(token, s.clock.Now())
		return nil
	})
}

func (s *notificationSettingsService) RecordSent(ctx context.Context, settings *models.UserNotificationSettings) error {
	return retryOnConflict(ctx, func() error {
		now := s.clock.Now()
		err := s.repo.IncrementDailyCount(ctx, settings.UserID, settings.CounterDate(now), now)
		if !errors.Is(err, common.ErrNotFound) {
			return err
		}
		// first send for a user on defaults: persist the row with the count
		fresh := models.DefaultUserNotificationSettings(settings.UserID, now)
		fresh.Timezone = settings.Timezone
		fresh.IncrementDailyCount(now)
		fresh.Version = 1
		return s.repo.Insert(ctx, fresh)
	})
}

// mutate applies fn to the stored settings, or to the defaults when none are
// stored, and persists the result with a version check.
func (s *notificationSettingsService) mutate(ctx context.Context, userID uuid.UUID, fn func(*models.UserNotificationSettings) error) (*models.UserNotificationSettings, error) {
	var result *models.UserNotificationSettings
	err := retryOnConflict(ctx, func() error {
		settings, err := s.repo.GetByUserID(ctx, userID)
		isNew := errors.Is(err, common.ErrNotFound)
		if isNew {
			settings = models.DefaultUserNotificationSettings(userID, s.clock.Now())
		} else if err != nil {
			return err
		}

		if err := fn(settings); err != nil {
			return err
		}

		if isNew {
			settings.Version = 1
			if err := s.repo.Insert(ctx, settings); err != nil {
				return err
			}
		} else {
			expected := settings.Version
			settings.Version++
			if err := s.repo.Update(ctx, settings, expected); err != nil {
				return err
			}
		}
		result = settings
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
