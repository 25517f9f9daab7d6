package handlers

import (
	"context"

	"warnengine/internal/models"
	"warnengine/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockWarningService struct {
	mock.Mock
}

func (m *MockWarningService) warning(args mock.Arguments) (*models.ActiveWarning, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ActiveWarning), args.Error(1)
}

func (m *MockWarningService) DetectOrUpdate(ctx context.Context, d models.Detection) (*models.ActiveWarning, bool, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.ActiveWarning), args.Bool(1), args.Error(2)
}

func (m *MockWarningService) Get(ctx context.Context, id uuid.UUID) (*models.ActiveWarning, error) {
	return m.warning(m.Called(ctx, id))
}

func (m *MockWarningService) ListForUser(ctx context.Context, userID uuid.UUID, status *models.WarningStatus, limit, offset int) ([]*models.ActiveWarning, error) {
	args := m.Called(ctx, userID, status, limit, offset)
	return args.Get(0).([]*models.ActiveWarning), args.Error(1)
}

func (m *MockWarningService) ListOpen(ctx context.Context, code string, agencyID uuid.UUID) ([]*models.ActiveWarning, error) {
	args := m.Called(ctx, code, agencyID)
	return args.Get(0).([]*models.ActiveWarning), args.Error(1)
}

func (m *MockWarningService) Acknowledge(ctx context.Context, id, actor uuid.UUID) (*models.ActiveWarning, error) {
	return m.warning(m.Called(ctx, id, actor))
}

func (m *MockWarningService) Resolve(ctx context.Context, id uuid.UUID, actionTaken, notes string) (*models.ActiveWarning, error) {
	return m.warning(m.Called(ctx, id, actionTaken, notes))
}

func (m *MockWarningService) Dismiss(ctx context.Context, id uuid.UUID, reason string) (*models.ActiveWarning, error) {
	return m.warning(m.Called(ctx, id, reason))
}

func (m *MockWarningService) Snooze(ctx context.Context, id uuid.UUID, hours int) (*models.ActiveWarning, error) {
	return m.warning(m.Called(ctx, id, hours))
}

func (m *MockWarningService) Escalate(ctx context.Context, id, to uuid.UUID) (*models.ActiveWarning, error) {
	return m.warning(m.Called(ctx, id, to))
}

func (m *MockWarningService) ConditionCleared(ctx context.Context, id uuid.UUID, autoResolveAfterHours *int) (bool, error) {
	args := m.Called(ctx, id, autoResolveAfterHours)
	return args.Bool(0), args.Error(1)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) entry(args mock.Arguments) (*models.NotificationQueue, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.NotificationQueue), args.Error(1)
}

func (m *MockNotificationService) ListForUser(ctx context.Context, userID uuid.UUID, channel *models.NotificationChannel, unreadOnly bool, limit, offset int) ([]*models.NotificationQueue, error) {
	args := m.Called(ctx, userID, channel, unreadOnly, limit, offset)
	return args.Get(0).([]*models.NotificationQueue), args.Error(1)
}

func (m *MockNotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, userID, id uuid.UUID) (*models.NotificationQueue, error) {
	return m.entry(m.Called(ctx, userID, id))
}

func (m *MockNotificationService) MarkClicked(ctx context.Context, userID, id uuid.UUID) (*models.NotificationQueue, error) {
	return m.entry(m.Called(ctx, userID, id))
}

func (m *MockNotificationService) MarkDelivered(ctx context.Context, id uuid.UUID) (*models.NotificationQueue, error) {
	return m.entry(m.Called(ctx, id))
}

func (m *MockNotificationService) MarkBounced(ctx context.Context, id uuid.UUID, reason string) (*models.NotificationQueue, error) {
	return m.entry(m.Called(ctx, id, reason))
}

func (m *MockNotificationService) Get(ctx context.Context, id uuid.UUID) (*models.NotificationQueue, error) {
	return m.entry(m.Called(ctx, id))
}

func (m *MockNotificationService) Cancel(ctx context.Context, id uuid.UUID) (*models.NotificationQueue, error) {
	return m.entry(m.Called(ctx, id))
}

func (m *MockNotificationService) Retry(ctx context.Context, id uuid.UUID) (*models.NotificationQueue, error) {
	return m.entry(m.Called(ctx, id))
}

type MockConfigResolver struct {
	mock.Mock
}

func (m *MockConfigResolver) Resolve(ctx context.Context, agencyID uuid.UUID, code string) (*models.EffectiveConfig, error) {
	args := m.Called(ctx, agencyID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EffectiveConfig), args.Error(1)
}

func (m *MockConfigResolver) ResolveFor(ctx context.Context, def *models.WarningDefinition, agencyID uuid.UUID) (*models.EffectiveConfig, error) {
	args := m.Called(ctx, def, agencyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EffectiveConfig), args.Error(1)
}

func (m *MockConfigResolver) Get(ctx context.Context, agencyID uuid.UUID, code string) (*models.WarningConfiguration, error) {
	args := m.Called(ctx, agencyID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WarningConfiguration), args.Error(1)
}

func (m *MockConfigResolver) ListOverrides(ctx context.Context, agencyID uuid.UUID) ([]*models.WarningConfiguration, error) {
	args := m.Called(ctx, agencyID)
	return args.Get(0).([]*models.WarningConfiguration), args.Error(1)
}

func (m *MockConfigResolver) Upsert(ctx context.Context, cfg *models.WarningConfiguration, actor uuid.UUID) (*models.WarningConfiguration, error) {
	args := m.Called(ctx, cfg, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WarningConfiguration), args.Error(1)
}

var (
	_ services.WarningService      = (*MockWarningService)(nil)
	_ services.NotificationService = (*MockNotificationService)(nil)
	_ services.ConfigResolver      = (*MockConfigResolver)(nil)
)
