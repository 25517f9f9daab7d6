package jobs

import (
	"context"
	"time"

	"warnengine/internal/models"
	"warnengine/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockSignalRepository struct {
	mock.Mock
}

func (m *MockSignalRepository) ListActiveAgencies(ctx context.Context) ([]*models.Agency, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.Agency), args.Error(1)
}

func (m *MockSignalRepository) GetAgency(ctx context.Context, id uuid.UUID) (*models.Agency, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Agency), args.Error(1)
}

func (m *MockSignalRepository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockSignalRepository) FindUsersByRole(ctx context.Context, agencyID uuid.UUID, role models.TargetRole) ([]*models.User, error) {
	args := m.Called(ctx, agencyID, role)
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockSignalRepository) ListUnansweredLeads(ctx context.Context, agencyID uuid.UUID, receivedBefore time.Time) ([]*models.Lead, error) {
	args := m.Called(ctx, agencyID, receivedBefore)
	return args.Get(0).([]*models.Lead), args.Error(1)
}

func (m *MockSignalRepository) ListListingsWithFewPhotos(ctx context.Context, agencyID uuid.UUID, minPhotos int) ([]*models.Listing, error) {
	args := m.Called(ctx, agencyID, minPhotos)
	return args.Get(0).([]*models.Listing), args.Error(1)
}

func (m *MockSignalRepository) ListInactiveAgents(ctx context.Context, agencyID uuid.UUID, inactiveSince time.Time) ([]*models.Agent, error) {
	args := m.Called(ctx, agencyID, inactiveSince)
	return args.Get(0).([]*models.Agent), args.Error(1)
}

type MockDefinitionCatalog struct {
	mock.Mock
}

func (m *MockDefinitionCatalog) Get(ctx context.Context, code string) (*models.WarningDefinition, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WarningDefinition), args.Error(1)
}

func (m *MockDefinitionCatalog) List(ctx context.Context, includeDisabled bool) ([]*models.WarningDefinition, error) {
	args := m.Called(ctx, includeDisabled)
	return args.Get(0).([]*models.WarningDefinition), args.Error(1)
}

func (m *MockDefinitionCatalog) ListEnabled(ctx context.Context, entityType models.EntityType) ([]*models.WarningDefinition, error) {
	args := m.Called(ctx, entityType)
	return args.Get(0).([]*models.WarningDefinition), args.Error(1)
}

func (m *MockDefinitionCatalog) ListByFrequency(ctx context.Context, freq models.CheckFrequency) ([]*models.WarningDefinition, error) {
	args := m.Called(ctx, freq)
	return args.Get(0).([]*models.WarningDefinition), args.Error(1)
}

func (m *MockDefinitionCatalog) Create(ctx context.Context, def *models.WarningDefinition, actor *uuid.UUID) (*models.WarningDefinition, error) {
	args := m.Called(ctx, def, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WarningDefinition), args.Error(1)
}

func (m *MockDefinitionCatalog) Update(ctx context.Context, code string, req *services.UpdateDefinitionRequest) (*models.WarningDefinition, error) {
	args := m.Called(ctx, code, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WarningDefinition), args.Error(1)
}

func (m *MockDefinitionCatalog) Delete(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
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

type MockWarningService struct {
	mock.Mock
}

func (m *MockWarningService) DetectOrUpdate(ctx context.Context, d models.Detection) (*models.ActiveWarning, bool, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.ActiveWarning), args.Bool(1), args.Error(2)
}

func (m *MockWarningService) Get(ctx context.Context, id uuid.UUID) (*models.ActiveWarning, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ActiveWarning), args.Error(1)
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
	args := m.Called(ctx, id, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ActiveWarning), args.Error(1)
}

func (m *MockWarningService) Resolve(ctx context.Context, id uuid.UUID, actionTaken, notes string) (*models.ActiveWarning, error) {
	args := m.Called(ctx, id, actionTaken, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ActiveWarning), args.Error(1)
}

func (m *MockWarningService) Dismiss(ctx context.Context, id uuid.UUID, reason string) (*models.ActiveWarning, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ActiveWarning), args.Error(1)
}

func (m *MockWarningService) Snooze(ctx context.Context, id uuid.UUID, hours int) (*models.ActiveWarning, error) {
	args := m.Called(ctx, id, hours)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ActiveWarning), args.Error(1)
}

func (m *MockWarningService) Escalate(ctx context.Context, id, to uuid.UUID) (*models.ActiveWarning, error) {
	args := m.Called(ctx, id, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ActiveWarning), args.Error(1)
}

func (m *MockWarningService) ConditionCleared(ctx context.Context, id uuid.UUID, autoResolveAfterHours *int) (bool, error) {
	args := m.Called(ctx, id, autoResolveAfterHours)
	return args.Bool(0), args.Error(1)
}

type MockComposer struct {
	mock.Mock
}

func (m *MockComposer) Compose(ctx context.Context, w *models.ActiveWarning, ec *models.EffectiveConfig, recipients []uuid.UUID, metadata models.JSONB) ([]*models.NotificationQueue, error) {
	args := m.Called(ctx, w, ec, recipients, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.NotificationQueue), args.Error(1)
}

type MockNotificationQueueRepository struct {
	mock.Mock
}

func (m *MockNotificationQueueRepository) Insert(ctx context.Context, n *models.NotificationQueue) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationQueueRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.NotificationQueue, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.NotificationQueue), args.Error(1)
}

func (m *MockNotificationQueueRepository) Update(ctx context.Context, n *models.NotificationQueue, expectedVersion int) error {
	args := m.Called(ctx, n, expectedVersion)
	return args.Error(0)
}

func (m *MockNotificationQueueRepository) ClaimDue(ctx context.Context, workerID string, now, staleBefore time.Time, limit int) ([]*models.NotificationQueue, error) {
	args := m.Called(ctx, workerID, now, staleBefore, limit)
	return args.Get(0).([]*models.NotificationQueue), args.Error(1)
}

func (m *MockNotificationQueueRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationQueueRepository) ListForUser(ctx context.Context, userID uuid.UUID, channel *models.NotificationChannel, unreadOnly bool, limit, offset int) ([]*models.NotificationQueue, error) {
	args := m.Called(ctx, userID, channel, unreadOnly, limit, offset)
	return args.Get(0).([]*models.NotificationQueue), args.Error(1)
}

func (m *MockNotificationQueueRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationQueueRepository) ListFailedUnarchived(ctx context.Context, limit int) ([]*models.NotificationQueue, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*models.NotificationQueue), args.Error(1)
}

func (m *MockNotificationQueueRepository) RenewClaim(ctx context.Context, id uuid.UUID, workerID string, now time.Time, expectedVersion int) error {
	args := m.Called(ctx, id, workerID, now, expectedVersion)
	return args.Error(0)
}

func (m *MockNotificationQueueRepository) ReleaseClaims(ctx context.Context, workerID string, ids []uuid.UUID, now time.Time) (int64, error) {
	args := m.Called(ctx, workerID, ids, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationQueueRepository) MarkArchived(ctx context.Context, ids []uuid.UUID, now time.Time) error {
	args := m.Called(ctx, ids, now)
	return args.Error(0)
}

type MockActiveWarningRepository struct {
	mock.Mock
}

func (m *MockActiveWarningRepository) Upsert(ctx context.Context, w *models.ActiveWarning) (*models.ActiveWarning, bool, error) {
	args := m.Called(ctx, w)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.ActiveWarning), args.Bool(1), args.Error(2)
}

func (m *MockActiveWarningRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ActiveWarning, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ActiveWarning), args.Error(1)
}

func (m *MockActiveWarningRepository) Update(ctx context.Context, w *models.ActiveWarning, expectedVersion int) error {
	args := m.Called(ctx, w, expectedVersion)
	return args.Error(0)
}

func (m *MockActiveWarningRepository) ListOpenByDefinition(ctx context.Context, code string, agencyID uuid.UUID) ([]*models.ActiveWarning, error) {
	args := m.Called(ctx, code, agencyID)
	return args.Get(0).([]*models.ActiveWarning), args.Error(1)
}

func (m *MockActiveWarningRepository) ListEscalationCandidates(ctx context.Context, now time.Time, limit int) ([]*models.ActiveWarning, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]*models.ActiveWarning), args.Error(1)
}

func (m *MockActiveWarningRepository) ListForUser(ctx context.Context, userID uuid.UUID, status *models.WarningStatus, limit, offset int) ([]*models.ActiveWarning, error) {
	args := m.Called(ctx, userID, status, limit, offset)
	return args.Get(0).([]*models.ActiveWarning), args.Error(1)
}

func (m *MockActiveWarningRepository) RecordNotified(ctx context.Context, id uuid.UUID, now time.Time) error {
	args := m.Called(ctx, id, now)
	return args.Error(0)
}

type MockNotificationSettingsService struct {
	mock.Mock
}

func (m *MockNotificationSettingsService) Get(ctx context.Context, userID uuid.UUID) (*models.UserNotificationSettings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserNotificationSettings), args.Error(1)
}

func (m *MockNotificationSettingsService) Update(ctx context.Context, s *models.UserNotificationSettings, actor uuid.UUID) (*models.UserNotificationSettings, error) {
	args := m.Called(ctx, s, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserNotificationSettings), args.Error(1)
}

func (m *MockNotificationSettingsService) EnableDoNotDisturb(ctx context.Context, userID uuid.UUID, hours int, reason string) (*models.UserNotificationSettings, error) {
	args := m.Called(ctx, userID, hours, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserNotificationSettings), args.Error(1)
}

func (m *MockNotificationSettingsService) DisableDoNotDisturb(ctx context.Context, userID uuid.UUID) (*models.UserNotificationSettings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserNotificationSettings), args.Error(1)
}

func (m *MockNotificationSettingsService) AddDeviceToken(ctx context.Context, userID uuid.UUID, token string) (*models.UserNotificationSettings, error) {
	args := m.Called(ctx, userID, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserNotificationSettings), args.Error(1)
}

func (m *MockNotificationSettingsService) RemoveDeviceToken(ctx context.Context, userID uuid.UUID, token string) (*models.UserNotificationSettings, error) {
	args := m.Called(ctx, userID, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserNotificationSettings), args.Error(1)
}

func (m *MockNotificationSettingsService) RecordSent(ctx context.Context, s *models.UserNotificationSettings) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

type MockAddressResolver struct {
	mock.Mock
}

func (m *MockAddressResolver) Resolve(ctx context.Context, n *models.NotificationQueue, s *models.UserNotificationSettings) (string, error) {
	args := m.Called(ctx, n, s)
	return args.String(0), args.Error(1)
}

type MockProvider struct {
	mock.Mock
	name string
}

func (m *MockProvider) Name() string { return m.name }

func (m *MockProvider) Send(ctx context.Context, channel models.NotificationChannel, address, subject, body string) (string, error) {
	args := m.Called(ctx, channel, address, subject, body)
	return args.String(0), args.Error(1)
}

type MockArchiveStore struct {
	mock.Mock
}

func (m *MockArchiveStore) Put(ctx context.Context, objectName string, data []byte) error {
	args := m.Called(ctx, objectName, data)
	return args.Error(0)
}

func (m *MockArchiveStore) EnsureBucketExists(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetDefinition(ctx context.Context, code string) (*models.WarningDefinition, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WarningDefinition), args.Error(1)
}

func (m *MockCacheService) SetDefinition(ctx context.Context, def *models.WarningDefinition, ttl time.Duration) error {
	args := m.Called(ctx, def, ttl)
	return args.Error(0)
}

func (m *MockCacheService) DeleteDefinition(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockCacheService) AcquireLock(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	args := m.Called(ctx, name, ttl)
	return func() {}, args.Bool(0), args.Error(1)
}

func (m *MockCacheService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockRealtimeEvaluator struct {
	mock.Mock
}

func (m *MockRealtimeEvaluator) RunForAgency(ctx context.Context, agencyID uuid.UUID, entityType models.EntityType) (*EvaluationSummary, error) {
	args := m.Called(ctx, agencyID, entityType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*EvaluationSummary), args.Error(1)
}
