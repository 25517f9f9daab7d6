package services

import (
	"context"
	"time"

	"warnengine/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockDefinitionRepository struct {
	mock.Mock
}

func (m *MockDefinitionRepository) GetByCode(ctx context.Context, code string) (*models.WarningDefinition, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WarningDefinition), args.Error(1)
}

func (m *MockDefinitionRepository) List(ctx context.Context, includeDisabled bool) ([]*models.WarningDefinition, error) {
	args := m.Called(ctx, includeDisabled)
	return args.Get(0).([]*models.WarningDefinition), args.Error(1)
}

func (m *MockDefinitionRepository) ListEnabled(ctx context.Context, entityType models.EntityType) ([]*models.WarningDefinition, error) {
	args := m.Called(ctx, entityType)
	return args.Get(0).([]*models.WarningDefinition), args.Error(1)
}

func (m *MockDefinitionRepository) ListByFrequency(ctx context.Context, freq models.CheckFrequency) ([]*models.WarningDefinition, error) {
	args := m.Called(ctx, freq)
	return args.Get(0).([]*models.WarningDefinition), args.Error(1)
}

func (m *MockDefinitionRepository) Create(ctx context.Context, def *models.WarningDefinition) error {
	args := m.Called(ctx, def)
	return args.Error(0)
}

func (m *MockDefinitionRepository) Update(ctx context.Context, def *models.WarningDefinition, expectedVersion int) error {
	args := m.Called(ctx, def, expectedVersion)
	return args.Error(0)
}

type MockConfigurationRepository struct {
	mock.Mock
}

func (m *MockConfigurationRepository) Get(ctx context.Context, agencyID uuid.UUID, code string) (*models.WarningConfiguration, error) {
	args := m.Called(ctx, agencyID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WarningConfiguration), args.Error(1)
}

func (m *MockConfigurationRepository) ListByAgency(ctx context.Context, agencyID uuid.UUID) ([]*models.WarningConfiguration, error) {
	args := m.Called(ctx, agencyID)
	return args.Get(0).([]*models.WarningConfiguration), args.Error(1)
}

func (m *MockConfigurationRepository) Insert(ctx context.Context, cfg *models.WarningConfiguration) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func (m *MockConfigurationRepository) Update(ctx context.Context, cfg *models.WarningConfiguration, expectedVersion int) error {
	args := m.Called(ctx, cfg, expectedVersion)
	return args.Error(0)
}

type MockActiveWarningRepository struct {
	mock.Mock
}

func (m *MockActiveWarningRepository) Upsert(ctx context.Context, w *models.ActiveWarning) (*models.ActiveWarning, bool, error) {
	args := m.Called(ctx, w)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
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

type MockUserSettingsRepository struct {
	mock.Mock
}

func (m *MockUserSettingsRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserNotificationSettings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserNotificationSettings), args.Error(1)
}

func (m *MockUserSettingsRepository) Insert(ctx context.Context, s *models.UserNotificationSettings) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockUserSettingsRepository) Update(ctx context.Context, s *models.UserNotificationSettings, expectedVersion int) error {
	args := m.Called(ctx, s, expectedVersion)
	return args.Error(0)
}

func (m *MockUserSettingsRepository) IncrementDailyCount(ctx context.Context, userID uuid.UUID, today time.Time, now time.Time) error {
	args := m.Called(ctx, userID, today, now)
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

// leadDefinition is the LEAD_UNANSWERED_24H definition used across tests.
func leadDefinition() *models.WarningDefinition {
	escalateAfter := 48
	role := models.RoleSuperAgent
	autoResolve := 2
	return &models.WarningDefinition{
		ID:                    uuid.New(),
		Code:                  "LEAD_UNANSWERED_24H",
		Title:                 "Lead unanswered",
		Description:           "A lead has not been answered",
		Category:              models.CategoryOperational,
		Severity:              models.SeverityHigh,
		TargetRole:            models.RoleAgent,
		RequiredTier:          models.TierBasic,
		EntityType:            models.EntityLead,
		DefaultThreshold:      24,
		ThresholdUnit:         models.UnitHours,
		CheckFrequency:        models.FrequencyHourly,
		AutoResolveAfterHours: &autoResolve,
		EscalateAfterHours:    &escalateAfter,
		EscalateToRole:        &role,
		SuggestedAction:       "Call the lead back",
		IsEnabled:             true,
		IsSystem:              true,
		Priority:              10,
		Version:               1,
	}
}
