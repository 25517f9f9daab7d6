package services

import (
	"context"
	"testing"
	"time"

	"warnengine/internal/common"
	"warnengine/internal/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type ConfigResolverTestSuite struct {
	suite.Suite
	defs     *MockDefinitionRepository
	configs  *MockConfigurationRepository
	cache    *MockCacheService
	clock    *clockwork.FakeClock
	resolver ConfigResolver
	def      *models.WarningDefinition
	agencyID uuid.UUID
}

func (suite *ConfigResolverTestSuite) SetupTest() {
	suite.defs = &MockDefinitionRepository{}
	suite.configs = &MockConfigurationRepository{}
	suite.cache = &MockCacheService{}
	suite.clock = clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	logger := zap.NewNop()

	catalog := NewDefinitionCatalog(suite.defs, suite.cache, time.Minute, suite.clock, logger)
	suite.resolver = NewConfigResolver(suite.configs, catalog, suite.clock, logger)
	suite.def = leadDefinition()
	suite.agencyID = uuid.New()

	suite.cache.On("GetDefinition", mock.Anything, suite.def.Code).Return(suite.def, nil).Maybe()
	suite.configs.Test(suite.T())
}

func (suite *ConfigResolverTestSuite) TearDownTest() {
	suite.configs.AssertExpectations(suite.T())
}

func TestConfigResolverTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigResolverTestSuite))
}

func (suite *ConfigResolverTestSuite) TestResolve_NoOverrideUsesDefinitionDefaults() {
	ctx := context.Background()
	suite.configs.On("Get", ctx, suite.agencyID, suite.def.Code).Return(nil, common.ErrNotFound)

	ec, err := suite.resolver.Resolve(ctx, suite.agencyID, suite.def.Code)

	suite.NoError(err)
	suite.False(ec.Overridden)
	suite.True(ec.Enabled)
	suite.Equal(24, ec.Threshold)
	suite.Equal(models.SeverityHigh, ec.Severity)
	suite.Equal([]models.NotificationChannel{models.ChannelInApp}, ec.Channels)
	suite.True(ec.AllowSnooze)
	suite.Equal(models.DefaultMaxSnoozeHours, ec.MaxSnoozeHours)
	suite.Equal(suite.def.Title, ec.Message)
}

func (suite *ConfigResolverTestSuite) TestResolve_OverrideWins() {
	ctx := context.Background()
	cfg := models.NewWarningConfiguration(suite.agencyID, suite.def.Code, suite.clock.Now())
	threshold := 48
	cfg.CustomThreshold = &threshold
	cfg.NotifyEmail = true
	cfg.EscalateToOwner = true
	cfg.EscalationDelayHours = 12
	suite.configs.On("Get", ctx, suite.agencyID, suite.def.Code).Return(cfg, nil)

	ec, err := suite.resolver.Resolve(ctx, suite.agencyID, suite.def.Code)

	suite.NoError(err)
	suite.True(ec.Overridden)
	suite.Equal(48, ec.Threshold)
	suite.ElementsMatch([]models.NotificationChannel{models.ChannelInApp, models.ChannelEmail}, ec.Channels)
	suite.Require().NotNil(ec.EscalationRole)
	suite.Equal(models.RoleAgencyOwner, *ec.EscalationRole)
	suite.Equal(12, *ec.EscalationDelayHours)
}

func (suite *ConfigResolverTestSuite) TestResolveFor_PlatformWarningSkipsLookup() {
	ec, err := suite.resolver.ResolveFor(context.Background(), suite.def, uuid.Nil)

	suite.NoError(err)
	suite.False(ec.Overridden)
	suite.configs.AssertNotCalled(suite.T(), "Get", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ConfigResolverTestSuite) TestUpsert_FirstOverrideInserted() {
	ctx := context.Background()
	actor := uuid.New()
	cfg := models.NewWarningConfiguration(suite.agencyID, suite.def.Code, suite.clock.Now())
	cfg.Version = 0
	suite.configs.On("Get", ctx, suite.agencyID, suite.def.Code).Return(nil, common.ErrNotFound)
	suite.configs.On("Insert", ctx, cfg).Return(nil)

	saved, err := suite.resolver.Upsert(ctx, cfg, actor)

	suite.NoError(err)
	suite.Equal(1, saved.Version)
	suite.Equal(&actor, saved.ConfiguredBy)
}

func (suite *ConfigResolverTestSuite) TestUpsert_UpdatesWithMatchingVersion() {
	ctx := context.Background()
	existing := models.NewWarningConfiguration(suite.agencyID, suite.def.Code, suite.clock.Now())
	existing.Version = 3
	incoming := *existing
	incoming.ID = uuid.Nil
	incoming.NotifySMS = true
	suite.configs.On("Get", ctx, suite.agencyID, suite.def.Code).Return(existing, nil)
	suite.configs.On("Update", ctx, &incoming, 3).Return(nil)

	saved, err := suite.resolver.Upsert(ctx, &incoming, uuid.New())

	suite.NoError(err)
	suite.Equal(4, saved.Version)
	suite.Equal(existing.ID, saved.ID)
	suite.True(saved.NotifySMS)
}

func (suite *ConfigResolverTestSuite) TestUpsert_StaleVersionRejected() {
	ctx := context.Background()
	existing := models.NewWarningConfiguration(suite.agencyID, suite.def.Code, suite.clock.Now())
	existing.Version = 3
	incoming := *existing
	incoming.Version = 2
	suite.configs.On("Get", ctx, suite.agencyID, suite.def.Code).Return(existing, nil)

	_, err := suite.resolver.Upsert(ctx, &incoming, uuid.New())

	suite.ErrorIs(err, common.ErrStaleVersion)
	suite.configs.AssertNotCalled(suite.T(), "Update", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ConfigResolverTestSuite) TestUpsert_ValidationErrors() {
	start := models.TimeOfDay{Hour: 22}
	tooHigh := 10000
	maxThreshold := 168
	suite.def.MaxThreshold = &maxThreshold

	tests := []struct {
		name   string
		mutate func(cfg *models.WarningConfiguration)
		field  string
	}{
		{"half quiet window", func(cfg *models.WarningConfiguration) { cfg.QuietHoursStart = &start }, "quiet_hours"},
		{"threshold out of range", func(cfg *models.WarningConfiguration) { cfg.CustomThreshold = &tooHigh }, "custom_threshold"},
		{"snooze limit", func(cfg *models.WarningConfiguration) { cfg.MaxSnoozeHours = 500 }, "max_snooze_hours"},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			cfg := models.NewWarningConfiguration(suite.agencyID, suite.def.Code, suite.clock.Now())
			tt.mutate(cfg)

			_, err := suite.resolver.Upsert(context.Background(), cfg, uuid.New())

			var verr *common.ValidationError
			suite.Require().ErrorAs(err, &verr)
			suite.Equal(tt.field, verr.Field)
		})
	}
}
