package services

import (
	"context"
	"errors"
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

type DefinitionCatalogTestSuite struct {
	suite.Suite
	repo    *MockDefinitionRepository
	cache   *MockCacheService
	clock   *clockwork.FakeClock
	catalog DefinitionCatalog
}

func (suite *DefinitionCatalogTestSuite) SetupTest() {
	suite.repo = &MockDefinitionRepository{}
	suite.cache = &MockCacheService{}
	suite.clock = clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	suite.catalog = NewDefinitionCatalog(suite.repo, suite.cache, time.Minute, suite.clock, zap.NewNop())

	suite.repo.Test(suite.T())
	suite.cache.Test(suite.T())
}

func (suite *DefinitionCatalogTestSuite) TearDownTest() {
	suite.repo.AssertExpectations(suite.T())
	suite.cache.AssertExpectations(suite.T())
}

func TestDefinitionCatalogTestSuite(t *testing.T) {
	suite.Run(t, new(DefinitionCatalogTestSuite))
}

func (suite *DefinitionCatalogTestSuite) TestGet_CacheHit() {
	ctx := context.Background()
	def := leadDefinition()
	suite.cache.On("GetDefinition", ctx, def.Code).Return(def, nil)

	got, err := suite.catalog.Get(ctx, def.Code)

	suite.NoError(err)
	suite.Same(def, got)
	suite.repo.AssertNotCalled(suite.T(), "GetByCode", mock.Anything, mock.Anything)
}

func (suite *DefinitionCatalogTestSuite) TestGet_CacheMissLoadsAndStores() {
	ctx := context.Background()
	def := leadDefinition()
	suite.cache.On("GetDefinition", ctx, def.Code).Return(nil, nil)
	suite.repo.On("GetByCode", ctx, def.Code).Return(def, nil)
	suite.cache.On("SetDefinition", ctx, def, time.Minute).Return(nil)

	got, err := suite.catalog.Get(ctx, def.Code)

	suite.NoError(err)
	suite.Equal(def.Code, got.Code)
}

func (suite *DefinitionCatalogTestSuite) TestGet_CacheFailureFallsBackToDatabase() {
	ctx := context.Background()
	def := leadDefinition()
	suite.cache.On("GetDefinition", ctx, def.Code).Return(nil, errors.New("redis down"))
	suite.repo.On("GetByCode", ctx, def.Code).Return(def, nil)
	suite.cache.On("SetDefinition", ctx, def, time.Minute).Return(errors.New("redis down"))

	got, err := suite.catalog.Get(ctx, def.Code)

	suite.NoError(err)
	suite.Equal(def.Code, got.Code)
}

func (suite *DefinitionCatalogTestSuite) TestGet_NotFound() {
	ctx := context.Background()
	suite.cache.On("GetDefinition", ctx, "UNKNOWN_CODE").Return(nil, nil)
	suite.repo.On("GetByCode", ctx, "UNKNOWN_CODE").Return(nil, common.ErrNotFound)

	_, err := suite.catalog.Get(ctx, "UNKNOWN_CODE")

	suite.ErrorIs(err, common.ErrNotFound)
}

func (suite *DefinitionCatalogTestSuite) TestCreate_AppliesDefaults() {
	ctx := context.Background()
	def := leadDefinition()
	def.Priority = 0
	def.RequiredTier = ""
	def.Version = 0
	actor := uuid.New()

	suite.repo.On("Create", ctx, def).Return(nil)
	suite.cache.On("SetDefinition", ctx, def, time.Minute).Return(nil)

	created, err := suite.catalog.Create(ctx, def, &actor)

	suite.NoError(err)
	suite.Equal(models.DefaultDefinitionPriority, created.Priority)
	suite.Equal(models.TierBasic, created.RequiredTier)
	suite.Equal(1, created.Version)
	suite.Equal(&actor, created.CreatedBy)
	suite.Equal(suite.clock.Now(), created.CreatedAt)
}

func (suite *DefinitionCatalogTestSuite) TestCreate_InvalidCode() {
	def := leadDefinition()
	def.Code = "bad code"

	_, err := suite.catalog.Create(context.Background(), def, nil)

	var verr *common.ValidationError
	suite.ErrorAs(err, &verr)
}

func (suite *DefinitionCatalogTestSuite) TestUpdate_BumpsVersionAndRefreshesCache() {
	ctx := context.Background()
	def := leadDefinition()
	title := "Lead waiting for a reply"
	suite.repo.On("GetByCode", ctx, def.Code).Return(def, nil)
	suite.repo.On("Update", ctx, mock.AnythingOfType("*models.WarningDefinition"), 1).Return(nil)
	suite.cache.On("SetDefinition", ctx, mock.AnythingOfType("*models.WarningDefinition"), time.Minute).Return(nil)

	updated, err := suite.catalog.Update(ctx, def.Code, &UpdateDefinitionRequest{Title: &title})

	suite.NoError(err)
	suite.Equal(2, updated.Version)
	suite.Equal(title, updated.Title)
	suite.Equal("LEAD_UNANSWERED_24H_v2", updated.CacheKey())
}

func (suite *DefinitionCatalogTestSuite) TestUpdate_RetriesOnStaleVersion() {
	ctx := context.Background()
	first := leadDefinition()
	second := leadDefinition()
	second.Version = 2
	severity := models.SeverityCritical

	suite.repo.On("GetByCode", ctx, first.Code).Return(first, nil).Once()
	suite.repo.On("Update", ctx, first, 1).Return(common.ErrStaleVersion).Once()
	suite.repo.On("GetByCode", ctx, first.Code).Return(second, nil).Once()
	suite.repo.On("Update", ctx, second, 2).Return(nil).Once()
	suite.cache.On("SetDefinition", ctx, second, time.Minute).Return(nil)

	updated, err := suite.catalog.Update(ctx, first.Code, &UpdateDefinitionRequest{Severity: &severity})

	suite.NoError(err)
	suite.Equal(3, updated.Version)
	suite.Equal(models.SeverityCritical, updated.Severity)
}

func (suite *DefinitionCatalogTestSuite) TestUpdate_GivesUpAfterRepeatedConflicts() {
	ctx := context.Background()
	enabled := true
	suite.repo.On("GetByCode", ctx, "LEAD_UNANSWERED_24H").Return(leadDefinition(), nil).Times(maxCASAttempts)
	suite.repo.On("Update", ctx, mock.Anything, mock.Anything).Return(common.ErrStaleVersion).Times(maxCASAttempts)

	_, err := suite.catalog.Update(ctx, "LEAD_UNANSWERED_24H", &UpdateDefinitionRequest{IsEnabled: &enabled})

	suite.ErrorIs(err, common.ErrStaleVersion)
}

func (suite *DefinitionCatalogTestSuite) TestDelete_SystemDefinitionForbidden() {
	ctx := context.Background()
	def := leadDefinition()
	suite.repo.On("GetByCode", ctx, def.Code).Return(def, nil)

	err := suite.catalog.Delete(ctx, def.Code)

	suite.ErrorIs(err, common.ErrForbidden)
	suite.repo.AssertNotCalled(suite.T(), "Update", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *DefinitionCatalogTestSuite) TestDelete_CustomDefinitionIsDisabled() {
	ctx := context.Background()
	def := leadDefinition()
	def.IsSystem = false
	suite.repo.On("GetByCode", ctx, def.Code).Return(def, nil)
	suite.repo.On("Update", ctx, def, 1).Return(nil)
	suite.cache.On("SetDefinition", ctx, def, time.Minute).Return(nil)

	err := suite.catalog.Delete(ctx, def.Code)

	suite.NoError(err)
	suite.False(def.IsEnabled)
}
