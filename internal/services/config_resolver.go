package services

import (
	"context"
	"errors"
	"fmt"

	"warnengine/internal/common"
	"warnengine/internal/models"
	"warnengine/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ConfigResolver merges agency overrides onto definitions.
type ConfigResolver interface {
	Resolve(ctx context.Context, agencyID uuid.UUID, code string) (*models.EffectiveConfig, error)
	ResolveFor(ctx context.Context, def *models.WarningDefinition, agencyID uuid.UUID) (*models.EffectiveConfig, error)
	Get(ctx context.Context, agencyID uuid.UUID, code string) (*models.WarningConfiguration, error)
	ListOverrides(ctx context.Context, agencyID uuid.UUID) ([]*models.WarningConfiguration, error)
	// Upsert stores cfg. cfg.Version must equal the stored version (0 for a
	// first override); a mismatch reports common.ErrStaleVersion.
	Upsert(ctx context.Context, cfg *models.WarningConfiguration, actor uuid.UUID) (*models.WarningConfiguration, error)
}

type configResolver struct {
	repo    repositories.ConfigurationRepository
	catalog DefinitionCatalog
	clock   clockwork.Clock
	logger  *zap.Logger
}

func NewConfigResolver(repo repositories.ConfigurationRepository, catalog DefinitionCatalog, clock clockwork.Clock, logger *zap.Logger) ConfigResolver {
	return &configResolver{
		repo:    repo,
		catalog: catalog,
		clock:   clock,
		logger:  logger.Named("config_resolver"),
	}
}

func (s *configResolver) Resolve(ctx context.Context, agencyID uuid.UUID, code string) (*models.EffectiveConfig, error) {
	def, err := s.catalog.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.ResolveFor(ctx, def, agencyID)
}

// ResolveFor skips the definition lookup when the caller already holds it.
func (s *configResolver) ResolveFor(ctx context.Context, def *models.WarningDefinition, agencyID uuid.UUID) (*models.EffectiveConfig, error) {
	if agencyID == uuid.Nil {
		return models.Effective(def, agencyID, nil), nil
	}
	cfg, err := s.repo.Get(ctx, agencyID, def.Code)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return models.Effective(def, agencyID, nil), nil
		}
		return nil, fmt.Errorf("resolve %s for agency %s: %w", def.Code, agencyID, err)
	}
	return models.Effective(def, agencyID, cfg), nil
}

func (s *configResolver) Get(ctx context.Context, agencyID uuid.UUID, code string) (*models.WarningConfiguration, error) {
	return s.repo.Get(ctx, agencyID, code)
}

func (s *configResolver) ListOverrides(ctx context.Context, agencyID uuid.UUID) ([]*models.WarningConfiguration, error) {
	return s.repo.ListByAgency(ctx, agencyID)
}

func (s *configResolver) Upsert(ctx context.Context, cfg *models.WarningConfiguration, actor uuid.UUID) (*models.WarningConfiguration, error) {
	def, err := s.catalog.Get(ctx, cfg.DefinitionCode)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(def); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	cfg.ConfiguredBy = &actor
	cfg.UpdatedAt = now

	existing, err := s.repo.Get(ctx, cfg.AgencyID, cfg.DefinitionCode)
	switch {
	case errors.Is(err, common.ErrNotFound):
		if cfg.Version != 0 {
			return nil, common.ErrStaleVersion
		}
		if cfg.ID == uuid.Nil {
			cfg.ID = uuid.New()
		}
		cfg.Version = 1
		cfg.CreatedAt = now
		if err := s.repo.Insert(ctx, cfg); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if cfg.Version != existing.Version {
			return nil, common.ErrStaleVersion
		}
		expected := existing.Version
		cfg.ID = existing.ID
		cfg.CreatedAt = existing.CreatedAt
		cfg.Version = expected + 1
		if err := s.repo.Update(ctx, cfg, expected); err != nil {
			return nil, err
		}
	}

	s.logger.Info("warning configuration saved",
		zap.String("agency_id", cfg.AgencyID.String()),
		zap.String("code", cfg.DefinitionCode),
		zap.Int("version", cfg.Version),
	)
	return cfg, nil
}
