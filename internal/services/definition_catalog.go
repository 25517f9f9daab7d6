package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warnengine/internal/caching"
	"warnengine/internal/common"
	"warnengine/internal/models"
	"warnengine/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// DefinitionCatalog is the read path for warning definitions plus the
// administrative edits that bump their version.
type DefinitionCatalog interface {
	Get(ctx context.Context, code string) (*models.WarningDefinition, error)
	List(ctx context.Context, includeDisabled bool) ([]*models.WarningDefinition, error)
	ListEnabled(ctx context.Context, entityType models.EntityType) ([]*models.WarningDefinition, error)
	ListByFrequency(ctx context.Context, freq models.CheckFrequency) ([]*models.WarningDefinition, error)
	Create(ctx context.Context, def *models.WarningDefinition, actor *uuid.UUID) (*models.WarningDefinition, error)
	Update(ctx context.Context, code string, req *UpdateDefinitionRequest) (*models.WarningDefinition, error)
	Delete(ctx context.Context, code string) error
}

// UpdateDefinitionRequest carries the fields an administrator may change.
// Nil fields keep their current value.
type UpdateDefinitionRequest struct {
	Title                 *string                 `json:"title"`
	Description           *string                 `json:"description"`
	Category              *models.WarningCategory `json:"category"`
	Severity              *models.WarningSeverity `json:"severity"`
	TargetRole            *models.TargetRole      `json:"target_role"`
	RequiredTier          *models.AgencyTier      `json:"required_tier"`
	TriggerLogic          *string                 `json:"trigger_logic"`
	DefaultThreshold      *int                    `json:"default_threshold"`
	MinThreshold          *int                    `json:"min_threshold"`
	MaxThreshold          *int                    `json:"max_threshold"`
	CheckFrequency        *models.CheckFrequency  `json:"check_frequency"`
	AutoResolveAfterHours *int                    `json:"auto_resolve_after_hours"`
	EscalateAfterHours    *int                    `json:"escalate_after_hours"`
	EscalateToRole        *models.TargetRole      `json:"escalate_to_role"`
	SuggestedAction       *string                 `json:"suggested_action"`
	IsEnabled             *bool                   `json:"is_enabled"`
	IsPremiumFeature      *bool                   `json:"is_premium_feature"`
	Priority              *int                    `json:"priority"`
}

func (r *UpdateDefinitionRequest) apply(def *models.WarningDefinition) {
	if r.Title != nil {
		def.Title = *r.Title
	}
	if r.Description != nil {
		def.Description = *r.Description
	}
	if r.Category != nil {
		def.Category = *r.Category
	}
	if r.Severity != nil {
		def.Severity = *r.Severity
	}
	if r.TargetRole != nil {
		def.TargetRole = *r.TargetRole
	}
	if r.RequiredTier != nil {
		def.RequiredTier = *r.RequiredTier
	}
	if r.TriggerLogic != nil {
		def.TriggerLogic = *r.TriggerLogic
	}
	if r.DefaultThreshold != nil {
		def.DefaultThreshold = *r.DefaultThreshold
	}
	if r.MinThreshold != nil {
		def.MinThreshold = r.MinThreshold
	}
	if r.MaxThreshold != nil {
		def.MaxThreshold = r.MaxThreshold
	}
	if r.CheckFrequency != nil {
		def.CheckFrequency = *r.CheckFrequency
	}
	if r.AutoResolveAfterHours != nil {
		def.AutoResolveAfterHours = r.AutoResolveAfterHours
	}
	if r.EscalateAfterHours != nil {
		def.EscalateAfterHours = r.EscalateAfterHours
	}
	if r.EscalateToRole != nil {
		def.EscalateToRole = r.EscalateToRole
	}
	if r.SuggestedAction != nil {
		def.SuggestedAction = *r.SuggestedAction
	}
	if r.IsEnabled != nil {
		def.IsEnabled = *r.IsEnabled
	}
	if r.IsPremiumFeature != nil {
		def.IsPremiumFeature = *r.IsPremiumFeature
	}
	if r.Priority != nil {
		def.Priority = *r.Priority
	}
}

type definitionCatalog struct {
	repo     repositories.DefinitionRepository
	cache    caching.CacheService
	cacheTTL time.Duration
	clock    clockwork.Clock
	logger   *zap.Logger
}

func NewDefinitionCatalog(repo repositories.DefinitionRepository, cache caching.CacheService, cacheTTL time.Duration, clock clockwork.Clock, logger *zap.Logger) DefinitionCatalog {
	return &definitionCatalog{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		clock:    clock,
		logger:   logger.Named("definition_catalog"),
	}
}

// Get serves from the cache when possible. Cache failures degrade to the
// database and are only logged.
func (s *definitionCatalog) Get(ctx context.Context, code string) (*models.WarningDefinition, error) {
	if cached, err := s.cache.GetDefinition(ctx, code); err != nil {
		s.logger.Warn("definition cache read failed", zap.String("code", code), zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	def, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get definition %s: %w", code, err)
	}
	s.storeInCache(ctx, def)
	return def, nil
}

func (s *definitionCatalog) List(ctx context.Context, includeDisabled bool) ([]*models.WarningDefinition, error) {
	return s.repo.List(ctx, includeDisabled)
}

func (s *definitionCatalog) ListEnabled(ctx context.Context, entityType models.EntityType) ([]*models.WarningDefinition, error) {
	return s.repo.ListEnabled(ctx, entityType)
}

func (s *definitionCatalog) ListByFrequency(ctx context.Context, freq models.CheckFrequency) ([]*models.WarningDefinition, error) {
	return s.repo.ListByFrequency(ctx, freq)
}

func (s *definitionCatalog) Create(ctx context.Context, def *models.WarningDefinition, actor *uuid.UUID) (*models.WarningDefinition, error) {
	if def.Priority == 0 {
		def.Priority = models.DefaultDefinitionPriority
	}
	if def.RequiredTier == "" {
		def.RequiredTier = models.TierBasic
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	def.ID = uuid.New()
	def.Version = 1
	def.CreatedBy = actor
	def.CreatedAt = now
	def.UpdatedAt = now

	if err := s.repo.Create(ctx, def); err != nil {
		return nil, err
	}
	s.storeInCache(ctx, def)
	s.logger.Info("warning definition created", zap.String("code", def.Code))
	return def, nil
}

// Update applies req with a version check, reloading and reapplying on a
// concurrent edit.
func (s *definitionCatalog) Update(ctx context.Context, code string, req *UpdateDefinitionRequest) (*models.WarningDefinition, error) {
	var updated *models.WarningDefinition
	err := retryOnConflict(ctx, func() error {
		def, err := s.repo.GetByCode(ctx, code)
		if err != nil {
			return err
		}
		req.apply(def)
		if err := def.Validate(); err != nil {
			return err
		}
		expected := def.Version
		def.Touch(s.clock.Now())
		if err := s.repo.Update(ctx, def, expected); err != nil {
			return err
		}
		updated = def
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.storeInCache(ctx, updated)
	s.logger.Info("warning definition updated",
		zap.String("code", updated.Code),
		zap.Int("version", updated.Version),
	)
	return updated, nil
}

// Delete disables a definition. System definitions cannot be removed.
func (s *definitionCatalog) Delete(ctx context.Context, code string) error {
	def, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if def.IsSystem {
		return fmt.Errorf("%w: system definition %s cannot be deleted", common.ErrForbidden, code)
	}
	if !def.IsEnabled {
		return nil
	}

	disabled := false
	_, err = s.Update(ctx, code, &UpdateDefinitionRequest{IsEnabled: &disabled})
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	return err
}

func (s *definitionCatalog) storeInCache(ctx context.Context, def *models.WarningDefinition) {
	if err := s.cache.SetDefinition(ctx, def, s.cacheTTL); err != nil {
		s.logger.Warn("definition cache write failed", zap.String("code", def.Code), zap.Error(err))
	}
}
