package jobs

import (
	"context"
	"fmt"
	"time"

	"warnengine/internal/caching"
	"warnengine/internal/models"
	"warnengine/internal/repositories"
	"warnengine/internal/services"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const escalationBatchSize = 500

// EscalationSweep hands long-ignored warnings to the configured escalation role.
type EscalationSweep struct {
	warningsRepo repositories.ActiveWarningRepository
	signals      repositories.SignalRepository
	catalog      services.DefinitionCatalog
	resolver     services.ConfigResolver
	warnings     services.WarningService
	composer     services.Composer
	cache        caching.CacheService
	lockTTL      time.Duration
	clock        clockwork.Clock
	logger       *zap.Logger
}

func NewEscalationSweep(
	warningsRepo repositories.ActiveWarningRepository,
	signals repositories.SignalRepository,
	catalog services.DefinitionCatalog,
	resolver services.ConfigResolver,
	warnings services.WarningService,
	composer services.Composer,
	cache caching.CacheService,
	lockTTL time.Duration,
	clock clockwork.Clock,
	logger *zap.Logger,
) *EscalationSweep {
	return &EscalationSweep{
		warningsRepo: warningsRepo,
		signals:      signals,
		catalog:      catalog,
		resolver:     resolver,
		warnings:     warnings,
		composer:     composer,
		cache:        cache,
		lockTTL:      lockTTL,
		clock:        clock,
		logger:       logger.Named("escalation_sweep"),
	}
}

// Run returns how many warnings were escalated.
func (s *EscalationSweep) Run(ctx context.Context) (int, error) {
	release, ok := acquireJobLock(ctx, s.cache, "escalation-sweep", s.lockTTL, s.logger)
	if !ok {
		return 0, nil
	}
	defer release()

	now := s.clock.Now()
	candidates, err := s.warningsRepo.ListEscalationCandidates(ctx, now, escalationBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list escalation candidates: %w", err)
	}

	escalated := 0
	for _, w := range candidates {
		if ctx.Err() != nil {
			return escalated, ctx.Err()
		}
		done, err := s.escalate(ctx, w, now)
		if err != nil {
			s.logger.Error("escalation failed",
				zap.String("warning_id", w.ID.String()),
				zap.String("definition", w.DefinitionCode),
				zap.Error(err),
			)
			continue
		}
		if done {
			escalated++
		}
	}
	if escalated > 0 {
		s.logger.Info("escalated warnings", zap.Int("count", escalated), zap.Int("candidates", len(candidates)))
	}
	return escalated, nil
}

func (s *EscalationSweep) escalate(ctx context.Context, w *models.ActiveWarning, now time.Time) (bool, error) {
	if w.AgencyID == nil || w.IsSnoozed(now) {
		return false, nil
	}
	def, err := s.catalog.Get(ctx, w.DefinitionCode)
	if err != nil {
		return false, err
	}
	ec, err := s.resolver.ResolveFor(ctx, def, *w.AgencyID)
	if err != nil {
		return false, err
	}
	if !ec.EscalationEnabled() || !w.NeedsEscalation(*ec.EscalationDelayHours, now) {
		return false, nil
	}

	to, err := firstActiveUser(ctx, s.signals, *w.AgencyID, *ec.EscalationRole)
	if err != nil {
		return false, err
	}
	if to == w.TargetUserID {
		return false, nil
	}

	escalated, err := s.warnings.Escalate(ctx, w.ID, to)
	if err != nil {
		return false, err
	}
	if _, err := s.composer.Compose(ctx, escalated, ec, []uuid.UUID{to}, models.JSONB{"escalated": true}); err != nil {
		s.logger.Error("failed to compose escalation notifications",
			zap.String("warning_id", w.ID.String()),
			zap.Error(err),
		)
	}
	return true, nil
}
