package jobs

import (
	"context"
	"fmt"
	"time"

	"warnengine/internal/caching"
	"warnengine/internal/jobs/rules"
	"warnengine/internal/metrics"
	"warnengine/internal/models"
	"warnengine/internal/repositories"
	"warnengine/internal/services"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// EvaluationSummary counts what one evaluation pass did.
type EvaluationSummary struct {
	Agencies  int
	Detected  int
	Created   int
	Cleared   int
	Resolved  int
	Failures  int
	SkippedBy string
}

// WarningEvaluator runs detection rules per agency and keeps ActiveWarning
// rows in step with what the rules see.
type WarningEvaluator struct {
	signals  repositories.SignalRepository
	catalog  services.DefinitionCatalog
	resolver services.ConfigResolver
	warnings services.WarningService
	composer services.Composer
	rules    *rules.Registry
	cache    caching.CacheService
	lockTTL  time.Duration
	clock    clockwork.Clock
	logger   *zap.Logger
}

func NewWarningEvaluator(
	signals repositories.SignalRepository,
	catalog services.DefinitionCatalog,
	resolver services.ConfigResolver,
	warnings services.WarningService,
	composer services.Composer,
	registry *rules.Registry,
	cache caching.CacheService,
	lockTTL time.Duration,
	clock clockwork.Clock,
	logger *zap.Logger,
) *WarningEvaluator {
	return &WarningEvaluator{
		signals:  signals,
		catalog:  catalog,
		resolver: resolver,
		warnings: warnings,
		composer: composer,
		rules:    registry,
		cache:    cache,
		lockTTL:  lockTTL,
		clock:    clock,
		logger:   logger.Named("warning_evaluator"),
	}
}

// Run evaluates every enabled definition of freq against every active agency
// whose tier allows it. Failures for one agency/definition pair are logged
// and counted; they never stop the pass.
func (e *WarningEvaluator) Run(ctx context.Context, freq models.CheckFrequency) (*EvaluationSummary, error) {
	start := e.clock.Now()
	summary := &EvaluationSummary{}

	release, ok := e.lock(ctx, "evaluate:"+string(freq))
	if !ok {
		summary.SkippedBy = "lock"
		metrics.EvaluationRuns.WithLabelValues(string(freq), "skipped").Inc()
		return summary, nil
	}
	defer release()

	defs, err := e.catalog.ListByFrequency(ctx, freq)
	if err != nil {
		metrics.EvaluationRuns.WithLabelValues(string(freq), "error").Inc()
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	if len(defs) == 0 {
		metrics.EvaluationRuns.WithLabelValues(string(freq), "ok").Inc()
		return summary, nil
	}

	agencies, err := e.signals.ListActiveAgencies(ctx)
	if err != nil {
		metrics.EvaluationRuns.WithLabelValues(string(freq), "error").Inc()
		return nil, fmt.Errorf("list agencies: %w", err)
	}

	for _, agency := range agencies {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		summary.Agencies++
		e.evaluateAgency(ctx, agency, defs, summary)
	}

	metrics.EvaluationRuns.WithLabelValues(string(freq), "ok").Inc()
	metrics.EvaluationDuration.WithLabelValues(string(freq)).Observe(e.clock.Since(start).Seconds())
	e.logger.Info("evaluation finished",
		zap.String("frequency", string(freq)),
		zap.Int("agencies", summary.Agencies),
		zap.Int("detected", summary.Detected),
		zap.Int("created", summary.Created),
		zap.Int("resolved", summary.Resolved),
		zap.Int("failures", summary.Failures),
	)
	return summary, nil
}

// RunForAgency re-evaluates one agency after an event touched entities of
// entityType. Every enabled definition for that entity type runs,
// whatever its schedule.
func (e *WarningEvaluator) RunForAgency(ctx context.Context, agencyID uuid.UUID, entityType models.EntityType) (*EvaluationSummary, error) {
	agency, err := e.signals.GetAgency(ctx, agencyID)
	if err != nil {
		return nil, fmt.Errorf("load agency %s: %w", agencyID, err)
	}
	summary := &EvaluationSummary{}
	if !agency.Active {
		summary.SkippedBy = "inactive agency"
		return summary, nil
	}
	defs, err := e.catalog.ListEnabled(ctx, entityType)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	summary.Agencies = 1
	e.evaluateAgency(ctx, agency, defs, summary)
	metrics.EvaluationRuns.WithLabelValues(string(models.FrequencyRealtime), "ok").Inc()
	return summary, nil
}

func (e *WarningEvaluator) evaluateAgency(ctx context.Context, agency *models.Agency, defs []*models.WarningDefinition, summary *EvaluationSummary) {
	recipients := make(map[models.TargetRole]uuid.UUID)
	for _, def := range defs {
		if !agency.Tier.Satisfies(def.RequiredTier) {
			continue
		}
		if err := e.evaluate(ctx, agency, def, recipients, summary); err != nil {
			summary.Failures++
			e.logger.Error("evaluation failed",
				zap.String("agency_id", agency.ID.String()),
				zap.String("definition", def.Code),
				zap.Error(err),
			)
		}
	}
}

func (e *WarningEvaluator) evaluate(ctx context.Context, agency *models.Agency, def *models.WarningDefinition, recipients map[models.TargetRole]uuid.UUID, summary *EvaluationSummary) error {
	rule, ok := e.rules.Lookup(def.Code)
	if !ok {
		e.logger.Debug("no rule registered", zap.String("definition", def.Code))
		return nil
	}
	ec, err := e.resolver.ResolveFor(ctx, def, agency.ID)
	if err != nil {
		return fmt.Errorf("resolve config: %w", err)
	}
	if !ec.Enabled {
		return nil
	}

	now := e.clock.Now()
	detections, err := rule.Detect(ctx, agency, ec, now)
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}

	seen := make(map[uuid.UUID]struct{}, len(detections))
	for _, d := range detections {
		// marked before any write so a failed upsert never reads as cleared
		seen[d.EntityID] = struct{}{}
		summary.Detected++

		d.DefinitionCode = def.Code
		agencyID := agency.ID
		d.AgencyID = &agencyID
		if d.TargetUserID == uuid.Nil {
			target, err := e.recipientFor(ctx, agency.ID, def.TargetRole, recipients)
			if err != nil {
				summary.Failures++
				e.logger.Warn("no recipient for detection",
					zap.String("definition", def.Code),
					zap.String("entity_id", d.EntityID.String()),
					zap.Error(err),
				)
				continue
			}
			d.TargetUserID = target
		}

		w, inserted, err := e.warnings.DetectOrUpdate(ctx, d)
		if err != nil {
			summary.Failures++
			e.logger.Error("failed to record warning",
				zap.String("definition", def.Code),
				zap.String("entity_id", d.EntityID.String()),
				zap.Error(err),
			)
			continue
		}
		if !inserted {
			continue
		}
		summary.Created++
		if _, err := e.composer.Compose(ctx, w, ec, []uuid.UUID{w.TargetUserID}, nil); err != nil {
			e.logger.Error("failed to compose notifications",
				zap.String("warning_id", w.ID.String()),
				zap.Error(err),
			)
		}
	}

	open, err := e.warnings.ListOpen(ctx, def.Code, agency.ID)
	if err != nil {
		return fmt.Errorf("list open warnings: %w", err)
	}
	for _, w := range open {
		if _, ok := seen[w.EntityID]; ok {
			continue
		}
		summary.Cleared++
		resolved, err := e.warnings.ConditionCleared(ctx, w.ID, def.AutoResolveAfterHours)
		if err != nil {
			summary.Failures++
			e.logger.Error("failed to record cleared condition",
				zap.String("warning_id", w.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if resolved {
			summary.Resolved++
		}
	}
	return nil
}

// recipientFor picks the first active user holding role. Results are
// memoised for the rest of the agency's pass.
func (e *WarningEvaluator) recipientFor(ctx context.Context, agencyID uuid.UUID, role models.TargetRole, memo map[models.TargetRole]uuid.UUID) (uuid.UUID, error) {
	if id, ok := memo[role]; ok {
		return id, nil
	}
	id, err := firstActiveUser(ctx, e.signals, agencyID, role)
	if err != nil {
		return uuid.Nil, err
	}
	memo[role] = id
	return id, nil
}

// lock takes the best-effort job lock. A cache outage lets the run proceed.
func (e *WarningEvaluator) lock(ctx context.Context, name string) (func(), bool) {
	return acquireJobLock(ctx, e.cache, name, e.lockTTL, e.logger)
}
