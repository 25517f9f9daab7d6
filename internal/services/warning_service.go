package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warnengine/internal/common"
	"warnengine/internal/metrics"
	"warnengine/internal/models"
	"warnengine/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// errUnchanged lets a mutation skip the write when nothing changed.
var errUnchanged = errors.New("unchanged")

// WarningService drives ActiveWarning state changes. Every write is a
// version-checked update retried from a fresh read on conflict.
type WarningService interface {
	DetectOrUpdate(ctx context.Context, d models.Detection) (*models.ActiveWarning, bool, error)
	Get(ctx context.Context, id uuid.UUID) (*models.ActiveWarning, error)
	ListForUser(ctx context.Context, userID uuid.UUID, status *models.WarningStatus, limit, offset int) ([]*models.ActiveWarning, error)
	ListOpen(ctx context.Context, code string, agencyID uuid.UUID) ([]*models.ActiveWarning, error)
	Acknowledge(ctx context.Context, id, actor uuid.UUID) (*models.ActiveWarning, error)
	Resolve(ctx context.Context, id uuid.UUID, actionTaken, notes string) (*models.ActiveWarning, error)
	Dismiss(ctx context.Context, id uuid.UUID, reason string) (*models.ActiveWarning, error)
	Snooze(ctx context.Context, id uuid.UUID, hours int) (*models.ActiveWarning, error)
	Escalate(ctx context.Context, id, to uuid.UUID) (*models.ActiveWarning, error)
	// ConditionCleared records that the warning's condition no longer holds
	// and auto-resolves it once autoResolveAfterHours have passed since then.
	// A nil autoResolveAfterHours leaves the warning open.
	ConditionCleared(ctx context.Context, id uuid.UUID, autoResolveAfterHours *int) (resolved bool, err error)
}

type warningService struct {
	repo     repositories.ActiveWarningRepository
	resolver ConfigResolver
	catalog  DefinitionCatalog
	clock    clockwork.Clock
	logger   *zap.Logger
}

func NewWarningService(repo repositories.ActiveWarningRepository, resolver ConfigResolver, catalog DefinitionCatalog, clock clockwork.Clock, logger *zap.Logger) WarningService {
	return &warningService{
		repo:     repo,
		resolver: resolver,
		catalog:  catalog,
		clock:    clock,
		logger:   logger.Named("warning_service"),
	}
}

// DetectOrUpdate is idempotent per (definition, entity): the repository
// upsert either inserts a new ACTIVE row or refreshes the open one.
func (s *warningService) DetectOrUpdate(ctx context.Context, d models.Detection) (*models.ActiveWarning, bool, error) {
	w := models.NewActiveWarning(d, s.clock.Now())
	stored, inserted, err := s.repo.Upsert(ctx, w)
	if err != nil {
		return nil, false, fmt.Errorf("detect %s on %s %s: %w", d.DefinitionCode, d.EntityType, d.EntityID, err)
	}
	if inserted {
		metrics.WarningsDetected.WithLabelValues(d.DefinitionCode).Inc()
		s.logger.Info("warning detected",
			zap.String("code", d.DefinitionCode),
			zap.String("entity_type", string(d.EntityType)),
			zap.String("entity_id", d.EntityID.String()),
			zap.String("current_value", d.CurrentValue),
		)
	}
	return stored, inserted, nil
}

func (s *warningService) Get(ctx context.Context, id uuid.UUID) (*models.ActiveWarning, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *warningService) ListForUser(ctx context.Context, userID uuid.UUID, status *models.WarningStatus, limit, offset int) ([]*models.ActiveWarning, error) {
	return s.repo.ListForUser(ctx, userID, status, limit, offset)
}

func (s *warningService) ListOpen(ctx context.Context, code string, agencyID uuid.UUID) ([]*models.ActiveWarning, error) {
	return s.repo.ListOpenByDefinition(ctx, code, agencyID)
}

func (s *warningService) Acknowledge(ctx context.Context, id, actor uuid.UUID) (*models.ActiveWarning, error) {
	return s.mutate(ctx, id, func(w *models.ActiveWarning, now time.Time) error {
		return w.Acknowledge(actor, now)
	})
}

func (s *warningService) Resolve(ctx context.Context, id uuid.UUID, actionTaken, notes string) (*models.ActiveWarning, error) {
	w, err := s.mutate(ctx, id, func(w *models.ActiveWarning, now time.Time) error {
		return w.Resolve(actionTaken, notes, now)
	})
	if err == nil {
		metrics.WarningsResolved.WithLabelValues(w.DefinitionCode, string(w.Status)).Inc()
	}
	return w, err
}

func (s *warningService) Dismiss(ctx context.Context, id uuid.UUID, reason string) (*models.ActiveWarning, error) {
	w, err := s.mutate(ctx, id, func(w *models.ActiveWarning, now time.Time) error {
		return w.Dismiss(reason, now)
	})
	if err == nil {
		metrics.WarningsResolved.WithLabelValues(w.DefinitionCode, string(w.Status)).Inc()
	}
	return w, err
}

// Snooze honours the agency's snooze policy for the warning's definition.
func (s *warningService) Snooze(ctx context.Context, id uuid.UUID, hours int) (*models.ActiveWarning, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ec, err := s.effectiveFor(ctx, current)
	if err != nil {
		return nil, err
	}
	if !ec.AllowSnooze {
		return nil, common.NewValidationError("hours", "snoozing is disabled for %s", current.DefinitionCode)
	}
	if hours > ec.MaxSnoozeHours {
		return nil, common.NewValidationError("hours", "cannot exceed %d", ec.MaxSnoozeHours)
	}

	return s.mutate(ctx, id, func(w *models.ActiveWarning, now time.Time) error {
		return w.Snooze(hours, now)
	})
}

func (s *warningService) Escalate(ctx context.Context, id, to uuid.UUID) (*models.ActiveWarning, error) {
	w, err := s.mutate(ctx, id, func(w *models.ActiveWarning, now time.Time) error {
		return w.Escalate(to, now)
	})
	if err == nil {
		metrics.WarningsEscalated.WithLabelValues(w.DefinitionCode).Inc()
		s.logger.Info("warning escalated",
			zap.String("warning_id", id.String()),
			zap.String("to_user_id", to.String()),
		)
	}
	return w, err
}

func (s *warningService) ConditionCleared(ctx context.Context, id uuid.UUID, autoResolveAfterHours *int) (bool, error) {
	if autoResolveAfterHours == nil {
		return false, nil
	}
	resolved := false
	var code string
	_, err := s.mutate(ctx, id, func(w *models.ActiveWarning, now time.Time) error {
		code = w.DefinitionCode
		resolved = false
		if w.Status.IsTerminal() {
			return errUnchanged
		}
		marked := w.MarkConditionCleared(now)
		clearedAt, _ := w.ConditionClearedAt()
		if clearedAt != nil && now.Sub(*clearedAt) >= time.Duration(*autoResolveAfterHours)*time.Hour {
			resolved = true
			return w.Resolve(models.ActionAutoResolved, "Condition no longer present", now)
		}
		if !marked {
			return errUnchanged
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if resolved {
		metrics.WarningsResolved.WithLabelValues(code, string(models.WarningResolved)).Inc()
	}
	return resolved, nil
}

func (s *warningService) effectiveFor(ctx context.Context, w *models.ActiveWarning) (*models.EffectiveConfig, error) {
	def, err := s.catalog.Get(ctx, w.DefinitionCode)
	if err != nil {
		return nil, err
	}
	agencyID := uuid.Nil
	if w.AgencyID != nil {
		agencyID = *w.AgencyID
	}
	return s.resolver.ResolveFor(ctx, def, agencyID)
}

// mutate loads the warning, applies fn and writes it back with a version
// check. A failing fn leaves the stored row untouched.
func (s *warningService) mutate(ctx context.Context, id uuid.UUID, fn func(w *models.ActiveWarning, now time.Time) error) (*models.ActiveWarning, error) {
	var result *models.ActiveWarning
	err := retryOnConflict(ctx, func() error {
		w, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(w, s.clock.Now()); err != nil {
			return err
		}
		expected := w.Version
		w.Version++
		if err := s.repo.Update(ctx, w, expected); err != nil {
			return err
		}
		result = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
