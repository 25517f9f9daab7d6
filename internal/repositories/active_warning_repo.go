package repositories

import (
	"context"
	"time"

	"warnengine/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ActiveWarningRepository interface {
	// Upsert inserts w, or refreshes the open warning for the same
	// (definition, entity) pair. inserted reports which happened.
	Upsert(ctx context.Context, w *models.ActiveWarning) (stored *models.ActiveWarning, inserted bool, err error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.ActiveWarning, error)
	Update(ctx context.Context, w *models.ActiveWarning, expectedVersion int) error
	ListOpenByDefinition(ctx context.Context, code string, agencyID uuid.UUID) ([]*models.ActiveWarning, error)
	ListEscalationCandidates(ctx context.Context, now time.Time, limit int) ([]*models.ActiveWarning, error)
	ListForUser(ctx context.Context, userID uuid.UUID, status *models.WarningStatus, limit, offset int) ([]*models.ActiveWarning, error)
	RecordNotified(ctx context.Context, id uuid.UUID, now time.Time) error
}

const activeWarningColumns = `id, definition_code, target_user_id, original_target_user_id, agency_id, entity_type, entity_id,
	current_value, threshold_value, difference_value, status, detected_at, acknowledged_at, acknowledged_by,
	resolved_at, dismissed_at, action_taken, resolution_notes, dismiss_reason, snoozed_until,
	escalation_level, escalated_at, escalated_to_user_id, notification_count, last_notified_at,
	details, version, created_at, updated_at`

type activeWarningRepo struct {
	db DBTX
}

func NewActiveWarningRepository(db DBTX) ActiveWarningRepository {
	return &activeWarningRepo{db: db}
}

func activeWarningDest(w *models.ActiveWarning) []interface{} {
	return []interface{}{&w.ID, &w.DefinitionCode, &w.TargetUserID, &w.OriginalTargetUserID, &w.AgencyID, &w.EntityType, &w.EntityID,
		&w.CurrentValue, &w.ThresholdValue, &w.DifferenceValue, &w.Status, &w.DetectedAt, &w.AcknowledgedAt, &w.AcknowledgedBy,
		&w.ResolvedAt, &w.DismissedAt, &w.ActionTaken, &w.ResolutionNotes, &w.DismissReason, &w.SnoozedUntil,
		&w.EscalationLevel, &w.EscalatedAt, &w.EscalatedToUserID, &w.NotificationCount, &w.LastNotifiedAt,
		&w.Details, &w.Version, &w.CreatedAt, &w.UpdatedAt}
}

func scanActiveWarning(row pgx.Row) (*models.ActiveWarning, error) {
	w := &models.ActiveWarning{}
	if err := row.Scan(activeWarningDest(w)...); err != nil {
		return nil, err
	}
	return w, nil
}

func (r *activeWarningRepo) queryWarnings(ctx context.Context, query string, args ...interface{}) ([]*models.ActiveWarning, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var warnings []*models.ActiveWarning
	for rows.Next() {
		w, err := scanActiveWarning(rows)
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, w)
	}
	return warnings, rows.Err()
}

// Upsert relies on the partial unique index over (definition_code, entity_type,
// entity_id) for open statuses, so concurrent detections converge on one row.
func (r *activeWarningRepo) Upsert(ctx context.Context, w *models.ActiveWarning) (*models.ActiveWarning, bool, error) {
	query := `
		INSERT INTO active_warnings (` + activeWarningColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29)
		ON CONFLICT (definition_code, entity_type, entity_id) WHERE status IN ('ACTIVE', 'ACKNOWLEDGED')
		DO UPDATE SET
			current_value = EXCLUDED.current_value,
			threshold_value = EXCLUDED.threshold_value,
			difference_value = EXCLUDED.difference_value,
			details = (active_warnings.details - 'condition_cleared_at') || EXCLUDED.details,
			version = active_warnings.version + 1,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + activeWarningColumns + `, (xmax = 0) AS inserted
	`
	stored := &models.ActiveWarning{}
	var inserted bool
	dest := append(activeWarningDest(stored), &inserted)
	err := r.db.QueryRow(ctx, query, w.ID, w.DefinitionCode, w.TargetUserID, w.OriginalTargetUserID, w.AgencyID, w.EntityType, w.EntityID,
		w.CurrentValue, w.ThresholdValue, w.DifferenceValue, w.Status, w.DetectedAt, w.AcknowledgedAt, w.AcknowledgedBy,
		w.ResolvedAt, w.DismissedAt, w.ActionTaken, w.ResolutionNotes, w.DismissReason, w.SnoozedUntil,
		w.EscalationLevel, w.EscalatedAt, w.EscalatedToUserID, w.NotificationCount, w.LastNotifiedAt,
		w.Details, w.Version, w.CreatedAt, w.UpdatedAt).Scan(dest...)
	if err != nil {
		return nil, false, err
	}
	return stored, inserted, nil
}

func (r *activeWarningRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ActiveWarning, error) {
	query := `SELECT ` + activeWarningColumns + ` FROM active_warnings WHERE id = $1`
	w, err := scanActiveWarning(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return w, nil
}

func (r *activeWarningRepo) Update(ctx context.Context, w *models.ActiveWarning, expectedVersion int) error {
	query := `
		UPDATE active_warnings
		SET target_user_id = $1, original_target_user_id = $2, current_value = $3, threshold_value = $4,
			difference_value = $5, status = $6, acknowledged_at = $7, acknowledged_by = $8, resolved_at = $9,
			dismissed_at = $10, action_taken = $11, resolution_notes = $12, dismiss_reason = $13, snoozed_until = $14,
			escalation_level = $15, escalated_at = $16, escalated_to_user_id = $17, notification_count = $18,
			last_notified_at = $19, details = $20, version = $21, updated_at = $22
		WHERE id = $23 AND version = $24
	`
	return casResult(r.db.Exec(ctx, query, w.TargetUserID, w.OriginalTargetUserID, w.CurrentValue, w.ThresholdValue,
		w.DifferenceValue, w.Status, w.AcknowledgedAt, w.AcknowledgedBy, w.ResolvedAt,
		w.DismissedAt, w.ActionTaken, w.ResolutionNotes, w.DismissReason, w.SnoozedUntil,
		w.EscalationLevel, w.EscalatedAt, w.EscalatedToUserID, w.NotificationCount,
		w.LastNotifiedAt, w.Details, w.Version, w.UpdatedAt, w.ID, expectedVersion))
}

func (r *activeWarningRepo) ListOpenByDefinition(ctx context.Context, code string, agencyID uuid.UUID) ([]*models.ActiveWarning, error) {
	query := `SELECT ` + activeWarningColumns + ` FROM active_warnings
		WHERE definition_code = $1 AND agency_id = $2 AND status IN ('ACTIVE', 'ACKNOWLEDGED')
		ORDER BY detected_at`
	return r.queryWarnings(ctx, query, code, agencyID)
}

func (r *activeWarningRepo) ListEscalationCandidates(ctx context.Context, now time.Time, limit int) ([]*models.ActiveWarning, error) {
	query := `SELECT ` + activeWarningColumns + ` FROM active_warnings
		WHERE status IN ('ACTIVE', 'ACKNOWLEDGED') AND escalated_at IS NULL
			AND (snoozed_until IS NULL OR snoozed_until <= $1)
		ORDER BY detected_at
		LIMIT $2`
	return r.queryWarnings(ctx, query, now, limit)
}

func (r *activeWarningRepo) ListForUser(ctx context.Context, userID uuid.UUID, status *models.WarningStatus, limit, offset int) ([]*models.ActiveWarning, error) {
	query := `SELECT ` + activeWarningColumns + ` FROM active_warnings
		WHERE target_user_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY detected_at DESC
		LIMIT $3 OFFSET $4`
	return r.queryWarnings(ctx, query, userID, status, limit, offset)
}

// RecordNotified bumps the counter in place and advances the version, so
// in-flight compare-and-set writers reload instead of overwriting it.
func (r *activeWarningRepo) RecordNotified(ctx context.Context, id uuid.UUID, now time.Time) error {
	query := `
		UPDATE active_warnings
		SET notification_count = notification_count + 1, last_notified_at = $1,
			version = version + 1, updated_at = $1
		WHERE id = $2
	`
	_, err := r.db.Exec(ctx, query, now, id)
	return err
}
