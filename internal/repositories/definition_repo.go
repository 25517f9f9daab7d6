package repositories

import (
	"context"

	"warnengine/internal/common"
	"warnengine/internal/models"

	"github.com/jackc/pgx/v5"
)

type DefinitionRepository interface {
	GetByCode(ctx context.Context, code string) (*models.WarningDefinition, error)
	List(ctx context.Context, includeDisabled bool) ([]*models.WarningDefinition, error)
	ListEnabled(ctx context.Context, entityType models.EntityType) ([]*models.WarningDefinition, error)
	ListByFrequency(ctx context.Context, freq models.CheckFrequency) ([]*models.WarningDefinition, error)
	Create(ctx context.Context, def *models.WarningDefinition) error
	Update(ctx context.Context, def *models.WarningDefinition, expectedVersion int) error
}

const definitionColumns = `id, code, title, description, category, severity, target_role, required_tier,
	entity_type, trigger_logic, default_threshold, threshold_unit, min_threshold, max_threshold,
	check_frequency, auto_resolve_after_hours, escalate_after_hours, escalate_to_role, suggested_action,
	is_enabled, is_system, is_premium_feature, priority, version, created_by, created_at, updated_at`

type definitionRepo struct {
	db DBTX
}

func NewDefinitionRepository(db DBTX) DefinitionRepository {
	return &definitionRepo{db: db}
}

func scanDefinition(row pgx.Row) (*models.WarningDefinition, error) {
	d := &models.WarningDefinition{}
	err := row.Scan(&d.ID, &d.Code, &d.Title, &d.Description, &d.Category, &d.Severity, &d.TargetRole, &d.RequiredTier,
		&d.EntityType, &d.TriggerLogic, &d.DefaultThreshold, &d.ThresholdUnit, &d.MinThreshold, &d.MaxThreshold,
		&d.CheckFrequency, &d.AutoResolveAfterHours, &d.EscalateAfterHours, &d.EscalateToRole, &d.SuggestedAction,
		&d.IsEnabled, &d.IsSystem, &d.IsPremiumFeature, &d.Priority, &d.Version, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *definitionRepo) queryDefinitions(ctx context.Context, query string, args ...interface{}) ([]*models.WarningDefinition, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []*models.WarningDefinition
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

func (r *definitionRepo) GetByCode(ctx context.Context, code string) (*models.WarningDefinition, error) {
	query := `SELECT ` + definitionColumns + ` FROM warning_definitions WHERE code = $1`
	d, err := scanDefinition(r.db.QueryRow(ctx, query, code))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return d, nil
}

func (r *definitionRepo) List(ctx context.Context, includeDisabled bool) ([]*models.WarningDefinition, error) {
	query := `SELECT ` + definitionColumns + ` FROM warning_definitions
		WHERE is_enabled OR $1
		ORDER BY priority, code`
	return r.queryDefinitions(ctx, query, includeDisabled)
}

func (r *definitionRepo) ListEnabled(ctx context.Context, entityType models.EntityType) ([]*models.WarningDefinition, error) {
	query := `SELECT ` + definitionColumns + ` FROM warning_definitions
		WHERE is_enabled AND entity_type = $1
		ORDER BY priority, code`
	return r.queryDefinitions(ctx, query, entityType)
}

func (r *definitionRepo) ListByFrequency(ctx context.Context, freq models.CheckFrequency) ([]*models.WarningDefinition, error) {
	query := `SELECT ` + definitionColumns + ` FROM warning_definitions
		WHERE is_enabled AND check_frequency = $1
		ORDER BY priority, code`
	return r.queryDefinitions(ctx, query, freq)
}

func (r *definitionRepo) Create(ctx context.Context, d *models.WarningDefinition) error {
	query := `
		INSERT INTO warning_definitions (` + definitionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
		ON CONFLICT (code) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, d.ID, d.Code, d.Title, d.Description, d.Category, d.Severity, d.TargetRole, d.RequiredTier,
		d.EntityType, d.TriggerLogic, d.DefaultThreshold, d.ThresholdUnit, d.MinThreshold, d.MaxThreshold,
		d.CheckFrequency, d.AutoResolveAfterHours, d.EscalateAfterHours, d.EscalateToRole, d.SuggestedAction,
		d.IsEnabled, d.IsSystem, d.IsPremiumFeature, d.Priority, d.Version, d.CreatedBy, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NewValidationError("code", "definition %s already exists", d.Code)
	}
	return nil
}

// Update writes every mutable column when the stored version equals expectedVersion.
// The code column is never written.
func (r *definitionRepo) Update(ctx context.Context, d *models.WarningDefinition, expectedVersion int) error {
	query := `
		UPDATE warning_definitions
		SET title = $1, description = $2, category = $3, severity = $4, target_role = $5, required_tier = $6,
			trigger_logic = $7, default_threshold = $8, threshold_unit = $9, min_threshold = $10, max_threshold = $11,
			check_frequency = $12, auto_resolve_after_hours = $13, escalate_after_hours = $14, escalate_to_role = $15,
			suggested_action = $16, is_enabled = $17, is_premium_feature = $18, priority = $19,
			version = $20, updated_at = $21
		WHERE code = $22 AND version = $23
	`
	return casResult(r.db.Exec(ctx, query, d.Title, d.Description, d.Category, d.Severity, d.TargetRole, d.RequiredTier,
		d.TriggerLogic, d.DefaultThreshold, d.ThresholdUnit, d.MinThreshold, d.MaxThreshold,
		d.CheckFrequency, d.AutoResolveAfterHours, d.EscalateAfterHours, d.EscalateToRole,
		d.SuggestedAction, d.IsEnabled, d.IsPremiumFeature, d.Priority,
		d.Version, d.UpdatedAt, d.Code, expectedVersion))
}
