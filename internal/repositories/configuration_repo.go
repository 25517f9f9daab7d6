package repositories

import (
	"context"

	"warnengine/internal/common"
	"warnengine/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ConfigurationRepository interface {
	Get(ctx context.Context, agencyID uuid.UUID, code string) (*models.WarningConfiguration, error)
	ListByAgency(ctx context.Context, agencyID uuid.UUID) ([]*models.WarningConfiguration, error)
	Insert(ctx context.Context, cfg *models.WarningConfiguration) error
	Update(ctx context.Context, cfg *models.WarningConfiguration, expectedVersion int) error
}

const configurationColumns = `id, agency_id, definition_code, is_enabled, custom_threshold, custom_threshold_unit,
	notify_in_app, notify_email, notify_push, notify_sms, notify_webhook,
	escalate_to_super_agent, escalate_to_owner, escalation_delay_hours, allow_snooze, max_snooze_hours,
	quiet_hours_start, quiet_hours_end, custom_severity, custom_priority, custom_message, custom_action,
	configured_by, version, created_at, updated_at`

type configurationRepo struct {
	db DBTX
}

func NewConfigurationRepository(db DBTX) ConfigurationRepository {
	return &configurationRepo{db: db}
}

func scanConfiguration(row pgx.Row) (*models.WarningConfiguration, error) {
	c := &models.WarningConfiguration{}
	err := row.Scan(&c.ID, &c.AgencyID, &c.DefinitionCode, &c.IsEnabled, &c.CustomThreshold, &c.CustomThresholdUnit,
		&c.NotifyInApp, &c.NotifyEmail, &c.NotifyPush, &c.NotifySMS, &c.NotifyWebhook,
		&c.EscalateToSuperAgent, &c.EscalateToOwner, &c.EscalationDelayHours, &c.AllowSnooze, &c.MaxSnoozeHours,
		&c.QuietHoursStart, &c.QuietHoursEnd, &c.CustomSeverity, &c.CustomPriority, &c.CustomMessage, &c.CustomAction,
		&c.ConfiguredBy, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *configurationRepo) Get(ctx context.Context, agencyID uuid.UUID, code string) (*models.WarningConfiguration, error) {
	query := `SELECT ` + configurationColumns + ` FROM warning_configurations WHERE agency_id = $1 AND definition_code = $2`
	c, err := scanConfiguration(r.db.QueryRow(ctx, query, agencyID, code))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return c, nil
}

func (r *configurationRepo) ListByAgency(ctx context.Context, agencyID uuid.UUID) ([]*models.WarningConfiguration, error) {
	query := `SELECT ` + configurationColumns + ` FROM warning_configurations WHERE agency_id = $1 ORDER BY definition_code`
	rows, err := r.db.Query(ctx, query, agencyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cfgs []*models.WarningConfiguration
	for rows.Next() {
		c, err := scanConfiguration(rows)
		if err != nil {
			return nil, err
		}
		cfgs = append(cfgs, c)
	}
	return cfgs, rows.Err()
}

// Insert creates the first override for an (agency, code) pair. A concurrent
// insert of the same pair surfaces as ErrStaleVersion so the caller reloads.
func (r *configurationRepo) Insert(ctx context.Context, c *models.WarningConfiguration) error {
	query := `
		INSERT INTO warning_configurations (` + configurationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
		ON CONFLICT (agency_id, definition_code) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, c.ID, c.AgencyID, c.DefinitionCode, c.IsEnabled, c.CustomThreshold, c.CustomThresholdUnit,
		c.NotifyInApp, c.NotifyEmail, c.NotifyPush, c.NotifySMS, c.NotifyWebhook,
		c.EscalateToSuperAgent, c.EscalateToOwner, c.EscalationDelayHours, c.AllowSnooze, c.MaxSnoozeHours,
		c.QuietHoursStart, c.QuietHoursEnd, c.CustomSeverity, c.CustomPriority, c.CustomMessage, c.CustomAction,
		c.ConfiguredBy, c.Version, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrStaleVersion
	}
	return nil
}

func (r *configurationRepo) Update(ctx context.Context, c *models.WarningConfiguration, expectedVersion int) error {
	query := `
		UPDATE warning_configurations
		SET is_enabled = $1, custom_threshold = $2, custom_threshold_unit = $3,
			notify_in_app = $4, notify_email = $5, notify_push = $6, notify_sms = $7, notify_webhook = $8,
			escalate_to_super_agent = $9, escalate_to_owner = $10, escalation_delay_hours = $11,
			allow_snooze = $12, max_snooze_hours = $13, quiet_hours_start = $14, quiet_hours_end = $15,
			custom_severity = $16, custom_priority = $17, custom_message = $18, custom_action = $19,
			configured_by = $20, version = $21, updated_at = $22
		WHERE id = $23 AND version = $24
	`
	return casResult(r.db.Exec(ctx, query, c.IsEnabled, c.CustomThreshold, c.CustomThresholdUnit,
		c.NotifyInApp, c.NotifyEmail, c.NotifyPush, c.NotifySMS, c.NotifyWebhook,
		c.EscalateToSuperAgent, c.EscalateToOwner, c.EscalationDelayHours,
		c.AllowSnooze, c.MaxSnoozeHours, c.QuietHoursStart, c.QuietHoursEnd,
		c.CustomSeverity, c.CustomPriority, c.CustomMessage, c.CustomAction,
		c.ConfiguredBy, c.Version, c.UpdatedAt, c.ID, expectedVersion))
}
