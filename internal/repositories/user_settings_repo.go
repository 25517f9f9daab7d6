package repositories

import (
	"context"
	"time"

	"warnengine/internal/common"
	"warnengine/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type UserSettingsRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserNotificationSettings, error)
	Insert(ctx context.Context, s *models.UserNotificationSettings) error
	Update(ctx context.Context, s *models.UserNotificationSettings, expectedVersion int) error
	// IncrementDailyCount bumps today's counter in one statement, restarting it
	// when the stored reset date is not today. It reports ErrNotFound when the
	// user has no settings row yet.
	IncrementDailyCount(ctx context.Context, userID uuid.UUID, today time.Time, now time.Time) error
}

const userSettingsColumns = `id, user_id, email_enabled, in_app_enabled, push_enabled, sms_enabled, webhook_enabled, webhook_url,
	email_frequency, digest_hour, digest_day, warnings_enabled, warnings_min_severity, leads_enabled, listings_enabled,
	system_enabled, team_enabled, billing_enabled, promotional_enabled, quiet_hours_enabled, quiet_hours_start,
	quiet_hours_end, quiet_hours_days, do_not_disturb_until, do_not_disturb_reason, max_daily_notifications,
	notifications_today, last_notification_reset, timezone, preferred_language, device_tokens,
	agency_overrides_enabled, last_modified_by, version, created_at, updated_at`

type userSettingsRepo struct {
	db DBTX
}

func NewUserSettingsRepository(db DBTX) UserSettingsRepository {
	return &userSettingsRepo{db: db}
}

func scanUserSettings(row pgx.Row) (*models.UserNotificationSettings, error) {
	s := &models.UserNotificationSettings{}
	err := row.Scan(&s.ID, &s.UserID, &s.EmailEnabled, &s.InAppEnabled, &s.PushEnabled, &s.SMSEnabled, &s.WebhookEnabled, &s.WebhookURL,
		&s.EmailFrequency, &s.DigestHour, &s.DigestDay, &s.WarningsEnabled, &s.WarningsMinSeverity, &s.LeadsEnabled, &s.ListingsEnabled,
		&s.SystemEnabled, &s.TeamEnabled, &s.BillingEnabled, &s.PromotionalEnabled, &s.QuietHoursEnabled, &s.QuietHoursStart,
		&s.QuietHoursEnd, &s.QuietHoursDays, &s.DoNotDisturbUntil, &s.DoNotDisturbReason, &s.MaxDailyNotifications,
		&s.NotificationsToday, &s.LastNotificationReset, &s.Timezone, &s.PreferredLanguage, &s.DeviceTokens,
		&s.AgencyOverridesEnabled, &s.LastModifiedBy, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *userSettingsRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserNotificationSettings, error) {
	query := `SELECT ` + userSettingsColumns + ` FROM user_notification_settings WHERE user_id = $1`
	s, err := scanUserSettings(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return s, nil
}

func (r *userSettingsRepo) Insert(ctx context.Context, s *models.UserNotificationSettings) error {
	query := `
		INSERT INTO user_notification_settings (` + userSettingsColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36)
		ON CONFLICT (user_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, s.ID, s.UserID, s.EmailEnabled, s.InAppEnabled, s.PushEnabled, s.SMSEnabled, s.WebhookEnabled, s.WebhookURL,
		s.EmailFrequency, s.DigestHour, s.DigestDay, s.WarningsEnabled, s.WarningsMinSeverity, s.LeadsEnabled, s.ListingsEnabled,
		s.SystemEnabled, s.TeamEnabled, s.BillingEnabled, s.PromotionalEnabled, s.QuietHoursEnabled, s.QuietHoursStart,
		s.QuietHoursEnd, s.QuietHoursDays, s.DoNotDisturbUntil, s.DoNotDisturbReason, s.MaxDailyNotifications,
		s.NotificationsToday, s.LastNotificationReset, s.Timezone, s.PreferredLanguage, s.DeviceTokens,
		s.AgencyOverridesEnabled, s.LastModifiedBy, s.Version, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrStaleVersion
	}
	return nil
}

// Update leaves the daily counter columns alone; IncrementDailyCount owns them.
func (r *userSettingsRepo) Update(ctx context.Context, s *models.UserNotificationSettings, expectedVersion int) error {
	query := `
		UPDATE user_notification_settings
		SET email_enabled = $1, in_app_enabled = $2, push_enabled = $3, sms_enabled = $4, webhook_enabled = $5,
			webhook_url = $6, email_frequency = $7, digest_hour = $8, digest_day = $9, warnings_enabled = $10,
			warnings_min_severity = $11, leads_enabled = $12, listings_enabled = $13, system_enabled = $14,
			team_enabled = $15, billing_enabled = $16, promotional_enabled = $17, quiet_hours_enabled = $18,
			quiet_hours_start = $19, quiet_hours_end = $20, quiet_hours_days = $21, do_not_disturb_until = $22,
			do_not_disturb_reason = $23, max_daily_notifications = $24, timezone = $25, preferred_language = $26,
			device_tokens = $27, agency_overrides_enabled = $28, last_modified_by = $29, version = $30, updated_at = $31
		WHERE user_id = $32 AND version = $33
	`
	return casResult(r.db.Exec(ctx, query, s.EmailEnabled, s.InAppEnabled, s.PushEnabled, s.SMSEnabled, s.WebhookEnabled,
		s.WebhookURL, s.EmailFrequency, s.DigestHour, s.DigestDay, s.WarningsEnabled,
		s.WarningsMinSeverity, s.LeadsEnabled, s.ListingsEnabled, s.SystemEnabled,
		s.TeamEnabled, s.BillingEnabled, s.PromotionalEnabled, s.QuietHoursEnabled,
		s.QuietHoursStart, s.QuietHoursEnd, s.QuietHoursDays, s.DoNotDisturbUntil,
		s.DoNotDisturbReason, s.MaxDailyNotifications, s.Timezone, s.PreferredLanguage,
		s.DeviceTokens, s.AgencyOverridesEnabled, s.LastModifiedBy, s.Version, s.UpdatedAt,
		s.UserID, expectedVersion))
}

func (r *userSettingsRepo) IncrementDailyCount(ctx context.Context, userID uuid.UUID, today time.Time, now time.Time) error {
	query := `
		UPDATE user_notification_settings
		SET notifications_today = CASE WHEN last_notification_reset = $1 THEN notifications_today + 1 ELSE 1 END,
			last_notification_reset = $1, version = version + 1, updated_at = $2
		WHERE user_id = $3
	`
	tag, err := r.db.Exec(ctx, query, today, now, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}
