package models

import (
	"time"

	"warnengine/internal/common"

	"github.com/google/uuid"
)

const (
	DefaultEscalationDelayHours = 24
	DefaultMaxSnoozeHours       = 24
	MaxSnoozeHoursLimit         = 168
)

// WarningConfiguration is an agency's override of a definition. At most one
// row exists per (agency, definition code).
type WarningConfiguration struct {
	ID                   uuid.UUID        `json:"id" db:"id"`
	AgencyID             uuid.UUID        `json:"agency_id" db:"agency_id"`
	DefinitionCode       string           `json:"definition_code" db:"definition_code"`
	IsEnabled            bool             `json:"is_enabled" db:"is_enabled"`
	CustomThreshold      *int             `json:"custom_threshold,omitempty" db:"custom_threshold"`
	CustomThresholdUnit  *ThresholdUnit   `json:"custom_threshold_unit,omitempty" db:"custom_threshold_unit"`
	NotifyInApp          bool             `json:"notify_in_app" db:"notify_in_app"`
	NotifyEmail          bool             `json:"notify_email" db:"notify_email"`
	NotifyPush           bool             `json:"notify_push" db:"notify_push"`
	NotifySMS            bool             `json:"notify_sms" db:"notify_sms"`
	NotifyWebhook        bool             `json:"notify_webhook" db:"notify_webhook"`
	EscalateToSuperAgent bool             `json:"escalate_to_super_agent" db:"escalate_to_super_agent"`
	EscalateToOwner      bool             `json:"escalate_to_owner" db:"escalate_to_owner"`
	EscalationDelayHours int              `json:"escalation_delay_hours" db:"escalation_delay_hours"`
	AllowSnooze          bool             `json:"allow_snooze" db:"allow_snooze"`
	MaxSnoozeHours       int              `json:"max_snooze_hours" db:"max_snooze_hours"`
	QuietHoursStart      *TimeOfDay       `json:"quiet_hours_start,omitempty" db:"quiet_hours_start"`
	QuietHoursEnd        *TimeOfDay       `json:"quiet_hours_end,omitempty" db:"quiet_hours_end"`
	CustomSeverity       *WarningSeverity `json:"custom_severity,omitempty" db:"custom_severity"`
	CustomPriority       *int             `json:"custom_priority,omitempty" db:"custom_priority"`
	CustomMessage        *string          `json:"custom_message,omitempty" db:"custom_message"`
	CustomAction         *string          `json:"custom_action,omitempty" db:"custom_action"`
	ConfiguredBy         *uuid.UUID       `json:"configured_by,omitempty" db:"configured_by"`
	Version              int              `json:"version" db:"version"`
	CreatedAt            time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at" db:"updated_at"`
}

// NewWarningConfiguration returns an override populated with the defaults an
// agency starts from when it first customizes a definition.
func NewWarningConfiguration(agencyID uuid.UUID, code string, now time.Time) *WarningConfiguration {
	return &WarningConfiguration{
		ID:                   uuid.New(),
		AgencyID:             agencyID,
		DefinitionCode:       code,
		IsEnabled:            true,
		NotifyInApp:          true,
		EscalationDelayHours: DefaultEscalationDelayHours,
		AllowSnooze:          true,
		MaxSnoozeHours:       DefaultMaxSnoozeHours,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// Channels lists the channels this override turns on.
func (c *WarningConfiguration) Channels() []NotificationChannel {
	var out []NotificationChannel
	for _, ch := range AllChannels {
		if c.notifies(ch) {
			out = append(out, ch)
		}
	}
	return out
}

func (c *WarningConfiguration) notifies(ch NotificationChannel) bool {
	switch ch {
	case ChannelInApp:
		return c.NotifyInApp
	case ChannelEmail:
		return c.NotifyEmail
	case ChannelPush:
		return c.NotifyPush
	case ChannelSMS:
		return c.NotifySMS
	case ChannelWebhook:
		return c.NotifyWebhook
	}
	return false
}

// Validate rejects malformed overrides against the definition they customize.
func (c *WarningConfiguration) Validate(def *WarningDefinition) error {
	if c.AgencyID == uuid.Nil {
		return common.NewValidationError("agency_id", "is required")
	}
	if c.DefinitionCode != def.Code {
		return common.NewValidationError("definition_code", "does not match definition %s", def.Code)
	}
	if c.CustomThreshold != nil {
		if *c.CustomThreshold <= 0 {
			return common.NewValidationError("custom_threshold", "must be positive")
		}
		if !def.ThresholdInRange(*c.CustomThreshold) {
			return common.NewValidationError("custom_threshold", "outside the range allowed by %s", def.Code)
		}
	}
	if c.CustomThresholdUnit != nil && !c.CustomThresholdUnit.Valid() {
		return common.NewValidationError("custom_threshold_unit", "unknown unit %q", *c.CustomThresholdUnit)
	}
	if (c.QuietHoursStart == nil) != (c.QuietHoursEnd == nil) {
		return common.NewValidationError("quiet_hours", "start and end must both be set or both be empty")
	}
	if c.QuietHoursStart != nil && (!c.QuietHoursStart.Valid() || !c.QuietHoursEnd.Valid()) {
		return common.NewValidationError("quiet_hours", "malformed time of day")
	}
	if c.EscalationDelayHours < 0 {
		return common.NewValidationError("escalation_delay_hours", "must not be negative")
	}
	if c.AllowSnooze && (c.MaxSnoozeHours < 1 || c.MaxSnoozeHours > MaxSnoozeHoursLimit) {
		return common.NewValidationError("max_snooze_hours", "must be between 1 and %d", MaxSnoozeHoursLimit)
	}
	if c.CustomSeverity != nil && !c.CustomSeverity.Valid() {
		return common.NewValidationError("custom_severity", "unknown severity %q", *c.CustomSeverity)
	}
	if c.CustomPriority != nil && (*c.CustomPriority < 1 || *c.CustomPriority > 100) {
		return common.NewValidationError("custom_priority", "must be between 1 and 100")
	}
	return nil
}
