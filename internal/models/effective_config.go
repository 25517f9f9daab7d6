package models

import (
	"time"

	"github.com/google/uuid"
)

// EffectiveConfig is a definition merged with an agency override, if any.
type EffectiveConfig struct {
	Definition *WarningDefinition `json:"-"`
	AgencyID   uuid.UUID          `json:"agency_id"`
	Code       string             `json:"code"`
	Overridden bool               `json:"overridden"`

	Enabled          bool            `json:"enabled"`
	Threshold        int             `json:"threshold"`
	ThresholdUnit    ThresholdUnit   `json:"threshold_unit"`
	Severity         WarningSeverity `json:"severity"`
	Priority         int             `json:"priority"`
	PriorityOverride bool            `json:"priority_override"`

	Channels             []NotificationChannel `json:"channels"`
	EscalationDelayHours *int                  `json:"escalation_delay_hours,omitempty"`
	EscalationRole       *TargetRole           `json:"escalation_role,omitempty"`
	AllowSnooze          bool                  `json:"allow_snooze"`
	MaxSnoozeHours       int                   `json:"max_snooze_hours"`
	QuietHoursStart      *TimeOfDay            `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd        *TimeOfDay            `json:"quiet_hours_end,omitempty"`
	Message              string                `json:"message"`
	Action               string                `json:"action"`
}

// Effective applies the fallback chain: each overridable value comes from cfg
// when set and from def otherwise. A nil cfg yields the definition defaults.
func Effective(def *WarningDefinition, agencyID uuid.UUID, cfg *WarningConfiguration) *EffectiveConfig {
	ec := &EffectiveConfig{
		Definition:           def,
		AgencyID:             agencyID,
		Code:                 def.Code,
		Enabled:              def.IsEnabled,
		Threshold:            def.DefaultThreshold,
		ThresholdUnit:        def.ThresholdUnit,
		Severity:             def.Severity,
		Priority:             def.Priority,
		Channels:             []NotificationChannel{ChannelInApp},
		EscalationDelayHours: def.EscalateAfterHours,
		EscalationRole:       def.EscalateToRole,
		AllowSnooze:          true,
		MaxSnoozeHours:       DefaultMaxSnoozeHours,
		Message:              def.Title,
		Action:               def.SuggestedAction,
	}
	if cfg == nil {
		return ec
	}

	ec.Overridden = true
	ec.Enabled = def.IsEnabled && cfg.IsEnabled
	if cfg.CustomThreshold != nil {
		ec.Threshold = *cfg.CustomThreshold
	}
	if cfg.CustomThresholdUnit != nil {
		ec.ThresholdUnit = *cfg.CustomThresholdUnit
	}
	if cfg.CustomSeverity != nil {
		ec.Severity = *cfg.CustomSeverity
	}
	if cfg.CustomPriority != nil {
		ec.Priority = *cfg.CustomPriority
		ec.PriorityOverride = true
	}
	if cfg.CustomMessage != nil {
		ec.Message = *cfg.CustomMessage
	}
	if cfg.CustomAction != nil {
		ec.Action = *cfg.CustomAction
	}

	ec.Channels = cfg.Channels()
	ec.AllowSnooze = cfg.AllowSnooze
	ec.MaxSnoozeHours = cfg.MaxSnoozeHours
	ec.QuietHoursStart = cfg.QuietHoursStart
	ec.QuietHoursEnd = cfg.QuietHoursEnd

	role := def.EscalateToRole
	switch {
	case cfg.EscalateToOwner:
		r := RoleAgencyOwner
		role = &r
	case cfg.EscalateToSuperAgent:
		r := RoleSuperAgent
		role = &r
	}
	ec.EscalationRole = role
	if role != nil {
		delay := cfg.EscalationDelayHours
		ec.EscalationDelayHours = &delay
	}
	return ec
}

// EscalationEnabled is true when both a delay and a target role are known.
func (ec *EffectiveConfig) EscalationEnabled() bool {
	return ec.EscalationDelayHours != nil && ec.EscalationRole != nil
}

// QueuePriority is the priority assigned to notifications for this warning.
// An explicit agency override wins over the severity mapping.
func (ec *EffectiveConfig) QueuePriority() int {
	if ec.PriorityOverride {
		return ec.Priority
	}
	return ec.Severity.QueuePriority()
}

func (ec *EffectiveConfig) quietWindow() (TimeOfDay, TimeOfDay, bool) {
	if ec.QuietHoursStart == nil || ec.QuietHoursEnd == nil {
		return TimeOfDay{}, TimeOfDay{}, false
	}
	if ec.QuietHoursStart.Equal(*ec.QuietHoursEnd) {
		return TimeOfDay{}, TimeOfDay{}, false
	}
	return *ec.QuietHoursStart, *ec.QuietHoursEnd, true
}

// NotificationAllowed applies the agency quiet window: notifications are
// allowed when now lies outside [start, end), wrapping past midnight when
// start is after end. An unset or empty window always allows.
func (ec *EffectiveConfig) NotificationAllowed(now time.Time) bool {
	start, end, ok := ec.quietWindow()
	if !ok {
		return true
	}
	return !InWindow(TimeOfDayOf(now), start, end)
}

// NextNotificationWindow returns now if notifying is allowed, otherwise the
// instant the current quiet window ends.
func (ec *EffectiveConfig) NextNotificationWindow(now time.Time) time.Time {
	if ec.NotificationAllowed(now) {
		return now
	}
	start, end, _ := ec.quietWindow()
	at := end.On(now)
	if start.Minutes() > end.Minutes() && TimeOfDayOf(now).Minutes() >= start.Minutes() {
		at = end.On(now.AddDate(0, 0, 1))
	}
	return at
}
