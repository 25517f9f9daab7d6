package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func leadDefinition() *WarningDefinition {
	escalateAfter := 48
	role := RoleSuperAgent
	return &WarningDefinition{
		ID:                 uuid.New(),
		Code:               "LEAD_UNANSWERED_24H",
		Title:              "Lead unanswered",
		Category:           CategoryOperational,
		Severity:           SeverityHigh,
		TargetRole:         RoleAgent,
		EntityType:         EntityLead,
		DefaultThreshold:   24,
		ThresholdUnit:      UnitHours,
		CheckFrequency:     FrequencyHourly,
		EscalateAfterHours: &escalateAfter,
		EscalateToRole:     &role,
		IsEnabled:          true,
		Priority:           DefaultDefinitionPriority,
		Version:            3,
	}
}

func TestEffective_NoOverrideReturnsDefinitionDefaults(t *testing.T) {
	def := leadDefinition()
	ec := Effective(def, uuid.New(), nil)

	assert.False(t, ec.Overridden)
	assert.True(t, ec.Enabled)
	assert.Equal(t, 24, ec.Threshold)
	assert.Equal(t, UnitHours, ec.ThresholdUnit)
	assert.Equal(t, SeverityHigh, ec.Severity)
	assert.Equal(t, DefaultDefinitionPriority, ec.Priority)
	assert.Equal(t, []NotificationChannel{ChannelInApp}, ec.Channels)
	assert.Equal(t, 48, *ec.EscalationDelayHours)
	assert.Equal(t, RoleSuperAgent, *ec.EscalationRole)
	assert.Equal(t, 10, ec.QueuePriority())
	assert.True(t, ec.NotificationAllowed(time.Now()))
}

func TestEffective_OverridesWin(t *testing.T) {
	def := leadDefinition()
	agencyID := uuid.New()
	cfg := NewWarningConfiguration(agencyID, def.Code, time.Now())
	threshold := 48
	severity := SeverityCritical
	priority := 5
	cfg.CustomThreshold = &threshold
	cfg.CustomSeverity = &severity
	cfg.CustomPriority = &priority
	cfg.NotifyEmail = true
	cfg.EscalateToOwner = true
	cfg.EscalationDelayHours = 12

	ec := Effective(def, agencyID, cfg)

	assert.True(t, ec.Overridden)
	assert.Equal(t, 48, ec.Threshold)
	assert.Equal(t, UnitHours, ec.ThresholdUnit)
	assert.Equal(t, SeverityCritical, ec.Severity)
	assert.Equal(t, 5, ec.QueuePriority())
	assert.Equal(t, []NotificationChannel{ChannelInApp, ChannelEmail}, ec.Channels)
	assert.Equal(t, RoleAgencyOwner, *ec.EscalationRole)
	assert.Equal(t, 12, *ec.EscalationDelayHours)
}

func TestEffective_DisabledDefinitionStaysDisabled(t *testing.T) {
	def := leadDefinition()
	def.IsEnabled = false
	cfg := NewWarningConfiguration(uuid.New(), def.Code, time.Now())

	assert.False(t, Effective(def, cfg.AgencyID, cfg).Enabled)
}

func at(h, m int) time.Time {
	return time.Date(2026, 3, 10, h, m, 0, 0, time.UTC)
}

func TestNotificationAllowed_DaytimeWindow(t *testing.T) {
	start, end := NewTimeOfDay(8, 0), NewTimeOfDay(22, 0)
	ec := &EffectiveConfig{QuietHoursStart: &start, QuietHoursEnd: &end}

	assert.True(t, ec.NotificationAllowed(at(7, 59)))
	assert.False(t, ec.NotificationAllowed(at(8, 0)))
	assert.False(t, ec.NotificationAllowed(at(21, 59)))
	assert.True(t, ec.NotificationAllowed(at(22, 0)))
	assert.Equal(t, at(22, 0), ec.NextNotificationWindow(at(12, 0)))
}

func TestNotificationAllowed_OvernightWindow(t *testing.T) {
	start, end := NewTimeOfDay(22, 0), NewTimeOfDay(8, 0)
	ec := &EffectiveConfig{QuietHoursStart: &start, QuietHoursEnd: &end}

	assert.False(t, ec.NotificationAllowed(at(23, 30)))
	assert.False(t, ec.NotificationAllowed(at(3, 0)))
	assert.True(t, ec.NotificationAllowed(at(9, 0)))
	assert.True(t, ec.NotificationAllowed(at(8, 0)))

	assert.Equal(t, time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC), ec.NextNotificationWindow(at(23, 30)))
	assert.Equal(t, at(8, 0), ec.NextNotificationWindow(at(3, 0)))
	assert.Equal(t, at(9, 0), ec.NextNotificationWindow(at(9, 0)))
}

func TestNotificationAllowed_EqualBoundsMeansNoWindow(t *testing.T) {
	start, end := NewTimeOfDay(9, 0), NewTimeOfDay(9, 0)
	ec := &EffectiveConfig{QuietHoursStart: &start, QuietHoursEnd: &end}
	assert.True(t, ec.NotificationAllowed(at(9, 0)))
}

func TestDefinitionCacheKey(t *testing.T) {
	def := leadDefinition()
	assert.Equal(t, "LEAD_UNANSWERED_24H_v3", def.CacheKey())

	def.Touch(time.Now())
	assert.Equal(t, 4, def.Version)
	assert.Equal(t, "LEAD_UNANSWERED_24H_v4", def.CacheKey())
}

func TestConfigurationValidate(t *testing.T) {
	def := leadDefinition()
	minT, maxT := 1, 72
	def.MinThreshold, def.MaxThreshold = &minT, &maxT

	cfg := NewWarningConfiguration(uuid.New(), def.Code, time.Now())
	assert.NoError(t, cfg.Validate(def))

	tooHigh := 100
	cfg.CustomThreshold = &tooHigh
	assert.Error(t, cfg.Validate(def))
	cfg.CustomThreshold = nil

	start := NewTimeOfDay(22, 0)
	cfg.QuietHoursStart = &start
	assert.Error(t, cfg.Validate(def))
	cfg.QuietHoursStart = nil

	cfg.MaxSnoozeHours = 0
	assert.Error(t, cfg.Validate(def))
}
