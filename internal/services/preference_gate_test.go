package services

import (
	"testing"
	"time"
	_ "time/tzdata"

	"warnengine/internal/common"
	"warnengine/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gateSettings(now time.Time) *models.UserNotificationSettings {
	s := models.DefaultUserNotificationSettings(uuid.New(), now)
	s.Timezone = "UTC"
	s.QuietHoursEnabled = true
	return s
}

func TestPreferenceGate_QuietHours(t *testing.T) {
	gate := NewPreferenceGate()
	night := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	morning := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	s := gateSettings(night)

	d := gate.Evaluate(s, models.ChannelEmail, models.TypeWarning, night)
	assert.False(t, d.Allowed)
	assert.False(t, d.Suppressed)
	assert.Equal(t, "Quiet hours", d.Reason)
	assert.True(t, d.NotBefore.Equal(time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)))

	assert.True(t, gate.IsAllowedNow(s, morning))
	assert.True(t, gate.Evaluate(s, models.ChannelEmail, models.TypeWarning, morning).Allowed)
}

func TestPreferenceGate_QuietHoursInUserTimezone(t *testing.T) {
	gate := NewPreferenceGate()
	// 21:30 UTC is 22:30 in Belgrade during winter time
	now := time.Date(2024, 1, 15, 21, 30, 0, 0, time.UTC)
	s := gateSettings(now)
	s.Timezone = "Europe/Belgrade"

	assert.False(t, gate.IsAllowedNow(s, now))

	s.Timezone = "UTC"
	assert.True(t, gate.IsAllowedNow(s, now))
}

func TestPreferenceGate_QuietHoursDisabled(t *testing.T) {
	now := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	s := gateSettings(now)
	s.QuietHoursEnabled = false

	assert.True(t, NewPreferenceGate().IsAllowedNow(s, now))
}

func TestPreferenceGate_DoNotDisturb(t *testing.T) {
	gate := NewPreferenceGate()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := gateSettings(now)
	require.NoError(t, s.EnableDoNotDisturb(2, "meeting", now))

	d := gate.Evaluate(s, models.ChannelInApp, models.TypeWarning, now)
	assert.False(t, d.Allowed)
	assert.Equal(t, now.Add(2*time.Hour), d.NotBefore)

	assert.True(t, gate.IsAllowedNow(s, now.Add(2*time.Hour)))
}

func TestPreferenceGate_DailyCapResetsAtMidnight(t *testing.T) {
	gate := NewPreferenceGate()
	now := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	s := gateSettings(now)
	s.MaxDailyNotifications = 2
	s.IncrementDailyCount(now)
	assert.True(t, gate.IsAllowedNow(s, now))
	s.IncrementDailyCount(now)

	d := gate.Evaluate(s, models.ChannelEmail, models.TypeWarning, now)
	assert.False(t, d.Allowed)
	assert.Equal(t, "Daily notification limit reached", d.Reason)
	assert.True(t, d.NotBefore.Equal(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)))

	// quiet hours end at 08:00 on the next day
	assert.True(t, gate.IsAllowedNow(s, time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)))
}

func TestPreferenceGate_SuppressedByPreference(t *testing.T) {
	gate := NewPreferenceGate()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := gateSettings(now)

	d := gate.Evaluate(s, models.ChannelSMS, models.TypeWarning, now)
	assert.False(t, d.Allowed)
	assert.True(t, d.Suppressed)
	assert.Equal(t, "Suppressed: SMS notifications disabled", d.Reason)
	assert.ErrorIs(t, d.Err(), common.ErrSuppressed)
	assert.Equal(t, now.Add(PreferenceRecheckInterval), d.NotBefore)

	s.WarningsEnabled = false
	d = gate.Evaluate(s, models.ChannelInApp, models.TypeWarning, now)
	assert.True(t, d.Suppressed)
	assert.Contains(t, d.Reason, "WARNING")
}
