package services

import (
	"errors"
	"fmt"
	"time"

	"warnengine/internal/common"
	"warnengine/internal/models"
)

// Decision is the gate's verdict for one delivery attempt.
type Decision struct {
	Allowed bool
	Reason  string
	// NotBefore is the earliest instant a timing denial can lift.
	NotBefore time.Time
	// Suppressed marks a denial only the recipient can lift by changing
	// preferences. NotBefore is then the next recheck.
	Suppressed bool
}

// PreferenceRecheckInterval spaces out rechecks of a disabled channel or type.
const PreferenceRecheckInterval = time.Hour

// Err returns nil for an allowed decision. Suppressions wrap
// common.ErrSuppressed.
func (d Decision) Err() error {
	switch {
	case d.Allowed:
		return nil
	case d.Suppressed:
		return fmt.Errorf("%w: %s", common.ErrSuppressed, d.Reason)
	}
	return errors.New(d.Reason)
}

// PreferenceGate applies a recipient's delivery preferences.
type PreferenceGate interface {
	// IsAllowedNow combines do-not-disturb, quiet hours and the daily cap.
	IsAllowedNow(s *models.UserNotificationSettings, now time.Time) bool
	Evaluate(s *models.UserNotificationSettings, channel models.NotificationChannel, typ models.NotificationType, now time.Time) Decision
}

type preferenceGate struct{}

func NewPreferenceGate() PreferenceGate {
	return preferenceGate{}
}

func (g preferenceGate) IsAllowedNow(s *models.UserNotificationSettings, now time.Time) bool {
	return g.timing(s, now).Allowed
}

func (g preferenceGate) Evaluate(s *models.UserNotificationSettings, channel models.NotificationChannel, typ models.NotificationType, now time.Time) Decision {
	if !s.ChannelEnabled(channel) {
		return suppressed(fmt.Sprintf("%s notifications disabled", channel), now)
	}
	if !s.TypeEnabled(typ) {
		return suppressed(fmt.Sprintf("%s notifications disabled", typ), now)
	}
	return g.timing(s, now)
}

func suppressed(reason string, now time.Time) Decision {
	return Decision{Reason: "Suppressed: " + reason, NotBefore: now.Add(PreferenceRecheckInterval), Suppressed: true}
}

func (g preferenceGate) timing(s *models.UserNotificationSettings, now time.Time) Decision {
	if s.DoNotDisturbActive(now) {
		return Decision{Reason: "Do not disturb", NotBefore: *s.DoNotDisturbUntil}
	}
	if s.WithinQuietHours(now) {
		return Decision{Reason: "Quiet hours", NotBefore: s.QuietHoursEndAfter(now)}
	}
	if s.DailyCapReached(now) {
		return Decision{Reason: "Daily notification limit reached", NotBefore: s.NextDailyReset(now)}
	}
	return Decision{Allowed: true}
}
