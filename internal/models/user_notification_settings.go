package models

import (
	"strings"
	"time"

	"warnengine/internal/common"

	"github.com/google/uuid"
)

const (
	DefaultTimezone              = "Europe/Belgrade"
	DefaultMaxDailyNotifications = 50
	DefaultDigestHour            = 9
	DefaultDigestDay             = "MONDAY"
	dateLayout                   = "2006-01-02"
)

// AllDays is the default quiet-hours day list.
var AllDays = []string{"MON", "TUE", "WED", "THU", "FRI", "SAT", "SUN"}

var weekdayCodes = map[time.Weekday]string{
	time.Monday:    "MON",
	time.Tuesday:   "TUE",
	time.Wednesday: "WED",
	time.Thursday:  "THU",
	time.Friday:    "FRI",
	time.Saturday:  "SAT",
	time.Sunday:    "SUN",
}

func WeekdayCode(d time.Weekday) string { return weekdayCodes[d] }

func ValidDayCode(code string) bool {
	for _, c := range weekdayCodes {
		if c == code {
			return true
		}
	}
	return false
}

// DeviceTokens maps a channel name to the device tokens registered for it.
type DeviceTokens map[string][]string

// UserNotificationSettings holds one user's delivery preferences.
type UserNotificationSettings struct {
	ID                     uuid.UUID       `json:"id" db:"id"`
	UserID                 uuid.UUID       `json:"user_id" db:"user_id"`
	EmailEnabled           bool            `json:"email_enabled" db:"email_enabled"`
	InAppEnabled           bool            `json:"in_app_enabled" db:"in_app_enabled"`
	PushEnabled            bool            `json:"push_enabled" db:"push_enabled"`
	SMSEnabled             bool            `json:"sms_enabled" db:"sms_enabled"`
	WebhookEnabled         bool            `json:"webhook_enabled" db:"webhook_enabled"`
	WebhookURL             *string         `json:"webhook_url,omitempty" db:"webhook_url"`
	EmailFrequency         EmailFrequency  `json:"email_frequency" db:"email_frequency"`
	DigestHour             int             `json:"digest_hour" db:"digest_hour"`
	DigestDay              string          `json:"digest_day" db:"digest_day"`
	WarningsEnabled        bool            `json:"warnings_enabled" db:"warnings_enabled"`
	WarningsMinSeverity    WarningSeverity `json:"warnings_min_severity" db:"warnings_min_severity"`
	LeadsEnabled           bool            `json:"leads_enabled" db:"leads_enabled"`
	ListingsEnabled        bool            `json:"listings_enabled" db:"listings_enabled"`
	SystemEnabled          bool            `json:"system_enabled" db:"system_enabled"`
	TeamEnabled            bool            `json:"team_enabled" db:"team_enabled"`
	BillingEnabled         bool            `json:"billing_enabled" db:"billing_enabled"`
	PromotionalEnabled     bool            `json:"promotional_enabled" db:"promotional_enabled"`
	QuietHoursEnabled      bool            `json:"quiet_hours_enabled" db:"quiet_hours_enabled"`
	QuietHoursStart        TimeOfDay       `json:"quiet_hours_start" db:"quiet_hours_start"`
	QuietHoursEnd          TimeOfDay       `json:"quiet_hours_end" db:"quiet_hours_end"`
	QuietHoursDays         []string        `json:"quiet_hours_days" db:"quiet_hours_days"`
	DoNotDisturbUntil      *time.Time      `json:"do_not_disturb_until,omitempty" db:"do_not_disturb_until"`
	DoNotDisturbReason     *string         `json:"do_not_disturb_reason,omitempty" db:"do_not_disturb_reason"`
	MaxDailyNotifications  int             `json:"max_daily_notifications" db:"max_daily_notifications"`
	NotificationsToday     int             `json:"notifications_today" db:"notifications_today"`
	LastNotificationReset  *time.Time      `json:"last_notification_reset,omitempty" db:"last_notification_reset"`
	Timezone               string          `json:"timezone" db:"timezone"`
	PreferredLanguage      string          `json:"preferred_language" db:"preferred_language"`
	DeviceTokens           DeviceTokens    `json:"device_tokens" db:"device_tokens"`
	AgencyOverridesEnabled bool            `json:"agency_overrides_enabled" db:"agency_overrides_enabled"`
	LastModifiedBy         *uuid.UUID      `json:"last_modified_by,omitempty" db:"last_modified_by"`
	Version                int             `json:"version" db:"version"`
	CreatedAt              time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at" db:"updated_at"`
}

// DefaultUserNotificationSettings is what a user gets before saving any preference.
func DefaultUserNotificationSettings(userID uuid.UUID, now time.Time) *UserNotificationSettings {
	return &UserNotificationSettings{
		ID:                     uuid.New(),
		UserID:                 userID,
		EmailEnabled:           true,
		InAppEnabled:           true,
		EmailFrequency:         EmailImmediate,
		DigestHour:             DefaultDigestHour,
		DigestDay:              DefaultDigestDay,
		WarningsEnabled:        true,
		WarningsMinSeverity:    SeverityMedium,
		LeadsEnabled:           true,
		ListingsEnabled:        true,
		SystemEnabled:          true,
		TeamEnabled:            true,
		BillingEnabled:         true,
		QuietHoursStart:        NewTimeOfDay(22, 0),
		QuietHoursEnd:          NewTimeOfDay(8, 0),
		QuietHoursDays:         append([]string(nil), AllDays...),
		MaxDailyNotifications:  DefaultMaxDailyNotifications,
		Timezone:               DefaultTimezone,
		PreferredLanguage:      "en",
		DeviceTokens:           DeviceTokens{},
		AgencyOverridesEnabled: true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

// Location falls back to UTC for an unknown zone name.
func (s *UserNotificationSettings) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (s *UserNotificationSettings) today(now time.Time) string {
	return now.In(s.Location()).Format(dateLayout)
}

// EffectiveNotificationsToday treats the counter as zero when it was last
// reset on an earlier day.
func (s *UserNotificationSettings) EffectiveNotificationsToday(now time.Time) int {
	if s.LastNotificationReset == nil || s.LastNotificationReset.Format(dateLayout) != s.today(now) {
		return 0
	}
	return s.NotificationsToday
}

func (s *UserNotificationSettings) DailyCapReached(now time.Time) bool {
	return s.EffectiveNotificationsToday(now) >= s.MaxDailyNotifications
}

// CounterDate is the user's local calendar day at now, stored as a UTC date.
func (s *UserNotificationSettings) CounterDate(now time.Time) time.Time {
	local := now.In(s.Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// IncrementDailyCount resets the counter on a new day before incrementing.
func (s *UserNotificationSettings) IncrementDailyCount(now time.Time) {
	if s.EffectiveNotificationsToday(now) == 0 {
		s.NotificationsToday = 0
		day := s.CounterDate(now)
		s.LastNotificationReset = &day
	}
	s.NotificationsToday++
	s.UpdatedAt = now
}

func (s *UserNotificationSettings) DoNotDisturbActive(now time.Time) bool {
	return s.DoNotDisturbUntil != nil && now.Before(*s.DoNotDisturbUntil)
}

func (s *UserNotificationSettings) quietDay(local time.Time) bool {
	if len(s.QuietHoursDays) == 0 {
		return true
	}
	code := WeekdayCode(local.Weekday())
	for _, d := range s.QuietHoursDays {
		if strings.EqualFold(strings.TrimSpace(d), code) {
			return true
		}
	}
	return false
}

// WithinQuietHours reports whether now, in the user's zone, lies inside the
// blocked window [start, end) on a listed day.
func (s *UserNotificationSettings) WithinQuietHours(now time.Time) bool {
	if !s.QuietHoursEnabled {
		return false
	}
	local := now.In(s.Location())
	if !s.quietDay(local) {
		return false
	}
	return InWindow(TimeOfDayOf(local), s.QuietHoursStart, s.QuietHoursEnd)
}

// QuietHoursEndAfter returns the end of the quiet window that contains now.
func (s *UserNotificationSettings) QuietHoursEndAfter(now time.Time) time.Time {
	local := now.In(s.Location())
	at := s.QuietHoursEnd.On(local)
	if !at.After(local) {
		at = s.QuietHoursEnd.On(local.AddDate(0, 0, 1))
	}
	return at
}

// NextDailyReset is local midnight after now.
func (s *UserNotificationSettings) NextDailyReset(now time.Time) time.Time {
	local := now.In(s.Location())
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, local.Location())
}

// ChannelEnabled covers every channel explicitly.
func (s *UserNotificationSettings) ChannelEnabled(ch NotificationChannel) bool {
	switch ch {
	case ChannelEmail:
		return s.EmailEnabled
	case ChannelInApp:
		return s.InAppEnabled
	case ChannelPush:
		return s.PushEnabled
	case ChannelSMS:
		return s.SMSEnabled
	case ChannelWebhook:
		return s.WebhookEnabled
	}
	return false
}

// TypeEnabled covers every notification type explicitly.
func (s *UserNotificationSettings) TypeEnabled(t NotificationType) bool {
	switch t {
	case TypeWarning:
		return s.WarningsEnabled
	case TypeLead:
		return s.LeadsEnabled
	case TypeListing:
		return s.ListingsEnabled
	case TypeSystem:
		return s.SystemEnabled
	case TypeTeam:
		return s.TeamEnabled
	case TypeBilling:
		return s.BillingEnabled
	}
	return false
}

func (s *UserNotificationSettings) SeverityAllowed(sev WarningSeverity) bool {
	if s.WarningsMinSeverity == "" {
		return true
	}
	return sev.AtLeast(s.WarningsMinSeverity)
}

func (s *UserNotificationSettings) EnableDoNotDisturb(hours int, reason string, now time.Time) error {
	if hours <= 0 {
		return common.NewValidationError("hours", "must be positive")
	}
	until := now.Add(time.Duration(hours) * time.Hour)
	s.DoNotDisturbUntil = &until
	if reason != "" {
		s.DoNotDisturbReason = &reason
	} else {
		s.DoNotDisturbReason = nil
	}
	s.UpdatedAt = now
	return nil
}

func (s *UserNotificationSettings) DisableDoNotDisturb(now time.Time) {
	s.DoNotDisturbUntil = nil
	s.DoNotDisturbReason = nil
	s.UpdatedAt = now
}

func (s *UserNotificationSettings) AddPushDeviceToken(token string, now time.Time) {
	if s.DeviceTokens == nil {
		s.DeviceTokens = DeviceTokens{}
	}
	key := string(ChannelPush)
	for _, t := range s.DeviceTokens[key] {
		if t == token {
			return
		}
	}
	s.DeviceTokens[key] = append(s.DeviceTokens[key], token)
	s.UpdatedAt = now
}

func (s *UserNotificationSettings) RemovePushDeviceToken(token string, now time.Time) {
	key := string(ChannelPush)
	tokens := s.DeviceTokens[key]
	out := tokens[:0]
	for _, t := range tokens {
		if t != token {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		delete(s.DeviceTokens, key)
	} else {
		s.DeviceTokens[key] = out
	}
	s.UpdatedAt = now
}

func (s *UserNotificationSettings) PushTokens() []string {
	return s.DeviceTokens[string(ChannelPush)]
}

func (s *UserNotificationSettings) Validate() error {
	if _, err := time.LoadLocation(s.Timezone); err != nil || s.Timezone == "" {
		return common.NewValidationError("timezone", "unknown time zone %q", s.Timezone)
	}
	if !s.QuietHoursStart.Valid() || !s.QuietHoursEnd.Valid() {
		return common.NewValidationError("quiet_hours", "malformed time of day")
	}
	for _, d := range s.QuietHoursDays {
		if !ValidDayCode(strings.ToUpper(strings.TrimSpace(d))) {
			return common.NewValidationError("quiet_hours_days", "unknown day %q", d)
		}
	}
	if s.MaxDailyNotifications < 1 {
		return common.NewValidationError("max_daily_notifications", "must be positive")
	}
	if s.DigestHour < 0 || s.DigestHour > 23 {
		return common.NewValidationError("digest_hour", "must be between 0 and 23")
	}
	if s.WarningsMinSeverity != "" && !s.WarningsMinSeverity.Valid() {
		return common.NewValidationError("warnings_min_severity", "unknown severity %q", s.WarningsMinSeverity)
	}
	if s.WebhookEnabled && (s.WebhookURL == nil || *s.WebhookURL == "") {
		return common.NewValidationError("webhook_url", "is required when webhook notifications are enabled")
	}
	return nil
}
