package models

import (
	"fmt"
	"strings"
)

// WarningSeverity is ordered: INFO < LOW < MEDIUM < HIGH < CRITICAL.
type WarningSeverity string

const (
	SeverityInfo     WarningSeverity = "INFO"
	SeverityLow      WarningSeverity = "LOW"
	SeverityMedium   WarningSeverity = "MEDIUM"
	SeverityHigh     WarningSeverity = "HIGH"
	SeverityCritical WarningSeverity = "CRITICAL"
)

// Rank returns the ordinal of the severity, or -1 for unknown values.
func (s WarningSeverity) Rank() int {
	switch s {
	case SeverityInfo:
		return 0
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return -1
}

func (s WarningSeverity) Valid() bool { return s.Rank() >= 0 }

// AtLeast reports whether s is as severe as other.
func (s WarningSeverity) AtLeast(other WarningSeverity) bool {
	return s.Rank() >= other.Rank()
}

// QueuePriority maps severity to a queue priority where 1 is sent first.
func (s WarningSeverity) QueuePriority() int {
	switch s {
	case SeverityCritical:
		return 1
	case SeverityHigh:
		return 10
	case SeverityMedium:
		return 50
	case SeverityLow:
		return 80
	case SeverityInfo:
		return 90
	}
	return DefaultQueuePriority
}

// IsUrgent is true for HIGH and CRITICAL.
func (s WarningSeverity) IsUrgent() bool {
	return s.AtLeast(SeverityHigh)
}

func ParseSeverity(v string) (WarningSeverity, error) {
	s := WarningSeverity(strings.ToUpper(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown severity %q", v)
	}
	return s, nil
}

type WarningCategory string

const (
	CategoryOperational WarningCategory = "OPERATIONAL"
	CategoryPerformance WarningCategory = "PERFORMANCE"
	CategoryCompliance  WarningCategory = "COMPLIANCE"
	CategoryBusiness    WarningCategory = "BUSINESS"
	CategoryPredictive  WarningCategory = "PREDICTIVE"
)

func (c WarningCategory) Valid() bool {
	switch c {
	case CategoryOperational, CategoryPerformance, CategoryCompliance, CategoryBusiness, CategoryPredictive:
		return true
	}
	return false
}

// TargetRole is ordered by authority: AGENT < SUPER_AGENT < AGENCY_OWNER < PLATFORM_ADMIN.
type TargetRole string

const (
	RoleAgent         TargetRole = "AGENT"
	RoleSuperAgent    TargetRole = "SUPER_AGENT"
	RoleAgencyOwner   TargetRole = "AGENCY_OWNER"
	RolePlatformAdmin TargetRole = "PLATFORM_ADMIN"
)

func (r TargetRole) Rank() int {
	switch r {
	case RoleAgent:
		return 0
	case RoleSuperAgent:
		return 1
	case RoleAgencyOwner:
		return 2
	case RolePlatformAdmin:
		return 3
	}
	return -1
}

func (r TargetRole) Valid() bool { return r.Rank() >= 0 }

// AgencyTier gates premium definitions.
type AgencyTier string

const (
	TierBasic   AgencyTier = "AGENCY_BASIC"
	TierPremium AgencyTier = "AGENCY_PREMIUM"
	TierAdmin   AgencyTier = "ADMIN"
)

func (t AgencyTier) Rank() int {
	switch t {
	case TierBasic:
		return 0
	case TierPremium:
		return 1
	case TierAdmin:
		return 2
	}
	return -1
}

// Satisfies reports whether an agency on tier t may use a definition requiring required.
// An empty requirement is always satisfied.
func (t AgencyTier) Satisfies(required AgencyTier) bool {
	if required == "" {
		return true
	}
	return t.Rank() >= required.Rank() && required.Rank() >= 0
}

type EntityType string

const (
	EntityLead    EntityType = "LEAD"
	EntityListing EntityType = "LISTING"
	EntityAgent   EntityType = "AGENT"
	EntityAgency  EntityType = "AGENCY"
)

func (e EntityType) Valid() bool {
	switch e {
	case EntityLead, EntityListing, EntityAgent, EntityAgency:
		return true
	}
	return false
}

type ThresholdUnit string

const (
	UnitHours   ThresholdUnit = "HOURS"
	UnitDays    ThresholdUnit = "DAYS"
	UnitCount   ThresholdUnit = "COUNT"
	UnitPercent ThresholdUnit = "PERCENT"
)

func (u ThresholdUnit) Valid() bool {
	switch u {
	case UnitHours, UnitDays, UnitCount, UnitPercent:
		return true
	}
	return false
}

type CheckFrequency string

const (
	FrequencyRealtime CheckFrequency = "REALTIME"
	FrequencyHourly   CheckFrequency = "HOURLY"
	FrequencyDaily    CheckFrequency = "DAILY"
)

func (f CheckFrequency) Valid() bool {
	switch f {
	case FrequencyRealtime, FrequencyHourly, FrequencyDaily:
		return true
	}
	return false
}

type NotificationChannel string

const (
	ChannelEmail   NotificationChannel = "EMAIL"
	ChannelInApp   NotificationChannel = "IN_APP"
	ChannelPush    NotificationChannel = "PUSH"
	ChannelSMS     NotificationChannel = "SMS"
	ChannelWebhook NotificationChannel = "WEBHOOK"
)

// AllChannels lists channels in composition order.
var AllChannels = []NotificationChannel{ChannelInApp, ChannelEmail, ChannelPush, ChannelSMS, ChannelWebhook}

func (c NotificationChannel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelInApp, ChannelPush, ChannelSMS, ChannelWebhook:
		return true
	}
	return false
}

type NotificationType string

const (
	TypeWarning NotificationType = "WARNING"
	TypeLead    NotificationType = "LEAD"
	TypeListing NotificationType = "LISTING"
	TypeSystem  NotificationType = "SYSTEM"
	TypeBilling NotificationType = "BILLING"
	TypeTeam    NotificationType = "TEAM"
)

func (t NotificationType) Valid() bool {
	switch t {
	case TypeWarning, TypeLead, TypeListing, TypeSystem, TypeBilling, TypeTeam:
		return true
	}
	return false
}

type WarningStatus string

const (
	WarningActive       WarningStatus = "ACTIVE"
	WarningAcknowledged WarningStatus = "ACKNOWLEDGED"
	WarningResolved     WarningStatus = "RESOLVED"
	WarningDismissed    WarningStatus = "DISMISSED"
)

// IsTerminal is true for RESOLVED and DISMISSED.
func (s WarningStatus) IsTerminal() bool {
	switch s {
	case WarningResolved, WarningDismissed:
		return true
	case WarningActive, WarningAcknowledged:
		return false
	}
	return false
}

func (s WarningStatus) Valid() bool {
	switch s {
	case WarningActive, WarningAcknowledged, WarningResolved, WarningDismissed:
		return true
	}
	return false
}

type NotificationStatus string

const (
	StatusPending   NotificationStatus = "PENDING"
	StatusSent      NotificationStatus = "SENT"
	StatusDelivered NotificationStatus = "DELIVERED"
	StatusRead      NotificationStatus = "READ"
	StatusFailed    NotificationStatus = "FAILED"
	StatusBounced   NotificationStatus = "BOUNCED"
	StatusExpired   NotificationStatus = "EXPIRED"
)

func (s NotificationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusDelivered, StatusRead, StatusFailed, StatusBounced, StatusExpired:
		return true
	}
	return false
}

type EmailFrequency string

const (
	EmailImmediate   EmailFrequency = "IMMEDIATE"
	EmailDailyDigest EmailFrequency = "DAILY_DIGEST"
	EmailWeekly      EmailFrequency = "WEEKLY"
)
