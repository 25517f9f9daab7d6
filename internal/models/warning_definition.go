package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"warnengine/internal/common"

	"github.com/google/uuid"
)

const DefaultDefinitionPriority = 50

var definitionCodePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]{2,63}$`)

// WarningDefinition describes one kind of warning. Code is immutable once created.
type WarningDefinition struct {
	ID                    uuid.UUID       `json:"id" db:"id"`
	Code                  string          `json:"code" db:"code"`
	Title                 string          `json:"title" db:"title"`
	Description           string          `json:"description" db:"description"`
	Category              WarningCategory `json:"category" db:"category"`
	Severity              WarningSeverity `json:"severity" db:"severity"`
	TargetRole            TargetRole      `json:"target_role" db:"target_role"`
	RequiredTier          AgencyTier      `json:"required_tier" db:"required_tier"`
	EntityType            EntityType      `json:"entity_type" db:"entity_type"`
	TriggerLogic          string          `json:"trigger_logic" db:"trigger_logic"`
	DefaultThreshold      int             `json:"default_threshold" db:"default_threshold"`
	ThresholdUnit         ThresholdUnit   `json:"threshold_unit" db:"threshold_unit"`
	MinThreshold          *int            `json:"min_threshold,omitempty" db:"min_threshold"`
	MaxThreshold          *int            `json:"max_threshold,omitempty" db:"max_threshold"`
	CheckFrequency        CheckFrequency  `json:"check_frequency" db:"check_frequency"`
	AutoResolveAfterHours *int            `json:"auto_resolve_after_hours,omitempty" db:"auto_resolve_after_hours"`
	EscalateAfterHours    *int            `json:"escalate_after_hours,omitempty" db:"escalate_after_hours"`
	EscalateToRole        *TargetRole     `json:"escalate_to_role,omitempty" db:"escalate_to_role"`
	SuggestedAction       string          `json:"suggested_action" db:"suggested_action"`
	IsEnabled             bool            `json:"is_enabled" db:"is_enabled"`
	IsSystem              bool            `json:"is_system" db:"is_system"`
	IsPremiumFeature      bool            `json:"is_premium_feature" db:"is_premium_feature"`
	Priority              int             `json:"priority" db:"priority"`
	Version               int             `json:"version" db:"version"`
	CreatedBy             *uuid.UUID      `json:"created_by,omitempty" db:"created_by"`
	CreatedAt             time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at" db:"updated_at"`
}

// CacheKey changes on every edit, so downstream caches keyed by it never serve stale data.
func (d *WarningDefinition) CacheKey() string {
	return fmt.Sprintf("%s_v%d", d.Code, d.Version)
}

// Touch records an edit.
func (d *WarningDefinition) Touch(now time.Time) {
	d.Version++
	d.UpdatedAt = now
}

// ThresholdInRange reports whether v lies within the definition's optional bounds.
func (d *WarningDefinition) ThresholdInRange(v int) bool {
	if d.MinThreshold != nil && v < *d.MinThreshold {
		return false
	}
	if d.MaxThreshold != nil && v > *d.MaxThreshold {
		return false
	}
	return true
}

func (d *WarningDefinition) Validate() error {
	d.Code = strings.ToUpper(strings.TrimSpace(d.Code))
	if !definitionCodePattern.MatchString(d.Code) {
		return common.NewValidationError("code", "must be 3-64 upper-case letters, digits or underscores")
	}
	if strings.TrimSpace(d.Title) == "" {
		return common.NewValidationError("title", "is required")
	}
	if !d.Category.Valid() {
		return common.NewValidationError("category", "unknown category %q", d.Category)
	}
	if !d.Severity.Valid() {
		return common.NewValidationError("severity", "unknown severity %q", d.Severity)
	}
	if !d.TargetRole.Valid() {
		return common.NewValidationError("target_role", "unknown role %q", d.TargetRole)
	}
	if d.RequiredTier != "" && d.RequiredTier.Rank() < 0 {
		return common.NewValidationError("required_tier", "unknown tier %q", d.RequiredTier)
	}
	if !d.EntityType.Valid() {
		return common.NewValidationError("entity_type", "unknown entity type %q", d.EntityType)
	}
	if !d.ThresholdUnit.Valid() {
		return common.NewValidationError("threshold_unit", "unknown unit %q", d.ThresholdUnit)
	}
	if !d.CheckFrequency.Valid() {
		return common.NewValidationError("check_frequency", "unknown frequency %q", d.CheckFrequency)
	}
	if d.DefaultThreshold <= 0 {
		return common.NewValidationError("default_threshold", "must be positive")
	}
	if d.MinThreshold != nil && d.MaxThreshold != nil && *d.MinThreshold > *d.MaxThreshold {
		return common.NewValidationError("min_threshold", "exceeds max_threshold")
	}
	if !d.ThresholdInRange(d.DefaultThreshold) {
		return common.NewValidationError("default_threshold", "outside [min_threshold, max_threshold]")
	}
	if d.EscalateAfterHours != nil {
		if *d.EscalateAfterHours < 0 {
			return common.NewValidationError("escalate_after_hours", "must not be negative")
		}
		if d.EscalateToRole == nil || !d.EscalateToRole.Valid() {
			return common.NewValidationError("escalate_to_role", "is required when escalate_after_hours is set")
		}
	}
	if d.AutoResolveAfterHours != nil && *d.AutoResolveAfterHours < 0 {
		return common.NewValidationError("auto_resolve_after_hours", "must not be negative")
	}
	if d.Priority < 1 || d.Priority > 100 {
		return common.NewValidationError("priority", "must be between 1 and 100")
	}
	return nil
}
