package models

import (
	"time"

	"warnengine/internal/common"

	"github.com/google/uuid"
)

const (
	DetailConditionClearedAt = "condition_cleared_at"
	ActionAutoResolved       = "auto-resolved"
)

// ActiveWarning tracks one detected condition. Rows are never deleted; they
// end in RESOLVED or DISMISSED.
type ActiveWarning struct {
	ID                   uuid.UUID     `json:"id" db:"id"`
	DefinitionCode       string        `json:"definition_code" db:"definition_code"`
	TargetUserID         uuid.UUID     `json:"target_user_id" db:"target_user_id"`
	OriginalTargetUserID *uuid.UUID    `json:"original_target_user_id,omitempty" db:"original_target_user_id"`
	AgencyID             *uuid.UUID    `json:"agency_id,omitempty" db:"agency_id"`
	EntityType           EntityType    `json:"entity_type" db:"entity_type"`
	EntityID             uuid.UUID     `json:"entity_id" db:"entity_id"`
	CurrentValue         string        `json:"current_value" db:"current_value"`
	ThresholdValue       string        `json:"threshold_value" db:"threshold_value"`
	DifferenceValue      string        `json:"difference_value" db:"difference_value"`
	Status               WarningStatus `json:"status" db:"status"`
	DetectedAt           time.Time     `json:"detected_at" db:"detected_at"`
	AcknowledgedAt       *time.Time    `json:"acknowledged_at,omitempty" db:"acknowledged_at"`
	AcknowledgedBy       *uuid.UUID    `json:"acknowledged_by,omitempty" db:"acknowledged_by"`
	ResolvedAt           *time.Time    `json:"resolved_at,omitempty" db:"resolved_at"`
	DismissedAt          *time.Time    `json:"dismissed_at,omitempty" db:"dismissed_at"`
	ActionTaken          *string       `json:"action_taken,omitempty" db:"action_taken"`
	ResolutionNotes      *string       `json:"resolution_notes,omitempty" db:"resolution_notes"`
	DismissReason        *string       `json:"dismiss_reason,omitempty" db:"dismiss_reason"`
	SnoozedUntil         *time.Time    `json:"snoozed_until,omitempty" db:"snoozed_until"`
	EscalationLevel      int           `json:"escalation_level" db:"escalation_level"`
	EscalatedAt          *time.Time    `json:"escalated_at,omitempty" db:"escalated_at"`
	EscalatedToUserID    *uuid.UUID    `json:"escalated_to_user_id,omitempty" db:"escalated_to_user_id"`
	NotificationCount    int           `json:"notification_count" db:"notification_count"`
	LastNotifiedAt       *time.Time    `json:"last_notified_at,omitempty" db:"last_notified_at"`
	Details              JSONB         `json:"details" db:"details"`
	Version              int           `json:"version" db:"version"`
	CreatedAt            time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at" db:"updated_at"`
}

// Detection is the observed state of one entity that breaches a threshold.
type Detection struct {
	DefinitionCode  string
	AgencyID        *uuid.UUID
	TargetUserID    uuid.UUID
	EntityType      EntityType
	EntityID        uuid.UUID
	CurrentValue    string
	ThresholdValue  string
	DifferenceValue string
	Details         JSONB
}

// NewActiveWarning builds the ACTIVE row for a first detection.
func NewActiveWarning(d Detection, now time.Time) *ActiveWarning {
	details := d.Details.Clone()
	return &ActiveWarning{
		ID:              uuid.New(),
		DefinitionCode:  d.DefinitionCode,
		TargetUserID:    d.TargetUserID,
		AgencyID:        d.AgencyID,
		EntityType:      d.EntityType,
		EntityID:        d.EntityID,
		CurrentValue:    d.CurrentValue,
		ThresholdValue:  d.ThresholdValue,
		DifferenceValue: d.DifferenceValue,
		Status:          WarningActive,
		DetectedAt:      now,
		Details:         details,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (w *ActiveWarning) illegal(action string) error {
	return &common.TransitionError{Entity: "warning", From: string(w.Status), Action: action}
}

func (w *ActiveWarning) touch(now time.Time) {
	w.UpdatedAt = now
}

// Acknowledge is permitted only from ACTIVE.
func (w *ActiveWarning) Acknowledge(actor uuid.UUID, now time.Time) error {
	if w.Status != WarningActive {
		return w.illegal("acknowledge")
	}
	w.Status = WarningAcknowledged
	w.AcknowledgedAt = &now
	w.AcknowledgedBy = &actor
	w.touch(now)
	return nil
}

func (w *ActiveWarning) Resolve(actionTaken, notes string, now time.Time) error {
	if w.Status.IsTerminal() {
		return w.illegal("resolve")
	}
	w.Status = WarningResolved
	w.ResolvedAt = &now
	if actionTaken != "" {
		w.ActionTaken = &actionTaken
	}
	if notes != "" {
		w.ResolutionNotes = &notes
	}
	w.touch(now)
	return nil
}

func (w *ActiveWarning) Dismiss(reason string, now time.Time) error {
	if w.Status.IsTerminal() {
		return w.illegal("dismiss")
	}
	w.Status = WarningDismissed
	w.DismissedAt = &now
	if reason != "" {
		w.DismissReason = &reason
	}
	w.touch(now)
	return nil
}

// Snooze suppresses notifications until now+hours. Status is unchanged.
func (w *ActiveWarning) Snooze(hours int, now time.Time) error {
	if w.Status.IsTerminal() {
		return w.illegal("snooze")
	}
	if hours <= 0 {
		return common.NewValidationError("hours", "must be positive")
	}
	until := now.Add(time.Duration(hours) * time.Hour)
	w.SnoozedUntil = &until
	w.touch(now)
	return nil
}

func (w *ActiveWarning) IsSnoozed(now time.Time) bool {
	return w.SnoozedUntil != nil && now.Before(*w.SnoozedUntil)
}

// NeedsEscalation is true for a non-terminal warning that has never been
// escalated and has been open for at least escalationHours.
func (w *ActiveWarning) NeedsEscalation(escalationHours int, now time.Time) bool {
	if w.Status.IsTerminal() || w.EscalatedAt != nil {
		return false
	}
	return now.Sub(w.DetectedAt) >= time.Duration(escalationHours)*time.Hour
}

// Escalate re-targets the warning at a higher-authority user.
func (w *ActiveWarning) Escalate(to uuid.UUID, now time.Time) error {
	if w.Status.IsTerminal() || w.EscalatedAt != nil {
		return w.illegal("escalate")
	}
	if w.OriginalTargetUserID == nil {
		original := w.TargetUserID
		w.OriginalTargetUserID = &original
	}
	w.EscalationLevel++
	w.EscalatedAt = &now
	w.EscalatedToUserID = &to
	w.TargetUserID = to
	w.touch(now)
	return nil
}

// Refresh records fresh observed values for a still-present condition.
func (w *ActiveWarning) Refresh(d Detection, now time.Time) error {
	if w.Status.IsTerminal() {
		return w.illegal("refresh")
	}
	w.CurrentValue = d.CurrentValue
	w.ThresholdValue = d.ThresholdValue
	w.DifferenceValue = d.DifferenceValue
	details := w.Details.Clone()
	for k, v := range d.Details {
		details[k] = v
	}
	delete(details, DetailConditionClearedAt)
	w.Details = details
	w.touch(now)
	return nil
}

// MarkConditionCleared stamps the first time the condition was seen to no
// longer hold. It returns false if the stamp was already present.
func (w *ActiveWarning) MarkConditionCleared(now time.Time) bool {
	if _, ok := w.Details.Time(DetailConditionClearedAt); ok {
		return false
	}
	details := w.Details.Clone()
	details[DetailConditionClearedAt] = now.UTC().Format(time.RFC3339)
	w.Details = details
	w.touch(now)
	return true
}

// ConditionClearedAt returns when the condition was first seen cleared.
func (w *ActiveWarning) ConditionClearedAt() (*time.Time, bool) {
	return w.Details.Time(DetailConditionClearedAt)
}

func (w *ActiveWarning) RecordNotified(now time.Time) {
	w.NotificationCount++
	w.LastNotifiedAt = &now
	w.touch(now)
}
