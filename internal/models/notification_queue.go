package models

import (
	"sort"
	"time"

	"warnengine/internal/common"

	"github.com/google/uuid"
)

const (
	DefaultQueuePriority       = 50
	DefaultMaxRetries          = 3
	DefaultRetryBackoffMinutes = 5
	UrgentExpiry               = 24 * time.Hour
	DefaultExpiry              = 168 * time.Hour

	StatusMessageCancelled  = "Cancelled"
	StatusMessageMaxRetries = "Max retries exceeded"
	StatusMessageExpired    = "Expired before delivery"
	StatusMessageSnoozed    = "Snoozed"
)

// NotificationQueue is one rendered message for one recipient on one channel.
type NotificationQueue struct {
	ID                  uuid.UUID           `json:"id" db:"id"`
	UserID              uuid.UUID           `json:"user_id" db:"user_id"`
	AgencyID            *uuid.UUID          `json:"agency_id,omitempty" db:"agency_id"`
	WarningID           *uuid.UUID          `json:"warning_id,omitempty" db:"warning_id"`
	LeadID              *uuid.UUID          `json:"lead_id,omitempty" db:"lead_id"`
	EntityType          *EntityType         `json:"entity_type,omitempty" db:"entity_type"`
	EntityID            *uuid.UUID          `json:"entity_id,omitempty" db:"entity_id"`
	Type                NotificationType    `json:"type" db:"notification_type"`
	Channel             NotificationChannel `json:"channel" db:"channel"`
	TemplateCode        string              `json:"template_code" db:"template_code"`
	Subject             string              `json:"subject" db:"subject"`
	Body                string              `json:"body" db:"body"`
	ShortBody           string              `json:"short_body" db:"short_body"`
	Status              NotificationStatus  `json:"status" db:"status"`
	StatusMessage       *string             `json:"status_message,omitempty" db:"status_message"`
	ScheduledFor        *time.Time          `json:"scheduled_for,omitempty" db:"scheduled_for"`
	SentAt              *time.Time          `json:"sent_at,omitempty" db:"sent_at"`
	DeliveredAt         *time.Time          `json:"delivered_at,omitempty" db:"delivered_at"`
	ReadAt              *time.Time          `json:"read_at,omitempty" db:"read_at"`
	ClickedAt           *time.Time          `json:"clicked_at,omitempty" db:"clicked_at"`
	RetryCount          int                 `json:"retry_count" db:"retry_count"`
	MaxRetries          int                 `json:"max_retries" db:"max_retries"`
	RetryBackoffMinutes int                 `json:"retry_backoff_minutes" db:"retry_backoff_minutes"`
	NextRetryAt         *time.Time          `json:"next_retry_at,omitempty" db:"next_retry_at"`
	Priority            int                 `json:"priority" db:"priority"`
	IsUrgent            bool                `json:"is_urgent" db:"is_urgent"`
	ExpiresAt           time.Time           `json:"expires_at" db:"expires_at"`
	ProviderName        *string             `json:"provider_name,omitempty" db:"provider_name"`
	ProviderMessageID   *string             `json:"provider_message_id,omitempty" db:"provider_message_id"`
	Metadata            JSONB               `json:"metadata" db:"metadata"`
	ClaimedBy           *string             `json:"-" db:"claimed_by"`
	ClaimedAt           *time.Time          `json:"-" db:"claimed_at"`
	ArchivedAt          *time.Time          `json:"-" db:"archived_at"`
	Version             int                 `json:"version" db:"version"`
	CreatedAt           time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at" db:"updated_at"`
}

// NewNotification returns a PENDING entry with default retry policy. Expiry
// is fixed at creation: 24h for urgent entries, 7 days otherwise.
func NewNotification(userID uuid.UUID, channel NotificationChannel, typ NotificationType, urgent bool, now time.Time) *NotificationQueue {
	ttl := DefaultExpiry
	if urgent {
		ttl = UrgentExpiry
	}
	return &NotificationQueue{
		ID:                  uuid.New(),
		UserID:              userID,
		Type:                typ,
		Channel:             channel,
		Status:              StatusPending,
		MaxRetries:          DefaultMaxRetries,
		RetryBackoffMinutes: DefaultRetryBackoffMinutes,
		Priority:            DefaultQueuePriority,
		IsUrgent:            urgent,
		ExpiresAt:           now.Add(ttl),
		Metadata:            JSONB{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func (n *NotificationQueue) illegal(action string) error {
	return &common.TransitionError{Entity: "notification", From: string(n.Status), Action: action}
}

func (n *NotificationQueue) release() {
	n.ClaimedBy = nil
	n.ClaimedAt = nil
}

func (n *NotificationQueue) setMessage(msg string) {
	n.StatusMessage = &msg
}

func (n *NotificationQueue) IsExpired(now time.Time) bool {
	return !n.ExpiresAt.After(now)
}

// IsDue reports whether the entry may be attempted at now.
func (n *NotificationQueue) IsDue(now time.Time) bool {
	if n.Status != StatusPending || n.IsExpired(now) {
		return false
	}
	if n.ScheduledFor != nil && n.ScheduledFor.After(now) {
		return false
	}
	if n.NextRetryAt != nil && n.NextRetryAt.After(now) {
		return false
	}
	return true
}

// MarkAsSent records a provider acceptance and clears retry state.
func (n *NotificationQueue) MarkAsSent(providerMessageID, provider string, now time.Time) error {
	if n.Status != StatusPending {
		return n.illegal("mark sent")
	}
	n.Status = StatusSent
	n.SentAt = &now
	n.ProviderMessageID = &providerMessageID
	n.ProviderName = &provider
	n.RetryCount = 0
	n.NextRetryAt = nil
	n.StatusMessage = nil
	n.release()
	n.UpdatedAt = now
	return nil
}

func (n *NotificationQueue) MarkDelivered(now time.Time) error {
	if n.Status != StatusSent {
		return n.illegal("mark delivered")
	}
	n.Status = StatusDelivered
	n.DeliveredAt = &now
	n.UpdatedAt = now
	return nil
}

func (n *NotificationQueue) MarkRead(now time.Time) error {
	switch n.Status {
	case StatusSent, StatusDelivered:
	case StatusRead:
		return nil
	default:
		return n.illegal("mark read")
	}
	n.Status = StatusRead
	n.ReadAt = &now
	n.UpdatedAt = now
	return nil
}

// MarkClicked implies read.
func (n *NotificationQueue) MarkClicked(now time.Time) error {
	if err := n.MarkRead(now); err != nil {
		return err
	}
	if n.ClickedAt == nil {
		n.ClickedAt = &now
	}
	n.UpdatedAt = now
	return nil
}

func (n *NotificationQueue) MarkBounced(reason string, now time.Time) error {
	if n.Status != StatusSent && n.Status != StatusDelivered {
		return n.illegal("mark bounced")
	}
	n.Status = StatusBounced
	n.setMessage(reason)
	n.UpdatedAt = now
	return nil
}

// MarkAsFailed is terminal.
func (n *NotificationQueue) MarkAsFailed(reason string, now time.Time) error {
	if n.Status != StatusPending {
		return n.illegal("mark failed")
	}
	n.Status = StatusFailed
	n.setMessage(reason)
	n.NextRetryAt = nil
	n.release()
	n.UpdatedAt = now
	return nil
}

// RetryDelay is the backoff before retry number attempt (1-based).
func (n *NotificationQueue) RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(n.RetryBackoffMinutes) * time.Minute * time.Duration(1<<uint(attempt-1))
}

// ScheduleRetry handles a failed attempt: it fails the entry for good once
// maxRetries is used up, and otherwise keeps it PENDING until the backoff passes.
func (n *NotificationQueue) ScheduleRetry(reason string, now time.Time) error {
	if n.Status != StatusPending {
		return n.illegal("retry")
	}
	if n.RetryCount >= n.MaxRetries {
		return n.MarkAsFailed(StatusMessageMaxRetries, now)
	}
	n.RetryCount++
	next := now.Add(n.RetryDelay(n.RetryCount))
	n.NextRetryAt = &next
	if reason != "" {
		n.setMessage(reason)
	}
	n.release()
	n.UpdatedAt = now
	return nil
}

// Cancel stops future attempts of an entry that has not been sent.
func (n *NotificationQueue) Cancel(now time.Time) error {
	if n.Status != StatusPending {
		return n.illegal("cancel")
	}
	return n.MarkAsFailed(StatusMessageCancelled, now)
}

// Expire moves an unsent entry past its deadline to EXPIRED.
func (n *NotificationQueue) Expire(now time.Time) error {
	if n.Status != StatusPending {
		return n.illegal("expire")
	}
	n.Status = StatusExpired
	n.setMessage(StatusMessageExpired)
	n.NextRetryAt = nil
	n.release()
	n.UpdatedAt = now
	return nil
}

// Withdraw retires an unsent entry whose subject no longer needs attention,
// such as a warning closed before delivery. It ends as EXPIRED, not FAILED.
func (n *NotificationQueue) Withdraw(reason string, now time.Time) error {
	if n.Status != StatusPending {
		return n.illegal("withdraw")
	}
	n.Status = StatusExpired
	n.setMessage(reason)
	n.NextRetryAt = nil
	n.release()
	n.UpdatedAt = now
	return nil
}

// Defer postpones an attempt without counting it as a failure.
func (n *NotificationQueue) Defer(until time.Time, reason string, now time.Time) error {
	if n.Status != StatusPending {
		return n.illegal("defer")
	}
	n.ScheduledFor = &until
	if reason != "" {
		n.setMessage(reason)
	}
	n.release()
	n.UpdatedAt = now
	return nil
}

// Retry resubmits a FAILED entry. It consumes one retry and is refused once
// the retry budget is spent or the entry has expired.
func (n *NotificationQueue) Retry(now time.Time) error {
	if n.Status != StatusFailed || n.RetryCount >= n.MaxRetries || n.IsExpired(now) {
		return n.illegal("retry")
	}
	n.Status = StatusPending
	n.RetryCount++
	n.NextRetryAt = nil
	n.ScheduledFor = nil
	n.setMessage("Manual retry")
	n.UpdatedAt = now
	return nil
}

// SortForDelivery orders entries by priority, then age.
func SortForDelivery(entries []*NotificationQueue) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority < entries[j].Priority
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}
