package repositories

import (
	"context"
	"time"

	"warnengine/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type NotificationQueueRepository interface {
	Insert(ctx context.Context, n *models.NotificationQueue) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.NotificationQueue, error)
	Update(ctx context.Context, n *models.NotificationQueue, expectedVersion int) error
	// ClaimDue atomically leases up to limit due entries to workerID. Leases
	// older than staleBefore are treated as abandoned and may be taken over.
	ClaimDue(ctx context.Context, workerID string, now, staleBefore time.Time, limit int) ([]*models.NotificationQueue, error)
	// RenewClaim refreshes workerID's lease on one entry. It fails with
	// common.ErrStaleVersion when the lease has moved on.
	RenewClaim(ctx context.Context, id uuid.UUID, workerID string, now time.Time, expectedVersion int) error
	ReleaseClaims(ctx context.Context, workerID string, ids []uuid.UUID, now time.Time) (int64, error)
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
	ListForUser(ctx context.Context, userID uuid.UUID, channel *models.NotificationChannel, unreadOnly bool, limit, offset int) ([]*models.NotificationQueue, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	ListFailedUnarchived(ctx context.Context, limit int) ([]*models.NotificationQueue, error)
	MarkArchived(ctx context.Context, ids []uuid.UUID, now time.Time) error
}

const notificationColumns = `id, user_id, agency_id, warning_id, lead_id, entity_type, entity_id, notification_type, channel,
	template_code, subject, body, short_body, status, status_message, scheduled_for, sent_at, delivered_at, read_at,
	clicked_at, retry_count, max_retries, retry_backoff_minutes, next_retry_at, priority, is_urgent, expires_at,
	provider_name, provider_message_id, metadata, claimed_by, claimed_at, archived_at, version, created_at, updated_at`

type notificationQueueRepo struct {
	db DBTX
}

func NewNotificationQueueRepository(db DBTX) NotificationQueueRepository {
	return &notificationQueueRepo{db: db}
}

func scanNotification(row pgx.Row) (*models.NotificationQueue, error) {
	n := &models.NotificationQueue{}
	err := row.Scan(&n.ID, &n.UserID, &n.AgencyID, &n.WarningID, &n.LeadID, &n.EntityType, &n.EntityID, &n.Type, &n.Channel,
		&n.TemplateCode, &n.Subject, &n.Body, &n.ShortBody, &n.Status, &n.StatusMessage, &n.ScheduledFor, &n.SentAt, &n.DeliveredAt, &n.ReadAt,
		&n.ClickedAt, &n.RetryCount, &n.MaxRetries, &n.RetryBackoffMinutes, &n.NextRetryAt, &n.Priority, &n.IsUrgent, &n.ExpiresAt,
		&n.ProviderName, &n.ProviderMessageID, &n.Metadata, &n.ClaimedBy, &n.ClaimedAt, &n.ArchivedAt, &n.Version, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (r *notificationQueueRepo) queryNotifications(ctx context.Context, query string, args ...interface{}) ([]*models.NotificationQueue, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.NotificationQueue
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, n)
	}
	return entries, rows.Err()
}

func (r *notificationQueueRepo) Insert(ctx context.Context, n *models.NotificationQueue) error {
	query := `
		INSERT INTO notification_queue (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36)
	`
	_, err := r.db.Exec(ctx, query, n.ID, n.UserID, n.AgencyID, n.WarningID, n.LeadID, n.EntityType, n.EntityID, n.Type, n.Channel,
		n.TemplateCode, n.Subject, n.Body, n.ShortBody, n.Status, n.StatusMessage, n.ScheduledFor, n.SentAt, n.DeliveredAt, n.ReadAt,
		n.ClickedAt, n.RetryCount, n.MaxRetries, n.RetryBackoffMinutes, n.NextRetryAt, n.Priority, n.IsUrgent, n.ExpiresAt,
		n.ProviderName, n.ProviderMessageID, n.Metadata, n.ClaimedBy, n.ClaimedAt, n.ArchivedAt, n.Version, n.CreatedAt, n.UpdatedAt)
	return err
}

func (r *notificationQueueRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.NotificationQueue, error) {
	query := `SELECT ` + notificationColumns + ` FROM notification_queue WHERE id = $1`
	n, err := scanNotification(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return n, nil
}

func (r *notificationQueueRepo) Update(ctx context.Context, n *models.NotificationQueue, expectedVersion int) error {
	query := `
		UPDATE notification_queue
		SET status = $1, status_message = $2, scheduled_for = $3, sent_at = $4, delivered_at = $5, read_at = $6,
			clicked_at = $7, retry_count = $8, next_retry_at = $9, provider_name = $10, provider_message_id = $11,
			metadata = $12, claimed_by = $13, claimed_at = $14, version = $15, updated_at = $16
		WHERE id = $17 AND version = $18
	`
	return casResult(r.db.Exec(ctx, query, n.Status, n.StatusMessage, n.ScheduledFor, n.SentAt, n.DeliveredAt, n.ReadAt,
		n.ClickedAt, n.RetryCount, n.NextRetryAt, n.ProviderName, n.ProviderMessageID,
		n.Metadata, n.ClaimedBy, n.ClaimedAt, n.Version, n.UpdatedAt, n.ID, expectedVersion))
}

// ClaimDue leases rows with FOR UPDATE SKIP LOCKED so concurrent workers
// never receive the same entry. The lease bumps the version.
func (r *notificationQueueRepo) ClaimDue(ctx context.Context, workerID string, now, staleBefore time.Time, limit int) ([]*models.NotificationQueue, error) {
	query := `
		UPDATE notification_queue
		SET claimed_by = $1, claimed_at = $2, version = version + 1
		WHERE id IN (
			SELECT id FROM notification_queue
			WHERE status = 'PENDING'
				AND (scheduled_for IS NULL OR scheduled_for <= $2)
				AND (next_retry_at IS NULL OR next_retry_at <= $2)
				AND expires_at > $2
				AND (claimed_by IS NULL OR claimed_at < $3)
			ORDER BY priority ASC, created_at ASC
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + notificationColumns + `
	`
	entries, err := r.queryNotifications(ctx, query, workerID, now, staleBefore, limit)
	if err != nil {
		return nil, err
	}
	// RETURNING does not preserve the subquery order.
	models.SortForDelivery(entries)
	return entries, nil
}

func (r *notificationQueueRepo) RenewClaim(ctx context.Context, id uuid.UUID, workerID string, now time.Time, expectedVersion int) error {
	query := `
		UPDATE notification_queue
		SET claimed_at = $1, version = version + 1
		WHERE id = $2 AND claimed_by = $3 AND version = $4 AND status = 'PENDING'
	`
	return casResult(r.db.Exec(ctx, query, now, id, workerID, expectedVersion))
}

// ReleaseClaims hands unattempted entries back to the queue. Rows another
// worker has taken over are left alone.
func (r *notificationQueueRepo) ReleaseClaims(ctx context.Context, workerID string, ids []uuid.UUID, now time.Time) (int64, error) {
	query := `
		UPDATE notification_queue
		SET claimed_by = NULL, claimed_at = NULL, version = version + 1, updated_at = $1
		WHERE id = ANY($2) AND claimed_by = $3 AND status = 'PENDING'
	`
	tag, err := r.db.Exec(ctx, query, now, ids, workerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *notificationQueueRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE notification_queue
		SET status = 'EXPIRED', status_message = $1, next_retry_at = NULL, claimed_by = NULL, claimed_at = NULL,
			version = version + 1, updated_at = $2
		WHERE status = 'PENDING' AND expires_at <= $2
	`
	tag, err := r.db.Exec(ctx, query, models.StatusMessageExpired, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *notificationQueueRepo) ListForUser(ctx context.Context, userID uuid.UUID, channel *models.NotificationChannel, unreadOnly bool, limit, offset int) ([]*models.NotificationQueue, error) {
	query := `SELECT ` + notificationColumns + ` FROM notification_queue
		WHERE user_id = $1
			AND ($2::text IS NULL OR channel = $2)
			AND status IN ('SENT', 'DELIVERED', 'READ')
			AND (NOT $3 OR read_at IS NULL)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`
	return r.queryNotifications(ctx, query, userID, channel, unreadOnly, limit, offset)
}

func (r *notificationQueueRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM notification_queue
		WHERE user_id = $1 AND channel = 'IN_APP' AND status IN ('SENT', 'DELIVERED') AND read_at IS NULL`
	var count int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *notificationQueueRepo) ListFailedUnarchived(ctx context.Context, limit int) ([]*models.NotificationQueue, error) {
	query := `SELECT ` + notificationColumns + ` FROM notification_queue
		WHERE status IN ('FAILED', 'BOUNCED') AND archived_at IS NULL
		ORDER BY updated_at
		LIMIT $1`
	return r.queryNotifications(ctx, query, limit)
}

func (r *notificationQueueRepo) MarkArchived(ctx context.Context, ids []uuid.UUID, now time.Time) error {
	query := `UPDATE notification_queue SET archived_at = $1 WHERE id = ANY($2)`
	_, err := r.db.Exec(ctx, query, now, ids)
	return err
}
