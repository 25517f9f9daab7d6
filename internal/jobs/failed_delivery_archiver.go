package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"warnengine/internal/models"
	"warnengine/internal/repositories"
	"warnengine/internal/services"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const archiveBatchSize = 200

// FailedDeliveryArchive is the object written for one archiving pass.
type FailedDeliveryArchive struct {
	WorkerID   string                      `json:"worker_id"`
	ArchivedAt string                      `json:"archived_at"`
	Count      int                         `json:"count"`
	Entries    []*models.NotificationQueue `json:"entries"`
}

// FailedDeliveryArchiver copies permanently failed queue entries to object
// storage so operators can inspect them after the queue is pruned.
type FailedDeliveryArchiver struct {
	queue    repositories.NotificationQueueRepository
	store    services.ArchiveStore
	workerID string
	clock    clockwork.Clock
	logger   *zap.Logger
}

func NewFailedDeliveryArchiver(queue repositories.NotificationQueueRepository, store services.ArchiveStore, workerID string, clock clockwork.Clock, logger *zap.Logger) *FailedDeliveryArchiver {
	return &FailedDeliveryArchiver{
		queue:    queue,
		store:    store,
		workerID: workerID,
		clock:    clock,
		logger:   logger.Named("failed_delivery_archiver"),
	}
}

// Run archives one batch and returns how many entries it covered. Entries
// are only marked archived after the object is stored.
func (a *FailedDeliveryArchiver) Run(ctx context.Context) (int, error) {
	entries, err := a.queue.ListFailedUnarchived(ctx, archiveBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list failed notifications: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	now := a.clock.Now().UTC()
	payload, err := json.Marshal(FailedDeliveryArchive{
		WorkerID:   a.workerID,
		ArchivedAt: now.Format(time.RFC3339),
		Count:      len(entries),
		Entries:    entries,
	})
	if err != nil {
		return 0, fmt.Errorf("encode archive: %w", err)
	}

	object := fmt.Sprintf("failed/%s/%s-%s.json", now.Format("2006/01/02"), now.Format("150405"), uuid.NewString())
	if err := a.store.Put(ctx, object, payload); err != nil {
		return 0, fmt.Errorf("store archive %s: %w", object, err)
	}

	ids := make([]uuid.UUID, len(entries))
	for i, n := range entries {
		ids[i] = n.ID
	}
	if err := a.queue.MarkArchived(ctx, ids, now); err != nil {
		// the next pass writes a second object for the same entries
		return 0, fmt.Errorf("mark archived: %w", err)
	}

	a.logger.Info("archived failed notifications", zap.Int("count", len(entries)), zap.String("object", object))
	return len(entries), nil
}
