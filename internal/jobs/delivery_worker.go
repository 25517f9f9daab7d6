package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"warnengine/internal/common"
	"warnengine/internal/metrics"
	"warnengine/internal/models"
	"warnengine/internal/repositories"
	"warnengine/internal/services"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DeliveryOptions tunes one delivery worker.
type DeliveryOptions struct {
	WorkerID        string
	BatchSize       int
	SendTimeout     time.Duration
	ClaimStaleAfter time.Duration
	// ChannelRates caps sends per second per channel. Missing channels are unlimited.
	ChannelRates map[models.NotificationChannel]float64
	RateBurst    int
}

// DeliveryResult tallies the outcomes of one batch.
type DeliveryResult struct {
	Claimed    int
	Sent       int
	Retried    int
	Failed     int
	Deferred   int
	Suppressed int
	Withdrawn  int
	// LeaseLost counts entries another worker took over before the send.
	LeaseLost int
	// Released counts entries handed back unattempted when the batch ran long.
	Released int
	Expired  int64
}

// DeliveryWorker claims due queue entries and hands them to providers.
type DeliveryWorker struct {
	queue     repositories.NotificationQueueRepository
	warnings  repositories.ActiveWarningRepository
	settings  services.NotificationSettingsService
	gate      services.PreferenceGate
	providers *services.ProviderRegistry
	addresses services.AddressResolver
	opts      DeliveryOptions
	clock     clockwork.Clock
	logger    *zap.Logger

	mu       sync.Mutex
	limiters map[models.NotificationChannel]*rate.Limiter
}

func NewDeliveryWorker(
	queue repositories.NotificationQueueRepository,
	warnings repositories.ActiveWarningRepository,
	settings services.NotificationSettingsService,
	gate services.PreferenceGate,
	providers *services.ProviderRegistry,
	addresses services.AddressResolver,
	opts DeliveryOptions,
	clock clockwork.Clock,
	logger *zap.Logger,
) *DeliveryWorker {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}
	if opts.ClaimStaleAfter <= 0 {
		opts.ClaimStaleAfter = 5 * time.Minute
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 1
	}
	return &DeliveryWorker{
		queue:     queue,
		warnings:  warnings,
		settings:  settings,
		gate:      gate,
		providers: providers,
		addresses: addresses,
		opts:      opts,
		clock:     clock,
		logger:    logger.Named("delivery_worker").With(zap.String("worker_id", opts.WorkerID)),
		limiters:  make(map[models.NotificationChannel]*rate.Limiter),
	}
}

// ProcessBatch expires overdue entries, then claims and attempts one batch
// in priority order. Per-entry failures are recorded on the entry itself.
func (d *DeliveryWorker) ProcessBatch(ctx context.Context) (*DeliveryResult, error) {
	result := &DeliveryResult{}
	now := d.clock.Now()

	expired, err := d.queue.ExpireOverdue(ctx, now)
	if err != nil {
		d.logger.Warn("failed to expire overdue notifications", zap.Error(err))
	} else if expired > 0 {
		result.Expired = expired
		metrics.NotificationsProcessed.WithLabelValues("all", "expired").Add(float64(expired))
	}

	entries, err := d.queue.ClaimDue(ctx, d.opts.WorkerID, now, now.Add(-d.opts.ClaimStaleAfter), d.opts.BatchSize)
	if err != nil {
		return result, fmt.Errorf("claim due notifications: %w", err)
	}
	result.Claimed = len(entries)
	models.SortForDelivery(entries)

	deadline := now.Add(d.leaseBudget())
	for i, n := range entries {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if !d.clock.Now().Before(deadline) {
			result.Released = d.release(ctx, entries[i:])
			break
		}
		outcome, err := d.deliver(ctx, n)
		if err != nil {
			d.logger.Error("delivery attempt not recorded",
				zap.String("notification_id", n.ID.String()),
				zap.String("channel", string(n.Channel)),
				zap.Error(err),
			)
			continue
		}
		result.add(outcome)
		metrics.NotificationsProcessed.WithLabelValues(string(n.Channel), outcome).Inc()
	}
	return result, nil
}

const maxSaveAttempts = 3

const (
	outcomeExpired    = "expired"
	outcomeSent       = "sent"
	outcomeRetried    = "retried"
	outcomeFailed     = "failed"
	outcomeDeferred   = "deferred"
	outcomeSuppressed = "suppressed"
	outcomeWithdrawn  = "withdrawn"
	outcomeLeaseLost  = "lease_lost"
)

func (r *DeliveryResult) add(outcome string) {
	switch outcome {
	case outcomeSent:
		r.Sent++
	case outcomeRetried:
		r.Retried++
	case outcomeFailed:
		r.Failed++
	case outcomeDeferred:
		r.Deferred++
	case outcomeSuppressed:
		r.Suppressed++
	case outcomeWithdrawn:
		r.Withdrawn++
	case outcomeLeaseLost:
		r.LeaseLost++
	case outcomeExpired:
		r.Expired++
	}
}

func (d *DeliveryWorker) deliver(ctx context.Context, n *models.NotificationQueue) (string, error) {
	now := d.clock.Now()
	if n.IsExpired(now) {
		return outcomeExpired, d.save(ctx, n, func(n *models.NotificationQueue) error { return n.Expire(now) })
	}

	if n.WarningID != nil {
		if outcome, done, err := d.checkWarning(ctx, n, now); done {
			return outcome, err
		}
	}

	settings, err := d.settings.Get(ctx, n.UserID)
	if err != nil {
		return d.retry(ctx, n, fmt.Sprintf("load settings: %v", err))
	}

	// A refusal is never a failure: the entry waits, and ExpireOverdue ends it
	// if the recipient never becomes reachable.
	decision := d.gate.Evaluate(settings, n.Channel, n.Type, now)
	if err := decision.Err(); err != nil {
		outcome := outcomeDeferred
		if errors.Is(err, common.ErrSuppressed) {
			outcome = outcomeSuppressed
		}
		return outcome, d.save(ctx, n, func(n *models.NotificationQueue) error {
			return n.Defer(decision.NotBefore, decision.Reason, now)
		})
	}

	address, err := d.addresses.Resolve(ctx, n, settings)
	if errors.Is(err, services.ErrNoAddress) {
		return outcomeFailed, d.save(ctx, n, func(n *models.NotificationQueue) error {
			return n.MarkAsFailed(fmt.Sprintf("No %s address for recipient", n.Channel), now)
		})
	}
	if err != nil {
		return d.retry(ctx, n, fmt.Sprintf("resolve address: %v", err))
	}

	provider, err := d.providers.For(n.Channel)
	if err != nil {
		return outcomeFailed, d.save(ctx, n, func(n *models.NotificationQueue) error {
			return n.MarkAsFailed(err.Error(), now)
		})
	}

	if err := d.limiter(n.Channel).Wait(ctx); err != nil {
		return "", err
	}
	if err := d.renewLease(ctx, n); err != nil {
		if errors.Is(err, common.ErrStaleVersion) {
			d.logger.Info("lease taken over, skipping send", zap.String("notification_id", n.ID.String()))
			return outcomeLeaseLost, nil
		}
		return "", err
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
	start := d.clock.Now()
	messageID, sendErr := provider.Send(sendCtx, n.Channel, address, n.Subject, n.Body)
	cancel()
	metrics.SendDuration.WithLabelValues(string(n.Channel)).Observe(d.clock.Since(start).Seconds())
	if sendErr != nil {
		return d.retry(ctx, n, fmt.Sprintf("%s: %v", provider.Name(), sendErr))
	}

	sentAt := d.clock.Now()
	if err := d.save(ctx, n, func(n *models.NotificationQueue) error {
		return n.MarkAsSent(messageID, provider.Name(), sentAt)
	}); err != nil {
		return "", err
	}
	d.afterSend(ctx, n, settings, sentAt)
	return outcomeSent, nil
}

// checkWarning stops entries whose warning was closed or snoozed after the
// entry was composed. done reports that the entry has been dealt with.
func (d *DeliveryWorker) checkWarning(ctx context.Context, n *models.NotificationQueue, now time.Time) (string, bool, error) {
	w, err := d.warnings.GetByID(ctx, *n.WarningID)
	switch {
	case errors.Is(err, common.ErrNotFound):
		return outcomeWithdrawn, true, d.save(ctx, n, func(n *models.NotificationQueue) error {
			return n.Withdraw("Warning no longer exists", now)
		})
	case err != nil:
		outcome, err := d.retry(ctx, n, fmt.Sprintf("load warning: %v", err))
		return outcome, true, err
	case w.Status.IsTerminal():
		return outcomeWithdrawn, true, d.save(ctx, n, func(n *models.NotificationQueue) error {
			return n.Withdraw(fmt.Sprintf("Warning %s", w.Status), now)
		})
	case w.IsSnoozed(now):
		until := *w.SnoozedUntil
		return outcomeDeferred, true, d.save(ctx, n, func(n *models.NotificationQueue) error {
			return n.Defer(until, models.StatusMessageSnoozed, now)
		})
	}
	return "", false, nil
}

// renewLease re-stamps this worker's claim right before a send. Only the
// current holder at the current version can renew, so a lease that went
// stale and was reclaimed elsewhere is never sent on.
func (d *DeliveryWorker) renewLease(ctx context.Context, n *models.NotificationQueue) error {
	now := d.clock.Now()
	if err := d.queue.RenewClaim(ctx, n.ID, d.opts.WorkerID, now, n.Version); err != nil {
		return err
	}
	n.Version++
	n.ClaimedAt = &now
	return nil
}

// leaseBudget is how long a batch may keep attempting entries. It leaves a
// full send timeout of headroom before the claim can be taken over.
func (d *DeliveryWorker) leaseBudget() time.Duration {
	budget := d.opts.ClaimStaleAfter - d.opts.SendTimeout
	if budget <= 0 {
		budget = d.opts.ClaimStaleAfter / 2
	}
	return budget
}

func (d *DeliveryWorker) release(ctx context.Context, entries []*models.NotificationQueue) int {
	ids := make([]uuid.UUID, 0, len(entries))
	for _, n := range entries {
		ids = append(ids, n.ID)
	}
	released, err := d.queue.ReleaseClaims(ctx, d.opts.WorkerID, ids, d.clock.Now())
	if err != nil {
		d.logger.Warn("failed to release unattempted claims", zap.Int("count", len(ids)), zap.Error(err))
		return 0
	}
	d.logger.Info("batch ran past its lease budget, released remaining entries", zap.Int64("released", released))
	return int(released)
}

// afterSend does the bookkeeping that follows a successful send. Failures
// here are logged only: the message is already out.
func (d *DeliveryWorker) afterSend(ctx context.Context, n *models.NotificationQueue, settings *models.UserNotificationSettings, now time.Time) {
	if err := d.settings.RecordSent(ctx, settings); err != nil {
		d.logger.Warn("failed to bump daily counter", zap.String("user_id", n.UserID.String()), zap.Error(err))
	}
	if n.WarningID == nil {
		return
	}
	if err := d.warnings.RecordNotified(ctx, *n.WarningID, now); err != nil && !errors.Is(err, common.ErrNotFound) {
		d.logger.Warn("failed to record warning notification", zap.String("warning_id", n.WarningID.String()), zap.Error(err))
	}
}

func (d *DeliveryWorker) retry(ctx context.Context, n *models.NotificationQueue, reason string) (string, error) {
	now := d.clock.Now()
	if err := d.save(ctx, n, func(n *models.NotificationQueue) error { return n.ScheduleRetry(reason, now) }); err != nil {
		return "", err
	}
	if n.Status == models.StatusFailed {
		return outcomeFailed, nil
	}
	return outcomeRetried, nil
}

// save applies fn and writes the entry back with a version check. On a
// conflict the entry is reloaded and fn reapplied, as long as this worker
// still holds the lease.
func (d *DeliveryWorker) save(ctx context.Context, n *models.NotificationQueue, fn func(*models.NotificationQueue) error) error {
	current := n
	for attempt := 1; ; attempt++ {
		if err := fn(current); err != nil {
			return err
		}
		expected := current.Version
		current.Version++
		err := d.queue.Update(ctx, current, expected)
		if err == nil {
			if current != n {
				*n = *current
			}
			return nil
		}
		if !common.IsRetryable(err) || attempt == maxSaveAttempts {
			return err
		}
		reloaded, loadErr := d.queue.GetByID(ctx, n.ID)
		if loadErr != nil {
			return loadErr
		}
		if reloaded.ClaimedBy == nil || *reloaded.ClaimedBy != d.opts.WorkerID {
			return fmt.Errorf("lease on %s lost: %w", n.ID, common.ErrStaleVersion)
		}
		current = reloaded
	}
}

func (d *DeliveryWorker) limiter(channel models.NotificationChannel) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()
	if l, ok := d.limiters[channel]; ok {
		return l
	}
	limit := rate.Inf
	if perSecond, ok := d.opts.ChannelRates[channel]; ok && perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	l := rate.NewLimiter(limit, d.opts.RateBurst)
	d.limiters[channel] = l
	return l
}
