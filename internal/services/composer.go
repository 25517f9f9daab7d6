package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warnengine/internal/models"
	"warnengine/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Composer turns a warning into queue entries, one per recipient and channel.
type Composer interface {
	Compose(ctx context.Context, w *models.ActiveWarning, ec *models.EffectiveConfig, recipients []uuid.UUID, metadata models.JSONB) ([]*models.NotificationQueue, error)
}

type composer struct {
	queue     repositories.NotificationQueueRepository
	settings  NotificationSettingsService
	renderer  TemplateRenderer
	clock     clockwork.Clock
	agencyLoc *time.Location
	logger    *zap.Logger
}

// NewComposer evaluates agency quiet hours in agencyLoc.
func NewComposer(queue repositories.NotificationQueueRepository, settings NotificationSettingsService, renderer TemplateRenderer, clock clockwork.Clock, agencyLoc *time.Location, logger *zap.Logger) Composer {
	if agencyLoc == nil {
		agencyLoc = time.UTC
	}
	return &composer{
		queue:     queue,
		settings:  settings,
		renderer:  renderer,
		clock:     clock,
		agencyLoc: agencyLoc,
		logger:    logger.Named("composer"),
	}
}

func (c *composer) Compose(ctx context.Context, w *models.ActiveWarning, ec *models.EffectiveConfig, recipients []uuid.UUID, metadata models.JSONB) ([]*models.NotificationQueue, error) {
	now := c.clock.Now()
	if w.Status.IsTerminal() || w.IsSnoozed(now) || !ec.Enabled {
		return nil, nil
	}

	var scheduledFor *time.Time
	if !ec.NotificationAllowed(now.In(c.agencyLoc)) {
		next := ec.NextNotificationWindow(now.In(c.agencyLoc))
		scheduledFor = &next
	}

	data := TemplateData{
		Code:            w.DefinitionCode,
		Title:           ec.Definition.Title,
		Severity:        ec.Severity,
		Message:         ec.Message,
		Action:          ec.Action,
		EntityType:      w.EntityType,
		EntityID:        w.EntityID.String(),
		CurrentValue:    w.CurrentValue,
		ThresholdValue:  w.ThresholdValue,
		DifferenceValue: w.DifferenceValue,
		Unit:            ec.ThresholdUnit,
		Escalated:       metadata.Bool("escalated"),
		Details:         w.Details,
	}

	var (
		created []*models.NotificationQueue
		errs    []error
	)
	for _, userID := range recipients {
		prefs, err := c.settings.Get(ctx, userID)
		if err != nil {
			errs = append(errs, fmt.Errorf("settings for %s: %w", userID, err))
			continue
		}
		if !prefs.TypeEnabled(models.TypeWarning) || !prefs.SeverityAllowed(ec.Severity) {
			continue
		}

		for _, channel := range ec.Channels {
			if !prefs.ChannelEnabled(channel) {
				continue
			}
			entry, err := c.build(w, ec, userID, channel, data, metadata, scheduledFor, now)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if err := c.queue.Insert(ctx, entry); err != nil {
				errs = append(errs, fmt.Errorf("enqueue %s for %s: %w", channel, userID, err))
				continue
			}
			created = append(created, entry)
		}
	}

	if len(created) > 0 {
		c.logger.Debug("notifications composed",
			zap.String("warning_id", w.ID.String()),
			zap.Int("entries", len(created)),
		)
	}
	return created, errors.Join(errs...)
}

func (c *composer) build(w *models.ActiveWarning, ec *models.EffectiveConfig, userID uuid.UUID, channel models.NotificationChannel, data TemplateData, metadata models.JSONB, scheduledFor *time.Time, now time.Time) (*models.NotificationQueue, error) {
	msg, err := c.renderer.Render(ec.Definition, channel, data)
	if err != nil {
		return nil, err
	}

	n := models.NewNotification(userID, channel, models.TypeWarning, ec.Severity.IsUrgent(), now)
	n.AgencyID = w.AgencyID
	warningID := w.ID
	n.WarningID = &warningID
	entityType := w.EntityType
	entityID := w.EntityID
	n.EntityType = &entityType
	n.EntityID = &entityID
	if w.EntityType == models.EntityLead {
		n.LeadID = &entityID
	}
	n.TemplateCode = ec.Definition.CacheKey()
	n.Subject = msg.Subject
	n.Body = msg.Body
	n.ShortBody = msg.ShortBody
	n.Priority = ec.QueuePriority()
	n.ScheduledFor = scheduledFor

	meta := metadata.Clone()
	meta["definition_code"] = w.DefinitionCode
	meta["severity"] = string(ec.Severity)
	n.Metadata = meta
	return n, nil
}
