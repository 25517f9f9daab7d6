package jobs

import (
	"context"
	"fmt"
	"time"

	"warnengine/internal/caching"
	"warnengine/internal/common"
	"warnengine/internal/models"
	"warnengine/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// firstActiveUser returns the longest-standing active user with role in the agency.
func firstActiveUser(ctx context.Context, signals repositories.SignalRepository, agencyID uuid.UUID, role models.TargetRole) (uuid.UUID, error) {
	users, err := signals.FindUsersByRole(ctx, agencyID, role)
	if err != nil {
		return uuid.Nil, err
	}
	for _, u := range users {
		if u.Active {
			return u.ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("no active %s in agency %s: %w", role, agencyID, common.ErrNotFound)
}

func acquireJobLock(ctx context.Context, cache caching.CacheService, name string, ttl time.Duration, logger *zap.Logger) (func(), bool) {
	noop := func() {}
	if cache == nil {
		return noop, true
	}
	release, ok, err := cache.AcquireLock(ctx, name, ttl)
	if err != nil {
		logger.Warn("job lock unavailable, running anyway", zap.String("lock", name), zap.Error(err))
		return noop, true
	}
	if !ok {
		logger.Debug("job already running elsewhere", zap.String("lock", name))
		return noop, false
	}
	return release, true
}
