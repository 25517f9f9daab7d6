package services

import (
	"context"

	"warnengine/internal/common"
)

// maxCASAttempts bounds reload-and-retry loops around version-checked writes.
const maxCASAttempts = 3

// retryOnConflict runs fn until it succeeds, fails with a non-retryable error,
// or the attempts run out. The last stale error is returned in that case.
func retryOnConflict(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = fn()
		if !common.IsRetryable(err) {
			return err
		}
	}
	return err
}
