package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"warnengine/internal/common"
	"warnengine/internal/metrics"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuditMiddleware logs every request with the caller identity and records
// request metrics. Mutating requests are logged at info, reads at debug.
type AuditMiddleware struct {
	logger *zap.Logger
}

func NewAuditMiddleware(logger *zap.Logger) *AuditMiddleware {
	return &AuditMiddleware{logger: logger.Named("http")}
}

func (m *AuditMiddleware) AuditRequest() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let echo write the response so the status below is final
				c.Error(err)
			}

			req := c.Request()
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			status := c.Response().Status
			elapsed := time.Since(start)

			metrics.RequestCount.WithLabelValues(path, req.Method, strconv.Itoa(status)).Inc()
			metrics.RequestDuration.WithLabelValues(path, req.Method).Observe(elapsed.Seconds())

			if shouldSkipLogging(req.Method, path) {
				return nil
			}

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", path),
				zap.Int("status", status),
				zap.Duration("latency", elapsed),
				zap.String("ip", c.RealIP()),
			}
			ctx := req.Context()
			if userID, ok := common.GetUserIDFromContext(ctx); ok {
				fields = append(fields, zap.String("user_id", userID.String()))
			}
			if agencyID, ok := common.GetAgencyIDFromContext(ctx); ok {
				fields = append(fields, zap.String("agency_id", agencyID.String()))
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}

			switch {
			case status >= http.StatusInternalServerError:
				m.logger.Error("request failed", fields...)
			case isMutation(req.Method):
				m.logger.Info("request", fields...)
			default:
				m.logger.Debug("request", fields...)
			}
			return nil
		}
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// shouldSkipLogging drops probe and tooling noise.
func shouldSkipLogging(method, path string) bool {
	if method != http.MethodGet {
		return false
	}
	for _, prefix := range []string{"/health", "/metrics", "/swagger"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
