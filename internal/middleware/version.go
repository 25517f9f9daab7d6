package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// APIVersion describes one version of the HTTP API.
type APIVersion struct {
	Version    string     `json:"version"`
	Status     string     `json:"status"` // active, deprecated or sunset
	SunsetDate *time.Time `json:"sunset_date,omitempty"`
}

type VersionMiddleware struct {
	supported map[string]APIVersion
}

func NewVersionMiddleware() *VersionMiddleware {
	return &VersionMiddleware{
		supported: map[string]APIVersion{
			"v1": {Version: "v1", Status: "active"},
		},
	}
}

// VersionRoute returns a group for version whose responses carry version headers.
func (vm *VersionMiddleware) VersionRoute(e *echo.Echo, version string, m ...echo.MiddlewareFunc) *echo.Group {
	group := e.Group("/"+version, m...)
	group.Use(vm.versionHeader(version))
	return group
}

func (vm *VersionMiddleware) versionHeader(version string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-API-Version", version)
			if v, ok := vm.supported[version]; ok && v.Status == "deprecated" && v.SunsetDate != nil {
				h.Set("X-API-Deprecated", "true")
				h.Set("X-API-Sunset", v.SunsetDate.Format(time.RFC3339))
			}
			return next(c)
		}
	}
}

// APIVersionResolver answers 404 for a /vN prefix that is not served.
func (vm *VersionMiddleware) APIVersionResolver() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			version := extractVersion(c.Request().URL.Path)
			if version == "" {
				return next(c)
			}
			if v, ok := vm.supported[version]; !ok || v.Status == "sunset" {
				return c.JSON(http.StatusNotFound, map[string]string{
					"error": "Unsupported API version",
				})
			}
			c.Set("api_version", version)
			return next(c)
		}
	}
}

// extractVersion returns "vN" for paths like /vN/...
func extractVersion(path string) string {
	if !strings.HasPrefix(path, "/v") {
		return ""
	}
	segment := strings.SplitN(path[1:], "/", 2)[0]
	n, err := strconv.Atoi(segment[1:])
	if err != nil || n <= 0 {
		return ""
	}
	return segment
}
