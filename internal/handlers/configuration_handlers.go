package handlers

import (
	"errors"
	"net/http"
	"strings"

	"warnengine/internal/common"
	"warnengine/internal/models"
	"warnengine/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ConfigurationHandlers manages per-agency overrides of warning definitions.
type ConfigurationHandlers struct {
	resolver services.ConfigResolver
}

func NewConfigurationHandlers(resolver services.ConfigResolver) *ConfigurationHandlers {
	return &ConfigurationHandlers{resolver: resolver}
}

// agencyScope is the caller's agency. Platform admins name one with ?agency_id=.
func agencyScope(c echo.Context, who caller) (uuid.UUID, error) {
	if who.isAdmin() {
		if raw := c.QueryParam("agency_id"); raw != "" {
			id, err := common.ValidateUUID(raw, "agency_id")
			if err != nil {
				return uuid.Nil, common.NewValidationError("agency_id", "%s", err.Error())
			}
			return id, nil
		}
	}
	if who.AgencyID == nil {
		return uuid.Nil, common.NewValidationError("agency_id", "agency_id is required")
	}
	return *who.AgencyID, nil
}

// ListConfigurations godoc
// @Summary  List the agency's overrides
// @Tags     configurations
// @Produce  json
// @Success  200 {object} map[string]interface{}
// @Router   /v1/warning-configurations [get]
func (h *ConfigurationHandlers) ListConfigurations(c echo.Context) error {
	who, ok := callerFrom(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	agencyID, err := agencyScope(c, who)
	if err != nil {
		return common.SendError(c, "warning configuration", err)
	}
	overrides, err := h.resolver.ListOverrides(c.Request().Context(), agencyID)
	if err != nil {
		return common.SendError(c, "warning configuration", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"configurations": overrides})
}

// GetConfiguration godoc
// @Summary  Get the effective configuration and stored override for a definition
// @Tags     configurations
// @Produce  json
// @Param    code path string true "definition code"
// @Success  200 {object} map[string]interface{}
// @Router   /v1/warning-configurations/{code} [get]
func (h *ConfigurationHandlers) GetConfiguration(c echo.Context) error {
	who, ok := callerFrom(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	agencyID, err := agencyScope(c, who)
	if err != nil {
		return common.SendError(c, "warning configuration", err)
	}
	ctx := c.Request().Context()
	code := strings.ToUpper(c.Param("code"))

	effective, err := h.resolver.Resolve(ctx, agencyID, code)
	if err != nil {
		return common.SendError(c, "warning definition", err)
	}
	override, err := h.resolver.Get(ctx, agencyID, code)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return common.SendError(c, "warning configuration", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"effective": effective,
		"override":  override,
	})
}

// PutConfiguration godoc
// @Summary  Create or replace the agency's override for a definition
// @Tags     configurations
// @Accept   json
// @Produce  json
// @Param    code path string                      true "definition code"
// @Param    body body models.WarningConfiguration true "override; version must match the stored row"
// @Success  200 {object} models.WarningConfiguration
// @Router   /v1/warning-configurations/{code} [put]
func (h *ConfigurationHandlers) PutConfiguration(c echo.Context) error {
	who, ok := callerFrom(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	agencyID, err := agencyScope(c, who)
	if err != nil {
		return common.SendError(c, "warning configuration", err)
	}

	var cfg models.WarningConfiguration
	if err := c.Bind(&cfg); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	cfg.AgencyID = agencyID
	cfg.DefinitionCode = strings.ToUpper(c.Param("code"))

	saved, err := h.resolver.Upsert(c.Request().Context(), &cfg, who.UserID)
	if err != nil {
		return common.SendError(c, "warning configuration", err)
	}
	return c.JSON(http.StatusOK, saved)
}
