package handlers

import (
	"net/http"

	"warnengine/internal/common"
	"warnengine/internal/models"
	"warnengine/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// WarningHandlers exposes a user's warnings and the actions they can take on them.
type WarningHandlers struct {
	warningService services.WarningService
}

func NewWarningHandlers(warningService services.WarningService) *WarningHandlers {
	return &WarningHandlers{warningService: warningService}
}

type resolveWarningRequest struct {
	ActionTaken string `json:"action_taken"`
	Notes       string `json:"notes"`
}

type dismissWarningRequest struct {
	Reason string `json:"reason"`
}

type snoozeWarningRequest struct {
	Hours int `json:"hours"`
}

// ListWarnings godoc
// @Summary  List the caller's warnings
// @Tags     warnings
// @Produce  json
// @Param    status query string false "ACTIVE, ACKNOWLEDGED, RESOLVED or DISMISSED"
// @Param    limit  query int    false "page size"
// @Param    offset query int    false "page offset"
// @Success  200 {object} map[string]interface{}
// @Router   /v1/warnings [get]
func (h *WarningHandlers) ListWarnings(c echo.Context) error {
	who, ok := callerFrom(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var status *models.WarningStatus
	if raw := c.QueryParam("status"); raw != "" {
		s := models.WarningStatus(raw)
		if !s.Valid() {
			return common.SendValidationError(c, "status", "unknown warning status")
		}
		status = &s
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return common.SendValidationError(c, "offset", err.Error())
	}

	warnings, err := h.warningService.ListForUser(c.Request().Context(), who.UserID, status, limit, offset)
	if err != nil {
		return common.SendError(c, "warning", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"warnings": warnings,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetWarning godoc
// @Summary  Get one warning
// @Tags     warnings
// @Produce  json
// @Param    id path string true "warning id"
// @Success  200 {object} models.ActiveWarning
// @Router   /v1/warnings/{id} [get]
func (h *WarningHandlers) GetWarning(c echo.Context) error {
	w, err := h.authorized(c)
	if err != nil {
		return common.SendError(c, "warning", err)
	}
	return c.JSON(http.StatusOK, w)
}

// AcknowledgeWarning godoc
// @Summary  Acknowledge a warning
// @Tags     warnings
// @Param    id path string true "warning id"
// @Success  200 {object} models.ActiveWarning
// @Router   /v1/warnings/{id}/acknowledge [post]
func (h *WarningHandlers) AcknowledgeWarning(c echo.Context) error {
	w, err := h.authorized(c)
	if err != nil {
		return common.SendError(c, "warning", err)
	}
	who, _ := callerFrom(c)
	updated, err := h.warningService.Acknowledge(c.Request().Context(), w.ID, who.UserID)
	if err != nil {
		return common.SendError(c, "warning", err)
	}
	return c.JSON(http.StatusOK, updated)
}

// ResolveWarning godoc
// @Summary  Resolve a warning
// @Tags     warnings
// @Accept   json
// @Param    id   path string                 true "warning id"
// @Param    body body resolveWarningRequest  true "resolution"
// @Success  200 {object} models.ActiveWarning
// @Router   /v1/warnings/{id}/resolve [post]
func (h *WarningHandlers) ResolveWarning(c echo.Context) error {
	var req resolveWarningRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	w, err := h.authorized(c)
	if err != nil {
		return common.SendError(c, "warning", err)
	}
	updated, err := h.warningService.Resolve(c.Request().Context(), w.ID, req.ActionTaken, req.Notes)
	if err != nil {
		return common.SendError(c, "warning", err)
	}
	return c.JSON(http.StatusOK, updated)
}

// DismissWarning godoc
// @Summary  Dismiss a warning
// @Tags     warnings
// @Accept   json
// @Param    id   path string                true "warning id"
// @Param    body body dismissWarningRequest true "reason"
// @Success  200 {object} models.ActiveWarning
// @Router   /v1/warnings/{id}/dismiss [post]
func (h *WarningHandlers) DismissWarning(c echo.Context) error {
	var req dismissWarningRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	w, err := h.authorized(c)
	if err != nil {
		return common.SendError(c, "warning", err)
	}
	updated, err := h.warningService.Dismiss(c.Request().Context(), w.ID, req.Reason)
	if err != nil {
		return common.SendError(c, "warning", err)
	}
	return c.JSON(http.StatusOK, updated)
}

// SnoozeWarning godoc
// @Summary  Snooze a warning
// @Tags     warnings
// @Accept   json
// @Param    id   path string               true "warning id"
// @Param    body body snoozeWarningRequest true "hours"
// @Success  200 {object} models.ActiveWarning
// @Router   /v1/warnings/{id}/snooze [post]
func (h *WarningHandlers) SnoozeWarning(c echo.Context) error {
	var req snoozeWarningRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	w, err := h.authorized(c)
	if err != nil {
		return common.SendError(c, "warning", err)
	}
	updated, err := h.warningService.Snooze(c.Request().Context(), w.ID, req.Hours)
	if err != nil {
		return common.SendError(c, "warning", err)
	}
	return c.JSON(http.StatusOK, updated)
}

// authorized loads the warning named in the path if the caller is its target
// or supervises its agency.
func (h *WarningHandlers) authorized(c echo.Context) (*models.ActiveWarning, error) {
	who, ok := callerFrom(c)
	if !ok {
		return nil, common.ErrForbidden
	}
	id, err := pathID(c, "id")
	if err != nil {
		return nil, err
	}
	w, err := h.warningService.Get(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	if !canActOn(who, w.TargetUserID, w.AgencyID) {
		return nil, common.ErrForbidden
	}
	return w, nil
}

func canActOn(who caller, owner uuid.UUID, agencyID *uuid.UUID) bool {
	return owner == who.UserID || who.supervises(agencyID)
}
