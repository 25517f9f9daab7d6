package handlers

import (
	"net/http"

	"warnengine/internal/common"
	"warnengine/internal/models"
	"warnengine/internal/services"

	"github.com/labstack/echo/v4"
)

// NotificationSettingsHandlers lets users manage their own delivery preferences.
type NotificationSettingsHandlers struct {
	settingsService services.NotificationSettingsService
}

func NewNotificationSettingsHandlers(settingsService services.NotificationSettingsService) *NotificationSettingsHandlers {
	return &NotificationSettingsHandlers{settingsService: settingsService}
}

type doNotDisturbRequest struct {
	Hours  int    `json:"hours"`
	Reason string `json:"reason"`
}

type deviceTokenRequest struct {
	Token string `json:"token"`
}

// GetSettings godoc
// @Summary  Get the caller's notification settings
// @Tags     notification-settings
// @Produce  json
// @Success  200 {object} models.UserNotificationSettings
// @Router   /v1/notification-settings [get]
func (h *NotificationSettingsHandlers) GetSettings(c echo.Context) error {
	who, ok := callerFrom(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	settings, err := h.settingsService.Get(c.Request().Context(), who.UserID)
	if err != nil {
		return common.SendError(c, "notification settings", err)
	}
	return c.JSON(http.StatusOK, settings)
}

// UpdateSettings godoc
// @Summary  Replace the caller's notification settings
// @Tags     notification-settings
// @Accept   json
// @Produce  json
// @Param    body body models.UserNotificationSettings true "settings; version must match the stored row"
// @Success  200 {object} models.UserNotificationSettings
// @Router   /v1/notification-settings [put]
func (h *NotificationSettingsHandlers) UpdateSettings(c echo.Context) error {
	who, ok := callerFrom(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	var settings models.UserNotificationSettings
	if err := c.Bind(&settings); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	settings.UserID = who.UserID

	saved, err := h.settingsService.Update(c.Request().Context(), &settings, who.UserID)
	if err != nil {
		return common.SendError(c, "notification settings", err)
	}
	return c.JSON(http.StatusOK, saved)
}

// EnableDoNotDisturb godoc
// @Summary  Pause non-urgent delivery for a number of hours
// @Tags     notification-settings
// @Accept   json
// @Param    body body doNotDisturbRequest true "duration"
// @Success  200 {object} models.UserNotificationSettings
// @Router   /v1/notification-settings/dnd [post]
func (h *NotificationSettingsHandlers) EnableDoNotDisturb(c echo.Context) error {
	who, ok := callerFrom(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	var req doNotDisturbRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	saved, err := h.settingsService.EnableDoNotDisturb(c.Request().Context(), who.UserID, req.Hours, req.Reason)
	if err != nil {
		return common.SendError(c, "notification settings", err)
	}
	return c.JSON(http.StatusOK, saved)
}

// DisableDoNotDisturb godoc
// @Summary  End do-not-disturb
// @Tags     notification-settings
// @Success  200 {object} models.UserNotificationSettings
// @Router   /v1/notification-settings/dnd [delete]
func (h *NotificationSettingsHandlers) DisableDoNotDisturb(c echo.Context) error {
	who, ok := callerFrom(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	saved, err := h.settingsService.DisableDoNotDisturb(c.Request().Context(), who.UserID)
	if err != nil {
		return common.SendError(c, "notification settings", err)
	}
	return c.JSON(http.StatusOK, saved)
}

// AddDeviceToken godoc
// @Summary  Register a push device token
// @Tags     notification-settings
// @Accept   json
// @Param    body body deviceTokenRequest true "token"
// @Success  200 {object} models.UserNotificationSettings
// @Router   /v1/notification-settings/device-tokens [post]
func (h *NotificationSettingsHandlers) AddDeviceToken(c echo.Context) error {
	who, ok := callerFrom(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	var req deviceTokenRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	saved, err := h.settingsService.AddDeviceToken(c.Request().Context(), who.UserID, req.Token)
	if err != nil {
		return common.SendError(c, "notification settings", err)
	}
	return c.JSON(http.StatusOK, saved)
}

// RemoveDeviceToken godoc
// @Summary  Forget a push device token
// @Tags     notification-settings
// @Param    token path string true "device token"
// @Success  200 {object} models.UserNotificationSettings
// @Router   /v1/notification-settings/device-tokens/{token} [delete]
func (h *NotificationSettingsHandlers) RemoveDeviceToken(c echo.Context) error {
	who, ok := callerFrom(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	saved, err := h.settingsService.RemoveDeviceToken(c.Request().Context(), who.UserID, c.Param("token"))
	if err != nil {
		return common.SendError(c, "notification settings", err)
	}
	return c.JSON(http.StatusOK, saved)
}
