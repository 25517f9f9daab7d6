package handlers

import (
	"net/http"
	"strconv"

	"warnengine/internal/common"
	"warnengine/internal/models"
	"warnengine/internal/services"

	"github.com/labstack/echo/v4"
)

// NotificationHandlers serves the user inbox and operator actions on queue entries.
type NotificationHandlers struct {
	notificationSvc services.NotificationService
}

func NewNotificationHandlers(notificationSvc services.NotificationService) *NotificationHandlers {
	return &NotificationHandlers{notificationSvc: notificationSvc}
}

// ListNotifications godoc
// @Summary  List the caller's notifications
// @Tags     notifications
// @Produce  json
// @Param    channel     query string false "EMAIL, IN_APP, PUSH, SMS or WEBHOOK"
// @Param    unread_only query bool   false "only unread entries"
// @Param    limit       query int    false "page size"
// @Param    offset      query int    false "page offset"
// @Success  200 {object} map[string]interface{}
// @Router   /v1/notifications [get]
func (h *NotificationHandlers) ListNotifications(c echo.Context) error {
	who, ok := callerFrom(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var channel *models.NotificationChannel
	if raw := c.QueryParam("channel"); raw != "" {
		ch := models.NotificationChannel(raw)
		if !ch.Valid() {
			return common.SendValidationError(c, "channel", "unknown channel")
		}
		channel = &ch
	}
	unreadOnly, _ := strconv.ParseBool(c.QueryParam("unread_only"))
	limit, offset, err := pagination(c)
	if err != nil {
		return common.SendValidationError(c, "offset", err.Error())
	}

	ctx := c.Request().Context()
	entries, err := h.notificationSvc.ListForUser(ctx, who.UserID, channel, unreadOnly, limit, offset)
	if err != nil {
		return common.SendError(c, "notification", err)
	}
	unread, err := h.notificationSvc.CountUnread(ctx, who.UserID)
	if err != nil {
		return common.SendError(c, "notification", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"notifications": entries,
		"unread":        unread,
		"limit":         limit,
		"offset":        offset,
	})
}

// MarkRead godoc
// @Summary  Mark an inbox entry read
// @Tags     notifications
// @Param    id path string true "notification id"
// @Success  200 {object} models.NotificationQueue
// @Router   /v1/notifications/{id}/read [post]
func (h *NotificationHandlers) MarkRead(c echo.Context) error {
	who, ok := callerFrom(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return common.SendError(c, "notification", err)
	}
	n, err := h.notificationSvc.MarkRead(c.Request().Context(), who.UserID, id)
	if err != nil {
		return common.SendError(c, "notification", err)
	}
	return c.JSON(http.StatusOK, n)
}

// MarkClicked godoc
// @Summary  Record a click on a notification
// @Tags     notifications
// @Param    id path string true "notification id"
// @Success  200 {object} models.NotificationQueue
// @Router   /v1/notifications/{id}/clicked [post]
func (h *NotificationHandlers) MarkClicked(c echo.Context) error {
	who, ok := callerFrom(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return common.SendError(c, "notification", err)
	}
	n, err := h.notificationSvc.MarkClicked(c.Request().Context(), who.UserID, id)
	if err != nil {
		return common.SendError(c, "notification", err)
	}
	return c.JSON(http.StatusOK, n)
}

// CancelNotification godoc
// @Summary  Stop a pending notification
// @Tags     notifications
// @Param    id path string true "notification id"
// @Success  200 {object} models.NotificationQueue
// @Router   /v1/notifications/{id}/cancel [post]
func (h *NotificationHandlers) CancelNotification(c echo.Context) error {
	n, err := h.authorized(c)
	if err != nil {
		return common.SendError(c, "notification", err)
	}
	updated, err := h.notificationSvc.Cancel(c.Request().Context(), n.ID)
	if err != nil {
		return common.SendError(c, "notification", err)
	}
	return c.JSON(http.StatusOK, updated)
}

// RetryNotification godoc
// @Summary  Resubmit a failed notification
// @Tags     notifications
// @Param    id path string true "notification id"
// @Success  200 {object} models.NotificationQueue
// @Router   /v1/notifications/{id}/retry [post]
func (h *NotificationHandlers) RetryNotification(c echo.Context) error {
	n, err := h.authorized(c)
	if err != nil {
		return common.SendError(c, "notification", err)
	}
	updated, err := h.notificationSvc.Retry(c.Request().Context(), n.ID)
	if err != nil {
		return common.SendError(c, "notification", err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *NotificationHandlers) authorized(c echo.Context) (*models.NotificationQueue, error) {
	who, ok := callerFrom(c)
	if !ok {
		return nil, common.ErrForbidden
	}
	id, err := pathID(c, "id")
	if err != nil {
		return nil, err
	}
	n, err := h.notificationSvc.Get(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	if !canActOn(who, n.UserID, n.AgencyID) {
		return nil, common.ErrForbidden
	}
	return n, nil
}
