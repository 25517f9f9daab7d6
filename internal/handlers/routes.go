package handlers

import (
	"warnengine/internal/middleware"
	"warnengine/internal/models"

	"github.com/labstack/echo/v4"
)

// API bundles the handlers mounted under /v1.
type API struct {
	Warnings      *WarningHandlers
	Definitions   *DefinitionHandlers
	Configs       *ConfigurationHandlers
	Settings      *NotificationSettingsHandlers
	Notifications *NotificationHandlers
	Callbacks     *ProviderCallbackHandlers
	Jobs          *JobHandlers
}

// Register mounts the API. public is the unauthenticated v1 group; auth
// guards everything a user or operator calls.
func (a *API) Register(public *echo.Group, auth echo.MiddlewareFunc) {
	callbacks := public.Group("/provider-callbacks")
	callbacks.POST("/:id/delivered", a.Callbacks.Delivered)
	callbacks.POST("/:id/bounced", a.Callbacks.Bounced)

	warnings := public.Group("/warnings", auth)
	warnings.GET("", a.Warnings.ListWarnings)
	warnings.GET("/:id", a.Warnings.GetWarning)
	warnings.POST("/:id/acknowledge", a.Warnings.AcknowledgeWarning)
	warnings.POST("/:id/resolve", a.Warnings.ResolveWarning)
	warnings.POST("/:id/dismiss", a.Warnings.DismissWarning)
	warnings.POST("/:id/snooze", a.Warnings.SnoozeWarning)

	admin := middleware.RequireRole(models.RolePlatformAdmin)
	defs := public.Group("/warning-definitions", auth)
	defs.GET("", a.Definitions.ListDefinitions)
	defs.GET("/:code", a.Definitions.GetDefinition)
	defs.POST("", a.Definitions.CreateDefinition, admin)
	defs.PUT("/:code", a.Definitions.UpdateDefinition, admin)
	defs.DELETE("/:code", a.Definitions.DeleteDefinition, admin)

	configs := public.Group("/warning-configurations", auth, middleware.RequireAgency())
	configs.GET("", a.Configs.ListConfigurations)
	configs.GET("/:code", a.Configs.GetConfiguration)
	configs.PUT("/:code", a.Configs.PutConfiguration, middleware.RequireRole(models.RoleAgencyOwner))

	settings := public.Group("/notification-settings", auth)
	settings.GET("", a.Settings.GetSettings)
	settings.PUT("", a.Settings.UpdateSettings)
	settings.POST("/dnd", a.Settings.EnableDoNotDisturb)
	settings.DELETE("/dnd", a.Settings.DisableDoNotDisturb)
	settings.POST("/device-tokens", a.Settings.AddDeviceToken)
	settings.DELETE("/device-tokens/:token", a.Settings.RemoveDeviceToken)

	notifications := public.Group("/notifications", auth)
	notifications.GET("", a.Notifications.ListNotifications)
	notifications.POST("/:id/read", a.Notifications.MarkRead)
	notifications.POST("/:id/clicked", a.Notifications.MarkClicked)
	notifications.POST("/:id/cancel", a.Notifications.CancelNotification)
	notifications.POST("/:id/retry", a.Notifications.RetryNotification)

	if a.Jobs != nil {
		jobs := public.Group("/admin/jobs", auth, admin)
		jobs.GET("", a.Jobs.ListJobs)
		jobs.POST("/:name/run", a.Jobs.RunJob)
	}
}
