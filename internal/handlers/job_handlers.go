package handlers

import (
	"net/http"

	"warnengine/internal/common"
	"warnengine/internal/jobs/background"

	"github.com/labstack/echo/v4"
)

// JobRunner is the part of the scheduler operators can drive over HTTP.
type JobRunner interface {
	Status() []background.JobInfo
	RunNow(name string) error
}

type JobHandlers struct {
	scheduler JobRunner
}

func NewJobHandlers(scheduler JobRunner) *JobHandlers {
	return &JobHandlers{scheduler: scheduler}
}

// ListJobs godoc
// @Summary  List background jobs with their last and next run
// @Tags     jobs
// @Produce  json
// @Success  200 {object} map[string]interface{}
// @Router   /v1/admin/jobs [get]
func (h *JobHandlers) ListJobs(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"jobs": h.scheduler.Status()})
}

// RunJob godoc
// @Summary  Trigger a background job now
// @Tags     jobs
// @Param    name path string true "job name"
// @Success  202 {object} map[string]string
// @Router   /v1/admin/jobs/{name}/run [post]
func (h *JobHandlers) RunJob(c echo.Context) error {
	name := c.Param("name")
	if err := h.scheduler.RunNow(name); err != nil {
		return common.SendNotFoundError(c, "job "+name)
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"message": "job triggered",
		"job":     name,
	})
}
