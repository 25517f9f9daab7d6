package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"warnengine/internal/common"
	"warnengine/internal/models"
	"warnengine/internal/services"

	"github.com/labstack/echo/v4"
)

// DefinitionHandlers manages the warning definition catalog. Writes are
// limited to platform administrators by the router.
type DefinitionHandlers struct {
	catalog services.DefinitionCatalog
}

func NewDefinitionHandlers(catalog services.DefinitionCatalog) *DefinitionHandlers {
	return &DefinitionHandlers{catalog: catalog}
}

// ListDefinitions godoc
// @Summary  List warning definitions
// @Tags     definitions
// @Produce  json
// @Param    include_disabled query bool false "include disabled definitions"
// @Success  200 {object} map[string]interface{}
// @Router   /v1/warning-definitions [get]
func (h *DefinitionHandlers) ListDefinitions(c echo.Context) error {
	includeDisabled, _ := strconv.ParseBool(c.QueryParam("include_disabled"))
	defs, err := h.catalog.List(c.Request().Context(), includeDisabled)
	if err != nil {
		return common.SendError(c, "warning definition", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"definitions": defs})
}

// GetDefinition godoc
// @Summary  Get a warning definition by code
// @Tags     definitions
// @Produce  json
// @Param    code path string true "definition code"
// @Success  200 {object} models.WarningDefinition
// @Router   /v1/warning-definitions/{code} [get]
func (h *DefinitionHandlers) GetDefinition(c echo.Context) error {
	def, err := h.catalog.Get(c.Request().Context(), strings.ToUpper(c.Param("code")))
	if err != nil {
		return common.SendError(c, "warning definition", err)
	}
	return c.JSON(http.StatusOK, def)
}

// CreateDefinition godoc
// @Summary  Create a warning definition
// @Tags     definitions
// @Accept   json
// @Produce  json
// @Param    body body models.WarningDefinition true "definition"
// @Success  201 {object} models.WarningDefinition
// @Router   /v1/warning-definitions [post]
func (h *DefinitionHandlers) CreateDefinition(c echo.Context) error {
	who, ok := callerFrom(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	var def models.WarningDefinition
	if err := c.Bind(&def); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	created, err := h.catalog.Create(c.Request().Context(), &def, &who.UserID)
	if err != nil {
		return common.SendError(c, "warning definition", err)
	}
	return c.JSON(http.StatusCreated, created)
}

// UpdateDefinition godoc
// @Summary  Update a warning definition
// @Tags     definitions
// @Accept   json
// @Produce  json
// @Param    code path string                           true "definition code"
// @Param    body body services.UpdateDefinitionRequest true "changed fields"
// @Success  200 {object} models.WarningDefinition
// @Router   /v1/warning-definitions/{code} [put]
func (h *DefinitionHandlers) UpdateDefinition(c echo.Context) error {
	var req services.UpdateDefinitionRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	updated, err := h.catalog.Update(c.Request().Context(), strings.ToUpper(c.Param("code")), &req)
	if err != nil {
		return common.SendError(c, "warning definition", err)
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteDefinition godoc
// @Summary  Delete a non-system warning definition
// @Tags     definitions
// @Param    code path string true "definition code"
// @Success  204
// @Router   /v1/warning-definitions/{code} [delete]
func (h *DefinitionHandlers) DeleteDefinition(c echo.Context) error {
	if err := h.catalog.Delete(c.Request().Context(), strings.ToUpper(c.Param("code"))); err != nil {
		return common.SendError(c, "warning definition", err)
	}
	return c.NoContent(http.StatusNoContent)
}
