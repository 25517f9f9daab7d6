package handlers

import (
	"strconv"

	"warnengine/internal/common"
	"warnengine/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// caller is the authenticated identity behind a request.
type caller struct {
	UserID   uuid.UUID
	AgencyID *uuid.UUID
	Role     models.TargetRole
}

func callerFrom(c echo.Context) (caller, bool) {
	ctx := c.Request().Context()
	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return caller{}, false
	}
	role, _ := common.GetRoleFromContext(ctx)
	out := caller{UserID: userID, Role: models.TargetRole(role)}
	if agencyID, ok := common.GetAgencyIDFromContext(ctx); ok {
		out.AgencyID = &agencyID
	}
	return out, true
}

func (c caller) isAdmin() bool { return c.Role == models.RolePlatformAdmin }

// supervises reports whether the caller may act on items owned by others in agencyID.
func (c caller) supervises(agencyID *uuid.UUID) bool {
	if c.isAdmin() {
		return true
	}
	if c.Role.Rank() < models.RoleSuperAgent.Rank() || c.AgencyID == nil || agencyID == nil {
		return false
	}
	return *c.AgencyID == *agencyID
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := common.ValidateUUID(c.Param(name), name)
	if err != nil {
		return uuid.Nil, common.NewValidationError(name, "%s", err.Error())
	}
	return id, nil
}

func pagination(c echo.Context) (int, int, error) {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	return common.ValidatePaginationParams(limit, offset)
}
