package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"warnengine/internal/common"
	"warnengine/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const callbackSecret = "relay-shared-key"

// testAuth trusts identity headers in place of a signed token.
func testAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Request().Header
		userID, err := uuid.Parse(h.Get("X-Test-User"))
		if err != nil {
			return common.SendUnauthorizedError(c)
		}
		var agencyID *uuid.UUID
		if raw := h.Get("X-Test-Agency"); raw != "" {
			id := uuid.MustParse(raw)
			agencyID = &id
		}
		ctx := common.WithIdentity(c.Request().Context(), userID, agencyID, h.Get("X-Test-Role"))
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

type identity struct {
	userID   uuid.UUID
	agencyID uuid.UUID
	role     models.TargetRole
}

type HandlersTestSuite struct {
	suite.Suite
	warnings      *MockWarningService
	notifications *MockNotificationService
	resolver      *MockConfigResolver
	e             *echo.Echo
	agencyID      uuid.UUID
	agent         identity
	otherAgent    identity
	superAgent    identity
	owner         identity
}

func (suite *HandlersTestSuite) SetupTest() {
	suite.warnings = &MockWarningService{}
	suite.notifications = &MockNotificationService{}
	suite.resolver = &MockConfigResolver{}

	api := &API{
		Warnings:      NewWarningHandlers(suite.warnings),
		Definitions:   NewDefinitionHandlers(nil),
		Configs:       NewConfigurationHandlers(suite.resolver),
		Settings:      NewNotificationSettingsHandlers(nil),
		Notifications: NewNotificationHandlers(suite.notifications),
		Callbacks:     NewProviderCallbackHandlers(suite.notifications, callbackSecret),
	}
	suite.e = echo.New()
	api.Register(suite.e.Group("/v1"), testAuth)

	suite.agencyID = uuid.New()
	suite.agent = identity{uuid.New(), suite.agencyID, models.RoleAgent}
	suite.otherAgent = identity{uuid.New(), suite.agencyID, models.RoleAgent}
	suite.superAgent = identity{uuid.New(), suite.agencyID, models.RoleSuperAgent}
	suite.owner = identity{uuid.New(), suite.agencyID, models.RoleAgencyOwner}
}

func (suite *HandlersTestSuite) TearDownTest() {
	suite.warnings.AssertExpectations(suite.T())
	suite.notifications.AssertExpectations(suite.T())
	suite.resolver.AssertExpectations(suite.T())
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func (suite *HandlersTestSuite) do(method, path, body string, who *identity) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if who != nil {
		req.Header.Set("X-Test-User", who.userID.String())
		req.Header.Set("X-Test-Agency", who.agencyID.String())
		req.Header.Set("X-Test-Role", string(who.role))
	}
	rec := httptest.NewRecorder()
	suite.e.ServeHTTP(rec, req)
	return rec
}

func (suite *HandlersTestSuite) warningFor(target uuid.UUID) *models.ActiveWarning {
	agencyID := suite.agencyID
	w := models.NewActiveWarning(models.Detection{
		DefinitionCode: "LEAD_UNANSWERED",
		AgencyID:       &agencyID,
		TargetUserID:   target,
		EntityType:     models.EntityLead,
		EntityID:       uuid.New(),
	}, time.Now())
	w.Version = 1
	return w
}

func (suite *HandlersTestSuite) TestListWarnings_FiltersByStatus() {
	status := models.WarningActive
	suite.warnings.On("ListForUser", mock.Anything, suite.agent.userID, &status, 50, 0).
		Return([]*models.ActiveWarning{suite.warningFor(suite.agent.userID)}, nil)

	rec := suite.do(http.MethodGet, "/v1/warnings?status=ACTIVE", "", &suite.agent)

	suite.Equal(http.StatusOK, rec.Code)
	suite.Contains(rec.Body.String(), "LEAD_UNANSWERED")
}

func (suite *HandlersTestSuite) TestListWarnings_RejectsUnknownStatus() {
	rec := suite.do(http.MethodGet, "/v1/warnings?status=PENDING", "", &suite.agent)

	suite.Equal(http.StatusBadRequest, rec.Code)
	suite.Contains(rec.Body.String(), "VALIDATION_ERROR")
}

func (suite *HandlersTestSuite) TestWarnings_RequireAuthentication() {
	rec := suite.do(http.MethodGet, "/v1/warnings", "", nil)

	suite.Equal(http.StatusUnauthorized, rec.Code)
}

func (suite *HandlersTestSuite) TestAcknowledge_OwnWarning() {
	w := suite.warningFor(suite.agent.userID)
	acked := *w
	acked.Status = models.WarningAcknowledged
	suite.warnings.On("Get", mock.Anything, w.ID).Return(w, nil)
	suite.warnings.On("Acknowledge", mock.Anything, w.ID, suite.agent.userID).Return(&acked, nil)

	rec := suite.do(http.MethodPost, "/v1/warnings/"+w.ID.String()+"/acknowledge", "", &suite.agent)

	suite.Equal(http.StatusOK, rec.Code)
	suite.Contains(rec.Body.String(), `"status":"ACKNOWLEDGED"`)
}

func (suite *HandlersTestSuite) TestAcknowledge_SomeoneElsesWarningIsForbidden() {
	w := suite.warningFor(suite.otherAgent.userID)
	suite.warnings.On("Get", mock.Anything, w.ID).Return(w, nil)

	rec := suite.do(http.MethodPost, "/v1/warnings/"+w.ID.String()+"/acknowledge", "", &suite.agent)

	suite.Equal(http.StatusForbidden, rec.Code)
	suite.warnings.AssertNotCalled(suite.T(), "Acknowledge", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *HandlersTestSuite) TestAcknowledge_SupervisorInSameAgency() {
	w := suite.warningFor(suite.agent.userID)
	suite.warnings.On("Get", mock.Anything, w.ID).Return(w, nil)
	suite.warnings.On("Acknowledge", mock.Anything, w.ID, suite.superAgent.userID).Return(w, nil)

	rec := suite.do(http.MethodPost, "/v1/warnings/"+w.ID.String()+"/acknowledge", "", &suite.superAgent)

	suite.Equal(http.StatusOK, rec.Code)
}

func (suite *HandlersTestSuite) TestResolve_TerminalWarningConflicts() {
	w := suite.warningFor(suite.agent.userID)
	suite.warnings.On("Get", mock.Anything, w.ID).Return(w, nil)
	suite.warnings.On("Resolve", mock.Anything, w.ID, "called back", "").
		Return(nil, &common.TransitionError{Entity: "warning", From: "DISMISSED", Action: "resolve"})

	rec := suite.do(http.MethodPost, "/v1/warnings/"+w.ID.String()+"/resolve", `{"action_taken":"called back"}`, &suite.agent)

	suite.Equal(http.StatusConflict, rec.Code)
	suite.Contains(rec.Body.String(), "cannot resolve warning in status DISMISSED")
}

func (suite *HandlersTestSuite) TestSnooze_PolicyViolationIsBadRequest() {
	w := suite.warningFor(suite.agent.userID)
	suite.warnings.On("Get", mock.Anything, w.ID).Return(w, nil)
	suite.warnings.On("Snooze", mock.Anything, w.ID, 200).
		Return(nil, common.NewValidationError("hours", "cannot exceed %d", 24))

	rec := suite.do(http.MethodPost, "/v1/warnings/"+w.ID.String()+"/snooze", `{"hours":200}`, &suite.agent)

	suite.Equal(http.StatusBadRequest, rec.Code)
	suite.Contains(rec.Body.String(), "cannot exceed 24")
}

func (suite *HandlersTestSuite) TestGetWarning_NotFound() {
	id := uuid.New()
	suite.warnings.On("Get", mock.Anything, id).Return(nil, common.ErrNotFound)

	rec := suite.do(http.MethodGet, "/v1/warnings/"+id.String(), "", &suite.agent)

	suite.Equal(http.StatusNotFound, rec.Code)
}

func (suite *HandlersTestSuite) TestGetWarning_MalformedID() {
	rec := suite.do(http.MethodGet, "/v1/warnings/not-a-uuid", "", &suite.agent)

	suite.Equal(http.StatusBadRequest, rec.Code)
}

func (suite *HandlersTestSuite) TestPutConfiguration_AgentIsForbidden() {
	rec := suite.do(http.MethodPut, "/v1/warning-configurations/lead_unanswered", `{"is_enabled":false}`, &suite.agent)

	suite.Equal(http.StatusForbidden, rec.Code)
}

func (suite *HandlersTestSuite) TestPutConfiguration_ScopesToCallerAgency() {
	saved := models.NewWarningConfiguration(suite.agencyID, "LEAD_UNANSWERED", time.Now())
	suite.resolver.On("Upsert", mock.Anything, mock.MatchedBy(func(cfg *models.WarningConfiguration) bool {
		return cfg.AgencyID == suite.agencyID && cfg.DefinitionCode == "LEAD_UNANSWERED" && !cfg.IsEnabled
	}), suite.owner.userID).Return(saved, nil)

	body := `{"agency_id":"` + uuid.NewString() + `","is_enabled":false}`
	rec := suite.do(http.MethodPut, "/v1/warning-configurations/lead_unanswered", body, &suite.owner)

	suite.Equal(http.StatusOK, rec.Code)
}

func (suite *HandlersTestSuite) TestPutConfiguration_StaleVersionConflicts() {
	suite.resolver.On("Upsert", mock.Anything, mock.Anything, suite.owner.userID).Return(nil, common.ErrStaleVersion)

	rec := suite.do(http.MethodPut, "/v1/warning-configurations/LEAD_UNANSWERED", `{"version":3}`, &suite.owner)

	suite.Equal(http.StatusConflict, rec.Code)
}

func (suite *HandlersTestSuite) TestRetryNotification_OtherUsersEntryIsForbidden() {
	n := models.NewNotification(suite.otherAgent.userID, models.ChannelEmail, models.TypeWarning, false, time.Now())
	suite.notifications.On("Get", mock.Anything, n.ID).Return(n, nil)

	rec := suite.do(http.MethodPost, "/v1/notifications/"+n.ID.String()+"/retry", "", &suite.agent)

	suite.Equal(http.StatusForbidden, rec.Code)
}

func (suite *HandlersTestSuite) TestListNotifications_IncludesUnreadCount() {
	channel := models.ChannelInApp
	suite.notifications.On("ListForUser", mock.Anything, suite.agent.userID, &channel, true, 20, 40).
		Return([]*models.NotificationQueue{}, nil)
	suite.notifications.On("CountUnread", mock.Anything, suite.agent.userID).Return(7, nil)

	rec := suite.do(http.MethodGet, "/v1/notifications?channel=IN_APP&unread_only=true&limit=20&offset=40", "", &suite.agent)

	suite.Equal(http.StatusOK, rec.Code)
	suite.Contains(rec.Body.String(), `"unread":7`)
}

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(callbackSecret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func (suite *HandlersTestSuite) callback(path, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(SignatureHeader, signature)
	rec := httptest.NewRecorder()
	suite.e.ServeHTTP(rec, req)
	return rec
}

func (suite *HandlersTestSuite) TestProviderCallback_RejectsBadSignature() {
	id := uuid.New()

	rec := suite.callback("/v1/provider-callbacks/"+id.String()+"/delivered", "{}", "deadbeef")

	suite.Equal(http.StatusUnauthorized, rec.Code)
}

func (suite *HandlersTestSuite) TestProviderCallback_Delivered() {
	n := models.NewNotification(suite.agent.userID, models.ChannelEmail, models.TypeWarning, false, time.Now())
	suite.notifications.On("MarkDelivered", mock.Anything, n.ID).Return(n, nil)

	rec := suite.callback("/v1/provider-callbacks/"+n.ID.String()+"/delivered", "", sign(""))

	suite.Equal(http.StatusOK, rec.Code)
}

func (suite *HandlersTestSuite) TestProviderCallback_BouncedCarriesReason() {
	n := models.NewNotification(suite.agent.userID, models.ChannelEmail, models.TypeWarning, false, time.Now())
	body := `{"reason":"mailbox full"}`
	suite.notifications.On("MarkBounced", mock.Anything, n.ID, "mailbox full").Return(n, nil)

	rec := suite.callback("/v1/provider-callbacks/"+n.ID.String()+"/bounced", body, sign(body))

	suite.Equal(http.StatusOK, rec.Code)
}
