package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"warnengine/internal/common"
	"warnengine/internal/services"

	"github.com/labstack/echo/v4"
)

// SignatureHeader carries the hex HMAC-SHA256 of the callback body.
const SignatureHeader = "X-Relay-Signature"

// ProviderCallbackHandlers receives delivery receipts from the relay gateways.
type ProviderCallbackHandlers struct {
	notificationSvc services.NotificationService
	secret          string
}

func NewProviderCallbackHandlers(notificationSvc services.NotificationService, secret string) *ProviderCallbackHandlers {
	return &ProviderCallbackHandlers{
		notificationSvc: notificationSvc,
		secret:          secret,
	}
}

type bounceRequest struct {
	Reason string `json:"reason"`
}

// verifySignature checks the body against the shared relay key. An empty key
// disables the check.
func (h *ProviderCallbackHandlers) verifySignature(signature string, body []byte) bool {
	if h.secret == "" {
		return true
	}
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

func (h *ProviderCallbackHandlers) readVerified(c echo.Context) ([]byte, bool) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, false
	}
	c.Request().Body = io.NopCloser(bytes.NewReader(body))
	return body, h.verifySignature(c.Request().Header.Get(SignatureHeader), body)
}

// Delivered godoc
// @Summary  Provider receipt: message delivered
// @Tags     provider-callbacks
// @Param    id path string true "notification id"
// @Success  200 {object} models.NotificationQueue
// @Router   /v1/provider-callbacks/{id}/delivered [post]
func (h *ProviderCallbackHandlers) Delivered(c echo.Context) error {
	if _, ok := h.readVerified(c); !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return common.SendError(c, "notification", err)
	}
	n, err := h.notificationSvc.MarkDelivered(c.Request().Context(), id)
	if err != nil {
		return common.SendError(c, "notification", err)
	}
	return c.JSON(http.StatusOK, n)
}

// Bounced godoc
// @Summary  Provider receipt: message bounced
// @Tags     provider-callbacks
// @Accept   json
// @Param    id   path string        true  "notification id"
// @Param    body body bounceRequest false "bounce reason"
// @Success  200 {object} models.NotificationQueue
// @Router   /v1/provider-callbacks/{id}/bounced [post]
func (h *ProviderCallbackHandlers) Bounced(c echo.Context) error {
	body, ok := h.readVerified(c)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return common.SendError(c, "notification", err)
	}
	var req bounceRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return common.SendClientError(c, "Invalid request format")
		}
	}
	n, err := h.notificationSvc.MarkBounced(c.Request().Context(), id, req.Reason)
	if err != nil {
		return common.SendError(c, "notification", err)
	}
	return c.JSON(http.StatusOK, n)
}
