package middleware

import (
	"errors"
	"fmt"
	"time"

	"warnengine/internal/common"
	"warnengine/internal/config"
	"warnengine/internal/models"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Claims carries the caller identity issued by the platform's auth service.
// Subject holds the user id.
type Claims struct {
	AgencyID string `json:"agency_id,omitempty"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator verifies bearer tokens against a shared HMAC secret or a
// JWKS endpoint. JWKS wins when both are configured.
type Authenticator struct {
	secret []byte
	jwks   *keyfunc.JWKS
	logger *zap.Logger
}

func NewAuthenticator(cfg config.JWTConfig, logger *zap.Logger) (*Authenticator, error) {
	a := &Authenticator{logger: logger.Named("auth")}
	switch {
	case cfg.JWKSURL != "":
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  5 * time.Minute,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				a.logger.Warn("jwks refresh failed", zap.Error(err))
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load jwks: %w", err)
		}
		a.jwks = jwks
	case cfg.Secret != "":
		a.secret = []byte(cfg.Secret)
	default:
		return nil, errors.New("either a jwt secret or a jwks url is required")
	}
	return a, nil
}

// Close stops the background JWKS refresh.
func (a *Authenticator) Close() {
	if a.jwks != nil {
		a.jwks.EndBackground()
	}
}

func (a *Authenticator) keyFunc(token *jwt.Token) (interface{}, error) {
	if a.jwks != nil {
		return a.jwks.Keyfunc(token)
	}
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
	}
	return a.secret, nil
}

// Middleware rejects requests without a valid token and stores the caller
// identity on the request context.
func (a *Authenticator) Middleware() echo.MiddlewareFunc {
	verify := echojwt.WithConfig(echojwt.Config{
		KeyFunc:       a.keyFunc,
		NewClaimsFunc: func(echo.Context) jwt.Claims { return new(Claims) },
		ErrorHandler: func(c echo.Context, err error) error {
			a.logger.Debug("token rejected", zap.String("path", c.Path()), zap.Error(err))
			return common.SendUnauthorizedError(c)
		},
	})
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(identity(next))
	}
}

func identity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := c.Get("user").(*jwt.Token)
		if !ok {
			return common.SendUnauthorizedError(c)
		}
		claims, ok := token.Claims.(*Claims)
		if !ok {
			return common.SendUnauthorizedError(c)
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			return common.SendUnauthorizedError(c)
		}
		if !models.TargetRole(claims.Role).Valid() {
			return common.SendUnauthorizedError(c)
		}

		var agencyID *uuid.UUID
		if claims.AgencyID != "" {
			id, err := uuid.Parse(claims.AgencyID)
			if err != nil {
				return common.SendUnauthorizedError(c)
			}
			agencyID = &id
		}

		ctx := common.WithIdentity(c.Request().Context(), userID, agencyID, claims.Role)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
