package admin

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/imgflow/dispatch/internal/logging"
)

// TokenAuth validates a static bearer token.
func TokenAuth(token string, log zerolog.Logger) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(key string, c echo.Context) (bool, error) {
			ok := subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1
			if !ok {
				log.Warn().Str("remote_ip", c.RealIP()).Msg("invalid admin token")
			}
			return ok, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing token")
		},
	})
}

// BodyLimit caps request bodies.
func BodyLimit(limit string) echo.MiddlewareFunc {
	return middleware.BodyLimit(limit)
}

// AccessLog logs every request through zerolog and attaches the request
// logger to the request context.
func AccessLog(log zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		BeforeNextFunc: func(c echo.Context) {
			req := c.Request()
			c.SetRequest(req.WithContext(logging.WithCtx(req.Context(), log)))
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				event = log.Error().Err(v.Error)
			}
			event.
				Str("type", "http").
				Str("remote_ip", c.RealIP()).
				Str(logging.FieldMethod, v.Method).
				Str(logging.FieldPath, v.URI).
				Int(logging.FieldStatus, v.Status).
				Dur(logging.FieldDuration, v.Latency.Round(time.Microsecond)).
				Msg("request")
			return nil
		},
	})
}

// NewServer creates an echo instance with the admin middleware stack.
func NewServer(log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(AccessLog(log))
	return e
}
