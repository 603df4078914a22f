// Package admin implements the HTTP adapter for the admin API.
package admin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/imgflow/dispatch/internal/adapters/dto"
	"github.com/imgflow/dispatch/internal/boundaries/in"
	"github.com/imgflow/dispatch/internal/domain"
	"github.com/imgflow/dispatch/internal/logging"
)

// maxRequestSize is the maximum allowed size for admin API request bodies.
const maxRequestSize = "1M"

// Handler implements the HTTP handler for the admin API.
type Handler struct {
	servers  in.ServerService
	tracking in.TrackingService
	health   in.HealthService
	log      zerolog.Logger
}

// NewHandler creates a new admin HTTP handler.
func NewHandler(servers in.ServerService, tracking in.TrackingService, health in.HealthService, log zerolog.Logger) *Handler {
	return &Handler{
		servers:  servers,
		tracking: tracking,
		health:   health,
		log: log.With().
			Str(logging.FieldLayer, "adapter").
			Str(logging.FieldAdapter, "admin").
			Logger(),
	}
}

// RegisterRoutes registers the admin routes. A non-empty token protects
// everything under /api.
func (h *Handler) RegisterRoutes(e *echo.Echo, token string) {
	e.GET("/healthz", h.healthz)

	api := e.Group("/api", BodyLimit(maxRequestSize))
	if token != "" {
		api.Use(TokenAuth(token, h.log))
	}

	api.GET("/servers", h.listServers)
	api.POST("/servers", h.createServer)
	api.GET("/servers/enabled", h.getEnabled)
	api.GET("/servers/enabled/id", h.getEnabledID)
	api.GET("/servers/:id", h.getServer)
	api.PUT("/servers/:id", h.updateServer)
	api.POST("/servers/:id/enable", h.setEnabled(true))
	api.POST("/servers/:id/disable", h.setEnabled(false))

	api.POST("/containers", h.trackContainer)
}

// healthz answers 503 only when storage or the registry is broken; a
// degraded engine still reports 200.
func (h *Handler) healthz(c echo.Context) error {
	report := h.health.Check(c.Request().Context())

	status := http.StatusOK
	if report.Status == domain.HealthUnavailable {
		status = http.StatusServiceUnavailable
		h.log.Error().Interface("components", report.Components).Msg("health check failed")
	}
	return c.JSON(status, dto.FromHealth(report))
}

func (h *Handler) listServers(c echo.Context) error {
	servers, err := h.servers.List(c.Request().Context())
	if err != nil {
		return h.sendError(c, err)
	}
	return c.JSON(http.StatusOK, dto.FromServers(servers))
}

func (h *Handler) getEnabled(c echo.Context) error {
	server, err := h.servers.GetEnabled(c.Request().Context())
	if err != nil {
		return h.sendError(c, err)
	}
	return c.JSON(http.StatusOK, dto.FromServer(server))
}

func (h *Handler) getEnabledID(c echo.Context) error {
	id, err := h.servers.GetEnabledID(c.Request().Context())
	if err != nil {
		return h.sendError(c, err)
	}
	return c.JSON(http.StatusOK, dto.EnabledID{ID: id})
}

func (h *Handler) getServer(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	server, err := h.servers.Get(c.Request().Context(), id)
	if err != nil {
		return h.sendError(c, err)
	}
	return c.JSON(http.StatusOK, dto.FromServer(server))
}

func (h *Handler) createServer(c echo.Context) error {
	var req dto.Server
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	created, err := h.servers.Create(c.Request().Context(), req.ToDomain())
	if err != nil {
		return h.sendError(c, err)
	}
	return c.JSON(http.StatusCreated, dto.FromServer(created))
}

func (h *Handler) updateServer(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req dto.Server
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	server := req.ToDomain()
	server.ID = id
	ctx := c.Request().Context()
	if err := h.servers.Update(ctx, server); err != nil {
		return h.sendError(c, err)
	}

	updated, err := h.servers.Get(ctx, id)
	if err != nil {
		return h.sendError(c, err)
	}
	return c.JSON(http.StatusOK, dto.FromServer(updated))
}

func (h *Handler) setEnabled(enabled bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return err
		}

		server, err := h.servers.SetEnabled(c.Request().Context(), id, enabled)
		if err != nil {
			return h.sendError(c, err)
		}
		return c.JSON(http.StatusOK, dto.FromServer(server))
	}
}

func (h *Handler) trackContainer(c echo.Context) error {
	var req dto.TrackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	tracked, err := h.tracking.Track(c.Request().Context(), req.ToDomain())
	if err != nil {
		return h.sendError(c, err)
	}
	return c.JSON(http.StatusCreated, dto.FromTracked(tracked))
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid server id")
	}
	return id, nil
}

// sendError maps domain errors to HTTP status codes.
func (h *Handler) sendError(c echo.Context, err error) error {
	status, code := http.StatusInternalServerError, "internal"

	switch {
	case errors.Is(err, domain.ErrServerNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrNoEnabledServer):
		status, code = http.StatusNotFound, "no_enabled_server"
	case errors.Is(err, domain.ErrInvalidServerConfig), errors.Is(err, domain.ErrInvalidTrackedContainer):
		status, code = http.StatusBadRequest, "invalid"
	case errors.Is(err, domain.ErrAlreadyTracked):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrMultipleEnabledServers):
		code = "data_integrity"
	case errors.Is(err, domain.ErrServerWriteFailed):
		code = "write_failed"
	}

	if status >= http.StatusInternalServerError {
		h.log.Error().
			Err(err).
			Str(logging.FieldMethod, c.Request().Method).
			Str(logging.FieldPath, c.Path()).
			Msg("admin request failed")
	}

	return c.JSON(status, dto.ErrorResponse{Error: err.Error(), Code: code})
}
