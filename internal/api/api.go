// Package api implements the HTTP API for profiles, events, channels and
// subscriptions.
package api

import (
	"crypto/rand"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/snapwatch/snapwatch/internal/conf"
	"github.com/snapwatch/snapwatch/internal/datastore"
	"github.com/snapwatch/snapwatch/internal/detection"
	"github.com/snapwatch/snapwatch/internal/errors"
	"github.com/snapwatch/snapwatch/internal/logging"
	"github.com/snapwatch/snapwatch/internal/observability"
)

// Controller manages the API routes and handlers.
type Controller struct {
	Echo      *echo.Echo
	Group     *echo.Group
	DS        datastore.Interface
	Settings  *conf.Settings
	Processor *detection.Processor

	metrics   *observability.Metrics
	apiLogger *slog.Logger
	startTime time.Time
}

// New creates the API controller and registers its routes under /api/v1.
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings,
	processor *detection.Processor, metrics *observability.Metrics) *Controller {

	c := &Controller{
		Echo:      e,
		Group:     e.Group("/api/v1"),
		DS:        ds,
		Settings:  settings,
		Processor: processor,
		metrics:   metrics,
		apiLogger: logging.ForService("api"),
		startTime: time.Now(),
	}

	c.initRoutes()
	return c
}

// initRoutes registers all API endpoints.
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	c.initProfileRoutes()
	c.initEventRoutes()
	c.initIntegrationRoutes()

	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(
			c.metrics.Registry(), promhttp.HandlerOpts{})))
	}
}

// HealthCheck reports service and database status.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	response := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(c.startTime).String(),
	}

	dbStatus := "connected"
	if _, _, err := c.DS.ListEvents(1, 0); err != nil {
		dbStatus = "disconnected"
		response["status"] = "degraded"
		response["database_error"] = err.Error()
	}
	response["database_status"] = dbStatus

	return ctx.JSON(http.StatusOK, response)
}

// ErrorResponse is the JSON error body returned by every handler.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// generateCorrelationID creates a short identifier for error tracking.
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError maps an error to an HTTP status via its category and returns
// the JSON error response.
func (c *Controller) HandleError(ctx echo.Context, err error, message string) error {
	code := statusForError(err)
	resp := &ErrorResponse{
		Error:         err.Error(),
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}

	c.apiLogger.Error("request failed",
		"correlation_id", resp.CorrelationID,
		"message", message,
		"error", err.Error(),
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
		"ip", ctx.RealIP())

	return ctx.JSON(code, resp)
}

// statusForError maps error categories to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.IsCategory(err, errors.CategoryValidation):
		return http.StatusBadRequest
	case errors.IsCategory(err, errors.CategoryNotFound):
		return http.StatusNotFound
	case errors.IsCategory(err, errors.CategoryConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PaginatedResponse wraps list results with pagination metadata.
type PaginatedResponse struct {
	Data        any   `json:"data"`
	Total       int64 `json:"total"`
	Limit       int   `json:"limit"`
	Offset      int   `json:"offset"`
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
}

// newPaginatedResponse computes page numbers from the limit and offset.
func newPaginatedResponse(data any, total int64, limit, offset int) *PaginatedResponse {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &PaginatedResponse{
		Data:        data,
		Total:       total,
		Limit:       limit,
		Offset:      offset,
		CurrentPage: offset/limit + 1,
		TotalPages:  totalPages,
	}
}

// pagination reads limit and offset query parameters, applying the configured
// default page size and cap.
func (c *Controller) pagination(ctx echo.Context) (limit, offset int) {
	limit = c.Settings.WebServer.PageSize
	if limit <= 0 {
		limit = 10
	}
	if raw := ctx.QueryParam("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if max := c.Settings.WebServer.MaxPageSize; max > 0 && limit > max {
		limit = max
	}

	if raw := ctx.QueryParam("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

// idParam parses the numeric path parameter.
func idParam(ctx echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		return 0, errors.ValidationError("invalid %s parameter", name)
	}
	return uint(v), nil
}
