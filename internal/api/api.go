// internal/api/api.go
package api

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/obralens/obralens/internal/conf"
	"github.com/obralens/obralens/internal/datastore"
	"github.com/obralens/obralens/internal/errors"
	"github.com/obralens/obralens/internal/media"
	"github.com/obralens/obralens/internal/normas"
	"github.com/obralens/obralens/internal/observability"
)

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	DS       datastore.Interface
	Settings *conf.Settings
	Media    *media.Store
	Metrics  *observability.Metrics

	importer   *normas.Importer
	apiLogger  *slog.Logger
	groupCache *cache.Cache // caches group listings per project, invalidated on evidence writes

	authMiddleware echo.MiddlewareFunc
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithAuthMiddleware sets the authentication middleware for the controller.
// Tests inject a pass-through here.
func WithAuthMiddleware(mw echo.MiddlewareFunc) Option {
	return func(c *Controller) {
		c.authMiddleware = mw
	}
}

// New creates the API controller and registers all routes under /api/v1.
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings,
	mediaStore *media.Store, metrics *observability.Metrics,
	logger *slog.Logger, options ...Option) *Controller {

	if logger == nil {
		logger = slog.Default()
	}

	c := &Controller{
		Echo:       e,
		DS:         ds,
		Settings:   settings,
		Media:      mediaStore,
		Metrics:    metrics,
		importer:   normas.NewImporter(ds, logger.With("service", "normas-import")),
		apiLogger:  logger,
		groupCache: cache.New(30*time.Second, time.Minute),
	}

	for _, opt := range options {
		opt(c)
	}
	if c.authMiddleware == nil {
		c.authMiddleware = c.jwtMiddleware()
	}

	c.Group = e.Group("/api/v1")
	c.initRoutes()
	return c
}

// initRoutes wires every resource's routes onto the API group.
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.Health)

	c.initAuthRoutes()
	c.initProyectoRoutes()
	c.initTareaRoutes()
	c.initEvidenciaRoutes()
	c.initGroupRoutes()
	c.initNormaRepoRoutes()
	c.initReportRoutes()
}

// Health reports service liveness.
func (c *Controller) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// ErrorResponse represents the JSON error envelope every endpoint returns.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
	Detail        string `json:"detail,omitempty"` // populated outside production
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	correlationID := generateCorrelationID()

	var errorStr string
	if err != nil {
		errorStr = err.Error()
	} else {
		errorStr = message
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: correlationID,
	}
}

// generateCorrelationID creates a short random identifier for error tracking.
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

// HandleError constructs and returns an appropriate error response
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	errorResp := NewErrorResponse(err, message, code)

	if code == http.StatusInternalServerError && !c.Settings.IsProduction() {
		errorResp.Detail = string(debug.Stack())
	}

	attrs := []any{
		"correlation_id", errorResp.CorrelationID,
		"message", message,
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
		"ip", ctx.RealIP(),
	}
	var enhanced *errors.EnhancedError
	if errors.As(err, &enhanced) {
		attrs = append(attrs, enhanced.LogAttrs()...)
	} else if err != nil {
		attrs = append(attrs, "error", err.Error())
	}
	c.apiLogger.Error("API Error", attrs...)

	return ctx.JSON(code, errorResp)
}

// handleDSError maps a datastore error to 404 or 500.
func (c *Controller) handleDSError(ctx echo.Context, err error, resource string) error {
	if errors.Is(err, datastore.ErrNotFound) {
		return c.HandleError(ctx, err, resource+" no encontrado", http.StatusNotFound)
	}
	return c.HandleError(ctx, err, "error de base de datos", http.StatusInternalServerError)
}

// idParam parses a positive integer path parameter.
func idParam(ctx echo.Context, name string) (uint, error) {
	raw := ctx.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return uint(id), nil
}

// Debug logs debug messages when debug mode is enabled
func (c *Controller) Debug(format string, v ...any) {
	if c.Settings.Debug {
		c.apiLogger.Debug(fmt.Sprintf(format, v...))
	}
}

// invalidateGroupCache drops cached group listings after evidence writes.
func (c *Controller) invalidateGroupCache() {
	c.groupCache.Flush()
}
