// routes.go - Route registration helpers
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/comtrade-viewer/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store               storage.Store
	SessionMgr          SessionManager
	Logger              *zap.Logger
	Version             string
	CriticalTimestamp   bool
	AllowPathReferences bool
	AllowFileDeletion   bool
	EnableMetrics       bool
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Files     FileHandler
	Recording RecordingHandler
	Decode    DecodeHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{
		Health:    NewHealthHandler(deps.Version),
		Files:     NewFileHandler(deps.Store, log),
		Recording: NewRecordingHandler(deps.SessionMgr, deps.CriticalTimestamp, log),
		Decode:    NewDecodeHandler(deps.CriticalTimestamp, deps.AllowPathReferences),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers, deps *Dependencies) {
	apiGroup := e.Group("/api")

	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Uploaded files
	files := apiGroup.Group("/files")
	files.POST("/upload", handlers.Files.HandleUploadFile)
	files.POST("/upload/binary", handlers.Files.HandleUploadBinary)
	files.GET("/recent", handlers.Files.HandleGetRecentFiles)
	files.GET("/:id", handlers.Files.HandleGetFile)
	files.PUT("/:id", handlers.Files.HandleRenameFile)
	if deps.AllowFileDeletion {
		files.DELETE("/:id", handlers.Files.HandleDeleteFile)
	}

	// Decode sessions
	rec := apiGroup.Group("/recordings")
	rec.POST("", handlers.Recording.HandleStartDecode)
	rec.GET("", handlers.Recording.HandleListRecordings)
	rec.GET("/:id", handlers.Recording.HandleStatus)
	rec.DELETE("/:id", handlers.Recording.HandleDeleteRecording)
	rec.GET("/:id/progress", handlers.Recording.HandleProgressStream)
	rec.POST("/:id/keepalive", handlers.Recording.HandleKeepAlive)
	rec.GET("/:id/config", handlers.Recording.HandleConfig)
	rec.GET("/:id/info", handlers.Recording.HandleInfo)
	rec.GET("/:id/samples", handlers.Recording.HandleSamples)
	rec.GET("/:id/samples/msgpack", handlers.Recording.HandleSamplesMsgpack)
	rec.GET("/:id/samples/arrow", handlers.Recording.HandleSamplesArrow)
	rec.GET("/:id/channels/analog/:index", handlers.Recording.HandleAnalogChannel)
	rec.GET("/:id/channels/status/:index", handlers.Recording.HandleStatusChannel)
	rec.GET("/:id/export", handlers.Recording.HandleExport)

	// Stateless decoding
	dec := apiGroup.Group("/decode")
	dec.POST("", handlers.Decode.HandleDecodeRecording)
	dec.POST("/config", handlers.Decode.HandleDecodeConfig)
	dec.POST("/info", handlers.Decode.HandleDecodeInfo)

	if deps.EnableMetrics {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}
}

// MiddlewareConfig configures SetupMiddleware.
type MiddlewareConfig struct {
	Logger         *zap.Logger
	Development    bool
	RequestTimeout time.Duration
	BodyLimit      string
	AllowOrigins   []string
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, cfg MiddlewareConfig) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	e.HTTPErrorHandler = NewErrorHandler(log, cfg.Development)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/progress") ||
				path == "/api/health" ||
				path == "/metrics"
		},
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	if cfg.RequestTimeout > 0 {
		e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout: cfg.RequestTimeout,
			Skipper: func(c echo.Context) bool {
				path := c.Request().URL.Path
				return strings.HasSuffix(path, "/progress") ||
					strings.Contains(path, "/upload") ||
					strings.HasSuffix(path, "/arrow")
			},
			ErrorMessage: "Request timeout - query took too long",
		}))
	}

	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	if len(cfg.AllowOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.AllowOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}
