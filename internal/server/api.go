// Package server exposes the extraction pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/doc-extractor/internal/common"
	"github.com/joseph-ayodele/doc-extractor/internal/export"
	"github.com/joseph-ayodele/doc-extractor/internal/ingest"
	"github.com/joseph-ayodele/doc-extractor/internal/pipeline"
	"github.com/joseph-ayodele/doc-extractor/internal/presets"
)

// Extractor runs one extraction; *pipeline.Processor satisfies it.
type Extractor interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Deps are the collaborators of the API.
type Deps struct {
	Extractor Extractor
	Stager    *ingest.Stager
	Presets   *presets.Catalog
	Exporter  *export.Service

	// Backend names the model backend for the health endpoint; empty means
	// no model is configured.
	Backend     string
	AllowOrigin string
}

// API provides the HTTP handlers.
type API struct {
	extractor   Extractor
	stager      *ingest.Stager
	presets     *presets.Catalog
	exporter    *export.Service
	backend     string
	allowOrigin string
	logger      *slog.Logger
}

func NewAPI(deps Deps, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Exporter == nil {
		deps.Exporter = export.NewService(logger)
	}
	if deps.AllowOrigin == "" {
		deps.AllowOrigin = "*"
	}
	return &API{
		extractor:   deps.Extractor,
		stager:      deps.Stager,
		presets:     deps.Presets,
		exporter:    deps.Exporter,
		backend:     deps.Backend,
		allowOrigin: deps.AllowOrigin,
		logger:      logger,
	}
}

// Router builds the gin engine with middleware and routes registered.
func (a *API) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(a.logger), cors(a.allowOrigin))
	RegisterRoutes(router, a)
	return router
}

// RegisterRoutes registers all the routes of the extraction service.
func RegisterRoutes(router *gin.Engine, a *API) {
	router.POST("/extract", a.ExtractHandler)

	api := router.Group("/api")
	{
		api.POST("/extract", a.ExtractHandler)
		api.GET("/health", a.HealthHandler)
		api.GET("/supported-types", a.SupportedTypesHandler)
		api.GET("/presets", a.ListPresetsHandler)
		api.GET("/presets/:name", a.GetPresetHandler)
		api.POST("/export/xlsx", a.ExportXLSXHandler)
	}
}

// fail writes the error body. Details are only exposed for server-side failures.
func (a *API) fail(c *gin.Context, err error) {
	code := common.HTTPStatus(err)
	body := gin.H{"error": common.PublicMessage(err)}

	logger := common.LoggerFromContext(c.Request.Context(), a.logger)
	if code >= http.StatusInternalServerError {
		var appErr *common.AppError
		if errors.As(err, &appErr) && appErr.Cause != nil {
			body["details"] = appErr.Cause.Error()
		}
		logger.Error("http.request.failed", "status", code, "error", err)
	} else {
		logger.Warn("http.request.rejected", "status", code, "error", err)
	}
	c.AbortWithStatusJSON(code, body)
}
