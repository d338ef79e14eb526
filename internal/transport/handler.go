package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fill-nodes-go/internal/artifact"
	"fill-nodes-go/internal/config"
	"fill-nodes-go/internal/diagnostics"
	apperrors "fill-nodes-go/internal/errors"
	"fill-nodes-go/internal/logger"
	"fill-nodes-go/internal/node"
	"fill-nodes-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	serviceVersion  = "1.0.0"
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// SystemInfoGatherer produces a diagnostics report
type SystemInfoGatherer interface {
	Gather(ctx context.Context) (*diagnostics.Report, error)
}

// ArtifactSaver writes one image artifact
type ArtifactSaver interface {
	Save(ctx context.Context, req artifact.SaveRequest) (*artifact.SaveResult, error)
}

// MetricsSource exposes event counters for the health endpoint
type MetricsSource interface {
	GetMetrics() map[string]interface{}
}

// Dependencies groups the services the handler routes to. Metrics may be nil.
type Dependencies struct {
	Saver    ArtifactSaver
	Gatherer SystemInfoGatherer
	Metrics  MetricsSource
	Nodes    []node.Descriptor
}

func NewHandler(deps Dependencies, cfg *config.Config) http.Handler {
	r := gin.Default()

	// Add middleware
	r.Use(
		requestID(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck(deps.Metrics))
	r.GET("/nodes", listNodes(deps.Nodes))
	r.POST("/artifacts", saveArtifact(deps.Saver, cfg))
	RegisterSystemInfo(r, deps.Gatherer)

	return r
}

// RegisterSystemInfo binds GET /fl_system_info on routes. A gathering
// error is reported as 500 with {"error": message}.
func RegisterSystemInfo(routes gin.IRoutes, g SystemInfoGatherer) {
	routes.GET("/fl_system_info", func(c *gin.Context) {
		report, err := g.Gather(c.Request.Context())
		if err != nil {
			logger.WithError(err).WithField(requestIDKey, c.GetString(requestIDKey)).Error("System info request failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, report)
	})
}

func saveArtifact(s ArtifactSaver, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		var req models.SaveArtifactRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}
		if err := req.Image.Validate(); err != nil {
			respondError(c, http.StatusBadRequest, "invalid image", apperrors.NewValidationError("image shape does not match data", err))
			return
		}

		logger.WithFields(logrus.Fields{
			requestIDKey: c.GetString(requestIDKey),
			"job_id":     req.JobID,
			"category":   req.Category,
			"format":     req.Format,
		}).Info("Processing artifact save request")

		result, err := s.Save(ctx, artifact.SaveRequest{
			Image:         req.Image,
			JobID:         req.JobID,
			Category:      req.Category,
			BaseOutputDir: cfg.OutputDir,
			Format:        req.Format,
			Quality:       req.Quality,
		})
		if err != nil {
			respondError(c, determineStatusCode(err), "failed to save artifact", err)
			return
		}

		logger.WithFields(logrus.Fields{
			requestIDKey:         c.GetString(requestIDKey),
			"saved_path":         result.SavedPath,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Artifact save completed successfully")

		c.JSON(http.StatusOK, result)
	}
}

func listNodes(nodes []node.Descriptor) gin.HandlerFunc {
	return func(c *gin.Context) {
		if nodes == nil {
			nodes = []node.Descriptor{}
		}
		c.JSON(http.StatusOK, nodes)
	}
}

func healthCheck(metrics MetricsSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := models.HealthResponse{
			Status:  "available",
			Version: serviceVersion,
			Time:    time.Now().UTC().Format(time.RFC3339),
		}
		if metrics != nil {
			resp.Metrics = metrics.GetMetrics()
		}
		c.JSON(http.StatusOK, resp)
	}
}

// Middleware and helper functions
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Header(requestIDHeader, rid)
		c.Next()
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err.Err)
		}
	}
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
		requestIDKey:  c.GetString(requestIDKey),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
