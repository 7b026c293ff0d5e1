package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/arbovm/levenshtein"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"go-ingredient-analyzer/internal/config"
	apperrors "go-ingredient-analyzer/internal/errors"
	"go-ingredient-analyzer/internal/logger"
	"go-ingredient-analyzer/internal/normalizer"
	"go-ingredient-analyzer/internal/service"
	"go-ingredient-analyzer/pkg/models"
)

const requestIDHeader = "X-Request-ID"

// maxHintDistance bounds the edit distance of a "did you mean" suggestion.
const maxHintDistance = 3

var knownOperations = []string{service.OperationAnalyzeMenuImage, service.OperationGetIngredientInfo}

// Dependencies are the collaborators served over HTTP.
type Dependencies struct {
	Config     *config.Config
	Normalizer normalizer.ImageNormalizer
	Menu       service.MenuAnalysisService
	Info       service.IngredientInfoService
	// Tools serves the MCP SSE transport; nil disables it.
	Tools http.Handler
}

type handler struct {
	cfg        *config.Config
	normalizer normalizer.ImageNormalizer
	menu       service.MenuAnalysisService
	info       service.IngredientInfoService
}

func NewHandler(deps Dependencies) http.Handler {
	if deps.Config.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	h := &handler{
		cfg:        deps.Config,
		normalizer: deps.Normalizer,
		menu:       deps.Menu,
		info:       deps.Info,
	}

	r := gin.New()
	r.Use(
		requestID(),
		requestLogger(),
		h.recovery(),
		corsMiddleware(deps.Config.CORSAllowOrigins),
		requestSizeLimiter(deps.Config.MaxRequestBodySize),
	)

	r.GET("/health", healthCheck)
	r.POST("/mcp/:namespace/:operation", h.callTool)
	r.POST("/api/images/normalize", h.normalizeImage)

	if deps.Config.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	if deps.Tools != nil {
		r.GET(toolsBasePath+"/sse", gin.WrapH(deps.Tools))
		r.POST(toolsBasePath+"/message", gin.WrapH(deps.Tools))
	}

	r.NoRoute(func(c *gin.Context) {
		h.respondError(c, apperrors.NewNotFoundError("Not found", nil).
			WithDetails("%s %s", c.Request.Method, c.Request.URL.Path))
	})

	return r
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{Status: "ok"})
}

func (h *handler) callTool(c *gin.Context) {
	namespace := c.Param("namespace")
	operation := c.Param("operation")

	if namespace != h.cfg.ToolNamespace {
		h.respondError(c, apperrors.NewNotFoundError(fmt.Sprintf("Unknown server: %s", namespace), nil))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	logger.WithFields(logrus.Fields{
		"operation":  operation,
		"request_id": c.GetString(requestIDKey),
		"ip":         c.ClientIP(),
	}).Info("Processing tool request")

	switch operation {
	case service.OperationAnalyzeMenuImage:
		var req models.AnalyzeMenuImageRequest
		if err := bindJSON(c, &req); err != nil {
			h.respondError(c, err)
			return
		}
		analysis, err := h.menu.AnalyzeImage(ctx, req.ImageData)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.ToolResponse{Result: analysis.Result, HTML: analysis.HTML})

	case service.OperationGetIngredientInfo:
		var req models.IngredientInfoRequest
		if err := bindJSON(c, &req); err != nil {
			h.respondError(c, err)
			return
		}
		info, err := h.info.Explain(ctx, req.Ingredient)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.ToolResponse{Result: info.Result, HTML: info.HTML})

	default:
		h.respondError(c, unknownTool(operation))
	}
}

func (h *handler) normalizeImage(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			h.respondError(c, apperrors.NewTooLargeError("Request body is too large", err))
		case errors.Is(err, http.ErrMissingFile):
			h.respondError(c, apperrors.NewMissingParameterError("file"))
		default:
			h.respondError(c, apperrors.NewValidationError("Expected a multipart form with a file field", err))
		}
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.respondError(c, apperrors.NewProcessingError("Image processing failed, please try again", err))
		return
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	payload, err := h.normalizer.Normalize(ctx, normalizer.File{
		Name:      fh.Filename,
		MediaType: fh.Header.Get("Content-Type"),
		Size:      fh.Size,
		Reader:    f,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NormalizeResponse{
		ImageData: payload.DataURI(),
		MediaType: payload.MediaType,
		Width:     payload.Width,
		Height:    payload.Height,
		Bytes:     len(payload.Data),
	})
}

// bindJSON decodes the request body. An empty body decodes as an empty object
// so that required-parameter checks report the missing field.
func bindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperrors.NewTooLargeError("Request body is too large", err)
	}
	return apperrors.NewValidationError("Request body must be a JSON object", err)
}

func unknownTool(operation string) *apperrors.AppError {
	msg := fmt.Sprintf("Unknown tool: %s", operation)
	best, bestDist := "", maxHintDistance+1
	for _, known := range knownOperations {
		if d := levenshtein.Distance(strings.ToLower(operation), known); d < bestDist {
			best, bestDist = known, d
		}
	}
	if best != "" {
		msg += fmt.Sprintf(" (did you mean %s?)", best)
	}
	return apperrors.NewNotFoundError(msg, nil)
}

// respondError writes the uniform error envelope. Technical detail is only
// included in development.
func (h *handler) respondError(c *gin.Context, err error) {
	code := apperrors.GetStatusCode(err)

	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
		"request_id":  c.GetString(requestIDKey),
	})
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		entry = entry.WithField("error_type", appErr.Type)
	}
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	resp := models.ErrorResponse{Error: apperrors.UserMessage(err)}
	if h.cfg.IsDevelopment() {
		resp.Detail = apperrors.TechnicalDetail(err)
	}
	c.AbortWithStatusJSON(code, resp)
}

// Middleware

const requestIDKey = "request_id"

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(service.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
			"request_id": c.GetString(requestIDKey),
		}).Info("Request handled")
	}
}

// recovery answers a panicking handler with a 500 envelope and keeps serving.
func (h *handler) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(logrus.Fields{
					"panic":      r,
					"path":       c.Request.URL.Path,
					"request_id": c.GetString(requestIDKey),
				}).Warn("Unexpected defect while handling request")
				h.respondError(c, apperrors.NewInternalError("Internal server error", fmt.Errorf("panic: %v", r)))
			}
		}()
		c.Next()
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
