package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/webcritic-go/internal/config"
	apperrors "github.com/anime-shed/webcritic-go/internal/errors"
	"github.com/anime-shed/webcritic-go/internal/logger"
	"github.com/anime-shed/webcritic-go/internal/observer"
	"github.com/anime-shed/webcritic-go/internal/repository"
	"github.com/anime-shed/webcritic-go/internal/service"
	"github.com/anime-shed/webcritic-go/internal/session"
	"github.com/anime-shed/webcritic-go/internal/storage"
	"github.com/anime-shed/webcritic-go/pkg/models"
)

// Version is reported by the health endpoint
var Version = "dev"

// uploadFields are the multipart fields a screenshot may arrive under
var uploadFields = []string{"file", "image"}

// Deps are the collaborators of the HTTP handler
type Deps struct {
	Service  service.CritiqueService
	Sessions repository.SessionRepository
	Metrics  *observer.MetricsObserver
	Pool     *service.WorkerPool
	Config   *config.Config
}

func NewHandler(deps Deps) http.Handler {
	r := gin.Default()

	// Add middleware
	r.Use(
		requestSizeLimiter(deps.Config.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck)
	r.GET("/metrics", metrics(deps))
	r.POST("/critique", critiqueOnce(deps))

	sessions := r.Group("/sessions")
	sessions.POST("", createSession(deps.Sessions))
	sessions.GET("/:id", getSession(deps.Sessions))
	sessions.DELETE("/:id", deleteSession(deps.Sessions))
	sessions.POST("/:id/critique", submitCritique(deps))
	sessions.GET("/:id/image", sessionImage(deps.Sessions))
	sessions.GET("/:id/events", streamEvents(deps.Sessions))

	return r
}

func createSession(sessions repository.SessionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := sessions.Create(c.Request.Context())
		if err != nil {
			respondError(c, determineStatusCode(err), "failed to create session", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"session_id": sess.ID,
			"ip":         c.ClientIP(),
		}).Info("Session created")

		c.JSON(http.StatusCreated, models.SessionResponse{ID: sess.ID, CreatedAt: sess.CreatedAt})
	}
}

func getSession(sessions repository.SessionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := sessions.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, determineStatusCode(err), "session lookup failed", err)
			return
		}
		c.JSON(http.StatusOK, sess.State.Snapshot())
	}
}

func deleteSession(sessions repository.SessionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, determineStatusCode(err), "failed to delete session", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func sessionImage(sessions repository.SessionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := sessions.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, determineStatusCode(err), "session lookup failed", err)
			return
		}

		data, err := storage.EncodePNG(sess.State.Image())
		if err != nil {
			respondError(c, determineStatusCode(err), "failed to encode image", err)
			return
		}
		c.Data(http.StatusOK, "image/png", data)
	}
}

// submitCritique starts a critique for an existing session. The response is
// 202 with the processing snapshot unless ?wait=true is given.
func submitCritique(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := deps.Sessions.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, determineStatusCode(err), "session lookup failed", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"session_id": sess.ID,
			"user_agent": c.Request.UserAgent(),
			"ip":         c.ClientIP(),
		}).Info("Processing critique request")

		outcomes, err := submit(c, deps.Service, sess)
		if err != nil {
			respondError(c, determineStatusCode(err), "critique was not started", err)
			return
		}

		if c.Query("wait") != "true" {
			c.JSON(http.StatusAccepted, models.CritiqueResponse{Snapshot: sess.State.Snapshot()})
			return
		}
		respondOutcome(c, deps.Config.RequestTimeout, outcomes)
	}
}

// critiqueOnce runs a critique on a throwaway session and waits for it
func critiqueOnce(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := deps.Sessions.Create(c.Request.Context())
		if err != nil {
			respondError(c, determineStatusCode(err), "failed to create session", err)
			return
		}
		defer func() {
			if err := deps.Sessions.Delete(context.WithoutCancel(c.Request.Context()), sess.ID); err != nil {
				logger.WithError(err).WithField("session_id", sess.ID).Warn("Failed to delete one-shot session")
			}
		}()

		outcomes, err := submit(c, deps.Service, sess)
		if err != nil {
			respondError(c, determineStatusCode(err), "critique was not started", err)
			return
		}
		respondOutcome(c, deps.Config.RequestTimeout, outcomes)
	}
}

// submit picks the screenshot from a multipart upload or a JSON source request
func submit(c *gin.Context, svc service.CritiqueService, sess *session.Session) (<-chan service.Outcome, error) {
	ctx := c.Request.Context()

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := firstUpload(c)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return svc.Submit(ctx, sess, file)
	}

	var req models.SourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.NewValidationError("a screenshot file, url or blob_url is required", nil)
		}
		return nil, apperrors.NewValidationError("invalid request format", err)
	}
	return svc.SubmitRemote(ctx, sess, req)
}

// firstUpload returns the first file under any accepted field
func firstUpload(c *gin.Context) (multipart.File, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	for _, field := range uploadFields {
		if files := form.File[field]; len(files) > 0 {
			return files[0].Open()
		}
	}
	return nil, apperrors.NewValidationError(
		fmt.Sprintf("no file uploaded under %s", strings.Join(uploadFields, " or ")), nil)
}

func respondOutcome(c *gin.Context, timeout time.Duration, outcomes <-chan service.Outcome) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	outcome, err := service.Await(ctx, outcomes)
	if err != nil {
		respondError(c, determineStatusCode(err), "critique failed", err)
		return
	}

	logger.WithFields(logrus.Fields{
		"session_id":         outcome.Snapshot.SessionID,
		"processing_time_ms": outcome.Duration.Milliseconds(),
		"overall":            outcome.Result.Overall,
	}).Info("Critique completed successfully")

	c.JSON(http.StatusOK, models.CritiqueResponse{
		Snapshot:          outcome.Snapshot,
		ProcessingTimeSec: outcome.Duration.Seconds(),
	})
}

func metrics(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"sessions": deps.Sessions.Count()}
		if deps.Metrics != nil {
			body["critiques"] = deps.Metrics.GetMetrics()
		}
		if deps.Pool != nil {
			body["workers"] = deps.Pool.GetStats()
		}
		c.JSON(http.StatusOK, body)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
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
	var maxBytesErr *http.MaxBytesError
	var appErr *apperrors.AppError

	switch {
	case errors.As(err, &appErr):
		return appErr.StatusCode
	case errors.Is(err, repository.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrRepositoryUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	// Log the error with context
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request failed")
	}

	resp := models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	}
	if errors.As(err, new(*apperrors.AppError)) {
		resp.Type = string(apperrors.TypeOf(err))
	}
	c.AbortWithStatusJSON(code, resp)
}
