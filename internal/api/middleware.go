package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"alcyxob/strength-tracker/internal/metrics"
	"alcyxob/strength-tracker/internal/service"
	"alcyxob/strength-tracker/internal/storage"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Constants for context keys
const (
	ContextEmailKey = "userEmail"
)

// AuthMiddleware creates a Gin middleware for JWT authentication. The token
// is checked against the allow-list on every request, so a token minted for
// any other account is treated as no token at all.
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header is missing")
			return
		}

		// Expecting "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}

		identity, err := authService.ValidateToken(parts[1])
		if err != nil {
			if errors.Is(err, service.ErrUnauthorizedEmail) {
				log.WithField("path", c.FullPath()).Warn("token for an account outside the allow-list")
			}
			abortWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(ContextEmailKey, identity.Email)
		c.Next()
	}
}

// RequestLogger logs one line per request through logrus.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		})
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Debug("request served")
		}
	}
}

// RequestMetrics counts requests by method and status and records their duration.
func RequestMetrics(m *metrics.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		m.GaugeRequests.Inc()
		defer func(begin time.Time) {
			m.GaugeRequests.Dec()
			m.HistRequestDuration.Observe(time.Since(begin).Seconds())
		}(time.Now())

		c.Next()

		m.CounterRequests.WithLabelValues(c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"success": false, "error": message})
}

// abortWithServiceError maps a service error to its HTTP status.
func abortWithServiceError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrMissingSessionID),
		errors.Is(err, service.ErrInvalidDay),
		errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrUnknownExercise),
		errors.Is(err, service.ErrInvalidMode),
		errors.Is(err, service.ErrInvalidMeasurement),
		errors.Is(err, service.ErrMalformedImport),
		errors.Is(err, service.ErrInvalidArchive):
		code = http.StatusBadRequest
	case errors.Is(err, service.ErrReadOnlyDate):
		code = http.StatusForbidden
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrNoEditorFound),
		errors.Is(err, service.ErrNoMeasurements),
		errors.Is(err, storage.ErrObjectNotFound):
		code = http.StatusNotFound
	case errors.Is(err, service.ErrWriteConflict),
		errors.Is(err, service.ErrEditorClosed):
		code = http.StatusConflict
	case errors.Is(err, service.ErrArchiveDisabled):
		code = http.StatusServiceUnavailable
	}

	if code == http.StatusInternalServerError {
		log.WithField("path", c.FullPath()).WithError(err).Error("request failed")
	}
	abortWithError(c, code, err.Error())
}

// Helper function to get the signed-in email from context (used by handlers)
func getEmailFromContext(c *gin.Context) (string, error) {
	raw, exists := c.Get(ContextEmailKey)
	if !exists {
		return "", errors.New("user email not found in context")
	}
	email, ok := raw.(string)
	if !ok {
		return "", errors.New("invalid user email type in context")
	}
	return email, nil
}
