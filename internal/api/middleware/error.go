package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ortaieb/a-hunt-game/internal/api/dto"
	"github.com/ortaieb/a-hunt-game/internal/core/domain"
	"github.com/sirupsen/logrus"
)

const internalErrorMessage = "An unexpected error occurred"

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes err as a dto.ErrorResponse and aborts the chain.
// Internal errors are logged and their text is not sent to the client.
func RespondError(c *gin.Context, logger *logrus.Logger, err error) {
	kind := domain.KindOf(err)
	code := StatusFor(kind)

	resp := dto.ErrorResponse{
		Error: http.StatusText(code),
		Code:  code,
	}

	if kind == domain.KindInternal {
		if logger != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"method": c.Request.Method,
				"path":   c.FullPath(),
			}).Error("request failed")
		}
		resp.Message = internalErrorMessage
	} else {
		var derr *domain.Error
		if errors.As(err, &derr) {
			resp.Message = derr.Message
			resp.Detail = derr.Detail
		} else {
			resp.Message = err.Error()
		}
	}

	c.AbortWithStatusJSON(code, resp)
}

// RespondBadRequest reports a malformed request body or query.
func RespondBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   http.StatusText(http.StatusBadRequest),
		Message: message,
		Code:    http.StatusBadRequest,
	})
}

// ErrorHandlerMiddleware handles panics and errors
func ErrorHandlerMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				if logger != nil {
					logger.WithField("panic", rec).WithField("path", c.Request.URL.Path).Error("handler panicked")
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
					Error:   http.StatusText(http.StatusInternalServerError),
					Message: internalErrorMessage,
					Code:    http.StatusInternalServerError,
				})
			}
		}()

		c.Next()

		// Errors attached with c.Error and not yet answered
		if len(c.Errors) > 0 && !c.Writer.Written() {
			RespondError(c, logger, c.Errors.Last().Err)
		}
	}
}
