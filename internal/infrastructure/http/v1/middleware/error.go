package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"pomegranate/internal/core/apperror"
	"pomegranate/internal/infrastructure/http/v1/dto"
	"pomegranate/pkg/logger"
)

const contentTypeJSON = "application/json; charset=utf-8"

// ErrorHandler renders the last gin error into the response envelope.
// Internal causes are logged and never sent to clients.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		writeError(c, err)
	}
}

func writeError(c *gin.Context, err error) {
	status, env := renderError(c, err)
	body, mErr := json.Marshal(env)
	if mErr != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	failIdempotency(c, status, contentTypeJSON, body)
	c.Data(status, contentTypeJSON, body)
}

func renderError(c *gin.Context, err error) (int, dto.Envelope) {
	ctx := c.Request.Context()

	if appErr, ok := apperror.AsAppError(err); ok {
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Error(ctx, "request error",
				"code", appErr.Code,
				"path", c.FullPath(),
				"cause", appErr.Err,
			)
			return appErr.HTTPStatus, dto.Envelope{
				Code:    appErr.HTTPStatus,
				Message: appErr.Message,
				Error:   appErr.Code,
				Details: map[string]any{"request_id": c.GetString("request_id")},
			}
		}
		if appErr.Err != nil {
			logger.Debug(ctx, "request rejected", "code", appErr.Code, "cause", appErr.Err)
		}
		return appErr.HTTPStatus, dto.Envelope{
			Code:    appErr.HTTPStatus,
			Message: appErr.Message,
			Error:   appErr.Code,
			Details: appErr.Details,
		}
	}

	logger.Error(ctx, "unhandled error", "path", c.FullPath(), "error", err)
	return http.StatusInternalServerError, dto.Envelope{
		Code:    http.StatusInternalServerError,
		Message: "Internal server error",
		Error:   apperror.CodeInternal,
		Details: map[string]any{"request_id": c.GetString("request_id")},
	}
}

// NoRoute answers unknown paths with a 404 envelope.
func NoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = c.Error(apperror.NewNotFound("route", c.Request.Method+" "+c.Request.URL.Path))
		c.Abort()
	}
}
