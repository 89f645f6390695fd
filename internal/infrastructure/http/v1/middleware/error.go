package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"orgadmin/internal/core/apperror"
	"orgadmin/pkg/logger"
)

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
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

		if appErr, ok := apperror.AsAppError(err); ok {
			if appErr.Err != nil {
				logFailure(c, appErr)
			}

			c.JSON(appErr.HTTPStatus, gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
				"details": appErr.Details,
			})
			return
		}

		// Unknown error - log and return generic message
		logger.Error(c.Request.Context(), "unhandled error",
			"error", err,
		)

		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    apperror.CodeInternal,
			"message": "Internal server error",
			"details": map[string]any{
				"request_id": c.GetString("request_id"),
			},
		})
	}
}

// logFailure logs at error level for 5xx and at warn level otherwise, so a
// denied RLS write does not page anyone.
func logFailure(c *gin.Context, appErr *apperror.AppError) {
	ctx := c.Request.Context()
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error(ctx, "request error", "code", appErr.Code, "cause", appErr.Err)
		return
	}
	logger.Warn(ctx, "request rejected", "code", appErr.Code, "cause", appErr.Err)
}
