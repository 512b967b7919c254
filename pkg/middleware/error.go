package middleware

import (
	"errors"
	"net/http"

	"insulead-core/pkg/errutil"
	"insulead-core/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error renders the last handler error. BaseError keeps its own status;
// anything else becomes an opaque 500.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		var be errutil.BaseError
		if !errors.As(last.Err, &be) {
			be = errutil.BaseError{Code: errutil.StatusInternal, Message: "internal error", Err: last.Err}
		}

		status := be.Code.HTTPStatus()
		log := logger.WithTrace(c.Request.Context()).With(
			zap.String("request_id", RequestIDFrom(c)),
			zap.String("code", string(be.Code)),
			zap.Int("status", status),
		)
		if status >= http.StatusInternalServerError {
			log.Error("request failed", zap.Error(last.Err))
		} else {
			log.Info("request rejected", zap.Error(last.Err))
		}

		c.AbortWithStatusJSON(status, be.JSON())
	}
}
