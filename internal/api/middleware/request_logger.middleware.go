package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

// RequestLogger logs one structured line per HTTP request. Health probes and
// metric scrapes are logged at debug level.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			requestID, _ := param.Keys[requestIDKey].(string)

			fields := []interface{}{
				"method", param.Method,
				"path", param.Path,
				"status", param.StatusCode,
				"latency", param.Latency,
				"client_ip", param.ClientIP,
				"user_agent", param.Request.UserAgent(),
				"request_id", requestID,
			}
			if param.ErrorMessage != "" {
				fields = append(fields, "error", param.ErrorMessage)
			}

			switch {
			case param.StatusCode >= 500:
				log.Error("HTTP Request", fields...)
			case param.StatusCode >= 400:
				log.Warn("HTTP Request", fields...)
			case isProbePath(param.Path):
				log.Debug("HTTP Request", fields...)
			default:
				log.Info("HTTP Request", fields...)
			}

			return ""
		},
	})
}

func isProbePath(path string) bool {
	switch path {
	case "/health", "/ready", "/metrics":
		return true
	}
	return false
}
