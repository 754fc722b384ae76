package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// FieldError describes one failed binding rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// HTTPError lets handlers choose the status the error middleware answers with.
type HTTPError struct {
	Status int
	Code   string
	Err    error
}

func (e *HTTPError) Error() string { return e.Err.Error() }
func (e *HTTPError) Unwrap() error { return e.Err }

// BadRequest wraps err as a 400 INVALID_REQUEST.
func BadRequest(err error) *HTTPError {
	return &HTTPError{Status: http.StatusBadRequest, Code: "INVALID_REQUEST", Err: err}
}

// ErrorHandler turns errors attached with c.Error into ErrorResponse bodies.
// Handlers that already wrote a response are left alone.
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		statusCode := determineStatusCode(err)
		resp := ErrorResponse{
			Error: err.Error(),
			Code:  determineErrorCode(err, statusCode),
		}
		if details := extractValidationDetails(err); details != nil {
			resp.Error = "invalid query parameters"
			resp.Details = details
		}

		logError(log, statusCode, err, c)
		c.JSON(statusCode, resp)
	}
}

func determineStatusCode(err error) int {
	var httpErr *HTTPError
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Status
	case errors.As(err, &verrs):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func determineErrorCode(err error, statusCode int) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Code != "" {
		return httpErr.Code
	}
	return determineErrorCodeFromStatus(statusCode)
}

func determineErrorCodeFromStatus(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "INVALID_REQUEST"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}

// extractValidationDetails lists the failed rules of a gin binding error.
func extractValidationDetails(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field: toSnakeCase(fe.Field()),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return out
}

// toSnakeCase maps struct field names back to query names (CitySlug -> city_slug).
func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func logError(log logger.Logger, statusCode int, err error, c *gin.Context) {
	fields := []interface{}{
		"status", statusCode,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"client_ip", c.ClientIP(),
		"error", err.Error(),
		"error_type", fmt.Sprintf("%T", err),
	}
	if requestID := GetRequestID(c); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}

	if statusCode >= 500 {
		log.Error("HTTP Error", fields...)
	} else {
		log.Warn("HTTP Error", fields...)
	}
}
