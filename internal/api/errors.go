package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/blinkbus/blink-go/internal/errors"
	"github.com/blinkbus/blink-go/internal/logger"
	"github.com/blinkbus/blink-go/internal/scanner"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error    string `json:"error"`
	Message  string `json:"message"`
	Code     int    `json:"code"`
	Category string `json:"category,omitempty"`
}

// statusFor maps an error to an HTTP status by its category.
func statusFor(err error) int {
	var ee *errors.EnhancedError
	switch {
	case errors.Is(err, scanner.ErrCaptureInProgress):
		return http.StatusConflict
	case !errors.As(err, &ee):
		return http.StatusInternalServerError
	}

	switch ee.Category {
	case errors.CategoryValidation:
		return http.StatusBadRequest
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryLimit:
		return http.StatusTooManyRequests
	case errors.CategoryCamera, errors.CategoryCapture, errors.CategoryState:
		return http.StatusServiceUnavailable
	case errors.CategoryGeocoding, errors.CategoryNetwork:
		return http.StatusBadGateway
	case errors.CategoryTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// handleError writes err as JSON, picking the status from its category.
func (s *Server) handleError(c echo.Context, err error, message string) error {
	return s.handleErrorCode(c, err, message, statusFor(err))
}

func (s *Server) handleErrorCode(c echo.Context, err error, message string, code int) error {
	resp := ErrorResponse{Message: message, Code: code}
	if err != nil {
		resp.Error = err.Error()
		var ee *errors.EnhancedError
		if errors.As(err, &ee) {
			resp.Category = string(ee.Category)
		}
	} else {
		resp.Error = message
	}

	fields := []logger.Field{
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", c.Request().URL.Path),
		logger.String("method", c.Request().Method),
		logger.String("ip", c.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if code >= http.StatusInternalServerError {
		s.log.Error("API error", fields...)
	} else {
		s.log.Debug("API error", fields...)
	}

	return c.JSON(code, resp)
}
