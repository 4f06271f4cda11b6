package handlers

import (
	"fmt"
	"net/http"

	"github.com/anonto42/studynest/backend/internal/apperrors"
	"github.com/anonto42/studynest/backend/internal/validators"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string      `json:"message"`
	Error   interface{} `json:"error,omitempty"`
}

const serverErrorMessage = "server error"

// NewHTTPErrorHandler maps errors returned by handlers and middleware to
// status codes. Unexpected failures are logged, reported to Sentry and
// answered with a generic message.
func NewHTTPErrorHandler(v *validators.Validator, logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := classify(err, v)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.Error(err),
			)
			if hub := sentryecho.GetHubFromContext(c); hub != nil {
				hub.CaptureException(err)
			}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Warn("failed to write error response", zap.Error(err))
		}
	}
}

func classify(err error, v *validators.Validator) (int, ErrorResponse) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return http.StatusBadRequest, ErrorResponse{Message: "Validation failed", Error: v.Translate(validationErrs)}
	}

	var validationErr *apperrors.ValidationError
	if errors.As(err, &validationErr) {
		resp := ErrorResponse{Message: validationErr.Message}
		if len(validationErr.Fields) > 0 {
			fields := make(map[string]string, len(validationErr.Fields))
			for _, f := range validationErr.Fields {
				fields[f.Field] = f.Error
			}
			resp.Error = fields
		}
		return http.StatusBadRequest, resp
	}

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case apperrors.KindUnauthenticated:
			return http.StatusUnauthorized, ErrorResponse{Message: appErr.Message}
		case apperrors.KindForbidden:
			return http.StatusForbidden, ErrorResponse{Message: appErr.Message}
		case apperrors.KindNotFound:
			return http.StatusNotFound, ErrorResponse{Message: appErr.Message}
		case apperrors.KindUpstreamBusy:
			return http.StatusServiceUnavailable, ErrorResponse{Message: appErr.Message}
		case apperrors.KindPartialFanout:
			return http.StatusInternalServerError, ErrorResponse{Message: serverErrorMessage}
		}
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Code == http.StatusRequestEntityTooLarge {
			return http.StatusBadRequest, ErrorResponse{Message: "File exceeds the upload size limit"}
		}
		if httpErr.Code >= http.StatusInternalServerError {
			return httpErr.Code, ErrorResponse{Message: serverErrorMessage}
		}
		return httpErr.Code, ErrorResponse{Message: fmt.Sprint(httpErr.Message)}
	}

	return http.StatusInternalServerError, ErrorResponse{Message: serverErrorMessage}
}
