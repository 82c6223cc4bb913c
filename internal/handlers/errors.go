package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/anonto42/nano-midea/comments/internal/apperrors"
	"github.com/anonto42/nano-midea/comments/internal/requestctx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// HTTPErrorHandler writes every failure as an apperrors.ErrorResponse and
// logs it with the request id at the level its severity calls for.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body, severity := resolve(err)
	logFailure(c, err, status, severity, body)

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		c.Logger().Error(err)
	}
}

func resolve(err error) (int, apperrors.ErrorResponse, apperrors.Severity) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		detail := http.StatusText(he.Code)
		if msg, ok := he.Message.(string); ok && msg != "" {
			detail = msg
		}
		severity := apperrors.SeverityInfo
		if he.Code >= http.StatusInternalServerError {
			severity = apperrors.SeverityError
		}
		return he.Code, apperrors.ErrorResponse{Detail: detail}, severity
	}

	cls := apperrors.Classify(err)
	return cls.Status, cls.Body, cls.Severity
}

func logFailure(c echo.Context, err error, status int, severity apperrors.Severity, body apperrors.ErrorResponse) {
	req := c.Request()
	entry := log.JSON{
		"request_id": requestctx.RequestID(req.Context()),
		"method":     req.Method,
		"path":       req.URL.Path,
		"status":     status,
		"error":      fmt.Sprintf("%v", err),
	}

	switch severity {
	case apperrors.SeverityInfo:
		c.Logger().Infoj(entry)
	case apperrors.SeverityCritical:
		entry["severity"] = severity.String()
		if body.Hint != "" {
			entry["hint"] = body.Hint
		}
		c.Logger().Errorj(entry)
	default:
		c.Logger().Errorj(entry)
	}
}
