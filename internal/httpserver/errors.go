package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bazaarmate/backend/pkg/logging"
)

// ErrorHandler converts every uncaught error into the uniform
// {code, message} body. Unexpected errors become an opaque 500: details go
// to the log, never into the response.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		message = fmt.Sprint(he.Message)
	} else {
		logging.FromContext(c.Request().Context()).Error("unhandled error", "error", err)
	}

	_ = c.JSON(status, echo.Map{"code": codeForStatus(status), "message": message})
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusTooManyRequests:
		return "too_many_attempts"
	default:
		return "internal_error"
	}
}
