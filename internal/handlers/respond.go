package handlers

import "github.com/labstack/echo/v4"

// apiError writes the uniform error body: a stable machine code plus a
// human message. Never includes internals.
func apiError(c echo.Context, status int, code, message string) error {
	return c.JSON(status, echo.Map{"code": code, "message": message})
}

func envelope(c echo.Context, status int, data any) error {
	return c.JSON(status, echo.Map{"success": true, "data": data, "error": nil})
}
