package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bazaarmate/backend/internal/middleware"
)

func (h *AuthHandler) GetProfile(c echo.Context) error {
	return envelope(c, http.StatusOK, middleware.CurrentUser(c))
}

// PatchProfile updates the caller's own fields. Role and active flag are not
// reachable through this endpoint.
func (h *AuthHandler) PatchProfile(c echo.Context) error {
	var req struct {
		Username    *string    `json:"username"     validate:"omitempty,min=3,max=64"`
		Email       *string    `json:"email"        validate:"omitempty,email"`
		PhoneNumber *string    `json:"phone_number" validate:"omitempty,max=15"`
		DateOfBirth *time.Time `json:"date_of_birth"`
	}
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_body", "cannot parse request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user := middleware.CurrentUser(c)
	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = *req.PhoneNumber
	}
	if req.DateOfBirth != nil {
		user.DateOfBirth = req.DateOfBirth
	}

	if err := h.Svc.Repo.Save(c.Request().Context(), user); err != nil {
		return h.mapError(c, err)
	}
	return envelope(c, http.StatusOK, user)
}

func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req struct {
		CurrentPassword string `json:"current_password" validate:"required"`
		NewPassword     string `json:"new_password"     validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_body", "cannot parse request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	caller := middleware.CurrentUser(c)
	if err := h.Svc.ChangePassword(c.Request().Context(), caller, req.CurrentPassword, req.NewPassword); err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "password changed"})
}
