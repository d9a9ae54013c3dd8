package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/bazaarmate/backend/internal/auth"
	"github.com/bazaarmate/backend/internal/middleware"
	"github.com/bazaarmate/backend/internal/ratelimit"
	"github.com/bazaarmate/backend/internal/tokens"
	"github.com/bazaarmate/backend/pkg/logging"
)

type AuthHandler struct {
	Svc *auth.Service
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req struct {
		Username string `json:"username" validate:"required,min=3,max=64"`
		Email    string `json:"email"    validate:"required,email"`
		Password string `json:"password" validate:"required"`
		Role     string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_body", "cannot parse request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.Svc.Register(c.Request().Context(), auth.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Actor:    middleware.CurrentUser(c),
	}, c.RealIP())
	if err != nil {
		return h.mapError(c, err)
	}

	return envelope(c, http.StatusCreated, user)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Identifier string `json:"identifier" validate:"required"`
		Password   string `json:"password"   validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_body", "cannot parse request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	pair, err := h.Svc.Login(c.Request().Context(), req.Identifier, req.Password, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(http.StatusOK, pair)
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	var req struct {
		Refresh string `json:"refresh" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_body", "cannot parse request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	access, exp, err := h.Svc.Refresh(c.Request().Context(), req.Refresh)
	if err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"access_token":      access,
		"access_expires_at": exp,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_body", "cannot parse request body")
	}
	if req.Refresh == "" {
		return apiError(c, http.StatusBadRequest, "missing_refresh", "refresh token is required")
	}

	caller := middleware.CurrentUser(c)
	if err := h.Svc.Logout(c.Request().Context(), caller, req.Refresh); err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_body", "cannot parse request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.Svc.ForgotPassword(c.Request().Context(), req.Email, c.RealIP()); err != nil {
		return h.mapError(c, err)
	}

	// Same answer whether or not the account exists.
	return c.JSON(http.StatusAccepted, echo.Map{"message": "if the account exists, a reset link has been sent"})
}

// mapError translates gate failures into the response taxonomy. Token
// verification failures share one 401 so a caller cannot tell a bad
// signature from an expired or revoked token.
func (h *AuthHandler) mapError(c echo.Context, err error) error {
	var throttled *ratelimit.ThrottledError
	var weak *auth.WeakPasswordError

	switch {
	case errors.As(err, &throttled):
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(throttled.RetryAfter.Seconds())))
		return apiError(c, http.StatusTooManyRequests, "too_many_attempts", throttled.Error())
	case errors.As(err, &weak):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"code":    "weak_password",
			"message": "password does not meet strength requirements",
			"rules":   weak.Rules,
		})
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apiError(c, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
	case errors.Is(err, tokens.ErrMalformed), errors.Is(err, tokens.ErrExpired), errors.Is(err, auth.ErrTokenRevoked):
		return apiError(c, http.StatusUnauthorized, "invalid_token", "token is invalid")
	case errors.Is(err, auth.ErrUserExists):
		return apiError(c, http.StatusConflict, "user_exists", "username or email already taken")
	case errors.Is(err, auth.ErrForbidden):
		return apiError(c, http.StatusForbidden, "forbidden", "not enough rights")
	case errors.Is(err, auth.ErrNotFound):
		return apiError(c, http.StatusUnauthorized, "invalid_token", "token is invalid")
	default:
		logging.FromContext(c.Request().Context()).Error("auth request failed", "error", err)
		return apiError(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
