package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/bazaarmate/backend/internal/auth"
	"github.com/bazaarmate/backend/pkg/logging"
)

type AdminHandler struct {
	Repo *auth.Repo
}

// DeactivateUser flips the active flag: the account stops authenticating but
// nothing referencing it is deleted.
func (h *AdminHandler) DeactivateUser(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_id", "user id must be numeric")
	}

	ctx := c.Request().Context()
	if err := h.Repo.Deactivate(ctx, uint(id)); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return apiError(c, http.StatusNotFound, "not_found", "user not found")
		}
		return err
	}

	logging.FromContext(ctx).Info("user_deactivated", "user_id", id)
	return c.JSON(http.StatusOK, echo.Map{"message": "user deactivated"})
}
