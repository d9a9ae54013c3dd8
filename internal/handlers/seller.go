package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/bazaarmate/backend/internal/middleware"
	"github.com/bazaarmate/backend/internal/models"
)

type SellerHandler struct {
	DB *gorm.DB
}

func (h *SellerHandler) GetProfile(c echo.Context) error {
	profile, err := h.ownProfile(c)
	if profile == nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

// PatchProfile updates the caller's own store fields. Earnings and the
// verified flag are not reachable through this endpoint.
func (h *SellerHandler) PatchProfile(c echo.Context) error {
	profile, err := h.ownProfile(c)
	if profile == nil {
		return err
	}

	var req struct {
		StoreName   *string `json:"store_name"  validate:"omitempty,min=1,max=128"`
		Description *string `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_body", "cannot parse request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if req.StoreName != nil {
		profile.StoreName = *req.StoreName
	}
	if req.Description != nil {
		profile.Description = *req.Description
	}

	if err := h.DB.Save(profile).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *SellerHandler) ownProfile(c echo.Context) (*models.SellerProfile, error) {
	caller := middleware.CurrentUser(c)

	var profile models.SellerProfile
	if err := h.DB.Where("user_id = ?", caller.ID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError(c, http.StatusNotFound, "not_found", "seller profile not found")
		}
		return nil, err
	}
	return &profile, nil
}
