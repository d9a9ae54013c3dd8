package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bazaarmate/backend/internal/authz"
	"github.com/bazaarmate/backend/internal/middleware"
	"github.com/bazaarmate/backend/internal/models"
)

type WishlistHandler struct {
	DB *gorm.DB
}

func (h *WishlistHandler) GetWishlist(c echo.Context) error {
	caller := middleware.CurrentUser(c)

	var items []models.WishlistItem
	if err := h.DB.Where("user_id = ?", caller.ID).Find(&items).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *WishlistHandler) AddToWishlist(c echo.Context) error {
	var req struct {
		ProductID uint `json:"product_id" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_body", "cannot parse request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var product models.Product
	if err := h.DB.First(&product, req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apiError(c, http.StatusNotFound, "not_found", "product not found")
		}
		return err
	}

	// Adding the same product twice is a no-op.
	item := models.WishlistItem{
		UserID:    middleware.CurrentUser(c).ID,
		ProductID: req.ProductID,
	}
	err := h.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoNothing: true,
	}).Create(&item).Error
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, item)
}

func (h *WishlistHandler) RemoveFromWishlist(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_id", "wishlist item id must be numeric")
	}

	var item models.WishlistItem
	if err := h.DB.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apiError(c, http.StatusNotFound, "not_found", "wishlist item not found")
		}
		return err
	}

	if !authz.OwnerOrAdmin(middleware.CurrentUser(c), item) {
		return apiError(c, http.StatusForbidden, "forbidden", "not enough rights")
	}

	if err := h.DB.Delete(&item).Error; err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
