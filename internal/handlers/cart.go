package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/bazaarmate/backend/internal/authz"
	"github.com/bazaarmate/backend/internal/middleware"
	"github.com/bazaarmate/backend/internal/models"
)

type CartHandler struct {
	DB *gorm.DB
}

func (h *CartHandler) GetCart(c echo.Context) error {
	caller := middleware.CurrentUser(c)

	var items []models.CartItem
	if err := h.DB.Where("user_id = ?", caller.ID).Find(&items).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	var req struct {
		ProductID uint `json:"product_id" validate:"required"`
		Quantity  uint `json:"quantity"   validate:"omitempty,gt=0"`
	}
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_body", "cannot parse request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	var product models.Product
	if err := h.DB.First(&product, req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apiError(c, http.StatusNotFound, "not_found", "product not found")
		}
		return err
	}

	caller := middleware.CurrentUser(c)

	var item models.CartItem
	err := h.DB.Where("user_id = ? AND product_id = ?", caller.ID, req.ProductID).First(&item).Error
	switch {
	case err == nil:
		item.Quantity += req.Quantity
		if err := h.DB.Save(&item).Error; err != nil {
			return err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		item = models.CartItem{UserID: caller.ID, ProductID: req.ProductID, Quantity: req.Quantity}
		if err := h.DB.Create(&item).Error; err != nil {
			return err
		}
	default:
		return err
	}

	return c.JSON(http.StatusOK, item)
}

func (h *CartHandler) DeleteOneFromCart(c echo.Context) error {
	return h.removeFromCart(c, false)
}

func (h *CartHandler) DeleteAllFromCart(c echo.Context) error {
	return h.removeFromCart(c, true)
}

func (h *CartHandler) removeFromCart(c echo.Context, all bool) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_id", "cart item id must be numeric")
	}

	var item models.CartItem
	if err := h.DB.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apiError(c, http.StatusNotFound, "not_found", "cart item not found")
		}
		return err
	}

	if !authz.OwnerOrAdmin(middleware.CurrentUser(c), item) {
		return apiError(c, http.StatusForbidden, "forbidden", "not enough rights")
	}

	if !all && item.Quantity > 1 {
		item.Quantity--
		if err := h.DB.Save(&item).Error; err != nil {
			return err
		}
		return c.JSON(http.StatusOK, item)
	}

	if err := h.DB.Delete(&item).Error; err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
