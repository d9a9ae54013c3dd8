package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/bazaarmate/backend/internal/authz"
	"github.com/bazaarmate/backend/internal/events"
	"github.com/bazaarmate/backend/internal/middleware"
	"github.com/bazaarmate/backend/internal/models"
	"github.com/bazaarmate/backend/internal/util"
	"github.com/bazaarmate/backend/pkg/logging"
)

type ProductHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
}

func (h *ProductHandler) publish(c echo.Context, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.Publish(ctx, "product_events", fmt.Sprint(event["product_id"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_id", "product id must be numeric")
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apiError(c, http.StatusNotFound, "not_found", "product not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.Model(&models.Product{}).Count(&total).Error; err != nil {
		return err
	}

	var items []models.Product
	if err := h.DB.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": items,
		"meta": echo.Map{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req struct {
		Name        string  `json:"name"        validate:"required"`
		Description string  `json:"description" validate:"required"`
		Price       float64 `json:"price"       validate:"required,gt=0"`
		Count       uint    `json:"count"`
	}
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_body", "cannot parse request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	caller := middleware.CurrentUser(c)
	prod := models.Product{
		SellerID:    caller.ID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Count:       req.Count,
	}
	if err := h.DB.Create(&prod).Error; err != nil {
		return err
	}

	h.publish(c, map[string]any{"type": "product_created", "product_id": prod.ID, "seller_id": prod.SellerID})
	return c.JSON(http.StatusCreated, prod)
}

func (h *ProductHandler) PatchProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_id", "product id must be numeric")
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apiError(c, http.StatusNotFound, "not_found", "product not found")
		}
		return err
	}

	if !authz.OwnerOrAdmin(middleware.CurrentUser(c), prod) {
		return apiError(c, http.StatusForbidden, "forbidden", "not enough rights")
	}

	var req struct {
		Name        *string  `json:"name"`
		Description *string  `json:"description"`
		Price       *float64 `json:"price" validate:"omitempty,gt=0"`
		Count       *uint    `json:"count"`
	}
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_body", "cannot parse request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if req.Name != nil {
		prod.Name = *req.Name
	}
	if req.Description != nil {
		prod.Description = *req.Description
	}
	if req.Price != nil {
		prod.Price = *req.Price
	}
	if req.Count != nil {
		prod.Count = *req.Count
	}

	if err := h.DB.Save(&prod).Error; err != nil {
		return err
	}

	h.publish(c, map[string]any{"type": "product_updated", "product_id": prod.ID})
	return c.JSON(http.StatusOK, prod)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_id", "product id must be numeric")
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apiError(c, http.StatusNotFound, "not_found", "product not found")
		}
		return err
	}

	if !authz.OwnerOrAdmin(middleware.CurrentUser(c), prod) {
		return apiError(c, http.StatusForbidden, "forbidden", "not enough rights")
	}

	if err := h.DB.Delete(&models.Product{}, id).Error; err != nil {
		return err
	}

	h.publish(c, map[string]any{"type": "product_deleted", "product_id": id})
	return c.NoContent(http.StatusNoContent)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
