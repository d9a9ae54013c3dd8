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

type ReviewHandler struct {
	DB *gorm.DB
}

func (h *ReviewHandler) CreateReview(c echo.Context) error {
	var req struct {
		ProductID uint   `json:"product_id" validate:"required"`
		Rating    int    `json:"rating"     validate:"required,min=1,max=5"`
		Comment   string `json:"comment"`
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

	review := models.Review{
		UserID:    middleware.CurrentUser(c).ID,
		ProductID: req.ProductID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	if err := h.DB.Create(&review).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, review)
}

func (h *ReviewHandler) ListByProduct(c echo.Context) error {
	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_id", "product id must be numeric")
	}

	var reviews []models.Review
	if err := h.DB.Where("product_id = ?", productID).Order("id DESC").Find(&reviews).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"reviews": reviews})
}

func (h *ReviewHandler) PatchReview(c echo.Context) error {
	review, err := h.ownedReview(c)
	if review == nil {
		return err
	}

	var req struct {
		Rating  *int    `json:"rating" validate:"omitempty,min=1,max=5"`
		Comment *string `json:"comment"`
	}
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_body", "cannot parse request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if req.Rating != nil {
		review.Rating = *req.Rating
	}
	if req.Comment != nil {
		review.Comment = *req.Comment
	}

	if err := h.DB.Save(review).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, review)
}

func (h *ReviewHandler) DeleteReview(c echo.Context) error {
	review, err := h.ownedReview(c)
	if review == nil {
		return err
	}

	if err := h.DB.Delete(review).Error; err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ReviewHandler) ownedReview(c echo.Context) (*models.Review, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return nil, apiError(c, http.StatusBadRequest, "invalid_id", "review id must be numeric")
	}

	var review models.Review
	if err := h.DB.First(&review, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError(c, http.StatusNotFound, "not_found", "review not found")
		}
		return nil, err
	}

	if !authz.OwnerOrAdmin(middleware.CurrentUser(c), review) {
		return nil, apiError(c, http.StatusForbidden, "forbidden", "not enough rights")
	}
	return &review, nil
}
