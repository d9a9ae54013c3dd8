package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/bazaarmate/backend/internal/middleware"
	"github.com/bazaarmate/backend/internal/models"
)

type PayoutHandler struct {
	DB *gorm.DB
}

func (h *PayoutHandler) ListPayouts(c echo.Context) error {
	caller := middleware.CurrentUser(c)

	q := h.DB.Order("id DESC")
	if caller.Role != models.RoleAdmin {
		q = q.Where("seller_id = ?", caller.ID)
	}

	var payouts []models.Payout
	if err := q.Find(&payouts).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"payouts": payouts})
}

// RequestPayout creates a pending payout against the seller's accumulated
// earnings.
func (h *PayoutHandler) RequestPayout(c echo.Context) error {
	var req struct {
		Amount float64 `json:"amount" validate:"required,gt=0"`
	}
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_body", "cannot parse request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	caller := middleware.CurrentUser(c)

	var profile models.SellerProfile
	if err := h.DB.Where("user_id = ?", caller.ID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apiError(c, http.StatusNotFound, "not_found", "seller profile not found")
		}
		return err
	}
	if req.Amount > profile.Earnings {
		return apiError(c, http.StatusBadRequest, "insufficient_earnings", "payout exceeds available earnings")
	}

	payout := models.Payout{
		SellerID:      caller.ID,
		Amount:        req.Amount,
		Status:        models.PayoutPending,
		TransactionID: uuid.NewString(),
	}
	if err := h.DB.Create(&payout).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, payout)
}

// ProcessPayout moves a payout through its lifecycle. Admin only (enforced
// by the route group).
func (h *PayoutHandler) ProcessPayout(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_id", "payout id must be numeric")
	}

	var req struct {
		Status string `json:"status" validate:"required,oneof=processing completed failed"`
	}
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_body", "cannot parse request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var payout models.Payout
	if err := h.DB.First(&payout, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apiError(c, http.StatusNotFound, "not_found", "payout not found")
		}
		return err
	}

	payout.Status = req.Status
	if req.Status == models.PayoutCompleted || req.Status == models.PayoutFailed {
		now := time.Now().UTC()
		payout.ProcessedAt = &now
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&payout).Error; err != nil {
			return err
		}
		if req.Status == models.PayoutCompleted {
			return tx.Model(&models.SellerProfile{}).
				Where("user_id = ?", payout.SellerID).
				Update("earnings", gorm.Expr("earnings - ?", payout.Amount)).Error
		}
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, payout)
}
