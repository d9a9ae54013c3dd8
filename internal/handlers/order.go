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
	"github.com/bazaarmate/backend/pkg/logging"
)

type OrderHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
}

// MakeOrder converts the caller's cart into an order inside one transaction:
// price is captured per line at order time and the cart is cleared.
func (h *OrderHandler) MakeOrder(c echo.Context) error {
	caller := middleware.CurrentUser(c)

	var order models.Order
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var items []models.CartItem
		if err := tx.Where("user_id = ?", caller.ID).Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return gorm.ErrRecordNotFound
		}

		order = models.Order{UserID: caller.ID, Status: "new"}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		var total float64
		for _, item := range items {
			var product models.Product
			if err := tx.First(&product, item.ProductID).Error; err != nil {
				return err
			}
			line := models.OrderItem{
				OrderID:   order.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     product.Price,
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
			total += product.Price * float64(item.Quantity)
		}

		order.Total = total
		if err := tx.Save(&order).Error; err != nil {
			return err
		}

		return tx.Where("user_id = ?", caller.ID).Delete(&models.CartItem{}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apiError(c, http.StatusBadRequest, "empty_cart", "cart is empty")
		}
		return err
	}

	h.publishOrder(c, map[string]any{"type": "order_created", "order_id": order.ID, "user_id": caller.ID, "total": order.Total})
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) GetOrders(c echo.Context) error {
	caller := middleware.CurrentUser(c)

	var orders []models.Order
	if err := h.DB.Where("user_id = ?", caller.ID).Order("id DESC").Find(&orders).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_id", "order id must be numeric")
	}

	var order models.Order
	if err := h.DB.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apiError(c, http.StatusNotFound, "not_found", "order not found")
		}
		return err
	}

	if !authz.OwnerOrAdmin(middleware.CurrentUser(c), order) {
		return apiError(c, http.StatusForbidden, "forbidden", "not enough rights")
	}

	var items []models.OrderItem
	if err := h.DB.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"order": order, "items": items})
}

func (h *OrderHandler) publishOrder(c echo.Context, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.Publish(ctx, "order_events", fmt.Sprint(event["order_id"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}
