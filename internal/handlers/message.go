package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/bazaarmate/backend/internal/middleware"
	"github.com/bazaarmate/backend/internal/models"
)

type MessageHandler struct {
	DB *gorm.DB
}

func (h *MessageHandler) SendMessage(c echo.Context) error {
	var req struct {
		ReceiverID uint   `json:"receiver_id" validate:"required"`
		OrderID    *uint  `json:"order_id"`
		Content    string `json:"content"     validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_body", "cannot parse request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	caller := middleware.CurrentUser(c)
	if req.ReceiverID == caller.ID {
		return apiError(c, http.StatusBadRequest, "invalid_receiver", "cannot message yourself")
	}

	var receiver models.User
	if err := h.DB.First(&receiver, req.ReceiverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apiError(c, http.StatusNotFound, "not_found", "receiver not found")
		}
		return err
	}

	msg := models.Message{
		SenderID:   caller.ID,
		ReceiverID: req.ReceiverID,
		OrderID:    req.OrderID,
		Content:    req.Content,
	}
	if err := h.DB.Create(&msg).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, msg)
}

// ListMessages returns every message the caller sent or received, oldest
// first, matching the conversation ordering of the UI.
func (h *MessageHandler) ListMessages(c echo.Context) error {
	caller := middleware.CurrentUser(c)

	var msgs []models.Message
	err := h.DB.
		Where("sender_id = ? OR receiver_id = ?", caller.ID, caller.ID).
		Order("created_at ASC").
		Find(&msgs).Error
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": msgs})
}

func (h *MessageHandler) MarkRead(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apiError(c, http.StatusBadRequest, "invalid_id", "message id must be numeric")
	}

	var msg models.Message
	if err := h.DB.First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apiError(c, http.StatusNotFound, "not_found", "message not found")
		}
		return err
	}

	// Only the receiver marks a message read.
	if msg.ReceiverID != middleware.CurrentUser(c).ID {
		return apiError(c, http.StatusForbidden, "forbidden", "not enough rights")
	}

	msg.Read = true
	if err := h.DB.Save(&msg).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, msg)
}
