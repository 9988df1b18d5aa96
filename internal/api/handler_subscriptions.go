package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storepulse/internal/model"
	"storepulse/internal/store"
)

type putSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
}

// PutSubscription registers a browser for report completion pushes.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	sub := model.PushSubscription{
		Endpoint: req.Endpoint,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}
	if err := h.subs.UpsertSubscription(c.Request.Context(), &sub); err != nil {
		h.logger.Error("failed to save subscription", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "an error occurred"})
		return
	}

	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription handles the deletion of a subscription.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.subs.DeleteSubscription(c.Request.Context(), req.Endpoint); err != nil {
		h.logger.Error("failed to delete subscription", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "an error occurred"})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetSubscription tells a browser whether its endpoint is registered.
func (h *Handler) GetSubscription(c *gin.Context) {
	endpoint := c.Query("endpoint")
	if endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint is required"})
		return
	}

	sub, err := h.subs.GetSubscription(c.Request.Context(), endpoint)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to load subscription", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "an error occurred"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"endpoint": sub.Endpoint, "created_at": sub.CreatedAt})
}
