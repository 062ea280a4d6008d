package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

// Checkout handles POST /api/checkout
func (h *Handlers) Checkout(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind checkout request", logging.Fields{"error": err.Error()})
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.checkoutService.SubmitCheckout(c.Request.Context(), &req)
	if err != nil {
		orderID := ""
		if result != nil {
			orderID = result.OrderID
		}
		writeError(c, err, orderID)
		return
	}

	c.JSON(http.StatusCreated, result)
}
