package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CallbackTokenHeader carries the provider's shared webhook secret.
const CallbackTokenHeader = "X-Callback-Token"

// PaymentWebhook handles POST /api/payment/webhook
//
// Anything other than 2xx makes the provider retry, so only bad credentials,
// unreadable payloads and store failures are reported as errors.
func (h *Handlers) PaymentWebhook(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read request body"})
		return
	}

	if err := h.paymentService.HandleWebhook(c.Request.Context(), c.GetHeader(CallbackTokenHeader), raw); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
