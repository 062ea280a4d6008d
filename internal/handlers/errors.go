package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/apperrors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
)

func handleError(c *gin.Context, err error) {
	writeError(c, err, "")
}

// writeError maps err onto a status code and the {error, field, details,
// orderId} body. orderID is included when an order already exists.
func writeError(c *gin.Context, err error, orderID string) {
	status, body := errorResponse(err)
	if orderID != "" {
		body["orderId"] = orderID
	}
	if status >= http.StatusInternalServerError {
		logging.NewLogger("handlers").Error("Request failed", logging.Fields{
			"path":       c.FullPath(),
			"status":     status,
			"request_id": logging.RequestIDFromContext(c.Request.Context()),
			"error":      err.Error(),
		})
	}
	c.JSON(status, body)
}

func errorResponse(err error) (int, gin.H) {
	var validationErr *apperrors.ValidationError
	if errors.As(err, &validationErr) {
		body := gin.H{"error": validationErr.Message}
		if validationErr.Field != "" {
			body["field"] = validationErr.Field
		}
		return http.StatusBadRequest, body
	}

	var gatewayErr *apperrors.GatewayError
	if errors.As(err, &gatewayErr) {
		body := gin.H{"error": gatewayErr.Message}
		if len(gatewayErr.Detail) > 0 {
			body["details"] = providerDetail(gatewayErr.Detail)
		}
		if gatewayErr.Kind == apperrors.GatewayRejected {
			return http.StatusUnprocessableEntity, body
		}
		return http.StatusServiceUnavailable, body
	}

	switch {
	case errors.Is(err, apperrors.ErrUnknownProduct),
		errors.Is(err, apperrors.ErrInvalidStatus),
		errors.Is(err, apperrors.ErrInvalidTransition),
		errors.Is(err, apperrors.ErrMalformedPayload):
		return http.StatusBadRequest, gin.H{"error": err.Error()}
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, gin.H{"error": "unauthorized"}
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, gin.H{"error": "order not found"}
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, gin.H{"error": err.Error()}
	}

	return http.StatusInternalServerError, gin.H{"error": "internal server error"}
}

// providerDetail passes JSON provider bodies through as objects and anything
// else as a string.
func providerDetail(detail []byte) interface{} {
	if json.Valid(detail) {
		return json.RawMessage(detail)
	}
	return string(detail)
}
