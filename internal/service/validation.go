package service

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/apperrors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

// ValidateCheckoutRequest checks the cart shape and customer details. It does
// not consult the catalog.
func ValidateCheckoutRequest(req *models.CheckoutRequest) error {
	if req == nil || len(req.Items) == 0 {
		return apperrors.NewValidationError("items", "cart cannot be empty")
	}

	if err := validateCustomer(&req.Customer); err != nil {
		return err
	}

	for i, item := range req.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return apperrors.NewValidationError(fmt.Sprintf("items[%d].id", i), "product id is required")
		}
		if item.Quantity < 1 {
			return apperrors.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "quantity must be at least 1")
		}
		if item.Quantity > models.MaxItemQuantity {
			return apperrors.NewValidationError(
				fmt.Sprintf("items[%d].quantity", i),
				fmt.Sprintf("quantity must be at most %d", models.MaxItemQuantity),
			)
		}
	}

	return nil
}

func validateCustomer(c *models.CustomerInfo) error {
	required := []struct {
		field string
		value string
	}{
		{"fullName", c.FullName},
		{"email", c.Email},
		{"phone", c.Phone},
		{"address", c.Address},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return apperrors.NewValidationError(r.field, "Missing "+r.field)
		}
	}

	addr, err := mail.ParseAddress(strings.TrimSpace(c.Email))
	if err != nil || addr.Name != "" {
		return apperrors.NewValidationError("email", "email address is not valid")
	}

	return nil
}

// ParseStatus validates a status string against the known statuses.
func ParseStatus(s string) (models.OrderStatus, error) {
	status := models.OrderStatus(strings.TrimSpace(s))
	if !status.Valid() {
		return "", fmt.Errorf("%w: status must be one of pending, paid, failed", apperrors.ErrInvalidStatus)
	}
	return status, nil
}
