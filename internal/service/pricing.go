package service

import (
	"fmt"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/apperrors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

// ProductCatalog looks up sellable products.
type ProductCatalog interface {
	Find(id string) (models.Product, bool)
	All() []models.Product
}

// PriceCart turns cart lines into order items using catalog prices and
// returns the order total. Client-supplied prices never reach this point.
func PriceCart(catalog ProductCatalog, cart []models.CartItem) ([]models.OrderItem, int64, error) {
	items := make([]models.OrderItem, 0, len(cart))
	for i, line := range cart {
		product, ok := catalog.Find(line.ProductID)
		if !ok {
			return nil, 0, apperrors.UnknownProduct(line.ProductID)
		}
		if len(product.Sizes) > 0 && !product.HasSize(line.Size) {
			return nil, 0, apperrors.NewValidationError(
				fmt.Sprintf("items[%d].size", i),
				fmt.Sprintf("size %q is not available for %s", line.Size, product.Name),
			)
		}
		item := models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  line.Quantity,
			Size:      line.Size,
		}
		if _, ok := item.LineTotal(); !ok {
			return nil, 0, apperrors.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "line total is out of range")
		}
		items = append(items, item)
	}

	total, ok := models.SumItems(items)
	if !ok {
		return nil, 0, apperrors.NewValidationError("items", "order total is out of range")
	}
	return items, total, nil
}
