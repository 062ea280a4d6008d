// Package catalog serves the read-only product list the storefront sells.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

//go:embed products.json
var productsJSON []byte

// Catalog looks products up by id. It is immutable after construction.
type Catalog struct {
	products []models.Product
	byID     map[string]*models.Product
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	var products []models.Product
	if err := json.Unmarshal(productsJSON, &products); err != nil {
		return nil, fmt.Errorf("decode embedded catalog: %w", err)
	}
	return New(products), nil
}

// New builds a catalog from products. Later duplicates of an id are ignored.
func New(products []models.Product) *Catalog {
	c := &Catalog{byID: make(map[string]*models.Product, len(products))}
	seen := make(map[string]bool, len(products))
	for _, p := range products {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		c.products = append(c.products, p)
	}
	for i := range c.products {
		c.byID[c.products[i].ID] = &c.products[i]
	}
	return c
}

// Find returns the product with id, or false.
func (c *Catalog) Find(id string) (models.Product, bool) {
	p, ok := c.byID[id]
	if !ok {
		return models.Product{}, false
	}
	return *p, true
}

// All returns a copy of every product in catalog order.
func (c *Catalog) All() []models.Product {
	out := make([]models.Product, len(c.products))
	copy(out, c.products)
	return out
}
