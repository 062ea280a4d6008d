package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

func TestDefault_LoadsEmbeddedProducts(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	all := c.All()
	require.Len(t, all, 9)

	tee, ok := c.Find("tee-classic")
	require.True(t, ok)
	assert.Equal(t, int64(999), tee.Price)
	assert.True(t, tee.HasSize("M"))
	assert.False(t, tee.HasSize("XXL"))
}

func TestFind_Unknown(t *testing.T) {
	c := New([]models.Product{{ID: "a", Price: 1}})
	_, ok := c.Find("b")
	assert.False(t, ok)
}

func TestNew_IgnoresDuplicatesAndCopies(t *testing.T) {
	c := New([]models.Product{
		{ID: "a", Price: 1},
		{ID: "a", Price: 2},
	})

	all := c.All()
	require.Len(t, all, 1)
	all[0].Price = 100

	p, _ := c.Find("a")
	assert.Equal(t, int64(1), p.Price)
}
