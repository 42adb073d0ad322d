package catalog

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiltersFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&limit=500&search=%20bolt%20&supplier_id=4&low_stock=true&dir=desc", nil)
	f, err := FiltersFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, 3, f.Page)
	assert.Equal(t, MaxLimit, f.Limit)
	assert.Equal(t, "bolt", f.Search)
	require.NotNil(t, f.SupplierID)
	assert.Equal(t, int64(4), *f.SupplierID)
	assert.True(t, f.LowStock)
	assert.Equal(t, 400, f.Offset())

	_, err = FiltersFromRequest(httptest.NewRequest(http.MethodGet, "/?page=x", nil))
	require.Error(t, err)
}

func TestSortOrderWhitelist(t *testing.T) {
	allowed := map[string]string{"name": "p.name"}
	assert.Equal(t, "p.name DESC", SortOrder("name", "desc", allowed, "p.id"))
	assert.Equal(t, "p.id ASC", SortOrder("name; DROP TABLE", "", allowed, "p.id"))
}

func TestWhereBuilder(t *testing.T) {
	var w Where
	assert.Empty(t, w.SQL())
	w.Add("status = $%d", "active")
	w.Add("(name ILIKE $%d OR sku ILIKE $%d)", "%x%")
	assert.Equal(t, " WHERE status = $1 AND (name ILIKE $2 OR sku ILIKE $2)", w.SQL())
	assert.Equal(t, "$3", w.Next(10))
	assert.Len(t, w.Args, 3)
}
