package suppliers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sioms/sioms/internal/catalog"
	"github.com/sioms/sioms/internal/shared"
)

type memoryRepo struct {
	suppliers map[int64]Supplier
	products  map[int64][]SupplierProduct
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{suppliers: map[int64]Supplier{}, products: map[int64][]SupplierProduct{}}
}

func (r *memoryRepo) List(_ context.Context, _ catalog.ListFilters) ([]Supplier, int, error) {
	var out []Supplier
	for _, s := range r.suppliers {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(_ context.Context, id int64) (Supplier, error) {
	s, ok := r.suppliers[id]
	if !ok {
		return Supplier{}, &shared.NotFoundError{Entity: "supplier", ID: id}
	}
	return s, nil
}

func (r *memoryRepo) Create(_ context.Context, s Supplier) (Supplier, error) {
	r.nextID++
	s.ID = r.nextID
	r.suppliers[s.ID] = s
	return s, nil
}

func (r *memoryRepo) Update(_ context.Context, id int64, s Supplier) (Supplier, error) {
	if _, ok := r.suppliers[id]; !ok {
		return Supplier{}, &shared.NotFoundError{Entity: "supplier", ID: id}
	}
	s.ID = id
	r.suppliers[id] = s
	return s, nil
}

func (r *memoryRepo) Delete(_ context.Context, id int64) error {
	delete(r.suppliers, id)
	return nil
}

func (r *memoryRepo) CountProducts(_ context.Context, id int64) (int, error) {
	return len(r.products[id]), nil
}

func (r *memoryRepo) Products(_ context.Context, id int64) ([]SupplierProduct, error) {
	return r.products[id], nil
}

func TestCreateDefaultsStatus(t *testing.T) {
	svc := NewService(newMemoryRepo())

	s, err := svc.Create(context.Background(), SupplierRequest{Name: " Acme ", Email: "sales@acme.test"})
	require.NoError(t, err)
	assert.Equal(t, "Acme", s.Name)
	assert.Equal(t, "active", s.Status)

	_, err = svc.Create(context.Background(), SupplierRequest{Name: "Bad", Email: "not-an-email"})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
}

func TestDeleteRejectedWhileProductsReferenceSupplier(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	s, err := svc.Create(ctx, SupplierRequest{Name: "Acme"})
	require.NoError(t, err)
	repo.products[s.ID] = []SupplierProduct{{ID: 1, Name: "Widget"}, {ID: 2, Name: "Gadget"}}

	err = svc.Delete(ctx, s.ID)
	require.ErrorIs(t, err, shared.ErrReferentialIntegrity)
	var ri *shared.ReferentialIntegrityError
	require.ErrorAs(t, err, &ri)
	assert.Equal(t, 2, ri.Count)
	assert.Contains(t, repo.suppliers, s.ID)

	delete(repo.products, s.ID)
	require.NoError(t, svc.Delete(ctx, s.ID))
	assert.NotContains(t, repo.suppliers, s.ID)

	require.ErrorIs(t, svc.Delete(ctx, s.ID), shared.ErrNotFound)
}

func TestHandlerDeleteConflict(t *testing.T) {
	repo := newMemoryRepo()
	repo.suppliers[1] = Supplier{ID: 1, Name: "Acme"}
	repo.products[1] = []SupplierProduct{{ID: 9}}

	r := chi.NewRouter()
	r.Route("/suppliers", NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(repo)).MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/suppliers/1", nil))
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "referential-integrity")

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/suppliers", strings.NewReader(`{"name":"Globex"}`)))
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/suppliers/1/products", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"id":9`)
}
