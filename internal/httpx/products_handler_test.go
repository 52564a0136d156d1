package httpx_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sudarma/go-commerce-bus/internal/bus"
	"github.com/sudarma/go-commerce-bus/internal/catalog"
	"github.com/sudarma/go-commerce-bus/internal/errs"
	"github.com/sudarma/go-commerce-bus/internal/events"
	"github.com/sudarma/go-commerce-bus/internal/httpx"
	"github.com/sudarma/go-commerce-bus/internal/mocks"
)

type fakeCatalog struct {
	products map[string]*catalog.Product
}

func (f *fakeCatalog) ListActive(context.Context) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, p := range f.products {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeCatalog) Get(_ context.Context, id string) (*catalog.Product, error) {
	if p, ok := f.products[id]; ok {
		return p, nil
	}
	return nil, errs.NotFound("product", id)
}

func (f *fakeCatalog) Create(_ context.Context, p *catalog.Product) error {
	p.ID = "p-new"
	p.IsActive = true
	f.products[p.ID] = p
	return nil
}

func (f *fakeCatalog) Update(_ context.Context, id string, upd catalog.ProductUpdate) (*catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, errs.NotFound("product", id)
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if upd.Stock != nil {
		p.Stock = *upd.Stock
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	return p, nil
}

func (f *fakeCatalog) SoftDelete(_ context.Context, id string) error {
	p, ok := f.products[id]
	if !ok {
		return errs.NotFound("product", id)
	}
	p.IsActive = false
	return nil
}

func newProductsServer(t *testing.T, cat *fakeCatalog, pub *mocks.MockPublisher) *httptest.Server {
	t.Helper()
	h := &httpx.ProductsHandler{Catalog: cat, Bus: pub, Log: zap.NewNop()}
	r := httpx.NewRouter("products-service")
	h.Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func seededCatalog() *fakeCatalog {
	return &fakeCatalog{products: map[string]*catalog.Product{
		"p1": {ID: "p1", Name: "widget", Price: decimal.RequireFromString("5.00"),
			Stock: 20, Category: "tools", IsActive: true},
	}}
}

func TestUpdateProductPublishesProductUpdated(t *testing.T) {
	pub := new(mocks.MockPublisher)
	var sent bus.Message
	pub.On("Publish", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(bus.Message) }).
		Return(nil)
	srv := newProductsServer(t, seededCatalog(), pub)

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/products/p1",
		strings.NewReader(`{"price":"6.50","stock":4}`))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Equal(t, bus.TopicProductUpdated, sent.Topic)
	ev, err := events.DecodeProductUpdated(sent.Payload)
	require.NoError(t, err)
	assert.Equal(t, "p1", ev.ProductID)
	require.NotNil(t, ev.Price)
	assert.Equal(t, "6.5", ev.Price.String())
	require.NotNil(t, ev.Stock)
	assert.Equal(t, 4, *ev.Stock)
	assert.Nil(t, ev.Name)
}

func TestDeleteProductSoftDeletesAndPublishes(t *testing.T) {
	pub := new(mocks.MockPublisher)
	var sent bus.Message
	pub.On("Publish", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(bus.Message) }).
		Return(nil)
	cat := seededCatalog()
	srv := newProductsServer(t, cat, pub)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/products/p1", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.False(t, cat.products["p1"].IsActive, "row kept, only deactivated")
	require.Equal(t, bus.TopicProductDeleted, sent.Topic)
	ev, err := events.DecodeProductDeleted(sent.Payload)
	require.NoError(t, err)
	assert.Equal(t, "p1", ev.ProductID)
}

func TestPublishFailureDoesNotFailTheRequest(t *testing.T) {
	pub := new(mocks.MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(assert.AnError)
	srv := newProductsServer(t, seededCatalog(), pub)

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/products/p1",
		strings.NewReader(`{"price":"6.50"}`))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	// the row is committed; the event is best effort
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateProductValidation(t *testing.T) {
	pub := new(mocks.MockPublisher)
	srv := newProductsServer(t, seededCatalog(), pub)

	for _, body := range []string{
		`{"name":"","price":"5.00","stock":1,"category":"c"}`,
		`{"name":"x","price":"0","stock":1,"category":"c"}`,
		`{"name":"x","price":"5.00","stock":-1,"category":"c"}`,
	} {
		resp, err := http.Post(srv.URL+"/api/products", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body: %s", body)
	}

	resp, err := http.Post(srv.URL+"/api/products", "application/json",
		strings.NewReader(`{"name":"x","price":"5.00","stock":1,"category":"c"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var p catalog.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	assert.Equal(t, "p-new", p.ID)
	assert.True(t, p.IsActive)
}

func TestListProductsExcludesInactive(t *testing.T) {
	cat := seededCatalog()
	cat.products["p2"] = &catalog.Product{ID: "p2", Name: "gone", IsActive: false}
	srv := newProductsServer(t, cat, new(mocks.MockPublisher))

	resp, err := http.Get(srv.URL + "/api/products")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []catalog.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "p1", list[0].ID)
}
