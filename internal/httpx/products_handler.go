package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sudarma/go-commerce-bus/internal/bus"
	"github.com/sudarma/go-commerce-bus/internal/catalog"
	"github.com/sudarma/go-commerce-bus/internal/errs"
	"github.com/sudarma/go-commerce-bus/internal/events"
)

const (
	productCacheKey = "product:%s"
	productCacheTTL = time.Minute
)

// ProductCatalog is the catalog store surface used by the handlers.
type ProductCatalog interface {
	ListActive(ctx context.Context) ([]catalog.Product, error)
	Get(ctx context.Context, id string) (*catalog.Product, error)
	Create(ctx context.Context, p *catalog.Product) error
	Update(ctx context.Context, id string, upd catalog.ProductUpdate) (*catalog.Product, error)
	SoftDelete(ctx context.Context, id string) error
}

// ProductsHandler serves the catalog CRUD surface. Mutations feed the core:
// updates publish product-updated and soft-deletes publish product-deleted,
// best-effort after the local write commits.
type ProductsHandler struct {
	Catalog ProductCatalog
	Bus     bus.Publisher
	Redis   *redis.Client
	Log     *zap.Logger
}

type createProductReq struct {
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	ImageURL    *string         `json:"imageUrl,omitempty"`
}

type updateProductReq struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Stock       *int             `json:"stock,omitempty"`
	Category    *string          `json:"category,omitempty"`
	ImageURL    *string          `json:"imageUrl,omitempty"`
}

func (h *ProductsHandler) Register(r *chi.Mux) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Get("/{id}", h.getProduct)
		r.Post("/", h.createProduct)
		r.Put("/{id}", h.updateProduct)
		r.Delete("/{id}", h.deleteProduct)
	})
}

func (h *ProductsHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	list, err := h.Catalog.ListActive(r.Context())
	if err != nil {
		h.Log.Error("list products", zap.Error(err))
		writeErr(w, err)
		return
	}
	if list == nil {
		list = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ProductsHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	key := fmt.Sprintf(productCacheKey, id)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	p, err := h.Catalog.Get(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if h.Redis != nil {
		if b, err := json.Marshal(p); err == nil {
			_ = h.Redis.Set(ctx, key, b, productCacheTTL).Err()
		}
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, errs.Validationf("invalid json: %v", err))
		return
	}
	if req.Name == "" || req.Category == "" {
		writeErr(w, errs.Validationf("name and category are required"))
		return
	}
	if !req.Price.IsPositive() {
		writeErr(w, errs.Validationf("price must be a positive number"))
		return
	}
	if req.Stock < 0 {
		writeErr(w, errs.Validationf("stock must be non-negative"))
		return
	}

	p := &catalog.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	}
	if err := h.Catalog.Create(r.Context(), p); err != nil {
		h.Log.Error("create product", zap.Error(err))
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProductsHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req updateProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, errs.Validationf("invalid json: %v", err))
		return
	}
	if req.Price != nil && !req.Price.IsPositive() {
		writeErr(w, errs.Validationf("price must be a positive number"))
		return
	}

	p, err := h.Catalog.Update(r.Context(), id, catalog.ProductUpdate{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	h.invalidateCache(r.Context(), id)

	// Best effort: the row is already committed, a failed publish is logged
	// and never rolls it back.
	payload := events.MustMarshal(events.ProductUpdated{
		ProductID: p.ID,
		Name:      req.Name,
		Price:     req.Price,
		Stock:     req.Stock,
	})
	if err := h.Bus.Publish(r.Context(), bus.NewMessage(bus.TopicProductUpdated, p.ID, payload)); err != nil {
		h.Log.Error("publish product-updated", zap.String("product_id", p.ID), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Catalog.SoftDelete(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	h.invalidateCache(r.Context(), id)

	payload := events.MustMarshal(events.ProductDeleted{ProductID: id})
	if err := h.Bus.Publish(r.Context(), bus.NewMessage(bus.TopicProductDeleted, id, payload)); err != nil {
		h.Log.Error("publish product-deleted", zap.String("product_id", id), zap.Error(err))
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductsHandler) invalidateCache(ctx context.Context, id string) {
	if h.Redis == nil {
		return
	}
	_ = h.Redis.Del(ctx, fmt.Sprintf(productCacheKey, id)).Err()
}
