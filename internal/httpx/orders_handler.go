package httpx

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sudarma/go-commerce-bus/internal/errs"
	"github.com/sudarma/go-commerce-bus/internal/orders"
)

// OrderCreator is the order creation workflow.
type OrderCreator interface {
	Create(ctx context.Context, userID string, items []orders.NewOrderItem) (*orders.Order, error)
}

// OrderLedger is the read/status side of the ledger used by the handlers.
type OrderLedger interface {
	GetOrder(ctx context.Context, id string) (*orders.Order, error)
	ListOrders(ctx context.Context) ([]orders.Order, error)
	UpdateStatus(ctx context.Context, id string, to orders.Status) (*orders.Order, error)
}

type OrdersHandler struct {
	Flow   OrderCreator
	Ledger OrderLedger
	Log    *zap.Logger
}

type createOrderItemReq struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type createOrderReq struct {
	UserID string               `json:"userId"`
	Items  []createOrderItemReq `json:"items"`
}

type updateStatusReq struct {
	Status string `json:"status"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Post("/", h.createOrder)
		r.Get("/", h.listOrders)
		r.Get("/{id}", h.getOrder)
		r.Patch("/{id}/status", h.updateStatus)
	})
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, errs.Validationf("invalid json: %v", err))
		return
	}

	items := make([]orders.NewOrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, orders.NewOrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}

	o, err := h.Flow.Create(r.Context(), req.UserID, items)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.Ledger.ListOrders(r.Context())
	if err != nil {
		h.Log.Error("list orders", zap.Error(err))
		writeErr(w, err)
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Ledger.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, errs.Validationf("invalid json: %v", err))
		return
	}
	to := orders.Status(req.Status)
	if !to.Valid() {
		writeErr(w, errs.Validationf("unknown status %q", req.Status))
		return
	}
	o, err := h.Ledger.UpdateStatus(r.Context(), chi.URLParam(r, "id"), to)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
