package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/resale/internal/auth"
	"github.com/erazemk/resale/internal/model"
	"github.com/erazemk/resale/internal/store"
)

// OrdersHandler handles order placement and status transitions.
type OrdersHandler struct {
	DB *sql.DB
}

type updateOrderRequest struct {
	ShippingAddress string `json:"shippingAddress"`
}

// visible reports whether claims may see order.
func visible(claims *auth.Claims, order *model.Order) bool {
	switch claims.Role {
	case model.RoleAdmin:
		return true
	case model.RolePartner:
		return order.HasPartner(claims.UserID)
	default:
		return order.CustomerID == claims.UserID
	}
}

// Create handles POST /api/orders.
func (h *OrdersHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req model.OrderRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	lines := make([]store.OrderLineInput, len(req.Items))
	for i, l := range req.Items {
		lines[i] = store.OrderLineInput{ItemID: l.ItemID, Quantity: l.Qty}
	}

	order, err := store.CreateOrder(r.Context(), h.DB, claims.UserID, lines, req.ShippingAddress)
	if err != nil {
		storeError(w, err, "failed to place order")
		return
	}

	slog.Info("order placed", "user", claims.Email, "order", order.ID, "total", order.TotalAmount.String())
	jsonResponse(w, http.StatusCreated, order)
}

// List handles GET /api/orders, scoped to the caller.
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	f := store.OrderFilter{Status: r.URL.Query().Get("status")}
	switch claims.Role {
	case model.RoleCustomer:
		f.CustomerID = claims.UserID
	case model.RolePartner:
		f.PartnerID = claims.UserID
	}

	orders, err := store.ListOrders(r.Context(), h.DB, f)
	if err != nil {
		storeError(w, err, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	jsonResponse(w, http.StatusOK, orders)
}

// load fetches an order the caller may see. Hidden orders read as missing.
func (h *OrdersHandler) load(w http.ResponseWriter, r *http.Request) (*model.Order, bool) {
	id, ok := pathID(w, r, "order")
	if !ok {
		return nil, false
	}

	order, err := store.GetOrder(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "failed to get order")
		return nil, false
	}
	if order == nil || !visible(GetClaims(r.Context()), order) {
		jsonError(w, http.StatusNotFound, "order not found")
		return nil, false
	}
	return order, true
}

// Get handles GET /api/orders/{id}.
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, ok := h.load(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, order)
}

// Update handles PUT /api/orders/{id}: admins correct the shipping address
// of an order that has not shipped.
func (h *OrdersHandler) Update(w http.ResponseWriter, r *http.Request) {
	order, ok := h.load(w, r)
	if !ok {
		return
	}

	var req updateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := store.UpdateShippingAddress(r.Context(), h.DB, order.ID, req.ShippingAddress)
	if err != nil {
		storeError(w, err, "failed to update order")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// Transition returns the handler for PUT /api/orders/{id}/<action>. The
// role must hold the action and the order's status must allow it.
func (h *OrdersHandler) Transition(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaims(r.Context())
		if !model.CapabilitiesFor(claims.Role).AllowsOrderAction(action) {
			jsonError(w, http.StatusForbidden, "insufficient permissions")
			return
		}

		order, ok := h.load(w, r)
		if !ok {
			return
		}

		updated, err := store.TransitionOrder(r.Context(), h.DB, order.ID, action)
		if err != nil {
			storeError(w, err, "failed to update order")
			return
		}

		slog.Info("order status changed", "user", claims.Email, "order", order.ID, "from", order.Status, "to", updated.Status)
		jsonResponse(w, http.StatusOK, updated)
	}
}
