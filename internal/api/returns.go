package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/erazemk/resale/internal/model"
	"github.com/erazemk/resale/internal/store"
)

// ReturnsHandler handles return requests and their review.
type ReturnsHandler struct {
	DB *sql.DB
}

// Create handles POST /api/returns against the caller's own delivered order.
func (h *ReturnsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req model.ReturnRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := store.GetOrder(r.Context(), h.DB, req.OrderID)
	if err != nil {
		storeError(w, err, "failed to get order")
		return
	}
	if order == nil || order.CustomerID != claims.UserID {
		jsonError(w, http.StatusNotFound, "order not found")
		return
	}
	if order.Status != model.OrderDelivered {
		jsonError(w, http.StatusConflict, "only delivered orders can be returned")
		return
	}

	line, ok := order.Line(req.ItemID)
	if !ok {
		jsonError(w, http.StatusBadRequest, "item is not part of the order")
		return
	}
	qty := req.Quantity
	if qty == 0 {
		qty = line.Quantity
	}
	if qty > line.Quantity {
		jsonError(w, http.StatusBadRequest, "cannot return more than was ordered")
		return
	}

	ret, err := store.CreateReturn(r.Context(), h.DB, claims.UserID, order,
		model.ReturnLine{ItemID: req.ItemID, Quantity: qty, Condition: req.Condition}, line.PartnerID, req.Reason)
	if err != nil {
		storeError(w, err, "failed to request return")
		return
	}

	slog.Info("return requested", "user", claims.Email, "return", ret.ID, "order", order.ID)
	jsonResponse(w, http.StatusCreated, ret)
}

func (h *ReturnsHandler) list(w http.ResponseWriter, r *http.Request, status string) {
	claims := GetClaims(r.Context())

	f := store.ReturnFilter{Status: status}
	switch claims.Role {
	case model.RoleCustomer:
		f.CustomerID = claims.UserID
	case model.RolePartner:
		f.PartnerID = claims.UserID
	}

	returns, err := store.ListReturns(r.Context(), h.DB, f)
	if err != nil {
		storeError(w, err, "failed to list returns")
		return
	}
	if returns == nil {
		returns = []model.Return{}
	}
	jsonResponse(w, http.StatusOK, returns)
}

// List handles GET /api/returns, scoped to the caller.
func (h *ReturnsHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, r.URL.Query().Get("status"))
}

// Pending handles GET /api/returns/pending.
func (h *ReturnsHandler) Pending(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, model.ReturnPending)
}

// reviewable loads a return the caller may approve or reject.
func (h *ReturnsHandler) reviewable(w http.ResponseWriter, r *http.Request) (*model.Return, bool) {
	id, ok := pathID(w, r, "return")
	if !ok {
		return nil, false
	}

	ret, err := store.GetReturn(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "failed to get return")
		return nil, false
	}
	claims := GetClaims(r.Context())
	if ret == nil || (claims.Role == model.RolePartner && ret.PartnerID != claims.UserID) {
		jsonError(w, http.StatusNotFound, "return not found")
		return nil, false
	}
	return ret, true
}

// Approve handles PUT /api/returns/{id}/approve. Without a refund amount the
// returned lines are refunded at their order price.
func (h *ReturnsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	ret, ok := h.reviewable(w, r)
	if !ok {
		return
	}

	var req model.ApproveRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var refund decimal.Decimal
	if req.RefundAmount != nil {
		if req.RefundAmount.IsNegative() {
			jsonError(w, http.StatusBadRequest, "refund must not be negative")
			return
		}
		refund = *req.RefundAmount
	} else {
		order, err := store.GetOrder(r.Context(), h.DB, ret.OrderID)
		if err != nil {
			storeError(w, err, "failed to get order")
			return
		}
		if order == nil {
			jsonError(w, http.StatusNotFound, "order not found")
			return
		}
		refund = defaultRefund(order, ret)
	}

	resolved, err := store.ResolveReturn(r.Context(), h.DB, ret.ID, model.ActionApprove, refund, "")
	if err != nil {
		storeError(w, err, "failed to approve return")
		return
	}

	slog.Info("return approved", "user", GetClaims(r.Context()).Email, "return", ret.ID, "refund", refund.String())
	jsonResponse(w, http.StatusOK, resolved)
}

// Reject handles PUT /api/returns/{id}/reject.
func (h *ReturnsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	ret, ok := h.reviewable(w, r)
	if !ok {
		return
	}

	var req model.RejectRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	resolved, err := store.ResolveReturn(r.Context(), h.DB, ret.ID, model.ActionReject, decimal.Zero, req.Reason)
	if err != nil {
		storeError(w, err, "failed to reject return")
		return
	}

	slog.Info("return rejected", "user", GetClaims(r.Context()).Email, "return", ret.ID)
	jsonResponse(w, http.StatusOK, resolved)
}

// defaultRefund prices the returned lines at what the customer paid.
func defaultRefund(order *model.Order, ret *model.Return) decimal.Decimal {
	total := decimal.Zero
	for _, rl := range ret.Items {
		if l, ok := order.Line(rl.ItemID); ok {
			total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(rl.Quantity))))
		}
	}
	return total
}
