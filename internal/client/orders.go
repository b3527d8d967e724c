package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/erazemk/resale/internal/model"
)

// CreateOrder places an order.
func (c *Client) CreateOrder(ctx context.Context, req model.OrderRequest) (*model.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var order model.Order
	if err := c.do(ctx, http.MethodPost, "/api/orders", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders returns the orders visible to the caller.
func (c *Client) ListOrders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder returns one order.
func (c *Client) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/orders/%d", id), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateShippingAddress changes where a placed order ships (admin).
func (c *Client) UpdateShippingAddress(ctx context.Context, id int64, address string) (*model.Order, error) {
	var order model.Order
	body := map[string]string{"shippingAddress": address}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/orders/%d", id), body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// TransitionOrder applies an order action: cancel, ship, deliver or returned.
func (c *Client) TransitionOrder(ctx context.Context, id int64, action string) (*model.Order, error) {
	switch action {
	case model.ActionCancel, model.ActionShip, model.ActionDeliver, model.ActionMarkReturned:
	default:
		return nil, fmt.Errorf("%w: unknown order action %q", model.ErrValidation, action)
	}
	var order model.Order
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/orders/%d/%s", id, action), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder cancels a placed order.
func (c *Client) CancelOrder(ctx context.Context, id int64) (*model.Order, error) {
	return c.TransitionOrder(ctx, id, model.ActionCancel)
}

// ShipOrder marks a placed order shipped.
func (c *Client) ShipOrder(ctx context.Context, id int64) (*model.Order, error) {
	return c.TransitionOrder(ctx, id, model.ActionShip)
}

// DeliverOrder marks a shipped order delivered.
func (c *Client) DeliverOrder(ctx context.Context, id int64) (*model.Order, error) {
	return c.TransitionOrder(ctx, id, model.ActionDeliver)
}

// MarkOrderReturned marks a delivered order returned.
func (c *Client) MarkOrderReturned(ctx context.Context, id int64) (*model.Order, error) {
	return c.TransitionOrder(ctx, id, model.ActionMarkReturned)
}

// CreateReturn requests a return of one delivered order line.
func (c *Client) CreateReturn(ctx context.Context, req model.ReturnRequest) (*model.Return, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var ret model.Return
	if err := c.do(ctx, http.MethodPost, "/api/returns", req, &ret); err != nil {
		return nil, err
	}
	return &ret, nil
}

// ListReturns returns the returns visible to the caller.
func (c *Client) ListReturns(ctx context.Context) ([]model.Return, error) {
	var returns []model.Return
	if err := c.do(ctx, http.MethodGet, "/api/returns", nil, &returns); err != nil {
		return nil, err
	}
	return returns, nil
}

// PendingReturns returns the visible returns awaiting review.
func (c *Client) PendingReturns(ctx context.Context) ([]model.Return, error) {
	var returns []model.Return
	if err := c.do(ctx, http.MethodGet, "/api/returns/pending", nil, &returns); err != nil {
		return nil, err
	}
	return returns, nil
}

// ApproveReturn approves a pending return. A nil refund lets the backend
// refund the returned lines at their order price.
func (c *Client) ApproveReturn(ctx context.Context, id int64, refund *decimal.Decimal) (*model.Return, error) {
	if refund != nil && refund.IsNegative() {
		return nil, fmt.Errorf("%w: refund must not be negative", model.ErrValidation)
	}
	var ret model.Return
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/returns/%d/approve", id), model.ApproveRequest{RefundAmount: refund}, &ret); err != nil {
		return nil, err
	}
	return &ret, nil
}

// RejectReturn rejects a pending return.
func (c *Client) RejectReturn(ctx context.Context, id int64, reason string) (*model.Return, error) {
	var ret model.Return
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/returns/%d/reject", id), model.RejectRequest{Reason: reason}, &ret); err != nil {
		return nil, err
	}
	return &ret, nil
}
