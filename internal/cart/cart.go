// Package cart holds the in-memory shopping cart and turns it into an order.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/erazemk/resale/internal/model"
)

var (
	// ErrEmptyCart is returned by Checkout when there is nothing to order.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrRemoteRejected wraps a backend refusal of the order.
	ErrRemoteRejected = errors.New("order rejected")
)

// Line is one cart entry. Quantity stays within [1, Item.Quantity].
type Line struct {
	Item     model.Item
	Quantity int
}

// Subtotal is price times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Item.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Savings is what the line saves against the original price.
func (l Line) Savings() decimal.Decimal {
	return l.Item.Savings().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Placer submits an order. *client.Client satisfies it.
type Placer interface {
	CreateOrder(ctx context.Context, req model.OrderRequest) (*model.Order, error)
}

// Cart keeps lines in the order they were first added.
type Cart struct {
	mu    sync.Mutex
	lines []Line
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

func (c *Cart) index(itemID int64) int {
	for i, l := range c.lines {
		if l.Item.ID == itemID {
			return i
		}
	}
	return -1
}

// Add puts one more unit of item in the cart. Adding past the available
// stock leaves the cart unchanged and returns false.
func (c *Cart) Add(item model.Item) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.index(item.ID); i >= 0 {
		if c.lines[i].Quantity >= c.lines[i].Item.Quantity {
			return false
		}
		c.lines[i].Quantity++
		return true
	}
	if item.Quantity <= 0 {
		return false
	}
	c.lines = append(c.lines, Line{Item: item, Quantity: 1})
	return true
}

// SetQuantity sets the quantity of an item already in the cart, clamped to
// [0, stock]. Zero removes the line. Unknown items are ignored.
func (c *Cart) SetQuantity(itemID int64, qty int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(itemID)
	if i < 0 {
		return
	}
	qty = min(max(qty, 0), c.lines[i].Item.Quantity)
	if qty == 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
		return
	}
	c.lines[i].Quantity = qty
}

// Remove drops an item from the cart.
func (c *Cart) Remove(itemID int64) {
	c.SetQuantity(itemID, 0)
}


// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len is the number of distinct items.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// Count is the total number of units.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Total is the sum of price times quantity.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Savings is the sum of (original price - price) times quantity.
func (c *Cart) Savings() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Savings())
	}
	return total
}

// Request builds the order creation body for the current lines.
func (c *Cart) Request(shippingAddress string) model.OrderRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	req := model.OrderRequest{
		Items:           make([]model.OrderRequestLine, 0, len(c.lines)),
		ShippingAddress: shippingAddress,
	}
	for _, l := range c.lines {
		req.Items = append(req.Items, model.OrderRequestLine{ItemID: l.Item.ID, Qty: l.Quantity})
	}
	return req
}

// Checkout places an order for the cart. Once the backend accepts the order
// the ordered quantities leave the cart; lines added while the order was in
// flight stay. On failure the cart is left as it was.
func (c *Cart) Checkout(ctx context.Context, placer Placer, shippingAddress string) (*model.Order, error) {
	if c.Len() == 0 {
		return nil, ErrEmptyCart
	}

	req := c.Request(shippingAddress)
	order, err := placer.CreateOrder(ctx, req)
	if err != nil {
		slog.Error("checkout failed", "lines", len(req.Items), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrRemoteRejected, err)
	}

	c.settle(req)
	slog.Info("order placed", "order", order.ID, "total", order.TotalAmount.String())
	return order, nil
}

// settle removes the quantities in req from the cart.
func (c *Cart) settle(req model.OrderRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ordered := range req.Items {
		i := c.index(ordered.ItemID)
		if i < 0 {
			continue
		}
		c.lines[i].Quantity -= ordered.Qty
		if c.lines[i].Quantity <= 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		}
	}
}
