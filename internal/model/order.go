package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Order is a customer's committed purchase.
type Order struct {
	ID              int64           `json:"id"`
	CustomerID      int64           `json:"customerId"`
	Items           []OrderLine     `json:"items"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Status          string          `json:"status"`
	ShippingAddress string          `json:"shippingAddress"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// OrderLine is one purchased item within an order.
type OrderLine struct {
	ItemID    int64           `json:"itemId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	PartnerID int64           `json:"partnerId"`

	// Joined field (not always populated).
	ItemName string `json:"itemName,omitempty"`
}

// Subtotal is price times quantity.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// SumLines totals the lines in order.
func SumLines(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// HasPartner reports whether any line belongs to partnerID.
func (o Order) HasPartner(partnerID int64) bool {
	for _, l := range o.Items {
		if l.PartnerID == partnerID {
			return true
		}
	}
	return false
}

// Line returns the line for itemID, if any.
func (o Order) Line(itemID int64) (OrderLine, bool) {
	for _, l := range o.Items {
		if l.ItemID == itemID {
			return l, true
		}
	}
	return OrderLine{}, false
}

// Order statuses.
const (
	OrderPlaced    = "placed"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
	OrderReturned  = "returned"
)

// Order actions.
const (
	ActionCancel       = "cancel"
	ActionShip         = "ship"
	ActionDeliver      = "deliver"
	ActionMarkReturned = "returned"
)

// orderTransitions maps action to its only legal source and its target.
var orderTransitions = map[string]struct{ from, to string }{
	ActionCancel:       {OrderPlaced, OrderCancelled},
	ActionShip:         {OrderPlaced, OrderShipped},
	ActionDeliver:      {OrderShipped, OrderDelivered},
	ActionMarkReturned: {OrderDelivered, OrderReturned},
}

// NextOrderStatus returns the status an order in status reaches through action.
// ok is false when the action is not legal from status.
func NextOrderStatus(status, action string) (next string, ok bool) {
	t, known := orderTransitions[action]
	if !known || t.from != status {
		return "", false
	}
	return t.to, true
}

// OrderTerminal reports whether no further action applies to status.
func OrderTerminal(status string) bool {
	return status == OrderCancelled || status == OrderReturned
}
