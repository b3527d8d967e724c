package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the self-service signup request body.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
	Location string `json:"location,omitempty"`
}

// Validate checks a registration before it is sent or stored.
// An empty role means customer.
func (r *Registration) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name required", ErrValidation)
	}
	if err := ValidateEmail(r.Email); err != nil {
		return err
	}
	if err := ValidatePassword(r.Password); err != nil {
		return err
	}
	if r.Role == "" {
		r.Role = RoleCustomer
	}
	if !ValidRole(r.Role) {
		return fmt.Errorf("%w: invalid role %q", ErrValidation, r.Role)
	}
	return nil
}

// AuthResponse is returned by a successful login.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}

// UserInput creates or updates an account through the admin surface.
// Password is optional on update.
type UserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	Role     string `json:"role"`
	Location string `json:"location,omitempty"`
}

// OrderRequestLine is one requested item in an order.
type OrderRequestLine struct {
	ItemID int64 `json:"itemId"`
	Qty    int   `json:"qty"`
}

// OrderRequest is the order creation body.
type OrderRequest struct {
	Items           []OrderRequestLine `json:"items"`
	ShippingAddress string             `json:"shippingAddress"`
}

// Validate checks that the request names at least one positive line.
func (r OrderRequest) Validate() error {
	if len(r.Items) == 0 {
		return fmt.Errorf("%w: order has no items", ErrValidation)
	}
	for _, l := range r.Items {
		if l.ItemID <= 0 || l.Qty <= 0 {
			return fmt.Errorf("%w: invalid line for item %d", ErrValidation, l.ItemID)
		}
	}
	return nil
}

// ReturnRequest is the return creation body. Quantity zero means the whole
// ordered quantity of the item.
type ReturnRequest struct {
	OrderID   int64  `json:"orderId"`
	ItemID    int64  `json:"itemId"`
	Quantity  int    `json:"quantity,omitempty"`
	Reason    string `json:"reason"`
	Condition string `json:"condition"`
}

// Validate checks a return request before it is sent or stored.
func (r ReturnRequest) Validate() error {
	if r.OrderID <= 0 || r.ItemID <= 0 {
		return fmt.Errorf("%w: order and item required", ErrValidation)
	}
	if strings.TrimSpace(r.Reason) == "" {
		return fmt.Errorf("%w: reason required", ErrValidation)
	}
	if !ValidCondition(r.Condition) {
		return fmt.Errorf("%w: unknown condition %q", ErrValidation, r.Condition)
	}
	if r.Quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrValidation)
	}
	return nil
}

// ApproveRequest is the approve body. A nil refund lets the backend refund
// the returned lines at their order price.
type ApproveRequest struct {
	RefundAmount *decimal.Decimal `json:"refundAmount,omitempty"`
}

// RejectRequest is the reject body.
type RejectRequest struct {
	Reason string `json:"reason,omitempty"`
}
