package model

// Capabilities lists what an account role may do in its portal.
type Capabilities struct {
	Role string

	PlaceOrders    bool
	RequestReturns bool
	ReviewReturns  bool
	ManageItems    bool
	ManageUsers    bool

	// OrderActions holds the order transitions the role may invoke.
	OrderActions map[string]bool
}

// CapabilitiesFor returns the capabilities of role. Unknown roles get none.
func CapabilitiesFor(role string) Capabilities {
	switch role {
	case RoleCustomer:
		return Capabilities{
			Role:           role,
			PlaceOrders:    true,
			RequestReturns: true,
			OrderActions:   map[string]bool{ActionCancel: true},
		}
	case RolePartner:
		return Capabilities{
			Role:          role,
			ReviewReturns: true,
			ManageItems:   true,
			OrderActions: map[string]bool{
				ActionShip:         true,
				ActionDeliver:      true,
				ActionMarkReturned: true,
			},
		}
	case RoleAdmin:
		return Capabilities{
			Role:          role,
			ReviewReturns: true,
			ManageItems:   true,
			ManageUsers:   true,
			OrderActions: map[string]bool{
				ActionShip:         true,
				ActionDeliver:      true,
				ActionMarkReturned: true,
			},
		}
	}
	return Capabilities{Role: role}
}

// AllowsOrderAction reports whether the role may invoke action on an order.
func (c Capabilities) AllowsOrderAction(action string) bool {
	return c.OrderActions[action]
}
