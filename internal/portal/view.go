// Package portal holds the view state of the marketplace front-end: which
// view is showing, the catalog and cart, and one dashboard per signed-in role.
package portal

import (
	"errors"

	"github.com/erazemk/resale/internal/model"
)

// View is one of the top-level screens.
type View int

// Views.
const (
	ViewMarketplace View = iota
	ViewAdmin
	ViewCustomer
	ViewPartner
	ViewRewards
)

var (
	// ErrLoginRequired is returned when a view or action needs a session.
	ErrLoginRequired = errors.New("login required")
	// ErrForbidden is returned when the signed-in role may not open a view.
	ErrForbidden = errors.New("not available for this account")
)

// Views lists every view in menu order.
var Views = []View{ViewMarketplace, ViewCustomer, ViewPartner, ViewAdmin, ViewRewards}

// String returns the view name used on the command line.
func (v View) String() string {
	switch v {
	case ViewMarketplace:
		return "marketplace"
	case ViewAdmin:
		return "admin"
	case ViewCustomer:
		return "customer"
	case ViewPartner:
		return "partner"
	case ViewRewards:
		return "rewards"
	}
	return "unknown"
}

// ParseView resolves a view name.
func ParseView(name string) (View, bool) {
	for _, v := range Views {
		if v.String() == name {
			return v, true
		}
	}
	return 0, false
}

// Role returns the account role a dashboard view belongs to, or "" for the
// views anyone may open.
func (v View) Role() string {
	switch v {
	case ViewAdmin:
		return model.RoleAdmin
	case ViewCustomer:
		return model.RoleCustomer
	case ViewPartner:
		return model.RolePartner
	}
	return ""
}

// Landing returns the view a user starts on after signing in. Without a
// session that is the marketplace.
func Landing(u *model.User) View {
	if u == nil {
		return ViewMarketplace
	}
	switch u.Role {
	case model.RoleAdmin:
		return ViewAdmin
	case model.RoleCustomer:
		return ViewCustomer
	case model.RolePartner:
		return ViewPartner
	}
	return ViewMarketplace
}

// check reports whether u may open v.
func check(v View, u *model.User) error {
	role := v.Role()
	if role == "" {
		return nil
	}
	if u == nil {
		return ErrLoginRequired
	}
	if u.Role != role {
		return ErrForbidden
	}
	return nil
}
