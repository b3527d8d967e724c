package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/erazemk/resale/internal/cart"
	"github.com/erazemk/resale/internal/lifecycle"
	"github.com/erazemk/resale/internal/model"
	"github.com/erazemk/resale/internal/session"
)

// API is the slice of the REST client the portal drives. *client.Client
// satisfies it.
type API interface {
	session.Authenticator
	cart.Placer
	lifecycle.OrderAPI
	lifecycle.ReturnAPI

	ListItems(ctx context.Context, query url.Values) ([]model.Item, error)
	CreateItem(ctx context.Context, it *model.Item) (*model.Item, error)
	UpdateItem(ctx context.Context, it *model.Item) (*model.Item, error)
	DeleteItem(ctx context.Context, id int64) error
	UploadItemImage(ctx context.Context, id int64, photo io.Reader) (*model.Item, error)
	ListPartners(ctx context.Context, location string) ([]model.Partner, error)

	ListOrders(ctx context.Context) ([]model.Order, error)
	CreateReturn(ctx context.Context, req model.ReturnRequest) (*model.Return, error)
	ListReturns(ctx context.Context) ([]model.Return, error)
	PendingReturns(ctx context.Context) ([]model.Return, error)

	ListUsers(ctx context.Context) ([]model.User, error)
	CreateUser(ctx context.Context, in model.UserInput) (*model.User, error)
	UpdateUser(ctx context.Context, id int64, in model.UserInput) (*model.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// Tab is a dashboard section.
type Tab string

// Tabs.
const (
	TabMarketplace Tab = "marketplace"
	TabUsers       Tab = "users"
	TabItems       Tab = "items"
	TabOrders      Tab = "orders"
	TabReturns     Tab = "returns"
)

var (
	// ErrClosed is returned by a dashboard after Close.
	ErrClosed = errors.New("dashboard closed")
	// ErrUnknownTab is returned for a tab the role does not have.
	ErrUnknownTab = errors.New("unknown tab")
	// ErrNotListed is returned for an action on an entity the active list does not hold.
	ErrNotListed = errors.New("not in the current list")
)

// TabsFor returns the tabs of the dashboard for caps, in display order.
func TabsFor(caps model.Capabilities) []Tab {
	switch {
	case caps.ManageUsers:
		return []Tab{TabUsers, TabItems, TabOrders, TabReturns}
	case caps.PlaceOrders:
		return []Tab{TabMarketplace, TabOrders, TabReturns}
	case caps.ReviewReturns:
		return []Tab{TabOrders, TabReturns}
	}
	return nil
}

// Dashboard is the role portal of a signed-in user. What it offers follows
// from the role's capabilities. Every mutation is one remote call followed by
// a refetch of the active tab.
type Dashboard struct {
	api    API
	user   model.User
	caps   model.Capabilities
	cart   *cart.Cart
	runner *lifecycle.Runner

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	tab     Tab
	items   []model.Item
	orders  []model.Order
	returns []model.Return
	users   []model.User
	errMsg  string
}

// NewDashboard mounts the dashboard of user. c is the shopping cart used for
// checkout; it may be nil for roles that do not buy.
func NewDashboard(api API, user model.User, c *cart.Cart) *Dashboard {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dashboard{
		api:    api,
		user:   user,
		caps:   model.CapabilitiesFor(user.Role),
		cart:   c,
		ctx:    ctx,
		cancel: cancel,
	}
	if tabs := TabsFor(d.caps); len(tabs) > 0 {
		d.tab = tabs[0]
	}
	d.runner = lifecycle.NewRunner(d.Refresh)
	return d
}

// User returns the signed-in user the dashboard belongs to.
func (d *Dashboard) User() model.User { return d.user }

// Capabilities returns what the dashboard's role may do.
func (d *Dashboard) Capabilities() model.Capabilities { return d.caps }

// Tabs returns the dashboard's tabs.
func (d *Dashboard) Tabs() []Tab { return TabsFor(d.caps) }

// Tab returns the active tab.
func (d *Dashboard) Tab() Tab {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tab
}

// Err returns the message of the last failure, or "".
func (d *Dashboard) Err() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.errMsg
}

// Items returns the loaded items.
func (d *Dashboard) Items() []model.Item {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.items)
}

// Orders returns the loaded orders.
func (d *Dashboard) Orders() []model.Order {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.orders)
}

// Returns returns the loaded returns.
func (d *Dashboard) Returns() []model.Return {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.returns)
}

// Users returns the loaded users.
func (d *Dashboard) Users() []model.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.users)
}

// Close unmounts the dashboard. Pending fetches are cancelled and their
// results dropped.
func (d *Dashboard) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cancel()
}

// Closed reports whether Close was called.
func (d *Dashboard) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// bind derives a context that is also cancelled when the dashboard closes.
func (d *Dashboard) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(d.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// update applies fn under the lock unless the dashboard is closed.
func (d *Dashboard) update(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		fn()
	}
}

// fail records what the user sees for a failed operation and logs the cause.
func (d *Dashboard) fail(what string, err error) {
	if errors.Is(err, context.Canceled) && d.Closed() {
		return
	}
	slog.Error("dashboard operation failed", "role", d.caps.Role, "op", what, "error", err)
	d.update(func() { d.errMsg = "Failed to " + what })
}

func (d *Dashboard) clearErr() {
	d.update(func() { d.errMsg = "" })
}

// SelectTab switches to tab and fetches its list.
func (d *Dashboard) SelectTab(ctx context.Context, tab Tab) error {
	if !slices.Contains(d.Tabs(), tab) {
		return fmt.Errorf("%s for %s: %w", tab, d.caps.Role, ErrUnknownTab)
	}
	if d.Closed() {
		return ErrClosed
	}
	d.update(func() { d.tab = tab })
	return d.Refresh(ctx)
}

// Refresh refetches the active tab's list.
func (d *Dashboard) Refresh(ctx context.Context) error {
	if d.Closed() {
		return ErrClosed
	}
	ctx, done := d.bind(ctx)
	defer done()

	tab := d.Tab()
	var err error
	switch tab {
	case TabMarketplace, TabItems:
		var items []model.Item
		if items, err = d.api.ListItems(ctx, nil); err == nil {
			d.update(func() { d.items = items })
		}
	case TabOrders:
		var orders []model.Order
		if orders, err = d.api.ListOrders(ctx); err == nil {
			d.update(func() { d.orders = orders })
		}
	case TabReturns:
		var returns []model.Return
		if returns, err = d.listReturns(ctx); err == nil {
			d.update(func() { d.returns = returns })
		}
	case TabUsers:
		var users []model.User
		if users, err = d.api.ListUsers(ctx); err == nil {
			d.update(func() { d.users = users })
		}
	default:
		return fmt.Errorf("%q: %w", tab, ErrUnknownTab)
	}
	if err != nil {
		d.fail("load "+string(tab), err)
		return fmt.Errorf("loading %s: %w", tab, err)
	}
	return nil
}

// listReturns fetches the caller's own returns, or the review queue for
// roles that review them.
func (d *Dashboard) listReturns(ctx context.Context) ([]model.Return, error) {
	if d.caps.ReviewReturns {
		return d.api.PendingReturns(ctx)
	}
	return d.api.ListReturns(ctx)
}

// act runs a mutation through the lifecycle runner and records a failure
// under what.
func (d *Dashboard) act(ctx context.Context, what string, run func(ctx context.Context) error) error {
	if d.Closed() {
		return ErrClosed
	}
	ctx, done := d.bind(ctx)
	defer done()

	d.clearErr()
	if err := run(ctx); err != nil {
		// A refetch failure after a successful call has recorded its own message.
		if !errors.Is(err, lifecycle.ErrRefresh) {
			d.fail(what, err)
		}
		return err
	}
	return nil
}

func (d *Dashboard) order(id int64) (model.Order, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, o := range d.orders {
		if o.ID == id {
			return o, true
		}
	}
	return model.Order{}, false
}

func (d *Dashboard) ret(id int64) (model.Return, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.returns {
		if r.ID == id {
			return r, true
		}
	}
	return model.Return{}, false
}

// OrderActions lists the actions offered on order. Customers act only on
// their own orders.
func (d *Dashboard) OrderActions(order model.Order) []string {
	if d.caps.Role == model.RoleCustomer && order.CustomerID != d.user.ID {
		return nil
	}
	return lifecycle.OrderActions(order, d.caps.Role)
}

// ReturnActions lists the actions offered on ret.
func (d *Dashboard) ReturnActions(ret model.Return) []string {
	if d.caps.Role == model.RolePartner && ret.PartnerID != d.user.ID {
		return nil
	}
	return lifecycle.ReturnActions(ret, d.caps.Role)
}

// Returnable reports whether the customer may request a return on order.
func (d *Dashboard) Returnable(order model.Order) bool {
	return d.caps.RequestReturns && order.CustomerID == d.user.ID && order.Status == model.OrderDelivered
}

// OrderAction applies action to a listed order.
func (d *Dashboard) OrderAction(ctx context.Context, orderID int64, action string) error {
	what := action + " order"
	order, ok := d.order(orderID)
	if !ok {
		err := fmt.Errorf("order %d: %w", orderID, ErrNotListed)
		d.fail(what, err)
		return err
	}
	if !slices.Contains(d.OrderActions(order), action) {
		err := fmt.Errorf("%s order %d (%s): %w", action, orderID, order.Status, lifecycle.ErrIllegalAction)
		d.fail(what, err)
		return err
	}
	return d.act(ctx, what, func(ctx context.Context) error {
		return d.runner.Order(ctx, d.api, order, d.caps.Role, action)
	})
}

// Approve approves a listed return. A nil refund lets the backend refund the
// returned lines at their order price.
func (d *Dashboard) Approve(ctx context.Context, returnID int64, refund *decimal.Decimal) error {
	ret, ok := d.ret(returnID)
	if !ok || len(d.ReturnActions(ret)) == 0 {
		err := fmt.Errorf("return %d: %w", returnID, ErrNotListed)
		d.fail("approve return", err)
		return err
	}
	return d.act(ctx, "approve return", func(ctx context.Context) error {
		return d.runner.Approve(ctx, d.api, ret, d.caps.Role, refund)
	})
}

// Reject rejects a listed return.
func (d *Dashboard) Reject(ctx context.Context, returnID int64, reason string) error {
	ret, ok := d.ret(returnID)
	if !ok || len(d.ReturnActions(ret)) == 0 {
		err := fmt.Errorf("return %d: %w", returnID, ErrNotListed)
		d.fail("reject return", err)
		return err
	}
	return d.act(ctx, "reject return", func(ctx context.Context) error {
		return d.runner.Reject(ctx, d.api, ret, d.caps.Role, reason)
	})
}

// RequestReturn asks for a return of one line of a listed, delivered order.
func (d *Dashboard) RequestReturn(ctx context.Context, req model.ReturnRequest) error {
	const what = "request return"
	order, ok := d.order(req.OrderID)
	if !ok {
		err := fmt.Errorf("order %d: %w", req.OrderID, ErrNotListed)
		d.fail(what, err)
		return err
	}
	if !d.Returnable(order) {
		err := fmt.Errorf("return on %s order %d: %w", order.Status, order.ID, lifecycle.ErrIllegalAction)
		d.fail(what, err)
		return err
	}
	if _, ok := order.Line(req.ItemID); !ok {
		err := fmt.Errorf("%w: item %d is not part of order %d", model.ErrValidation, req.ItemID, order.ID)
		d.fail(what, err)
		return err
	}
	if err := req.Validate(); err != nil {
		d.fail(what, err)
		return err
	}

	key := fmt.Sprintf("return-request:%d:%d", req.OrderID, req.ItemID)
	return d.act(ctx, what, func(ctx context.Context) error {
		return d.runner.Run(ctx, key, func(ctx context.Context) error {
			_, err := d.api.CreateReturn(ctx, req)
			return err
		})
	})
}

// PlaceOrder checks out the cart.
func (d *Dashboard) PlaceOrder(ctx context.Context, shippingAddress string) (*model.Order, error) {
	if !d.caps.PlaceOrders || d.cart == nil {
		return nil, fmt.Errorf("place order as %s: %w", d.caps.Role, lifecycle.ErrIllegalAction)
	}
	var order *model.Order
	err := d.act(ctx, "place order", func(ctx context.Context) error {
		return d.runner.Run(ctx, "checkout", func(ctx context.Context) error {
			var err error
			order, err = d.cart.Checkout(ctx, d.api, shippingAddress)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Listings returns the items the dashboard's partner sells. Admins see every item.
func (d *Dashboard) Listings(ctx context.Context) ([]model.Item, error) {
	if !d.caps.ManageItems {
		return nil, fmt.Errorf("listings as %s: %w", d.caps.Role, lifecycle.ErrIllegalAction)
	}
	ctx, done := d.bind(ctx)
	defer done()

	var query url.Values
	if d.caps.Role == model.RolePartner {
		query = url.Values{"partnerId": {strconv.FormatInt(d.user.ID, 10)}}
	}
	items, err := d.api.ListItems(ctx, query)
	if err != nil {
		d.fail("load listings", err)
		return nil, fmt.Errorf("loading listings: %w", err)
	}
	return items, nil
}

func (d *Dashboard) manageItems(what string) error {
	if d.caps.ManageItems {
		return nil
	}
	err := fmt.Errorf("%s as %s: %w", what, d.caps.Role, lifecycle.ErrIllegalAction)
	d.fail(what, err)
	return err
}

// CreateItem lists a new item.
func (d *Dashboard) CreateItem(ctx context.Context, it *model.Item) (*model.Item, error) {
	if err := d.manageItems("create item"); err != nil {
		return nil, err
	}
	var created *model.Item
	err := d.act(ctx, "create item", func(ctx context.Context) error {
		return d.runner.Run(ctx, "item:new:"+it.Name, func(ctx context.Context) error {
			var err error
			created, err = d.api.CreateItem(ctx, it)
			return err
		})
	})
	return created, err
}

// UpdateItem saves changes to an item.
func (d *Dashboard) UpdateItem(ctx context.Context, it *model.Item) (*model.Item, error) {
	if err := d.manageItems("update item"); err != nil {
		return nil, err
	}
	var updated *model.Item
	err := d.act(ctx, "update item", func(ctx context.Context) error {
		return d.runner.Run(ctx, fmt.Sprintf("item:%d", it.ID), func(ctx context.Context) error {
			var err error
			updated, err = d.api.UpdateItem(ctx, it)
			return err
		})
	})
	return updated, err
}

// DeleteItem removes an item from sale.
func (d *Dashboard) DeleteItem(ctx context.Context, id int64) error {
	if err := d.manageItems("delete item"); err != nil {
		return err
	}
	return d.act(ctx, "delete item", func(ctx context.Context) error {
		return d.runner.Run(ctx, fmt.Sprintf("item:%d", id), func(ctx context.Context) error {
			return d.api.DeleteItem(ctx, id)
		})
	})
}

// UploadImage attaches a photo to an item.
func (d *Dashboard) UploadImage(ctx context.Context, id int64, photo io.Reader) error {
	if err := d.manageItems("upload image"); err != nil {
		return err
	}
	return d.act(ctx, "upload image", func(ctx context.Context) error {
		return d.runner.Run(ctx, fmt.Sprintf("item:%d", id), func(ctx context.Context) error {
			_, err := d.api.UploadItemImage(ctx, id, photo)
			return err
		})
	})
}

func (d *Dashboard) manageUsers(what string) error {
	if d.caps.ManageUsers {
		return nil
	}
	err := fmt.Errorf("%s as %s: %w", what, d.caps.Role, lifecycle.ErrIllegalAction)
	d.fail(what, err)
	return err
}

// CreateUser adds an account.
func (d *Dashboard) CreateUser(ctx context.Context, in model.UserInput) (*model.User, error) {
	if err := d.manageUsers("create user"); err != nil {
		return nil, err
	}
	var created *model.User
	err := d.act(ctx, "create user", func(ctx context.Context) error {
		return d.runner.Run(ctx, "user:new:"+in.Email, func(ctx context.Context) error {
			var err error
			created, err = d.api.CreateUser(ctx, in)
			return err
		})
	})
	return created, err
}

// UpdateUser changes an account. An empty password keeps the current one.
func (d *Dashboard) UpdateUser(ctx context.Context, id int64, in model.UserInput) (*model.User, error) {
	if err := d.manageUsers("update user"); err != nil {
		return nil, err
	}
	var updated *model.User
	err := d.act(ctx, "update user", func(ctx context.Context) error {
		return d.runner.Run(ctx, fmt.Sprintf("user:%d", id), func(ctx context.Context) error {
			var err error
			updated, err = d.api.UpdateUser(ctx, id, in)
			return err
		})
	})
	return updated, err
}

// DeleteUser removes an account.
func (d *Dashboard) DeleteUser(ctx context.Context, id int64) error {
	if err := d.manageUsers("delete user"); err != nil {
		return err
	}
	return d.act(ctx, "delete user", func(ctx context.Context) error {
		return d.runner.Run(ctx, fmt.Sprintf("user:%d", id), func(ctx context.Context) error {
			return d.api.DeleteUser(ctx, id)
		})
	})
}
