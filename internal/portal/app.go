package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/erazemk/resale/internal/cart"
	"github.com/erazemk/resale/internal/catalog"
	"github.com/erazemk/resale/internal/model"
	"github.com/erazemk/resale/internal/session"
)

// App is the top-level front-end state: the active view, the marketplace
// catalog and the cart, and the dashboard of the signed-in role.
type App struct {
	api     API
	session *session.Store
	cart    *cart.Cart

	mu            sync.Mutex
	view          View
	dash          *Dashboard
	filters       catalog.Options
	sort          catalog.SortOrder
	items         []model.Item
	catalogErr    string
	loginRequired bool
}

// NewApp returns the front-end state for sess, starting on the view the
// session's user lands on.
func NewApp(api API, sess *session.Store) *App {
	a := &App{
		api:     api,
		session: sess,
		cart:    cart.New(),
		filters: catalog.DefaultFilters(),
		sort:    catalog.SortNewest,
	}
	a.mount(Landing(sess.User()))
	return a
}

// mount switches to v, closing the previous dashboard.
func (a *App) mount(v View) {
	var dash *Dashboard
	if v.Role() != "" {
		if u := a.session.User(); u != nil {
			dash = NewDashboard(a.api, *u, a.cart)
		}
	}

	a.mu.Lock()
	old := a.dash
	a.view = v
	a.dash = dash
	a.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

// View returns the active view.
func (a *App) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view
}

// Dashboard returns the mounted dashboard, or nil outside the role views.
func (a *App) Dashboard() *Dashboard {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dash
}

// Cart returns the shopping cart.
func (a *App) Cart() *cart.Cart { return a.cart }

// Session returns the session store.
func (a *App) Session() *session.Store { return a.session }

// LoginRequired reports whether the user was sent to the marketplace to sign in.
func (a *App) LoginRequired() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loginRequired
}

// SetView opens v if the signed-in role may see it.
func (a *App) SetView(v View) error {
	if err := check(v, a.session.User()); err != nil {
		if errors.Is(err, ErrLoginRequired) {
			a.mu.Lock()
			a.loginRequired = true
			a.mu.Unlock()
		}
		return fmt.Errorf("opening %s: %w", v, err)
	}
	if v == a.View() {
		return nil
	}
	a.mount(v)
	return nil
}

// Unauthorized handles a 401 from the backend: the session is dropped and the
// user is sent to the marketplace to sign in again.
func (a *App) Unauthorized() {
	if err := a.session.Clear(); err != nil {
		slog.Error("failed to clear session", "error", err)
	}
	a.mount(ViewMarketplace)
	a.mu.Lock()
	a.loginRequired = true
	a.mu.Unlock()
}

// Login signs in and opens the user's landing view.
func (a *App) Login(ctx context.Context, email, password string) (*model.User, error) {
	u, err := a.session.Login(ctx, a.api, email, password)
	if err != nil {
		return nil, err
	}
	a.signedIn(u)
	return u, nil
}

// Register creates an account, signs in and opens its landing view.
func (a *App) Register(ctx context.Context, name, email, password, role string) (*model.User, error) {
	u, err := a.session.Register(ctx, a.api, name, email, password, role)
	if err != nil {
		return nil, err
	}
	a.signedIn(u)
	return u, nil
}

func (a *App) signedIn(u *model.User) {
	a.mu.Lock()
	a.loginRequired = false
	a.mu.Unlock()
	a.mount(Landing(u))
}

// Logout ends the session and returns to the marketplace.
func (a *App) Logout(ctx context.Context) error {
	err := a.session.Logout(ctx, a.api)
	a.mount(ViewMarketplace)
	return err
}

// LoadCatalog fetches the marketplace items. On failure the previous items
// are kept and CatalogErr reports the problem until a load succeeds.
func (a *App) LoadCatalog(ctx context.Context) error {
	items, err := a.api.ListItems(ctx, nil)
	if err != nil {
		slog.Error("failed to load catalog", "error", err)
		a.mu.Lock()
		a.catalogErr = "Failed to load items"
		a.mu.Unlock()
		return fmt.Errorf("loading catalog: %w", err)
	}

	a.mu.Lock()
	a.items = items
	a.catalogErr = ""
	a.mu.Unlock()
	return nil
}

// Retry reloads the catalog after a failed load.
func (a *App) Retry(ctx context.Context) error {
	return a.LoadCatalog(ctx)
}

// CatalogErr returns the message of the last failed catalog load, or "".
func (a *App) CatalogErr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.catalogErr
}

// Filters returns the active catalog filters.
func (a *App) Filters() catalog.Options {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.filters
}

// SetFilters replaces the catalog filters.
func (a *App) SetFilters(opts catalog.Options) {
	a.mu.Lock()
	a.filters = opts
	a.mu.Unlock()
}

// SetSort changes the catalog order.
func (a *App) SetSort(order catalog.SortOrder) {
	a.mu.Lock()
	a.sort = order
	a.mu.Unlock()
}

// Visible returns the loaded items that pass the filters, in the chosen order.
func (a *App) Visible() []model.Item {
	a.mu.Lock()
	items, opts, order := slices.Clone(a.items), a.filters, a.sort
	a.mu.Unlock()
	return catalog.Sort(catalog.Filter(items, opts), order)
}

// Item returns a loaded item by id.
func (a *App) Item(id int64) (model.Item, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, it := range a.items {
		if it.ID == id {
			return it, true
		}
	}
	return model.Item{}, false
}

// AddToCart adds one unit of a loaded item to the cart.
func (a *App) AddToCart(id int64) (bool, error) {
	it, ok := a.Item(id)
	if !ok {
		return false, fmt.Errorf("item %d: %w", id, ErrNotListed)
	}
	return a.cart.Add(it), nil
}

// Checkout places an order for the cart as the signed-in customer, then
// reloads the catalog so stock counts are current.
func (a *App) Checkout(ctx context.Context, shippingAddress string) (*model.Order, error) {
	u := a.session.User()
	if u == nil {
		a.mu.Lock()
		a.loginRequired = true
		a.mu.Unlock()
		return nil, ErrLoginRequired
	}
	if !model.CapabilitiesFor(u.Role).PlaceOrders {
		return nil, fmt.Errorf("checkout as %s: %w", u.Role, ErrForbidden)
	}

	var order *model.Order
	var err error
	if d := a.Dashboard(); d != nil {
		order, err = d.PlaceOrder(ctx, shippingAddress)
	} else {
		order, err = a.cart.Checkout(ctx, a.api, shippingAddress)
	}
	if err != nil {
		return nil, err
	}

	if err := a.LoadCatalog(ctx); err != nil {
		slog.Warn("catalog reload after checkout failed", "error", err)
	}
	return order, nil
}

// Partners lists partner businesses, optionally in one location.
func (a *App) Partners(ctx context.Context, location string) ([]model.Partner, error) {
	if location == catalog.All {
		location = ""
	}
	partners, err := a.api.ListPartners(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("listing partners: %w", err)
	}
	return partners, nil
}

// Rewards returns the rewards view content.
func (a *App) Rewards() Rewards {
	return EcoRewards()
}
