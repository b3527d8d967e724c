package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/erazemk/resale/internal/catalog"
	"github.com/erazemk/resale/internal/model"
	"github.com/erazemk/resale/internal/portal"
)

// errUsage marks a malformed command line.
var errUsage = errors.New("usage")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: resale "+format, append([]any{errUsage}, args...)...)
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, s)
	}
	return id, nil
}

func parseAmount(s, what string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q", what, s)
	}
	return d, nil
}

// dashboard returns the signed-in user's dashboard.
func dashboard(e *env) (*portal.Dashboard, error) {
	if d := e.app.Dashboard(); d != nil {
		return d, nil
	}
	return nil, portal.ErrLoginRequired
}

func cmdLogin(ctx context.Context, e *env, args []string) error {
	fs := newFlags("login")
	email := fs.String("email", "", "")
	password := fs.String("password", "", "")
	if err := fs.Parse(args); err != nil || *email == "" || *password == "" {
		return usageError("login -email <email> -password <password>")
	}

	u, err := e.app.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %s (%s). Opening %s.\n", u.Name, u.Role, e.app.View())
	return nil
}

func cmdRegister(ctx context.Context, e *env, args []string) error {
	fs := newFlags("register")
	name := fs.String("name", "", "")
	email := fs.String("email", "", "")
	password := fs.String("password", "", "")
	role := fs.String("role", model.RoleCustomer, "")
	if err := fs.Parse(args); err != nil || *name == "" || *email == "" || *password == "" {
		return usageError("register -name <name> -email <email> -password <password> [-role customer|partner]")
	}

	u, err := e.app.Register(ctx, *name, *email, *password, *role)
	if err != nil {
		return err
	}
	fmt.Printf("Welcome, %s. Registered as %s.\n", u.Name, u.Role)
	return nil
}

func cmdLogout(ctx context.Context, e *env, _ []string) error {
	if err := e.app.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}

func cmdWhoami(_ context.Context, e *env, _ []string) error {
	u := e.app.Session().User()
	if u == nil {
		fmt.Println("Not logged in.")
		return nil
	}
	fmt.Printf("%s <%s>\nRole:     %s\n", u.Name, u.Email, u.Role)
	if u.Location != "" {
		fmt.Printf("Location: %s\n", u.Location)
	}
	fmt.Printf("Server:   %s\n", e.cfg.BaseURL)
	return nil
}

func cmdPasswd(ctx context.Context, e *env, args []string) error {
	fs := newFlags("passwd")
	current := fs.String("current", "", "")
	next := fs.String("new", "", "")
	if err := fs.Parse(args); err != nil || *current == "" || *next == "" {
		return usageError("passwd -current <password> -new <password>")
	}
	if !e.app.Session().Authenticated() {
		return portal.ErrLoginRequired
	}
	if err := e.client.ChangePassword(ctx, *current, *next); err != nil {
		return err
	}
	fmt.Println("Password changed.")
	return nil
}

func cmdItems(ctx context.Context, e *env, args []string) error {
	fs := newFlags("items")
	condition := fs.String("condition", catalog.All, "")
	category := fs.String("category", catalog.All, "")
	location := fs.String("location", catalog.All, "")
	minPrice := fs.String("min", "0", "")
	maxPrice := fs.String("max", catalog.DefaultMaxPrice.String(), "")
	sortBy := fs.String("sort", "newest", "")
	if err := fs.Parse(args); err != nil {
		return usageError("items [-condition c] [-category c] [-location l] [-min n] [-max n] [-sort order]")
	}

	lo, err := parseAmount(*minPrice, "minimum price")
	if err != nil {
		return err
	}
	hi, err := parseAmount(*maxPrice, "maximum price")
	if err != nil {
		return err
	}
	order, ok := catalog.ParseSort(*sortBy)
	if !ok {
		return fmt.Errorf("unknown sort order %q", *sortBy)
	}

	if err := e.app.LoadCatalog(ctx); err != nil {
		return err
	}
	e.app.SetFilters(catalog.Options{
		Condition:  *condition,
		Category:   *category,
		Location:   *location,
		PriceRange: [2]decimal.Decimal{lo, hi},
	})
	e.app.SetSort(order)

	printItems(os.Stdout, e.app.Visible())
	return nil
}

func cmdPartners(ctx context.Context, e *env, args []string) error {
	fs := newFlags("partners")
	location := fs.String("location", "", "")
	if err := fs.Parse(args); err != nil {
		return usageError("partners [-location l]")
	}

	partners, err := e.app.Partners(ctx, *location)
	if err != nil {
		return err
	}
	printPartners(os.Stdout, partners)
	return nil
}

func cmdBuy(ctx context.Context, e *env, args []string) error {
	fs := newFlags("buy")
	address := fs.String("address", "", "")
	if err := fs.Parse(args); err != nil || fs.NArg() == 0 {
		return usageError("buy -address <address> <item>[:qty]...")
	}

	if err := e.app.LoadCatalog(ctx); err != nil {
		return err
	}

	c := e.app.Cart()
	for _, arg := range fs.Args() {
		idStr, qtyStr, hasQty := strings.Cut(arg, ":")
		id, err := parseID(idStr, "item")
		if err != nil {
			return err
		}
		qty := 1
		if hasQty {
			if qty, err = strconv.Atoi(qtyStr); err != nil || qty <= 0 {
				return fmt.Errorf("invalid quantity %q", qtyStr)
			}
		}

		added, err := e.app.AddToCart(id)
		if err != nil {
			return err
		}
		if !added {
			return fmt.Errorf("item %d is out of stock", id)
		}
		for _, l := range c.Lines() {
			if l.Item.ID == id {
				c.SetQuantity(id, l.Quantity-1+qty)
				break
			}
		}
	}

	printCart(os.Stdout, c)
	order, err := e.app.Checkout(ctx, *address)
	if err != nil {
		return err
	}
	fmt.Printf("\nOrder #%d placed, total %s.\n", order.ID, money(order.TotalAmount))
	return nil
}

func cmdRewards(_ context.Context, e *env, _ []string) error {
	if err := e.app.SetView(portal.ViewRewards); err != nil {
		return err
	}
	printRewards(os.Stdout, e.app.Rewards())
	return nil
}

func cmdOverview(ctx context.Context, e *env, _ []string) error {
	d, err := dashboard(e)
	if err != nil {
		return err
	}
	stats, err := d.Overview(ctx)
	if err != nil {
		return err
	}
	printStats(os.Stdout, d, stats, e.app.Cart().Count())
	return nil
}

func cmdOrders(ctx context.Context, e *env, _ []string) error {
	d, err := dashboard(e)
	if err != nil {
		return err
	}
	if err := d.SelectTab(ctx, portal.TabOrders); err != nil {
		return err
	}
	printOrders(os.Stdout, d)
	return nil
}

func cmdOrder(ctx context.Context, e *env, args []string) error {
	if len(args) != 2 {
		return usageError("order <cancel|ship|deliver|returned> <order-id>")
	}
	id, err := parseID(args[1], "order")
	if err != nil {
		return err
	}
	d, err := dashboard(e)
	if err != nil {
		return err
	}
	if err := d.SelectTab(ctx, portal.TabOrders); err != nil {
		return err
	}
	if err := d.OrderAction(ctx, id, args[0]); err != nil {
		return err
	}
	printOrders(os.Stdout, d)
	return nil
}

func cmdReturns(ctx context.Context, e *env, _ []string) error {
	d, err := dashboard(e)
	if err != nil {
		return err
	}
	if err := d.SelectTab(ctx, portal.TabReturns); err != nil {
		return err
	}
	printReturns(os.Stdout, d)
	return nil
}

func cmdReturn(ctx context.Context, e *env, args []string) error {
	fs := newFlags("return")
	orderID := fs.Int64("order", 0, "")
	itemID := fs.Int64("item", 0, "")
	qty := fs.Int("qty", 0, "")
	reason := fs.String("reason", "", "")
	condition := fs.String("condition", model.ConditionUsed, "")
	if err := fs.Parse(args); err != nil || *orderID <= 0 || *itemID <= 0 {
		return usageError("return -order <id> -item <id> -reason <text> [-qty n] [-condition c]")
	}

	d, err := dashboard(e)
	if err != nil {
		return err
	}
	if err := d.SelectTab(ctx, portal.TabOrders); err != nil {
		return err
	}
	err = d.RequestReturn(ctx, model.ReturnRequest{
		OrderID:   *orderID,
		ItemID:    *itemID,
		Quantity:  *qty,
		Reason:    *reason,
		Condition: *condition,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Return requested for item %d of order #%d.\n", *itemID, *orderID)
	return nil
}

func cmdApprove(ctx context.Context, e *env, args []string) error {
	fs := newFlags("approve")
	refundStr := fs.String("refund", "", "")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return usageError("approve [-refund amount] <return-id>")
	}
	id, err := parseID(fs.Arg(0), "return")
	if err != nil {
		return err
	}
	var refund *decimal.Decimal
	if *refundStr != "" {
		amount, err := parseAmount(*refundStr, "refund")
		if err != nil {
			return err
		}
		refund = &amount
	}

	d, err := dashboard(e)
	if err != nil {
		return err
	}
	if err := d.SelectTab(ctx, portal.TabReturns); err != nil {
		return err
	}
	if err := d.Approve(ctx, id, refund); err != nil {
		return err
	}
	fmt.Printf("Return #%d approved.\n", id)
	return nil
}

func cmdReject(ctx context.Context, e *env, args []string) error {
	fs := newFlags("reject")
	reason := fs.String("reason", "", "")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return usageError("reject [-reason text] <return-id>")
	}
	id, err := parseID(fs.Arg(0), "return")
	if err != nil {
		return err
	}

	d, err := dashboard(e)
	if err != nil {
		return err
	}
	if err := d.SelectTab(ctx, portal.TabReturns); err != nil {
		return err
	}
	if err := d.Reject(ctx, id, *reason); err != nil {
		return err
	}
	fmt.Printf("Return #%d rejected.\n", id)
	return nil
}

func cmdListings(ctx context.Context, e *env, _ []string) error {
	d, err := dashboard(e)
	if err != nil {
		return err
	}
	items, err := d.Listings(ctx)
	if err != nil {
		return err
	}
	printItems(os.Stdout, items)
	return nil
}

func cmdItemAdd(ctx context.Context, e *env, args []string) error {
	fs := newFlags("item-add")
	name := fs.String("name", "", "")
	description := fs.String("description", "", "")
	price := fs.String("price", "", "")
	original := fs.String("original", "", "")
	qty := fs.Int("qty", 1, "")
	condition := fs.String("condition", model.ConditionUsed, "")
	category := fs.String("category", "", "")
	image := fs.String("image", "", "")
	if err := fs.Parse(args); err != nil || *name == "" || *price == "" {
		return usageError("item-add -name <name> -price <n> [-original n] [-qty n] [-condition c] [-category c] [-description d] [-image path]")
	}

	it := &model.Item{
		Name:        *name,
		Description: *description,
		Quantity:    *qty,
		Condition:   *condition,
		Category:    *category,
	}
	var err error
	if it.Price, err = parseAmount(*price, "price"); err != nil {
		return err
	}
	if *original != "" {
		if it.OriginalPrice, err = parseAmount(*original, "original price"); err != nil {
			return err
		}
	}

	d, err := dashboard(e)
	if err != nil {
		return err
	}
	created, err := d.CreateItem(ctx, it)
	if err != nil {
		return err
	}
	fmt.Printf("Item #%d listed at %s.\n", created.ID, money(created.Price))

	if *image != "" {
		f, err := os.Open(*image)
		if err != nil {
			return fmt.Errorf("opening image: %w", err)
		}
		defer f.Close()
		if err := d.UploadImage(ctx, created.ID, f); err != nil {
			return err
		}
		fmt.Println("Photo uploaded.")
	}
	return nil
}

func cmdItemRemove(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return usageError("item-rm <item-id>")
	}
	id, err := parseID(args[0], "item")
	if err != nil {
		return err
	}
	d, err := dashboard(e)
	if err != nil {
		return err
	}
	if err := d.DeleteItem(ctx, id); err != nil {
		return err
	}
	fmt.Printf("Item #%d removed.\n", id)
	return nil
}

func cmdUsers(ctx context.Context, e *env, _ []string) error {
	d, err := dashboard(e)
	if err != nil {
		return err
	}
	if err := d.SelectTab(ctx, portal.TabUsers); err != nil {
		return err
	}
	printUsers(os.Stdout, d.Users())
	return nil
}

func cmdUserAdd(ctx context.Context, e *env, args []string) error {
	fs := newFlags("user-add")
	var in model.UserInput
	fs.StringVar(&in.Name, "name", "", "")
	fs.StringVar(&in.Email, "email", "", "")
	fs.StringVar(&in.Password, "password", "", "")
	fs.StringVar(&in.Role, "role", "", "")
	fs.StringVar(&in.Location, "location", "", "")
	if err := fs.Parse(args); err != nil || in.Name == "" || in.Email == "" || in.Password == "" || in.Role == "" {
		return usageError("user-add -name <name> -email <email> -password <password> -role <role> [-location l]")
	}

	d, err := dashboard(e)
	if err != nil {
		return err
	}
	u, err := d.CreateUser(ctx, in)
	if err != nil {
		return err
	}
	fmt.Printf("User #%d created (%s).\n", u.ID, u.Role)
	return nil
}

func cmdUserRemove(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return usageError("user-rm <user-id>")
	}
	id, err := parseID(args[0], "user")
	if err != nil {
		return err
	}
	d, err := dashboard(e)
	if err != nil {
		return err
	}
	if err := d.DeleteUser(ctx, id); err != nil {
		return err
	}
	fmt.Printf("User #%d deleted.\n", id)
	return nil
}
