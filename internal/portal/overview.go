package portal

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/erazemk/resale/internal/model"
)

// Stats are the headline numbers at the top of a dashboard.
type Stats struct {
	Listings  int
	Orders    int
	Placed    int
	Shipped   int
	Delivered int
	Returns   int

	// Spent is what a customer paid for delivered orders.
	Spent decimal.Decimal
	// Revenue is the value of non-cancelled sales: a partner's own lines, or
	// every order for an admin.
	Revenue decimal.Decimal
}

// Overview fetches items, orders and returns in parallel and summarizes
// them. It fails as a whole if any fetch fails.
func (d *Dashboard) Overview(ctx context.Context) (Stats, error) {
	if d.Closed() {
		return Stats{}, ErrClosed
	}
	ctx, done := d.bind(ctx)
	defer done()

	var (
		items   []model.Item
		orders  []model.Order
		returns []model.Return
	)

	var query url.Values
	if d.caps.Role == model.RolePartner {
		query = url.Values{"partnerId": {strconv.FormatInt(d.user.ID, 10)}}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = d.api.ListItems(ctx, query)
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = d.api.ListOrders(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		returns, err = d.listReturns(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		d.fail("load overview", err)
		return Stats{}, fmt.Errorf("loading overview: %w", err)
	}

	stats := Summarize(d.user, items, orders, returns)
	d.update(func() {
		d.items = items
		d.orders = orders
		d.returns = returns
	})
	return stats, nil
}

// Summarize computes the stats user sees over the given lists.
func Summarize(user model.User, items []model.Item, orders []model.Order, returns []model.Return) Stats {
	s := Stats{
		Listings: len(items),
		Orders:   len(orders),
		Returns:  len(returns),
		Spent:    decimal.Zero,
		Revenue:  decimal.Zero,
	}

	for _, o := range orders {
		switch o.Status {
		case model.OrderPlaced:
			s.Placed++
		case model.OrderShipped:
			s.Shipped++
		case model.OrderDelivered:
			s.Delivered++
			if o.CustomerID == user.ID {
				s.Spent = s.Spent.Add(o.TotalAmount)
			}
		}

		if o.Status == model.OrderCancelled {
			continue
		}
		switch user.Role {
		case model.RolePartner:
			for _, l := range o.Items {
				if l.PartnerID == user.ID {
					s.Revenue = s.Revenue.Add(l.Subtotal())
				}
			}
		case model.RoleAdmin:
			s.Revenue = s.Revenue.Add(o.TotalAmount)
		}
	}
	return s
}
