package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/erazemk/resale/internal/cart"
	"github.com/erazemk/resale/internal/catalog"
	"github.com/erazemk/resale/internal/model"
	"github.com/erazemk/resale/internal/portal"
)

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printItems(w io.Writer, items []model.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No items found.")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "ID\tNAME\tCONDITION\tCATEGORY\tPRICE\tWAS\tSTOCK\tLOCATION")
	for _, it := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			it.ID, it.Name, catalog.Label(catalog.Conditions, it.Condition), it.Category,
			money(it.Price), money(it.OriginalPrice), it.Quantity, it.Location)
	}
	tw.Flush()
	fmt.Fprintf(w, "%d items\n", len(items))
}

func printPartners(w io.Writer, partners []model.Partner) {
	if len(partners) == 0 {
		fmt.Fprintln(w, "No partners found.")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "ID\tNAME\tLOCATION\tEMAIL")
	for _, p := range partners {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.ID, p.Name, p.Location, p.Email)
	}
	tw.Flush()
}

func printCart(w io.Writer, c *cart.Cart) {
	tw := table(w)
	fmt.Fprintln(tw, "ITEM\tQTY\tPRICE\tSUBTOTAL")
	for _, l := range c.Lines() {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", l.Item.Name, l.Quantity, money(l.Item.Price), money(l.Subtotal()))
	}
	tw.Flush()
	fmt.Fprintf(w, "Total: %s (you save %s)\n", money(c.Total()), money(c.Savings()))
}

func printOrders(w io.Writer, d *portal.Dashboard) {
	orders := d.Orders()
	if len(orders) == 0 {
		fmt.Fprintln(w, "No orders.")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "ORDER\tSTATUS\tITEMS\tTOTAL\tPLACED\tACTIONS")
	for _, o := range orders {
		names := make([]string, 0, len(o.Items))
		for _, l := range o.Items {
			names = append(names, fmt.Sprintf("%dx %s", l.Quantity, l.ItemName))
		}
		actions := d.OrderActions(o)
		if d.Returnable(o) {
			actions = append(actions, "return")
		}
		fmt.Fprintf(tw, "#%d\t%s\t%s\t%s\t%s\t%s\n",
			o.ID, o.Status, strings.Join(names, ", "), money(o.TotalAmount),
			o.CreatedAt.Format("2006-01-02"), strings.Join(actions, " "))
	}
	tw.Flush()
}

func printReturns(w io.Writer, d *portal.Dashboard) {
	returns := d.Returns()
	if len(returns) == 0 {
		fmt.Fprintln(w, "No returns.")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "RETURN\tORDER\tSTATUS\tREASON\tREFUND\tACTIONS")
	for _, r := range returns {
		refund := "-"
		if r.RefundAmount != nil {
			refund = money(*r.RefundAmount)
		}
		reason := r.Reason
		if r.RejectReason != "" {
			reason += " (rejected: " + r.RejectReason + ")"
		}
		fmt.Fprintf(tw, "#%d\t#%d\t%s\t%s\t%s\t%s\n",
			r.ID, r.OrderID, r.Status, reason, refund, strings.Join(d.ReturnActions(r), " "))
	}
	tw.Flush()
}

func printUsers(w io.Writer, users []model.User) {
	tw := table(w)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tLOCATION")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role, u.Location)
	}
	tw.Flush()
}

func printStats(w io.Writer, d *portal.Dashboard, s portal.Stats, inCart int) {
	u := d.User()
	fmt.Fprintf(w, "%s (%s)\n\n", u.Name, u.Role)
	tw := table(w)
	switch u.Role {
	case model.RoleCustomer:
		fmt.Fprintf(tw, "Total orders\t%d\n", s.Orders)
		fmt.Fprintf(tw, "Returns\t%d\n", s.Returns)
		fmt.Fprintf(tw, "Total spent\t%s\n", money(s.Spent))
		fmt.Fprintf(tw, "Items in cart\t%d\n", inCart)
	default:
		fmt.Fprintf(tw, "Listings\t%d\n", s.Listings)
		fmt.Fprintf(tw, "Placed\t%d\n", s.Placed)
		fmt.Fprintf(tw, "Shipped\t%d\n", s.Shipped)
		fmt.Fprintf(tw, "Delivered\t%d\n", s.Delivered)
		fmt.Fprintf(tw, "Pending returns\t%d\n", s.Returns)
		fmt.Fprintf(tw, "Revenue\t%s\n", money(s.Revenue))
	}
	tw.Flush()
}

func printRewards(w io.Writer, r portal.Rewards) {
	s := r.Stats
	fmt.Fprintf(w, "Level: %s (next: %s)\n", s.Level, s.NextLevel)
	fmt.Fprintf(w, "Eco points: %d  Carbon saved: %dkg  Money saved: %s  Purchases: %d\n\n",
		s.EcoPoints, s.CarbonSavedKg, money(s.MoneySaved), s.TotalPurchases)

	tw := table(w)
	fmt.Fprintln(tw, "ACHIEVEMENT\tPOINTS\tDONE")
	for _, a := range r.Achievements {
		done := ""
		if a.Completed {
			done = "yes"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", a.Name, a.Points, done)
	}
	tw.Flush()
	fmt.Fprintln(w)

	tw = table(w)
	fmt.Fprintln(tw, "REWARD\tCOST\tREDEEMABLE")
	redeemable := r.Redeemable()
	for _, rw := range r.Rewards {
		ok := ""
		for _, x := range redeemable {
			if x.Name == rw.Name {
				ok = "yes"
			}
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", rw.Name, rw.Cost, ok)
	}
	tw.Flush()
}
