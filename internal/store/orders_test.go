package store

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/erazemk/resale/internal/db"
	"github.com/erazemk/resale/internal/model"
)

func TestCreateOrderDecrementsStock(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	partner := mustUser(t, database, "p@example.com", model.RolePartner)
	customer := mustUser(t, database, "c@example.com", model.RoleCustomer)
	a := mustItem(t, database, partner.ID, "A", "10.10", 5)
	b := mustItem(t, database, partner.ID, "B", "20", 2)

	order, err := CreateOrder(ctx, database, customer.ID, []OrderLineInput{
		{ItemID: a.ID, Quantity: 3},
		{ItemID: b.ID, Quantity: 2},
	}, "1 Main St")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.Status != model.OrderPlaced {
		t.Errorf("expected status placed, got %q", order.Status)
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("70.30")) {
		t.Errorf("expected total 70.30, got %s", order.TotalAmount)
	}
	if len(order.Items) != 2 || order.Items[0].PartnerID != partner.ID {
		t.Errorf("unexpected lines: %+v", order.Items)
	}

	aAfter, _ := GetItem(ctx, database, a.ID)
	bAfter, _ := GetItem(ctx, database, b.ID)
	if aAfter.Quantity != 2 || bAfter.Quantity != 0 {
		t.Errorf("stock not decreased: %d %d", aAfter.Quantity, bAfter.Quantity)
	}
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	partner := mustUser(t, database, "p@example.com", model.RolePartner)
	customer := mustUser(t, database, "c@example.com", model.RoleCustomer)
	a := mustItem(t, database, partner.ID, "A", "10", 5)
	b := mustItem(t, database, partner.ID, "B", "20", 1)

	_, err := CreateOrder(ctx, database, customer.ID, []OrderLineInput{
		{ItemID: a.ID, Quantity: 1},
		{ItemID: b.ID, Quantity: 2},
	}, "")
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// Nothing is reserved from a refused order.
	aAfter, _ := GetItem(ctx, database, a.ID)
	if aAfter.Quantity != 5 {
		t.Errorf("expected stock 5 after rollback, got %d", aAfter.Quantity)
	}
}

func TestOrderLifecycleTransitions(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	partner := mustUser(t, database, "p@example.com", model.RolePartner)
	customer := mustUser(t, database, "c@example.com", model.RoleCustomer)
	a := mustItem(t, database, partner.ID, "A", "10", 5)

	order, _ := CreateOrder(ctx, database, customer.ID, []OrderLineInput{{ItemID: a.ID, Quantity: 1}}, "")

	if _, err := TransitionOrder(ctx, database, order.ID, model.ActionDeliver); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("deliver from placed: expected ErrInvalidTransition, got %v", err)
	}

	for _, step := range []struct{ action, want string }{
		{model.ActionShip, model.OrderShipped},
		{model.ActionDeliver, model.OrderDelivered},
		{model.ActionMarkReturned, model.OrderReturned},
	} {
		got, err := TransitionOrder(ctx, database, order.ID, step.action)
		if err != nil {
			t.Fatalf("%s: %v", step.action, err)
		}
		if got.Status != step.want {
			t.Errorf("%s: expected %q, got %q", step.action, step.want, got.Status)
		}
	}

	if _, err := TransitionOrder(ctx, database, order.ID, model.ActionShip); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("ship from returned: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := TransitionOrder(ctx, database, 999, model.ActionShip); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCancelOrderRestocks(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	partner := mustUser(t, database, "p@example.com", model.RolePartner)
	customer := mustUser(t, database, "c@example.com", model.RoleCustomer)
	a := mustItem(t, database, partner.ID, "A", "10", 4)

	order, _ := CreateOrder(ctx, database, customer.ID, []OrderLineInput{{ItemID: a.ID, Quantity: 3}}, "")
	cancelled, err := TransitionOrder(ctx, database, order.ID, model.ActionCancel)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != model.OrderCancelled {
		t.Errorf("expected cancelled, got %q", cancelled.Status)
	}

	aAfter, _ := GetItem(ctx, database, a.ID)
	if aAfter.Quantity != 4 {
		t.Errorf("expected stock restored to 4, got %d", aAfter.Quantity)
	}
}

func TestListOrdersScoped(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	p1 := mustUser(t, database, "p1@example.com", model.RolePartner)
	p2 := mustUser(t, database, "p2@example.com", model.RolePartner)
	c1 := mustUser(t, database, "c1@example.com", model.RoleCustomer)
	c2 := mustUser(t, database, "c2@example.com", model.RoleCustomer)
	a := mustItem(t, database, p1.ID, "A", "10", 10)
	b := mustItem(t, database, p2.ID, "B", "10", 10)

	CreateOrder(ctx, database, c1.ID, []OrderLineInput{{ItemID: a.ID, Quantity: 1}}, "")
	CreateOrder(ctx, database, c2.ID, []OrderLineInput{{ItemID: b.ID, Quantity: 1}}, "")
	CreateOrder(ctx, database, c2.ID, []OrderLineInput{{ItemID: a.ID, Quantity: 1}, {ItemID: b.ID, Quantity: 1}}, "")

	all, _ := ListOrders(ctx, database, OrderFilter{})
	if len(all) != 3 {
		t.Errorf("expected 3 orders, got %d", len(all))
	}
	byCustomer, _ := ListOrders(ctx, database, OrderFilter{CustomerID: c2.ID})
	if len(byCustomer) != 2 {
		t.Errorf("expected 2 orders for c2, got %d", len(byCustomer))
	}
	byPartner, _ := ListOrders(ctx, database, OrderFilter{PartnerID: p1.ID})
	if len(byPartner) != 2 {
		t.Errorf("expected 2 orders holding p1 items, got %d", len(byPartner))
	}
	for _, o := range byPartner {
		if len(o.Items) == 0 {
			t.Errorf("order %d loaded without lines", o.ID)
		}
	}
}
