package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/erazemk/resale/internal/db"
	"github.com/erazemk/resale/internal/model"
)

type returnFixture struct {
	db       *sql.DB
	order    *model.Order
	customer *model.User
	partner  *model.User
	item     *model.Item
}

func newReturnFixture(t *testing.T) returnFixture {
	t.Helper()
	ctx := context.Background()
	database := db.NewTestDB(t)
	partner := mustUser(t, database, "p@example.com", model.RolePartner)
	customer := mustUser(t, database, "c@example.com", model.RoleCustomer)
	item := mustItem(t, database, partner.ID, "A", "25", 2)

	order, err := CreateOrder(ctx, database, customer.ID, []OrderLineInput{{ItemID: item.ID, Quantity: 2}}, "")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	TransitionOrder(ctx, database, order.ID, model.ActionShip)
	order, _ = TransitionOrder(ctx, database, order.ID, model.ActionDeliver)

	return returnFixture{db: database, order: order, customer: customer, partner: partner, item: item}
}

func (f returnFixture) create(t *testing.T) (*model.Return, error) {
	t.Helper()
	return CreateReturn(context.Background(), f.db, f.customer.ID, f.order,
		model.ReturnLine{ItemID: f.item.ID, Quantity: 2, Condition: model.ConditionDamaged}, f.partner.ID, "arrived broken")
}

func TestCreateReturn(t *testing.T) {
	f := newReturnFixture(t)

	ret, err := f.create(t)
	if err != nil {
		t.Fatalf("CreateReturn: %v", err)
	}
	if ret.Status != model.ReturnPending {
		t.Errorf("expected pending, got %q", ret.Status)
	}
	if ret.PartnerID != f.partner.ID || ret.OrderID != f.order.ID {
		t.Errorf("unexpected return: %+v", ret)
	}
	if len(ret.Items) != 1 || ret.Items[0].Condition != model.ConditionDamaged {
		t.Errorf("unexpected lines: %+v", ret.Items)
	}
	if ret.RefundAmount != nil {
		t.Error("expected no refund on a pending return")
	}
}

func TestDuplicateReturnRejected(t *testing.T) {
	f := newReturnFixture(t)

	if _, err := f.create(t); err != nil {
		t.Fatalf("CreateReturn: %v", err)
	}
	if _, err := f.create(t); !errors.Is(err, ErrReturnExists) {
		t.Errorf("expected ErrReturnExists, got %v", err)
	}
}

func TestReturnAfterRejectionAllowed(t *testing.T) {
	f := newReturnFixture(t)
	ctx := context.Background()

	ret, _ := f.create(t)
	if _, err := ResolveReturn(ctx, f.db, ret.ID, model.ActionReject, decimal.Zero, "no damage visible"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := f.create(t); err != nil {
		t.Errorf("expected a new request after rejection, got %v", err)
	}
}

func TestResolveReturn(t *testing.T) {
	f := newReturnFixture(t)
	ctx := context.Background()

	ret, _ := f.create(t)
	approved, err := ResolveReturn(ctx, f.db, ret.ID, model.ActionApprove, decimal.RequireFromString("45.50"), "")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != model.ReturnApproved {
		t.Errorf("expected approved, got %q", approved.Status)
	}
	if approved.RefundAmount == nil || !approved.RefundAmount.Equal(decimal.RequireFromString("45.50")) {
		t.Errorf("expected refund 45.50, got %v", approved.RefundAmount)
	}

	if _, err := ResolveReturn(ctx, f.db, ret.ID, model.ActionReject, decimal.Zero, "late"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second resolution: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := ResolveReturn(ctx, f.db, 999, model.ActionApprove, decimal.Zero, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListReturnsScoped(t *testing.T) {
	f := newReturnFixture(t)
	ctx := context.Background()
	f.create(t)

	other := mustUser(t, f.db, "other@example.com", model.RolePartner)

	mine, _ := ListReturns(ctx, f.db, ReturnFilter{PartnerID: f.partner.ID, Status: model.ReturnPending})
	if len(mine) != 1 {
		t.Errorf("expected 1 pending return for partner, got %d", len(mine))
	}
	theirs, _ := ListReturns(ctx, f.db, ReturnFilter{PartnerID: other.ID})
	if len(theirs) != 0 {
		t.Errorf("expected no returns for other partner, got %d", len(theirs))
	}
	byCustomer, _ := ListReturns(ctx, f.db, ReturnFilter{CustomerID: f.customer.ID})
	if len(byCustomer) != 1 || len(byCustomer[0].Items) != 1 {
		t.Errorf("expected customer return with lines, got %+v", byCustomer)
	}
}
