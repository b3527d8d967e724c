package lifecycle

import (
	"context"
	"errors"
	"runtime"
	"slices"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/erazemk/resale/internal/model"
)

// fakeBackend keeps orders and returns in memory and applies the same
// transition tables as the real backend.
type fakeBackend struct {
	orders  map[int64]*model.Order
	returns map[int64]*model.Return
	calls   int
	block   chan struct{}
	fail    error
}

func (f *fakeBackend) TransitionOrder(_ context.Context, id int64, action string) (*model.Order, error) {
	f.calls++
	if f.block != nil {
		<-f.block
	}
	if f.fail != nil {
		return nil, f.fail
	}
	o := f.orders[id]
	next, ok := model.NextOrderStatus(o.Status, action)
	if !ok {
		return nil, errors.New("conflict")
	}
	o.Status = next
	return o, nil
}

func (f *fakeBackend) ApproveReturn(_ context.Context, id int64, refund *decimal.Decimal) (*model.Return, error) {
	f.calls++
	r := f.returns[id]
	r.Status = model.ReturnApproved
	r.RefundAmount = refund
	return r, nil
}

func (f *fakeBackend) RejectReturn(_ context.Context, id int64, reason string) (*model.Return, error) {
	f.calls++
	r := f.returns[id]
	r.Status = model.ReturnRejected
	r.RejectReason = reason
	return r, nil
}

func TestOrderActions(t *testing.T) {
	tests := []struct {
		status string
		role   string
		want   []string
	}{
		{model.OrderPlaced, model.RoleCustomer, []string{model.ActionCancel}},
		{model.OrderPlaced, model.RolePartner, []string{model.ActionShip}},
		{model.OrderShipped, model.RoleCustomer, nil},
		{model.OrderShipped, model.RoleAdmin, []string{model.ActionDeliver}},
		{model.OrderDelivered, model.RolePartner, []string{model.ActionMarkReturned}},
		{model.OrderCancelled, model.RoleAdmin, nil},
		{model.OrderReturned, model.RolePartner, nil},
		{model.OrderPlaced, "guest", nil},
	}

	for _, tt := range tests {
		got := OrderActions(model.Order{Status: tt.status}, tt.role)
		if !slices.Equal(got, tt.want) {
			t.Errorf("OrderActions(%s, %s) = %v, want %v", tt.status, tt.role, got, tt.want)
		}
	}
}

func TestReturnActions(t *testing.T) {
	pending := model.Return{Status: model.ReturnPending}
	if got := ReturnActions(pending, model.RolePartner); len(got) != 2 {
		t.Errorf("expected approve and reject for partner, got %v", got)
	}
	if got := ReturnActions(pending, model.RoleCustomer); got != nil {
		t.Errorf("expected no actions for customer, got %v", got)
	}
	if got := ReturnActions(model.Return{Status: model.ReturnApproved}, model.RoleAdmin); got != nil {
		t.Errorf("expected no actions on a resolved return, got %v", got)
	}
}

func TestMarkReturnedThenRefetch(t *testing.T) {
	backend := &fakeBackend{orders: map[int64]*model.Order{
		1: {ID: 1, Status: model.OrderDelivered},
	}}
	var listed model.Order
	refetches := 0
	r := NewRunner(func(context.Context) error {
		refetches++
		listed = *backend.orders[1]
		return nil
	})

	if err := r.Order(context.Background(), backend, *backend.orders[1], model.RolePartner, model.ActionMarkReturned); err != nil {
		t.Fatalf("mark returned: %v", err)
	}
	if refetches != 1 {
		t.Errorf("expected one refetch, got %d", refetches)
	}
	if listed.Status != model.OrderReturned {
		t.Errorf("expected refetched status returned, got %q", listed.Status)
	}
	if slices.Contains(OrderActions(listed, model.RolePartner), model.ActionShip) {
		t.Error("ship offered on a returned order")
	}

	err := r.Order(context.Background(), backend, listed, model.RolePartner, model.ActionShip)
	if !errors.Is(err, ErrIllegalAction) {
		t.Errorf("expected ErrIllegalAction, got %v", err)
	}
	if backend.calls != 1 {
		t.Errorf("expected no remote call for an illegal action, got %d calls", backend.calls)
	}
}

func TestRefetchAfterFailure(t *testing.T) {
	backend := &fakeBackend{
		orders: map[int64]*model.Order{1: {ID: 1, Status: model.OrderPlaced}},
		fail:   errors.New("boom"),
	}
	refetches := 0
	r := NewRunner(func(context.Context) error { refetches++; return nil })

	err := r.Order(context.Background(), backend, *backend.orders[1], model.RoleCustomer, model.ActionCancel)
	if !errors.Is(err, backend.fail) {
		t.Errorf("expected backend error, got %v", err)
	}
	if errors.Is(err, ErrRefresh) {
		t.Errorf("call failure reported as a refresh failure: %v", err)
	}
	if refetches != 1 {
		t.Errorf("expected refetch after a failed call, got %d", refetches)
	}
}

func TestRefetchFailureAfterSuccess(t *testing.T) {
	backend := &fakeBackend{orders: map[int64]*model.Order{1: {ID: 1, Status: model.OrderPlaced}}}
	listErr := errors.New("list failed")
	r := NewRunner(func(context.Context) error { return listErr })

	err := r.Order(context.Background(), backend, *backend.orders[1], model.RolePartner, model.ActionShip)
	if !errors.Is(err, ErrRefresh) || !errors.Is(err, listErr) {
		t.Errorf("expected ErrRefresh wrapping the list error, got %v", err)
	}
	if backend.orders[1].Status != model.OrderShipped {
		t.Errorf("expected order shipped, got %q", backend.orders[1].Status)
	}
}

func TestDuplicateActionRefused(t *testing.T) {
	backend := &fakeBackend{
		orders: map[int64]*model.Order{1: {ID: 1, Status: model.OrderPlaced}},
		block:  make(chan struct{}),
	}
	r := NewRunner(nil)
	order := *backend.orders[1]

	done := make(chan error)
	go func() {
		done <- r.Order(context.Background(), backend, order, model.RolePartner, model.ActionShip)
	}()

	for !r.Busy("order:1:ship") {
		runtime.Gosched()
	}
	err := r.Order(context.Background(), backend, order, model.RolePartner, model.ActionShip)
	if !errors.Is(err, ErrInFlight) {
		t.Errorf("expected ErrInFlight, got %v", err)
	}

	close(backend.block)
	if err := <-done; err != nil {
		t.Fatalf("first ship: %v", err)
	}
	if r.Busy("order:1:ship") {
		t.Error("expected slot released")
	}
	if backend.orders[1].Status != model.OrderShipped {
		t.Errorf("expected shipped, got %q", backend.orders[1].Status)
	}
}

func TestReviewReturn(t *testing.T) {
	backend := &fakeBackend{returns: map[int64]*model.Return{
		1: {ID: 1, Status: model.ReturnPending},
		2: {ID: 2, Status: model.ReturnPending},
	}}
	r := NewRunner(nil)
	ctx := context.Background()

	refund := decimal.RequireFromString("12.50")
	if err := r.Approve(ctx, backend, *backend.returns[1], model.RoleAdmin, &refund); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !backend.returns[1].RefundAmount.Equal(refund) {
		t.Errorf("expected refund 12.50, got %v", backend.returns[1].RefundAmount)
	}

	if err := r.Reject(ctx, backend, *backend.returns[2], model.RolePartner, "worn"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if backend.returns[2].RejectReason != "worn" {
		t.Errorf("expected reason worn, got %q", backend.returns[2].RejectReason)
	}

	if err := r.Reject(ctx, backend, *backend.returns[1], model.RoleAdmin, ""); !errors.Is(err, ErrIllegalAction) {
		t.Errorf("expected ErrIllegalAction on resolved return, got %v", err)
	}
	negative := decimal.NewFromInt(-1)
	if err := r.Approve(ctx, backend, model.Return{ID: 3, Status: model.ReturnPending}, model.RoleAdmin, &negative); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected ErrValidation for negative refund, got %v", err)
	}
}
