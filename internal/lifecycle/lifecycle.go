// Package lifecycle decides which order and return actions a role may take
// and runs them against the backend, one at a time per target.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/erazemk/resale/internal/model"
)

var (
	// ErrIllegalAction is returned for an action the status or role does not allow.
	ErrIllegalAction = errors.New("action not allowed")
	// ErrInFlight is returned when the same action is already running.
	ErrInFlight = errors.New("action already in progress")
	// ErrRefresh marks a refetch failure after an action that succeeded.
	ErrRefresh = errors.New("refresh failed")
)

// orderActionOrder fixes the order actions are offered in.
var orderActionOrder = []string{
	model.ActionCancel,
	model.ActionShip,
	model.ActionDeliver,
	model.ActionMarkReturned,
}

// OrderActions lists the actions role may take on order in its current status.
// Terminal orders have none.
func OrderActions(order model.Order, role string) []string {
	caps := model.CapabilitiesFor(role)
	var actions []string
	for _, a := range orderActionOrder {
		if !caps.AllowsOrderAction(a) {
			continue
		}
		if _, ok := model.NextOrderStatus(order.Status, a); ok {
			actions = append(actions, a)
		}
	}
	return actions
}

// ReturnActions lists approve and reject while ret is pending and role reviews returns.
func ReturnActions(ret model.Return, role string) []string {
	if !model.CapabilitiesFor(role).ReviewReturns || ret.Status != model.ReturnPending {
		return nil
	}
	return []string{model.ActionApprove, model.ActionReject}
}

// OrderAPI applies order transitions. *client.Client satisfies it.
type OrderAPI interface {
	TransitionOrder(ctx context.Context, id int64, action string) (*model.Order, error)
}

// ReturnAPI resolves returns. *client.Client satisfies it.
type ReturnAPI interface {
	ApproveReturn(ctx context.Context, id int64, refund *decimal.Decimal) (*model.Return, error)
	RejectReturn(ctx context.Context, id int64, reason string) (*model.Return, error)
}

// Runner executes actions with a fire-and-refetch discipline: one remote
// call, then an unconditional refetch of the affected list.
type Runner struct {
	refetch func(context.Context) error

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewRunner returns a runner that calls refetch after every remote call.
// A nil refetch is allowed.
func NewRunner(refetch func(context.Context) error) *Runner {
	return &Runner{refetch: refetch, inFlight: make(map[string]struct{})}
}

// Busy reports whether an action with key is running.
func (r *Runner) Busy(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.inFlight[key]
	return ok
}

func (r *Runner) acquire(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inFlight[key]; ok {
		return false
	}
	r.inFlight[key] = struct{}{}
	return true
}

func (r *Runner) release(key string) {
	r.mu.Lock()
	delete(r.inFlight, key)
	r.mu.Unlock()
}

// Run performs call under key. A second Run with the same key before the
// first returns fails with ErrInFlight. The refetch runs whether or not call
// succeeded; the call error takes precedence.
func (r *Runner) Run(ctx context.Context, key string, call func(context.Context) error) error {
	if !r.acquire(key) {
		return fmt.Errorf("%s: %w", key, ErrInFlight)
	}
	defer r.release(key)

	callErr := call(ctx)
	if r.refetch != nil {
		if err := r.refetch(ctx); err != nil && callErr == nil {
			return fmt.Errorf("%w after %s: %w", ErrRefresh, key, err)
		}
	}
	return callErr
}

// Order applies action to order as role.
func (r *Runner) Order(ctx context.Context, api OrderAPI, order model.Order, role, action string) error {
	if !slices.Contains(OrderActions(order, role), action) {
		return fmt.Errorf("%s order %d (%s) as %s: %w", action, order.ID, order.Status, role, ErrIllegalAction)
	}
	key := fmt.Sprintf("order:%d:%s", order.ID, action)
	return r.Run(ctx, key, func(ctx context.Context) error {
		if _, err := api.TransitionOrder(ctx, order.ID, action); err != nil {
			return fmt.Errorf("%s order %d: %w", action, order.ID, err)
		}
		return nil
	})
}

// Approve approves ret. A nil refund leaves the amount to the backend.
func (r *Runner) Approve(ctx context.Context, api ReturnAPI, ret model.Return, role string, refund *decimal.Decimal) error {
	if !slices.Contains(ReturnActions(ret, role), model.ActionApprove) {
		return fmt.Errorf("approve return %d (%s) as %s: %w", ret.ID, ret.Status, role, ErrIllegalAction)
	}
	if refund != nil && refund.IsNegative() {
		return fmt.Errorf("%w: refund must not be negative", model.ErrValidation)
	}
	key := fmt.Sprintf("return:%d", ret.ID)
	return r.Run(ctx, key, func(ctx context.Context) error {
		if _, err := api.ApproveReturn(ctx, ret.ID, refund); err != nil {
			return fmt.Errorf("approving return %d: %w", ret.ID, err)
		}
		return nil
	})
}

// Reject rejects ret with reason.
func (r *Runner) Reject(ctx context.Context, api ReturnAPI, ret model.Return, role, reason string) error {
	if !slices.Contains(ReturnActions(ret, role), model.ActionReject) {
		return fmt.Errorf("reject return %d (%s) as %s: %w", ret.ID, ret.Status, role, ErrIllegalAction)
	}
	key := fmt.Sprintf("return:%d", ret.ID)
	return r.Run(ctx, key, func(ctx context.Context) error {
		if _, err := api.RejectReturn(ctx, ret.ID, reason); err != nil {
			return fmt.Errorf("rejecting return %d: %w", ret.ID, err)
		}
		return nil
	})
}
