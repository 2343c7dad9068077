package dashboard

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/cafeflow-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/cafeflow-backend/pkg/errors"
	"github.com/angelmondragon/cafeflow-backend/pkg/logger"
)

// Watcher opens live store feeds. *feed.Feed satisfies it.
type Watcher interface {
	SubscribeToStoreOrders(ctx context.Context, actor orders.Actor, storeID string, onChange func([]orders.Order)) (func(), error)
}

type ControllerParams struct {
	Orders    orders.Service
	Feed      Watcher
	PrepTimes orders.PrepTimeTable
	Logger    *logger.Logger
	Now       func() time.Time
}

// Controller drives order transitions from dashboard buttons.
type Controller struct {
	orders orders.Service
	feed   Watcher
	prep   orders.PrepTimeTable
	logg   *logger.Logger
	now    func() time.Time
}

func NewController(p ControllerParams) (*Controller, error) {
	if p.Orders == nil {
		return nil, errors.New("order service is required")
	}
	if p.Feed == nil {
		return nil, errors.New("feed is required")
	}
	if p.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if p.PrepTimes.Max == 0 {
		p.PrepTimes = orders.DefaultPrepTimes()
	}
	if err := p.PrepTimes.Validate(); err != nil {
		return nil, err
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &Controller{orders: p.Orders, feed: p.Feed, prep: p.PrepTimes, logg: p.Logger, now: p.Now}, nil
}

type ActionInput struct {
	Actor       orders.Actor
	OrderID     string
	Action      Action
	Reason      string
	OtherReason string
	Notes       string
}

// Perform runs one dashboard action. The action must be offered for the
// order's current status.
func (c *Controller) Perform(ctx context.Context, in ActionInput) (*orders.Order, error) {
	action, err := ParseAction(string(in.Action))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown action")
	}
	if strings.TrimSpace(in.OrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	var reason string
	if action.RequiresReason() {
		if reason, err = ResolveReason(in.Reason, in.OtherReason); err != nil {
			return nil, err
		}
	}

	current, err := c.orders.GetOrder(ctx, in.Actor, in.OrderID)
	if err != nil {
		return nil, err
	}
	if err := in.Actor.StaffOf(current.StoreID); err != nil {
		return nil, err
	}
	if !Offers(current.Status, action) {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "%s is not available for %s orders", action, current.Status).
			WithDetails(map[string]any{
				"status":    current.Status,
				"action":    action,
				"available": AvailableActions(current.Status),
			})
	}

	ctx = c.logg.WithOrderID(ctx, current.ID)
	var updated *orders.Order
	switch action {
	case ActionReject, ActionCancel:
		updated, err = c.orders.CancelOrder(ctx, orders.CancelOrderInput{Actor: in.Actor, OrderID: current.ID, Reason: reason})
	case ActionStartPreparing:
		estimate := c.prep.Estimate(current.Items)
		updated, err = c.orders.UpdateOrderStatus(ctx, orders.UpdateStatusInput{
			Actor:         in.Actor,
			OrderID:       current.ID,
			Status:        action.Target(),
			Notes:         in.Notes,
			EstimatedTime: &estimate,
		})
	default:
		updated, err = c.orders.UpdateOrderStatus(ctx, orders.UpdateStatusInput{
			Actor:   in.Actor,
			OrderID: current.ID,
			Status:  action.Target(),
			Notes:   in.Notes,
		})
	}
	if err != nil {
		return nil, err
	}
	c.logg.Info(c.logg.WithField(ctx, "action", action.String()), "dashboard.action.performed")
	return updated, nil
}

// Board reads the store once and buckets it.
func (c *Controller) Board(ctx context.Context, actor orders.Actor, storeID string) (*Board, error) {
	list, err := c.orders.ListStoreOrders(ctx, actor, storeID)
	if err != nil {
		return nil, err
	}
	board := BuildBoard(list)
	board.StoreID = strings.TrimSpace(storeID)
	board.GeneratedAt = c.now().UTC()
	return &board, nil
}

// Watch streams the store feed filtered to view.
func (c *Controller) Watch(ctx context.Context, actor orders.Actor, storeID string, view View, fn func([]orders.Order)) (func(), error) {
	if fn == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "change callback is required")
	}
	view, err := ParseView(string(view))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown view")
	}
	return c.feed.SubscribeToStoreOrders(ctx, actor, storeID, func(list []orders.Order) {
		fn(Bucket(list, view))
	})
}
