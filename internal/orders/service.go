package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/angelmondragon/cafeflow-backend/internal/audit"
	"github.com/angelmondragon/cafeflow-backend/pkg/docstore"
	"github.com/angelmondragon/cafeflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cafeflow-backend/pkg/errors"
	"github.com/angelmondragon/cafeflow-backend/pkg/logger"
	"github.com/angelmondragon/cafeflow-backend/pkg/metrics"
	"github.com/google/uuid"
)

const (
	defaultMaxUpdateAttempts = 5
	maxFeedbackLength        = 1000
	guestIDPrefix            = "guest_"
)

// Service is the only mutator of order documents.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (string, error)
	CreateStaffOrder(ctx context.Context, input CreateStaffOrderInput) (string, error)
	CreateGuestOrder(ctx context.Context, input CreateGuestOrderInput) (string, error)
	GetOrder(ctx context.Context, actor Actor, orderID string) (*Order, error)
	ListMyOrders(ctx context.Context, actor Actor) ([]Order, error)
	ListStoreOrders(ctx context.Context, actor Actor, storeID string) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, input UpdateStatusInput) (*Order, error)
	CancelOrder(ctx context.Context, input CancelOrderInput) (*Order, error)
	SubmitFeedback(ctx context.Context, input FeedbackInput) (*Order, error)
	PurgeOrder(ctx context.Context, actor Actor, orderID string) error
	GetOrderStatistics(ctx context.Context, actor Actor, storeID string) (*Statistics, error)
	RebuildStatistics(ctx context.Context, actor Actor, storeID string) (*Statistics, error)
}

// Options tunes transition and statistics behaviour.
type Options struct {
	Policy            TransitionPolicy
	MaxUpdateAttempts int
	StatisticsSource  string
	PrepTimes         PrepTimeTable
	Now               func() time.Time
}

type service struct {
	repo     Repository
	counters CounterStore
	audit    audit.Emitter
	metrics  *metrics.OrderMetrics
	logg     *logger.Logger
	policy   TransitionPolicy
	attempts int
	source   string
	prep     PrepTimeTable
	now      func() time.Time
}

// NewService builds the order service. counters may be nil unless the
// statistics source is "counters".
func NewService(repo Repository, counters CounterStore, emitter audit.Emitter, m *metrics.OrderMetrics, logg *logger.Logger, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("audit emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if opts.Policy == "" {
		opts.Policy = PolicyStrict
	}
	if opts.Policy != PolicyStrict && opts.Policy != PolicyPermissive {
		return nil, fmt.Errorf("unknown transition policy %q", opts.Policy)
	}
	if opts.MaxUpdateAttempts <= 0 {
		opts.MaxUpdateAttempts = defaultMaxUpdateAttempts
	}
	switch opts.StatisticsSource {
	case "":
		opts.StatisticsSource = StatisticsSourceScan
	case StatisticsSourceScan:
	case StatisticsSourceCounters:
		if counters == nil {
			return nil, fmt.Errorf("counter store required for counters statistics")
		}
	default:
		return nil, fmt.Errorf("unknown statistics source %q", opts.StatisticsSource)
	}
	if opts.PrepTimes.Max == 0 {
		opts.PrepTimes = DefaultPrepTimes()
	}
	if err := opts.PrepTimes.Validate(); err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &service{
		repo:     repo,
		counters: counters,
		audit:    emitter,
		metrics:  m,
		logg:     logg,
		policy:   opts.Policy,
		attempts: opts.MaxUpdateAttempts,
		source:   opts.StatisticsSource,
		prep:     opts.PrepTimes,
		now:      opts.Now,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (string, error) {
	if err := input.Actor.authenticated(); err != nil {
		return "", err
	}
	details := input.OrderDetails
	if err := validateDetails(&details, false); err != nil {
		return "", err
	}
	order := s.newOrder(details, input.Actor.ID, enums.OrderStatusPending, input.Actor.ID, "")
	return s.persistNew(ctx, input.Actor, order, "customer")
}

func (s *service) CreateStaffOrder(ctx context.Context, input CreateStaffOrderInput) (string, error) {
	details := input.OrderDetails
	if err := validateDetails(&details, true); err != nil {
		return "", err
	}
	if err := input.Actor.StaffOf(details.StoreID); err != nil {
		return "", err
	}
	var guest *GuestInfo
	if input.Guest != nil {
		g, err := validateGuest(*input.Guest)
		if err != nil {
			return "", err
		}
		guest = &g
	}

	userID := strings.TrimSpace(input.CustomerID)
	if userID == "" {
		userID = input.Actor.ID
	}
	order := s.newOrder(details, userID, enums.OrderStatusConfirmed, input.Actor.ID, "Placed by staff")
	order.IsStaffOrder = true
	order.StaffMember = &StaffMember{
		UID:        input.Actor.ID,
		Name:       input.Actor.Name,
		Role:       input.Actor.Role,
		EmployeeID: input.Actor.EmployeeID,
	}
	order.GuestInfo = guest
	if order.PaymentMethod == enums.PaymentMethodComp {
		order.Total = 0
	}
	return s.persistNew(ctx, input.Actor, order, "staff")
}

func (s *service) CreateGuestOrder(ctx context.Context, input CreateGuestOrderInput) (string, error) {
	details := input.OrderDetails
	if err := validateDetails(&details, false); err != nil {
		return "", err
	}
	guest, err := validateGuest(input.Guest)
	if err != nil {
		return "", err
	}
	guestID := guestIDPrefix + uuid.NewString()
	order := s.newOrder(details, guestID, enums.OrderStatusPending, guestID, "")
	order.IsGuestOrder = true
	order.GuestInfo = &guest
	return s.persistNew(ctx, Actor{ID: guestID, Role: enums.ActorRoleCustomer}, order, "guest")
}

func (s *service) GetOrder(ctx context.Context, actor Actor, orderID string) (*Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := actor.canRead(order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) ListMyOrders(ctx context.Context, actor Actor) ([]Order, error) {
	if err := actor.authenticated(); err != nil {
		return nil, err
	}
	list, err := s.repo.ListByUser(ctx, actor.ID)
	if err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, actor.ID), "orders.list_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

// ListStoreOrders is the point-in-time read behind the staff board.
func (s *service) ListStoreOrders(ctx context.Context, actor Actor, storeID string) ([]Order, error) {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	if err := actor.StaffOf(storeID); err != nil {
		return nil, err
	}
	return s.listStore(s.logg.WithStoreID(ctx, storeID), storeID)
}

func (s *service) UpdateOrderStatus(ctx context.Context, input UpdateStatusInput) (*Order, error) {
	if strings.TrimSpace(input.OrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown order status %q", input.Status)
	}
	if input.EstimatedTime != nil && *input.EstimatedTime <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "estimated time must be positive")
	}
	if err := requireStaffRole(input.Actor); err != nil {
		return nil, err
	}
	event := enums.AuditEventOrderStatusChanged
	if input.Status == enums.OrderStatusCancelled {
		event = enums.AuditEventOrderCancelled
	}
	return s.transition(ctx, input.Actor, input.OrderID, transitionPlan{
		to:            input.Status,
		notes:         strings.TrimSpace(input.Notes),
		estimatedTime: input.EstimatedTime,
		event:         event,
	})
}

func (s *service) CancelOrder(ctx context.Context, input CancelOrderInput) (*Order, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason is required")
	}
	if strings.TrimSpace(input.OrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if err := requireStaffRole(input.Actor); err != nil {
		return nil, err
	}
	return s.transition(ctx, input.Actor, input.OrderID, transitionPlan{
		to:     enums.OrderStatusCancelled,
		notes:  "Cancelled: " + reason,
		reason: reason,
		event:  enums.AuditEventOrderCancelled,
	})
}

func (s *service) SubmitFeedback(ctx context.Context, input FeedbackInput) (*Order, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	text := strings.TrimSpace(input.Feedback)
	if utf8.RuneCountInString(text) > maxFeedbackLength {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "feedback must be at most %d characters", maxFeedbackLength)
	}
	if err := input.Actor.authenticated(); err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, input.OrderID)
	updated, err := s.mutate(ctx, input.OrderID, func(current *Order) (docstore.Update, error) {
		if current.UserID != input.Actor.ID {
			return docstore.Update{}, pkgerrors.New(pkgerrors.CodeForbidden, "only the ordering customer can leave feedback")
		}
		if current.Status != enums.OrderStatusCompleted {
			return docstore.Update{}, pkgerrors.New(pkgerrors.CodeStateConflict, "feedback is accepted for completed orders only")
		}
		if current.Rating != nil {
			return docstore.Update{}, pkgerrors.New(pkgerrors.CodeConflict, "feedback already submitted")
		}
		set := map[string]any{
			"rating":     input.Rating,
			"feedbackAt": s.now().UTC(),
		}
		if text != "" {
			set["feedback"] = text
		}
		return docstore.Update{Set: set}, nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, input.Actor, updated, enums.AuditEventOrderFeedbackSubmitted, "", "", text, map[string]any{"rating": input.Rating})
	s.logg.Info(ctx, "order.feedback.submitted")
	return updated, nil
}

func (s *service) PurgeOrder(ctx context.Context, actor Actor, orderID string) error {
	if err := actor.authenticated(); err != nil {
		return err
	}
	ctx = s.logg.WithOrderID(ctx, orderID)
	current, err := s.load(ctx, orderID)
	if err != nil {
		return err
	}
	if err := actor.adminOf(current.StoreID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, current.ID); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		s.logg.Error(ctx, "order.purge_failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purge order")
	}

	s.applyCounters(ctx, current.StoreID, removedDelta(*current))
	s.emit(ctx, actor, current, enums.AuditEventOrderPurged, current.Status, "", "", nil)
	s.logg.Info(ctx, "order.purged")
	return nil
}

func (s *service) GetOrderStatistics(ctx context.Context, actor Actor, storeID string) (*Statistics, error) {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	if err := actor.StaffOf(storeID); err != nil {
		return nil, err
	}
	ctx = s.logg.WithStoreID(ctx, storeID)

	if s.source == StatisticsSourceCounters {
		stats, err := s.counterStatistics(ctx, storeID)
		if err == nil {
			return stats, nil
		}
		s.logg.Error(ctx, "orders.statistics.counters_unavailable", err)
	}
	list, err := s.listStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return ComputeStatistics(storeID, list), nil
}

func (s *service) RebuildStatistics(ctx context.Context, actor Actor, storeID string) (*Statistics, error) {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	if err := actor.adminOf(storeID); err != nil {
		return nil, err
	}
	ctx = s.logg.WithStoreID(ctx, storeID)

	list, err := s.listStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	t := newTally()
	for _, order := range list {
		t.add(order)
	}
	if s.counters != nil {
		if err := s.writeCounters(ctx, storeID, t); err != nil {
			s.logg.Error(ctx, "orders.statistics.rebuild_failed", err)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rebuild statistics")
		}
	}

	s.audit.Emit(ctx, audit.Event{
		ID:         uuid.New(),
		Type:       enums.AuditEventStatisticsRebuilt,
		OccurredAt: s.now().UTC(),
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		StoreID:    storeID,
		Data:       map[string]any{"orders": t.orders},
	})
	s.logg.Info(s.logg.WithField(ctx, "orders", t.orders), "orders.statistics.rebuilt")
	return t.statistics(storeID, StatisticsSourceScan), nil
}

type transitionPlan struct {
	to            enums.OrderStatus
	notes         string
	estimatedTime *int
	reason        string
	event         enums.AuditEventType
}

func (p transitionPlan) update(actor Actor, now time.Time) docstore.Update {
	set := map[string]any{
		"status":    p.to,
		"updatedAt": now,
	}
	if p.to == enums.OrderStatusPreparing {
		set["assignedTo"] = actor.ID
	}
	if p.estimatedTime != nil {
		set["estimatedTime"] = *p.estimatedTime
	}
	if p.reason != "" {
		set["cancellationReason"] = p.reason
	}
	entry := StatusEntry{
		Status:    p.to,
		Timestamp: now,
		UpdatedBy: actor.ID,
		Notes:     p.notes,
	}
	return docstore.Update{
		Set:    set,
		Append: map[string][]any{"statusHistory": {entry}},
	}
}

func (s *service) transition(ctx context.Context, actor Actor, orderID string, plan transitionPlan) (*Order, error) {
	ctx = s.logg.WithOrderID(ctx, orderID)
	var from enums.OrderStatus
	updated, err := s.mutate(ctx, orderID, func(current *Order) (docstore.Update, error) {
		if err := actor.StaffOf(current.StoreID); err != nil {
			return docstore.Update{}, err
		}
		if err := s.policy.Check(current.Status, plan.to); err != nil {
			return docstore.Update{}, err
		}
		from = current.Status
		return plan.update(actor, s.now().UTC()), nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(from.String(), plan.to.String())
	s.applyCounters(ctx, updated.StoreID, transitionDelta(*updated, from, plan.to))
	s.emit(ctx, actor, updated, plan.event, from, plan.to, plan.notes, nil)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"from":  from,
		"to":    plan.to,
		"actor": actor.ID,
	}), "order.status.updated")
	return updated, nil
}

// mutate runs a compare-and-swap loop: read, plan against the read, write
// conditional on the read's version.
func (s *service) mutate(ctx context.Context, orderID string, plan func(current *Order) (docstore.Update, error)) (*Order, error) {
	for attempt := 1; attempt <= s.attempts; attempt++ {
		current, err := s.load(ctx, orderID)
		if err != nil {
			return nil, err
		}
		upd, err := plan(current)
		if err != nil {
			return nil, err
		}
		upd.IfVersion = current.Version

		updated, err := s.repo.Update(ctx, current.ID, upd)
		switch {
		case err == nil:
			return updated, nil
		case errors.Is(err, docstore.ErrVersionConflict):
			s.metrics.IncConflict()
			s.logg.Debug(s.logg.WithField(ctx, "attempt", attempt), "order.update.version_conflict")
		case errors.Is(err, docstore.ErrNotFound):
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		default:
			s.logg.Error(ctx, "order.update_failed", err)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
	}
	s.logg.Warn(ctx, "order.update.attempts_exhausted")
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently, please retry")
}

func (s *service) load(ctx context.Context, orderID string) (*Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		s.logg.Error(ctx, "order.load_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) listStore(ctx context.Context, storeID string) ([]Order, error) {
	list, err := s.repo.ListByStore(ctx, storeID)
	if err != nil {
		s.logg.Error(ctx, "orders.list_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list store orders")
	}
	return list, nil
}

func (s *service) newOrder(details OrderDetails, userID string, status enums.OrderStatus, createdBy, notes string) Order {
	now := s.now().UTC()
	estimate := s.prep.Estimate(details.Items)
	return Order{
		UserID:              userID,
		Items:               details.Items,
		Subtotal:            details.Subtotal,
		DeliveryFee:         details.DeliveryFee,
		Total:               details.Total,
		PaymentMethod:       details.PaymentMethod,
		DeliveryOption:      details.DeliveryOption,
		DeliveryAddress:     details.DeliveryAddress,
		StoreID:             details.StoreID,
		Status:              status,
		StatusHistory:       []StatusEntry{{Status: status, Timestamp: now, UpdatedBy: createdBy, Notes: notes}},
		CreatedAt:           now,
		EstimatedTime:       &estimate,
		SpecialInstructions: details.SpecialInstructions,
		PointsUsed:          details.PointsUsed,
	}
}

func (s *service) persistNew(ctx context.Context, actor Actor, order Order, kind string) (string, error) {
	ctx = s.logg.WithStoreID(ctx, order.StoreID)
	created, err := s.repo.Create(ctx, order)
	if err != nil {
		s.logg.Error(ctx, "order.create_failed", err)
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	ctx = s.logg.WithOrderID(ctx, created.ID)

	s.metrics.IncCreated(kind)
	s.applyCounters(ctx, created.StoreID, createdDelta(*created))
	s.emit(ctx, actor, created, enums.AuditEventOrderCreated, "", created.Status, "", map[string]any{
		"kind":           kind,
		"total":          created.Total,
		"items":          len(created.Items),
		"paymentMethod":  created.PaymentMethod,
		"deliveryOption": created.DeliveryOption,
		"estimatedTime":  order.EstimatedTime,
	})
	s.logg.Info(s.logg.WithField(ctx, "kind", kind), "order.created")
	return created.ID, nil
}

func (s *service) emit(ctx context.Context, actor Actor, order *Order, typ enums.AuditEventType, from, to enums.OrderStatus, notes string, data map[string]any) {
	s.audit.Emit(ctx, audit.Event{
		ID:         uuid.New(),
		Type:       typ,
		OccurredAt: s.now().UTC(),
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		StoreID:    order.StoreID,
		OrderID:    order.ID,
		FromStatus: from,
		ToStatus:   to,
		Notes:      notes,
		Data:       data,
	})
}

// applyCounters moves the running statistics. Failures are logged and
// repaired by RebuildStatistics.
func (s *service) applyCounters(ctx context.Context, storeID string, delta counterDelta) {
	if s.counters == nil || len(delta) == 0 {
		return
	}
	key := s.counters.StatsKey(storeID)
	for field, n := range delta {
		if n == 0 {
			continue
		}
		if err := s.counters.HIncrBy(ctx, key, field, n); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "field", field), "orders.counters.update_failed", err)
			return
		}
	}
}

func (s *service) writeCounters(ctx context.Context, storeID string, t tally) error {
	key := s.counters.StatsKey(storeID)
	if err := s.counters.Del(ctx, key); err != nil {
		return err
	}
	for field, n := range talliedDelta(t) {
		if n == 0 {
			continue
		}
		if err := s.counters.HIncrBy(ctx, key, field, n); err != nil {
			return err
		}
	}
	// Marks the hash as built even for a store with no orders.
	return s.counters.HIncrBy(ctx, key, fieldOrders, 0)
}

func (s *service) counterStatistics(ctx context.Context, storeID string) (*Statistics, error) {
	fields, err := s.counters.HGetAll(ctx, s.counters.StatsKey(storeID))
	if err != nil {
		return nil, err
	}
	if _, built := fields[fieldOrders]; !built {
		list, err := s.listStore(ctx, storeID)
		if err != nil {
			return nil, err
		}
		t := newTally()
		for _, order := range list {
			t.add(order)
		}
		if err := s.writeCounters(ctx, storeID, t); err != nil {
			return nil, err
		}
		s.logg.Info(ctx, "orders.counters.seeded")
		return t.statistics(storeID, StatisticsSourceCounters), nil
	}
	return tallyFromHash(fields).statistics(storeID, StatisticsSourceCounters), nil
}

func requireStaffRole(actor Actor) error {
	if err := actor.authenticated(); err != nil {
		return err
	}
	if !actor.Role.IsStaff() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	return nil
}

func validateDetails(d *OrderDetails, allowComp bool) error {
	d.StoreID = strings.TrimSpace(d.StoreID)
	if d.StoreID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	if len(d.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	items := make([]LineItem, len(d.Items))
	for i, item := range d.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d]: product id is required", i)
		}
		if item.Quantity < 1 {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d]: quantity must be at least 1", i)
		}
		if item.Price < 0 {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d]: price must not be negative", i)
		}
		if item.SelectedToppings == nil {
			item.SelectedToppings = []string{}
		}
		items[i] = item
	}
	d.Items = items

	if !d.PaymentMethod.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown payment method %q", d.PaymentMethod)
	}
	if d.PaymentMethod == enums.PaymentMethodComp && !allowComp {
		return pkgerrors.New(pkgerrors.CodeValidation, "complimentary orders can only be placed by staff")
	}
	if !d.DeliveryOption.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown delivery option %q", d.DeliveryOption)
	}
	switch d.DeliveryOption {
	case enums.DeliveryOptionDelivery:
		if d.DeliveryAddress == nil || strings.TrimSpace(d.DeliveryAddress.StreetAddress) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required for delivery orders")
		}
	case enums.DeliveryOptionPickup:
		d.DeliveryAddress = nil
	}
	if d.Subtotal < 0 || d.DeliveryFee < 0 || d.Total < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amounts must not be negative")
	}
	if d.PointsUsed < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "points used must not be negative")
	}
	if d.PaymentMethod == enums.PaymentMethodPoints && d.PointsUsed == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "points payment requires points used")
	}
	if d.PointsUsed > d.AvailablePoints {
		return pkgerrors.New(pkgerrors.CodeValidation, "insufficient points").
			WithDetails(map[string]any{"pointsUsed": d.PointsUsed, "availablePoints": d.AvailablePoints})
	}
	d.SpecialInstructions = strings.TrimSpace(d.SpecialInstructions)
	return nil
}

func validateGuest(g GuestInfo) (GuestInfo, error) {
	g.Name = strings.TrimSpace(g.Name)
	g.PhoneNumber = strings.TrimSpace(g.PhoneNumber)
	g.Email = strings.TrimSpace(g.Email)
	if g.Name == "" || g.PhoneNumber == "" {
		return GuestInfo{}, pkgerrors.New(pkgerrors.CodeValidation, "guest name and phone number are required")
	}
	return g, nil
}
