package audit

import (
	"context"
	"time"

	"github.com/angelmondragon/cafeflow-backend/pkg/enums"
	"github.com/google/uuid"
)

// Event is one audit record of an order lifecycle change.
type Event struct {
	ID         uuid.UUID            `json:"eventId"`
	Type       enums.AuditEventType `json:"eventType"`
	OccurredAt time.Time            `json:"occurredAt"`
	ActorID    string               `json:"actorId,omitempty"`
	ActorRole  enums.ActorRole      `json:"actorRole,omitempty"`
	StoreID    string               `json:"storeId,omitempty"`
	OrderID    string               `json:"orderId,omitempty"`
	FromStatus enums.OrderStatus    `json:"fromStatus,omitempty"`
	ToStatus   enums.OrderStatus    `json:"toStatus,omitempty"`
	Notes      string               `json:"notes,omitempty"`
	Data       map[string]any       `json:"data,omitempty"`
}

// Emitter accepts events without blocking the caller.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, event Event)

func (f EmitterFunc) Emit(ctx context.Context, event Event) { f(ctx, event) }

// Nop discards every event.
var Nop Emitter = EmitterFunc(func(context.Context, Event) {})

// RoutingKey is the topic/routing key used by broker sinks.
func (e Event) RoutingKey() string {
	return e.Type.String()
}
