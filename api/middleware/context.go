package middleware

import (
	"context"

	"github.com/angelmondragon/cafeflow-backend/internal/orders"
	"github.com/angelmondragon/cafeflow-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID     contextKey = "user_id"
	ctxRole       contextKey = "actor_role"
	ctxStoreID    contextKey = "store_id"
	ctxName       contextKey = "actor_name"
	ctxEmployeeID contextKey = "employee_id"
)

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

func UserIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxUserID)
}

func StoreIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxStoreID)
}

func RoleFromContext(ctx context.Context) enums.ActorRole {
	return enums.ActorRole(stringValue(ctx, ctxRole))
}

// ActorFromContext rebuilds the caller identity seeded by Auth. Anonymous
// requests yield the zero Actor.
func ActorFromContext(ctx context.Context) orders.Actor {
	return orders.Actor{
		ID:         UserIDFromContext(ctx),
		Name:       stringValue(ctx, ctxName),
		Role:       RoleFromContext(ctx),
		StoreID:    StoreIDFromContext(ctx),
		EmployeeID: stringValue(ctx, ctxEmployeeID),
	}
}

// WithActor injects a caller identity into the context.
func WithActor(ctx context.Context, actor orders.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, actor.ID)
	ctx = context.WithValue(ctx, ctxRole, string(actor.Role))
	ctx = context.WithValue(ctx, ctxName, actor.Name)
	ctx = context.WithValue(ctx, ctxEmployeeID, actor.EmployeeID)
	if actor.StoreID != "" {
		ctx = context.WithValue(ctx, ctxStoreID, actor.StoreID)
	}
	return ctx
}
