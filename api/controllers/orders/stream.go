package orders

import (
	"net/http"
	"time"

	"github.com/angelmondragon/cafeflow-backend/api/middleware"
	"github.com/angelmondragon/cafeflow-backend/api/responses"
	"github.com/angelmondragon/cafeflow-backend/internal/dashboard"
	internalorders "github.com/angelmondragon/cafeflow-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/cafeflow-backend/pkg/errors"
	"github.com/angelmondragon/cafeflow-backend/pkg/logger"
)

const (
	streamEvent      = "orders"
	defaultHeartbeat = 25 * time.Second
)

// Stream serves the live staff feed as Server-Sent Events. Each frame holds
// the full bucketed list; a slow client only ever sees the latest list.
// Closing done ends every open stream, which lets a graceful server shutdown
// finish while dashboards are connected. A nil done is never closed.
func Stream(board Dashboard, heartbeat time.Duration, done <-chan struct{}, logg *logger.Logger) http.HandlerFunc {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		view, err := dashboard.ParseView(r.URL.Query().Get("view"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown view"))
			return
		}

		updates := make(chan []internalorders.Order, 1)
		push := func(list []internalorders.Order) {
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- list:
			default:
			}
		}

		actor := middleware.ActorFromContext(ctx)
		unsubscribe, err := board.Watch(ctx, actor, actor.StoreID, view, push)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		defer unsubscribe()

		stream, err := responses.NewEventStream(w)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "open stream"))
			return
		}
		if logg != nil {
			ctx = logg.WithField(ctx, "view", view.String())
			logg.Info(ctx, "feed.stream.opened")
			defer logg.Info(ctx, "feed.stream.closed")
		}

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case list := <-updates:
				if err := stream.Send(streamEvent, list); err != nil {
					return
				}
			case <-ticker.C:
				if err := stream.Heartbeat(); err != nil {
					return
				}
			}
		}
	}
}
