package orders

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/cafeflow-backend/api/middleware"
	"github.com/angelmondragon/cafeflow-backend/api/responses"
	internalorders "github.com/angelmondragon/cafeflow-backend/internal/orders"
	"github.com/angelmondragon/cafeflow-backend/pkg/logger"
)

// Purge hard-deletes an order of the admin's store.
func Purge(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.PurgeOrder(r.Context(), middleware.ActorFromContext(r.Context()), orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// RebuildStatistics recomputes the store counters from a full scan. Admins
// may name their store explicitly with ?storeId=, which must still match.
func RebuildStatistics(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		storeID := strings.TrimSpace(r.URL.Query().Get("storeId"))
		if storeID == "" {
			storeID = actor.StoreID
		}
		stats, err := svc.RebuildStatistics(r.Context(), actor, storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
