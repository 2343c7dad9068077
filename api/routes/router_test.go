package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/cafeflow-backend/internal/audit"
	"github.com/angelmondragon/cafeflow-backend/internal/dashboard"
	"github.com/angelmondragon/cafeflow-backend/internal/feed"
	"github.com/angelmondragon/cafeflow-backend/internal/orders"
	"github.com/angelmondragon/cafeflow-backend/pkg/auth"
	"github.com/angelmondragon/cafeflow-backend/pkg/config"
	"github.com/angelmondragon/cafeflow-backend/pkg/docstore"
	"github.com/angelmondragon/cafeflow-backend/pkg/enums"
	"github.com/angelmondragon/cafeflow-backend/pkg/logger"
	"github.com/angelmondragon/cafeflow-backend/pkg/metrics"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", Port: "0"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "cafeflow", ExpirationMinutes: 30},
		RateLimit: config.RateLimitConfig{
			GuestOrderWindow:  time.Minute,
			GuestOrderIPLimit: 5,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Feed: config.FeedConfig{Heartbeat: time.Minute},
	}
}

func newTestRouter(t *testing.T, dbP stubPinger) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	logg := logger.Nop()
	reg := prometheus.NewRegistry()

	mem := docstore.NewMemoryStore()
	hub, err := docstore.NewHub(mem, 0, logg)
	if err != nil {
		t.Fatalf("hub: %v", err)
	}
	t.Cleanup(hub.Close)
	repo, err := orders.NewRepository(docstore.WithNotifier(mem, hub))
	if err != nil {
		t.Fatalf("repo: %v", err)
	}
	svc, err := orders.NewService(repo, nil, audit.Nop, metrics.NewOrderMetrics(reg), logg, orders.Options{Policy: orders.PolicyStrict})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	f, err := feed.New(hub, logg, metrics.NewFeedMetrics(reg))
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	board, err := dashboard.NewController(dashboard.ControllerParams{Orders: svc, Feed: f, PrepTimes: orders.DefaultPrepTimes(), Logger: logg})
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}

	return NewRouter(Params{
		Config:    cfg,
		Logger:    logg,
		DB:        dbP,
		Orders:    svc,
		Dashboard: board,
		Gatherer:  reg,
	}), cfg
}

func bearer(t *testing.T, cfg *config.Config, payload auth.AccessTokenPayload) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func serve(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	router, _ := newTestRouter(t, stubPinger{})

	if rec := serve(router, http.MethodGet, "/health/live", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("live: expected 200 got %d", rec.Code)
	}
	rec := serve(router, http.MethodGet, "/health/ready", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ready: expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Cafeflow-Env"); got != "dev" {
		t.Fatalf("expected env header, got %q", got)
	}
}

func TestReadyReportsFailedDependency(t *testing.T) {
	router, _ := newTestRouter(t, stubPinger{err: errors.New("connection refused")})
	rec := serve(router, http.MethodGet, "/health/ready", "", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}

func TestMetricsEndpointExportsFeedGauge(t *testing.T) {
	router, _ := newTestRouter(t, stubPinger{})
	rec := serve(router, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "feed_active_subscriptions") {
		t.Fatalf("expected feed gauge in exposition:\n%s", rec.Body.String())
	}
}

func TestAPIRequiresBearerToken(t *testing.T) {
	router, _ := newTestRouter(t, stubPinger{})
	rec := serve(router, http.MethodGet, "/api/v1/orders", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestStaffRoutesRejectCustomers(t *testing.T) {
	router, cfg := newTestRouter(t, stubPinger{})
	token := bearer(t, cfg, auth.AccessTokenPayload{UserID: "user-1", Role: enums.ActorRoleCustomer})
	rec := serve(router, http.MethodGet, "/api/v1/staff/orders/board", token, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	router, cfg := newTestRouter(t, stubPinger{})
	manager := bearer(t, cfg, auth.AccessTokenPayload{UserID: "m-1", Role: enums.ActorRoleManager, StoreID: "store-1"})
	if rec := serve(router, http.MethodPost, "/api/admin/v1/statistics/rebuild", manager, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for manager got %d", rec.Code)
	}
	admin := bearer(t, cfg, auth.AccessTokenPayload{UserID: "a-1", Role: enums.ActorRoleAdmin, StoreID: "store-1"})
	if rec := serve(router, http.MethodPost, "/api/admin/v1/statistics/rebuild", admin, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestOrderFlowThroughRouter(t *testing.T) {
	router, cfg := newTestRouter(t, stubPinger{})
	customer := bearer(t, cfg, auth.AccessTokenPayload{UserID: "user-1", Role: enums.ActorRoleCustomer})
	staff := bearer(t, cfg, auth.AccessTokenPayload{UserID: "staff-1", Role: enums.ActorRoleStaff, StoreID: "store-1", Name: "Tuan"})

	body := `{"items":[{"productId":"p-1","name":"Tra dao","price":35000,"quantity":1}],"subtotal":35000,"total":35000,"paymentMethod":"cash","deliveryOption":"pickup","storeId":"store-1"}`
	rec := serve(router, http.MethodPost, "/api/v1/orders", customer, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201 got %d: %s", rec.Code, rec.Body.String())
	}

	rec = serve(router, http.MethodGet, "/api/v1/staff/orders/board", staff, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("board: expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"queue":[{`) {
		t.Fatalf("expected the new order in the queue: %s", rec.Body.String())
	}

	rec = serve(router, http.MethodGet, "/api/v1/staff/cancellation-reasons", staff, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reasons: expected 200 got %d", rec.Code)
	}
}

func TestGuestOrderIsPublic(t *testing.T) {
	router, _ := newTestRouter(t, stubPinger{})
	body := `{"guest":{"name":"Mai","phoneNumber":"0912345678"},"items":[{"productId":"p-2","name":"Banh flan","price":20000,"quantity":3}],"subtotal":60000,"total":60000,"paymentMethod":"cash","deliveryOption":"pickup"}`
	rec := serve(router, http.MethodPost, "/api/public/stores/store-1/guest-orders", "", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t, stubPinger{})
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected allowed origin header, got %q", got)
	}
}
