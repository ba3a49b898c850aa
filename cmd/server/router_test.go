package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"eshop-be/internal/config"
	"eshop-be/internal/inventory"
	"eshop-be/internal/metrics"
	"eshop-be/internal/notification"
	"eshop-be/internal/order"
	"eshop-be/internal/report"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReader struct{}

func (stubReader) TotalSales(context.Context) (decimal.Decimal, error) {
	return decimal.NewFromInt(25), nil
}

func (stubReader) Count(context.Context) (int64, error) { return 2, nil }

func (stubReader) ListByUser(context.Context, uuid.UUID) ([]*order.Order, error) {
	return []*order.Order{}, nil
}

func testRouter(t *testing.T, apiURL string, ping func(context.Context) error) http.Handler {
	t.Helper()
	cfg := &config.Config{
		APIURL:      apiURL,
		JWTSecret:   "secret",
		CORSOrigins: []string{"*"},
	}
	m := metrics.New()
	svc := order.NewService(nil, inventory.NewMemoryLedger(), nil, notification.LogDispatcher{}, order.Options{Metrics: m})

	return newRouter(routerDeps{
		cfg:     cfg,
		orders:  svc,
		reports: report.NewService(stubReader{}),
		metrics: m,
		ping:    ping,
	})
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Root(t *testing.T) {
	rec := serve(testRouter(t, "/api/v1", nil), http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Server is running", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_Healthz(t *testing.T) {
	rec := serve(testRouter(t, "/api/v1", func(context.Context) error { return nil }), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(testRouter(t, "/api/v1", func(context.Context) error { return errors.New("down") }), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_ReportsShadowOrderID(t *testing.T) {
	h := testRouter(t, "/api/v1", nil)

	rec := serve(h, http.MethodGet, "/api/v1/orders/get/count", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"orderCount": 2}`, rec.Body.String())

	rec = serve(h, http.MethodGet, "/api/v1/orders/get/totalsales", "")
	assert.JSONEq(t, `{"totalsales": 25}`, rec.Body.String())
}

func TestRouter_OrderRoutes(t *testing.T) {
	h := testRouter(t, "/api/v1", nil)

	rec := serve(h, http.MethodPost, "/api/v1/orders", `{"orderItems": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, http.MethodDelete, "/api/v1/orders/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestRouter_TokenHandling(t *testing.T) {
	h := testRouter(t, "/api/v1", nil)

	t.Run("Stale cookie does not block placement", func(t *testing.T) {
		expired := signedToken(t, jwt.MapClaims{
			"userId": uuid.NewString(),
			"exp":    time.Now().Add(-time.Hour).Unix(),
		})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"orderItems": "nope"}`))
		req.AddCookie(&http.Cookie{Name: "access_token", Value: expired})
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		// reaches the handler, which rejects the body
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Delete needs an admin", func(t *testing.T) {
		customer := signedToken(t, jwt.MapClaims{
			"userId":  uuid.NewString(),
			"isAdmin": false,
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/orders/"+uuid.NewString(), nil)
		req.Header.Set("Authorization", "Bearer "+customer)
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

// orderBook keeps placed orders in memory and aggregates them the way the
// SQL store does.
type orderBook struct {
	order.Repository

	mu     sync.Mutex
	orders []*order.Order
}

func (b *orderBook) Create(ctx context.Context, o *order.Order, hooks ...order.TxHook) error {
	for _, hook := range hooks {
		if err := hook(ctx, nil); err != nil {
			return err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	o.ID = uuid.New()
	o.DateOrdered = time.Now().UTC()
	b.orders = append(b.orders, o)
	return nil
}

func (b *orderBook) TotalSales(context.Context) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := decimal.Zero
	for _, o := range b.orders {
		total = total.Add(o.TotalPrice)
	}
	return total, nil
}

func (b *orderBook) Count(context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.orders)), nil
}

func (b *orderBook) ListByUser(_ context.Context, userID uuid.UUID) ([]*order.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []*order.Order{}
	for _, o := range b.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func TestRouter_TotalSalesAfterPlacement(t *testing.T) {
	lamp := inventory.Product{ID: uuid.New(), Name: "Lamp", Price: decimal.RequireFromString("10.00"), CountInStock: 5}
	mug := inventory.Product{ID: uuid.New(), Name: "Mug", Price: decimal.RequireFromString("5.00"), CountInStock: 5}

	book := &orderBook{}
	m := metrics.New()
	svc := order.NewService(book, inventory.NewMemoryLedger(lamp, mug), nil, notification.LogDispatcher{}, order.Options{Metrics: m})
	h := newRouter(routerDeps{
		cfg:     &config.Config{APIURL: "/api/v1", JWTSecret: "secret", CORSOrigins: []string{"*"}},
		orders:  svc,
		reports: report.NewService(book),
		metrics: m,
	})

	userID := uuid.New()
	place := func(productID uuid.UUID, quantity int) {
		body := fmt.Sprintf(`{
			"orderItems": [{"product": %q, "quantity": %d}],
			"shippingAddress1": "Street 1",
			"city": "Berlin",
			"zip": "10115",
			"country": "DE",
			"phone": "+49",
			"status": "PENDING",
			"user": %q
		}`, productID.String(), quantity, userID.String())
		rec := serve(h, http.MethodPost, "/api/v1/orders", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	place(lamp.ID, 1)
	place(mug.ID, 3)
	svc.Wait()

	rec := serve(h, http.MethodGet, "/api/v1/orders/get/totalsales", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"totalsales": 25}`, rec.Body.String())

	rec = serve(h, http.MethodGet, "/api/v1/orders/get/count", "")
	assert.JSONEq(t, `{"orderCount": 2}`, rec.Body.String())

	rec = serve(h, http.MethodGet, "/api/v1/orders/get/userorders/"+userID.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_RootAPIURL(t *testing.T) {
	rec := serve(testRouter(t, "", nil), http.MethodGet, "/orders/get/count", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Metrics(t *testing.T) {
	h := testRouter(t, "/api/v1", nil)
	serve(h, http.MethodGet, "/api/v1/orders/get/count", "")

	rec := serve(h, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "eshop_http_requests_total")
	assert.Contains(t, rec.Body.String(), `route="/api/v1/orders/get/count"`)
}

func TestBuildDispatcher(t *testing.T) {
	t.Run("Log only", func(t *testing.T) {
		d, closeFn := buildDispatcher(&config.Config{})
		assert.IsType(t, notification.LogDispatcher{}, d)
		assert.NoError(t, closeFn())
	})

	t.Run("SMTP", func(t *testing.T) {
		d, _ := buildDispatcher(&config.Config{SMTPHost: "smtp.example.com", SMTPPort: "587"})
		assert.IsType(t, &notification.SMTPDispatcher{}, d)
	})

	t.Run("Kafka", func(t *testing.T) {
		d, closeFn := buildDispatcher(&config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaNotifyTopic: "t"})
		assert.IsType(t, &notification.KafkaDispatcher{}, d)
		assert.NoError(t, closeFn())
	})
}
