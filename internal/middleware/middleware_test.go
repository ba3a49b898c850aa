package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eshop-be/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod, key any) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestAuth(t *testing.T) {
	auth := AuthMiddleware(testSecret)

	t.Run("Missing Token", func(t *testing.T) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := utils.GetUserIDFromContext(r.Context())
			assert.False(t, ok, "context should not contain user ID")
			w.WriteHeader(http.StatusOK)
		})

		w := httptest.NewRecorder()
		auth(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Valid Token", func(t *testing.T) {
		userID := uuid.New()
		tokenString := signToken(t, jwt.MapClaims{
			"userId":  userID.String(),
			"isAdmin": true,
			"exp":     time.Now().Add(time.Hour).Unix(),
		}, jwt.SigningMethodHS256, []byte(testSecret))

		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		w := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := utils.GetUserIDFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, userID, got)
			assert.True(t, utils.IsAdminFromContext(r.Context()))
			w.WriteHeader(http.StatusOK)
		})

		auth(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Unusable tokens continue anonymously", func(t *testing.T) {
		expired := signToken(t, jwt.MapClaims{
			"userId": uuid.NewString(),
			"exp":    time.Now().Add(-time.Hour).Unix(),
		}, jwt.SigningMethodHS256, []byte(testSecret))
		wrongSecret := signToken(t, jwt.MapClaims{"userId": uuid.NewString()}, jwt.SigningMethodHS256, []byte("other"))
		noSubject := signToken(t, jwt.MapClaims{"isAdmin": true}, jwt.SigningMethodHS256, []byte(testSecret))

		cases := []struct {
			name  string
			setup func(r *http.Request)
		}{
			{"invalid bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer invalid-token") }},
			{"expired bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+expired) }},
			{"expired cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "access_token", Value: expired}) }},
			{"wrong secret", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+wrongSecret) }},
			{"missing userId", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+noSubject) }},
			{"basic auth header", func(r *http.Request) { r.Header.Set("Authorization", "Basic dXNlcjpwYXNz") }},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				reached := false
				next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					reached = true
					_, ok := utils.GetUserIDFromContext(r.Context())
					assert.False(t, ok, "context should not contain user ID")
					w.WriteHeader(http.StatusCreated)
				})

				req := httptest.NewRequest(http.MethodPost, "/orders", nil)
				tc.setup(req)
				w := httptest.NewRecorder()

				auth(next).ServeHTTP(w, req)

				assert.True(t, reached)
				assert.Equal(t, http.StatusCreated, w.Code)
			})
		}
	})
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("Anonymous", func(t *testing.T) {
		w := httptest.NewRecorder()
		RequireAdmin(ok).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/orders/1", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Not an admin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/orders/1", nil)
		req = req.WithContext(utils.SetUserContext(req.Context(), uuid.New(), false))
		w := httptest.NewRecorder()

		RequireAdmin(ok).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Admin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/orders/1", nil)
		req = req.WithContext(utils.SetUserContext(req.Context(), uuid.New(), true))
		w := httptest.NewRecorder()

		RequireAdmin(ok).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Stale token on a guarded route", func(t *testing.T) {
		expired := signToken(t, jwt.MapClaims{
			"userId":  uuid.NewString(),
			"isAdmin": true,
			"exp":     time.Now().Add(-time.Hour).Unix(),
		}, jwt.SigningMethodHS256, []byte(testSecret))

		req := httptest.NewRequest(http.MethodDelete, "/orders/1", nil)
		req.Header.Set("Authorization", "Bearer "+expired)
		w := httptest.NewRecorder()

		AuthMiddleware(testSecret)(RequireAdmin(ok)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, "svc-key")
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("Strict tier exhausts after burst", func(t *testing.T) {
		var codes []int
		for i := 0; i < burstStrict+1; i++ {
			req := httptest.NewRequest(http.MethodPost, "/orders", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			codes = append(codes, w.Code)
		}

		assert.Equal(t, http.StatusTooManyRequests, codes[len(codes)-1])
		for _, c := range codes[:burstStrict] {
			assert.Equal(t, http.StatusOK, c)
		}
	})

	t.Run("Tiers are separate buckets", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Internal context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req = req.WithContext(utils.WithInternalRequest(req.Context()))
		limit, burst, tier := rl.resolveRateTier(req)

		assert.Equal(t, "internal", tier)
		assert.Equal(t, limitInternal, limit)
		assert.Equal(t, burstInternal, burst)
	})

	t.Run("Internal header bypasses the strict tier", func(t *testing.T) {
		for i := 0; i < burstStrict*2; i++ {
			req := httptest.NewRequest(http.MethodPost, "/orders", nil)
			req.RemoteAddr = "10.0.0.2:1234"
			req.Header.Set(ServiceAuthHeader, "svc-key")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})

	t.Run("Wrong internal key stays strict", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req.Header.Set(ServiceAuthHeader, "guess")
		_, _, tier := rl.resolveRateTier(req)

		assert.Equal(t, "strict", tier)
	})

	t.Run("Sweep drops idle visitors", func(t *testing.T) {
		rl.getVisitor("ip:idle:general", limitGeneral, burstGeneral)
		rl.mu.Lock()
		rl.visitors["ip:idle:general"].lastSeen = time.Now().Add(-time.Hour)
		rl.mu.Unlock()

		rl.sweep(visitorTTL)

		rl.mu.Lock()
		_, exists := rl.visitors["ip:idle:general"]
		rl.mu.Unlock()
		assert.False(t, exists)
	})
}
