package middleware

import (
	"net/http"

	"eshop-be/internal/auth"
	"eshop-be/internal/logger"
	"eshop-be/internal/utils"

	"go.uber.org/zap"
)

// AuthMiddleware verifies an optional HS256 access token (cookie or bearer
// header) and puts its claims in context. Requests without a usable token
// continue anonymously; guards such as RequireAdmin decide what that means.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := auth.ExtractAccessToken(r)
			if err != nil || tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseAccessToken(tokenStr, key)
			if err != nil {
				logger.FromCtx(r.Context()).Debug("ignoring unusable token", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			ctx := utils.SetUserContext(r.Context(), claims.UserID, claims.IsAdmin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin lets through only callers whose token carries isAdmin. It must
// run after AuthMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.GetUserIDFromContext(r.Context()); !ok {
			utils.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !utils.IsAdminFromContext(r.Context()) {
			utils.WriteJSONError(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
