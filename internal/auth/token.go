package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const AccessTokenCookie = "access_token"

var (
	ErrMalformedHeader = errors.New("malformed authorization header")
	ErrMissingSubject  = errors.New("token has no userId claim")
)

type Claims struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// ExtractAccessToken returns the access token from the access_token cookie or,
// failing that, a Bearer Authorization header. An empty string with a nil
// error means the request is anonymous.
func ExtractAccessToken(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", nil
	}

	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", ErrMalformedHeader
	}
	return strings.TrimSpace(token), nil
}

// ParseAccessToken verifies an HS256 token and reads its userId and isAdmin claims.
func ParseAccessToken(tokenStr string, key []byte) (Claims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Claims{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrMissingSubject
	}

	raw, _ := claims["userId"].(string)
	userID, err := uuid.Parse(raw)
	if err != nil {
		return Claims{}, ErrMissingSubject
	}

	isAdmin, _ := claims["isAdmin"].(bool)
	return Claims{UserID: userID, IsAdmin: isAdmin}, nil
}
