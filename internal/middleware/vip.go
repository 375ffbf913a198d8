package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	vipIssuer   = "knoux-versa"
	vipAudience = "versa-clients"
)

// ErrInvalidVIPToken is returned for tokens that fail signature, expiry or audience checks.
var ErrInvalidVIPToken = errors.New("middleware: invalid vip token")

// VIPClaims are the claims carried by a VIP session token.
type VIPClaims struct {
	Tier string `json:"tier"`
	jwt.RegisteredClaims
}

type vipKey struct{}

// SignVIPToken issues an HS256 session token for subject valid for ttl.
func SignVIPToken(secret, subject string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("middleware: sign vip token: empty secret")
	}
	claims := VIPClaims{
		Tier: "vip",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    vipIssuer,
			Audience:  jwt.ClaimStrings{vipAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("middleware: sign vip token: %w", err)
	}
	return token, nil
}

// VerifyVIPToken validates token and returns its claims.
func VerifyVIPToken(secret, token string) (*VIPClaims, error) {
	var claims VIPClaims
	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(token), &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(vipIssuer),
		jwt.WithAudience(vipAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVIPToken, err)
	}
	if !parsed.Valid || claims.Tier != "vip" {
		return nil, ErrInvalidVIPToken
	}
	return &claims, nil
}

// BearerToken extracts the credentials of a Bearer authorization header.
// The scheme matches case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// VIPSession attaches VIP claims to the context when the request carries a
// valid bearer token. Requests without one pass through unchanged; a bad
// token is rejected.
func VIPSession(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := BearerToken(authHeader)
			if !ok {
				http.Error(w, "invalid authorization", http.StatusUnauthorized)
				return
			}
			claims, err := VerifyVIPToken(secret, token)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithVIP(r.Context(), claims)))
		})
	}
}

// ContextWithVIP stores verified claims on ctx.
func ContextWithVIP(ctx context.Context, claims *VIPClaims) context.Context {
	if claims == nil {
		return ctx
	}
	return context.WithValue(ctx, vipKey{}, claims)
}

// VIPFromContext returns the verified claims, if any.
func VIPFromContext(ctx context.Context) (*VIPClaims, bool) {
	claims, ok := ctx.Value(vipKey{}).(*VIPClaims)
	return claims, ok
}
