package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/coaching-booking-platform/internal/apperr"
	"github.com/wolfman30/coaching-booking-platform/internal/http/httpx"
)

type contextKey string

const adminClaimsKey contextKey = "adminClaims"

// RoleAdmin is the role claim required on admin tokens.
const RoleAdmin = "admin"

// AdminClaims are the claims carried by admin-area tokens.
type AdminClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// IssueAdminToken signs a short-lived HS256 token for subject.
func IssueAdminToken(secret, subject, email string, ttl time.Duration) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, errors.New("middleware: admin jwt secret not configured")
	}
	now := time.Now()
	expires := now.Add(ttl)
	claims := AdminClaims{
		Email: email,
		Role:  RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// AdminJWT enforces an HMAC-signed JWT with role=admin for admin endpoints.
func AdminJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				unauthorized(w, "admin auth disabled")
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				unauthorized(w, "missing authorization header")
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := AdminClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			}, jwt.WithExpirationRequired())
			if err != nil || !token.Valid {
				unauthorized(w, "invalid token")
				return
			}
			if claims.Role != RoleAdmin {
				unauthorized(w, "admin role required")
				return
			}
			ctx := context.WithValue(r.Context(), adminClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminClaimsFromContext returns admin JWT claims if present.
func AdminClaimsFromContext(ctx context.Context) (AdminClaims, bool) {
	claims, ok := ctx.Value(adminClaimsKey).(AdminClaims)
	return claims, ok
}

// AdminSubject returns the authenticated admin's subject, or "" outside the admin area.
func AdminSubject(ctx context.Context) string {
	claims, ok := AdminClaimsFromContext(ctx)
	if !ok {
		return ""
	}
	return claims.Subject
}

func unauthorized(w http.ResponseWriter, message string) {
	httpx.JSON(w, http.StatusUnauthorized, httpx.Envelope{
		Error: &httpx.ErrorBody{Kind: apperr.KindAuthentication, Message: message},
	})
}
