package middlewares

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/cogmesh/internal/http/errors"
)

// serviceClaims son los claims de los tokens de servicio HS256 del API.
type serviceClaims struct {
	TenantID string `json:"tenant_id,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// WithAuth valida el Bearer token de servicio y deja subject y tenant en
// el contexto. Los endpoints de health y metrics no pasan por acá.
func WithAuth(secret, issuer string) Middleware {
	keyFn := func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(raw, "Bearer ") {
				errors.WriteError(w, errors.ErrUnauthorized.WithDetail("missing bearer token"))
				return
			}
			raw = strings.TrimPrefix(raw, "Bearer ")

			opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
			if issuer != "" {
				opts = append(opts, jwt.WithIssuer(issuer))
			}
			claims := &serviceClaims{}
			tok, err := jwt.ParseWithClaims(raw, claims, keyFn, opts...)
			if err != nil || !tok.Valid {
				errors.WriteError(w, errors.ErrUnauthorized.WithDetail("invalid token"))
				return
			}

			ctx := setSubject(r.Context(), claims.Subject)
			if claims.TenantID != "" {
				ctx = setTenant(ctx, claims.TenantID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
