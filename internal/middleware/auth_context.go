package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"pura-pata-api/internal/domain/apperr"
	"pura-pata-api/internal/platform/httpx"
	"pura-pata-api/internal/ports/auth"
)

const DebugUserHeader = "X-Debug-User-ID"

type claimsCtxKey struct{}

var (
	errBadAuthHeader = fmt.Errorf("%w: malformed authorization header", apperr.ErrUnauthorized)
	errInvalidToken  = fmt.Errorf("%w: invalid or expired token", apperr.ErrUnauthorized)
)

// AuthContext resuelve la identidad del request.
//
// Con verifier, un Authorization presente tiene que ser "Bearer <jwt>" válido;
// si no, se responde 401 sin llegar al handler. Sin header el request sigue
// anónimo y cada handler decide si exige usuario.
//
// Sin verifier (dev) se confía en DebugUserHeader.
func AuthContext(verifier auth.AuthVerifier) func(http.Handler) http.Handler {
	if verifier == nil {
		return devAuth
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(header)
			if token == "" {
				httpx.WriteError(w, errBadAuthHeader)
				return
			}

			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				httpx.WriteError(w, errInvalidToken)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func devAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if uid := strings.TrimSpace(r.Header.Get(DebugUserHeader)); uid != "" {
			r = r.WithContext(WithClaims(r.Context(), auth.Claims{UserID: uid}))
		}
		next.ServeHTTP(w, r)
	})
}

func WithClaims(ctx context.Context, c auth.Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey{}, c)
}

func GetClaims(ctx context.Context) (auth.Claims, bool) {
	c, ok := ctx.Value(claimsCtxKey{}).(auth.Claims)
	return c, ok
}

// bearerToken devuelve "" si el esquema no es Bearer o falta el token.
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
