package middleware

import (
	"context"
	"net/http"
	"strings"

	"medication-adherence/internal/platform/logger"
	"medication-adherence/internal/ports/auth"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// DebugUserHeader identifica al usuario cuando no hay verifier (modo dev).
const DebugUserHeader = "X-Debug-User-ID"

// AuthContext resuelve el usuario del request y lo deja en el contexto.
// Con verifier solo cuenta el bearer token; sin verifier, el header de debug.
// Nunca corta el request: los handlers responden 401 si no hay claims.
func AuthContext(verifier auth.AuthVerifier, log logger.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				claims auth.Claims
				ok     bool
			)
			if verifier == nil {
				claims, ok = debugClaims(r)
			} else {
				claims, ok = tokenClaims(r, verifier, log)
			}
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func debugClaims(r *http.Request) (auth.Claims, bool) {
	uid := strings.TrimSpace(r.Header.Get(DebugUserHeader))
	if uid == "" {
		return auth.Claims{}, false
	}
	return auth.Claims{UserID: uid}, true
}

// tokenClaims registra el motivo del rechazo (token vencido, firma, sin secreto).
func tokenClaims(r *http.Request, verifier auth.AuthVerifier, log logger.Logger) (auth.Claims, bool) {
	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return auth.Claims{}, false
	}
	claims, err := verifier.Verify(r.Context(), token)
	if err != nil {
		log.Warn("bearer token rejected", map[string]any{
			"path": r.URL.Path,
			"err":  err,
		})
		return auth.Claims{}, false
	}
	if strings.TrimSpace(claims.UserID) == "" {
		log.Warn("bearer token without user id", map[string]any{"path": r.URL.Path})
		return auth.Claims{}, false
	}
	return claims, true
}

// WithClaims deja claims en ctx.
func WithClaims(ctx context.Context, c auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func GetClaims(ctx context.Context) (auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(auth.Claims)
	return c, ok
}

func bearerToken(authHeader string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(authHeader), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
