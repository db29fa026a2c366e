package mw

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/EgorLis/study-share-hub/internal/domain"
)

const claimsKey ctxKey = "auth_claims"

type AuthDeps struct {
	Tokens    domain.TokenManager
	Blacklist domain.TokenBlacklist
	Log       *zap.Logger
}

// RequireAuth проверяет bearer-токен IdP и кладёт Identity в контекст.
// Если Redis с блэклистом недоступен, пропускаем токен и пишем warn:
// подпись и exp уже проверены.
func RequireAuth(deps AuthDeps) func(http.Handler) http.Handler {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := TokenFromRequest(r)
			if raw == "" {
				writeUnauth(w, r)
				return
			}
			claims, err := deps.Tokens.Parse(r.Context(), raw)
			if err != nil {
				log.Debug("token rejected", zap.String("req_id", RequestIDFromCtx(r.Context())), zap.Error(err))
				writeUnauth(w, r)
				return
			}
			if deps.Blacklist != nil {
				revoked, err := deps.Blacklist.IsRevoked(r.Context(), claims.JTI)
				if err != nil {
					log.Warn("blacklist check failed, token accepted",
						zap.String("req_id", RequestIDFromCtx(r.Context())), zap.Error(err))
				}
				if revoked {
					writeUnauth(w, r)
					return
				}
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = domain.WithIdentity(ctx, claims.Identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ClaimsFromCtx(ctx context.Context) (domain.TokenClaims, bool) {
	c, ok := ctx.Value(claimsKey).(domain.TokenClaims)
	return c, ok
}

// TokenFromRequest: Authorization: Bearer, иначе ?token= (ссылки на скачивание
// открываются браузером без заголовков).
func TokenFromRequest(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// writeUnauth: mw не может зависеть от v1, конверт пишем сами.
func writeUnauth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	w.WriteHeader(http.StatusUnauthorized)
	if r.Method == http.MethodHead {
		return
	}
	_ = json.NewEncoder(w).Encode(domain.Fail(domain.ErrCodeUnauth, "unauthorized"))
}
