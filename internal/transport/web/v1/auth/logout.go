package auth

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/EgorLis/study-share-hub/internal/domain"
	"github.com/EgorLis/study-share-hub/internal/transport/web/logx"
	"github.com/EgorLis/study-share-hub/internal/transport/web/mw"
	v1 "github.com/EgorLis/study-share-hub/internal/transport/web/v1"
)

type HandlerLogout struct {
	Log       *zap.Logger
	Blacklist domain.TokenBlacklist
}

type logoutResponse struct {
	Revoked string `json:"revoked"` // jti
}

// Logout godoc
// @Summary     Logout (revoke current token)
// @Description Помечает токен как отозванный до истечения exp. Сама сессия живёт у IdP.
// @Tags        auth
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} domain.APIEnvelope{data=logoutResponse}
// @Failure     401 {object} domain.APIEnvelope
// @Failure     503 {object} domain.APIEnvelope
// @Router      /api/auth/session [delete]
func (h *HandlerLogout) Logout(w http.ResponseWriter, r *http.Request) {
	const op = "auth.logout"
	reqID := mw.RequestIDFromCtx(r.Context())

	claims, ok := mw.ClaimsFromCtx(r.Context())
	if !ok {
		v1.WriteDomainError(w, r, domain.ErrUnauth)
		return
	}

	// ревокация до exp
	if err := h.Blacklist.Revoke(r.Context(), claims.JTI, claims.ExpiresAt); err != nil {
		logx.Error(h.Log, reqID, op, "revoke failed", err, "jti", claims.JTI)
		v1.WriteDomainError(w, r, fmt.Errorf("%w: revoke: %w", domain.ErrStorageUnavailable, err))
		return
	}

	logx.Info(h.Log, reqID, op, "ok", "jti", claims.JTI, "user_id", claims.Identity.UserID)
	v1.WriteOKData(w, r, logoutResponse{Revoked: claims.JTI})
}
