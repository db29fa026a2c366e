package worksheet

import (
	"net/http"

	"github.com/EgorLis/study-share-hub/internal/domain"
	"github.com/EgorLis/study-share-hub/internal/transport/web/logx"
	"github.com/EgorLis/study-share-hub/internal/transport/web/mw"
	v1 "github.com/EgorLis/study-share-hub/internal/transport/web/v1"
)

// Subjects godoc
// @Summary     Subject catalog
// @Tags        worksheets
// @Produce     json
// @Success     200 {object} domain.APIEnvelope{data=[]domain.Subject}
// @Router      /api/subjects [get]
func (h *Handler) Subjects(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	v1.WriteOKData(w, r, h.Catalog.Subjects())
}

// Stats godoc
// @Summary     Dashboard stats of the current user
// @Tags        me
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} domain.APIEnvelope{data=domain.UserStats}
// @Failure     401 {object} domain.APIEnvelope
// @Router      /api/me/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	const op = "me.stats"
	me, ok := domain.IdentityFromCtx(r.Context())
	if !ok {
		v1.WriteDomainError(w, r, domain.ErrUnauth)
		return
	}
	st, err := h.Catalog.Stats(r.Context(), me.UserID)
	if err != nil {
		logx.Error(h.Log, mw.RequestIDFromCtx(r.Context()), op, "stats failed", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOKData(w, r, st)
}
