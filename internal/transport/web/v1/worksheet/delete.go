package worksheet

import (
	"net/http"

	"github.com/EgorLis/study-share-hub/internal/domain"
	"github.com/EgorLis/study-share-hub/internal/transport/web/logx"
	"github.com/EgorLis/study-share-hub/internal/transport/web/mw"
	v1 "github.com/EgorLis/study-share-hub/internal/transport/web/v1"
)

// Delete godoc
// @Summary     Delete worksheet (uploader only)
// @Tags        worksheets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "worksheet id"
// @Success     200 {object} domain.APIEnvelope{data=object}
// @Failure     401 {object} domain.APIEnvelope
// @Failure     403 {object} domain.APIEnvelope
// @Failure     404 {object} domain.APIEnvelope
// @Failure     500 {object} domain.APIEnvelope
// @Failure     503 {object} domain.APIEnvelope
// @Router      /api/worksheets/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "worksheets.delete"
	reqID := mw.RequestIDFromCtx(r.Context())
	me, ok := domain.IdentityFromCtx(r.Context())
	if !ok {
		v1.WriteDomainError(w, r, domain.ErrUnauth)
		return
	}

	id, err := worksheetID(r)
	if err != nil {
		v1.WriteDomainError(w, r, err)
		return
	}

	if err := h.Deletes.Delete(r.Context(), id, me.UserID); err != nil {
		logx.Error(h.Log, reqID, op, "delete failed", err, "worksheet_id", id, "user_id", me.UserID)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "deleted", "worksheet_id", id)
	v1.WriteOKData(w, r, map[string]bool{id.String(): true})
}
