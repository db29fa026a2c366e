package worksheet

import (
	"net/http"

	"github.com/EgorLis/study-share-hub/internal/transport/web/logx"
	"github.com/EgorLis/study-share-hub/internal/transport/web/mw"
	v1 "github.com/EgorLis/study-share-hub/internal/transport/web/v1"
)

// GetOne godoc
// @Summary     Get worksheet metadata
// @Tags        worksheets
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "worksheet id"
// @Success     200 {object} domain.APIEnvelope{data=domain.Worksheet}
// @Failure     400 {object} domain.APIEnvelope
// @Failure     404 {object} domain.APIEnvelope
// @Router      /api/worksheets/{id} [get]
func (h *Handler) GetOne(w http.ResponseWriter, r *http.Request) {
	const op = "worksheets.get_one"
	reqID := mw.RequestIDFromCtx(r.Context())

	id, err := worksheetID(r)
	if err != nil {
		v1.WriteDomainError(w, r, err)
		return
	}
	ws, err := h.Catalog.Get(r.Context(), id)
	if err != nil {
		logx.Warn(h.Log, reqID, op, "get failed", "worksheet_id", id, "error", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	w.Header().Set("Last-Modified", ws.CreatedAt.UTC().Format(http.TimeFormat))
	v1.WriteOKData(w, r, ws)
}
