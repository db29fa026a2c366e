package worksheet

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/EgorLis/study-share-hub/internal/domain"
	"github.com/EgorLis/study-share-hub/internal/transport/web/logx"
	"github.com/EgorLis/study-share-hub/internal/transport/web/mw"
	v1 "github.com/EgorLis/study-share-hub/internal/transport/web/v1"
)

// Download godoc
// @Summary     Download worksheet file
// @Description Отдаёт файл потоком; если поток недоступен: 302 на публичный URL.
// @Tags        worksheets
// @Produce     octet-stream
// @Security    BearerAuth
// @Param       id    path  string true  "worksheet id"
// @Param       token query string false "Auth token (alternative to Authorization: Bearer)"
// @Success     200 {file}   []byte
// @Success     302 {string} string "redirect to public URL"
// @Failure     404 {object} domain.APIEnvelope
// @Failure     503 {object} domain.APIEnvelope
// @Router      /api/worksheets/{id}/download [get]
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	const op = "worksheets.download"
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

	loc, err := h.Downloads.RecordDownload(r.Context(), id, me.UserID)
	if err != nil {
		logx.Error(h.Log, reqID, op, "download failed", err, "worksheet_id", id)
		v1.WriteDomainError(w, r, err)
		return
	}

	if loc.Body == nil {
		logx.Info(h.Log, reqID, op, "redirect to public url", "worksheet_id", id)
		http.Redirect(w, r, loc.URL, http.StatusFound)
		return
	}
	defer loc.Body.Close()

	ct := loc.Info.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	if loc.Info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(loc.Info.Size, 10))
	}
	if loc.Info.ETag != "" {
		w.Header().Set("ETag", `"`+loc.Info.ETag+`"`)
	}
	w.Header().Set("Content-Disposition", contentDisposition(loc.Worksheet.FileName))
	w.WriteHeader(http.StatusOK)

	n, err := io.Copy(w, loc.Body)
	if err != nil {
		// заголовки уже ушли, остаётся только лог
		logx.Error(h.Log, reqID, op, "stream interrupted", err, "worksheet_id", id, "written", n)
		return
	}
	logx.Info(h.Log, reqID, op, "streamed", "worksheet_id", id, "bytes", n)
}

func contentDisposition(fileName string) string {
	if fileName == "" {
		return "attachment"
	}
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": fileName}); v != "" {
		return v
	}
	return "attachment"
}
