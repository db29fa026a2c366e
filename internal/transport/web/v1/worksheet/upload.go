package worksheet

import (
	"errors"
	"net/http"

	"github.com/EgorLis/study-share-hub/internal/domain"
	"github.com/EgorLis/study-share-hub/internal/service"
	"github.com/EgorLis/study-share-hub/internal/transport/web/logx"
	"github.com/EgorLis/study-share-hub/internal/transport/web/mw"
	v1 "github.com/EgorLis/study-share-hub/internal/transport/web/v1"
)

// запас на поля формы и multipart-границы сверх лимита файла
const formOverhead = 1 << 20

// в памяти держим до 8MB, остальное multipart кладёт во временные файлы
const formMemory = 8 << 20

// Upload godoc
// @Summary     Upload worksheet
// @Description multipart: title, description(optional), subject, file (<= 50MB)
// @Tags        worksheets
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       title       formData string true  "title"
// @Param       description formData string false "description"
// @Param       subject     formData string true  "subject id"
// @Param       file        formData file   true  "worksheet file"
// @Success     201 {object} domain.APIEnvelope{data=domain.Worksheet}
// @Failure     400 {object} domain.APIEnvelope
// @Failure     401 {object} domain.APIEnvelope
// @Failure     403 {object} domain.APIEnvelope
// @Failure     500 {object} domain.APIEnvelope
// @Failure     503 {object} domain.APIEnvelope
// @Router      /api/worksheets [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	const op = "worksheets.upload"
	reqID := mw.RequestIDFromCtx(r.Context())
	me, ok := domain.IdentityFromCtx(r.Context())
	if !ok {
		v1.WriteDomainError(w, r, domain.ErrUnauth)
		return
	}

	limit := domain.MaxUploadBytes + formOverhead
	if r.ContentLength > limit {
		h.rejectTooLarge(w, r, me, op)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	// не multipart: идём с пустой формой, причину отказа определит Uploader
	if err := r.ParseMultipartForm(formMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.rejectTooLarge(w, r, me, op)
			return
		}
		logx.Warn(h.Log, reqID, op, "parse form failed", "error", err)
		v1.WriteDomainError(w, r, errors.Join(domain.ErrValidation, err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	req := service.UploadRequest{
		Uploader:    me,
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Subject:     domain.SubjectID(r.FormValue("subject")),
	}

	if f, hdr, err := r.FormFile("file"); err == nil {
		defer f.Close()
		req.File = f
		req.FileName = hdr.Filename
		req.FileSize = hdr.Size
		req.ContentType = hdr.Header.Get("Content-Type")
	}

	ws, err := h.Uploads.Upload(r.Context(), req)
	if err != nil {
		logx.Error(h.Log, reqID, op, "upload failed", err, "user_id", me.UserID)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "uploaded", "worksheet_id", ws.ID, "size", ws.FileSize)
	v1.WriteCreated(w, r, ws)
}

// rejectTooLarge: тело не влезло в лимит, но право на загрузку проверяется раньше размера.
func (h *Handler) rejectTooLarge(w http.ResponseWriter, r *http.Request, me domain.Identity, op string) {
	if !h.Perms.CanUpload(r.Context(), me.UserID, me.Email) {
		v1.WriteDomainError(w, r, domain.ErrPermissionDenied)
		return
	}
	logx.Warn(h.Log, mw.RequestIDFromCtx(r.Context()), op, "body too large", "content_length", r.ContentLength)
	v1.WriteDomainError(w, r, domain.ErrFileTooLarge)
}
