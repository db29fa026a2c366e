package worksheet

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/EgorLis/study-share-hub/internal/domain"
	"github.com/EgorLis/study-share-hub/internal/transport/web/logx"
	"github.com/EgorLis/study-share-hub/internal/transport/web/mw"
	v1 "github.com/EgorLis/study-share-hub/internal/transport/web/v1"
)

// List godoc
// @Summary     List worksheets
// @Tags        worksheets
// @Produce     json
// @Security    BearerAuth
// @Param       subject  query string false "subject id"
// @Param       uploader query string false "uploader user id or 'me'"
// @Param       q        query string false "substring of the title"
// @Param       sort     query string false "newest|oldest|most_downloaded"
// @Param       limit    query int    false "limit (default 50)"
// @Success     200 {object} domain.APIEnvelope{data=[]domain.Worksheet}
// @Failure     400 {object} domain.APIEnvelope
// @Failure     401 {object} domain.APIEnvelope
// @Router      /api/worksheets [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "worksheets.list"
	reqID := mw.RequestIDFromCtx(r.Context())
	me, _ := domain.IdentityFromCtx(r.Context())

	f, err := parseFilter(r, me)
	if err != nil {
		logx.Warn(h.Log, reqID, op, "bad query", "error", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	sort := domain.ParseListSort(r.URL.Query().Get("sort"))

	items, err := h.Catalog.List(r.Context(), f, sort)
	if err != nil {
		logx.Error(h.Log, reqID, op, "list failed", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOKData(w, r, items)
}

func parseFilter(r *http.Request, me domain.Identity) (domain.ListFilter, error) {
	q := r.URL.Query()
	f := domain.ListFilter{
		Subject: domain.SubjectID(q.Get("subject")),
		Query:   q.Get("q"),
	}
	switch u := q.Get("uploader"); u {
	case "":
	case "me":
		f.UploaderID = &me.UserID
	default:
		id, err := uuid.Parse(u)
		if err != nil {
			return f, fmt.Errorf("%w: bad uploader %q", domain.ErrValidation, u)
		}
		f.UploaderID = &id
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return f, fmt.Errorf("%w: bad limit %q", domain.ErrValidation, s)
		}
		f.Limit = n
	}
	return f, nil
}
