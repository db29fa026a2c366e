package permission

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/EgorLis/study-share-hub/internal/domain"
	"github.com/EgorLis/study-share-hub/internal/service"
	"github.com/EgorLis/study-share-hub/internal/transport/web/logx"
	"github.com/EgorLis/study-share-hub/internal/transport/web/mw"
	v1 "github.com/EgorLis/study-share-hub/internal/transport/web/v1"
)

type Permissions interface {
	IsAdmin(email string) bool
	Describe(ctx context.Context, id domain.Identity) domain.PermissionView
	GrantUpload(ctx context.Context, actor domain.Identity, targetEmail string) (domain.UserPermission, error)
	RevokeUpload(ctx context.Context, actor domain.Identity, targetEmail string) error
	ListPermissions(ctx context.Context, actor domain.Identity) ([]domain.UserPermission, error)
	MigrateLegacy(ctx context.Context) (service.MigrationReport, error)
}

type Handler struct {
	Log   *zap.Logger
	Perms Permissions
}

type grantRequest struct {
	Email string `json:"email"`
}

// Mine godoc
// @Summary     Permissions of the current user
// @Tags        me
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} domain.APIEnvelope{data=domain.PermissionView}
// @Failure     401 {object} domain.APIEnvelope
// @Router      /api/me/permissions [get]
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	me, ok := domain.IdentityFromCtx(r.Context())
	if !ok {
		v1.WriteDomainError(w, r, domain.ErrUnauth)
		return
	}
	v1.WriteOKData(w, r, h.Perms.Describe(r.Context(), me))
}

// List godoc
// @Summary     All permission records (admin)
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} domain.APIEnvelope{data=[]domain.UserPermission}
// @Failure     403 {object} domain.APIEnvelope
// @Router      /api/admin/permissions [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "admin.permissions.list"
	me, _ := domain.IdentityFromCtx(r.Context())

	out, err := h.Perms.ListPermissions(r.Context(), me)
	if err != nil {
		logx.Warn(h.Log, mw.RequestIDFromCtx(r.Context()), op, "list failed", "actor", me.Email, "error", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOKData(w, r, out)
}

// Grant godoc
// @Summary     Grant upload permission (admin)
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body body grantRequest true "target email"
// @Success     200 {object} domain.APIEnvelope{data=domain.UserPermission}
// @Failure     400 {object} domain.APIEnvelope
// @Failure     403 {object} domain.APIEnvelope
// @Router      /api/admin/permissions [post]
func (h *Handler) Grant(w http.ResponseWriter, r *http.Request) {
	const op = "admin.permissions.grant"
	reqID := mw.RequestIDFromCtx(r.Context())
	me, _ := domain.IdentityFromCtx(r.Context())

	var in grantRequest
	if err := v1.DecodeJSON(r, &in); err != nil {
		logx.Warn(h.Log, reqID, op, "bad body", "error", err)
		v1.WriteDomainError(w, r, err)
		return
	}

	rec, err := h.Perms.GrantUpload(r.Context(), me, in.Email)
	if err != nil {
		logx.Warn(h.Log, reqID, op, "grant failed", "actor", me.Email, "target", in.Email, "error", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	logx.Info(h.Log, reqID, op, "granted", "actor", me.Email, "target", rec.Email)
	v1.WriteOKData(w, r, rec)
}

// Revoke godoc
// @Summary     Revoke upload permission (admin)
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Param       email path string true "target email"
// @Success     200 {object} domain.APIEnvelope{data=object}
// @Failure     400 {object} domain.APIEnvelope
// @Failure     403 {object} domain.APIEnvelope
// @Router      /api/admin/permissions/{email} [delete]
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	const op = "admin.permissions.revoke"
	reqID := mw.RequestIDFromCtx(r.Context())
	me, _ := domain.IdentityFromCtx(r.Context())

	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		v1.WriteDomainError(w, r, domain.ErrInvalidEmail)
		return
	}

	if err := h.Perms.RevokeUpload(r.Context(), me, email); err != nil {
		logx.Warn(h.Log, reqID, op, "revoke failed", "actor", me.Email, "target", email, "error", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	logx.Info(h.Log, reqID, op, "revoked", "actor", me.Email, "target", email)
	v1.WriteOKData(w, r, map[string]bool{domain.NormalizeEmail(email): false})
}

// Migrate godoc
// @Summary     Backfill permission records from profiles (admin)
// @Description Идемпотентно: повторный запуск ничего не меняет.
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} domain.APIEnvelope{data=service.MigrationReport}
// @Failure     403 {object} domain.APIEnvelope
// @Router      /api/admin/permissions/migrate [post]
func (h *Handler) Migrate(w http.ResponseWriter, r *http.Request) {
	const op = "admin.permissions.migrate"
	reqID := mw.RequestIDFromCtx(r.Context())
	me, _ := domain.IdentityFromCtx(r.Context())
	if !h.Perms.IsAdmin(me.Email) {
		v1.WriteDomainError(w, r, domain.ErrForbidden)
		return
	}

	rep, err := h.Perms.MigrateLegacy(r.Context())
	if err != nil {
		logx.Error(h.Log, reqID, op, "migration failed", err, "partial", rep)
		v1.WriteDomainError(w, r, err)
		return
	}
	logx.Info(h.Log, reqID, op, "done", "attached", rep.Attached, "created", rep.Created, "skipped", rep.Skipped)
	v1.WriteOKData(w, r, rep)
}
