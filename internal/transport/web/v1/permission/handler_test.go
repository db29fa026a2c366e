package permission

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/EgorLis/study-share-hub/internal/domain"
	"github.com/EgorLis/study-share-hub/internal/service"
)

const adminEmail = "admin@example.com"

// fakePerms повторяет только проверку администратора; остальное в тестах сервиса.
type fakePerms struct {
	granted  []string
	revoked  []string
	migrated int
}

func (f *fakePerms) IsAdmin(email string) bool { return domain.NormalizeEmail(email) == adminEmail }

func (f *fakePerms) Describe(_ context.Context, id domain.Identity) domain.PermissionView {
	return domain.PermissionView{CanUpload: f.IsAdmin(id.Email), IsAdmin: f.IsAdmin(id.Email)}
}

func (f *fakePerms) GrantUpload(_ context.Context, actor domain.Identity, target string) (domain.UserPermission, error) {
	if !f.IsAdmin(actor.Email) {
		return domain.UserPermission{}, domain.ErrForbidden
	}
	if !domain.ValidEmail(target) {
		return domain.UserPermission{}, domain.ErrInvalidEmail
	}
	f.granted = append(f.granted, domain.NormalizeEmail(target))
	return domain.UserPermission{Email: domain.NormalizeEmail(target), CanUpload: true}, nil
}

func (f *fakePerms) RevokeUpload(_ context.Context, actor domain.Identity, target string) error {
	if !f.IsAdmin(actor.Email) {
		return domain.ErrForbidden
	}
	f.revoked = append(f.revoked, target)
	return nil
}

func (f *fakePerms) ListPermissions(_ context.Context, actor domain.Identity) ([]domain.UserPermission, error) {
	if !f.IsAdmin(actor.Email) {
		return nil, domain.ErrForbidden
	}
	return []domain.UserPermission{{Email: "a@example.com", CanUpload: true}}, nil
}

func (f *fakePerms) MigrateLegacy(context.Context) (service.MigrationReport, error) {
	f.migrated++
	return service.MigrationReport{Attached: 1, Created: 2}, nil
}

func newTestRouter(t *testing.T, perms *fakePerms, who domain.Identity) http.Handler {
	t.Helper()
	h := &Handler{Log: zaptest.NewLogger(t), Perms: perms}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(domain.WithIdentity(req.Context(), who)))
		})
	})
	r.Get("/api/me/permissions", h.Mine)
	r.Get("/api/admin/permissions", h.List)
	r.Post("/api/admin/permissions", h.Grant)
	r.Post("/api/admin/permissions/migrate", h.Migrate)
	r.Delete("/api/admin/permissions/{email}", h.Revoke)
	return r
}

func serve(h http.Handler, method, target, body string) (*httptest.ResponseRecorder, domain.APIEnvelope) {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	var env domain.APIEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestAdminRoutes(t *testing.T) {
	admin := domain.Identity{UserID: uuid.New(), Email: "Admin@Example.com"}
	perms := &fakePerms{}
	router := newTestRouter(t, perms, admin)

	rec, _ := serve(router, http.MethodPost, "/api/admin/permissions", `{"email":"Student@Example.com"}`)
	if rec.Code != http.StatusOK || len(perms.granted) != 1 || perms.granted[0] != "student@example.com" {
		t.Fatalf("grant: status %d granted %v; body %s", rec.Code, perms.granted, rec.Body.String())
	}

	rec, _ = serve(router, http.MethodDelete, "/api/admin/permissions/student%40example.com", "")
	if rec.Code != http.StatusOK || len(perms.revoked) != 1 || perms.revoked[0] != "student@example.com" {
		t.Fatalf("revoke: status %d revoked %v", rec.Code, perms.revoked)
	}

	rec, _ = serve(router, http.MethodGet, "/api/admin/permissions", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "a@example.com") {
		t.Fatalf("list: status %d body %s", rec.Code, rec.Body.String())
	}

	rec, _ = serve(router, http.MethodPost, "/api/admin/permissions/migrate", "")
	if rec.Code != http.StatusOK || perms.migrated != 1 || !strings.Contains(rec.Body.String(), `"created":2`) {
		t.Fatalf("migrate: status %d body %s", rec.Code, rec.Body.String())
	}

	rec, env := serve(router, http.MethodGet, "/api/me/permissions", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"is_admin":true`) || env.Error != nil {
		t.Fatalf("mine: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestAdminRoutesRejectNonAdmin(t *testing.T) {
	perms := &fakePerms{}
	router := newTestRouter(t, perms, domain.Identity{UserID: uuid.New(), Email: "student@example.com"})

	for _, c := range []struct{ method, target, body string }{
		{http.MethodGet, "/api/admin/permissions", ""},
		{http.MethodPost, "/api/admin/permissions", `{"email":"friend@example.com"}`},
		{http.MethodDelete, "/api/admin/permissions/friend@example.com", ""},
		{http.MethodPost, "/api/admin/permissions/migrate", ""},
	} {
		rec, env := serve(router, c.method, c.target, c.body)
		if rec.Code != http.StatusForbidden || env.Error == nil || env.Error.Code != domain.ErrCodeForbidden {
			t.Errorf("%s %s: status %d", c.method, c.target, rec.Code)
		}
	}
	if len(perms.granted)+len(perms.revoked)+perms.migrated != 0 {
		t.Fatalf("non-admin changed state: %+v", perms)
	}
}

func TestGrantBadBody(t *testing.T) {
	router := newTestRouter(t, &fakePerms{}, domain.Identity{UserID: uuid.New(), Email: adminEmail})

	for _, body := range []string{`not json`, `{"email":"x@y.z","extra":1}`, `{"email":"Name <a@b.c>"}`} {
		rec, env := serve(router, http.MethodPost, "/api/admin/permissions", body)
		if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != domain.ErrCodeBadParams {
			t.Errorf("%s: status %d", body, rec.Code)
		}
	}
}
