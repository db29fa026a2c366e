package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/EgorLis/study-share-hub/internal/auth/token"
	"github.com/EgorLis/study-share-hub/internal/auth/token/tokentest"
	"github.com/EgorLis/study-share-hub/internal/config"
	"github.com/EgorLis/study-share-hub/internal/domain"
	"github.com/EgorLis/study-share-hub/internal/service"
)

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := zaptest.NewLogger(t)
	tm := token.New("router-secret", "")
	perms := service.NewPermissions(log, nil, nil, "admin@example.com")
	svc := Services{
		Permissions: perms,
		Catalog:     service.NewCatalog(log, nil, nil, nil, service.CatalogConfig{}),
	}
	srv := New(log, &config.Config{AppPort: ":0"}, svc,
		Probes{DB: okPinger{}, Cache: okPinger{}, Storage: okPinger{}},
		AuthDeps{Tokens: tm})
	return srv
}

func TestRouterPublicAndProtected(t *testing.T) {
	srv := newTestServer(t)
	h := srv.server.Handler

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/v1/healthz", http.StatusOK},
		{http.MethodGet, "/v1/readyz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/subjects", http.StatusOK},
		{http.MethodGet, "/api/worksheets", http.StatusUnauthorized},
		{http.MethodPost, "/api/worksheets", http.StatusUnauthorized},
		{http.MethodGet, "/api/me/permissions", http.StatusUnauthorized},
		{http.MethodPost, "/api/admin/permissions/migrate", http.StatusUnauthorized},
		{http.MethodGet, "/api/nope", http.StatusNotFound},
		{http.MethodPut, "/api/subjects", http.StatusMethodNotAllowed},
		// HEAD не должен засчитывать скачивание
		{http.MethodHead, "/api/worksheets/" + uuid.NewString() + "/download", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s %s: no request id", tt.method, tt.path)
		}
	}

	// с токеном: администратор видит свои права без записи в БД
	raw, _ := tokentest.Sign(t, "router-secret", "", domain.Identity{UserID: uuid.New(), Email: "admin@example.com"})
	req := httptest.NewRequest(http.MethodGet, "/api/me/permissions", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("me/permissions: status %d body %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Data domain.PermissionView `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if !env.Data.IsAdmin || !env.Data.CanUpload {
		t.Fatalf("admin view = %+v", env.Data)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if !strings.Contains(rec.Body.String(), `"code":1004`) {
		t.Fatalf("404 must be an envelope: %s", rec.Body.String())
	}
}
