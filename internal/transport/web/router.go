package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "github.com/EgorLis/study-share-hub/internal/docs"
	"github.com/EgorLis/study-share-hub/internal/transport/web/mw"
	v1 "github.com/EgorLis/study-share-hub/internal/transport/web/v1"
	"github.com/EgorLis/study-share-hub/internal/transport/web/v1/auth"
	"github.com/EgorLis/study-share-hub/internal/transport/web/v1/health"
	"github.com/EgorLis/study-share-hub/internal/transport/web/v1/permission"
	"github.com/EgorLis/study-share-hub/internal/transport/web/v1/worksheet"
)

type handlers struct {
	health     *health.Handler
	worksheets *worksheet.Handler
	perms      *permission.Handler
	logout     *auth.HandlerLogout
}

func newRouter(hs handlers, authDeps mw.AuthDeps, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(mw.WithRequestID, mw.Logging(logger), mw.Metrics)
	r.NotFound(v1.NotFound)
	r.MethodNotAllowed(v1.MethodNotAllowed)

	// health
	r.Get("/v1/healthz", hs.health.Liveness)
	r.Get("/v1/readyz", hs.health.Readiness)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/subjects", hs.worksheets.Subjects)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth(authDeps))

			r.Delete("/auth/session", hs.logout.Logout)

			r.Get("/me/permissions", hs.perms.Mine)
			r.Get("/me/stats", hs.worksheets.Stats)

			r.Get("/worksheets", hs.worksheets.List)
			r.Post("/worksheets", hs.worksheets.Upload)
			r.Get("/worksheets/{id}", hs.worksheets.GetOne)
			r.Get("/worksheets/{id}/download", hs.worksheets.Download)
			r.Delete("/worksheets/{id}", hs.worksheets.Delete)

			r.Get("/admin/permissions", hs.perms.List)
			r.Post("/admin/permissions", hs.perms.Grant)
			r.Post("/admin/permissions/migrate", hs.perms.Migrate)
			r.Delete("/admin/permissions/{email}", hs.perms.Revoke)
		})
	})

	return r
}
