package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/EgorLis/study-share-hub/internal/config"
	"github.com/EgorLis/study-share-hub/internal/transport/web/v1/auth"
	"github.com/EgorLis/study-share-hub/internal/transport/web/v1/health"
	"github.com/EgorLis/study-share-hub/internal/transport/web/v1/permission"
	"github.com/EgorLis/study-share-hub/internal/transport/web/v1/worksheet"
)

type Server struct {
	log    *zap.Logger
	server *http.Server
	cfg    *config.Config
}

func New(logger *zap.Logger, cfg *config.Config, svc Services, probes Probes, authDeps AuthDeps) *Server {
	if authDeps.Log == nil {
		authDeps.Log = logger.Named("auth")
	}
	hs := handlers{
		health: &health.Handler{
			Log:     logger.Named("health"),
			DB:      probes.DB,
			Cache:   probes.Cache,
			Storage: probes.Storage,
		},
		worksheets: &worksheet.Handler{
			Log:       logger.Named("worksheets"),
			Catalog:   svc.Catalog,
			Uploads:   svc.Uploader,
			Perms:     svc.Permissions,
			Downloads: svc.Downloads,
			Deletes:   svc.Deleter,
		},
		perms:  &permission.Handler{Log: logger.Named("permissions"), Perms: svc.Permissions},
		logout: &auth.HandlerLogout{Log: logger.Named("auth"), Blacklist: authDeps.Blacklist},
	}

	srv := &http.Server{
		Addr:    cfg.AppPort,
		Handler: newRouter(hs, authDeps, logger.Named("http")),
		// загрузка до 50MB по медленному каналу
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		MaxHeaderBytes:    1 << 20,
		ReadHeaderTimeout: 2 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return &Server{server: srv, cfg: cfg, log: logger}
}

// Run блокируется до остановки сервера; http.ErrServerClosed не ошибка.
func (ws *Server) Run() error {
	ws.log.Info("started", zap.String("addr", ws.server.Addr))
	if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (ws *Server) Close(ctx context.Context) {
	if err := ws.server.Shutdown(ctx); err != nil {
		ws.log.Warn("forced to shutdown", zap.Error(err))
	}
	ws.log.Info("exited gracefully")
}
