package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/EgorLis/study-share-hub/internal/domain"
	"github.com/EgorLis/study-share-hub/internal/transport/web/logx"
	"github.com/EgorLis/study-share-hub/internal/transport/web/mw"
	v1 "github.com/EgorLis/study-share-hub/internal/transport/web/v1"
)

type Pinger interface {
	Ping(context.Context) error
}

type Handler struct {
	Log     *zap.Logger
	DB      Pinger
	Cache   Pinger
	Storage Pinger
}

// Liveness godoc
// @Summary      Liveness probe
// @Description  Проверка, жив ли сервис (не зависит от БД/кэша)
// @Tags         health
// @Produce      json
// @Success      200  {object}  domain.APIEnvelope{data=string}
// @Router       /v1/healthz [get]
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	v1.WriteOKData(w, r, "ok")
}

// Readiness godoc
// @Summary      Readiness probe
// @Description  Проверка готовности: пинг Postgres, Redis и S3
// @Tags         health
// @Produce      json
// @Success      200  {object}  domain.APIEnvelope{data=string}
// @Failure      503  {object}  domain.APIEnvelope
// @Router       /v1/readyz [get]
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	const op = "health.readiness"
	reqID := mw.RequestIDFromCtx(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for _, dep := range []struct {
		name string
		p    Pinger
	}{{"db", h.DB}, {"cache", h.Cache}, {"storage", h.Storage}} {
		if dep.p == nil {
			continue
		}
		if err := dep.p.Ping(ctx); err != nil {
			logx.Error(h.Log, reqID, op, dep.name+" ping failed", err)
			v1.WriteDomainError(w, r, fmt.Errorf("%w: %s", domain.ErrStorageUnavailable, dep.name))
			return
		}
	}

	v1.WriteOKData(w, r, "ready")
}
