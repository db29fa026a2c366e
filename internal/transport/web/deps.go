package web

import (
	"github.com/EgorLis/study-share-hub/internal/service"
	"github.com/EgorLis/study-share-hub/internal/transport/web/mw"
	"github.com/EgorLis/study-share-hub/internal/transport/web/v1/health"
)

type Services struct {
	Permissions *service.Permissions
	Uploader    *service.Uploader
	Downloads   *service.DownloadTracker
	Deleter     *service.Deleter
	Catalog     *service.Catalog
}

// Probes: зависимости, которые пингует /v1/readyz.
type Probes struct {
	DB      health.Pinger
	Cache   health.Pinger
	Storage health.Pinger
}

type AuthDeps = mw.AuthDeps
