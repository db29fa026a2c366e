package worksheet

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EgorLis/study-share-hub/internal/domain"
	"github.com/EgorLis/study-share-hub/internal/service"
)

type Catalog interface {
	Subjects() []domain.Subject
	List(ctx context.Context, f domain.ListFilter, sort domain.ListSort) ([]domain.Worksheet, error)
	Get(ctx context.Context, id domain.WorksheetID) (domain.Worksheet, error)
	Stats(ctx context.Context, userID domain.UserID) (domain.UserStats, error)
}

type Uploader interface {
	Upload(ctx context.Context, req service.UploadRequest) (domain.Worksheet, error)
}

type Downloads interface {
	RecordDownload(ctx context.Context, worksheetID domain.WorksheetID, userID domain.UserID) (service.Location, error)
}

type Deleter interface {
	Delete(ctx context.Context, worksheetID domain.WorksheetID, requester domain.UserID) error
}

type Handler struct {
	Log       *zap.Logger
	Catalog   Catalog
	Uploads   Uploader
	Perms     service.UploadPermission
	Downloads Downloads
	Deletes   Deleter
}

// worksheetID: {id} из пути.
func worksheetID(r *http.Request) (domain.WorksheetID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad worksheet id %q", domain.ErrValidation, raw)
	}
	return id, nil
}
