package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/EgorLis/study-share-hub/internal/domain"
)

// Deleter удаляет blob и строку вместе. Порядок: сначала blob, потом строка.
// Если blob удалить не удалось, строка остаётся.
type Deleter struct {
	log   *zap.Logger
	repo  domain.WorksheetsRepo
	blobs domain.BlobStorage
	cache domain.Cache
}

func NewDeleter(log *zap.Logger, repo domain.WorksheetsRepo, blobs domain.BlobStorage, cache domain.Cache) *Deleter {
	return &Deleter{log: orNop(log), repo: repo, blobs: blobs, cache: orNoop(cache)}
}

// Delete: только автор; администраторского обхода нет.
func (d *Deleter) Delete(ctx context.Context, worksheetID domain.WorksheetID, requester domain.UserID) error {
	ws, err := d.repo.WorksheetByID(ctx, worksheetID)
	if err != nil {
		deletesTotal.WithLabelValues("error").Inc()
		return storageErr("worksheet by id", err)
	}
	if ws.UploaderID != requester {
		deletesTotal.WithLabelValues("forbidden").Inc()
		return domain.ErrNotOwner
	}

	if err := d.blobs.Delete(ctx, ws.FilePath); err != nil {
		deletesTotal.WithLabelValues("error").Inc()
		d.log.Error("blob delete failed, row kept",
			zap.Stringer("worksheet_id", ws.ID), zap.String("key", ws.FilePath), zap.Error(err))
		return storageErr("delete blob", err)
	}

	// blob уже удалён: строку удаляем даже если запрос отменили
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()
	err = d.repo.DeleteWorksheet(cctx, ws.ID)
	if errors.Is(err, domain.ErrNotFound) {
		// строку уже удалил параллельный запрос: ни строки, ни blob
		invalidate(cctx, d.cache, d.log, ws.ID)
		deletesTotal.WithLabelValues("ok").Inc()
		d.log.Info("worksheet already deleted", zap.Stringer("worksheet_id", ws.ID), zap.String("key", ws.FilePath))
		return nil
	}
	if err != nil {
		deletesTotal.WithLabelValues("partial_failure").Inc()
		partialFailuresTotal.WithLabelValues("delete").Inc()
		d.log.Error("dangling row: blob removed but row delete failed",
			zap.Stringer("worksheet_id", ws.ID), zap.String("key", ws.FilePath), zap.Error(err))
		invalidate(cctx, d.cache, d.log, ws.ID)
		return &domain.PartialFailureError{
			Op:          "delete",
			WorksheetID: ws.ID,
			StorageKey:  ws.FilePath,
			Cause:       err,
		}
	}

	invalidate(cctx, d.cache, d.log, ws.ID)
	deletesTotal.WithLabelValues("ok").Inc()
	d.log.Info("worksheet deleted", zap.Stringer("worksheet_id", ws.ID), zap.String("key", ws.FilePath))
	return nil
}
