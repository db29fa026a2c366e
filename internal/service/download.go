package service

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/EgorLis/study-share-hub/internal/domain"
)

// Location: откуда клиент заберёт файл: поток (Body != nil) или URL.
type Location struct {
	Worksheet domain.Worksheet
	Body      io.ReadCloser
	Info      domain.BlobInfo
	URL       string
}

// DownloadTracker отдаёт файл, двигает download_count и пишет запись о скачивании.
//
// Счётчик: метрика для отображения, а не источник истины: на пути
// read-modify-write два одновременных скачивания могут дать +1 вместо +2.
// Запись в downloads уникальна по (worksheet_id, user_id) на стороне БД.
type DownloadTracker struct {
	log       *zap.Logger
	repo      domain.WorksheetsRepo
	downloads domain.DownloadsRepo
	blobs     domain.BlobStorage
	cache     domain.Cache
}

func NewDownloadTracker(log *zap.Logger, repo domain.WorksheetsRepo, downloads domain.DownloadsRepo, blobs domain.BlobStorage, cache domain.Cache) *DownloadTracker {
	return &DownloadTracker{
		log:       orNop(log),
		repo:      repo,
		downloads: downloads,
		blobs:     blobs,
		cache:     orNoop(cache),
	}
}

func (t *DownloadTracker) RecordDownload(ctx context.Context, worksheetID domain.WorksheetID, userID domain.UserID) (Location, error) {
	ws, err := t.repo.WorksheetByID(ctx, worksheetID)
	if err != nil {
		downloadsTotal.WithLabelValues("error").Inc()
		return Location{}, storageErr("worksheet by id", err)
	}

	loc, err := t.resolve(ctx, ws)
	if err != nil {
		downloadsTotal.WithLabelValues("error").Inc()
		return Location{}, err
	}

	t.incrementCounter(ctx, ws)

	if err := t.downloads.UpsertDownload(ctx, ws.ID, userID); err != nil {
		bookkeepingErrorsTotal.WithLabelValues("download_record").Inc()
		t.log.Warn("download record upsert failed",
			zap.Stringer("worksheet_id", ws.ID), zap.Stringer("user_id", userID), zap.Error(err))
	}

	invalidate(ctx, t.cache, t.log, ws.ID)

	if loc.Body != nil {
		downloadsTotal.WithLabelValues("stream").Inc()
	} else {
		downloadsTotal.WithLabelValues("url").Inc()
	}
	return loc, nil
}

// resolve: сначала поток, и только если он недоступен: публичный URL.
// Объекта нет в хранилище: URL не строим, это ErrNotFound.
func (t *DownloadTracker) resolve(ctx context.Context, ws domain.Worksheet) (Location, error) {
	body, info, getErr := t.blobs.Get(ctx, ws.FilePath)
	if getErr == nil {
		return Location{Worksheet: ws, Body: body, Info: info}, nil
	}
	if errors.Is(getErr, domain.ErrNotFound) {
		t.log.Error("blob missing for existing row",
			zap.Stringer("worksheet_id", ws.ID), zap.String("key", ws.FilePath), zap.Error(getErr))
		return Location{}, getErr
	}
	t.log.Warn("blob stream unavailable, trying public url",
		zap.Stringer("worksheet_id", ws.ID), zap.String("key", ws.FilePath), zap.Error(getErr))

	url, urlErr := t.blobs.PublicURL(ctx, ws.FilePath)
	if urlErr == nil && url != "" {
		return Location{Worksheet: ws, URL: url}, nil
	}
	t.log.Error("file inaccessible",
		zap.Stringer("worksheet_id", ws.ID), zap.String("key", ws.FilePath),
		zap.NamedError("get_error", getErr), zap.NamedError("url_error", urlErr))
	if urlErr == nil {
		urlErr = getErr
	}
	return Location{}, storageErr("resolve blob", urlErr)
}

// incrementCounter: атомарный инкремент, если хранилище умеет, иначе
// прочитали-записали. Ошибки только логируются: файл пользователь уже получит.
func (t *DownloadTracker) incrementCounter(ctx context.Context, ws domain.Worksheet) {
	if c, ok := t.repo.(domain.DownloadCounter); ok {
		if _, err := c.IncrementDownloadCount(ctx, ws.ID); err != nil {
			bookkeepingErrorsTotal.WithLabelValues("counter").Inc()
			t.log.Warn("atomic download counter increment failed", zap.Stringer("worksheet_id", ws.ID), zap.Error(err))
		}
		return
	}

	cur, err := t.repo.WorksheetByID(ctx, ws.ID)
	if err != nil {
		bookkeepingErrorsTotal.WithLabelValues("counter").Inc()
		t.log.Warn("download counter read failed", zap.Stringer("worksheet_id", ws.ID), zap.Error(err))
		return
	}
	if err := t.repo.SetDownloadCount(ctx, ws.ID, cur.DownloadCount+1); err != nil {
		bookkeepingErrorsTotal.WithLabelValues("counter").Inc()
		t.log.Warn("download counter write failed", zap.Stringer("worksheet_id", ws.ID), zap.Error(err))
	}
}
