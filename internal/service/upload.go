package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EgorLis/study-share-hub/internal/domain"
)

// UploadPermission: то, что нужно загрузчику от Permissions.
type UploadPermission interface {
	CanUpload(ctx context.Context, userID domain.UserID, email string) bool
}

type UploadRequest struct {
	Uploader    domain.Identity
	Title       string
	Description string
	Subject     domain.SubjectID
	File        io.Reader
	FileName    string
	FileSize    int64
	ContentType string
}

// Uploader загружает как сагу: blob → строка метаданных, при ошибке
// вставки удаляем blob. Общей транзакции у S3 и Postgres нет.
type Uploader struct {
	log   *zap.Logger
	perms UploadPermission
	repo  domain.WorksheetsRepo
	blobs domain.BlobStorage
	cache domain.Cache

	now   func() time.Time
	nonce func() string
	newID func() domain.WorksheetID
}

func NewUploader(log *zap.Logger, perms UploadPermission, repo domain.WorksheetsRepo, blobs domain.BlobStorage, cache domain.Cache) *Uploader {
	return &Uploader{
		log:   orNop(log),
		perms: perms,
		repo:  repo,
		blobs: blobs,
		cache: orNoop(cache),
		now:   time.Now,
		nonce: func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:8] },
		newID: uuid.New,
	}
}

// validate проверяет предусловия строго по порядку.
func (u *Uploader) validate(ctx context.Context, req UploadRequest) error {
	if !u.perms.CanUpload(ctx, req.Uploader.UserID, req.Uploader.Email) {
		return domain.ErrPermissionDenied
	}
	if req.File == nil || req.FileSize <= 0 {
		return domain.ErrMissingFile
	}
	if !domain.ValidTitle(req.Title) {
		return domain.ErrEmptyTitle
	}
	if req.FileSize > domain.MaxUploadBytes {
		return domain.ErrFileTooLarge
	}
	if !domain.ValidSubject(req.Subject) {
		return domain.ErrUnknownSubject
	}
	return nil
}

func (u *Uploader) Upload(ctx context.Context, req UploadRequest) (domain.Worksheet, error) {
	if err := u.validate(ctx, req); err != nil {
		uploadsTotal.WithLabelValues("rejected").Inc()
		return domain.Worksheet{}, err
	}

	now := u.now().UTC()
	key := StorageKey(req.Uploader.UserID, now, u.nonce(), req.FileName)
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// 1) blob
	if err := u.blobs.Put(ctx, key, req.File, req.FileSize, contentType); err != nil {
		uploadsTotal.WithLabelValues("error").Inc()
		u.log.Error("blob put failed", zap.String("key", key), zap.Error(err))
		return domain.Worksheet{}, storageErr("put blob", err)
	}

	// 2) метаданные
	ws, err := u.repo.CreateWorksheet(ctx, domain.Worksheet{
		ID:            u.newID(),
		Title:         strings.TrimSpace(req.Title),
		Description:   strings.TrimSpace(req.Description),
		Subject:       req.Subject,
		Status:        domain.StatusCompleted,
		FilePath:      key,
		FileName:      req.FileName,
		FileSize:      req.FileSize,
		DownloadCount: 0,
		UploaderID:    req.Uploader.UserID,
		CreatedAt:     now,
	})
	if err != nil {
		return domain.Worksheet{}, u.compensate(ctx, key, err)
	}

	invalidate(ctx, u.cache, u.log)
	uploadsTotal.WithLabelValues("ok").Inc()
	u.log.Info("worksheet uploaded",
		zap.Stringer("id", ws.ID), zap.String("key", key),
		zap.Stringer("uploader", ws.UploaderID), zap.Int64("size", ws.FileSize))
	return ws, nil
}

// compensate удаляет только что записанный blob. Запрос мог быть отменён,
// поэтому работаем на отвязанном контексте с таймаутом.
func (u *Uploader) compensate(ctx context.Context, key string, cause error) error {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if delErr := u.blobs.Delete(cctx, key); delErr != nil {
		uploadsTotal.WithLabelValues("partial_failure").Inc()
		partialFailuresTotal.WithLabelValues("upload").Inc()
		pf := &domain.PartialFailureError{
			Op:           "upload",
			StorageKey:   key,
			Cause:        cause,
			Compensation: delErr,
		}
		u.log.Error("orphaned blob: metadata insert and compensating delete both failed",
			zap.String("key", key), zap.NamedError("insert_error", cause), zap.NamedError("delete_error", delErr))
		return pf
	}

	uploadsTotal.WithLabelValues("error").Inc()
	u.log.Warn("metadata insert failed, blob removed", zap.String("key", key), zap.Error(cause))
	return storageErr("insert worksheet", cause)
}

// StorageKey: <user>/<unix millis>-<nonce><.ext>. Расширение берём из имени
// файла, приводим к нижнему регистру и оставляем только [a-z0-9].
func StorageKey(userID domain.UserID, at time.Time, nonce, fileName string) string {
	return fmt.Sprintf("%s/%d-%s%s", userID, at.UnixMilli(), nonce, cleanExt(fileName))
}

func cleanExt(fileName string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(path.Base(strings.ReplaceAll(fileName, "\\", "/"))), "."))
	var sb strings.Builder
	for _, r := range ext {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 || sb.Len() > 16 {
		return ""
	}
	return "." + sb.String()
}
