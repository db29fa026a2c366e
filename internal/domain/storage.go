package domain

import (
	"context"
	"io"
)

type BlobInfo struct {
	Size        int64
	ContentType string
	ETag        string
}

// Хранилище бинарного контента (S3/MinIO). Ключ выбирает вызывающий.
type BlobStorage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Поток для отдачи клиенту
	Get(ctx context.Context, key string) (io.ReadCloser, BlobInfo, error)
	Delete(ctx context.Context, key string) error
	// Запасной путь, если поток открыть не удалось
	PublicURL(ctx context.Context, key string) (string, error)
	Ping(ctx context.Context) error
}
