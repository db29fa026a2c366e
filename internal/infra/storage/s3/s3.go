package s3

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/EgorLis/study-share-hub/internal/domain"
)

type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	PathStyle bool

	// Если бакет публичный: ссылки строятся от этого адреса,
	// иначе выдаём presigned URL на PresignTTL.
	PublicBaseURL string
	PresignTTL    time.Duration
}

type Storage struct {
	cl         *minio.Client
	log        *zap.Logger
	bucket     string
	publicBase string
	presignTTL time.Duration
}

var _ domain.BlobStorage = (*Storage)(nil)

func New(ctx context.Context, log *zap.Logger, cfg Config) (*Storage, error) {
	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	if cfg.PathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}
	cl, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, err
	}
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Storage{
		cl:         cl,
		log:        log,
		bucket:     cfg.Bucket,
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
		presignTTL: ttl,
	}, nil
}

// EnsureBucket создаёт бакет, если его нет (удобно для локального MinIO).
func (s *Storage) EnsureBucket(ctx context.Context, region string) error {
	exists, err := s.cl.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("bucket exists: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.cl.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("make bucket: %w", err)
	}
	s.log.Info("bucket created", zap.String("bucket", s.bucket))
	return nil
}

// Put пишет объект под заданным ключом. size < 0: длина неизвестна.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	start := time.Now()
	info, err := s.cl.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		s.log.Error("put object failed", zap.String("key", key), zap.Duration("took", time.Since(start)), zap.Error(err))
		return err
	}
	s.log.Debug("put object ok", zap.String("key", key), zap.Int64("size", info.Size), zap.Duration("took", time.Since(start)))
	return nil
}

// Get открывает поток. Метаданные берём HEAD-запросом, чтобы отсутствующий
// объект выяснился до того, как начнём отдавать тело.
func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, domain.BlobInfo, error) {
	st, err := s.cl.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, domain.BlobInfo{}, mapErr(err)
	}
	obj, err := s.cl.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, domain.BlobInfo{}, mapErr(err)
	}
	return obj, domain.BlobInfo{Size: st.Size, ContentType: st.ContentType, ETag: st.ETag}, nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := s.cl.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		s.log.Error("remove object failed", zap.String("key", key), zap.Error(err))
		return mapErr(err)
	}
	return nil
}

func (s *Storage) PublicURL(ctx context.Context, key string) (string, error) {
	if s.publicBase != "" {
		return joinPublicURL(s.publicBase, s.bucket, key), nil
	}
	u, err := s.cl.PresignedGetObject(ctx, s.bucket, key, s.presignTTL, url.Values{})
	if err != nil {
		return "", mapErr(err)
	}
	return u.String(), nil
}

func (s *Storage) Ping(ctx context.Context) error {
	ok, err := s.cl.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %q does not exist", s.bucket)
	}
	return nil
}

// joinPublicURL: <base>/<bucket>/<key> с экранированием сегментов ключа.
func joinPublicURL(base, bucket, key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(bucket) + "/" + strings.Join(parts, "/")
}

// mapErr: отсутствующий объект: domain.ErrNotFound, остальное как есть.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	return err
}
