package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/EgorLis/study-share-hub/internal/auth/blacklist"
	"github.com/EgorLis/study-share-hub/internal/auth/token"
	"github.com/EgorLis/study-share-hub/internal/config"
	"github.com/EgorLis/study-share-hub/internal/domain"
	redisx "github.com/EgorLis/study-share-hub/internal/infra/cache/redis"
	"github.com/EgorLis/study-share-hub/internal/infra/database/postgres"
	s3storage "github.com/EgorLis/study-share-hub/internal/infra/storage/s3"
	"github.com/EgorLis/study-share-hub/internal/service"
	"github.com/EgorLis/study-share-hub/internal/transport/web"
)

type App struct {
	config *config.Config
	server *web.Server
	log    *zap.Logger
	cache  domain.Cache
	repo   *postgres.PGRepo
}

// newLogger: production JSON по умолчанию, консольный dev-логгер для APP_ENV=development.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func Build(ctx context.Context) (*App, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed load config: %w", err)
	}

	root, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed init logger: %w", err)
	}
	base := root.Named("app")
	base.Info("configuration loaded", zap.Stringer("config", cfg))

	base.Info("init PostgreSQL")
	pgRepo, err := postgres.NewPGRepo(ctx, root.Named("postgres"), cfg.GetDSN(), cfg.DBScheme)
	if err != nil {
		return nil, fmt.Errorf("failed init postgres: %w", err)
	}
	base.Info("PostgreSQL is initialized")

	base.Info("init S3 storage")
	s3, err := s3storage.New(ctx, root.Named("s3"), s3storage.Config{
		Endpoint:      cfg.S3Endpoint,
		Region:        cfg.S3Region,
		Bucket:        cfg.S3Bucket,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		UseSSL:        cfg.S3UseSSL,
		PathStyle:     cfg.S3PathStyle,
		PublicBaseURL: cfg.S3PublicBaseURL,
		PresignTTL:    cfg.S3PresignTTL,
	})
	if err != nil {
		pgRepo.Close()
		return nil, fmt.Errorf("failed init s3: %w", err)
	}
	if err := s3.EnsureBucket(ctx, cfg.S3Region); err != nil {
		pgRepo.Close()
		return nil, fmt.Errorf("failed ensure bucket: %w", err)
	}
	base.Info("S3 storage is initialized")

	base.Info("init Redis")
	rc := redisx.New(redisx.Config{
		Addr:     cfg.RedisAddr,
		DB:       cfg.RedisDB,
		Password: cfg.RedisPassword,
	}, root.Named("redis"))
	if err := rc.Ping(ctx); err != nil {
		pgRepo.Close()
		return nil, fmt.Errorf("failed init redis: %w", err)
	}
	base.Info("Redis is initialized")

	// Auth primitives
	tm, err := newTokenManager(ctx, cfg, root.Named("jwks"))
	if err != nil {
		pgRepo.Close()
		rc.Close()
		return nil, err
	}
	bl := blacklist.NewStore(rc)

	// Services
	perms := service.NewPermissions(root.Named("service.permissions"), pgRepo, pgRepo, cfg.AdminEmail)
	svc := web.Services{
		Permissions: perms,
		Uploader:    service.NewUploader(root.Named("service.upload"), perms, pgRepo, s3, rc),
		Downloads:   service.NewDownloadTracker(root.Named("service.download"), pgRepo, pgRepo, s3, rc),
		Deleter:     service.NewDeleter(root.Named("service.delete"), pgRepo, s3, rc),
		Catalog: service.NewCatalog(root.Named("service.catalog"), pgRepo, pgRepo, rc, service.CatalogConfig{
			ListTTL:          cfg.CacheListTTL,
			DocTTL:           cfg.CacheDocTTL,
			ProfileCacheSize: cfg.ProfileCacheSize,
			ProfileCacheTTL:  cfg.ProfileCacheTTL,
		}),
	}

	if cfg.PermissionsMigrateOnStart {
		base.Info("migrate legacy permissions")
		// ошибка миграции не мешает старту: её можно повторить через админский endpoint
		if _, err := perms.MigrateLegacy(ctx); err != nil {
			base.Error("permission migration failed", zap.Error(err))
		}
	}

	base.Info("init Server")
	server := web.New(root.Named("server"), cfg, svc,
		web.Probes{DB: pgRepo, Cache: rc, Storage: s3},
		web.AuthDeps{Tokens: tm, Blacklist: bl, Log: root.Named("auth")})
	base.Info("Server is initialized")

	base.Info("build ended")
	return &App{
		config: cfg,
		server: server,
		log:    base,
		repo:   pgRepo,
		cache:  rc,
	}, nil
}

// newTokenManager: JWKS, если задан AUTH_JWKS_URL, иначе HS256-секрет.
func newTokenManager(ctx context.Context, cfg *config.Config, log *zap.Logger) (domain.TokenManager, error) {
	if cfg.AuthJWKSURL != "" {
		tm, err := token.NewJWKS(ctx, cfg.AuthJWKSURL, cfg.AuthIssuer, log)
		if err != nil {
			return nil, fmt.Errorf("failed init jwks: %w", err)
		}
		return tm, nil
	}
	return token.New(cfg.AuthJWTSecret, cfg.AuthIssuer), nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("start application...")
	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Run() }()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		if runErr != nil {
			a.log.Error("server failed", zap.Error(runErr))
		}
	}
	a.log.Info("stop application...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.server.Close(stopCtx)
	a.repo.Close()
	a.cache.Close()
	_ = a.log.Sync()

	return runErr
}
