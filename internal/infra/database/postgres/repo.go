package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/EgorLis/study-share-hub/internal/domain"
)

// ---- Postgres репозиторий (pgxpool) + golang-migrate ----

// PGRepo реализует WorksheetsRepo, DownloadCounter, DownloadsRepo,
// PermissionsRepo и ProfilesRepo поверх одного пула.
type PGRepo struct {
	logger *zap.Logger
	pool   *pgxpool.Pool
	schema string
}

var (
	_ domain.WorksheetsRepo  = (*PGRepo)(nil)
	_ domain.DownloadCounter = (*PGRepo)(nil)
	_ domain.DownloadsRepo   = (*PGRepo)(nil)
	_ domain.PermissionsRepo = (*PGRepo)(nil)
	_ domain.ProfilesRepo    = (*PGRepo)(nil)
)

func NewPGRepo(ctx context.Context, logger *zap.Logger, dsn, schema string) (*PGRepo, error) {
	// Запускаем golang-migrate используя pgx/stdlib
	if err := runMigrations(dsn, logger); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	logger.Info("initializing pgxpool")
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	logger.Info("pgxpool initialized", zap.Int32("max_conns", cfg.MaxConns))

	if schema == "" {
		schema = "public"
	}
	return &PGRepo{pool: pool, schema: schema, logger: logger}, nil
}

func (r *PGRepo) Close() {
	r.logger.Info("closing pgxpool")
	r.pool.Close()
	r.logger.Info("pgxpool closed")
}

// ---- Миграции через golang-migrate ----

//go:embed migrations/*.sql
var EmbeddedMigrations embed.FS

func runMigrations(dsn string, logger *zap.Logger) error {
	// Отдельный *sql.DB через pgx stdlib, не из pgxpool
	sqldb, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("sql.Open pgx: %w", err)
	}
	defer sqldb.Close()

	driver, err := postgres.WithInstance(sqldb, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("postgres driver: %w", err)
	}

	src, err := iofs.New(EmbeddedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate.New: %w", err)
	}
	defer m.Close()

	logger.Info("applying migrations")
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("no new migrations to apply")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("migrations applied successfully")
	return nil
}

// ---- Общие помощники ----

func (r *PGRepo) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		r.logger.Warn("ping failed", zap.Error(err))
		return err
	}
	return nil
}

func (r *PGRepo) qb() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func (r *PGRepo) table(name string) string {
	return fmt.Sprintf("%s.%s", r.schema, name)
}

func (r *PGRepo) logSQL(op, sqlStr string, args []any) {
	r.logger.Debug("sql", zap.String("op", op), zap.String("query", sqlStr), zap.Int("args", len(args)))
}

// done пишет итог запроса с длительностью.
func (r *PGRepo) done(op string, start time.Time, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("op", op), zap.Duration("took", time.Since(start)))
	switch {
	case err == nil:
		r.logger.Debug("sql ok", fields...)
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, domain.ErrNotFound):
		r.logger.Debug("sql no rows", fields...)
	default:
		r.logger.Error("sql failed", append(fields, zap.Error(err))...)
	}
}

// notFound переводит pgx.ErrNoRows в доменную ошибку.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}
