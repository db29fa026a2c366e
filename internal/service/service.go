// Package service: ядро: права на загрузку, загрузка (blob + строка метаданных),
// учёт скачиваний, удаление и чтение каталога.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/EgorLis/study-share-hub/internal/domain"
)

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worksheets_uploads_total",
		Help: "Загрузки ворксшитов по результату.",
	}, []string{"status"})

	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worksheets_downloads_total",
		Help: "Скачивания по способу отдачи (stream|url) или ошибке.",
	}, []string{"status"})

	deletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worksheets_deletes_total",
		Help: "Удаления ворксшитов по результату.",
	}, []string{"status"})

	partialFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worksheets_partial_failures_total",
		Help: "Рассогласования blob/метаданных, требующие ручной сверки.",
	}, []string{"op"})

	bookkeepingErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worksheets_bookkeeping_errors_total",
		Help: "Ошибки best-effort учёта (счётчик, запись о скачивании, кеш).",
	}, []string{"kind"})
)

// compensationTimeout ограничивает компенсирующие действия, которые
// выполняются даже после отмены контекста запроса.
const compensationTimeout = 10 * time.Second

// storageErr оборачивает ошибку хранилища; ErrNotFound проходит как есть.
func storageErr(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStorageUnavailable, op, err)
}

// noopCache: кеш по умолчанию, если Redis не передан.
type noopCache struct{}

func (noopCache) Get(context.Context, string) ([]byte, error)    { return nil, nil }
func (noopCache) Set(context.Context, string, []byte, int) error { return nil }
func (noopCache) Del(context.Context, ...string) error           { return nil }
func (noopCache) Incr(context.Context, string) (int64, error)    { return 0, nil }
func (noopCache) Ping(context.Context) error                     { return nil }
func (noopCache) Close()                                         {}

func orNoop(c domain.Cache) domain.Cache {
	if c == nil {
		return noopCache{}
	}
	return c
}

func orNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// invalidate сбрасывает кеш метаданных и сдвигает поколение списков.
// Ошибки кеша не критичны: максимум покажем устаревший список до истечения TTL.
func invalidate(ctx context.Context, c domain.Cache, log *zap.Logger, ids ...domain.WorksheetID) {
	if len(ids) > 0 {
		keys := make([]string, 0, len(ids))
		for _, id := range ids {
			keys = append(keys, domain.CacheKeyWorksheet(id))
		}
		if err := c.Del(ctx, keys...); err != nil {
			bookkeepingErrorsTotal.WithLabelValues("cache").Inc()
			log.Warn("cache del failed", zap.Strings("keys", keys), zap.Error(err))
		}
	}
	if _, err := c.Incr(ctx, domain.CacheKeyListGeneration()); err != nil {
		bookkeepingErrorsTotal.WithLabelValues("cache").Inc()
		log.Warn("cache list generation bump failed", zap.Error(err))
	}
}

func listGeneration(ctx context.Context, c domain.Cache) int64 {
	b, err := c.Get(ctx, domain.CacheKeyListGeneration())
	if err != nil || len(b) == 0 {
		return 0
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
