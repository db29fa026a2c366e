package domain

import (
	"context"
	"strconv"
)

// Ключи кеша.
func CacheKeyWorksheet(id WorksheetID) string            { return "ws:" + id.String() }
func CacheKeyWorksheetList(gen int64, key string) string { return "wslist:" + strconv.FormatInt(gen, 10) + ":" + key } // key = хэш фильтров/сортировки
func CacheKeyListGeneration() string                     { return "wslist:gen" }
func CacheKeyTokenJTI(jti string) string                 { return "jti:" + jti }

// Простой k/v интерфейс. Реализация: Redis. Промах: (nil, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttlSeconds int) error
	Del(ctx context.Context, keys ...string) error
	// Для инкрементируемых версий списков (выборочная инвалидация)
	Incr(ctx context.Context, key string) (int64, error)
	Ping(context.Context) error
	Close()
}
