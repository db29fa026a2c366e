package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/EgorLis/study-share-hub/internal/domain"
)

type CatalogConfig struct {
	ListTTL          int // секунд, кеш списков в Redis
	DocTTL           int // секунд, кеш метаданных в Redis
	ProfileCacheSize int
	ProfileCacheTTL  time.Duration
}

// Catalog: чтение каталога: списки, карточка, статистика.
// Имена авторов берутся из профилей через LRU на инстанс.
type Catalog struct {
	log      *zap.Logger
	repo     domain.WorksheetsRepo
	profiles domain.ProfilesRepo
	cache    domain.Cache
	names    *expirable.LRU[domain.UserID, string]
	cfg      CatalogConfig
}

func NewCatalog(log *zap.Logger, repo domain.WorksheetsRepo, profiles domain.ProfilesRepo, cache domain.Cache, cfg CatalogConfig) *Catalog {
	if cfg.ProfileCacheSize <= 0 {
		cfg.ProfileCacheSize = 1024
	}
	if cfg.ProfileCacheTTL <= 0 {
		cfg.ProfileCacheTTL = 5 * time.Minute
	}
	return &Catalog{
		log:      orNop(log),
		repo:     repo,
		profiles: profiles,
		cache:    orNoop(cache),
		names:    expirable.NewLRU[domain.UserID, string](cfg.ProfileCacheSize, nil, cfg.ProfileCacheTTL),
		cfg:      cfg,
	}
}

func (c *Catalog) Subjects() []domain.Subject { return domain.Subjects() }

// List: пустой результат не ошибка.
func (c *Catalog) List(ctx context.Context, f domain.ListFilter, sort domain.ListSort) ([]domain.Worksheet, error) {
	if f.Subject != "" && !domain.ValidSubject(f.Subject) {
		return nil, domain.ErrUnknownSubject
	}
	f.Query = strings.TrimSpace(f.Query)
	f.Limit = f.EffectiveLimit()

	key := domain.CacheKeyWorksheetList(listGeneration(ctx, c.cache), listKey(f, sort))
	if b, err := c.cache.Get(ctx, key); err == nil && len(b) > 0 {
		var cached []domain.Worksheet
		if err := json.Unmarshal(b, &cached); err == nil {
			return cached, nil
		}
	} else if err != nil {
		c.log.Warn("cache get list failed", zap.String("key", key), zap.Error(err))
	}

	out, err := c.repo.ListWorksheets(ctx, f, sort)
	if err != nil {
		return nil, storageErr("list worksheets", err)
	}
	if out == nil {
		out = []domain.Worksheet{}
	}
	for i := range out {
		out[i].UploaderName = c.uploaderName(ctx, out[i].UploaderID)
	}

	if buf, err := json.Marshal(out); err == nil {
		if err := c.cache.Set(ctx, key, buf, c.cfg.ListTTL); err != nil {
			c.log.Warn("cache set list failed", zap.String("key", key), zap.Error(err))
		}
	}
	return out, nil
}

func (c *Catalog) Get(ctx context.Context, id domain.WorksheetID) (domain.Worksheet, error) {
	key := domain.CacheKeyWorksheet(id)
	if b, err := c.cache.Get(ctx, key); err == nil && len(b) > 0 {
		var cached domain.Worksheet
		if err := json.Unmarshal(b, &cached); err == nil {
			return cached, nil
		}
	}

	ws, err := c.repo.WorksheetByID(ctx, id)
	if err != nil {
		return domain.Worksheet{}, storageErr("worksheet by id", err)
	}
	ws.UploaderName = c.uploaderName(ctx, ws.UploaderID)

	if buf, err := json.Marshal(ws); err == nil {
		_ = c.cache.Set(ctx, key, buf, c.cfg.DocTTL)
	}
	return ws, nil
}

// Stats: для дашборда: свои загрузки, скачивания своих ворксшитов,
// количество ворксшитов по предметам во всём каталоге.
func (c *Catalog) Stats(ctx context.Context, userID domain.UserID) (domain.UserStats, error) {
	uploads, downloads, err := c.repo.UploaderStats(ctx, userID)
	if err != nil {
		return domain.UserStats{}, storageErr("uploader stats", err)
	}
	counts, err := c.repo.SubjectCounts(ctx)
	if err != nil {
		return domain.UserStats{}, storageErr("subject counts", err)
	}
	if counts == nil {
		counts = map[domain.SubjectID]int64{}
	}
	return domain.UserStats{TotalUploads: uploads, TotalDownloads: downloads, SubjectCounts: counts}, nil
}

// uploaderName: профиль может отсутствовать: тогда показываем пустое имя.
func (c *Catalog) uploaderName(ctx context.Context, id domain.UserID) string {
	if name, ok := c.names.Get(id); ok {
		return name
	}
	if c.profiles == nil {
		return ""
	}
	prof, err := c.profiles.ProfileByID(ctx, id)
	if err != nil {
		c.log.Debug("profile lookup failed", zap.Stringer("user_id", id), zap.Error(err))
		return ""
	}
	name := prof.FullName
	if name == "" {
		name = prof.Email
	}
	c.names.Add(id, name)
	return name
}

// стабильный ключ для кэша списка
func listKey(f domain.ListFilter, sort domain.ListSort) string {
	uploader := ""
	if f.UploaderID != nil {
		uploader = f.UploaderID.String()
	}
	raw := fmt.Sprintf("subject=%s&uploader=%s&q=%s&sort=%s&limit=%d",
		f.Subject, uploader, strings.ToLower(f.Query), sort, f.Limit)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
