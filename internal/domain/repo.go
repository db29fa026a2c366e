package domain

import (
	"context"
)

// Сортировка списков
type ListSort string

const (
	SortNewest         ListSort = "newest"
	SortOldest         ListSort = "oldest"
	SortMostDownloaded ListSort = "most_downloaded"
)

// ParseListSort: пустое или неизвестное значение: newest.
func ParseListSort(s string) ListSort {
	switch ListSort(s) {
	case SortOldest, SortMostDownloaded:
		return ListSort(s)
	case "downloads":
		return SortMostDownloaded
	default:
		return SortNewest
	}
}

type ListFilter struct {
	Subject    SubjectID // пусто: все предметы
	UploaderID *UserID   // nil: все авторы
	Query      string    // подстрока в названии, без учёта регистра
	Limit      int       // ограничение количества
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 1000
)

// EffectiveLimit нормализует лимит так же, как это делает репозиторий.
func (f ListFilter) EffectiveLimit() int {
	if f.Limit <= 0 || f.Limit > MaxListLimit {
		return DefaultListLimit
	}
	return f.Limit
}

type WorksheetsRepo interface {
	Close()
	Ping(context.Context) error

	CreateWorksheet(ctx context.Context, w Worksheet) (Worksheet, error)
	WorksheetByID(ctx context.Context, id WorksheetID) (Worksheet, error)
	ListWorksheets(ctx context.Context, f ListFilter, sort ListSort) ([]Worksheet, error)
	DeleteWorksheet(ctx context.Context, id WorksheetID) error
	// Неатомарный путь счётчика: прочитали N, записали N+1
	SetDownloadCount(ctx context.Context, id WorksheetID, n int64) error

	UploaderStats(ctx context.Context, uploader UserID) (uploads, downloads int64, err error)
	SubjectCounts(ctx context.Context) (map[SubjectID]int64, error)
}

// DownloadCounter: атомарный инкремент на стороне хранилища.
// Если репозиторий его реализует, он предпочтительнее read-modify-write.
type DownloadCounter interface {
	IncrementDownloadCount(ctx context.Context, id WorksheetID) (int64, error)
}

type DownloadsRepo interface {
	// Конфликт по (worksheet_id, user_id) обновляет downloaded_at
	UpsertDownload(ctx context.Context, worksheetID WorksheetID, userID UserID) error
}

type PermissionsRepo interface {
	PermissionByUserID(ctx context.Context, id UserID) (UserPermission, error)
	// Переходный путь: поиск по email для записей до миграции
	PermissionByEmail(ctx context.Context, email string) (UserPermission, error)
	// Вставка/обновление. Если UserID задан, запись с тем же email без user_id
	// привязывается к нему.
	UpsertPermission(ctx context.Context, p UserPermission) (UserPermission, error)
	// false, nil: записи нет
	SetCanUpload(ctx context.Context, userID UserID, email string, canUpload bool) (bool, error)
	// Привязать email-запись без user_id к пользователю (миграция)
	AttachUserID(ctx context.Context, email string, userID UserID) (bool, error)
	// Вставка только если нет записи ни по user_id, ни по email
	InsertPermissionIfAbsent(ctx context.Context, p UserPermission) (bool, error)
	ListPermissions(ctx context.Context) ([]UserPermission, error)
}

type ProfilesRepo interface {
	ProfileByID(ctx context.Context, id UserID) (Profile, error)
	ProfileByEmail(ctx context.Context, email string) (Profile, error)
	ListProfiles(ctx context.Context) ([]Profile, error)
}
