package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Базовые идентификаторы
type UserID = uuid.UUID
type WorksheetID = uuid.UUID

// Identity: то, что отдаёт внешний identity provider после аутентификации.
type Identity struct {
	UserID      UserID `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// NormalizeEmail приводит email к виду, в котором он хранится и сравнивается.
func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

type Status string

const (
	StatusCompleted Status = "completed"
	StatusUnsolved  Status = "unsolved"
)

// Метаданные ворксшита (без тела файла)
type Worksheet struct {
	ID            WorksheetID `json:"id"`
	Title         string      `json:"title"`
	Description   string      `json:"description,omitempty"`
	Subject       SubjectID   `json:"subject"`
	Status        Status      `json:"status"`
	FilePath      string      `json:"file_path"` // ключ в blob-хранилище
	FileName      string      `json:"file_name"`
	FileSize      int64       `json:"file_size"`
	DownloadCount int64       `json:"download_count"`
	UploaderID    UserID      `json:"uploader_id"`
	CreatedAt     time.Time   `json:"created_at"`

	// Заполняется каталогом из профилей, в БД не хранится
	UploaderName string `json:"uploaded_by,omitempty"`
}

// Право на загрузку. UserID == uuid.Nil только у переходных записей,
// заведённых по email до регистрации пользователя.
type UserPermission struct {
	ID        uuid.UUID `json:"id"`
	UserID    UserID    `json:"user_id"`
	Email     string    `json:"email"`
	CanUpload bool      `json:"can_upload"`
	GrantedBy *UserID   `json:"granted_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Факт скачивания: не больше одной записи на пару (worksheet, user)
type Download struct {
	WorksheetID  WorksheetID `json:"worksheet_id"`
	UserID       UserID      `json:"user_id"`
	DownloadedAt time.Time   `json:"downloaded_at"`
}

// Профиль пользователя: только чтение, владелец: сервис профилей IdP
type Profile struct {
	UserID   UserID `json:"user_id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// Статистика для дашборда пользователя
type UserStats struct {
	TotalUploads   int64               `json:"total_uploads"`
	TotalDownloads int64               `json:"total_downloads"` // сумма download_count по своим ворксшитам
	SubjectCounts  map[SubjectID]int64 `json:"subject_counts"`  // по всему каталогу
}

// Решение о правах для текущего пользователя
type PermissionView struct {
	CanUpload bool `json:"can_upload"`
	IsAdmin   bool `json:"is_admin"`
}
