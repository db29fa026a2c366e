package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EgorLis/study-share-hub/internal/domain"
)

// Permissions решает, может ли пользователь загружать ворксшиты.
// Право администратора не хранится: оно выводится из ADMIN_EMAIL.
type Permissions struct {
	log        *zap.Logger
	perms      domain.PermissionsRepo
	profiles   domain.ProfilesRepo
	adminEmail string
}

func NewPermissions(log *zap.Logger, perms domain.PermissionsRepo, profiles domain.ProfilesRepo, adminEmail string) *Permissions {
	return &Permissions{
		log:        orNop(log),
		perms:      perms,
		profiles:   profiles,
		adminEmail: domain.NormalizeEmail(adminEmail),
	}
}

func (p *Permissions) IsAdmin(email string) bool {
	return p.adminEmail != "" && domain.NormalizeEmail(email) == p.adminEmail
}

// CanUpload: default-deny: нет записи или ошибка хранилища значит «нельзя».
func (p *Permissions) CanUpload(ctx context.Context, userID domain.UserID, email string) bool {
	if p.IsAdmin(email) {
		return true
	}
	rec, err := p.lookup(ctx, userID, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			p.log.Warn("permission lookup failed, denying",
				zap.Stringer("user_id", userID), zap.Error(err))
		}
		return false
	}
	return rec.CanUpload
}

func (p *Permissions) lookup(ctx context.Context, userID domain.UserID, email string) (domain.UserPermission, error) {
	if userID != uuid.Nil {
		rec, err := p.perms.PermissionByUserID(ctx, userID)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.UserPermission{}, err
		}
	}

	// Переходный путь для записей, заведённых по email до миграции.
	// Убрать, когда у всех записей будет user_id.
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.UserPermission{}, domain.ErrNotFound
	}
	rec, err := p.perms.PermissionByEmail(ctx, email)
	if err != nil {
		return domain.UserPermission{}, err
	}
	if rec.UserID != uuid.Nil && rec.UserID != userID {
		// запись уже принадлежит другому пользователю
		return domain.UserPermission{}, domain.ErrNotFound
	}
	return rec, nil
}

// Describe: права текущего пользователя для UI.
func (p *Permissions) Describe(ctx context.Context, id domain.Identity) domain.PermissionView {
	return domain.PermissionView{
		CanUpload: p.CanUpload(ctx, id.UserID, id.Email),
		IsAdmin:   p.IsAdmin(id.Email),
	}
}

// GrantUpload выдаёт право на загрузку. Повторная выдача: успешный no-op.
func (p *Permissions) GrantUpload(ctx context.Context, actor domain.Identity, targetEmail string) (domain.UserPermission, error) {
	email, err := p.checkAdminAndTarget(actor, targetEmail)
	if err != nil {
		return domain.UserPermission{}, err
	}
	if p.IsAdmin(email) {
		p.log.Info("grant to admin ignored, capability is implicit", zap.String("email", email))
		return domain.UserPermission{Email: email, CanUpload: true}, nil
	}

	granter := actor.UserID
	rec := domain.UserPermission{Email: email, CanUpload: true, GrantedBy: &granter}
	userID, err := p.resolveUserID(ctx, email)
	if err != nil {
		return domain.UserPermission{}, err
	}
	rec.UserID = userID

	out, err := p.perms.UpsertPermission(ctx, rec)
	if err != nil {
		return domain.UserPermission{}, storageErr("upsert permission", err)
	}
	p.log.Info("upload granted",
		zap.String("email", email), zap.Stringer("user_id", out.UserID), zap.Stringer("granted_by", granter))
	return out, nil
}

// RevokeUpload снимает право. Нет записи: снимать нечего, это успех.
func (p *Permissions) RevokeUpload(ctx context.Context, actor domain.Identity, targetEmail string) error {
	email, err := p.checkAdminAndTarget(actor, targetEmail)
	if err != nil {
		return err
	}
	if p.IsAdmin(email) {
		p.log.Info("revoke for admin ignored", zap.String("email", email))
		return nil
	}

	userID, err := p.resolveUserID(ctx, email)
	if err != nil {
		return err
	}
	found, err := p.perms.SetCanUpload(ctx, userID, email, false)
	if err != nil {
		return storageErr("revoke permission", err)
	}
	if !found {
		p.log.Info("revoke: no permission record, nothing to do", zap.String("email", email))
		return nil
	}
	p.log.Info("upload revoked", zap.String("email", email), zap.Stringer("user_id", userID))
	return nil
}

// ListPermissions: все записи, новые сверху. Только для администратора.
func (p *Permissions) ListPermissions(ctx context.Context, actor domain.Identity) ([]domain.UserPermission, error) {
	if !p.IsAdmin(actor.Email) {
		return nil, domain.ErrForbidden
	}
	out, err := p.perms.ListPermissions(ctx)
	if err != nil {
		return nil, storageErr("list permissions", err)
	}
	return out, nil
}

type MigrationReport struct {
	Attached int `json:"attached"` // email-записи, получившие user_id
	Created  int `json:"created"`  // новые записи «только скачивание»
	Skipped  int `json:"skipped"`
}

// MigrateLegacy доводит user_permissions до ключа по user_id:
// привязывает email-записи к профилям и заводит запись can_upload=false
// для пользователей без записи. Повторный запуск ничего не меняет.
func (p *Permissions) MigrateLegacy(ctx context.Context) (MigrationReport, error) {
	var rep MigrationReport
	profiles, err := p.profiles.ListProfiles(ctx)
	if err != nil {
		return rep, storageErr("list profiles", err)
	}

	for _, prof := range profiles {
		email := domain.NormalizeEmail(prof.Email)
		if email == "" || prof.UserID == uuid.Nil || p.IsAdmin(email) {
			rep.Skipped++
			continue
		}

		_, err := p.perms.PermissionByUserID(ctx, prof.UserID)
		if err == nil {
			rep.Skipped++
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return rep, storageErr("permission by user", err)
		}

		attached, err := p.perms.AttachUserID(ctx, email, prof.UserID)
		if err != nil {
			return rep, storageErr("attach user id", err)
		}
		if attached {
			rep.Attached++
			continue
		}

		created, err := p.perms.InsertPermissionIfAbsent(ctx, domain.UserPermission{
			UserID:    prof.UserID,
			Email:     email,
			CanUpload: false,
		})
		if err != nil {
			return rep, storageErr("insert permission", err)
		}
		if created {
			rep.Created++
		} else {
			rep.Skipped++
		}
	}

	p.log.Info("permission migration done",
		zap.Int("profiles", len(profiles)),
		zap.Int("attached", rep.Attached),
		zap.Int("created", rep.Created),
		zap.Int("skipped", rep.Skipped))
	return rep, nil
}

func (p *Permissions) checkAdminAndTarget(actor domain.Identity, targetEmail string) (string, error) {
	if !p.IsAdmin(actor.Email) {
		return "", domain.ErrForbidden
	}
	email := domain.NormalizeEmail(targetEmail)
	if !domain.ValidEmail(email) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidEmail, targetEmail)
	}
	return email, nil
}

// resolveUserID: профиля ещё нет: uuid.Nil, запись будет по email.
func (p *Permissions) resolveUserID(ctx context.Context, email string) (domain.UserID, error) {
	prof, err := p.profiles.ProfileByEmail(ctx, email)
	if err == nil {
		return prof.UserID, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return uuid.Nil, nil
	}
	return uuid.Nil, storageErr("profile by email", err)
}
