package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/EgorLis/study-share-hub/internal/domain"
)

var permissionCols = []string{"id", "user_id", "email", "can_upload", "granted_by", "created_at", "updated_at"}

func scanPermission(row scanner) (domain.UserPermission, error) {
	var (
		p      domain.UserPermission
		userID *uuid.UUID
	)
	if err := row.Scan(&p.ID, &userID, &p.Email, &p.CanUpload, &p.GrantedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.UserPermission{}, err
	}
	if userID != nil {
		p.UserID = *userID
	}
	return p, nil
}

// nullUUID: uuid.Nil пишем как NULL.
func nullUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

func (r *PGRepo) permissionBy(ctx context.Context, op string, where sq.Sqlizer) (domain.UserPermission, error) {
	q := r.qb().Select(permissionCols...).From(r.table("user_permissions")).Where(where)
	sqlStr, args, _ := q.ToSql()
	r.logSQL(op, sqlStr, args)

	start := time.Now()
	p, err := scanPermission(r.pool.QueryRow(ctx, sqlStr, args...))
	r.done(op, start, err)
	if err != nil {
		return domain.UserPermission{}, notFound(err)
	}
	return p, nil
}

func (r *PGRepo) PermissionByUserID(ctx context.Context, id domain.UserID) (domain.UserPermission, error) {
	return r.permissionBy(ctx, "PermissionByUserID", sq.Eq{"user_id": id})
}

func (r *PGRepo) PermissionByEmail(ctx context.Context, email string) (domain.UserPermission, error) {
	return r.permissionBy(ctx, "PermissionByEmail", sq.Eq{"email": domain.NormalizeEmail(email)})
}

// UpsertPermission: запись ищется по user_id, затем по email. Email-запись
// без user_id при этом привязывается к пользователю.
func (r *PGRepo) UpsertPermission(ctx context.Context, p domain.UserPermission) (domain.UserPermission, error) {
	email := domain.NormalizeEmail(p.Email)
	var grantedBy any
	if p.GrantedBy != nil {
		grantedBy = *p.GrantedBy
	}

	start := time.Now()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.done("UpsertPermission.begin", start, err)
		return domain.UserPermission{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// запись уже привязана к пользователю: обновляем её
	if p.UserID != uuid.Nil {
		q := r.qb().Update(r.table("user_permissions")).
			Set("can_upload", p.CanUpload).
			Set("granted_by", grantedBy).
			Set("updated_at", sq.Expr("now()")).
			Where(sq.Eq{"user_id": p.UserID}).
			Suffix("RETURNING " + strings.Join(permissionCols, ", "))
		sqlStr, args, _ := q.ToSql()
		r.logSQL("UpsertPermission.byUser", sqlStr, args)

		out, err := scanPermission(tx.QueryRow(ctx, sqlStr, args...))
		if err == nil {
			if err := tx.Commit(ctx); err != nil {
				r.done("UpsertPermission.commit", start, err)
				return domain.UserPermission{}, err
			}
			r.done("UpsertPermission", start, nil, zap.Stringer("user_id", p.UserID))
			return out, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			r.done("UpsertPermission.byUser", start, err)
			return domain.UserPermission{}, err
		}
	}

	q := r.qb().Insert(r.table("user_permissions")).
		Columns("user_id", "email", "can_upload", "granted_by").
		Values(nullUUID(p.UserID), email, p.CanUpload, grantedBy).
		Suffix(`ON CONFLICT (email) DO UPDATE SET
			can_upload = EXCLUDED.can_upload,
			granted_by = EXCLUDED.granted_by,
			user_id = COALESCE(user_permissions.user_id, EXCLUDED.user_id),
			updated_at = now()
		RETURNING ` + strings.Join(permissionCols, ", "))
	sqlStr, args, _ := q.ToSql()
	r.logSQL("UpsertPermission.byEmail", sqlStr, args)

	out, err := scanPermission(tx.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		r.done("UpsertPermission.byEmail", start, err)
		return domain.UserPermission{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		r.done("UpsertPermission.commit", start, err)
		return domain.UserPermission{}, err
	}
	r.done("UpsertPermission", start, nil, zap.String("email", email))
	return out, nil
}

func (r *PGRepo) SetCanUpload(ctx context.Context, userID domain.UserID, email string, canUpload bool) (bool, error) {
	match := sq.Or{sq.Eq{"email": domain.NormalizeEmail(email)}}
	if userID != uuid.Nil {
		match = append(match, sq.Eq{"user_id": userID})
	}
	q := r.qb().Update(r.table("user_permissions")).
		Set("can_upload", canUpload).
		Set("updated_at", sq.Expr("now()")).
		Where(match)
	sqlStr, args, _ := q.ToSql()
	r.logSQL("SetCanUpload", sqlStr, args)

	start := time.Now()
	tag, err := r.pool.Exec(ctx, sqlStr, args...)
	r.done("SetCanUpload", start, err)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PGRepo) AttachUserID(ctx context.Context, email string, userID domain.UserID) (bool, error) {
	perms := r.table("user_permissions")
	q := r.qb().Update(perms).
		Set("user_id", userID).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"email": domain.NormalizeEmail(email), "user_id": nil}).
		Where(sq.Expr("NOT EXISTS (SELECT 1 FROM "+perms+" WHERE user_id = ?)", userID))
	sqlStr, args, _ := q.ToSql()
	r.logSQL("AttachUserID", sqlStr, args)

	start := time.Now()
	tag, err := r.pool.Exec(ctx, sqlStr, args...)
	r.done("AttachUserID", start, err, zap.Stringer("user_id", userID))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PGRepo) InsertPermissionIfAbsent(ctx context.Context, p domain.UserPermission) (bool, error) {
	q := r.qb().Insert(r.table("user_permissions")).
		Columns("user_id", "email", "can_upload").
		Values(nullUUID(p.UserID), domain.NormalizeEmail(p.Email), p.CanUpload).
		Suffix("ON CONFLICT DO NOTHING")
	sqlStr, args, _ := q.ToSql()
	r.logSQL("InsertPermissionIfAbsent", sqlStr, args)

	start := time.Now()
	tag, err := r.pool.Exec(ctx, sqlStr, args...)
	r.done("InsertPermissionIfAbsent", start, err)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PGRepo) ListPermissions(ctx context.Context) ([]domain.UserPermission, error) {
	q := r.qb().Select(permissionCols...).
		From(r.table("user_permissions")).
		OrderBy("created_at DESC", "email ASC")
	sqlStr, args, _ := q.ToSql()
	r.logSQL("ListPermissions", sqlStr, args)

	start := time.Now()
	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		r.done("ListPermissions", start, err)
		return nil, err
	}
	defer rows.Close()

	out := []domain.UserPermission{}
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			r.done("ListPermissions.scan", start, err)
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		r.done("ListPermissions.rows", start, err)
		return nil, err
	}
	r.done("ListPermissions", start, nil, zap.Int("count", len(out)))
	return out, nil
}
