package postgres

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/EgorLis/study-share-hub/internal/domain"
)

// Профили только читаем: их ведёт identity provider.

func (r *PGRepo) profileBy(ctx context.Context, op string, where sq.Sqlizer) (domain.Profile, error) {
	q := r.qb().Select("user_id", "full_name", "email").
		From(r.table("profiles")).
		Where(where).
		Limit(1)
	sqlStr, args, _ := q.ToSql()
	r.logSQL(op, sqlStr, args)

	start := time.Now()
	var p domain.Profile
	err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&p.UserID, &p.FullName, &p.Email)
	r.done(op, start, err)
	if err != nil {
		return domain.Profile{}, notFound(err)
	}
	return p, nil
}

func (r *PGRepo) ProfileByID(ctx context.Context, id domain.UserID) (domain.Profile, error) {
	return r.profileBy(ctx, "ProfileByID", sq.Eq{"user_id": id})
}

func (r *PGRepo) ProfileByEmail(ctx context.Context, email string) (domain.Profile, error) {
	return r.profileBy(ctx, "ProfileByEmail", sq.Expr("lower(email) = ?", domain.NormalizeEmail(email)))
}

func (r *PGRepo) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	q := r.qb().Select("user_id", "full_name", "email").
		From(r.table("profiles")).
		OrderBy("created_at ASC")
	sqlStr, args, _ := q.ToSql()
	r.logSQL("ListProfiles", sqlStr, args)

	start := time.Now()
	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		r.done("ListProfiles", start, err)
		return nil, err
	}
	defer rows.Close()

	var out []domain.Profile
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.UserID, &p.FullName, &p.Email); err != nil {
			r.done("ListProfiles.scan", start, err)
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		r.done("ListProfiles.rows", start, err)
		return nil, err
	}
	r.done("ListProfiles", start, nil, zap.Int("count", len(out)))
	return out, nil
}
