package postgres

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/EgorLis/study-share-hub/internal/domain"
)

// UpsertDownload: одна запись на (worksheet, user), повтор обновляет время.
func (r *PGRepo) UpsertDownload(ctx context.Context, worksheetID domain.WorksheetID, userID domain.UserID) error {
	q := r.qb().Insert(r.table("downloads")).
		Columns("worksheet_id", "user_id").
		Values(worksheetID, userID).
		Suffix("ON CONFLICT (worksheet_id, user_id) DO UPDATE SET downloaded_at = now()")
	sqlStr, args, _ := q.ToSql()
	r.logSQL("UpsertDownload", sqlStr, args)

	start := time.Now()
	_, err := r.pool.Exec(ctx, sqlStr, args...)
	r.done("UpsertDownload", start, err,
		zap.Stringer("worksheet_id", worksheetID), zap.Stringer("user_id", userID))
	return err
}
