package postgres

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/EgorLis/study-share-hub/internal/domain"
)

var worksheetCols = []string{
	"id", "title", "description", "subject", "status",
	"file_path", "file_name", "file_size", "download_count",
	"uploader_id", "created_at",
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorksheet(row scanner) (domain.Worksheet, error) {
	var w domain.Worksheet
	err := row.Scan(
		&w.ID, &w.Title, &w.Description, &w.Subject, &w.Status,
		&w.FilePath, &w.FileName, &w.FileSize, &w.DownloadCount,
		&w.UploaderID, &w.CreatedAt,
	)
	return w, err
}

func (r *PGRepo) CreateWorksheet(ctx context.Context, w domain.Worksheet) (domain.Worksheet, error) {
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	q := r.qb().Insert(r.table("worksheets")).
		Columns(worksheetCols...).
		Values(w.ID, w.Title, w.Description, w.Subject, w.Status,
			w.FilePath, w.FileName, w.FileSize, w.DownloadCount,
			w.UploaderID, w.CreatedAt).
		Suffix("RETURNING " + strings.Join(worksheetCols, ", "))

	sqlStr, args, _ := q.ToSql()
	r.logSQL("CreateWorksheet", sqlStr, args)

	start := time.Now()
	out, err := scanWorksheet(r.pool.QueryRow(ctx, sqlStr, args...))
	r.done("CreateWorksheet", start, err, zap.Stringer("id", w.ID))
	if err != nil {
		return domain.Worksheet{}, err
	}
	return out, nil
}

func (r *PGRepo) WorksheetByID(ctx context.Context, id domain.WorksheetID) (domain.Worksheet, error) {
	q := r.qb().Select(worksheetCols...).
		From(r.table("worksheets")).
		Where(sq.Eq{"id": id})

	sqlStr, args, _ := q.ToSql()
	r.logSQL("WorksheetByID", sqlStr, args)

	start := time.Now()
	w, err := scanWorksheet(r.pool.QueryRow(ctx, sqlStr, args...))
	r.done("WorksheetByID", start, err, zap.Stringer("id", id))
	if err != nil {
		return domain.Worksheet{}, notFound(err)
	}
	return w, nil
}

// listQuery строит выборку каталога. Вынесено отдельно, чтобы проверять SQL без БД.
func (r *PGRepo) listQuery(f domain.ListFilter, sort domain.ListSort) sq.SelectBuilder {
	sb := r.qb().Select(worksheetCols...).From(r.table("worksheets"))

	if f.Subject != "" {
		sb = sb.Where(sq.Eq{"subject": f.Subject})
	}
	if f.UploaderID != nil {
		sb = sb.Where(sq.Eq{"uploader_id": *f.UploaderID})
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		sb = sb.Where(sq.ILike{"title": "%" + escapeLike(q) + "%"})
	}

	switch sort {
	case domain.SortOldest:
		sb = sb.OrderBy("created_at ASC", "id ASC")
	case domain.SortMostDownloaded:
		sb = sb.OrderBy("download_count DESC", "created_at DESC", "id ASC")
	default:
		sb = sb.OrderBy("created_at DESC", "id ASC")
	}

	return sb.Limit(uint64(f.EffectiveLimit()))
}

func (r *PGRepo) ListWorksheets(ctx context.Context, f domain.ListFilter, sort domain.ListSort) ([]domain.Worksheet, error) {
	sqlStr, args, _ := r.listQuery(f, sort).ToSql()
	r.logSQL("ListWorksheets", sqlStr, args)

	start := time.Now()
	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		r.done("ListWorksheets", start, err)
		return nil, err
	}
	defer rows.Close()

	res := []domain.Worksheet{}
	for rows.Next() {
		w, err := scanWorksheet(rows)
		if err != nil {
			r.done("ListWorksheets.scan", start, err)
			return nil, err
		}
		res = append(res, w)
	}
	if err := rows.Err(); err != nil {
		r.done("ListWorksheets.rows", start, err)
		return nil, err
	}
	r.done("ListWorksheets", start, nil, zap.Int("count", len(res)))
	return res, nil
}

func (r *PGRepo) DeleteWorksheet(ctx context.Context, id domain.WorksheetID) error {
	q := r.qb().Delete(r.table("worksheets")).Where(sq.Eq{"id": id})
	sqlStr, args, _ := q.ToSql()
	r.logSQL("DeleteWorksheet", sqlStr, args)

	start := time.Now()
	tag, err := r.pool.Exec(ctx, sqlStr, args...)
	if err == nil && tag.RowsAffected() == 0 {
		err = domain.ErrNotFound
	}
	r.done("DeleteWorksheet", start, err, zap.Stringer("id", id))
	return err
}

func (r *PGRepo) SetDownloadCount(ctx context.Context, id domain.WorksheetID, n int64) error {
	q := r.qb().Update(r.table("worksheets")).
		Set("download_count", n).
		Where(sq.Eq{"id": id})
	sqlStr, args, _ := q.ToSql()
	r.logSQL("SetDownloadCount", sqlStr, args)

	start := time.Now()
	tag, err := r.pool.Exec(ctx, sqlStr, args...)
	if err == nil && tag.RowsAffected() == 0 {
		err = domain.ErrNotFound
	}
	r.done("SetDownloadCount", start, err, zap.Stringer("id", id), zap.Int64("count", n))
	return err
}

// IncrementDownloadCount: атомарно на стороне БД.
func (r *PGRepo) IncrementDownloadCount(ctx context.Context, id domain.WorksheetID) (int64, error) {
	q := r.qb().Update(r.table("worksheets")).
		Set("download_count", sq.Expr("download_count + 1")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING download_count")
	sqlStr, args, _ := q.ToSql()
	r.logSQL("IncrementDownloadCount", sqlStr, args)

	start := time.Now()
	var n int64
	err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&n)
	r.done("IncrementDownloadCount", start, err, zap.Stringer("id", id))
	if err != nil {
		return 0, notFound(err)
	}
	return n, nil
}

func (r *PGRepo) UploaderStats(ctx context.Context, uploader domain.UserID) (int64, int64, error) {
	q := r.qb().Select("count(*)", "COALESCE(sum(download_count), 0)").
		From(r.table("worksheets")).
		Where(sq.Eq{"uploader_id": uploader})
	sqlStr, args, _ := q.ToSql()
	r.logSQL("UploaderStats", sqlStr, args)

	start := time.Now()
	var uploads, downloads int64
	err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&uploads, &downloads)
	r.done("UploaderStats", start, err, zap.Stringer("uploader", uploader))
	if err != nil {
		return 0, 0, err
	}
	return uploads, downloads, nil
}

func (r *PGRepo) SubjectCounts(ctx context.Context) (map[domain.SubjectID]int64, error) {
	q := r.qb().Select("subject", "count(*)").
		From(r.table("worksheets")).
		GroupBy("subject")
	sqlStr, args, _ := q.ToSql()
	r.logSQL("SubjectCounts", sqlStr, args)

	start := time.Now()
	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		r.done("SubjectCounts", start, err)
		return nil, err
	}
	defer rows.Close()

	out := map[domain.SubjectID]int64{}
	for rows.Next() {
		var (
			subject string
			n       int64
		)
		if err := rows.Scan(&subject, &n); err != nil {
			r.done("SubjectCounts.scan", start, err)
			return nil, err
		}
		out[domain.SubjectID(subject)] = n
	}
	if err := rows.Err(); err != nil {
		r.done("SubjectCounts.rows", start, err)
		return nil, err
	}
	r.done("SubjectCounts", start, nil, zap.Int("subjects", len(out)))
	return out, nil
}

// escapeLike экранирует спецсимволы LIKE, чтобы поиск был по подстроке.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
