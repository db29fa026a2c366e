package mw

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type ctxKey string

const reqIDKey ctxKey = "req_id"

const HeaderRequestID = "X-Request-ID"

// WithRequestID берёт X-Request-ID от клиента или генерирует новый.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		ctx := context.WithValue(r.Context(), reqIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(reqIDKey).(string)
	return id
}

// metaWriter запоминает статус и размер ответа для логов и метрик.
type metaWriter struct {
	http.ResponseWriter
	status int
	size   int64
}

func wrapWriter(w http.ResponseWriter) *metaWriter {
	if mw, ok := w.(*metaWriter); ok {
		return mw
	}
	return &metaWriter{ResponseWriter: w}
}

func (w *metaWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *metaWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += int64(n)
	return n, err
}

// Unwrap нужен http.ResponseController (Flush, дедлайны).
func (w *metaWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (w *metaWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}
