package mw

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logging: middleware: метод, путь, статус, размер, длительность.
// Уровень зависит от статуса: 5xx: error, 4xx: warn.
func Logging(l *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			mw := wrapWriter(w)

			next.ServeHTTP(mw, r)

			status := mw.Status()
			lvl := zapcore.InfoLevel
			switch {
			case status >= 500:
				lvl = zapcore.ErrorLevel
			case status >= 400:
				lvl = zapcore.WarnLevel
			}
			l.Log(lvl, "http request",
				zap.String("req_id", RequestIDFromCtx(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int64("size", mw.size),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
