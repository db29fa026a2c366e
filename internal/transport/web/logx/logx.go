// Package logx: единый формат логов хендлеров: req_id, op, сообщение и пары ключ/значение.
package logx

import "go.uber.org/zap"

func fields(reqID, op string, kv []any) []any {
	out := make([]any, 0, len(kv)+4)
	out = append(out, "req_id", reqID, "op", op)
	return append(out, kv...)
}

func Info(l *zap.Logger, reqID, op, msg string, kv ...any) {
	l.Sugar().Infow(msg, fields(reqID, op, kv)...)
}

func Warn(l *zap.Logger, reqID, op, msg string, kv ...any) {
	l.Sugar().Warnw(msg, fields(reqID, op, kv)...)
}

// Error пишет ошибку отдельным полем, чтобы её можно было фильтровать.
func Error(l *zap.Logger, reqID, op, msg string, err error, kv ...any) {
	kv = append(kv, "error", err)
	l.Sugar().Errorw(msg, fields(reqID, op, kv)...)
}
