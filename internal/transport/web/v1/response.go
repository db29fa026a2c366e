package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/EgorLis/study-share-hub/internal/domain"
	"github.com/EgorLis/study-share-hub/internal/transport/web/mw"
)

// Тексты для конкретных причин отказа; остальное: общий текст по классу ошибки.
var reasons = []struct {
	err  error
	text string
}{
	{domain.ErrPermissionDenied, "you do not have permission to upload worksheets"},
	{domain.ErrNotOwner, "only the uploader can delete this worksheet"},
	{domain.ErrMissingFile, "file is required"},
	{domain.ErrEmptyTitle, "title is required"},
	{domain.ErrFileTooLarge, "file size must be less than 50MB"},
	{domain.ErrUnknownSubject, "unknown subject"},
	{domain.ErrInvalidEmail, "invalid email address"},
}

// MapDomainError решает HTTP-статус + error.code/text для конверта.
// Детали сбоев хранилища в ответ не попадают, они в логах.
func MapDomainError(err error) (httpStatus int, env domain.APIEnvelope) {
	text := ""
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			text = r.text
			break
		}
	}
	or := func(def string) string {
		if text != "" {
			return text
		}
		return def
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, domain.Fail(domain.ErrCodeBadParams, or("bad params"))
	case errors.Is(err, domain.ErrUnauth):
		return http.StatusUnauthorized, domain.Fail(domain.ErrCodeUnauth, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, domain.Fail(domain.ErrCodeForbidden, or("forbidden"))
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, domain.Fail(domain.ErrCodeNotFound, "not found")
	// partial failure раньше storage: причина внутри часто storage_unavailable
	case errors.Is(err, domain.ErrPartialFailure):
		return http.StatusInternalServerError, domain.Fail(domain.ErrCodePartialFailure, "operation did not complete, please try again later")
	case errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, domain.Fail(domain.ErrCodeStorageUnavailable, "storage is temporarily unavailable, please try again")
	default:
		return http.StatusInternalServerError, domain.Fail(domain.ErrCodeUnexpected, "unexpected")
	}
}

// WriteEnvelope пишет конверт; для HEAD: без тела
func WriteEnvelope(w http.ResponseWriter, r *http.Request, status int, env domain.APIEnvelope) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(mw.HeaderRequestID, mw.RequestIDFromCtx(r.Context()))
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	_ = json.NewEncoder(w).Encode(env)
}

// Шорткаты успеха
func WriteOKData(w http.ResponseWriter, r *http.Request, data any) {
	WriteEnvelope(w, r, http.StatusOK, domain.OkData(data))
}
func WriteCreated(w http.ResponseWriter, r *http.Request, data any) {
	WriteEnvelope(w, r, http.StatusCreated, domain.OkData(data))
}

// Шорткаты ошибок
func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, env := MapDomainError(err)
	WriteEnvelope(w, r, status, env)
}

// NotFound и MethodNotAllowed: для chi, чтобы и эти ответы шли в конверте.
func NotFound(w http.ResponseWriter, r *http.Request) {
	WriteDomainError(w, r, domain.ErrNotFound)
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteEnvelope(w, r, http.StatusMethodNotAllowed, domain.Fail(domain.ErrCodeMethodNotAllowed, "method not allowed"))
}

// DecodeJSON читает тело запроса; неизвестные поля и мусор: ErrValidation.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Join(domain.ErrValidation, err)
	}
	return nil
}
