package domain

import (
	"errors"
	"fmt"
)

// Бизнес-ошибки (маппятся на HTTP коды в transport/web/v1)
var (
	ErrValidation         = errors.New("validation")          // 400
	ErrUnauth             = errors.New("unauthorized")        // 401
	ErrForbidden          = errors.New("permission_denied")   // 403
	ErrNotFound           = errors.New("not_found")           // 404
	ErrStorageUnavailable = errors.New("storage_unavailable") // 503
	ErrPartialFailure     = errors.New("partial_failure")     // 500, нужна ручная сверка
	ErrUnexpected         = errors.New("unexpected")          // 500
)

// Конкретные причины отказа. Порядок проверок при загрузке совпадает
// с порядком объявления.
var (
	ErrPermissionDenied = fmt.Errorf("%w: upload not allowed", ErrForbidden)
	ErrMissingFile      = fmt.Errorf("%w: missing file", ErrValidation)
	ErrEmptyTitle       = fmt.Errorf("%w: empty title", ErrValidation)
	ErrFileTooLarge     = fmt.Errorf("%w: file exceeds %d bytes", ErrValidation, MaxUploadBytes)
	ErrUnknownSubject   = fmt.Errorf("%w: unknown subject", ErrValidation)
	ErrInvalidEmail     = fmt.Errorf("%w: invalid email", ErrValidation)
	ErrNotOwner         = fmt.Errorf("%w: not the uploader", ErrForbidden)
)

// PartialFailureError: компенсирующее действие не выполнилось,
// система в известном рассогласованном состоянии.
type PartialFailureError struct {
	Op           string // upload | delete
	WorksheetID  WorksheetID
	StorageKey   string
	Cause        error // ошибка основного шага
	Compensation error // ошибка компенсации (может быть nil, если компенсации не было)
}

func (e *PartialFailureError) Error() string {
	msg := fmt.Sprintf("partial failure: op=%s key=%q", e.Op, e.StorageKey)
	if e.WorksheetID != (WorksheetID{}) {
		msg += fmt.Sprintf(" worksheet=%s", e.WorksheetID)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(" cause=%v", e.Cause)
	}
	if e.Compensation != nil {
		msg += fmt.Sprintf(" compensation=%v", e.Compensation)
	}
	return msg
}

func (e *PartialFailureError) Unwrap() []error {
	out := []error{ErrPartialFailure}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	if e.Compensation != nil {
		out = append(out, e.Compensation)
	}
	return out
}
