package v1

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/EgorLis/study-share-hub/internal/domain"
)

func TestMapDomainError(t *testing.T) {
	storageDown := fmt.Errorf("%w: put blob: %w", domain.ErrStorageUnavailable, errors.New("dial tcp 10.0.0.1:9000"))
	partial := &domain.PartialFailureError{Op: "upload", StorageKey: "u/1-abc.pdf", Cause: storageDown, Compensation: errors.New("timeout")}

	tests := []struct {
		name     string
		err      error
		status   int
		code     int
		wantText string
	}{
		{"permission denied", domain.ErrPermissionDenied, http.StatusForbidden, domain.ErrCodeForbidden, "you do not have permission to upload worksheets"},
		{"plain forbidden", domain.ErrForbidden, http.StatusForbidden, domain.ErrCodeForbidden, "forbidden"},
		{"missing file", domain.ErrMissingFile, http.StatusBadRequest, domain.ErrCodeBadParams, "file is required"},
		{"empty title", fmt.Errorf("upload: %w", domain.ErrEmptyTitle), http.StatusBadRequest, domain.ErrCodeBadParams, "title is required"},
		{"too large", domain.ErrFileTooLarge, http.StatusBadRequest, domain.ErrCodeBadParams, "file size must be less than 50MB"},
		{"invalid email", fmt.Errorf("%w: %q", domain.ErrInvalidEmail, "x"), http.StatusBadRequest, domain.ErrCodeBadParams, "invalid email address"},
		{"generic validation", domain.ErrValidation, http.StatusBadRequest, domain.ErrCodeBadParams, "bad params"},
		{"unauth", domain.ErrUnauth, http.StatusUnauthorized, domain.ErrCodeUnauth, "unauthorized"},
		{"not found", domain.ErrNotFound, http.StatusNotFound, domain.ErrCodeNotFound, "not found"},
		{"storage", storageDown, http.StatusServiceUnavailable, domain.ErrCodeStorageUnavailable, "storage is temporarily unavailable, please try again"},
		{"partial wins over storage", partial, http.StatusInternalServerError, domain.ErrCodePartialFailure, "operation did not complete, please try again later"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, domain.ErrCodeUnexpected, "unexpected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := MapDomainError(tt.err)
			if status != tt.status || env.Error == nil || env.Error.Code != tt.code || env.Error.Text != tt.wantText {
				t.Fatalf("got %d %+v, want %d %d %q", status, env.Error, tt.status, tt.code, tt.wantText)
			}
		})
	}
}
