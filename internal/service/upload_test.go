package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/EgorLis/study-share-hub/internal/domain"
)

type denyAll struct{}

func (denyAll) CanUpload(context.Context, domain.UserID, string) bool { return false }

func newTestUploader(perms UploadPermission) (*Uploader, *memWorksheets, *memBlobs, *memCache) {
	repo := newMemWorksheets()
	blobs := newMemBlobs()
	cache := newMemCache()
	u := NewUploader(nil, perms, repo, blobs, cache)
	u.now = func() time.Time { return time.UnixMilli(1700000000123) }
	u.nonce = func() string { return "deadbeef" }
	return u, repo, blobs, cache
}

func uploadReq(body string) UploadRequest {
	return UploadRequest{
		Uploader:    identity("teacher@example.com"),
		Title:       "  Week 3: search  ",
		Description: "A* and friends",
		Subject:     "principles_of_ai",
		File:        strings.NewReader(body),
		FileName:    "Week3.PDF",
		FileSize:    int64(len(body)),
		ContentType: "application/pdf",
	}
}

func TestUploadRoundTrip(t *testing.T) {
	u, repo, blobs, _ := newTestUploader(allowAll{})
	req := uploadReq("%PDF-1.7 body")

	ws, err := u.Upload(context.Background(), req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	wantKey := req.Uploader.UserID.String() + "/1700000000123-deadbeef.pdf"
	if ws.FilePath != wantKey {
		t.Fatalf("file path = %q, want %q", ws.FilePath, wantKey)
	}
	if ws.Title != "Week 3: search" {
		t.Fatalf("title not trimmed: %q", ws.Title)
	}
	if ws.Status != domain.StatusCompleted || ws.DownloadCount != 0 || ws.UploaderID != req.Uploader.UserID {
		t.Fatalf("unexpected worksheet: %+v", ws)
	}

	stored, err := repo.WorksheetByID(context.Background(), ws.ID)
	if err != nil || stored.FilePath != wantKey {
		t.Fatalf("row not stored: %+v, %v", stored, err)
	}

	rc, _, err := blobs.Get(context.Background(), stored.FilePath)
	if err != nil {
		t.Fatalf("blob get: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "%PDF-1.7 body" {
		t.Fatalf("blob body = %q", got)
	}
}

func TestUploadCompensatesOnInsertFailure(t *testing.T) {
	u, repo, blobs, _ := newTestUploader(allowAll{})
	repo.createErr = errInjected

	_, err := u.Upload(context.Background(), uploadReq("data"))
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("err = %v, want ErrStorageUnavailable", err)
	}
	if errors.Is(err, domain.ErrPartialFailure) {
		t.Fatalf("compensation succeeded, must not be a partial failure: %v", err)
	}
	if blobs.len() != 0 {
		t.Fatalf("orphaned blob left behind, %d objects", blobs.len())
	}
	if len(blobs.deletes) != 1 {
		t.Fatalf("expected one compensating delete, got %v", blobs.deletes)
	}
}

func TestUploadCompensationRunsOnCancelledContext(t *testing.T) {
	u, repo, blobs, _ := newTestUploader(allowAll{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// клиент ушёл посреди загрузки, строка не вставилась
	repo.createErr = errInjected
	u.repo = cancelOnCreate{memWorksheets: repo, cancel: cancel}
	u.blobs = ctxBlobs{blobs}

	_, err := u.Upload(ctx, uploadReq("data"))
	if errors.Is(err, domain.ErrPartialFailure) {
		t.Fatalf("compensation must not inherit cancellation: %v", err)
	}
	if blobs.len() != 0 {
		t.Fatalf("blob must be removed even after cancellation")
	}
}

// cancelOnCreate отменяет контекст запроса посреди саги.
type cancelOnCreate struct {
	*memWorksheets
	cancel context.CancelFunc
}

func (c cancelOnCreate) CreateWorksheet(ctx context.Context, w domain.Worksheet) (domain.Worksheet, error) {
	c.cancel()
	return c.memWorksheets.CreateWorksheet(ctx, w)
}

// ctxBlobs отказывает в удалении на отменённом контексте, как настоящий клиент S3.
type ctxBlobs struct{ *memBlobs }

func (b ctxBlobs) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.memBlobs.Delete(ctx, key)
}

func TestUploadPartialFailureWhenCompensationFails(t *testing.T) {
	u, repo, blobs, _ := newTestUploader(allowAll{})
	repo.createErr = errInjected
	blobs.deleteErr = errors.New("s3 down")

	_, err := u.Upload(context.Background(), uploadReq("data"))
	if !errors.Is(err, domain.ErrPartialFailure) {
		t.Fatalf("err = %v, want ErrPartialFailure", err)
	}
	var pf *domain.PartialFailureError
	if !errors.As(err, &pf) {
		t.Fatalf("err is not *PartialFailureError: %T", err)
	}
	if pf.Op != "upload" || pf.StorageKey == "" || !errors.Is(pf.Cause, errInjected) || pf.Compensation == nil {
		t.Fatalf("unexpected partial failure: %+v", pf)
	}
	if !blobs.has(pf.StorageKey) {
		t.Fatalf("orphan key %q should still be present", pf.StorageKey)
	}
}

func TestUploadPutFailureWritesNoRow(t *testing.T) {
	u, repo, blobs, _ := newTestUploader(allowAll{})
	blobs.putErr = errInjected

	_, err := u.Upload(context.Background(), uploadReq("data"))
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("err = %v, want ErrStorageUnavailable", err)
	}
	if len(repo.rows) != 0 {
		t.Fatalf("no row may exist when blob put failed")
	}
}

func TestUploadPreconditionOrder(t *testing.T) {
	huge := domain.MaxUploadBytes + 1
	cases := []struct {
		name  string
		perms UploadPermission
		mut   func(r *UploadRequest)
		want  error
	}{
		{
			name:  "permission before everything",
			perms: denyAll{},
			mut:   func(r *UploadRequest) { r.File = nil; r.Title = ""; r.Subject = "astrology" },
			want:  domain.ErrPermissionDenied,
		},
		{
			name:  "missing file before title",
			perms: allowAll{},
			mut:   func(r *UploadRequest) { r.File = nil; r.Title = " " },
			want:  domain.ErrMissingFile,
		},
		{
			name:  "zero size is missing file",
			perms: allowAll{},
			mut:   func(r *UploadRequest) { r.FileSize = 0 },
			want:  domain.ErrMissingFile,
		},
		{
			name:  "title before size",
			perms: allowAll{},
			mut:   func(r *UploadRequest) { r.Title = ""; r.FileSize = huge },
			want:  domain.ErrEmptyTitle,
		},
		{
			name:  "size before subject",
			perms: allowAll{},
			mut:   func(r *UploadRequest) { r.FileSize = huge; r.Subject = "astrology" },
			want:  domain.ErrFileTooLarge,
		},
		{
			name:  "unknown subject",
			perms: allowAll{},
			mut:   func(r *UploadRequest) { r.Subject = "astrology" },
			want:  domain.ErrUnknownSubject,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u, repo, blobs, _ := newTestUploader(tc.perms)
			req := uploadReq("data")
			tc.mut(&req)

			_, err := u.Upload(context.Background(), req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if blobs.len() != 0 || len(repo.rows) != 0 {
				t.Fatalf("rejected upload touched storage")
			}
		})
	}
}

func TestUploadExactlyAtLimitAccepted(t *testing.T) {
	u, _, _, _ := newTestUploader(allowAll{})
	req := uploadReq("data")
	req.FileSize = domain.MaxUploadBytes
	if _, err := u.Upload(context.Background(), req); err != nil {
		t.Fatalf("file of exactly the limit must be accepted: %v", err)
	}
}

func TestUploadBumpsListGeneration(t *testing.T) {
	u, _, _, cache := newTestUploader(allowAll{})
	before := listGeneration(context.Background(), cache)
	if _, err := u.Upload(context.Background(), uploadReq("data")); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if after := listGeneration(context.Background(), cache); after != before+1 {
		t.Fatalf("generation = %d, want %d", after, before+1)
	}
}

func TestStorageKey(t *testing.T) {
	user := uuid.MustParse("6f1c2a3b-0000-4000-8000-000000000001")
	at := time.UnixMilli(1712345678901)
	prefix := user.String() + "/1712345678901-abcd1234"

	cases := map[string]string{
		"notes.pdf":              ".pdf",
		"Notes.DOCX":             ".docx",
		"archive.tar.gz":         ".gz",
		"no_extension":           "",
		"weird.p-d_f":            ".pdf",
		"dir\\sub\\file.TXT":     ".txt",
		"trailing.":              "",
		"long.abcdefghijklmnopq": "",
		"symbols.%%%":            "",
	}
	for name, ext := range cases {
		if got := StorageKey(user, at, "abcd1234", name); got != prefix+ext {
			t.Errorf("StorageKey(%q) = %q, want %q", name, got, prefix+ext)
		}
	}
}
