package postgres

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/EgorLis/study-share-hub/internal/domain"
)

func testRepo() *PGRepo { return &PGRepo{schema: "public"} }

func TestListQueryOrdering(t *testing.T) {
	cases := []struct {
		sort domain.ListSort
		want string
	}{
		{domain.SortNewest, "ORDER BY created_at DESC, id ASC"},
		{domain.SortOldest, "ORDER BY created_at ASC, id ASC"},
		{domain.SortMostDownloaded, "ORDER BY download_count DESC, created_at DESC, id ASC"},
		{"", "ORDER BY created_at DESC, id ASC"},
	}
	for _, tc := range cases {
		sqlStr, _, err := testRepo().listQuery(domain.ListFilter{}, tc.sort).ToSql()
		if err != nil {
			t.Fatalf("ToSql: %v", err)
		}
		if !strings.Contains(sqlStr, tc.want) {
			t.Errorf("sort %q: %s does not contain %q", tc.sort, sqlStr, tc.want)
		}
	}
}

func TestListQueryFilters(t *testing.T) {
	uploader := uuid.New()
	f := domain.ListFilter{
		Subject:    "system_design",
		UploaderID: &uploader,
		Query:      " 50%_off ",
		Limit:      5000,
	}
	sqlStr, args, err := testRepo().listQuery(f, domain.SortNewest).ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}

	for _, part := range []string{
		"FROM public.worksheets",
		"subject = $1",
		"uploader_id = $2",
		"title ILIKE $3",
		"LIMIT 50",
	} {
		if !strings.Contains(sqlStr, part) {
			t.Errorf("%s does not contain %q", sqlStr, part)
		}
	}
	if len(args) != 3 {
		t.Fatalf("args = %v", args)
	}
	if args[2] != `%50\%\_off%` {
		t.Fatalf("like pattern = %q", args[2])
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`a\b%c_d`); got != `a\\b\%c\_d` {
		t.Fatalf("escapeLike = %q", got)
	}
}
