package domain

import "testing"

func TestValidEmail(t *testing.T) {
	for in, want := range map[string]bool{
		"student@example.com":   true,
		"  student@example.com": true,
		"":                      false,
		"   ":                   false,
		"not-an-email":          false,
		"Name <a@b.c>":          false,
	} {
		if got := ValidEmail(in); got != want {
			t.Errorf("ValidEmail(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseListSort(t *testing.T) {
	for in, want := range map[string]ListSort{
		"":                SortNewest,
		"newest":          SortNewest,
		"oldest":          SortOldest,
		"most_downloaded": SortMostDownloaded,
		"downloads":       SortMostDownloaded,
		"random":          SortNewest,
	} {
		if got := ParseListSort(in); got != want {
			t.Errorf("ParseListSort(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEffectiveLimit(t *testing.T) {
	for in, want := range map[int]int{0: DefaultListLimit, -1: DefaultListLimit, 10: 10, MaxListLimit: MaxListLimit, MaxListLimit + 1: DefaultListLimit} {
		if got := (ListFilter{Limit: in}).EffectiveLimit(); got != want {
			t.Errorf("EffectiveLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestSubjectsCatalog(t *testing.T) {
	subs := Subjects()
	if len(subs) != 6 {
		t.Fatalf("subjects = %d", len(subs))
	}
	subs[0].ID = "mutated"
	if !ValidSubject("principles_of_ai") || ValidSubject("mutated") {
		t.Fatalf("Subjects must return a copy")
	}
}
