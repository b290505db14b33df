package tag

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestNew_Valid(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	tg, err := New("id-1", "Machine Learning", "ml things", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tg.ID() != "id-1" || tg.Name() != "Machine Learning" || tg.Description() != "ml things" {
		t.Errorf("unexpected tag: %+v", tg)
	}
	if !tg.CreatedAt().Equal(now) {
		t.Errorf("CreatedAt() = %v", tg.CreatedAt())
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New("", "x", "", time.Now()); err == nil {
		t.Error("expected error for empty id")
	}
	if _, err := New("id", "   ", "", time.Now()); err == nil {
		t.Error("expected error for blank name")
	}
	_, err := New("id", strings.Repeat("a", MaxNameLength+1), "", time.Now())
	if err == nil || !strings.Contains(err.Error(), "too long") {
		t.Errorf("expected too long error, got %v", err)
	}
}

func TestWithDescription(t *testing.T) {
	tg := Reconstruct("id", "name", "old", time.UnixMilli(1))
	updated := tg.WithDescription("new")
	if updated.Description() != "new" || updated.Name() != "name" || updated.ID() != "id" {
		t.Errorf("unexpected tag: %+v", updated)
	}
	if tg.Description() != "old" {
		t.Error("original tag mutated")
	}
}

func TestWinner(t *testing.T) {
	early := Reconstruct("zzz", "n", "", time.UnixMilli(100))
	lateA := Reconstruct("aaa", "n", "", time.UnixMilli(200))
	lateB := Reconstruct("bbb", "n", "", time.UnixMilli(200))

	w, ok := Winner([]Tag{lateB, early, lateA})
	if !ok || w.ID() != "zzz" {
		t.Errorf("winner = %q, want zzz", w.ID())
	}

	w, _ = Winner([]Tag{lateB, lateA})
	if w.ID() != "aaa" {
		t.Errorf("tie should break on id: winner = %q", w.ID())
	}

	if _, ok := Winner(nil); ok {
		t.Error("empty input has no winner")
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("Machine-Learning, AI & Ethics 2024")
	want := []string{"machine", "learning", "ai", "ethics", "2024"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokens() = %v, want %v", got, want)
	}
}

func TestAnalyzer_Grams(t *testing.T) {
	a := Analyzer{MinGram: 2, MaxGram: 4}
	got := a.Grams("Data Dash a")
	want := []string{"da", "dat", "data", "das", "dash"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Grams() = %v, want %v", got, want)
	}
}

func TestAnalyzer_GramsUnicode(t *testing.T) {
	got := DefaultAnalyzer.Grams("Überblick")
	if got[0] != "üb" {
		t.Errorf("first gram = %q, want üb", got[0])
	}
	if len(got) != len([]rune("überblick"))-1 {
		t.Errorf("gram count = %d", len(got))
	}
}

func TestAnalyzer_QueryGram(t *testing.T) {
	a := Analyzer{MinGram: 2, MaxGram: 5}
	tests := []struct {
		prefix string
		want   string
		ok     bool
	}{
		{"ma", "ma", true},
		{"M", "", false},
		{"", "", false},
		{"Machinery", "machi", true},
		{"a le", "le", true},
		{"a b", "", false},
		{"machine le", "machi", true},
	}
	for _, tc := range tests {
		got, ok := a.QueryGram(tc.prefix)
		if got != tc.want || ok != tc.ok {
			t.Errorf("QueryGram(%q) = %q, %v; want %q, %v", tc.prefix, got, ok, tc.want, tc.ok)
		}
	}
}

func TestMatchesPrefix(t *testing.T) {
	tests := []struct {
		name, prefix string
		want         bool
	}{
		{"Machine Learning", "mach", true},
		{"Machine Learning", "LEAR", true},
		{"Machine Learning", "machine le", true},
		{"Machine Learning", "achine", false},
		{"Machine Learning", "learning mach", false},
		{"Deep Machine Learning", "machine lea", true},
		{"AI", "a", true},
		{"AI", "", true},
		{"C++", "c+", true},
		{"C++", "+", false},
		{"politics", "pol", true},
	}
	for _, tc := range tests {
		if got := MatchesPrefix(tc.name, tc.prefix); got != tc.want {
			t.Errorf("MatchesPrefix(%q, %q) = %v, want %v", tc.name, tc.prefix, got, tc.want)
		}
	}
}

func TestMatchesPrefix_ConsistentWithGrams(t *testing.T) {
	// Every matching prefix with a usable query gram must find the tag via its grams.
	a := DefaultAnalyzer
	name := "Renewable Energy Policy"
	grams := map[string]bool{}
	for _, g := range a.Grams(name) {
		grams[g] = true
	}
	for _, prefix := range []string{"re", "ener", "energy pol", "renewable energy policy"} {
		if !MatchesPrefix(name, prefix) {
			t.Fatalf("%q should match", prefix)
		}
		g, ok := a.QueryGram(prefix)
		if !ok {
			t.Fatalf("%q should have a query gram", prefix)
		}
		if !grams[g] {
			t.Errorf("query gram %q of %q not among indexed grams", g, prefix)
		}
	}
}
