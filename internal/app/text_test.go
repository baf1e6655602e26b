package app

import (
	"strings"
	"testing"

	"golang.org/x/text/language"

	"github.com/maaaruch/tg-win-bot/internal/domain"
)

func TestTranslations_Complete(t *testing.T) {
	t.Parallel()

	for key, tr := range translations {
		for i, tag := range supportedLanguages {
			if strings.TrimSpace(tr[i]) == "" {
				t.Fatalf("%s: empty %s text", key, tag)
			}
		}
		// both languages must take the same arguments
		if en, ko := strings.Count(tr[0], "%"), strings.Count(tr[1], "%"); en != ko {
			t.Fatalf("%s: %d verbs in English, %d in Korean", key, en, ko)
		}
	}
}

func TestMatchLanguage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   language.Tag
		wantOK bool
	}{
		{"en", language.English, true},
		{"ko", language.Korean, true},
		{"ko-KR", language.Korean, true},
		{"en-US", language.English, true},
		{"fr", language.English, false},
		{"", language.English, false},
		{"not a tag", language.English, false},
	}

	for _, tt := range tests {
		got, ok := matchLanguage(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Fatalf("matchLanguage(%q) = %v,%v want %v,%v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestPrinter_Localizes(t *testing.T) {
	t.Parallel()

	ko := newPrinter(language.Korean)
	if got := modeLabel(ko, domain.ModeDuo); got != "듀오" {
		t.Fatalf("ko duo = %q", got)
	}
	en := newPrinter(language.English)
	if got := counterLabel(en, domain.CounterTotal); got != "overall" {
		t.Fatalf("en total = %q", got)
	}
	if got := en.Sprintf(msgVerifiedTeam, "@a, @b", 3); got != "Team @a, @b: 3 wins" {
		t.Fatalf("en team line = %q", got)
	}
}

func TestMedal(t *testing.T) {
	t.Parallel()

	for rank, want := range map[int]string{1: "🥇", 2: "🥈", 3: "🥉", 4: "4.", 10: "10."} {
		if got := medal(rank); got != want {
			t.Fatalf("medal(%d) = %q want %q", rank, got, want)
		}
	}
}
