package htmlsanitize_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/dalemusser/solarhub/internal/app/system/htmlsanitize"
)

func TestPlainText_Empty(t *testing.T) {
	if got := htmlsanitize.PlainText(""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestPlainText_Unchanged(t *testing.T) {
	if got := htmlsanitize.PlainText("Sunny Acres Solar"); got != "Sunny Acres Solar" {
		t.Errorf("expected plain text unchanged, got %q", got)
	}
}

func TestPlainText_StripsTags(t *testing.T) {
	got := htmlsanitize.PlainText("<b>Sunny</b> <script>alert('x')</script>Acres")
	if strings.ContainsAny(got, "<>") {
		t.Errorf("expected markup removed, got %q", got)
	}
	if !strings.Contains(got, "Sunny") || !strings.Contains(got, "Acres") {
		t.Errorf("expected text content kept, got %q", got)
	}
}

func TestPlainText_KeepsAmpersand(t *testing.T) {
	if got := htmlsanitize.PlainText("Sun & Wind"); got != "Sun & Wind" {
		t.Errorf("expected ampersand preserved, got %q", got)
	}
}

func TestPlainText_CollapsesWhitespace(t *testing.T) {
	if got := htmlsanitize.PlainText("  Solar\n\t Farm  "); got != "Solar Farm" {
		t.Errorf("expected collapsed whitespace, got %q", got)
	}
}

func TestPlainText_Truncates(t *testing.T) {
	got := htmlsanitize.PlainText(strings.Repeat("a", 500))
	if n := utf8.RuneCountInString(got); n != 200 {
		t.Errorf("expected 200 runes, got %d", n)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("expected ellipsis suffix, got %q", got[len(got)-8:])
	}
}

func TestOrDefault(t *testing.T) {
	if got := htmlsanitize.OrDefault("<i></i>", "a project"); got != "a project" {
		t.Errorf("expected default, got %q", got)
	}
	if got := htmlsanitize.OrDefault("Ridge", "a project"); got != "Ridge" {
		t.Errorf("expected value, got %q", got)
	}
}
