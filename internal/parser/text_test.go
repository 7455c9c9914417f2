package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/iccimport/internal/markup"
)

func testTable(t *testing.T) *markup.TagTable {
	t.Helper()
	table, err := markup.NewTagTable(markup.Delimiter{"<", ">"}, []string{"Part", "Chapter"}, "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return table
}

func prepare(t *testing.T, p Parser, input string) string {
	t.Helper()
	out, err := Prepare(p, strings.NewReader(input), testTable(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return out
}

func TestTextParser_BasicParagraphSplitting(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	got := prepare(t, &TextParser{}, input)

	want := "<p>First paragraph line one.\nFirst paragraph line two.</p>\n" +
		"<p>Second paragraph.</p>\n" +
		"<p>Third paragraph.</p>\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	if got := prepare(t, &TextParser{}, ""); got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
}

func TestTextParser_MultipleBlankLines(t *testing.T) {
	// Multiple consecutive blank lines should not produce empty paragraphs.
	got := prepare(t, &TextParser{}, "Para one.\n\n\n\nPara two.")
	if n := strings.Count(got, "<p>"); n != 2 {
		t.Fatalf("expected 2 paragraphs, got %d in %q", n, got)
	}
}

func TestTextParser_WhitespaceOnlyLines(t *testing.T) {
	// Lines with only whitespace should be treated as blank.
	got := prepare(t, &TextParser{}, "Para one.\n   \nPara two.")
	if n := strings.Count(got, "<p>"); n != 2 {
		t.Fatalf("expected 2 paragraphs, got %d in %q", n, got)
	}
}

func TestTextParser_Underscores(t *testing.T) {
	got := prepare(t, &TextParser{Underscores: true}, "A _fine_ day.\n\n_All_ of _it_.")
	want := "<p>A <i>fine</i> day.</p>\n<p><i>All</i> of <i>it</i>.</p>\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestTextParser_UnbalancedUnderscore(t *testing.T) {
	_, err := Prepare(&TextParser{Underscores: true}, strings.NewReader("ok _fine_\n\nsnake_case"), testTable(t))
	if err == nil || !strings.Contains(err.Error(), "paragraph 2") {
		t.Fatalf("expected paragraph 2 underscore error, got %v", err)
	}
}

func TestTextParser_UnderscoresIgnoredByDefault(t *testing.T) {
	got := prepare(t, &TextParser{}, "snake_case")
	if got != "<p>snake_case</p>\n" {
		t.Errorf("expected underscores kept, got %q", got)
	}
}

func TestTextParser_RejectsTagLiterals(t *testing.T) {
	_, err := Prepare(&TextParser{}, strings.NewReader("use <b> for bold"), testTable(t))
	if !errors.Is(err, markup.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}
