package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/iccimport/internal/markup"
)

func TestUnderscoresToItalics(t *testing.T) {
	got, err := UnderscoresToItalics("<p>a _b_ c _d_</p>", testTable(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "<p>a <i>b</i> c <i>d</i></p>" {
		t.Errorf("unexpected output %q", got)
	}

	if _, err := UnderscoresToItalics("a_b", testTable(t)); err == nil {
		t.Fatal("expected error for odd underscore count")
	}
}

func TestUnderscoresToItalics_UnderscoreDelimiter(t *testing.T) {
	table, err := markup.NewTagTable(markup.Delimiter{"_", "_"}, []string{"Part"}, "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := UnderscoresToItalics("_p_x_/p_", table); !errors.Is(err, markup.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestMarkupParser_PassThrough(t *testing.T) {
	input := "<h1>One\n<p>snake_case</p>\n</h1>"
	if got := prepare(t, &MarkupParser{}, input); got != input {
		t.Errorf("expected markup unchanged, got %q", got)
	}
}

func TestMarkupParser_Underscores(t *testing.T) {
	got := prepare(t, &MarkupParser{Underscores: true}, "<h1>One\n<p>a _fine_ day</p>\n</h1>")
	want := "<h1>One\n<p>a <i>fine</i> day</p>\n</h1>"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestMarkupParser_Errors(t *testing.T) {
	_, err := Prepare(&MarkupParser{Underscores: true}, strings.NewReader("<p>_a</p>"), testTable(t))
	if err == nil || !strings.Contains(err.Error(), "unbalanced underscores") {
		t.Fatalf("expected underscore error, got %v", err)
	}

	// Italics that straddle a paragraph boundary no longer nest.
	_, err = Prepare(&MarkupParser{Underscores: true}, strings.NewReader("<p>_a</p><p>b_</p>"), testTable(t))
	if !errors.Is(err, markup.ErrMismatchedCloser) {
		t.Fatalf("expected ErrMismatchedCloser, got %v", err)
	}
}
