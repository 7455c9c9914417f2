package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dgallion1/iccimport/internal/config"
)

const sampleMetadata = `delimiter: angles
toc:
  - Part
  - Chapter
bookid: "42"
title: Sample
slug: sample
`

const sampleText = "<h1>Intro<b>bold</b> text<h2>Ch1</h2>more<h2>Ch2</h2></h1>"

func bookDir(t *testing.T, text string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "metadata.yml"), []byte(sampleMetadata), 0o644); err != nil {
		t.Fatal(err)
	}
	if text != "" {
		if err := os.WriteFile(filepath.Join(dir, "text.icc"), []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func testRuntime(out io.Writer) *runtime {
	cfg := config.Config{
		MetadataFile:    "metadata.yml",
		TextFile:        "text.icc",
		ChunksFile:      "chunks.json",
		AnnotationsFile: "annotations.json",
		ChunkSize:       100000,
		LogLevel:        "info",
		LogFormat:       "json",
		ImportTimeout:   5 * time.Second,
	}
	return &runtime{cfg: cfg, log: slog.New(slog.NewTextHandler(io.Discard, nil)), out: out}
}

func TestParse_DefaultCommand(t *testing.T) {
	dir := t.TempDir()
	var cli CLI
	k, err := kong.New(&cli, kong.Name("iccimport"), kong.Exit(func(int) {}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, err := k.Parse([]string{"--chunk-size", "5", dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.Command() != "convert <dir>" {
		t.Errorf("expected convert command, got %q", ctx.Command())
	}
	if cli.Convert.Dir != dir {
		t.Errorf("expected dir %q, got %q", dir, cli.Convert.Dir)
	}
	if cli.ChunkSize != 5 {
		t.Errorf("expected chunk size 5, got %d", cli.ChunkSize)
	}
}

func TestNewRuntime(t *testing.T) {
	t.Setenv("ICC_CHUNK_SIZE", "")
	rt, err := newRuntime(Globals{LogLevel: "debug", LogFormat: "text", ChunkSize: 7}, io.Discard, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rt.cfg.ChunkSize != 7 || rt.cfg.LogLevel != "debug" || rt.cfg.LogFormat != "text" {
		t.Errorf("expected flag overrides, got %+v", rt.cfg)
	}

	if _, err := newRuntime(Globals{LogLevel: "loud"}, io.Discard, io.Discard); err == nil {
		t.Error("expected error for invalid log level")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger("debug", "text", &buf).Debug("hello", "k", "v")
	if !strings.Contains(buf.String(), "level=DEBUG") || !strings.Contains(buf.String(), "k=v") {
		t.Errorf("unexpected text log %q", buf.String())
	}

	buf.Reset()
	log := newLogger("warn", "json", &buf)
	log.Info("hidden")
	log.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), `"msg":"shown"`) {
		t.Errorf("unexpected json log %q", buf.String())
	}
}

func TestConvertCmd(t *testing.T) {
	dir := bookDir(t, sampleText)
	cmd := &ConvertCmd{Dir: dir}
	if err := cmd.Run(testRuntime(io.Discard)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"chunks.json", "annotations.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s written: %v", name, err)
		}
	}
}

func TestConvertCmd_BadMarkup(t *testing.T) {
	dir := bookDir(t, "<b>open")
	cmd := &ConvertCmd{Dir: dir}
	if err := cmd.Run(testRuntime(io.Discard)); err == nil {
		t.Fatal("expected error for unterminated tag")
	}
	if _, err := os.Stat(filepath.Join(dir, "chunks.json")); !os.IsNotExist(err) {
		t.Error("expected no chunks.json after failure")
	}
}

func TestPrepareCmd(t *testing.T) {
	dir := bookDir(t, "")
	src := filepath.Join(t.TempDir(), "book.md")
	os.WriteFile(src, []byte("# Intro\n\nSome **bold** text.\n\n## Ch1\n\nmore\n"), 0o644)

	rt := testRuntime(io.Discard)
	cmd := &PrepareCmd{Source: src, Dir: dir}
	if err := cmd.Run(rt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "text.icc"))
	if err != nil {
		t.Fatalf("expected text.icc: %v", err)
	}
	if !strings.HasPrefix(string(data), "<h1>Intro\n") {
		t.Errorf("unexpected prepared text %q", data)
	}

	if err := cmd.Run(rt); err == nil {
		t.Error("expected refusal to overwrite without --force")
	}
	cmd.Force = true
	if err := cmd.Run(rt); err != nil {
		t.Errorf("unexpected error with --force: %v", err)
	}

	// The prepared text converts cleanly.
	if err := (&ConvertCmd{Dir: dir}).Run(rt); err != nil {
		t.Errorf("prepared text failed to convert: %v", err)
	}
}

func TestPrepareCmd_RewritesMarkupInPlace(t *testing.T) {
	dir := bookDir(t, "<h1>Intro\n<p>a _fine_ day</p>\n<h2>Ch1\n<p>more</p>\n</h2></h1>")
	path := filepath.Join(dir, "text.icc")

	rt := testRuntime(io.Discard)
	cmd := &PrepareCmd{Source: path, Dir: dir, Underscores: true}
	if err := cmd.Run(rt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "<h1>Intro\n<p>a <i>fine</i> day</p>\n<h2>Ch1\n<p>more</p>\n</h2></h1>"
	if string(data) != want {
		t.Errorf("expected %q, got %q", want, data)
	}

	if err := (&ConvertCmd{Dir: dir}).Run(rt); err != nil {
		t.Errorf("rewritten text failed to convert: %v", err)
	}

	// Another .icc source still needs --force to replace the book's text.
	other := filepath.Join(t.TempDir(), "other.icc")
	os.WriteFile(other, []byte("<p>x</p>"), 0o644)
	if err := (&PrepareCmd{Source: other, Dir: dir}).Run(rt); err == nil {
		t.Error("expected refusal to overwrite from a different source")
	}
}

func TestInfoCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.txt")
	os.WriteFile(path, []byte("a (b) c"), 0o644)

	var out bytes.Buffer
	if err := (&InfoCmd{File: path}).Run(testRuntime(&out)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "bytes: 7") || !strings.Contains(got, "code points: 7") {
		t.Errorf("unexpected sizes in %q", got)
	}
	if !strings.Contains(got, "unused delimiters: [<> [] {} | ~ ^ @]") {
		t.Errorf("unexpected delimiter report in %q", got)
	}
}

func TestOutlineCmd(t *testing.T) {
	dir := bookDir(t, sampleText)
	var out bytes.Buffer
	if err := (&OutlineCmd{Dir: dir}).Run(testRuntime(&out)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "Chapter 2: Ch1") || !strings.Contains(got, "3 headings, 24 code points") {
		t.Errorf("unexpected outline %q", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "chunks.json")); !os.IsNotExist(err) {
		t.Error("outline must not write outputs")
	}
}

func TestPublishCmd(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	var manifest map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/books/42" {
			json.NewDecoder(r.Body).Decode(&manifest)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dir := bookDir(t, sampleText)
	rt := testRuntime(io.Discard)
	rt.cfg.ImportURL = srv.URL
	if err := (&PublishCmd{Dir: dir}).Run(rt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"/books/42/chunks", "/books/42/annotations", "/books/42"}
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, paths)
	}
	if manifest["title"] != "Sample" || manifest["annotations"] != float64(5) {
		t.Errorf("unexpected manifest %v", manifest)
	}
}

func TestPublishCmd_RequiresURL(t *testing.T) {
	dir := bookDir(t, sampleText)
	if err := (&PublishCmd{Dir: dir}).Run(testRuntime(io.Discard)); err == nil {
		t.Fatal("expected error without IMPORT_URL")
	}
}
