// Command iccimport converts marked-up manuscripts into the chunk and
// annotation files consumed by the import system.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dgallion1/iccimport/internal/api"
	"github.com/dgallion1/iccimport/internal/book"
	"github.com/dgallion1/iccimport/internal/chunker"
	"github.com/dgallion1/iccimport/internal/config"
	"github.com/dgallion1/iccimport/internal/importer"
	"github.com/dgallion1/iccimport/internal/parser"
	"github.com/dgallion1/iccimport/internal/pipeline"
	"github.com/dgallion1/iccimport/internal/toc"
)

// Globals override the environment configuration.
type Globals struct {
	LogLevel  string `name:"log-level" help:"Log level: debug, info, warn, error (env LOG_LEVEL)"`
	LogFormat string `name:"log-format" help:"Log format: json, text (env LOG_FORMAT)"`
	ChunkSize int    `name:"chunk-size" help:"Chunk size in code points (env ICC_CHUNK_SIZE)"`
}

// CLI defines the command-line interface using Kong
type CLI struct {
	Globals

	Convert ConvertCmd `cmd:"" default:"withargs" help:"Convert a book directory into chunks.json and annotations.json"`
	Prepare PrepareCmd `cmd:"" help:"Turn a Markdown, HTML, DOCX, PDF or text source into prepared markup, or rewrite an existing .icc text"`
	Info    InfoCmd    `cmd:"" help:"Report size and character set of a text file"`
	Outline OutlineCmd `cmd:"" help:"Print the heading tree of a book"`
	Publish PublishCmd `cmd:"" help:"Convert a book and push it to the import system"`
	Serve   ServeCmd   `cmd:"" help:"Run the HTTP API"`
}

// runtime is bound into every command's Run.
type runtime struct {
	cfg config.Config
	log *slog.Logger
	out io.Writer
}

func newRuntime(g Globals, out, logOut io.Writer) (*runtime, error) {
	cfg := config.Load()
	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.LogFormat = g.LogFormat
	}
	if g.ChunkSize != 0 {
		cfg.ChunkSize = g.ChunkSize
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &runtime{cfg: cfg, log: newLogger(cfg.LogLevel, cfg.LogFormat, logOut), out: out}, nil
}

func newLogger(level, format string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ConvertCmd converts one book directory.
type ConvertCmd struct {
	Dir string `arg:"" type:"existingdir" help:"Book directory containing metadata.yml and the prepared text"`
}

func (c *ConvertCmd) Run(rt *runtime) error {
	_, err := pipeline.Run(c.Dir, rt.cfg, rt.log)
	return err
}

// PrepareCmd writes prepared markup for a source document into a book
// directory, using the delimiter and headings from its metadata.
type PrepareCmd struct {
	Source      string `arg:"" type:"existingfile" help:"Source document"`
	Dir         string `arg:"" type:"existingdir" help:"Book directory containing metadata.yml"`
	Underscores bool   `name:"underscores" help:"Treat _text_ in plain text or .icc markup as italics"`
	Force       bool   `name:"force" short:"f" help:"Overwrite an existing prepared text"`
}

func (c *PrepareCmd) Run(rt *runtime) error {
	meta, err := book.LoadMetadata(filepath.Join(c.Dir, rt.cfg.MetadataFile))
	if err != nil {
		return err
	}
	table, err := meta.TagTable()
	if err != nil {
		return err
	}
	p, err := parser.ForFile(c.Source, parser.Options{
		Underscores:          c.Underscores,
		PDFFallbackPdftotext: rt.cfg.PDFFallbackPdftotext,
	})
	if err != nil {
		return err
	}

	f, err := os.Open(c.Source)
	if err != nil {
		return err
	}
	defer f.Close()
	prepared, err := parser.Prepare(p, f, table)
	if err != nil {
		return fmt.Errorf("prepare %s: %w", filepath.Base(c.Source), err)
	}

	name := meta.Text
	if name == "" {
		name = rt.cfg.TextFile
	}
	dest := filepath.Join(c.Dir, name)
	if fi, err := os.Stat(dest); err == nil && !c.Force && !sameFile(fi, c.Source) {
		return fmt.Errorf("%s already exists (use --force to overwrite)", dest)
	}
	if err := os.WriteFile(dest, []byte(prepared), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	rt.log.Info("prepared source", "source", c.Source, "dest", dest, "bytes", len(prepared))
	return nil
}

// sameFile reports whether path names the file described by fi, so a book's
// own .icc text can be rewritten in place.
func sameFile(fi os.FileInfo, path string) bool {
	src, err := os.Stat(path)
	return err == nil && os.SameFile(fi, src)
}

// InfoCmd prints text statistics, used to pick a delimiter.
type InfoCmd struct {
	File string `arg:"" type:"existingfile" help:"Text file to inspect"`
}

// delimiterCandidates are checked against the character set by info.
var delimiterCandidates = []string{"<>", "[]", "{}", "()", "|", "~", "^", "@"}

func (c *InfoCmd) Run(rt *runtime) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}
	info := book.Inspect(string(data))
	fmt.Fprintf(rt.out, "bytes: %d\n", info.Bytes)
	fmt.Fprintf(rt.out, "code points: %d\n", info.CodePoints)
	fmt.Fprintf(rt.out, "characters: %q\n", info.Charset)
	fmt.Fprintf(rt.out, "unused delimiters: %v\n", info.Unused(delimiterCandidates...))
	return nil
}

// OutlineCmd converts a book in memory and prints its heading tree.
type OutlineCmd struct {
	Dir string `arg:"" type:"existingdir" help:"Book directory"`
}

func (c *OutlineCmd) Run(rt *runtime) error {
	b, err := book.Load(c.Dir, rt.cfg.MetadataFile, rt.cfg.TextFile)
	if err != nil {
		return err
	}
	res, err := pipeline.Convert(b.Meta, b.Raw, chunker.Config{ChunkSize: rt.cfg.ChunkSize}, rt.log)
	if err != nil {
		return err
	}
	tree := toc.Outline(res.Annotations)
	if err := tree.Render(rt.out); err != nil {
		return err
	}
	fmt.Fprintf(rt.out, "%d headings, %d code points\n", tree.Count(), res.CodePoints())
	return nil
}

// PublishCmd converts a book, writes its outputs, and uploads them.
type PublishCmd struct {
	Dir string `arg:"" type:"existingdir" help:"Book directory"`
}

func (c *PublishCmd) Run(rt *runtime) error {
	if err := rt.cfg.ValidatePublish(); err != nil {
		return err
	}
	res, err := pipeline.Run(c.Dir, rt.cfg, rt.log)
	if err != nil {
		return err
	}
	chunks, err := os.ReadFile(filepath.Join(c.Dir, rt.cfg.ChunksFile))
	if err != nil {
		return err
	}
	annotations, err := os.ReadFile(filepath.Join(c.Dir, rt.cfg.AnnotationsFile))
	if err != nil {
		return err
	}

	m := importer.Manifest{
		BookID:      res.BookID,
		Digest:      res.Digest,
		Chunks:      len(res.Chunks),
		Annotations: len(res.Annotations),
	}
	if root := res.Annotations[len(res.Annotations)-1]; root.IsRoot() {
		m.Title = root.Title
		m.Slug = root.Slug
	}

	client := importer.NewClient(rt.cfg.ImportURL, rt.cfg.ImportAPIKey, rt.cfg.ImportTimeout, rt.log)
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := client.Publish(ctx, m, chunks, annotations); err != nil {
		return err
	}
	rt.log.Info("published book", "book_id", m.BookID, "digest", m.Digest)
	return nil
}

// ServeCmd runs the HTTP API until interrupted.
type ServeCmd struct {
	Port string `name:"port" short:"p" help:"Listen port (env PORT)"`
}

func (c *ServeCmd) Run(rt *runtime) error {
	port := rt.cfg.Port
	if c.Port != "" {
		port = c.Port
	}
	srv := api.NewServer(pipeline.NewStats(rt.cfg.StatsWindow), rt.log, rt.cfg)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		rt.log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	rt.log.Info("starting iccimport", "port", port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("iccimport"),
		kong.Description("Convert marked-up manuscripts into chunks and TOC annotations"),
		kong.UsageOnError(),
	)
	rt, err := newRuntime(cli.Globals, os.Stdout, os.Stderr)
	ctx.FatalIfErrorf(err)

	err = ctx.Run(rt)
	ctx.FatalIfErrorf(err)
}
