package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/joseph-ayodele/pdf-text-extractor/constants"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/entity"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/export"
	repo "github.com/joseph-ayodele/pdf-text-extractor/internal/repository"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/server"
)

const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

const usage = `Usage: pdf-query [global flags] <command> [flags]

Commands:
  stats                     store-wide counts
  search <text>             successful results containing text
  list                      recent results
  failures                  results with method=error
  export                    write the store as txt, jsonl or xlsx
  serve                     serve the query API over gRPC

Global flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// backend answers queries either from the local store or a remote server.
type backend interface {
	Stats(ctx context.Context) (entity.StoreStats, error)
	Search(ctx context.Context, query string, limit int, fullText bool) ([]entity.ExtractionResult, error)
	List(ctx context.Context, method constants.Method, includeFailed bool, limit int) ([]entity.ExtractionResult, error)
	Failures(ctx context.Context, limit int) ([]entity.ExtractionResult, error)
	Export(ctx context.Context, format string, includeText bool) ([]byte, error)
}

type localBackend struct {
	results  repo.ResultRepository
	exporter *export.Service
}

func (l localBackend) Stats(ctx context.Context) (entity.StoreStats, error) {
	return l.results.Stats(ctx)
}

func (l localBackend) Search(ctx context.Context, query string, limit int, _ bool) ([]entity.ExtractionResult, error) {
	return l.results.Search(ctx, query, limit)
}

func (l localBackend) List(ctx context.Context, method constants.Method, includeFailed bool, limit int) ([]entity.ExtractionResult, error) {
	return l.results.List(ctx, repo.ListFilter{Method: method, IncludeFailed: includeFailed, Limit: limit})
}

func (l localBackend) Failures(ctx context.Context, limit int) ([]entity.ExtractionResult, error) {
	return l.results.Failures(ctx, limit)
}

func (l localBackend) Export(ctx context.Context, name string, includeText bool) ([]byte, error) {
	format, err := export.ParseFormat(name)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := l.exporter.Write(ctx, &buf, format, export.Options{IncludeText: includeText}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type globals struct {
	config    string
	db        string
	addr      string
	logLevel  string
	logFormat string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var g globals
	fs := flag.NewFlagSet("pdf-query", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&g.config, "config", "", "YAML config file")
	fs.StringVar(&g.db, "db", "", "store: SQLite file path or postgres:// URL")
	fs.StringVar(&g.addr, "addr", "", "query a running `pdf-query serve` at host:port instead of the local store")
	fs.StringVar(&g.logLevel, "log-level", "", "debug | info | warn | error")
	fs.StringVar(&g.logFormat, "log-format", "", "json | text")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	cfg, err := common.LoadConfig(g.config)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if g.db != "" {
		cfg.Database.DSN = g.db
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	logger := common.NewLogger(cfg.Log, stderr)

	if cmd == "serve" {
		return serve(ctx, cfg, rest, stderr, logger)
	}

	var b backend
	if g.addr != "" {
		conn, err := grpc.NewClient(g.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			fmt.Fprintf(stderr, "Error: dial %s: %v\n", g.addr, err)
			return exitFatal
		}
		defer conn.Close()
		b = server.NewQueryClient(conn)
	} else {
		db, err := server.ConnectDB(ctx, cfg.Database, logger)
		if err != nil {
			fmt.Fprintf(stderr, "Error: cannot open result store: %v\n", err)
			return exitFatal
		}
		defer server.CloseDB(db, logger)
		results := repo.NewResultRepository(db, logger)
		b = localBackend{results: results, exporter: export.NewService(results, logger)}
	}

	switch cmd {
	case "stats":
		err = cmdStats(ctx, b, stdout)
	case "search":
		err = cmdSearch(ctx, b, rest, stdout, stderr)
	case "list":
		err = cmdList(ctx, b, rest, stdout, stderr)
	case "failures":
		err = cmdFailures(ctx, b, rest, stdout, stderr)
	case "export":
		err = cmdExport(ctx, b, rest, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n", cmd)
		fs.Usage()
		return exitUsage
	}
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage):
		return exitUsage
	default:
		logger.Error("command failed", "command", cmd, "error", err)
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFatal
	}
}

var errUsage = errors.New("usage")

func parseSub(name string, args []string, stderr io.Writer, define func(*flag.FlagSet)) (*flag.FlagSet, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	define(fs)
	if err := fs.Parse(args); err != nil {
		return fs, errUsage
	}
	return fs, nil
}

func cmdStats(ctx context.Context, b backend, w io.Writer) error {
	st, err := b.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Total files:        %d\n", st.Total)
	fmt.Fprintf(w, "Successful:         %d\n", st.Successful)
	fmt.Fprintf(w, "Failed:             %d\n", st.Failed)
	fmt.Fprintf(w, "Success rate:       %.1f%%\n", st.SuccessRate())
	fmt.Fprintf(w, "Avg processing:     %.2fs\n", st.AvgProcessingSeconds)
	methods := make([]string, 0, len(st.ByMethod))
	for m := range st.ByMethod {
		methods = append(methods, string(m))
	}
	sort.Strings(methods)
	fmt.Fprintf(w, "By method:\n")
	for _, m := range methods {
		fmt.Fprintf(w, "  %-8s %d\n", m, st.ByMethod[constants.Method(m)])
	}
	return nil
}

func cmdSearch(ctx context.Context, b backend, args []string, stdout, stderr io.Writer) error {
	var limit int
	var full bool
	fs, err := parseSub("search", args, stderr, func(fs *flag.FlagSet) {
		fs.IntVar(&limit, "limit", 20, "maximum hits (0 = all)")
		fs.BoolVar(&full, "full", false, "print the whole text instead of a preview")
	})
	if err != nil {
		return err
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Fprintf(stderr, "Error: search needs a query\n")
		return errUsage
	}
	rs, err := b.Search(ctx, query, limit, full)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Found %d result(s) for %q\n", len(rs), query)
	printResults(stdout, rs, full)
	return nil
}

func cmdList(ctx context.Context, b backend, args []string, stdout, stderr io.Writer) error {
	var (
		limit         int
		method        string
		includeFailed bool
	)
	if _, err := parseSub("list", args, stderr, func(fs *flag.FlagSet) {
		fs.IntVar(&limit, "limit", 20, "maximum rows (0 = all)")
		fs.StringVar(&method, "method", "", "only this method: direct | ocr | error")
		fs.BoolVar(&includeFailed, "include-failed", false, "include method=error rows")
	}); err != nil {
		return err
	}
	if method != "" && !constants.Method(method).Valid() {
		fmt.Fprintf(stderr, "Error: unknown method %q\n", method)
		return errUsage
	}
	rs, err := b.List(ctx, constants.Method(method), includeFailed, limit)
	if err != nil {
		return err
	}
	printResults(stdout, rs, false)
	return nil
}

func cmdFailures(ctx context.Context, b backend, args []string, stdout, stderr io.Writer) error {
	var limit int
	if _, err := parseSub("failures", args, stderr, func(fs *flag.FlagSet) {
		fs.IntVar(&limit, "limit", 0, "maximum rows (0 = all)")
	}); err != nil {
		return err
	}
	rs, err := b.Failures(ctx, limit)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%d failed document(s)\n", len(rs))
	for _, r := range rs {
		fmt.Fprintf(stdout, "  %s\n    %s\n", r.FilePath, r.ErrorOrEmpty())
	}
	return nil
}

func cmdExport(ctx context.Context, b backend, args []string, stdout, stderr io.Writer) error {
	var (
		format      string
		out         string
		includeText bool
	)
	if _, err := parseSub("export", args, stderr, func(fs *flag.FlagSet) {
		fs.StringVar(&format, "format", "", "txt | jsonl | xlsx (default: from -out extension, else txt)")
		fs.StringVar(&out, "out", "", "output file (default stdout; required for xlsx)")
		fs.BoolVar(&includeText, "include-text", false, "include extracted text in jsonl and xlsx")
	}); err != nil {
		return err
	}
	if format == "" {
		format = string(export.FormatText)
		if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), "."); ext != "" {
			format = ext
		}
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return errUsage
	}
	if f == export.FormatXLSX && out == "" {
		fmt.Fprintf(stderr, "Error: xlsx export needs -out\n")
		return errUsage
	}

	data, err := b.Export(ctx, string(f), includeText)
	if err != nil {
		return err
	}
	if out == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return common.NewIOError("write export", err)
	}
	fmt.Fprintf(stdout, "Exported %d bytes to %s\n", len(data), out)
	return nil
}

func serve(ctx context.Context, cfg *common.Config, args []string, stderr io.Writer, logger *slog.Logger) int {
	addr := cfg.Server.GRPCAddr
	if _, err := parseSub("serve", args, stderr, func(fs *flag.FlagSet) {
		fs.StringVar(&addr, "listen", addr, "gRPC listen address")
	}); err != nil {
		return exitUsage
	}

	db, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: cannot open result store: %v\n", err)
		return exitFatal
	}
	defer server.CloseDB(db, logger)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen", "addr", addr, "error", err)
		return exitFatal
	}

	svc := server.NewQueryService(repo.NewResultRepository(db, logger), logger)
	grpcServer, hs := server.NewGRPCServer(svc, logger)
	if err := server.Serve(ctx, grpcServer, hs, lis, logger); err != nil {
		logger.Error("gRPC server stopped", "error", err)
		return exitFatal
	}
	return exitOK
}

func printResults(w io.Writer, rs []entity.ExtractionResult, full bool) {
	for _, r := range rs {
		status := "ok"
		if !r.Success {
			status = "FAILED"
		}
		fmt.Fprintf(w, "\n[%d] %s\n    method=%s status=%s at=%s\n",
			r.ID, r.FilePath, r.Method, status, r.Timestamp.Local().Format("2006-01-02 15:04:05"))
		if !r.Success {
			fmt.Fprintf(w, "    error: %s\n", r.ErrorOrEmpty())
			continue
		}
		text := strings.TrimSpace(r.TextOrEmpty())
		if !full {
			text = preview(text, 200)
		}
		fmt.Fprintf(w, "    %s\n", strings.ReplaceAll(text, "\n", "\n    "))
	}
}

func preview(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n]) + "..."
}
