package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joseph-ayodele/pdf-text-extractor/constants"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/core/strategy"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/extract"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/extract/extracttest"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/fingerprint"
)

type fakeDedup struct {
	done map[string]bool
	err  error
}

func (f *fakeDedup) ExistsSuccessful(_ context.Context, path, _ string) (bool, error) {
	return f.done[path], f.err
}

type fixture struct {
	dir     string
	scratch string
	caps    *extracttest.Capabilities
	dedup   *fakeDedup
}

func newFixture(t *testing.T, docs map[string]extracttest.Doc) *fixture {
	t.Helper()
	return &fixture{
		dir:     t.TempDir(),
		scratch: t.TempDir(),
		caps:    extracttest.New(docs),
		dedup:   &fakeDedup{done: map[string]bool{}},
	}
}

func (f *fixture) processor(cfg ProcessorConfig) *Processor {
	cfg.ScratchDir = f.scratch
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ocr := extract.NewOCRAdapter(f.caps, f.caps, 0, logger)
	return NewProcessor(logger, &fingerprint.Hasher{}, f.dedup, f.caps, ocr, cfg)
}

func (f *fixture) write(t *testing.T, name string) string {
	t.Helper()
	paths, err := extracttest.WritePDFs(f.dir, name)
	if err != nil {
		t.Fatal(err)
	}
	return paths[0]
}

func (f *fixture) assertScratchEmpty(t *testing.T) {
	t.Helper()
	left, err := os.ReadDir(f.scratch)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("scratch dirs left behind: %v", left)
	}
}

func TestProcessTextNative(t *testing.T) {
	text := strings.Repeat("x", 500)
	f := newFixture(t, map[string]extracttest.Doc{"native.pdf": {Text: text, Pages: 2}})
	path := f.write(t, "native.pdf")

	out := f.processor(ProcessorConfig{Plan: strategy.UseBoth}).Process(context.Background(), path)

	r := out.Result
	if out.Skipped || !r.Success || r.Method != constants.MethodDirect {
		t.Fatalf("outcome = %+v", out)
	}
	if len(r.TextOrEmpty()) != 500 || *r.PageCount != 2 {
		t.Errorf("text len = %d pages = %d", len(r.TextOrEmpty()), *r.PageCount)
	}
	if r.FileHash == nil || r.FileSize == nil || r.ErrorMessage != nil {
		t.Errorf("unexpected fields: %+v", r)
	}
	if f.caps.RenderCalls.Load() != 0 {
		t.Error("text-native document should not be rendered")
	}
	f.assertScratchEmpty(t)
}

func TestProcessScanned(t *testing.T) {
	page := strings.Repeat("s", 200)
	f := newFixture(t, map[string]extracttest.Doc{
		"scan.pdf": {Text: "\f\f\f", Pages: 3, PageText: []string{page, page, page}},
	})
	path := f.write(t, "scan.pdf")

	out := f.processor(ProcessorConfig{Plan: strategy.UseBoth}).Process(context.Background(), path)

	r := out.Result
	if !r.Success || r.Method != constants.MethodOCR || *r.PageCount != 3 {
		t.Fatalf("result = %+v", r)
	}
	if n := strings.Count(r.TextOrEmpty(), "s"); n != 600 {
		t.Errorf("recognized chars = %d, want 600", n)
	}
	if !strings.HasPrefix(r.TextOrEmpty(), extract.PageHeader(1)) || !strings.Contains(r.TextOrEmpty(), extract.PageHeader(3)) {
		t.Errorf("text missing page headers: %q", r.TextOrEmpty())
	}
	f.assertScratchEmpty(t)
}

func TestProcessUnreadable(t *testing.T) {
	f := newFixture(t, nil)
	out := f.processor(ProcessorConfig{Plan: strategy.UseBoth}).Process(context.Background(), filepath.Join(f.dir, "gone.pdf"))

	r := out.Result
	if r.Success || r.Method != constants.MethodError || r.ErrorMessage == nil {
		t.Fatalf("result = %+v", r)
	}
	if r.FileHash != nil {
		t.Error("hash should be null when the file cannot be read")
	}
	if !strings.Contains(r.ErrorOrEmpty(), common.CodeIO) {
		t.Errorf("error = %q", r.ErrorOrEmpty())
	}
}

func TestProcessSkipsSuccessfulKey(t *testing.T) {
	f := newFixture(t, map[string]extracttest.Doc{"a.pdf": {Text: strings.Repeat("a", 100), Pages: 1}})
	path := f.write(t, "a.pdf")
	f.dedup.done[path] = true

	out := f.processor(ProcessorConfig{Plan: strategy.UseBoth}).Process(context.Background(), path)
	if !out.Skipped {
		t.Fatalf("expected skip, got %+v", out)
	}
	if f.caps.DirectCalls.Load() != 0 {
		t.Error("skipped document should not be extracted")
	}

	out = f.processor(ProcessorConfig{Plan: strategy.UseBoth, Force: true}).Process(context.Background(), path)
	if out.Skipped || !out.Result.Success {
		t.Fatalf("force should reprocess, got %+v", out)
	}
}

func TestProcessDedupErrorStillProcesses(t *testing.T) {
	f := newFixture(t, map[string]extracttest.Doc{"a.pdf": {Text: strings.Repeat("a", 100), Pages: 1}})
	f.dedup.err = errors.New("database is locked")
	path := f.write(t, "a.pdf")

	out := f.processor(ProcessorConfig{Plan: strategy.UseBoth}).Process(context.Background(), path)
	if out.Skipped || !out.Result.Success {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestProcessTextOnly(t *testing.T) {
	f := newFixture(t, map[string]extracttest.Doc{
		"empty.pdf":  {Text: "", Pages: 0},
		"short.pdf":  {Text: "hi", Pages: 4, PageText: []string{"never", "used", "", ""}},
		"broken.pdf": {DirectErr: errors.New("syntax error")},
	})
	p := f.processor(ProcessorConfig{Plan: strategy.UseDirect})

	out := p.Process(context.Background(), f.write(t, "empty.pdf"))
	if r := out.Result; !r.Success || r.Method != constants.MethodDirect || r.TextOrEmpty() != "" {
		t.Errorf("empty: %+v", r)
	}

	out = p.Process(context.Background(), f.write(t, "short.pdf"))
	if r := out.Result; !r.Success || r.Method != constants.MethodDirect || r.TextOrEmpty() != "hi" {
		t.Errorf("short: %+v", r)
	}

	out = p.Process(context.Background(), f.write(t, "broken.pdf"))
	if r := out.Result; r.Success || r.Method != constants.MethodError || !strings.Contains(r.ErrorOrEmpty(), "syntax error") {
		t.Errorf("broken: %+v", r)
	}
	if f.caps.RenderCalls.Load() != 0 {
		t.Error("text-only run must not render")
	}
}

func TestProcessOCROnlySkipsTextLayer(t *testing.T) {
	f := newFixture(t, map[string]extracttest.Doc{
		"a.pdf": {Text: strings.Repeat("a", 500), Pages: 1, PageText: []string{"from ocr"}},
	})
	out := f.processor(ProcessorConfig{Plan: strategy.UseOCR}).Process(context.Background(), f.write(t, "a.pdf"))
	if r := out.Result; r.Method != constants.MethodOCR || r.TextOrEmpty() != extract.PageHeader(1)+"from ocr\n" {
		t.Fatalf("result = %+v", r)
	}
	if f.caps.DirectCalls.Load() != 0 {
		t.Error("ocr-only run must not read the text layer")
	}
}

func TestProcessFallbacks(t *testing.T) {
	tests := []struct {
		name       string
		doc        extracttest.Doc
		wantMethod constants.Method
		wantText   string
		wantErr    []string
		warnings   int
	}{
		{
			name:       "direct fails ocr succeeds",
			doc:        extracttest.Doc{DirectErr: errors.New("encrypted"), PageText: []string{"ocr text"}},
			wantMethod: constants.MethodOCR,
			wantText:   extract.PageHeader(1) + "ocr text\n",
		},
		{
			name:       "low yield and ocr fails",
			doc:        extracttest.Doc{Text: "Page 1", Pages: 3, CountErr: errors.New("pdftoppm crashed")},
			wantMethod: constants.MethodError,
			wantErr:    []string{"direct text below minimum yield (6/50 chars)", "ocr failed", "pdftoppm crashed"},
		},
		{
			name:       "empty text and ocr fails",
			doc:        extracttest.Doc{Text: "\f", Pages: 1, CountErr: errors.New("no pages")},
			wantMethod: constants.MethodError,
			wantErr:    []string{"ocr failed", "no pages"},
		},
		{
			name:       "both fail",
			doc:        extracttest.Doc{DirectErr: errors.New("bad xref"), CountErr: errors.New("pdfinfo exited 1")},
			wantMethod: constants.MethodError,
			wantErr:    []string{"direct extraction failed: bad xref", "ocr failed", "pdfinfo exited 1"},
		},
		{
			name:       "zero pages never rendered",
			doc:        extracttest.Doc{Text: "", Pages: 0},
			wantMethod: constants.MethodDirect,
			wantText:   "",
		},
		{
			name: "partial ocr keeps good pages",
			doc: extracttest.Doc{
				Text: "", Pages: 3,
				PageText:  []string{"one", "two", "three"},
				FailPages: map[int]bool{2: true},
			},
			wantMethod: constants.MethodOCR,
			wantText:   extract.PageHeader(1) + "one\n" + extract.PageHeader(3) + "three\n",
			warnings:   1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, map[string]extracttest.Doc{"doc.pdf": tt.doc})
			out := f.processor(ProcessorConfig{Plan: strategy.UseBoth}).Process(context.Background(), f.write(t, "doc.pdf"))
			r := out.Result
			if r.Method != tt.wantMethod {
				t.Fatalf("method = %s, want %s (%+v)", r.Method, tt.wantMethod, r)
			}
			if r.Success != (tt.wantMethod != constants.MethodError) {
				t.Errorf("success = %v", r.Success)
			}
			if tt.wantMethod != constants.MethodError && r.TextOrEmpty() != tt.wantText {
				t.Errorf("text = %q, want %q", r.TextOrEmpty(), tt.wantText)
			}
			for _, s := range tt.wantErr {
				if !strings.Contains(r.ErrorOrEmpty(), s) {
					t.Errorf("error %q does not mention %q", r.ErrorOrEmpty(), s)
				}
			}
			if len(r.Warnings) != tt.warnings {
				t.Errorf("warnings = %v", r.Warnings)
			}
			f.assertScratchEmpty(t)
		})
	}
}

func TestProcessDefaultThresholds(t *testing.T) {
	f := newFixture(t, map[string]extracttest.Doc{
		"enough.pdf": {Text: strings.Repeat("x", strategy.DefaultMinTextChars), Pages: 1, PageText: []string{"ocr"}},
		"short.pdf":  {Text: strings.Repeat("x", strategy.DefaultMinTextChars-1), Pages: 1, PageText: []string{"ocr"}},
	})
	p := f.processor(ProcessorConfig{Plan: strategy.UseBoth})

	if r := p.Process(context.Background(), f.write(t, "enough.pdf")).Result; r.Method != constants.MethodDirect {
		t.Errorf("enough.pdf method = %s, want direct", r.Method)
	}
	if r := p.Process(context.Background(), f.write(t, "short.pdf")).Result; r.Method != constants.MethodOCR {
		t.Errorf("short.pdf method = %s, want ocr", r.Method)
	}
}

func TestProcessRecoversPanic(t *testing.T) {
	f := newFixture(t, map[string]extracttest.Doc{"boom.pdf": {Panic: true}})
	out := f.processor(ProcessorConfig{Plan: strategy.UseBoth}).Process(context.Background(), f.write(t, "boom.pdf"))
	r := out.Result
	if r.Success || r.Method != constants.MethodError || !strings.Contains(r.ErrorOrEmpty(), "panic") {
		t.Fatalf("result = %+v", r)
	}
	if r.FileHash == nil {
		t.Error("panic result should keep the fingerprint")
	}
}

func TestProcessTimeout(t *testing.T) {
	f := newFixture(t, map[string]extracttest.Doc{"slow.pdf": {Block: true}})
	p := f.processor(ProcessorConfig{Plan: strategy.UseBoth, Timeout: 20 * time.Millisecond})

	path := f.write(t, "slow.pdf")

	done := make(chan Outcome, 1)
	go func() { done <- p.Process(context.Background(), path) }()

	select {
	case out := <-done:
		r := out.Result
		if r.Success || r.Method != constants.MethodError || !strings.Contains(r.ErrorOrEmpty(), common.CodeTimeout) {
			t.Fatalf("result = %+v", r)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout did not fire")
	}
}
