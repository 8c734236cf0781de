package ocr

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/joseph-ayodele/pdf-text-extractor/internal/extract"
)

type call struct {
	name string
	args []string
}

// stubRunner answers commands from a table keyed by binary name.
type stubRunner struct {
	calls   []call
	outputs map[string]string
	errs    map[string]error
	stderr  map[string]string
	onRun   func(name string, args []string)
}

func (s *stubRunner) Run(_ context.Context, _ *slog.Logger, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, call{name: name, args: args})
	if s.onRun != nil {
		s.onRun(name, args)
	}
	return []byte(s.outputs[name]), []byte(s.stderr[name]), s.errs[name]
}

func TestPopplerExtractText(t *testing.T) {
	r := &stubRunner{outputs: map[string]string{"pdftotext": "page one\fpage two\f"}}
	p := NewPoppler(Config{}, nil, WithRunner(r))

	doc, err := p.ExtractText(context.Background(), "/in.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Pages != 2 || doc.Text != "page one\fpage two" {
		t.Fatalf("doc = %+v", doc)
	}
	want := []string{"-layout", "-enc", "UTF-8", "-eol", "unix", "/in.pdf", "-"}
	if len(r.calls) != 1 || !slices.Equal(r.calls[0].args, want) {
		t.Fatalf("calls = %+v", r.calls)
	}
}

func TestPopplerExtractTextFailure(t *testing.T) {
	r := &stubRunner{
		errs:   map[string]error{"pdftotext": errors.New("exit status 1")},
		stderr: map[string]string{"pdftotext": "Syntax Error: Couldn't find trailer dictionary\nmore"},
	}
	p := NewPoppler(Config{}, nil, WithRunner(r))
	_, err := p.ExtractText(context.Background(), "/bad.pdf")
	var te *ToolError
	if !errors.As(err, &te) || te.Tool != "pdftotext" || !strings.Contains(err.Error(), "trailer dictionary") {
		t.Fatalf("err = %v", err)
	}
	if strings.Contains(err.Error(), "more") {
		t.Errorf("only the first stderr line should be kept: %v", err)
	}
}

func TestSplitPages(t *testing.T) {
	tests := []struct {
		in    string
		text  string
		pages int
	}{
		{"", "", 0},
		{"\f\f", "", 2},
		{"single page no feed\n", "single page no feed", 1},
		{"a\fb\fc\f", "a\fb\fc", 3},
	}
	for _, tt := range tests {
		doc := splitPages(tt.in)
		if doc.Text != tt.text || doc.Pages != tt.pages {
			t.Errorf("splitPages(%q) = %+v, want %q/%d", tt.in, doc, tt.text, tt.pages)
		}
	}
}

func TestPopplerRenderPage(t *testing.T) {
	dir := t.TempDir()
	r := &stubRunner{onRun: func(name string, args []string) {
		// pdftoppm -singlefile writes <prefix>.png
		prefix := args[len(args)-1]
		_ = os.WriteFile(prefix+".png", []byte("png"), 0o644)
	}}
	p := NewPoppler(Config{DPI: 150}, nil, WithRunner(r))

	img, err := p.RenderPage(context.Background(), "/in.pdf", 3, dir)
	if err != nil {
		t.Fatal(err)
	}
	if img.Page != 3 || img.Path != filepath.Join(dir, "page-3.png") {
		t.Fatalf("img = %+v", img)
	}
	want := []string{"-r", "150", "-png", "-f", "3", "-l", "3", "-singlefile", "/in.pdf", filepath.Join(dir, "page-3")}
	if !slices.Equal(r.calls[0].args, want) {
		t.Fatalf("args = %v", r.calls[0].args)
	}
}

func TestPopplerRenderPageNoOutput(t *testing.T) {
	p := NewPoppler(Config{}, nil, WithRunner(&stubRunner{}))
	if _, err := p.RenderPage(context.Background(), "/in.pdf", 1, t.TempDir()); err == nil {
		t.Fatal("expected error when no image was written")
	}
}

func TestPopplerPageCountFallsBackToPdfinfo(t *testing.T) {
	notPDF := filepath.Join(t.TempDir(), "x.pdf")
	if err := os.WriteFile(notPDF, []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := &stubRunner{outputs: map[string]string{"pdfinfo": "Title: x\nPages:          7\nEncrypted: no\n"}}
	p := NewPoppler(Config{}, nil, WithRunner(r))
	n, err := p.PageCount(context.Background(), notPDF)
	if err != nil || n != 7 {
		t.Fatalf("PageCount = %d, %v", n, err)
	}

	r = &stubRunner{errs: map[string]error{"pdfinfo": errors.New("exit status 1")}}
	p = NewPoppler(Config{}, nil, WithRunner(r))
	if _, err := p.PageCount(context.Background(), notPDF); err == nil {
		t.Fatal("expected error when both page counters fail")
	}
}

func TestTesseractRecognize(t *testing.T) {
	r := &stubRunner{outputs: map[string]string{"tesseract": "Hello\t\tWorld  \r\n\n\n\nBye\n"}}
	tr := NewTesseract(Config{TesseractLang: "deu", TessdataDir: "/td", PSM: 6, GPU: true}, nil, WithRunner(r))

	text, err := tr.Recognize(context.Background(), extract.Image{Path: "/s/page-1.png", Page: 1})
	if err != nil {
		t.Fatal(err)
	}
	if text != "Hello World\n\nBye" {
		t.Fatalf("text = %q", text)
	}
	want := []string{"/s/page-1.png", "stdout", "-l", "deu", "--tessdata-dir", "/td", "--psm", "6"}
	if !slices.Equal(r.calls[0].args, want) {
		t.Fatalf("args = %v", r.calls[0].args)
	}
}

func TestProbe(t *testing.T) {
	r := &stubRunner{errs: map[string]error{
		"tesseract": &exec.Error{Name: "tesseract", Err: exec.ErrNotFound},
		"pdftoppm":  &exec.ExitError{},
	}}
	a := Probe(context.Background(), Config{}, nil, WithRunner(r))
	if !a.Pdftotext || !a.Pdftoppm || a.Tesseract {
		t.Fatalf("availability = %+v", a)
	}
	if a.OCR() {
		t.Error("OCR should be unavailable without tesseract")
	}
	if !slices.Equal(a.Missing, []string{"tesseract"}) {
		t.Errorf("missing = %v", a.Missing)
	}
}

func TestNativeExtractorRejectsGarbage(t *testing.T) {
	p := filepath.Join(t.TempDir(), "garbage.pdf")
	if err := os.WriteFile(p, []byte("%PDF-1.4\nthis is not really a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewNativeExtractor(nil).ExtractText(context.Background(), p); err == nil {
		t.Fatal("expected error for malformed pdf")
	}
	if _, err := NewNativeExtractor(nil).ExtractText(context.Background(), filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestNormalize(t *testing.T) {
	in := "  a\t b   c  \r\n\r\n\r\n\r\nd\fe  "
	if got := Normalize(in); got != "a b c\n\nd\ne" {
		t.Fatalf("Normalize = %q", got)
	}
	if Normalize("") != "" {
		t.Fatal("empty stays empty")
	}
}

func TestGosseractStubOrReal(t *testing.T) {
	_, err := NewGosseractRecognizer(Config{}, nil)
	if GosseractAvailable && err != nil {
		t.Fatalf("gosseract build failed to construct: %v", err)
	}
	if !GosseractAvailable && !errors.Is(err, ErrNoGosseract) {
		t.Fatalf("err = %v", err)
	}
}
