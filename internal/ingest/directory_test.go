package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/joseph-ayodele/pdf-text-extractor/internal/common"
)

func touch(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		p := filepath.Join(root, r)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("%PDF-1.4"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	touch(t, root,
		"b.pdf",
		"a.PDF",
		"notes.txt",
		"sub/deep/c.Pdf",
		"sub/d.pdf.bak",
		".hidden/e.pdf",
		".f.pdf",
	)

	got, stats, err := Discover(context.Background(), root, Options{SkipHidden: true}, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want := []string{
		filepath.Join(root, "a.PDF"),
		filepath.Join(root, "b.pdf"),
		filepath.Join(root, "sub", "deep", "c.Pdf"),
	}
	if !slices.Equal(got, want) {
		t.Fatalf("got %v\nwant %v", got, want)
	}
	if stats.Matched != 3 || stats.Skipped != 2 {
		t.Errorf("stats = %+v", stats)
	}

	all, _, err := Discover(context.Background(), root, Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 {
		t.Errorf("without SkipHidden got %d paths: %v", len(all), all)
	}
	if !slices.IsSorted(all) {
		t.Error("paths not sorted")
	}
}

func TestDiscoverEmptyAndMissing(t *testing.T) {
	got, _, err := Discover(context.Background(), t.TempDir(), Options{}, nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("empty dir: %v %v", got, err)
	}

	_, _, err = Discover(context.Background(), filepath.Join(t.TempDir(), "nope"), Options{}, nil)
	if !errors.Is(err, common.ErrIO) {
		t.Fatalf("missing root: err = %v, want ErrIO", err)
	}

	_, _, err = Discover(context.Background(), " ", Options{}, nil)
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("blank root: err = %v", err)
	}
}

func TestDiscoverSingleFile(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "one.pdf")
	got, _, err := Discover(context.Background(), filepath.Join(root, "one.pdf"), Options{}, nil)
	if err != nil || len(got) != 1 {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestDiscoverCancelled(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.pdf")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := Discover(ctx, root, Options{}, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestIsHidden(t *testing.T) {
	if !IsHidden("/x/.git") || IsHidden("/x/y.pdf") || IsHidden(".") {
		t.Fatal("IsHidden misclassified")
	}
}
