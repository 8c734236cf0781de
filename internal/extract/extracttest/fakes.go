// Package extracttest provides scripted capabilities for tests that must not
// depend on poppler or tesseract being installed.
package extracttest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/joseph-ayodele/pdf-text-extractor/internal/extract"
)

// Doc scripts how the fakes treat one file.
type Doc struct {
	Text      string // embedded text layer
	Pages     int
	DirectErr error

	PageText  []string     // recognized text per page; len is the OCR page count when set
	FailPages map[int]bool // 1-based pages whose render fails
	CountErr  error

	Panic bool // ExtractText panics
	Block bool // ExtractText blocks until ctx is done
}

// ErrUnknown is returned for files the fake was not told about.
var ErrUnknown = errors.New("not a pdf")

// Capabilities implements DirectExtractor, PageRenderer and Recognizer over
// a table of scripted documents keyed by file base name.
type Capabilities struct {
	mu   sync.RWMutex
	docs map[string]Doc

	DirectCalls atomic.Int64
	RenderCalls atomic.Int64
}

var (
	_ extract.DirectExtractor = (*Capabilities)(nil)
	_ extract.PageRenderer    = (*Capabilities)(nil)
	_ extract.Recognizer      = (*Capabilities)(nil)
)

func New(docs map[string]Doc) *Capabilities {
	c := &Capabilities{docs: make(map[string]Doc, len(docs))}
	for k, v := range docs {
		c.docs[k] = v
	}
	return c
}

// Set adds or replaces the script for name.
func (c *Capabilities) Set(name string, d Doc) {
	c.mu.Lock()
	c.docs[name] = d
	c.mu.Unlock()
}

func (c *Capabilities) doc(path string) (Doc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.docs[filepath.Base(path)]
	return d, ok
}

func (c *Capabilities) ExtractText(ctx context.Context, path string) (extract.Document, error) {
	c.DirectCalls.Add(1)
	d, ok := c.doc(path)
	if !ok {
		return extract.Document{}, ErrUnknown
	}
	if d.Panic {
		panic("malformed xref table")
	}
	if d.Block {
		<-ctx.Done()
		return extract.Document{}, ctx.Err()
	}
	if d.DirectErr != nil {
		return extract.Document{}, d.DirectErr
	}
	return extract.Document{Text: d.Text, Pages: d.Pages}, nil
}

func (c *Capabilities) PageCount(_ context.Context, path string) (int, error) {
	d, ok := c.doc(path)
	if !ok {
		return 0, ErrUnknown
	}
	if d.CountErr != nil {
		return 0, d.CountErr
	}
	if d.PageText != nil {
		return len(d.PageText), nil
	}
	return d.Pages, nil
}

// RenderPage writes a placeholder image whose content names the source document.
func (c *Capabilities) RenderPage(_ context.Context, path string, page int, scratchDir string) (extract.Image, error) {
	c.RenderCalls.Add(1)
	d, ok := c.doc(path)
	if !ok {
		return extract.Image{}, ErrUnknown
	}
	if d.FailPages[page] {
		return extract.Image{}, fmt.Errorf("render page %d failed", page)
	}
	img := filepath.Join(scratchDir, fmt.Sprintf("page-%d.png", page))
	if err := os.WriteFile(img, []byte(filepath.Base(path)), 0o644); err != nil {
		return extract.Image{}, err
	}
	return extract.Image{Path: img, Page: page}, nil
}

func (c *Capabilities) Recognize(_ context.Context, img extract.Image) (string, error) {
	name, err := os.ReadFile(img.Path)
	if err != nil {
		return "", err
	}
	d, ok := c.doc(string(name))
	if !ok {
		return "", ErrUnknown
	}
	if img.Page < 1 || img.Page > len(d.PageText) {
		return "", nil
	}
	return d.PageText[img.Page-1], nil
}

// WritePDFs creates one placeholder file per name under dir and returns their paths.
// Content is the name itself, so distinct names fingerprint differently.
func WritePDFs(dir string, names ...string) ([]string, error) {
	paths := make([]string, 0, len(names))
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(p, []byte("%PDF-1.4\n"+n), 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}
