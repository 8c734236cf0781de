package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/joseph-ayodele/pdf-text-extractor/constants"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/common"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/core"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/core/strategy"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/entity"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/extract"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/extract/extracttest"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/fingerprint"
	"github.com/joseph-ayodele/pdf-text-extractor/internal/repository"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	t    *testing.T
	dir  string
	caps *extracttest.Capabilities
	db   *repository.DB
	repo repository.ResultRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := repository.OpenMemory(t)
	return &harness{
		t:    t,
		dir:  t.TempDir(),
		caps: extracttest.New(nil),
		db:   db,
		repo: repository.NewResultRepository(db, quietLogger()),
	}
}

func (h *harness) add(name string, d extracttest.Doc) string {
	h.t.Helper()
	paths, err := extracttest.WritePDFs(h.dir, name)
	if err != nil {
		h.t.Fatal(err)
	}
	h.caps.Set(filepath.Base(name), d)
	return paths[0]
}

// addUnreadable creates a dangling symlink, which discovery lists but nothing can open.
func (h *harness) addUnreadable(name string) string {
	h.t.Helper()
	p := filepath.Join(h.dir, name)
	if err := os.Symlink(filepath.Join(h.dir, "missing-target"), p); err != nil {
		h.t.Fatal(err)
	}
	return p
}

func (h *harness) processor(cfg core.ProcessorConfig) *core.Processor {
	cfg.ScratchDir = h.t.TempDir()
	logger := quietLogger()
	ocr := extract.NewOCRAdapter(h.caps, h.caps, 0, logger)
	return core.NewProcessor(logger, &fingerprint.Hasher{}, h.repo, h.caps, ocr, cfg)
}

func (h *harness) run(ctx context.Context, cfg core.ProcessorConfig, opts Options, sink Sink) entity.RunStats {
	h.t.Helper()
	if opts.InputDir == "" {
		opts.InputDir = h.dir
	}
	if opts.FlushInterval == 0 {
		opts.FlushInterval = 10 * time.Millisecond
	}
	o := NewOrchestrator(h.processor(cfg), h.repo, sink, opts, quietLogger())
	stats, err := o.Run(ctx)
	if err != nil {
		h.t.Fatalf("Run: %v", err)
	}
	if o.State() != StateDone {
		h.t.Errorf("state after run = %s", o.State())
	}
	return stats
}

func (h *harness) records() []entity.ExtractionResult {
	h.t.Helper()
	rs, err := h.repo.List(context.Background(), repository.ListFilter{IncludeFailed: true})
	if err != nil {
		h.t.Fatal(err)
	}
	return rs
}

func assertIdentities(t *testing.T, s entity.RunStats) {
	t.Helper()
	if s.Processed+s.Skipped != s.Discovered {
		t.Errorf("processed %d + skipped %d != discovered %d", s.Processed, s.Skipped, s.Discovered)
	}
	if s.Processed != s.SucceededDirect+s.SucceededOCR+s.Failed {
		t.Errorf("processed %d != direct %d + ocr %d + failed %d", s.Processed, s.SucceededDirect, s.SucceededOCR, s.Failed)
	}
	if len(s.Failures) != s.Failed {
		t.Errorf("failures listed = %d, failed = %d", len(s.Failures), s.Failed)
	}
}

func scannedPages(n, chars int) []string {
	pages := make([]string, n)
	for i := range pages {
		pages[i] = strings.Repeat("s", chars)
	}
	return pages
}

func TestRunScenarios(t *testing.T) {
	h := newHarness(t)
	native := h.add("native.pdf", extracttest.Doc{Text: strings.Repeat("n", 500), Pages: 2})
	scan := h.add("sub/scan.PDF", extracttest.Doc{Text: "\f\f\f", Pages: 3, PageText: scannedPages(3, 200)})
	broken := h.addUnreadable("broken.pdf")
	h.add("notes.txt", extracttest.Doc{})

	stats := h.run(context.Background(), core.ProcessorConfig{Plan: strategy.UseBoth}, Options{Workers: 2}, nil)

	assertIdentities(t, stats)
	if stats.Discovered != 3 || stats.SucceededDirect != 1 || stats.SucceededOCR != 1 || stats.Failed != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.Cancelled || stats.RunID == "" {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Failures[0].Path != broken {
		t.Errorf("failure path = %s", stats.Failures[0].Path)
	}

	byPath := map[string]entity.ExtractionResult{}
	for _, r := range h.records() {
		byPath[r.FilePath] = r
	}
	if len(byPath) != 3 {
		t.Fatalf("records = %d", len(byPath))
	}

	if r := byPath[native]; r.Method != constants.MethodDirect || !r.Success || len(r.TextOrEmpty()) != 500 || *r.PageCount != 2 {
		t.Errorf("native = %+v", r)
	}
	r := byPath[scan]
	if r.Method != constants.MethodOCR || !r.Success || *r.PageCount != 3 {
		t.Errorf("scan = %+v", r)
	}
	if n := strings.Count(r.TextOrEmpty(), "s"); n != 600 {
		t.Errorf("scan text = %d chars", n)
	}
	if r := byPath[broken]; r.Method != constants.MethodError || r.Success || r.ErrorMessage == nil || r.FileHash != nil {
		t.Errorf("broken = %+v", r)
	}
}

func TestSecondRunIsIdempotent(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 5; i++ {
		h.add(fmt.Sprintf("doc-%d.pdf", i), extracttest.Doc{Text: strings.Repeat("t", 100), Pages: 1})
	}
	h.addUnreadable("dead.pdf")
	cfg := core.ProcessorConfig{Plan: strategy.UseBoth}

	first := h.run(context.Background(), cfg, Options{Workers: 3}, nil)
	assertIdentities(t, first)
	before := h.records()
	directCalls := h.caps.DirectCalls.Load()

	second := h.run(context.Background(), cfg, Options{Workers: 3}, nil)
	assertIdentities(t, second)
	if second.Skipped != 5 || second.Processed != 1 || second.Failed != 1 {
		t.Fatalf("second run = %+v", second)
	}
	if h.caps.DirectCalls.Load() != directCalls {
		t.Error("skipped documents were extracted again")
	}
	if after := h.records(); len(after) != len(before) {
		t.Fatalf("records %d -> %d", len(before), len(after))
	}
}

func TestForceReprocesses(t *testing.T) {
	h := newHarness(t)
	h.add("a.pdf", extracttest.Doc{Text: strings.Repeat("a", 100), Pages: 1})
	h.add("b.pdf", extracttest.Doc{Text: strings.Repeat("b", 100), Pages: 1})

	h.run(context.Background(), core.ProcessorConfig{Plan: strategy.UseBoth}, Options{}, nil)
	before := h.records()

	forced := h.run(context.Background(), core.ProcessorConfig{Plan: strategy.UseBoth, Force: true}, Options{}, nil)
	if forced.Processed != 2 || forced.Skipped != 0 {
		t.Fatalf("forced = %+v", forced)
	}
	after := h.records()
	if len(after) != 2 {
		t.Fatalf("records = %d", len(after))
	}
	maxBefore := before[0].ID
	for _, r := range after {
		if r.ID <= maxBefore {
			t.Errorf("record %s kept id %d, want > %d", r.FilePath, r.ID, maxBefore)
		}
	}
}

type tuple struct {
	path, hash string
	method     constants.Method
	success    bool
}

func TestWorkerCountDoesNotChangeResults(t *testing.T) {
	dir := t.TempDir()
	caps := extracttest.New(nil)
	for i := 0; i < 24; i++ {
		name := fmt.Sprintf("d%02d/doc-%02d.pdf", i%4, i)
		var d extracttest.Doc
		switch i % 4 {
		case 0:
			d = extracttest.Doc{Text: strings.Repeat("x", 300), Pages: 2}
		case 1:
			d = extracttest.Doc{Text: "", Pages: 2, PageText: scannedPages(2, 80)}
		case 2:
			d = extracttest.Doc{DirectErr: errors.New("bad"), CountErr: errors.New("worse")}
		case 3:
			d = extracttest.Doc{Text: "low", Pages: 5, PageText: scannedPages(5, 40), FailPages: map[int]bool{3: true}}
		}
		if _, err := extracttest.WritePDFs(dir, name); err != nil {
			t.Fatal(err)
		}
		caps.Set(filepath.Base(name), d)
	}

	collect := func(workers int) []tuple {
		h := newHarness(t)
		h.dir, h.caps = dir, caps
		stats := h.run(context.Background(), core.ProcessorConfig{Plan: strategy.UseBoth}, Options{Workers: workers, BatchSize: 5}, nil)
		assertIdentities(t, stats)
		var out []tuple
		for _, r := range h.records() {
			out = append(out, tuple{r.FilePath, r.HashOrEmpty(), r.Method, r.Success})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
		return out
	}

	one, eight := collect(1), collect(8)
	if len(one) != 24 || len(eight) != 24 {
		t.Fatalf("records: %d vs %d", len(one), len(eight))
	}
	for i := range one {
		if one[i] != eight[i] {
			t.Errorf("N=1 %+v != N=8 %+v", one[i], eight[i])
		}
	}
}

// flakyWriter fails every batch and refuses single inserts for one path.
type flakyWriter struct {
	repository.ResultRepository
	reject string
	writes int
}

func (f *flakyWriter) InsertBatch(context.Context, []entity.ExtractionResult) error {
	return common.NewStoreError("insert results", errors.New("database is locked"))
}

func (f *flakyWriter) Insert(ctx context.Context, r entity.ExtractionResult) error {
	if r.FilePath == f.reject {
		return common.NewStoreError("insert result", errors.New("disk full"))
	}
	f.writes++
	return f.ResultRepository.Insert(ctx, r)
}

func TestWriteFailureIsDemotedNotFatal(t *testing.T) {
	h := newHarness(t)
	good := h.add("good.pdf", extracttest.Doc{Text: strings.Repeat("g", 100), Pages: 1})
	bad := h.add("bad.pdf", extracttest.Doc{Text: strings.Repeat("b", 100), Pages: 1})
	w := &flakyWriter{ResultRepository: h.repo, reject: bad}

	rec := &Recorder{}
	o := NewOrchestrator(h.processor(core.ProcessorConfig{Plan: strategy.UseBoth}), w, rec,
		Options{InputDir: h.dir, BatchSize: 10, FlushInterval: time.Hour}, quietLogger())
	stats, err := o.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	assertIdentities(t, stats)
	if stats.SucceededDirect != 1 || stats.Failed != 1 || stats.Failures[0].Path != bad {
		t.Fatalf("stats = %+v", stats)
	}
	if !strings.Contains(stats.Failures[0].Message, "disk full") {
		t.Errorf("failure message = %q", stats.Failures[0].Message)
	}
	rs := h.records()
	if len(rs) != 1 || rs[0].FilePath != good {
		t.Fatalf("records = %+v", rs)
	}

	var committed int
	for _, e := range rec.Events() {
		if e.Kind == EventCommitted {
			committed++
		}
	}
	if committed != 2 {
		t.Errorf("committed events = %d", committed)
	}
}

func TestCancelStopsDispatchAndFlushes(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 40; i++ {
		h.add(fmt.Sprintf("doc-%02d.pdf", i), extracttest.Doc{Text: strings.Repeat("c", 100), Pages: 1})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := SinkFunc(func(e Event) {
		if e.Kind == EventCommitted {
			cancel()
		}
	})
	stats := h.run(ctx, core.ProcessorConfig{Plan: strategy.UseBoth}, Options{Workers: 1, BatchSize: 1}, sink)

	if !stats.Cancelled {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.Processed == 0 || stats.Processed >= stats.Discovered {
		t.Fatalf("processed = %d of %d", stats.Processed, stats.Discovered)
	}
	if n := len(h.records()); n != stats.Processed {
		t.Errorf("records = %d, processed = %d", n, stats.Processed)
	}
}

func TestEventsAndStates(t *testing.T) {
	h := newHarness(t)
	h.add("a.pdf", extracttest.Doc{Text: strings.Repeat("a", 100), Pages: 1})
	h.add("b.pdf", extracttest.Doc{Text: strings.Repeat("b", 100), Pages: 1})
	h.run(context.Background(), core.ProcessorConfig{Plan: strategy.UseBoth}, Options{}, nil)

	rec := &Recorder{}
	h.run(context.Background(), core.ProcessorConfig{Plan: strategy.UseBoth}, Options{}, rec)
	events := rec.Events()
	if len(events) != 4 {
		t.Fatalf("events = %+v", events)
	}
	if events[0].Kind != EventDiscovered || events[0].Total != 2 {
		t.Errorf("first event = %+v", events[0])
	}
	if events[1].Kind != EventSkipped || events[2].Kind != EventSkipped {
		t.Errorf("middle events = %+v", events[1:3])
	}
	last := events[3]
	if last.Kind != EventFinished || last.Done != 2 || last.Stats == nil || last.Stats.Skipped != 2 {
		t.Errorf("last event = %+v", last)
	}
}

func TestMissingInputIsFatal(t *testing.T) {
	h := newHarness(t)
	o := NewOrchestrator(h.processor(core.ProcessorConfig{}), h.repo, nil,
		Options{InputDir: filepath.Join(h.dir, "nope")}, quietLogger())
	if _, err := o.Run(context.Background()); !errors.Is(err, common.ErrIO) {
		t.Fatalf("err = %v, want ErrIO", err)
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		StateDiscovering: "discovering",
		StateDispatching: "dispatching",
		StateDraining:    "draining",
		StateReporting:   "reporting",
		StateDone:        "done",
	} {
		if s.String() != want {
			t.Errorf("%d = %s", s, s.String())
		}
	}
}
